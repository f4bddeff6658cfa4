package sheet

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrMalformedLayout indicates a layout document that is missing required
// fields or contains bubbles without coordinates.
var ErrMalformedLayout = errors.New("malformed layout")

// BubbleDef is a single bubble position in layout coordinates.
// Label is the answer-option token (questions) or digit value (ID columns).
type BubbleDef struct {
	Label  string
	X      float64
	Y      float64
	Radius float64
}

// QuestionDef is one question and its bubble options.
type QuestionDef struct {
	Number  int
	Bubbles []BubbleDef
}

// StudentIDColumn is one digit column of the student ID area. DigitIndex
// defines the digit's position in the decoded ID, left to right.
type StudentIDColumn struct {
	DigitIndex int
	Bubbles    []BubbleDef
}

// AlignmentMarker is a printed fiducial. X, Y is the marker's lower-left
// corner in layout coordinates; Size is its side length.
type AlignmentMarker struct {
	X    float64
	Y    float64
	Size float64
	Type string
}

// Center returns the marker's center point in layout coordinates.
func (m AlignmentMarker) Center() (float64, float64) {
	return m.X + m.Size/2, m.Y + m.Size/2
}

// LayoutGuide is the complete, immutable layout of a bubble sheet. All
// coordinates are logical units with origin at the bottom-left (PDF-style).
type LayoutGuide struct {
	Width            float64
	Height           float64
	Questions        []QuestionDef
	StudentIDColumns []StudentIDColumn
	AlignmentMarkers []AlignmentMarker
	// Margin is the border-frame offset declared in the layout metadata,
	// zero when absent. Used by the page-border alignment fallback.
	Margin float64
}

// layoutDoc mirrors the stored layout JSON shape.
type layoutDoc struct {
	Dimensions *struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"dimensions"`
	Questions []struct {
		Number  int         `json:"number"`
		Bubbles []bubbleDoc `json:"bubbles"`
	} `json:"questions"`
	StudentID []struct {
		DigitIndex  *int        `json:"digit_index"`
		LegacyDigit *int        `json:"digit"`
		Bubbles     []bubbleDoc `json:"bubbles"`
	} `json:"student_id"`
	AlignmentMarkers []struct {
		X    *float64 `json:"x"`
		Y    *float64 `json:"y"`
		Size float64  `json:"size"`
		Type string   `json:"type"`
	} `json:"alignment_markers"`
	Metadata map[string]json.RawMessage `json:"metadata"`
}

type bubbleDoc struct {
	Option *string  `json:"option"`
	Value  *string  `json:"value"`
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Radius *float64 `json:"radius"`
}

// Load parses and validates a layout document into a LayoutGuide.
// The parse is strict: missing dimensions, questions, student_id, or bubble
// coordinates fail with an ErrMalformedLayout-wrapped error. Loose variants
// allowed in stored documents ("digit" for "digit_index", "value" for
// "option") are resolved here so nothing downstream deals with them.
func Load(raw []byte) (*LayoutGuide, error) {
	var doc layoutDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLayout, err)
	}

	if doc.Dimensions == nil || doc.Dimensions.Width <= 0 || doc.Dimensions.Height <= 0 {
		return nil, fmt.Errorf("%w: missing or invalid dimensions", ErrMalformedLayout)
	}
	if len(doc.Questions) == 0 {
		return nil, fmt.Errorf("%w: missing questions", ErrMalformedLayout)
	}
	if len(doc.StudentID) == 0 {
		return nil, fmt.Errorf("%w: missing student_id", ErrMalformedLayout)
	}

	guide := &LayoutGuide{
		Width:  doc.Dimensions.Width,
		Height: doc.Dimensions.Height,
	}

	for _, q := range doc.Questions {
		bubbles, err := parseBubbles(q.Bubbles, fmt.Sprintf("question %d", q.Number))
		if err != nil {
			return nil, err
		}
		if err := uniqueLabels(bubbles, fmt.Sprintf("question %d", q.Number)); err != nil {
			return nil, err
		}
		guide.Questions = append(guide.Questions, QuestionDef{Number: q.Number, Bubbles: bubbles})
	}

	seenDigits := make(map[int]bool, len(doc.StudentID))
	for i, col := range doc.StudentID {
		idx := col.DigitIndex
		if idx == nil {
			idx = col.LegacyDigit
		}
		if idx == nil {
			return nil, fmt.Errorf("%w: student_id column %d missing digit_index", ErrMalformedLayout, i)
		}
		if seenDigits[*idx] {
			return nil, fmt.Errorf("%w: duplicate digit_index %d", ErrMalformedLayout, *idx)
		}
		seenDigits[*idx] = true

		bubbles, err := parseBubbles(col.Bubbles, fmt.Sprintf("student_id column %d", *idx))
		if err != nil {
			return nil, err
		}
		if err := uniqueLabels(bubbles, fmt.Sprintf("student_id column %d", *idx)); err != nil {
			return nil, err
		}
		guide.StudentIDColumns = append(guide.StudentIDColumns, StudentIDColumn{
			DigitIndex: *idx,
			Bubbles:    bubbles,
		})
	}
	sort.Slice(guide.StudentIDColumns, func(a, b int) bool {
		return guide.StudentIDColumns[a].DigitIndex < guide.StudentIDColumns[b].DigitIndex
	})

	for i, m := range doc.AlignmentMarkers {
		if m.X == nil || m.Y == nil {
			return nil, fmt.Errorf("%w: alignment marker %d missing coordinates", ErrMalformedLayout, i)
		}
		markerType := m.Type
		if markerType == "" {
			markerType = "square"
		}
		guide.AlignmentMarkers = append(guide.AlignmentMarkers, AlignmentMarker{
			X:    *m.X,
			Y:    *m.Y,
			Size: m.Size,
			Type: markerType,
		})
	}

	if raw, ok := doc.Metadata["margin"]; ok {
		var margin float64
		if err := json.Unmarshal(raw, &margin); err == nil && margin > 0 {
			guide.Margin = margin
		}
	}

	return guide, nil
}

func parseBubbles(docs []bubbleDoc, where string) ([]BubbleDef, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s has no bubbles", ErrMalformedLayout, where)
	}
	bubbles := make([]BubbleDef, 0, len(docs))
	for i, b := range docs {
		label := b.Option
		if label == nil {
			label = b.Value
		}
		if label == nil || *label == "" {
			return nil, fmt.Errorf("%w: %s bubble %d missing label", ErrMalformedLayout, where, i)
		}
		if b.X == nil || b.Y == nil || b.Radius == nil {
			return nil, fmt.Errorf("%w: %s bubble %q missing x/y/radius", ErrMalformedLayout, where, *label)
		}
		bubbles = append(bubbles, BubbleDef{Label: *label, X: *b.X, Y: *b.Y, Radius: *b.Radius})
	}
	return bubbles, nil
}

func uniqueLabels(bubbles []BubbleDef, where string) error {
	seen := make(map[string]bool, len(bubbles))
	for _, b := range bubbles {
		if seen[b.Label] {
			return fmt.Errorf("%w: %s has duplicate bubble label %q", ErrMalformedLayout, where, b.Label)
		}
		seen[b.Label] = true
	}
	return nil
}

// QuestionNumbers returns the sorted question numbers defined by the layout.
func (g *LayoutGuide) QuestionNumbers() []int {
	nums := make([]int, 0, len(g.Questions))
	for _, q := range g.Questions {
		nums = append(nums, q.Number)
	}
	sort.Ints(nums)
	return nums
}
