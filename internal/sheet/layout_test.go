package sheet_test

import (
	"errors"
	"testing"

	"github.com/ctroy978/edmpc/internal/sheet"
)

const validLayout = `{
	"dimensions": {"width": 612, "height": 792},
	"questions": [
		{"number": 1, "bubbles": [
			{"option": "A", "x": 100, "y": 700, "radius": 8},
			{"option": "B", "x": 130, "y": 700, "radius": 8}
		]},
		{"number": 2, "bubbles": [
			{"option": "A", "x": 100, "y": 670, "radius": 8},
			{"option": "B", "x": 130, "y": 670, "radius": 8}
		]}
	],
	"student_id": [
		{"digit_index": 1, "bubbles": [
			{"value": "0", "x": 400, "y": 700, "radius": 6},
			{"value": "1", "x": 400, "y": 680, "radius": 6}
		]},
		{"digit_index": 0, "bubbles": [
			{"value": "0", "x": 380, "y": 700, "radius": 6},
			{"value": "1", "x": 380, "y": 680, "radius": 6}
		]}
	],
	"alignment_markers": [
		{"x": 20, "y": 752, "size": 20, "type": "square"},
		{"x": 572, "y": 752, "size": 20, "type": "square"},
		{"x": 572, "y": 20, "size": 20, "type": "square"},
		{"x": 20, "y": 20, "size": 20, "type": "square"}
	],
	"metadata": {"margin": 36}
}`

func TestLoadValidLayout(t *testing.T) {
	guide, err := sheet.Load([]byte(validLayout))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if guide.Width != 612 || guide.Height != 792 {
		t.Errorf("dimensions = %gx%g, want 612x792", guide.Width, guide.Height)
	}
	if len(guide.Questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(guide.Questions))
	}
	if len(guide.AlignmentMarkers) != 4 {
		t.Fatalf("got %d markers, want 4", len(guide.AlignmentMarkers))
	}
	if guide.Margin != 36 {
		t.Errorf("Margin = %g, want 36", guide.Margin)
	}

	// Columns come back sorted by digit index regardless of document order.
	if len(guide.StudentIDColumns) != 2 {
		t.Fatalf("got %d id columns, want 2", len(guide.StudentIDColumns))
	}
	if guide.StudentIDColumns[0].DigitIndex != 0 || guide.StudentIDColumns[1].DigitIndex != 1 {
		t.Errorf("columns not sorted by digit_index: %v, %v",
			guide.StudentIDColumns[0].DigitIndex, guide.StudentIDColumns[1].DigitIndex)
	}

	if got := guide.QuestionNumbers(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("QuestionNumbers = %v, want [1 2]", got)
	}
}

func TestLoadLegacyDigitField(t *testing.T) {
	doc := `{
		"dimensions": {"width": 100, "height": 100},
		"questions": [{"number": 1, "bubbles": [{"option": "A", "x": 1, "y": 1, "radius": 1}]}],
		"student_id": [{"digit": 3, "bubbles": [{"value": "0", "x": 2, "y": 2, "radius": 1}]}]
	}`
	guide, err := sheet.Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if guide.StudentIDColumns[0].DigitIndex != 3 {
		t.Errorf("DigitIndex = %d, want 3 (from legacy digit field)", guide.StudentIDColumns[0].DigitIndex)
	}
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"missing dimensions", `{
			"questions": [{"number": 1, "bubbles": [{"option": "A", "x": 1, "y": 1, "radius": 1}]}],
			"student_id": [{"digit_index": 0, "bubbles": [{"value": "0", "x": 1, "y": 1, "radius": 1}]}]
		}`},
		{"zero width", `{
			"dimensions": {"width": 0, "height": 100},
			"questions": [{"number": 1, "bubbles": [{"option": "A", "x": 1, "y": 1, "radius": 1}]}],
			"student_id": [{"digit_index": 0, "bubbles": [{"value": "0", "x": 1, "y": 1, "radius": 1}]}]
		}`},
		{"no questions", `{
			"dimensions": {"width": 100, "height": 100},
			"questions": [],
			"student_id": [{"digit_index": 0, "bubbles": [{"value": "0", "x": 1, "y": 1, "radius": 1}]}]
		}`},
		{"no student id", `{
			"dimensions": {"width": 100, "height": 100},
			"questions": [{"number": 1, "bubbles": [{"option": "A", "x": 1, "y": 1, "radius": 1}]}]
		}`},
		{"bubble missing coordinates", `{
			"dimensions": {"width": 100, "height": 100},
			"questions": [{"number": 1, "bubbles": [{"option": "A", "y": 1, "radius": 1}]}],
			"student_id": [{"digit_index": 0, "bubbles": [{"value": "0", "x": 1, "y": 1, "radius": 1}]}]
		}`},
		{"bubble missing label", `{
			"dimensions": {"width": 100, "height": 100},
			"questions": [{"number": 1, "bubbles": [{"x": 1, "y": 1, "radius": 1}]}],
			"student_id": [{"digit_index": 0, "bubbles": [{"value": "0", "x": 1, "y": 1, "radius": 1}]}]
		}`},
		{"duplicate bubble label", `{
			"dimensions": {"width": 100, "height": 100},
			"questions": [{"number": 1, "bubbles": [
				{"option": "A", "x": 1, "y": 1, "radius": 1},
				{"option": "A", "x": 2, "y": 1, "radius": 1}
			]}],
			"student_id": [{"digit_index": 0, "bubbles": [{"value": "0", "x": 1, "y": 1, "radius": 1}]}]
		}`},
		{"column missing digit_index", `{
			"dimensions": {"width": 100, "height": 100},
			"questions": [{"number": 1, "bubbles": [{"option": "A", "x": 1, "y": 1, "radius": 1}]}],
			"student_id": [{"bubbles": [{"value": "0", "x": 1, "y": 1, "radius": 1}]}]
		}`},
		{"duplicate digit_index", `{
			"dimensions": {"width": 100, "height": 100},
			"questions": [{"number": 1, "bubbles": [{"option": "A", "x": 1, "y": 1, "radius": 1}]}],
			"student_id": [
				{"digit_index": 0, "bubbles": [{"value": "0", "x": 1, "y": 1, "radius": 1}]},
				{"digit_index": 0, "bubbles": [{"value": "0", "x": 2, "y": 1, "radius": 1}]}
			]
		}`},
		{"marker missing coordinates", `{
			"dimensions": {"width": 100, "height": 100},
			"questions": [{"number": 1, "bubbles": [{"option": "A", "x": 1, "y": 1, "radius": 1}]}],
			"student_id": [{"digit_index": 0, "bubbles": [{"value": "0", "x": 1, "y": 1, "radius": 1}]}],
			"alignment_markers": [{"size": 20}]
		}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sheet.Load([]byte(tc.doc))
			if !errors.Is(err, sheet.ErrMalformedLayout) {
				t.Errorf("Load = %v, want ErrMalformedLayout", err)
			}
		})
	}
}

func TestMarkerCenter(t *testing.T) {
	m := sheet.AlignmentMarker{X: 20, Y: 30, Size: 20}
	cx, cy := m.Center()
	if cx != 30 || cy != 40 {
		t.Errorf("Center = (%g, %g), want (30, 40)", cx, cy)
	}
}
