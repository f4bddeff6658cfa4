package omr

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"testing"

	"github.com/ctroy978/edmpc/internal/sheet"
)

func scanTestLayout() *sheet.LayoutGuide {
	question := func(n int, y float64) sheet.QuestionDef {
		return sheet.QuestionDef{
			Number: n,
			Bubbles: []sheet.BubbleDef{
				{Label: "A", X: 60, Y: y, Radius: 5},
				{Label: "B", X: 80, Y: y, Radius: 5},
				{Label: "C", X: 100, Y: y, Radius: 5},
			},
		}
	}
	idColumn := func(idx int, x float64) sheet.StudentIDColumn {
		col := sheet.StudentIDColumn{DigitIndex: idx}
		for d := 0; d < 10; d++ {
			col.Bubbles = append(col.Bubbles, sheet.BubbleDef{
				Label:  string(rune('0' + d)),
				X:      x,
				Y:      200 - float64(d)*12,
				Radius: 4,
			})
		}
		return col
	}
	return &sheet.LayoutGuide{
		Width:  200,
		Height: 260,
		Questions: []sheet.QuestionDef{
			question(1, 150),
			question(2, 120),
		},
		StudentIDColumns: []sheet.StudentIDColumn{
			idColumn(0, 140),
			idColumn(1, 160),
		},
		AlignmentMarkers: []sheet.AlignmentMarker{
			{X: 10, Y: 230, Size: 20, Type: "square"},
			{X: 170, Y: 230, Size: 20, Type: "square"},
			{X: 170, Y: 10, Size: 20, Type: "square"},
			{X: 10, Y: 10, Size: 20, Type: "square"},
		},
	}
}

// renderPage draws a synthetic scan of the layout: black marker squares plus
// black discs for the requested answer selections and ID digits.
func renderPage(layout *sheet.LayoutGuide, scale float64, answers map[int][]string, digits map[int]string) *image.Gray {
	w := int(layout.Width * scale)
	h := int(layout.Height * scale)
	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)

	px := func(x float64) int { return int(math.Round(x * scale)) }
	py := func(y float64) int { return int(math.Round((layout.Height - y) * scale)) }

	fillDisc := func(cx, cy, r int) {
		for y := cy - r; y <= cy+r; y++ {
			for x := cx - r; x <= cx+r; x++ {
				dx, dy := x-cx, y-cy
				if dx*dx+dy*dy <= r*r && x >= 0 && x < w && y >= 0 && y < h {
					img.SetGray(x, y, color.Gray{Y: 0})
				}
			}
		}
	}

	for _, m := range layout.AlignmentMarkers {
		x0, y0 := px(m.X), py(m.Y+m.Size)
		x1, y1 := px(m.X+m.Size), py(m.Y)
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}

	for _, q := range layout.Questions {
		for _, b := range q.Bubbles {
			for _, label := range answers[q.Number] {
				if b.Label == label {
					fillDisc(px(b.X), py(b.Y), int(b.Radius*scale))
				}
			}
		}
	}
	for _, col := range layout.StudentIDColumns {
		for _, b := range col.Bubbles {
			if b.Label == digits[col.DigitIndex] {
				fillDisc(px(b.X), py(b.Y), int(b.Radius*scale))
			}
		}
	}

	return img
}

func TestScanImage(t *testing.T) {
	layout := scanTestLayout()
	scanner := NewScanner(layout, DefaultThresholds())

	img := renderPage(layout, 4,
		map[int][]string{1: {"B"}, 2: {"A", "C"}},
		map[int]string{0: "4", 1: "2"},
	)

	result := scanner.ScanImage(3, img)

	if result.PageNumber != 3 {
		t.Errorf("PageNumber = %d, want 3", result.PageNumber)
	}
	if result.StudentID != "42" {
		t.Errorf("StudentID = %q, want \"42\" (warnings: %v)", result.StudentID, result.Warnings)
	}
	if got := result.Answers[1]; got != "B" {
		t.Errorf("Answers[1] = %q, want B", got)
	}
	if got := result.Answers[2]; got != "A,C" {
		t.Errorf("Answers[2] = %q, want A,C", got)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestScanImageUnmarkedID(t *testing.T) {
	layout := scanTestLayout()
	scanner := NewScanner(layout, DefaultThresholds())

	// Answers only; the ID columns stay blank.
	img := renderPage(layout, 4, map[int][]string{1: {"A"}}, nil)

	result := scanner.ScanImage(1, img)

	if result.StudentID != StudentIDError {
		t.Errorf("StudentID = %q, want %q", result.StudentID, StudentIDError)
	}
	found := false
	for _, w := range result.Warnings {
		if w == "Student ID unresolved." {
			found = true
		}
	}
	if !found {
		t.Errorf("missing terminal ID warning, got %v", result.Warnings)
	}
}

func TestScanImageBlankQuestion(t *testing.T) {
	layout := scanTestLayout()
	scanner := NewScanner(layout, DefaultThresholds())

	img := renderPage(layout, 4,
		map[int][]string{1: {"C"}},
		map[int]string{0: "0", 1: "7"},
	)

	result := scanner.ScanImage(1, img)

	if got := result.Answers[2]; got != "" {
		t.Errorf("Answers[2] = %q, want empty for a blank question", got)
	}
	warned := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "Question 2") {
			warned = true
		}
	}
	if !warned {
		t.Errorf("expected a warning for the blank question, got %v", result.Warnings)
	}
}

func TestErrorResult(t *testing.T) {
	result := ErrorResult(7, errors.New("boom"))
	if result.PageNumber != 7 || result.StudentID != StudentIDError {
		t.Errorf("ErrorResult = %+v", result)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "boom") {
		t.Errorf("Warnings = %v", result.Warnings)
	}
}

func TestQuestionNumbers(t *testing.T) {
	scanner := NewScanner(scanTestLayout(), DefaultThresholds())
	got := scanner.QuestionNumbers()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("QuestionNumbers = %v, want [1 2]", got)
	}
}
