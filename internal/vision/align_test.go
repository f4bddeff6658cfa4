package vision

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"

	"github.com/ctroy978/edmpc/internal/sheet"
)

// testLayout is a small sheet with markers near every corner, two questions,
// and two ID columns. Coordinates are bottom-left origin layout units.
func testLayout() *sheet.LayoutGuide {
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

// renderSheet draws the layout on a white page at the given scale: solid
// black squares for markers and solid black discs for the listed bubbles.
// filled maps are keyed by question number / digit index.
func renderSheet(layout *sheet.LayoutGuide, scale float64, filledAnswers map[int][]string, filledDigits map[int]string) *image.Gray {
	w := int(layout.Width * scale)
	h := int(layout.Height * scale)
	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)

	px := func(x float64) int { return int(math.Round(x * scale)) }
	// Layout y is bottom-left origin; the image is top-left.
	py := func(y float64) int { return int(math.Round((layout.Height - y) * scale)) }

	fillRect := func(x0, y0, x1, y1 int) {
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				if x >= 0 && x < w && y >= 0 && y < h {
					img.SetGray(x, y, color.Gray{Y: 0})
				}
			}
		}
	}
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
		fillRect(px(m.X), py(m.Y+m.Size), px(m.X+m.Size), py(m.Y))
	}

	contains := func(labels []string, label string) bool {
		for _, l := range labels {
			if l == label {
				return true
			}
		}
		return false
	}

	for _, q := range layout.Questions {
		for _, b := range q.Bubbles {
			if contains(filledAnswers[q.Number], b.Label) {
				fillDisc(px(b.X), py(b.Y), int(b.Radius*scale))
			}
		}
	}
	for _, col := range layout.StudentIDColumns {
		for _, b := range col.Bubbles {
			if b.Label == filledDigits[col.DigitIndex] {
				fillDisc(px(b.X), py(b.Y), int(b.Radius*scale))
			}
		}
	}

	return img
}

func TestEstimateAlignmentFromMarkers(t *testing.T) {
	layout := testLayout()
	const scale = 4.0
	img := renderSheet(layout, scale, nil, nil)

	transform, warnings := EstimateAlignment(img, layout)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	// The render maps layout (x, y) to pixel (scale*x, scale*(H-y));
	// the recovered transform must agree away from the markers.
	samples := []Point{{X: 60, Y: 150}, {X: 100, Y: 50}, {X: 160, Y: 200}}
	for _, p := range samples {
		got := ProjectPoint(transform, layout.Height, p.X, p.Y)
		wantX := p.X * scale
		wantY := (layout.Height - p.Y) * scale
		if math.Abs(got.X-wantX) > 2 || math.Abs(got.Y-wantY) > 2 {
			t.Errorf("ProjectPoint(%v) = (%.1f, %.1f), want (%.1f, %.1f)",
				p, got.X, got.Y, wantX, wantY)
		}
	}
}

func TestEstimateAlignmentGuidedMarkerSearch(t *testing.T) {
	layout := testLayout()
	const scale = 4.0

	// Render with the bottom-left marker missing, then draw a degraded
	// 10x10 remnant (100 px²) at its center: too small for full-image
	// detection, large enough for the relaxed guided minimum.
	renderLayout := *layout
	renderLayout.AlignmentMarkers = layout.AlignmentMarkers[:3]
	img := renderSheet(&renderLayout, scale, nil, nil)

	m := layout.AlignmentMarkers[3]
	cx, cy := m.Center()
	pcx := int(cx * scale)
	pcy := int((layout.Height - cy) * scale)
	for y := pcy - 5; y < pcy+5; y++ {
		for x := pcx - 5; x < pcx+5; x++ {
			img.SetGray(x, y, color.Gray{Y: 0})
		}
	}

	transform, warnings := EstimateAlignment(img, layout)

	if len(warnings) != 1 || warnings[0] != "Alignment markers recovered via guided search." {
		t.Fatalf("warnings = %v, want only the guided-search recovery notice", warnings)
	}

	samples := []Point{{X: 60, Y: 150}, {X: 100, Y: 50}, {X: 160, Y: 200}}
	for _, p := range samples {
		got := ProjectPoint(transform, layout.Height, p.X, p.Y)
		wantX := p.X * scale
		wantY := (layout.Height - p.Y) * scale
		if math.Abs(got.X-wantX) > 2 || math.Abs(got.Y-wantY) > 2 {
			t.Errorf("ProjectPoint(%v) = (%.1f, %.1f), want (%.1f, %.1f)",
				p, got.X, got.Y, wantX, wantY)
		}
	}
}

// borderedPage draws a white page of the given size inset in a dark
// background, the shape of a photographed sheet on a scanner bed.
func borderedPage(imgW, imgH, inset int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, imgW, imgH))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: 40}), image.Point{}, draw.Src)
	page := image.Rect(inset, inset, imgW-inset, imgH-inset)
	draw.Draw(img, page, image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)
	return img
}

func TestEstimateAlignmentPageBorder(t *testing.T) {
	layout := testLayout()
	layout.AlignmentMarkers = nil

	// 400x540 page inset 50 px in a dark background.
	img := borderedPage(500, 640, 50)

	transform, warnings := EstimateAlignment(img, layout)

	if len(warnings) != 1 || warnings[0] != "Using page border for alignment." {
		t.Fatalf("warnings = %v, want only the page-border notice", warnings)
	}

	// The page rectangle maps the full layout: x scaled by 400/200, y by
	// 540/260, both offset by the 50 px inset.
	samples := []Point{{X: 100, Y: 130}, {X: 40, Y: 220}, {X: 180, Y: 30}}
	for _, p := range samples {
		got := ProjectPoint(transform, layout.Height, p.X, p.Y)
		wantX := 50 + p.X*(400.0/200.0)
		wantY := 50 + (layout.Height-p.Y)*(540.0/260.0)
		if math.Abs(got.X-wantX) > 4 || math.Abs(got.Y-wantY) > 4 {
			t.Errorf("ProjectPoint(%v) = (%.1f, %.1f), want (%.1f, %.1f)",
				p, got.X, got.Y, wantX, wantY)
		}
	}
}

func TestEstimateAlignmentInnerFrame(t *testing.T) {
	layout := testLayout()
	layout.AlignmentMarkers = nil
	layout.Margin = 36

	// A full-bleed scan showing only the printed content frame: a dark
	// rectangle outline inset by margin/2 in layout units at 2x scale.
	const scale = 2.0
	imgW, imgH := int(layout.Width*scale), int(layout.Height*scale)
	img := image.NewGray(image.Rect(0, 0, imgW, imgH))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)

	inset := int(layout.Margin / 2 * scale)
	outer := image.Rect(inset, inset, imgW-inset, imgH-inset)
	inner := outer.Inset(4)
	draw.Draw(img, outer, image.NewUniform(color.Gray{Y: 0}), image.Point{}, draw.Src)
	draw.Draw(img, inner, image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)

	transform, warnings := EstimateAlignment(img, layout)

	if len(warnings) != 1 || warnings[0] != "Detected inner border frame for alignment." {
		t.Fatalf("warnings = %v, want only the inner-frame notice", warnings)
	}

	// With the frame recognized as the inset content rectangle, the
	// overall mapping is the plain 2x page scale.
	samples := []Point{{X: 100, Y: 130}, {X: 40, Y: 220}}
	for _, p := range samples {
		got := ProjectPoint(transform, layout.Height, p.X, p.Y)
		wantX := p.X * scale
		wantY := (layout.Height - p.Y) * scale
		if math.Abs(got.X-wantX) > 4 || math.Abs(got.Y-wantY) > 4 {
			t.Errorf("ProjectPoint(%v) = (%.1f, %.1f), want (%.1f, %.1f)",
				p, got.X, got.Y, wantX, wantY)
		}
	}
}

func TestEstimateAlignmentDegenerateBorderSolve(t *testing.T) {
	// A zero-width layout collapses the page-corner correspondence, so the
	// border tier must fall through to proportional with a warning rather
	// than return a broken transform silently.
	layout := &sheet.LayoutGuide{Width: 0, Height: 260}
	img := borderedPage(500, 640, 50)

	_, warnings := EstimateAlignment(img, layout)

	found := false
	for _, w := range warnings {
		if w == "Page border correspondence was degenerate; using proportional mapping." {
			found = true
		}
	}
	if !found {
		t.Errorf("expected degenerate-border warning, got %v", warnings)
	}
}

func TestEstimateAlignmentNoMarkersInLayout(t *testing.T) {
	layout := testLayout()
	layout.AlignmentMarkers = layout.AlignmentMarkers[:2]
	img := image.NewGray(image.Rect(0, 0, 400, 520))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)

	transform, warnings := EstimateAlignment(img, layout)

	found := false
	for _, w := range warnings {
		if w == "Insufficient layout markers; using proportional mapping." {
			found = true
		}
	}
	if !found {
		t.Errorf("expected proportional-mapping warning, got %v", warnings)
	}

	// Proportional fallback is a plain scale.
	got := transform.Apply(Point{X: 100, Y: 130})
	if math.Abs(got.X-200) > 1e-9 || math.Abs(got.Y-260) > 1e-9 {
		t.Errorf("fallback transform maps (100,130) to (%.2f, %.2f), want (200, 260)", got.X, got.Y)
	}
}

func TestEstimateAlignmentBlankPage(t *testing.T) {
	layout := testLayout()
	img := image.NewGray(image.Rect(0, 0, 400, 520))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)

	_, warnings := EstimateAlignment(img, layout)
	if len(warnings) == 0 {
		t.Fatal("expected a degradation warning on a blank page")
	}
}

func TestFlipY(t *testing.T) {
	p := flipY(10, 30, 260)
	if p.X != 10 || p.Y != 230 {
		t.Errorf("flipY = %v, want (10, 230)", p)
	}
}
