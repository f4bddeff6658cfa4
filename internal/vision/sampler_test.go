package vision

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"

	"github.com/ctroy978/edmpc/internal/sheet"
)

func whiteImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)
	return img
}

func TestMeasureFill(t *testing.T) {
	img := whiteImage(100, 100)

	// Solid disc at (30, 30) radius 10.
	for y := 20; y <= 40; y++ {
		for x := 20; x <= 40; x++ {
			dx, dy := x-30, y-30
			if dx*dx+dy*dy <= 100 {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}

	if fill := MeasureFill(img, Point{X: 30, Y: 30}, 10); fill < 0.95 {
		t.Errorf("filled bubble fill = %.3f, want >= 0.95", fill)
	}
	if fill := MeasureFill(img, Point{X: 70, Y: 70}, 10); fill > 0.01 {
		t.Errorf("empty bubble fill = %.3f, want ~0", fill)
	}
	// Half-covered: the disc boundary region pulls the score to mid-range.
	if fill := MeasureFill(img, Point{X: 40, Y: 30}, 10); fill < 0.2 || fill > 0.8 {
		t.Errorf("partial bubble fill = %.3f, want mid-range", fill)
	}
}

func TestMeasureFillOutsideImage(t *testing.T) {
	img := whiteImage(50, 50)
	if fill := MeasureFill(img, Point{X: 500, Y: 500}, 5); fill != 0 {
		t.Errorf("off-image fill = %.3f, want 0", fill)
	}
}

func TestEstimatePixelRadius(t *testing.T) {
	b := sheet.BubbleDef{Label: "A", X: 50, Y: 50, Radius: 5}

	// Uniform 4x scale gives a 20 pixel radius.
	if r := EstimatePixelRadius(Scale(4, 4), 260, b); math.Abs(r-20) > 1e-6 {
		t.Errorf("radius = %.3f, want 20", r)
	}
	// Anisotropic scale averages the two axes.
	if r := EstimatePixelRadius(Scale(2, 6), 260, b); math.Abs(r-20) > 1e-6 {
		t.Errorf("anisotropic radius = %.3f, want 20", r)
	}
	// Degenerate transforms still report at least one pixel.
	if r := EstimatePixelRadius(Scale(0.01, 0.01), 260, b); r < 1 {
		t.Errorf("radius = %.3f, want >= 1", r)
	}
}

func TestSampleBubbleUnderScale(t *testing.T) {
	layout := testLayout()
	const scale = 4.0
	img := renderSheet(layout, scale,
		map[int][]string{1: {"B"}},
		nil,
	)

	transform := Transform{scale, 0, 0, 0, scale, 0, 0, 0, 1}

	q := layout.Questions[0]
	for _, b := range q.Bubbles {
		fill := SampleBubble(img, transform, layout.Height, b)
		if b.Label == "B" {
			if fill < 0.8 {
				t.Errorf("bubble %s fill = %.3f, want >= 0.8", b.Label, fill)
			}
		} else if fill > 0.1 {
			t.Errorf("bubble %s fill = %.3f, want ~0", b.Label, fill)
		}
	}
}
