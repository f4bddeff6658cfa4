package vision

import (
	"image"
	"math"

	"github.com/ctroy978/edmpc/internal/sheet"
)

// ProjectPoint maps a layout-space point (bottom-left origin) through the
// transform into image pixel coordinates.
func ProjectPoint(t Transform, layoutHeight, x, y float64) Point {
	return t.Apply(flipY(x, y, layoutHeight))
}

// EstimatePixelRadius projects two points offset by the bubble's logical
// radius along each axis and averages their distances to the projected
// center. This captures anisotropic scaling from non-uniform transforms.
// Never returns less than one pixel.
func EstimatePixelRadius(t Transform, layoutHeight float64, b sheet.BubbleDef) float64 {
	center := ProjectPoint(t, layoutHeight, b.X, b.Y)
	px := ProjectPoint(t, layoutHeight, b.X+b.Radius, b.Y)
	py := ProjectPoint(t, layoutHeight, b.X, b.Y+b.Radius)

	avg := (math.Hypot(px.X-center.X, px.Y-center.Y) +
		math.Hypot(py.X-center.X, py.Y-center.Y)) / 2
	return math.Max(1, avg)
}

// MeasureFill returns a bubble's ink coverage in [0,1]: one minus the mean
// intensity over a disc mask of the given radius at the given center.
// Returns 0 when the disc falls entirely outside the image or masks no
// pixels.
func MeasureFill(gray *image.Gray, center Point, radius float64) float64 {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	cx := int(math.Round(center.X))
	cy := int(math.Round(center.Y))
	r := int(math.Round(radius))
	if r < 1 {
		r = 1
	}

	if cx+r < 0 || cx-r > w || cy+r < 0 || cy-r > h {
		return 0
	}

	r2 := r * r
	var sum, count int
	for y := cy - r; y <= cy+r; y++ {
		if y < 0 || y >= h {
			continue
		}
		for x := cx - r; x <= cx+r; x++ {
			if x < 0 || x >= w {
				continue
			}
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy > r2 {
				continue
			}
			sum += int(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return 1 - float64(sum)/float64(count)/255
}

// SampleBubble measures a single bubble's fill score under the transform.
func SampleBubble(gray *image.Gray, t Transform, layoutHeight float64, b sheet.BubbleDef) float64 {
	center := ProjectPoint(t, layoutHeight, b.X, b.Y)
	radius := EstimatePixelRadius(t, layoutHeight, b)
	return MeasureFill(gray, center, radius)
}
