package vision

import (
	"image"
	"math"

	"github.com/ctroy978/edmpc/internal/sheet"
)

// guidedWindowFrac sizes the guided search window relative to the larger
// image dimension.
const guidedWindowFrac = 0.12

// minSpanFrac is the minimum fraction of the image that detected markers
// must cover in both axes before a marker-based transform is trusted.
const minSpanFrac = 0.25

// flipY converts a layout point from bottom-left origin (PDF) to top-left
// origin (image).
func flipY(x, y, layoutHeight float64) Point {
	return Point{X: x, Y: layoutHeight - y}
}

// EstimateAlignment derives the layout-to-image transform for one scanned
// page. It never fails: each tier falls through to the next when infeasible,
// and the final proportional mapping always succeeds. The returned warnings
// describe any degradation.
//
// Tiers: direct marker detection, guided marker search, page-border (with
// inner content frame when the layout declares a margin), proportional scale.
func EstimateAlignment(gray *image.Gray, layout *sheet.LayoutGuide) (Transform, []string) {
	var warnings []string
	bounds := gray.Bounds()
	imageW := float64(bounds.Dx())
	imageH := float64(bounds.Dy())

	layoutMarkers := layout.AlignmentMarkers
	if len(layoutMarkers) > 4 {
		layoutMarkers = layoutMarkers[:4]
	}

	var detected []Point
	if len(layoutMarkers) > 0 {
		detected = detectMarkers(gray, 4)
	}

	guidedUsed := false
	if len(layoutMarkers) == 4 && len(detected) < 4 {
		window := int(math.Max(imageW, imageH) * guidedWindowFrac)
		guided := detectMarkersGuided(gray, layout, window)
		if len(guided) == 4 {
			detected = guided
			guidedUsed = true
		}
	}

	if len(layoutMarkers) == 4 && len(detected) == 4 {
		layoutPoints := make([]Point, 0, 4)
		for _, m := range layoutMarkers {
			cx, cy := m.Center()
			layoutPoints = append(layoutPoints, flipY(cx, cy, layout.Height))
		}
		src := OrderClockwise(layoutPoints)
		dst := OrderClockwise(detected)

		spanW := pointSpan(dst, func(p Point) float64 { return p.X })
		spanH := pointSpan(dst, func(p Point) float64 { return p.Y })

		if spanW >= imageW*minSpanFrac && spanH >= imageH*minSpanFrac {
			if t, err := SolvePerspective(src, dst); err == nil {
				if guidedUsed {
					warnings = append(warnings, "Alignment markers recovered via guided search.")
				}
				return t, warnings
			}
			warnings = append(warnings, "Marker correspondence was degenerate; trying page border.")
		} else {
			warnings = append(warnings, "Detected markers cover too small an area; using proportional mapping.")
		}
	}

	if corners := detectPageCorners(gray); corners != nil {
		dst := OrderClockwise(corners)

		layoutCorners := pageCorners(layout, 0)
		useInnerFrame := false
		borderOffset := layout.Margin / 2
		if borderOffset > 0 {
			useInnerFrame = insetsMatchFrame(dst, imageW, imageH, layout, borderOffset)
		}

		if useInnerFrame {
			layoutCorners = pageCorners(layout, borderOffset)
			warnings = append(warnings, "Detected inner border frame for alignment.")
		} else {
			warnings = append(warnings, "Using page border for alignment.")
		}

		if t, err := SolvePerspective(layoutCorners, dst); err == nil {
			return t, warnings
		}
		warnings = append(warnings, "Page border correspondence was degenerate; using proportional mapping.")
		return Scale(imageW/layout.Width, imageH/layout.Height), warnings
	}

	if len(layoutMarkers) < 4 {
		warnings = append(warnings, "Insufficient layout markers; using proportional mapping.")
	} else if len(detected) < 4 {
		warnings = append(warnings, "Failed to detect alignment markers; using proportional mapping.")
	}
	return Scale(imageW/layout.Width, imageH/layout.Height), warnings
}

// insetsMatchFrame reports whether the detected border's distance from the
// image edges is consistent with an inner content frame offset by
// borderOffset on all sides of the layout. Tolerance scales with the
// expected inset ratio, floored at 2% of the image.
func insetsMatchFrame(corners []Point, imageW, imageH float64, layout *sheet.LayoutGuide, borderOffset float64) bool {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range corners {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	sumInsetX := math.Max(0, minX) + math.Max(0, imageW-maxX)
	sumInsetY := math.Max(0, minY) + math.Max(0, imageH-maxY)
	sumRatioX := sumInsetX / math.Max(1, imageW)
	sumRatioY := sumInsetY / math.Max(1, imageH)

	expectedRatioX := (2 * borderOffset) / layout.Width
	expectedRatioY := (2 * borderOffset) / layout.Height
	tolX := math.Max(0.02, expectedRatioX*0.6)
	tolY := math.Max(0.02, expectedRatioY*0.6)

	return math.Abs(sumRatioX-expectedRatioX) <= tolX &&
		math.Abs(sumRatioY-expectedRatioY) <= tolY
}

// pageCorners returns the layout page rectangle inset by offset on all
// sides, flipped to top-left origin and in canonical clockwise order.
func pageCorners(layout *sheet.LayoutGuide, offset float64) []Point {
	return OrderClockwise([]Point{
		flipY(offset, layout.Height-offset, layout.Height),
		flipY(layout.Width-offset, layout.Height-offset, layout.Height),
		flipY(layout.Width-offset, offset, layout.Height),
		flipY(offset, offset, layout.Height),
	})
}

func pointSpan(pts []Point, axis func(Point) float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		v := axis(p)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return hi - lo
}
