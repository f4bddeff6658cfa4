package vision

import (
	"image"

	"github.com/ctroy978/edmpc/internal/sheet"
)

const (
	// markerMinArea is the minimum pixel area for a full-image marker blob.
	markerMinArea = 200
	// guidedMinArea is the relaxed minimum inside a guided search window.
	guidedMinArea = 50
	// borderMinArea is the minimum pixel area for the page outline contour.
	borderMinArea = 1000
	// markerMaxAspect rejects elongated blobs that cannot be square fiducials.
	markerMaxAspect = 1.3
	// markerApproxEps and borderApproxEps follow the OpenCV convention of
	// epsilon as a fraction of the contour perimeter.
	markerApproxEps = 0.04
	borderApproxEps = 0.02
	// sobelMagThreshold is the gradient magnitude cutoff for page edges.
	sobelMagThreshold = 100
)

// detectMarkers finds up to maxMarkers square fiducial candidates in the
// full image: dark blobs whose hull approximates to 4 sides with a near-square
// bounding box, ranked by area. Returns their centroids.
func detectMarkers(gray *image.Gray, maxMarkers int) []Point {
	mask := binarizeInverted(gray)
	blobs := findBlobs(mask, markerMinArea)

	var centers []Point
	for _, b := range blobs {
		if len(centers) == maxMarkers {
			break
		}
		hull := convexHull(b.boundary)
		if len(hull) < 3 {
			continue
		}
		approx := approxPolygon(hull, markerApproxEps)
		if len(approx) != 4 {
			continue
		}
		if b.aspectRatio() > markerMaxAspect {
			continue
		}
		centers = append(centers, b.centroid())
	}
	return centers
}

// detectMarkersGuided re-runs detection independently inside a square window
// around each marker's approximate position, computed from plain
// image/layout scale ratios. The single largest qualifying blob per window
// wins; shape constraints are relaxed since the window already localizes the
// search.
func detectMarkersGuided(gray *image.Gray, layout *sheet.LayoutGuide, windowRadius int) []Point {
	b := gray.Bounds()
	imageW, imageH := b.Dx(), b.Dy()
	scaleX := float64(imageW) / layout.Width
	scaleY := float64(imageH) / layout.Height

	type candidate struct {
		area   int
		center Point
	}
	var found []candidate

	markers := layout.AlignmentMarkers
	if len(markers) > 4 {
		markers = markers[:4]
	}
	for _, m := range markers {
		cx, cy := m.Center()
		approxX := cx * scaleX
		approxY := (layout.Height - cy) * scaleY

		x1 := clamp(int(approxX)-windowRadius, 0, imageW)
		y1 := clamp(int(approxY)-windowRadius, 0, imageH)
		x2 := clamp(int(approxX)+windowRadius, 0, imageW)
		y2 := clamp(int(approxY)+windowRadius, 0, imageH)
		if x2 <= x1 || y2 <= y1 {
			continue
		}

		window := gray.SubImage(image.Rect(b.Min.X+x1, b.Min.Y+y1, b.Min.X+x2, b.Min.Y+y2)).(*image.Gray)
		mask := binarizeInverted(window)
		blobs := findBlobs(mask, guidedMinArea)
		if len(blobs) == 0 {
			continue
		}
		best := blobs[0] // findBlobs sorts by area descending
		c := best.centroid()
		found = append(found, candidate{
			area:   best.area,
			center: Point{X: c.X + float64(x1), Y: c.Y + float64(y1)},
		})
	}

	centers := make([]Point, 0, len(found))
	for _, c := range found {
		centers = append(centers, c.center)
	}
	return centers
}

// detectPageCorners finds the largest 4-sided contour in the edge map,
// taken to be the physical page outline. Returns nil when no such contour
// exists.
func detectPageCorners(gray *image.Gray) []Point {
	mask := sobelEdges(gray, sobelMagThreshold)
	blobs := findBlobs(mask, borderMinArea)
	for _, b := range blobs {
		hull := convexHull(b.boundary)
		if len(hull) < 3 {
			continue
		}
		approx := approxPolygon(hull, borderApproxEps)
		if len(approx) == 4 {
			return approx
		}
	}
	return nil
}
