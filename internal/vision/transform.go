package vision

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Point is a 2D point in either layout or image-pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// Transform is a 3x3 projective matrix mapping layout coordinates (already
// flipped to a top-left origin) to image pixel coordinates. Row-major.
type Transform [9]float64

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Scale returns a pure axis-aligned scale transform.
func Scale(sx, sy float64) Transform {
	return Transform{sx, 0, 0, 0, sy, 0, 0, 0, 1}
}

// Apply maps a point through the projective transform.
func (t Transform) Apply(p Point) Point {
	w := t[6]*p.X + t[7]*p.Y + t[8]
	if w == 0 {
		w = 1e-12
	}
	return Point{
		X: (t[0]*p.X + t[1]*p.Y + t[2]) / w,
		Y: (t[3]*p.X + t[4]*p.Y + t[5]) / w,
	}
}

var errDegenerate = errors.New("degenerate point correspondence")

// SolvePerspective computes the projective transform mapping the four src
// points onto the four dst points. Both slices must hold exactly 4 points in
// matching order. Returns an error when the correspondence is degenerate
// (three collinear points collapse the system).
func SolvePerspective(src, dst []Point) (Transform, error) {
	if len(src) != 4 || len(dst) != 4 {
		return Identity(), errors.New("perspective solve requires exactly 4 point pairs")
	}

	// Standard 8-unknown homography system A·h = b with h33 fixed to 1.
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		sx, sy := src[i].X, src[i].Y
		dx, dy := dst[i].X, dst[i].Y
		a.SetRow(2*i, []float64{sx, sy, 1, 0, 0, 0, -sx * dx, -sy * dx})
		a.SetRow(2*i+1, []float64{0, 0, 0, sx, sy, 1, -sx * dy, -sy * dy})
		b.SetVec(2*i, dx)
		b.SetVec(2*i+1, dy)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return Identity(), errDegenerate
	}

	var t Transform
	for i := 0; i < 8; i++ {
		v := h.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Identity(), errDegenerate
		}
		t[i] = v
	}
	t[8] = 1
	return t, nil
}

// OrderClockwise arranges 4 points into canonical clockwise order: top-left,
// top-right, bottom-right, bottom-left. Top-left has the smallest x+y sum,
// bottom-right the largest; top-right has the smallest y-x difference,
// bottom-left the largest.
func OrderClockwise(pts []Point) []Point {
	ordered := make([]Point, 4)
	minSum, maxSum := math.Inf(1), math.Inf(-1)
	minDiff, maxDiff := math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		sum := p.X + p.Y
		diff := p.Y - p.X
		if sum < minSum {
			minSum = sum
			ordered[0] = p
		}
		if sum > maxSum {
			maxSum = sum
			ordered[2] = p
		}
		if diff < minDiff {
			minDiff = diff
			ordered[1] = p
		}
		if diff > maxDiff {
			maxDiff = diff
			ordered[3] = p
		}
	}
	return ordered
}
