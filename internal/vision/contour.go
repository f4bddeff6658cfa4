package vision

import (
	"math"
	"sort"
)

// blob is a connected component of set pixels in a binary mask.
type blob struct {
	area     int
	sumX     int
	sumY     int
	minX     int
	minY     int
	maxX     int
	maxY     int
	boundary []Point
}

func (b *blob) centroid() Point {
	if b.area == 0 {
		return Point{}
	}
	return Point{X: float64(b.sumX) / float64(b.area), Y: float64(b.sumY) / float64(b.area)}
}

func (b *blob) aspectRatio() float64 {
	w := float64(b.maxX - b.minX + 1)
	h := float64(b.maxY - b.minY + 1)
	if w < h {
		w, h = h, w
	}
	if h == 0 {
		return math.Inf(1)
	}
	return w / h
}

// findBlobs labels connected components (8-connectivity) of the mask and
// returns those with at least minArea pixels. Boundary pixels (those with an
// unset 4-neighbor or on the image edge) are collected for hull fitting.
func findBlobs(mask *bitmap, minArea int) []*blob {
	visited := make([]bool, mask.w*mask.h)
	var blobs []*blob
	var stack []int

	for start := 0; start < len(mask.bits); start++ {
		if !mask.bits[start] || visited[start] {
			continue
		}
		b := &blob{minX: mask.w, minY: mask.h, maxX: -1, maxY: -1}
		stack = append(stack[:0], start)
		visited[start] = true

		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%mask.w, idx/mask.w

			b.area++
			b.sumX += x
			b.sumY += y
			if x < b.minX {
				b.minX = x
			}
			if x > b.maxX {
				b.maxX = x
			}
			if y < b.minY {
				b.minY = y
			}
			if y > b.maxY {
				b.maxY = y
			}

			onBoundary := x == 0 || y == 0 || x == mask.w-1 || y == mask.h-1
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= mask.w || ny >= mask.h {
						continue
					}
					nidx := ny*mask.w + nx
					if !mask.bits[nidx] {
						if dx == 0 || dy == 0 {
							onBoundary = true
						}
						continue
					}
					if !visited[nidx] {
						visited[nidx] = true
						stack = append(stack, nidx)
					}
				}
			}
			if onBoundary {
				b.boundary = append(b.boundary, Point{X: float64(x), Y: float64(y)})
			}
		}

		if b.area >= minArea {
			blobs = append(blobs, b)
		}
	}

	sort.Slice(blobs, func(i, j int) bool { return blobs[i].area > blobs[j].area })
	return blobs
}

// convexHull computes the convex hull of a point set (Andrew monotone chain),
// returned in counterclockwise order in image coordinates.
func convexHull(pts []Point) []Point {
	if len(pts) < 3 {
		return append([]Point(nil), pts...)
	}
	sorted := append([]Point(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b Point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var hull []Point
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

func perimeter(poly []Point) float64 {
	var total float64
	for i := range poly {
		j := (i + 1) % len(poly)
		total += math.Hypot(poly[j].X-poly[i].X, poly[j].Y-poly[i].Y)
	}
	return total
}

// approxPolygon simplifies a closed convex polygon with Douglas-Peucker,
// using epsilon = epsFrac x perimeter. The polygon is split at its two most
// distant vertices and each open chain is simplified independently.
func approxPolygon(poly []Point, epsFrac float64) []Point {
	if len(poly) <= 4 {
		return append([]Point(nil), poly...)
	}
	eps := epsFrac * perimeter(poly)

	// Find the two vertices farthest apart.
	ai, bi := 0, 0
	var maxDist float64
	for i := 0; i < len(poly); i++ {
		for j := i + 1; j < len(poly); j++ {
			d := math.Hypot(poly[j].X-poly[i].X, poly[j].Y-poly[i].Y)
			if d > maxDist {
				maxDist = d
				ai, bi = i, j
			}
		}
	}

	chainA := sliceLoop(poly, ai, bi)
	chainB := sliceLoop(poly, bi, ai)

	simplified := douglasPeucker(chainA, eps)
	second := douglasPeucker(chainB, eps)
	// Skip the shared endpoints when joining the chains.
	if len(second) > 2 {
		simplified = append(simplified, second[1:len(second)-1]...)
	}
	return simplified
}

// sliceLoop returns poly[from..to] inclusive, wrapping around the end.
func sliceLoop(poly []Point, from, to int) []Point {
	var out []Point
	i := from
	for {
		out = append(out, poly[i])
		if i == to {
			return out
		}
		i = (i + 1) % len(poly)
	}
}

func douglasPeucker(chain []Point, eps float64) []Point {
	if len(chain) < 3 {
		return append([]Point(nil), chain...)
	}
	first, last := chain[0], chain[len(chain)-1]
	var maxDist float64
	index := 0
	for i := 1; i < len(chain)-1; i++ {
		d := pointLineDistance(chain[i], first, last)
		if d > maxDist {
			maxDist = d
			index = i
		}
	}
	if maxDist <= eps {
		return []Point{first, last}
	}
	left := douglasPeucker(chain[:index+1], eps)
	right := douglasPeucker(chain[index:], eps)
	return append(left[:len(left)-1], right...)
}

func pointLineDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / length
}
