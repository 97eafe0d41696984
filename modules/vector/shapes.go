package vector

import (
	"math"

	"github.com/vk/rastergraph/internal/value"
)

// ellipseSegments is the polyline sampling density for curved shapes.
const ellipseSegments = 64

// rectanglePath builds a closed rectangle with one corner at the origin.
func rectanglePath(width, height float64) *value.Path {
	return &value.Path{Subpaths: []value.Subpath{{
		Points: []value.Point{
			{X: 0, Y: 0},
			{X: width, Y: 0},
			{X: width, Y: height},
			{X: 0, Y: height},
		},
		Closed: true,
	}}}
}

// ellipsePath samples a closed polyline around the ellipse centered at
// (rx, ry), so the shape's bounding box starts at the origin.
func ellipsePath(rx, ry float64) *value.Path {
	pts := make([]value.Point, ellipseSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / ellipseSegments
		pts[i] = value.Point{X: rx + rx*math.Cos(a), Y: ry + ry*math.Sin(a)}
	}
	return &value.Path{Subpaths: []value.Subpath{{Points: pts, Closed: true}}}
}

// linePath builds a single open segment.
func linePath(x1, y1, x2, y2 float64) *value.Path {
	return &value.Path{Subpaths: []value.Subpath{{
		Points: []value.Point{{X: x1, Y: y1}, {X: x2, Y: y2}},
	}}}
}
