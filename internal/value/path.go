package value

import "math"

// Point is a position in document space.
type Point struct {
	X, Y float64
}

// Subpath is a connected run of points, optionally closed. Curved shapes
// are represented as dense polylines; generators choose the sampling.
type Subpath struct {
	Points []Point
	Closed bool
}

// PathStyle carries fill and stroke attributes. Nil pointers mean "not set".
type PathStyle struct {
	Fill        *Color
	Stroke      *Color
	StrokeWidth float64
}

// Path is a styled collection of subpaths, the currency of vector nodes.
type Path struct {
	Subpaths []Subpath
	Style    PathStyle
}

// Clone returns a deep copy of the path.
func (p *Path) Clone() *Path {
	out := &Path{
		Subpaths: make([]Subpath, len(p.Subpaths)),
		Style:    p.Style,
	}
	if p.Style.Fill != nil {
		f := *p.Style.Fill
		out.Style.Fill = &f
	}
	if p.Style.Stroke != nil {
		s := *p.Style.Stroke
		out.Style.Stroke = &s
	}
	for i, sp := range p.Subpaths {
		pts := make([]Point, len(sp.Points))
		copy(pts, sp.Points)
		out.Subpaths[i] = Subpath{Points: pts, Closed: sp.Closed}
	}
	return out
}

// ApplyTransform returns a copy of the path with every point transformed.
func (p *Path) ApplyTransform(t Transform) *Path {
	out := p.Clone()
	for i := range out.Subpaths {
		for j, pt := range out.Subpaths[i].Points {
			out.Subpaths[i].Points[j] = t.Apply(pt)
		}
	}
	return out
}

// Bounds returns the axis-aligned bounding box of all points. The second
// return is false for a path with no points.
func (p *Path) Bounds() (min, max Point, ok bool) {
	min = Point{math.Inf(1), math.Inf(1)}
	max = Point{math.Inf(-1), math.Inf(-1)}
	for _, sp := range p.Subpaths {
		for _, pt := range sp.Points {
			min.X = math.Min(min.X, pt.X)
			min.Y = math.Min(min.Y, pt.Y)
			max.X = math.Max(max.X, pt.X)
			max.Y = math.Max(max.Y, pt.Y)
			ok = true
		}
	}
	return min, max, ok
}

// Element is one member of a graphic group: either a path or a raster,
// positioned by its transform.
type Element struct {
	Path      *Path
	Raster    *Raster
	Transform Transform
}

// Group is an ordered stack of graphic elements; later elements render on
// top of earlier ones.
type Group struct {
	Elements []Element
}

// Clone returns a deep copy of the group.
func (g *Group) Clone() *Group {
	out := &Group{Elements: make([]Element, len(g.Elements))}
	for i, el := range g.Elements {
		cp := Element{Transform: el.Transform}
		if el.Path != nil {
			cp.Path = el.Path.Clone()
		}
		if el.Raster != nil {
			cp.Raster = el.Raster.Clone()
		}
		out.Elements[i] = cp
	}
	return out
}
