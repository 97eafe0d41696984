package vector

import (
	"math"

	"github.com/vk/rastergraph/internal/value"
)

// flattenGroup renders a group onto a fresh canvas sized to its combined
// placed geometry, clipped at the origin. Elements composite in stack
// order. A group with nothing to draw yields a 1x1 transparent canvas.
func flattenGroup(g *value.Group) (*value.Raster, error) {
	var maxX, maxY float64
	found := false
	for _, el := range g.Elements {
		switch {
		case el.Path != nil:
			placed := placePath(el.Path, el.Transform)
			_, max, ok := placed.Bounds()
			if !ok {
				continue
			}
			pad := 0.0
			if placed.Style.Stroke != nil {
				pad = placed.Style.StrokeWidth / 2
			}
			maxX = math.Max(maxX, max.X+pad)
			maxY = math.Max(maxY, max.Y+pad)
			found = true
		case el.Raster != nil:
			w := float64(el.Raster.Width)
			h := float64(el.Raster.Height)
			for _, corner := range []value.Point{{}, {X: w}, {Y: h}, {X: w, Y: h}} {
				p := el.Transform.Apply(corner)
				maxX = math.Max(maxX, p.X)
				maxY = math.Max(maxY, p.Y)
			}
			found = true
		}
	}
	if !found {
		return value.NewRaster(1, 1)
	}
	w := int(math.Ceil(maxX))
	h := int(math.Ceil(maxY))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	img, err := value.NewRaster(w, h)
	if err != nil {
		return nil, err
	}
	for _, el := range g.Elements {
		switch {
		case el.Path != nil:
			drawPath(img, placePath(el.Path, el.Transform))
		case el.Raster != nil:
			drawRaster(img, el.Raster, el.Transform)
		}
	}
	return img, nil
}

// placePath applies the placement transform to the path geometry and
// scales the stroke width by the transform's uniform scale factor, so a
// scaled-up stroke thickens the way it does under an SVG matrix.
func placePath(p *value.Path, t value.Transform) *value.Path {
	placed := p.ApplyTransform(t)
	if placed.Style.Stroke != nil {
		det := t.A*t.D - t.B*t.C
		placed.Style.StrokeWidth *= math.Sqrt(math.Abs(det))
	}
	return placed
}

// drawRaster composites src onto the canvas under its placement transform,
// sampling the nearest source pixel through the inverse map. A degenerate
// transform paints nothing.
func drawRaster(img *value.Raster, src *value.Raster, t value.Transform) {
	inv, ok := t.Invert()
	if !ok {
		return
	}
	// Scan only the destination footprint of the source rectangle.
	x0, y0 := math.Inf(1), math.Inf(1)
	x1, y1 := math.Inf(-1), math.Inf(-1)
	w := float64(src.Width)
	h := float64(src.Height)
	for _, corner := range []value.Point{{}, {X: w}, {Y: h}, {X: w, Y: h}} {
		p := t.Apply(corner)
		x0 = math.Min(x0, p.X)
		y0 = math.Min(y0, p.Y)
		x1 = math.Max(x1, p.X)
		y1 = math.Max(y1, p.Y)
	}
	minX := int(math.Floor(x0))
	minY := int(math.Floor(y0))
	maxX := int(math.Ceil(x1))
	maxY := int(math.Ceil(y1))
	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX > img.Width {
		maxX = img.Width
	}
	if maxY > img.Height {
		maxY = img.Height
	}
	for y := minY; y < maxY; y++ {
		for x := minX; x < maxX; x++ {
			p := inv.Apply(value.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			c := src.At(int(math.Floor(p.X)), int(math.Floor(p.Y)))
			if c.A > 0 {
				img.Set(x, y, over(img.At(x, y), c))
			}
		}
	}
}
