package vector

import (
	"math"
	"sort"

	"github.com/vk/rastergraph/internal/value"
)

// rasterize renders a styled path onto a fresh canvas sized to its
// geometry plus any stroke overhang, clipped at the origin. A path with
// no points yields a 1x1 transparent canvas.
func rasterize(p *value.Path) (*value.Raster, error) {
	_, max, ok := p.Bounds()
	if !ok {
		return value.NewRaster(1, 1)
	}
	pad := 0.0
	if p.Style.Stroke != nil {
		pad = p.Style.StrokeWidth / 2
	}
	w := int(math.Ceil(max.X + pad))
	h := int(math.Ceil(max.Y + pad))
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
	drawPath(img, p)
	return img, nil
}

// drawPath paints one styled path onto the canvas, fill first and stroke
// on top.
func drawPath(img *value.Raster, p *value.Path) {
	if p.Style.Fill != nil {
		fillPath(img, p, *p.Style.Fill)
	}
	if p.Style.Stroke != nil && p.Style.StrokeWidth > 0 {
		strokePath(img, p, *p.Style.Stroke, p.Style.StrokeWidth/2)
	}
}

// fillPath scan-converts the path with the even-odd rule, sampling at
// pixel centers. Open subpaths are treated as closed for filling.
func fillPath(img *value.Raster, p *value.Path, c value.Color) {
	for y := 0; y < img.Height; y++ {
		cy := float64(y) + 0.5
		var xs []float64
		for _, sp := range p.Subpaths {
			n := len(sp.Points)
			if n < 3 {
				continue
			}
			for i := 0; i < n; i++ {
				a := sp.Points[i]
				b := sp.Points[(i+1)%n]
				if (a.Y <= cy) == (b.Y <= cy) {
					continue
				}
				xs = append(xs, a.X+(cy-a.Y)*(b.X-a.X)/(b.Y-a.Y))
			}
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			x0 := int(math.Ceil(xs[i] - 0.5))
			x1 := int(math.Ceil(xs[i+1] - 0.5))
			if x0 < 0 {
				x0 = 0
			}
			if x1 > img.Width {
				x1 = img.Width
			}
			for x := x0; x < x1; x++ {
				img.Set(x, y, over(img.At(x, y), c))
			}
		}
	}
}

// strokePath paints every pixel whose center lies within radius of a
// path segment. Coverage is collected first so overlapping segments
// composite once.
func strokePath(img *value.Raster, p *value.Path, c value.Color, radius float64) {
	covered := make([]bool, img.Width*img.Height)
	for _, sp := range p.Subpaths {
		n := len(sp.Points)
		if n < 2 {
			continue
		}
		last := n - 1
		if sp.Closed {
			last = n
		}
		for i := 0; i < last; i++ {
			markSegment(covered, img.Width, img.Height, sp.Points[i], sp.Points[(i+1)%n], radius)
		}
	}
	for i, hit := range covered {
		if hit {
			img.Pix[i] = over(img.Pix[i], c)
		}
	}
}

func markSegment(covered []bool, w, h int, a, b value.Point, radius float64) {
	x0 := int(math.Floor(math.Min(a.X, b.X) - radius))
	x1 := int(math.Ceil(math.Max(a.X, b.X) + radius))
	y0 := int(math.Floor(math.Min(a.Y, b.Y) - radius))
	y1 := int(math.Ceil(math.Max(a.Y, b.Y) + radius))
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > w-1 {
		x1 = w - 1
	}
	if y1 > h-1 {
		y1 = h - 1
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			p := value.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}
			if segmentDistance(p, a, b) <= radius {
				covered[y*w+x] = true
			}
		}
	}
}

// segmentDistance returns the distance from p to the segment ab.
func segmentDistance(p, a, b value.Point) float64 {
	abx, aby := b.X-a.X, b.Y-a.Y
	apx, apy := p.X-a.X, p.Y-a.Y
	l2 := abx*abx + aby*aby
	t := 0.0
	if l2 > 0 {
		t = math.Max(0, math.Min(1, (apx*abx+apy*aby)/l2))
	}
	return math.Hypot(apx-t*abx, apy-t*aby)
}

// over composites src onto dst source-over in straight linear alpha.
func over(dst, src value.Color) value.Color {
	outA := src.A + dst.A*(1-src.A)
	if outA <= 0 {
		return value.Color{}
	}
	mix := func(s, d float64) float64 {
		return (s*src.A + d*dst.A*(1-src.A)) / outA
	}
	return value.Color{R: mix(src.R, dst.R), G: mix(src.G, dst.G), B: mix(src.B, dst.B), A: outA}
}
