package vector

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vk/rastergraph/internal/value"
)

// renderSVG serializes a group into a standalone SVG document. The
// viewBox spans the content extent from the origin; element transforms
// come out as matrix attributes rather than baked-in coordinates.
func renderSVG(g *value.Group) (string, error) {
	w, h := svgExtent(g)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s">`, fnum(w), fnum(h))
	for _, el := range g.Elements {
		if err := writeElement(&sb, el); err != nil {
			return "", err
		}
	}
	sb.WriteString("</svg>")
	return sb.String(), nil
}

// svgExtent is the maximum transformed extent of the group's content,
// at least 1x1 so an empty document still has a valid viewBox.
func svgExtent(g *value.Group) (float64, float64) {
	w, h := 1.0, 1.0
	grow := func(p value.Point) {
		w = math.Max(w, p.X)
		h = math.Max(h, p.Y)
	}
	for _, el := range g.Elements {
		if el.Path != nil {
			for _, sp := range el.Path.Subpaths {
				for _, pt := range sp.Points {
					grow(el.Transform.Apply(pt))
				}
			}
		}
		if el.Raster != nil {
			rw, rh := float64(el.Raster.Width), float64(el.Raster.Height)
			for _, pt := range []value.Point{{X: 0, Y: 0}, {X: rw, Y: 0}, {X: rw, Y: rh}, {X: 0, Y: rh}} {
				grow(el.Transform.Apply(pt))
			}
		}
	}
	return math.Ceil(w), math.Ceil(h)
}

func writeElement(sb *strings.Builder, el value.Element) error {
	switch {
	case el.Path != nil:
		sb.WriteString(`<path d="`)
		writePathData(sb, el.Path)
		sb.WriteString(`"`)
		writeTransformAttr(sb, el.Transform)
		writeStyleAttrs(sb, el.Path.Style)
		sb.WriteString("/>")
	case el.Raster != nil:
		var buf bytes.Buffer
		if err := value.EncodePNG(el.Raster, &buf); err != nil {
			return err
		}
		fmt.Fprintf(sb, `<image width="%d" height="%d"`, el.Raster.Width, el.Raster.Height)
		writeTransformAttr(sb, el.Transform)
		fmt.Fprintf(sb, ` href="data:image/png;base64,%s"/>`, base64.StdEncoding.EncodeToString(buf.Bytes()))
	}
	return nil
}

func writePathData(sb *strings.Builder, p *value.Path) {
	for i, sp := range p.Subpaths {
		if len(sp.Points) == 0 {
			continue
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		for j, pt := range sp.Points {
			if j == 0 {
				sb.WriteString("M ")
			} else {
				sb.WriteString(" L ")
			}
			sb.WriteString(fnum(pt.X))
			sb.WriteByte(',')
			sb.WriteString(fnum(pt.Y))
		}
		if sp.Closed {
			sb.WriteString(" Z")
		}
	}
}

func writeTransformAttr(sb *strings.Builder, t value.Transform) {
	if t.IsIdentity() {
		return
	}
	fmt.Fprintf(sb, ` transform="matrix(%s %s %s %s %s %s)"`,
		fnum(t.A), fnum(t.B), fnum(t.C), fnum(t.D), fnum(t.E), fnum(t.F))
}

// writeStyleAttrs emits fill and stroke presentation attributes. An
// unset fill must come out as "none", since SVG fills black by default.
func writeStyleAttrs(sb *strings.Builder, s value.PathStyle) {
	if s.Fill != nil {
		hex, opacity := svgColor(*s.Fill)
		fmt.Fprintf(sb, ` fill="%s"`, hex)
		if opacity < 1 {
			fmt.Fprintf(sb, ` fill-opacity="%s"`, fnum(opacity))
		}
	} else {
		sb.WriteString(` fill="none"`)
	}
	if s.Stroke != nil {
		hex, opacity := svgColor(*s.Stroke)
		fmt.Fprintf(sb, ` stroke="%s" stroke-width="%s"`, hex, fnum(s.StrokeWidth))
		if opacity < 1 {
			fmt.Fprintf(sb, ` stroke-opacity="%s"`, fnum(opacity))
		}
	}
}

// svgColor formats a linear color as a gamma sRGB hex triplet plus its
// alpha as a separate opacity value.
func svgColor(c value.Color) (string, float64) {
	g := c.Clamp().ToGammaSRGB()
	to8 := func(ch float64) int {
		return int(math.Round(ch * 255))
	}
	return fmt.Sprintf("#%02x%02x%02x", to8(g.R), to8(g.G), to8(g.B)), g.A
}

func fnum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
