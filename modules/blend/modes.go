package blend

import (
	"math"
	"sort"

	"github.com/vk/rastergraph/internal/value"
)

// blendFunc mixes a backdrop and a source color at full strength. The
// result feeds the source-over composite, which weighs it by coverage.
type blendFunc func(b, f value.Color) value.Color

// modes is the blend table. Separable modes mix channel pairs in gamma
// space; the component modes at the bottom recombine whole colors
// through HSL.
var modes = map[string]blendFunc{
	"normal":      separable(func(b, f float64) float64 { return f }),
	"darken":      separable(math.Min),
	"multiply":    separable(func(b, f float64) float64 { return b * f }),
	"color_burn":  separable(blendColorBurn),
	"lighten":     separable(math.Max),
	"screen":      separable(func(b, f float64) float64 { return b + f - b*f }),
	"color_dodge": separable(blendColorDodge),
	"add":         separable(func(b, f float64) float64 { return math.Min(b+f, 1) }),
	"overlay":     separable(func(b, f float64) float64 { return blendHardLight(f, b) }),
	"soft_light":  separable(blendSoftLight),
	"hard_light":  separable(blendHardLight),
	"difference":  separable(func(b, f float64) float64 { return math.Abs(b - f) }),
	"exclusion":   separable(func(b, f float64) float64 { return b + f - 2*b*f }),
	"subtract":    separable(func(b, f float64) float64 { return math.Max(b-f, 0) }),
	"divide":      separable(blendDivide),
	"hue":         componentBlend(func(bh, bs, bl, fh, fs, fl float64) (float64, float64, float64) { return fh, bs, bl }),
	"saturation":  componentBlend(func(bh, bs, bl, fh, fs, fl float64) (float64, float64, float64) { return bh, fs, bl }),
	"color":       componentBlend(func(bh, bs, bl, fh, fs, fl float64) (float64, float64, float64) { return fh, fs, bl }),
	"luminosity":  componentBlend(func(bh, bs, bl, fh, fs, fl float64) (float64, float64, float64) { return bh, bs, fl }),
}

// ModeNames lists the supported blend modes in sorted order.
func ModeNames() []string {
	names := make([]string, 0, len(modes))
	for name := range modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func separable(fn func(b, f float64) float64) blendFunc {
	return func(b, f value.Color) value.Color {
		gb := b.ToGammaSRGB()
		gf := f.ToGammaSRGB()
		mixed := value.Color{R: fn(gb.R, gf.R), G: fn(gb.G, gf.G), B: fn(gb.B, gf.B), A: gf.A}
		return mixed.ToLinearSRGB()
	}
}

func componentBlend(pick func(bh, bs, bl, fh, fs, fl float64) (h, s, l float64)) blendFunc {
	return func(b, f value.Color) value.Color {
		bh, bs, bl, _ := b.ToHSLA()
		fh, fs, fl, fa := f.ToHSLA()
		h, s, l := pick(bh, bs, bl, fh, fs, fl)
		out := value.FromHSLA(h, s, l, fa)
		return out
	}
}

func blendColorBurn(b, f float64) float64 {
	if f == 0 {
		return 0
	}
	return 1 - math.Min(1, (1-b)/f)
}

func blendColorDodge(b, f float64) float64 {
	if f == 1 {
		return 1
	}
	return math.Min(1, b/(1-f))
}

func blendHardLight(b, f float64) float64 {
	if f <= 0.5 {
		return 2 * b * f
	}
	return 1 - 2*(1-b)*(1-f)
}

func blendSoftLight(b, f float64) float64 {
	if f <= 0.5 {
		return b - (1-2*f)*b*(1-b)
	}
	var d float64
	if b <= 0.25 {
		d = ((16*b-12)*b + 4) * b
	} else {
		d = math.Sqrt(b)
	}
	return b + (2*f-1)*(d-b)
}

func blendDivide(b, f float64) float64 {
	if f == 0 {
		if b == 0 {
			return 0
		}
		return 1
	}
	return math.Min(b/f, 1)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// blendPixel mixes the foreground onto the backdrop and composites the
// result source-over, with the foreground's coverage scaled by opacity.
func blendPixel(fn blendFunc, f, b value.Color, opacity float64) value.Color {
	mixed := fn(b, f)

	srcA := clampUnit(f.A * opacity)
	bgA := clampUnit(b.A)
	outA := srcA + bgA*(1-srcA)
	if outA <= 0 {
		return value.Color{}
	}

	channel := func(cf, cm, cb float64) float64 {
		return (srcA*(1-bgA)*cf + srcA*bgA*cm + (1-srcA)*bgA*cb) / outA
	}
	return value.Color{
		R: channel(f.R, mixed.R, b.R),
		G: channel(f.G, mixed.G, b.G),
		B: channel(f.B, mixed.B, b.B),
		A: outA,
	}
}
