package value

import "math"

// Color is an RGBA color with linear-light channels in the range [0, 1].
// Adjustment formulas that are defined in gamma space convert explicitly
// via ToGammaSRGB/ToLinearSRGB.
type Color struct {
	R, G, B, A float64
}

// Named colors used by threshold-style operations.
var (
	White = Color{1, 1, 1, 1}
	Black = Color{0, 0, 0, 1}
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SRGBToLinear converts a single gamma-encoded sRGB channel to linear light.
func SRGBToLinear(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// LinearToSRGB converts a single linear-light channel to gamma-encoded sRGB.
func LinearToSRGB(c float64) float64 {
	if c <= 0.0031308 {
		return c * 12.92
	}
	return 1.055*math.Pow(c, 1/2.4) - 0.055
}

// ToGammaSRGB returns the color with RGB channels gamma-encoded. Alpha is
// left untouched.
func (c Color) ToGammaSRGB() Color {
	return Color{LinearToSRGB(c.R), LinearToSRGB(c.G), LinearToSRGB(c.B), c.A}
}

// ToLinearSRGB returns the color with RGB channels decoded back to linear.
func (c Color) ToLinearSRGB() Color {
	return Color{SRGBToLinear(c.R), SRGBToLinear(c.G), SRGBToLinear(c.B), c.A}
}

// MapRGB applies f to each of the RGB channels, preserving alpha.
func (c Color) MapRGB(f func(float64) float64) Color {
	return Color{f(c.R), f(c.G), f(c.B), c.A}
}

// Clamp limits all four channels to [0, 1].
func (c Color) Clamp() Color {
	return Color{clamp01(c.R), clamp01(c.G), clamp01(c.B), clamp01(c.A)}
}

// LuminanceSRGB is the Rec. 709 luminance of the linear channels.
func (c Color) LuminanceSRGB() float64 {
	return 0.2126*c.R + 0.7152*c.G + 0.0722*c.B
}

// LuminancePerceptual approximates perceived lightness using the
// Rec. 601 luma weights on gamma-encoded channels.
func (c Color) LuminancePerceptual() float64 {
	g := c.ToGammaSRGB()
	return 0.299*g.R + 0.587*g.G + 0.114*g.B
}

// AverageRGB is the unweighted mean of the RGB channels.
func (c Color) AverageRGB() float64 {
	return (c.R + c.G + c.B) / 3
}

// MinRGB returns the smallest RGB channel.
func (c Color) MinRGB() float64 {
	return math.Min(c.R, math.Min(c.G, c.B))
}

// MaxRGB returns the largest RGB channel.
func (c Color) MaxRGB() float64 {
	return math.Max(c.R, math.Max(c.G, c.B))
}

// ToHSLA converts the gamma-encoded form of the color to hue, saturation,
// lightness and alpha, each in [0, 1].
func (c Color) ToHSLA() (h, s, l, a float64) {
	g := c.ToGammaSRGB()
	max := math.Max(g.R, math.Max(g.G, g.B))
	min := math.Min(g.R, math.Min(g.G, g.B))
	l = (max + min) / 2

	if max == min {
		return 0, 0, l, g.A
	}

	d := max - min
	if l > 0.5 {
		s = d / (2 - max - min)
	} else {
		s = d / (max + min)
	}

	switch max {
	case g.R:
		h = (g.G - g.B) / d
		if g.G < g.B {
			h += 6
		}
	case g.G:
		h = (g.B-g.R)/d + 2
	default:
		h = (g.R-g.G)/d + 4
	}
	h /= 6

	return h, s, l, g.A
}

// FromHSLA builds a linear color from hue, saturation, lightness and alpha,
// each in [0, 1].
func FromHSLA(h, s, l, a float64) Color {
	if s == 0 {
		return Color{l, l, l, a}.ToLinearSRGB()
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	r := hueToChannel(p, q, h+1.0/3.0)
	g := hueToChannel(p, q, h)
	b := hueToChannel(p, q, h-1.0/3.0)

	return Color{r, g, b, a}.ToLinearSRGB()
}

func hueToChannel(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}

// WithLuminance returns the color adjusted so its sRGB luminance equals lum,
// keeping its chromaticity. Used by tinted grayscale.
func (c Color) WithLuminance(lum float64) Color {
	current := c.LuminanceSRGB()
	if current == 0 {
		return Color{lum, lum, lum, c.A}
	}
	scale := lum / current
	return Color{clamp01(c.R * scale), clamp01(c.G * scale), clamp01(c.B * scale), c.A}
}

// Gamma raises each gamma-encoded channel to 1/g. Channels at or below zero
// pass through unchanged so negative inputs cannot produce NaNs.
func (c Color) Gamma(g float64) Color {
	if g <= 0 {
		return c
	}
	return c.MapRGB(func(ch float64) float64 {
		if ch <= 0 {
			return ch
		}
		return math.Pow(ch, 1/g)
	})
}
