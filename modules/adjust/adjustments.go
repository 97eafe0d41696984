package adjust

import (
	"math"

	"github.com/vk/rastergraph/internal/value"
)

// The per-pixel formulas. Each doubles as its kernel's CPU mirror, so
// params arrive positionally in the order the kernel declares them.
// Inputs and outputs are linear light; formulas defined in gamma space
// convert explicitly at their edges.

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// params: tint_r, tint_g, tint_b, reds, yellows, greens, cyans, blues, magentas
func grayscaleApply(c value.Color, p []float64) value.Color {
	g := c.ToGammaSRGB()

	reds, yellows, greens := p[3]/100, p[4]/100, p[5]/100
	cyans, blues, magentas := p[6]/100, p[7]/100, p[8]/100

	grayBase := g.MinRGB()
	redPart := g.R - grayBase
	greenPart := g.G - grayBase
	bluePart := g.B - grayBase

	var additional float64
	switch {
	case redPart == 0:
		cyanPart := math.Min(greenPart, bluePart)
		additional = cyanPart*cyans + (greenPart-cyanPart)*greens + (bluePart-cyanPart)*blues
	case greenPart == 0:
		magentaPart := math.Min(redPart, bluePart)
		additional = magentaPart*magentas + (redPart-magentaPart)*reds + (bluePart-magentaPart)*blues
	default:
		yellowPart := math.Min(redPart, greenPart)
		additional = yellowPart*yellows + (redPart-yellowPart)*reds + (greenPart-yellowPart)*greens
	}

	tint := value.Color{R: p[0], G: p[1], B: p[2], A: 1}
	tinted := tint.WithLuminance(grayBase + additional)

	return value.Color{R: tinted.R, G: tinted.G, B: tinted.B, A: g.A}.ToLinearSRGB()
}

// Inversion is relative to alpha, so premultiplied-looking translucent
// pixels invert within their own coverage.
func invertApply(c value.Color, _ []float64) value.Color {
	g := c.ToGammaSRGB()
	return g.MapRGB(func(ch float64) float64 { return g.A - ch }).ToLinearSRGB()
}

// params: hue_shift (degrees), saturation_shift (percent), lightness_shift (percent)
func hueSaturationApply(c value.Color, p []float64) value.Color {
	h, s, l, a := c.ToHSLA()
	return value.FromHSLA(
		math.Mod(h+p[0]/360, 1),
		clampUnit(s+p[1]/100),
		clampUnit(l+p[2]/100),
		a,
	)
}

// params: brightness (-150..150, 8-bit steps), contrast (-100..100)
func brightnessContrastApply(c value.Color, p []float64) value.Color {
	brightness := p[0]
	c8 := p[1] * 2.55
	factor := (259 * (c8 + 255)) / (255 * (259 - c8))

	g := c.ToGammaSRGB()
	return g.MapRGB(func(ch float64) float64 {
		return clampUnit(factor*(ch-0.5) + 0.5 + brightness/255)
	}).ToLinearSRGB()
}

const levelsEpsilon = 1e-7

// params: shadows, midtones, highlights, output_minimums, output_maximums (all percent)
func levelsApply(c value.Color, p []float64) value.Color {
	g := c.ToGammaSRGB()

	inputShadows := p[0] / 100
	inputMidtones := p[1] / 100
	inputHighlights := p[2] / 100
	outputMinimums := p[3] / 100
	outputMaximums := p[4] / 100

	// Midtones interpolate between the output bounds, then pick the
	// gamma correction: 1..10 below the midpoint, 0.01..1 above.
	midtones := outputMinimums + (outputMaximums-outputMinimums)*inputMidtones
	var gamma float64
	if midtones < 0.5 {
		gamma = 1 + 9*(1-midtones*2)
	} else {
		gamma = math.Max((1-midtones)*2, 0.01)
	}

	span := math.Min(math.Max(inputHighlights-inputShadows, levelsEpsilon), 1)
	g = g.MapRGB(func(ch float64) float64 {
		return math.Min(math.Max(ch-inputShadows, 0)/span, 1)
	})
	g = g.Gamma(gamma)
	g = g.MapRGB(func(ch float64) float64 {
		return ch*(outputMaximums-outputMinimums) + outputMinimums
	})

	return g.ToLinearSRGB()
}

// params: min_luminance, max_luminance (percent, gamma-encoded bounds)
func thresholdApply(c value.Color, p []float64) value.Color {
	minLum := value.SRGBToLinear(p[0] / 100)
	maxLum := value.SRGBToLinear(p[1] / 100)

	lum := c.LuminanceSRGB()
	if lum >= minLum && lum <= maxLum {
		return value.White
	}
	return value.Black
}

// params: vibrance (-100..100)
func vibranceApply(c value.Color, p []float64) value.Color {
	vibrance := p[0] / 100
	// Negative strength is halved: artifacts appear past -50% otherwise.
	slowed := vibrance
	if vibrance < 0 {
		slowed *= 0.5
	}

	g := c.ToGammaSRGB()
	channelMax := g.MaxRGB()
	channelMin := g.MinRGB()
	channelDifference := channelMax - channelMin

	scaleMultiplier := 1.0
	if channelMax == g.R && channelDifference > 0 {
		t := math.Min(math.Abs(g.G-g.B)/channelDifference, 1)
		scaleMultiplier = t*0.5 + 0.5
	}

	scale := slowed * scaleMultiplier * (2 - channelDifference)
	channelReduction := channelMin * scale
	scale = 1 + scale*(1-channelDifference)

	luminanceInitial := c.LuminanceSRGB()
	altered := g.MapRGB(func(ch float64) float64 { return ch*scale - channelReduction }).ToLinearSRGB()
	if lum := altered.LuminanceSRGB(); lum > 0 {
		altered = altered.MapRGB(func(ch float64) float64 { return ch * luminanceInitial / lum })
	}

	// Saturating a channel past white trades chroma back for luminance.
	if chMax := altered.MaxRGB(); value.LinearToSRGB(chMax) > 1 {
		lum := altered.LuminanceSRGB()
		if chMax > lum {
			s := (1 - lum) / (chMax - lum)
			altered = altered.MapRGB(func(ch float64) float64 { return (ch-lum)*s + lum })
		}
	}

	if vibrance >= 0 {
		return altered
	}

	// Toward -100% the result leans on the desaturated luma.
	factor := -slowed
	lum601 := c.LuminancePerceptual()
	ag := altered.ToGammaSRGB()
	return ag.MapRGB(func(ch float64) float64 { return ch*(1-factor) + lum601*factor }).ToLinearSRGB()
}

// params: levels (bands per channel, 2 or more)
func posterizeApply(c value.Color, p []float64) value.Color {
	n := math.Max(p[0], 2)
	sizeOfAreas := 1 / (n - 1)

	g := c.ToGammaSRGB()
	return g.MapRGB(func(ch float64) float64 {
		return math.Floor(ch*n) * sizeOfAreas
	}).ToLinearSRGB()
}

// params: exponent
func exponentApply(c value.Color, p []float64) value.Color {
	e := p[0]
	g := c.ToGammaSRGB()
	return g.MapRGB(func(ch float64) float64 {
		if ch <= 0 {
			return ch
		}
		return math.Pow(ch, e)
	}).ToLinearSRGB()
}

// params: opacity (percent)
func opacityApply(c value.Color, p []float64) value.Color {
	return value.Color{R: c.R, G: c.G, B: c.B, A: c.A * p[0] / 100}
}
