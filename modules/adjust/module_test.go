package adjust

import (
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/ctxlog"
	"github.com/vk/rastergraph/internal/registry"
	"github.com/vk/rastergraph/internal/value"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	return ctxlog.WithLogger(context.Background(), slog.New(slog.DiscardHandler))
}

// gray builds an opaque pixel whose gamma-encoded channels all equal v.
func gray(v float64) value.Color {
	l := value.SRGBToLinear(v)
	return value.Color{R: l, G: l, B: l, A: 1}
}

func gammaOf(c value.Color) value.Color {
	return c.ToGammaSRGB()
}

func TestModuleValidates(t *testing.T) {
	r := registry.New()
	r.Install(&Module{})
	require.NoError(t, r.ValidateRegistry(testContext(t)))
}

func TestInvokeInvertThroughRegistry(t *testing.T) {
	r := registry.New()
	r.Install(&Module{})

	img, err := value.NewRaster(1, 1)
	require.NoError(t, err)
	img.Pix[0] = gray(0.3)

	node, err := r.Lookup("invert")
	require.NoError(t, err)
	out, err := r.Invoke(testContext(t), node, []cty.Value{value.RasterVal(img)})
	require.NoError(t, err)

	result, err := value.RasterFromValue(out)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, gammaOf(result.Pix[0]).R, 1e-9)
	// The input raster is untouched.
	assert.InDelta(t, 0.3, gammaOf(img.Pix[0]).R, 1e-9)
}

func TestInvertIsRelativeToAlpha(t *testing.T) {
	out := invertApply(gray(0.3), nil)
	g := gammaOf(out)
	assert.InDelta(t, 0.7, g.R, 1e-9)
	assert.InDelta(t, 0.7, g.G, 1e-9)
	assert.InDelta(t, 0.7, g.B, 1e-9)
	assert.InDelta(t, 1, g.A, 1e-9)

	half := gray(0.2)
	half.A = 0.5
	g = gammaOf(invertApply(half, nil))
	assert.InDelta(t, 0.3, g.R, 1e-9)
	assert.InDelta(t, 0.5, g.A, 1e-9)
}

func TestLevelsDefaultsAreIdentity(t *testing.T) {
	defaults := []float64{0, 50, 100, 0, 100}
	for _, v := range []float64{0, 0.25, 0.5, 0.99} {
		out := levelsApply(gray(v), defaults)
		assert.InDelta(t, v, gammaOf(out).R, 1e-9, "input %v", v)
	}
}

func TestLevelsAppliesMidtoneGamma(t *testing.T) {
	// Midtones at 25% land below the midpoint: gamma = 1 + 9*(1 - 0.5) = 5.5.
	out := levelsApply(gray(0.5), []float64{0, 25, 100, 0, 100})
	want := math.Pow(0.5, 1/5.5)
	assert.InDelta(t, want, gammaOf(out).R, 1e-9)

	// Midtones at 75% land above it: gamma = (1 - 0.75) * 2 = 0.5.
	out = levelsApply(gray(0.5), []float64{0, 75, 100, 0, 100})
	want = math.Pow(0.5, 1/0.5)
	assert.InDelta(t, want, gammaOf(out).R, 1e-9)
}

func TestLevelsRemapsInputAndOutputRanges(t *testing.T) {
	params := []float64{20, 50, 80, 10, 90}
	// 0.5 sits dead center of the 20..80 input range, midtones stay
	// neutral at gamma 1, and the output range rescales to 10..90.
	out := levelsApply(gray(0.5), params)
	assert.InDelta(t, 0.5*0.8+0.1, gammaOf(out).R, 1e-9)

	// Below the input floor everything clips to the output minimum.
	out = levelsApply(gray(0.1), params)
	assert.InDelta(t, 0.1, gammaOf(out).R, 1e-9)

	// Above the input ceiling everything clips to the output maximum.
	out = levelsApply(gray(0.95), params)
	assert.InDelta(t, 0.9, gammaOf(out).R, 1e-9)
}

func TestThresholdLuminanceWindow(t *testing.T) {
	params := []float64{25, 75}

	assert.Equal(t, value.White, thresholdApply(gray(0.5), params))
	assert.Equal(t, value.Black, thresholdApply(gray(0.1), params))
	// Gamma 0.9 is linear 0.787, above the linearized 75% ceiling.
	assert.Equal(t, value.Black, thresholdApply(gray(0.9), params))
}

func TestHueShiftRoundTrip(t *testing.T) {
	red := value.Color{R: 1, G: 0, B: 0, A: 1}

	green := hueSaturationApply(red, []float64{120, 0, 0})
	assert.InDelta(t, 0, green.R, 1e-6)
	assert.InDelta(t, 1, green.G, 1e-6)
	assert.InDelta(t, 0, green.B, 1e-6)

	back := hueSaturationApply(green, []float64{120, 0, 0})
	back = hueSaturationApply(back, []float64{120, 0, 0})
	assert.InDelta(t, red.R, back.R, 1e-6)
	assert.InDelta(t, red.G, back.G, 1e-6)
	assert.InDelta(t, red.B, back.B, 1e-6)
}

func TestHueSaturationDesaturates(t *testing.T) {
	c := value.Color{R: 0.5, G: 0.1, B: 0.02, A: 1}
	out := hueSaturationApply(c, []float64{0, -100, 0})
	g := gammaOf(out)
	assert.InDelta(t, g.R, g.G, 1e-9)
	assert.InDelta(t, g.G, g.B, 1e-9)
}

func TestBrightnessContrast(t *testing.T) {
	// Contrast pivots around mid-gray, leaving it fixed.
	out := brightnessContrastApply(gray(0.5), []float64{0, 50})
	assert.InDelta(t, 0.5, gammaOf(out).R, 1e-9)

	// factor = 259*(51+255) / (255*(259-51)) at 20% contrast.
	out = brightnessContrastApply(gray(0.75), []float64{0, 20})
	assert.InDelta(t, 0.8735577, gammaOf(out).R, 1e-6)

	// Pure brightness is an 8-bit-step offset in gamma space.
	out = brightnessContrastApply(gray(0.3), []float64{51, 0})
	assert.InDelta(t, 0.5, gammaOf(out).R, 1e-9)
}

func TestGrayscaleDefaultMixIsNeutral(t *testing.T) {
	p := []float64{0, 0, 0, 40, 60, 40, 60, 20, 80}

	// Gamma-space red decomposes into a pure reds part weighted at 40%.
	red := value.Color{R: 1, G: 0, B: 0, A: 1}
	out := grayscaleApply(red, p)
	g := gammaOf(out)
	assert.InDelta(t, 0.4, g.R, 1e-9)
	assert.InDelta(t, 0.4, g.G, 1e-9)
	assert.InDelta(t, 0.4, g.B, 1e-9)

	// Gray input stays put regardless of the weights.
	out = grayscaleApply(gray(0.62), p)
	assert.InDelta(t, 0.62, gammaOf(out).R, 1e-9)
}

func TestGrayscaleTintRecolors(t *testing.T) {
	p := []float64{1, 0, 0, 40, 60, 40, 60, 20, 80}
	out := grayscaleApply(value.Color{R: 1, G: 0, B: 0, A: 1}, p)
	g := gammaOf(out)
	assert.Greater(t, g.R, g.G)
	assert.InDelta(t, 0, g.G, 1e-9)
	assert.InDelta(t, 0, g.B, 1e-9)
}

func TestVibranceLeavesGrayAlone(t *testing.T) {
	c := gray(0.25)
	out := vibranceApply(c, []float64{80})
	assert.InDelta(t, c.R, out.R, 1e-9)
	assert.InDelta(t, c.G, out.G, 1e-9)
	assert.InDelta(t, c.B, out.B, 1e-9)
}

func TestVibranceMovesSaturation(t *testing.T) {
	c := value.Color{
		R: value.SRGBToLinear(0.6),
		G: value.SRGBToLinear(0.4),
		B: value.SRGBToLinear(0.2),
		A: 1,
	}
	spread := func(col value.Color) float64 {
		g := gammaOf(col)
		return g.MaxRGB() - g.MinRGB()
	}

	boosted := vibranceApply(c, []float64{60})
	assert.Greater(t, spread(boosted), spread(c))

	muted := vibranceApply(c, []float64{-60})
	assert.Less(t, spread(muted), spread(c))
}

func TestPosterizeQuantizesChannels(t *testing.T) {
	two := []float64{2}
	assert.InDelta(t, 0, gammaOf(posterizeApply(gray(0.3), two)).R, 1e-9)
	assert.InDelta(t, 1, gammaOf(posterizeApply(gray(0.6), two)).R, 1e-9)

	// Four bands split [0, 1) at quarter boundaries into thirds.
	four := []float64{4}
	assert.InDelta(t, 1.0/3, gammaOf(posterizeApply(gray(0.3), four)).R, 1e-9)
	assert.InDelta(t, 2.0/3, gammaOf(posterizeApply(gray(0.6), four)).R, 1e-9)
}

func TestExponentAppliesPower(t *testing.T) {
	out := exponentApply(gray(0.5), []float64{2})
	assert.InDelta(t, 0.25, gammaOf(out).R, 1e-9)

	// Zero channels pass through so negative exponents stay finite.
	out = exponentApply(value.Color{A: 1}, []float64{-1})
	assert.Equal(t, 0.0, out.R)
}

func TestOpacityScalesAlphaOnly(t *testing.T) {
	c := value.Color{R: 0.2, G: 0.4, B: 0.8, A: 0.5}
	out := opacityApply(c, []float64{50})
	assert.InDelta(t, 0.2, out.R, 1e-9)
	assert.InDelta(t, 0.4, out.G, 1e-9)
	assert.InDelta(t, 0.8, out.B, 1e-9)
	assert.InDelta(t, 0.25, out.A, 1e-9)
}
