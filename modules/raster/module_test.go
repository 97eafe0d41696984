package raster

import (
	"bytes"
	"context"
	"encoding/base64"
	"log/slog"
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

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	r.Install(&Module{})
	return r
}

func invoke(t *testing.T, r *registry.Registry, identifier string, inputs ...cty.Value) (cty.Value, error) {
	t.Helper()
	node, err := r.Lookup(identifier)
	require.NoError(t, err)
	return r.Invoke(testContext(t), node, inputs)
}

func mustInvoke(t *testing.T, r *registry.Registry, identifier string, inputs ...cty.Value) cty.Value {
	t.Helper()
	out, err := invoke(t, r, identifier, inputs...)
	require.NoError(t, err)
	return out
}

// pngBase64 encodes a raster as base64 PNG text, the embedded image form.
func pngBase64(t *testing.T, img *value.Raster) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, value.EncodePNG(img, &buf))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func solid(t *testing.T, w, h int, c value.Color) *value.Raster {
	t.Helper()
	img, err := value.NewRaster(w, h)
	require.NoError(t, err)
	for i := range img.Pix {
		img.Pix[i] = c
	}
	return img
}

func TestModuleValidates(t *testing.T) {
	r := newRegistry(t)
	require.NoError(t, r.ValidateRegistry(testContext(t)))
}

func TestImageDecodesEmbeddedPNG(t *testing.T) {
	r := newRegistry(t)
	red := value.Color{R: 1, A: 1}

	out := mustInvoke(t, r, "image", cty.StringVal(pngBase64(t, solid(t, 2, 1, red))))

	img, err := value.RasterFromValue(out)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Width)
	assert.Equal(t, 1, img.Height)
	got := img.At(0, 0)
	assert.InDelta(t, 1, got.R, 1e-6)
	assert.InDelta(t, 0, got.G, 1e-6)
	assert.InDelta(t, 1, got.A, 1e-6)
}

func TestImageRejectsBadData(t *testing.T) {
	r := newRegistry(t)

	_, err := invoke(t, r, "image", cty.StringVal(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedded data")

	_, err = invoke(t, r, "image", cty.StringVal("not base64 at all!!"))
	require.Error(t, err)
}

func TestDecodeImageHandlesDataURI(t *testing.T) {
	r := newRegistry(t)
	white := value.Color{R: 1, G: 1, B: 1, A: 1}
	uri := "data:image/png;base64," + pngBase64(t, solid(t, 1, 1, white))

	out := mustInvoke(t, r, "decode_image", cty.StringVal(uri))

	img, err := value.RasterFromValue(out)
	require.NoError(t, err)
	assert.InDelta(t, 1, img.At(0, 0).R, 1e-6)

	_, err = invoke(t, r, "decode_image", cty.StringVal("data:image/png,not-encoded"))
	require.Error(t, err)
}

func TestResampleNearestKeepsQuadrants(t *testing.T) {
	r := newRegistry(t)
	src, err := value.NewRaster(2, 2)
	require.NoError(t, err)
	src.Set(0, 0, value.Color{R: 0.25, A: 1})
	src.Set(1, 0, value.Color{R: 0.5, A: 1})
	src.Set(0, 1, value.Color{R: 0.75, A: 1})
	src.Set(1, 1, value.Color{R: 1, A: 1})

	out := mustInvoke(t, r, "resample",
		value.RasterVal(src), cty.NumberIntVal(4), cty.NumberIntVal(4), cty.StringVal("nearest"))

	img, err := value.RasterFromValue(out)
	require.NoError(t, err)
	require.Equal(t, 4, img.Width)
	require.Equal(t, 4, img.Height)
	assert.InDelta(t, 0.25, img.At(0, 0).R, 1e-3)
	assert.InDelta(t, 0.5, img.At(3, 0).R, 1e-3)
	assert.InDelta(t, 0.75, img.At(0, 3).R, 1e-3)
	assert.InDelta(t, 1, img.At(3, 3).R, 1e-3)
}

func TestResampleBilinearUniformStaysUniform(t *testing.T) {
	r := newRegistry(t)
	c := value.Color{R: 0.5, G: 0.25, B: 0.75, A: 1}

	out := mustInvoke(t, r, "resample",
		value.RasterVal(solid(t, 3, 3, c)), cty.NumberIntVal(5), cty.NumberIntVal(2), cty.StringVal("bilinear"))

	img, err := value.RasterFromValue(out)
	require.NoError(t, err)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			got := img.At(x, y)
			assert.InDelta(t, c.R, got.R, 1e-3, "(%d,%d)", x, y)
			assert.InDelta(t, c.G, got.G, 1e-3, "(%d,%d)", x, y)
			assert.InDelta(t, c.B, got.B, 1e-3, "(%d,%d)", x, y)
			assert.InDelta(t, c.A, got.A, 1e-3, "(%d,%d)", x, y)
		}
	}
}

func TestResampleRejectsBadArguments(t *testing.T) {
	r := newRegistry(t)
	img := value.RasterVal(solid(t, 2, 2, value.White))

	_, err := invoke(t, r, "resample", img, cty.NumberIntVal(0), cty.NumberIntVal(4), cty.StringVal("bilinear"))
	require.Error(t, err)

	_, err = invoke(t, r, "resample", img, cty.NumberIntVal(4), cty.NumberIntVal(4), cty.StringVal("lanczos"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lanczos")

	_, err = invoke(t, r, "resample", img, cty.NumberFloatVal(1.5), cty.NumberIntVal(4), cty.StringVal("bilinear"))
	require.Error(t, err, "fractional sizes do not decode")
}

func TestExtractChannel(t *testing.T) {
	r := newRegistry(t)
	src := solid(t, 1, 1, value.Color{R: 0.2, G: 0.4, B: 0.6, A: 0.8})

	out := mustInvoke(t, r, "extract_channel", value.RasterVal(src), cty.StringVal("red"))
	img, err := value.RasterFromValue(out)
	require.NoError(t, err)
	assert.Equal(t, value.Color{R: 0.2, G: 0.2, B: 0.2, A: 1}, img.At(0, 0))

	out = mustInvoke(t, r, "extract_channel", value.RasterVal(src), cty.StringVal("alpha"))
	img, err = value.RasterFromValue(out)
	require.NoError(t, err)
	assert.Equal(t, value.Color{R: 0.8, G: 0.8, B: 0.8, A: 1}, img.At(0, 0))

	_, err = invoke(t, r, "extract_channel", value.RasterVal(src), cty.StringVal("cyan"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cyan")
}

func TestMaskScalesAlphaByStencilLuminance(t *testing.T) {
	r := newRegistry(t)
	img := value.RasterVal(solid(t, 1, 1, value.Color{R: 1, A: 1}))

	cases := []struct {
		name    string
		stencil value.Color
		wantA   float64
	}{
		{"white stencil keeps alpha", value.Color{R: 1, G: 1, B: 1, A: 1}, 1},
		{"black stencil clears alpha", value.Color{A: 1}, 0},
		{"gray stencil halves alpha", value.Color{R: 0.5, G: 0.5, B: 0.5, A: 1}, 0.5},
		{"transparent stencil clears alpha", value.Color{R: 1, G: 1, B: 1, A: 0}, 0},
	}
	for _, tc := range cases {
		out := mustInvoke(t, r, "mask", img, value.RasterVal(solid(t, 1, 1, tc.stencil)))
		got, err := value.RasterFromValue(out)
		require.NoError(t, err)
		assert.InDelta(t, tc.wantA, got.At(0, 0).A, 1e-9, tc.name)
		assert.InDelta(t, 1, got.At(0, 0).R, 1e-12, "%s keeps color channels", tc.name)
	}
}

func TestMaskRejectsSizeMismatch(t *testing.T) {
	r := newRegistry(t)
	_, err := invoke(t, r, "mask",
		value.RasterVal(solid(t, 2, 2, value.White)),
		value.RasterVal(solid(t, 1, 1, value.White)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size")
}
