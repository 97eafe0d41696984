package input

import (
	"context"
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

func newRegistry(t *testing.T) (*registry.Registry, *Module) {
	t.Helper()
	m := NewModule()
	r := registry.New()
	r.Install(m)
	return r, m
}

func invoke(t *testing.T, r *registry.Registry, identifier string, inputs ...cty.Value) cty.Value {
	t.Helper()
	node, err := r.Lookup(identifier)
	require.NoError(t, err)
	out, err := r.Invoke(testContext(t), node, inputs)
	require.NoError(t, err)
	return out
}

func TestModuleValidates(t *testing.T) {
	r, _ := newRegistry(t)
	require.NoError(t, r.ValidateRegistry(testContext(t)))
}

func TestValuePassesConstantThrough(t *testing.T) {
	r, _ := newRegistry(t)
	out := invoke(t, r, "value", cty.NumberFloatVal(3.5))
	f, _ := out.AsBigFloat().Float64()
	assert.InDelta(t, 3.5, f, 1e-12)
}

func TestColorDecodesGammaChannels(t *testing.T) {
	r, _ := newRegistry(t)
	out := invoke(t, r, "color",
		cty.NumberFloatVal(0.5), cty.NumberFloatVal(0), cty.NumberFloatVal(1), cty.NumberFloatVal(0.75))

	c, err := value.ColorFromValue(out)
	require.NoError(t, err)
	assert.InDelta(t, value.SRGBToLinear(0.5), c.R, 1e-9)
	assert.InDelta(t, 0, c.G, 1e-9)
	assert.InDelta(t, 1, c.B, 1e-9)
	assert.InDelta(t, 0.75, c.A, 1e-9)
}

func TestBooleanAndText(t *testing.T) {
	r, _ := newRegistry(t)
	assert.Equal(t, cty.True, invoke(t, r, "boolean", cty.True))
	assert.Equal(t, cty.StringVal("hello"), invoke(t, r, "text", cty.StringVal("hello")))
}

func TestIdentityPassesAnyValue(t *testing.T) {
	r, _ := newRegistry(t)
	raster, err := value.NewRaster(2, 2)
	require.NoError(t, err)
	wrapped := value.RasterVal(raster)
	out := invoke(t, r, "identity", wrapped)
	assert.True(t, out.RawEquals(wrapped))
}

func TestMonitorRecordsObservedValue(t *testing.T) {
	r, m := newRegistry(t)

	out := invoke(t, r, "monitor", cty.NumberFloatVal(7), cty.StringVal("probe"))
	f, _ := out.AsBigFloat().Float64()
	assert.InDelta(t, 7, f, 1e-12)

	seen, ok := m.Observed("probe")
	require.True(t, ok)
	assert.True(t, seen.RawEquals(cty.NumberFloatVal(7)))

	_, ok = m.Observed("other")
	assert.False(t, ok)
}
