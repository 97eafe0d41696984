package mathops

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/ctxlog"
	"github.com/vk/rastergraph/internal/registry"
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

func invokeNum(t *testing.T, r *registry.Registry, identifier string, inputs ...float64) float64 {
	t.Helper()
	vals := make([]cty.Value, len(inputs))
	for i, in := range inputs {
		vals[i] = cty.NumberFloatVal(in)
	}
	out, err := invoke(t, r, identifier, vals...)
	require.NoError(t, err)
	f, _ := out.AsBigFloat().Float64()
	return f
}

func TestModuleValidates(t *testing.T) {
	r := newRegistry(t)
	require.NoError(t, r.ValidateRegistry(testContext(t)))
}

func TestArithmetic(t *testing.T) {
	r := newRegistry(t)
	cases := []struct {
		identifier string
		inputs     []float64
		want       float64
	}{
		{"add", []float64{2, 3}, 5},
		{"subtract", []float64{2, 3}, -1},
		{"multiply", []float64{4, 2.5}, 10},
		{"divide", []float64{9, 3}, 3},
		{"power", []float64{2, 10}, 1024},
		{"power", []float64{-2, 3}, -8},
		{"logarithm", []float64{8, 2}, 3},
		{"floor", []float64{2.9}, 2},
		{"floor", []float64{-2.1}, -3},
		{"ceil", []float64{2.1}, 3},
		{"round", []float64{2.5}, 3},
		{"round", []float64{-2.5}, -3},
		{"absolute_value", []float64{-7}, 7},
		{"min", []float64{2, 3}, 2},
		{"max", []float64{2, 3}, 3},
	}
	for _, tc := range cases {
		got := invokeNum(t, r, tc.identifier, tc.inputs...)
		assert.InDelta(t, tc.want, got, 1e-9, "%s(%v)", tc.identifier, tc.inputs)
	}
}

func TestDivideByZero(t *testing.T) {
	r := newRegistry(t)
	_, err := invoke(t, r, "divide", cty.NumberFloatVal(1), cty.NumberFloatVal(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
}

func TestPowerRejectsNonFiniteResults(t *testing.T) {
	r := newRegistry(t)

	// Fractional exponent of a negative base has no real result.
	_, err := invoke(t, r, "power", cty.NumberFloatVal(-8), cty.NumberFloatVal(0.5))
	require.Error(t, err)

	// Zero to a negative power diverges.
	_, err = invoke(t, r, "power", cty.NumberFloatVal(0), cty.NumberFloatVal(-1))
	require.Error(t, err)
}

func TestLogarithmDomain(t *testing.T) {
	r := newRegistry(t)

	_, err := invoke(t, r, "logarithm", cty.NumberFloatVal(-1), cty.NumberFloatVal(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive")

	_, err = invoke(t, r, "logarithm", cty.NumberFloatVal(8), cty.NumberFloatVal(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base")
}

func TestEquality(t *testing.T) {
	r := newRegistry(t)

	out, err := invoke(t, r, "equality", cty.NumberFloatVal(2), cty.NumberFloatVal(2))
	require.NoError(t, err)
	assert.Equal(t, cty.True, out)

	out, err = invoke(t, r, "equality", cty.NumberFloatVal(2), cty.NumberFloatVal(3))
	require.NoError(t, err)
	assert.Equal(t, cty.False, out)
}

func TestLogicalOps(t *testing.T) {
	r := newRegistry(t)
	cases := []struct {
		identifier string
		inputs     []cty.Value
		want       cty.Value
	}{
		{"logical_and", []cty.Value{cty.True, cty.True}, cty.True},
		{"logical_and", []cty.Value{cty.True, cty.False}, cty.False},
		{"logical_or", []cty.Value{cty.False, cty.False}, cty.False},
		{"logical_or", []cty.Value{cty.True, cty.False}, cty.True},
		{"logical_not", []cty.Value{cty.True}, cty.False},
		{"logical_not", []cty.Value{cty.False}, cty.True},
	}
	for _, tc := range cases {
		out, err := invoke(t, r, tc.identifier, tc.inputs...)
		require.NoError(t, err)
		assert.Equal(t, tc.want, out, "%s(%v)", tc.identifier, tc.inputs)
	}
}
