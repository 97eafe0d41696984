package transform

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

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	r.Install(&Module{})
	return r
}

func line(x1, y1, x2, y2 float64) *value.Path {
	return &value.Path{Subpaths: []value.Subpath{{
		Points: []value.Point{{X: x1, Y: y1}, {X: x2, Y: y2}},
	}}}
}

func applyTransform(t *testing.T, r *registry.Registry, element cty.Value, params ...float64) (cty.Value, error) {
	t.Helper()
	node, err := r.Lookup("transform")
	require.NoError(t, err)
	inputs := []cty.Value{element}
	for _, p := range params {
		inputs = append(inputs, cty.NumberFloatVal(p))
	}
	return r.Invoke(testContext(t), node, inputs)
}

func TestModuleValidates(t *testing.T) {
	r := newRegistry(t)
	require.NoError(t, r.ValidateRegistry(testContext(t)))
}

func TestTransformTranslatesPath(t *testing.T) {
	r := newRegistry(t)

	out, err := applyTransform(t, r, value.PathVal(line(0, 0, 1, 1)),
		3, 4, 0, 1, 1, 0, 0)
	require.NoError(t, err)

	p, err := value.PathFromValue(out)
	require.NoError(t, err)
	pts := p.Subpaths[0].Points
	assert.InDelta(t, 3, pts[0].X, 1e-12)
	assert.InDelta(t, 4, pts[0].Y, 1e-12)
	assert.InDelta(t, 4, pts[1].X, 1e-12)
	assert.InDelta(t, 5, pts[1].Y, 1e-12)
}

func TestTransformScalesBeforeRotating(t *testing.T) {
	r := newRegistry(t)

	// Point (1,0) scaled by 2 then rotated a quarter turn lands on (0,2).
	out, err := applyTransform(t, r, value.PathVal(line(0, 0, 1, 0)),
		0, 0, 90, 2, 2, 0, 0)
	require.NoError(t, err)

	p, err := value.PathFromValue(out)
	require.NoError(t, err)
	end := p.Subpaths[0].Points[1]
	assert.InDelta(t, 0, end.X, 1e-9)
	assert.InDelta(t, 2, end.Y, 1e-9)
}

func TestTransformComposesOntoGroupElements(t *testing.T) {
	r := newRegistry(t)
	img, err := value.NewRaster(1, 1)
	require.NoError(t, err)
	g := &value.Group{Elements: []value.Element{{
		Raster:    img,
		Transform: value.Translation(1, 0),
	}}}

	out, err := applyTransform(t, r, value.GroupVal(g), 0, 5, 0, 1, 1, 0, 0)
	require.NoError(t, err)

	got, err := value.GroupFromValue(out)
	require.NoError(t, err)
	require.Len(t, got.Elements, 1)
	assert.InDelta(t, 1, got.Elements[0].Transform.E, 1e-12)
	assert.InDelta(t, 5, got.Elements[0].Transform.F, 1e-12)

	// The input group keeps its own transforms.
	assert.InDelta(t, 0, g.Elements[0].Transform.F, 1e-12)
}

func TestTransformRejectsBareRaster(t *testing.T) {
	r := newRegistry(t)
	img, err := value.NewRaster(1, 1)
	require.NoError(t, err)

	_, err = applyTransform(t, r, value.RasterVal(img), 0, 0, 0, 1, 1, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "group")
}

func TestLayerStacksElements(t *testing.T) {
	r := newRegistry(t)
	node, err := r.Lookup("layer")
	require.NoError(t, err)

	empty := value.GroupVal(&value.Group{})
	out, err := r.Invoke(testContext(t), node, []cty.Value{value.PathVal(line(0, 0, 1, 1)), empty})
	require.NoError(t, err)

	img, err := value.NewRaster(1, 1)
	require.NoError(t, err)
	out, err = r.Invoke(testContext(t), node, []cty.Value{value.RasterVal(img), out})
	require.NoError(t, err)

	g, err := value.GroupFromValue(out)
	require.NoError(t, err)
	require.Len(t, g.Elements, 2)
	assert.NotNil(t, g.Elements[0].Path, "first layered element stays at the bottom")
	assert.NotNil(t, g.Elements[1].Raster, "later elements stack on top")
}

func TestLayerSplicesGroups(t *testing.T) {
	r := newRegistry(t)
	node, err := r.Lookup("layer")
	require.NoError(t, err)

	inner := &value.Group{Elements: []value.Element{
		{Path: line(0, 0, 1, 1), Transform: value.Translation(2, 2)},
		{Path: line(1, 1, 2, 2), Transform: value.IdentityTransform()},
	}}
	stack := &value.Group{Elements: []value.Element{
		{Path: line(5, 5, 6, 6), Transform: value.IdentityTransform()},
	}}

	out, err := r.Invoke(testContext(t), node, []cty.Value{value.GroupVal(inner), value.GroupVal(stack)})
	require.NoError(t, err)

	g, err := value.GroupFromValue(out)
	require.NoError(t, err)
	require.Len(t, g.Elements, 3)
	assert.InDelta(t, 2, g.Elements[1].Transform.E, 1e-12, "spliced elements keep their transforms")

	// The stacked input is never mutated.
	assert.Len(t, stack.Elements, 1)
}

func TestLayerRejectsScalars(t *testing.T) {
	r := newRegistry(t)
	node, err := r.Lookup("layer")
	require.NoError(t, err)

	_, err = r.Invoke(testContext(t), node, []cty.Value{cty.StringVal("nope"), value.GroupVal(&value.Group{})})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stack")
}
