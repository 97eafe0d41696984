package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/ctxlog"
	"github.com/vk/rastergraph/internal/gpu"
	"github.com/vk/rastergraph/internal/typesys"
	"github.com/vk/rastergraph/internal/value"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	return ctxlog.WithLogger(context.Background(), slog.New(slog.DiscardHandler))
}

type scaleInput struct {
	Base   float64 `rg:"base"`
	Factor float64 `rg:"factor"`
}

func scaleHandler(_ context.Context, in *scaleInput) (cty.Value, error) {
	return cty.NumberFloatVal(in.Base * in.Factor), nil
}

func scaleNode() *RegisteredNode {
	return &RegisteredNode{
		Identifier: "scale",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("base", cty.Number),
				typesys.Port("factor", cty.Number),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.Number)},
		},
		NewInput: func() any { return new(scaleInput) },
		Fn:       scaleHandler,
	}
}

func TestRegisterNode(t *testing.T) {
	t.Run("registers and looks up", func(t *testing.T) {
		r := New()
		r.RegisterNode(scaleNode())

		got, err := r.Lookup("scale")
		require.NoError(t, err)
		assert.Equal(t, "scale", got.Identifier)
	})

	t.Run("panics on duplicate identifier", func(t *testing.T) {
		r := New()
		r.RegisterNode(scaleNode())
		assert.Panics(t, func() { r.RegisterNode(scaleNode()) })
	})

	t.Run("panics on missing identifier", func(t *testing.T) {
		r := New()
		assert.Panics(t, func() { r.RegisterNode(&RegisteredNode{}) })
	})
}

func TestLookupNotFound(t *testing.T) {
	r := New()
	_, err := r.Lookup("missing")

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.Identifier)
}

type installProbe struct{ calls *int }

func (m installProbe) Register(r *Registry) { *m.calls++ }

func TestInstallRegistersEveryModule(t *testing.T) {
	r := New()
	calls := 0
	r.Install(installProbe{&calls}, installProbe{&calls}, installProbe{&calls})
	assert.Equal(t, 3, calls)
}

func TestDecodeInputs(t *testing.T) {
	t.Run("plain and capsule fields", func(t *testing.T) {
		type input struct {
			Amount float64       `rg:"amount"`
			Label  string        `rg:"label"`
			On     bool          `rg:"on"`
			Tint   value.Color   `rg:"tint"`
			Any    cty.Value     `rg:"any"`
			Image  *value.Raster `rg:"image"`

			ignored int
		}
		sig := typesys.Signature{Inputs: []typesys.PortSpec{
			typesys.Port("amount", cty.Number),
			typesys.Port("label", cty.String),
			typesys.Port("on", cty.Bool),
			typesys.Port("tint", value.ColorType),
			typesys.Port("any", cty.DynamicPseudoType),
			typesys.Port("image", value.RasterType),
		}}
		img, err := value.NewRaster(1, 1)
		require.NoError(t, err)

		var in input
		err = DecodeInputs(&in, sig, []cty.Value{
			cty.NumberFloatVal(2.5),
			cty.StringVal("x"),
			cty.True,
			value.ColorVal(value.White),
			cty.NumberIntVal(9),
			value.RasterVal(img),
		})
		require.NoError(t, err)

		assert.Equal(t, 2.5, in.Amount)
		assert.Equal(t, "x", in.Label)
		assert.True(t, in.On)
		assert.Equal(t, value.White, in.Tint)
		assert.True(t, in.Any.RawEquals(cty.NumberIntVal(9)))
		assert.Same(t, img, in.Image)
		assert.Zero(t, in.ignored)
	})

	t.Run("rejects a capsule of the wrong kind", func(t *testing.T) {
		type input struct {
			Image *value.Raster `rg:"image"`
		}
		sig := typesys.Signature{Inputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)}}

		err := DecodeInputs(&input{}, sig, []cty.Value{value.ColorVal(value.Black)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected raster")
	})

	t.Run("rejects a tag for an undeclared port", func(t *testing.T) {
		type input struct {
			X float64 `rg:"nope"`
		}
		err := DecodeInputs(&input{}, typesys.Signature{}, nil)
		require.Error(t, err)
	})

	t.Run("rejects a missing value", func(t *testing.T) {
		type input struct {
			X float64 `rg:"x"`
		}
		sig := typesys.Signature{Inputs: []typesys.PortSpec{typesys.Port("x", cty.Number)}}
		err := DecodeInputs(&input{}, sig, nil)
		require.Error(t, err)
	})

	t.Run("rejects a non-struct target", func(t *testing.T) {
		err := DecodeInputs(42, typesys.Signature{}, nil)
		require.Error(t, err)
	})
}

func TestInvoke(t *testing.T) {
	t.Run("decodes, calls and returns", func(t *testing.T) {
		r := New()
		r.RegisterNode(scaleNode())
		node, err := r.Lookup("scale")
		require.NoError(t, err)

		out, err := r.Invoke(testContext(t), node, []cty.Value{
			cty.NumberFloatVal(3),
			cty.NumberFloatVal(4),
		})
		require.NoError(t, err)
		assert.True(t, out.RawEquals(cty.NumberFloatVal(12)))
	})

	t.Run("propagates handler errors", func(t *testing.T) {
		boom := errors.New("boom")
		node := &RegisteredNode{
			Identifier: "failing",
			Signature:  typesys.Signature{Outputs: []typesys.PortSpec{typesys.Port("result", cty.Number)}},
			Fn: func(_ context.Context, _ *struct{}) (cty.Value, error) {
				return cty.NilVal, boom
			},
		}

		_, err := (&Registry{}).Invoke(testContext(t), node, nil)
		require.ErrorIs(t, err, boom)
	})

	t.Run("reports decode failures with the node identifier", func(t *testing.T) {
		r := New()
		r.RegisterNode(scaleNode())
		node, _ := r.Lookup("scale")

		_, err := r.Invoke(testContext(t), node, []cty.Value{cty.StringVal("no"), cty.NumberIntVal(1)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scale")
	})
}

func TestValidateRegistry(t *testing.T) {
	t.Run("accepts a well formed registry", func(t *testing.T) {
		r := New()
		r.RegisterNode(scaleNode())
		require.NoError(t, r.ValidateRegistry(testContext(t)))
	})

	t.Run("rejects a signature input with no struct field", func(t *testing.T) {
		r := New()
		n := scaleNode()
		n.Signature.Inputs = append(n.Signature.Inputs, typesys.Port("extra", cty.Number))
		r.RegisterNode(n)

		err := r.ValidateRegistry(testContext(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "extra")
	})

	t.Run("rejects a struct field with no signature input", func(t *testing.T) {
		r := New()
		n := scaleNode()
		n.Signature.Inputs = n.Signature.Inputs[:1]
		r.RegisterNode(n)

		err := r.ValidateRegistry(testContext(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "factor")
	})

	t.Run("rejects a type mismatch", func(t *testing.T) {
		type input struct {
			Label string `rg:"label"`
		}
		r := New()
		r.RegisterNode(&RegisteredNode{
			Identifier: "mismatch",
			Signature: typesys.Signature{
				Inputs:  []typesys.PortSpec{typesys.Port("label", cty.Number)},
				Outputs: []typesys.PortSpec{typesys.Port("result", cty.Number)},
			},
			NewInput: func() any { return new(input) },
			Fn: func(_ context.Context, _ *input) (cty.Value, error) {
				return cty.NumberIntVal(0), nil
			},
		})

		err := r.ValidateRegistry(testContext(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "type mismatch")
	})

	t.Run("rejects a malformed handler", func(t *testing.T) {
		r := New()
		r.RegisterNode(&RegisteredNode{
			Identifier: "badfn",
			Signature:  typesys.Signature{Outputs: []typesys.PortSpec{typesys.Port("result", cty.Number)}},
			Fn:         func() {},
		})

		err := r.ValidateRegistry(testContext(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "badfn")
	})

	t.Run("rejects a node with no outputs", func(t *testing.T) {
		r := New()
		n := scaleNode()
		n.Signature.Outputs = nil
		r.RegisterNode(n)

		require.Error(t, r.ValidateRegistry(testContext(t)))
	})

	t.Run("checks kernel parameters against the signature", func(t *testing.T) {
		type input struct {
			Image  *value.Raster `rg:"image"`
			Amount float64       `rg:"amount"`
		}
		node := func(k *gpu.Kernel) *RegisteredNode {
			return &RegisteredNode{
				Identifier: "kern",
				Signature: typesys.Signature{
					Inputs: []typesys.PortSpec{
						typesys.Port("image", value.RasterType),
						typesys.Port("amount", cty.Number),
					},
					Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
				},
				NewInput: func() any { return new(input) },
				Fn: func(_ context.Context, _ *input) (cty.Value, error) {
					return cty.NilVal, nil
				},
				Kernel: k,
			}
		}
		mirror := func(c value.Color, _ []float64) value.Color { return c }

		t.Run("well formed", func(t *testing.T) {
			r := New()
			r.RegisterNode(node(&gpu.Kernel{
				Name:   "kern",
				Params: []string{"amount"},
				WGSL:   "fn kern(c: vec4<f32>, amount: f32) -> vec4<f32> { return c; }",
				Apply:  mirror,
			}))
			require.NoError(t, r.ValidateRegistry(testContext(t)))
		})

		t.Run("undeclared parameter", func(t *testing.T) {
			r := New()
			r.RegisterNode(node(&gpu.Kernel{
				Name:   "kern",
				Params: []string{"ghost"},
				WGSL:   "fn kern(c: vec4<f32>, ghost: f32) -> vec4<f32> { return c; }",
				Apply:  mirror,
			}))
			err := r.ValidateRegistry(testContext(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "ghost")
		})

		t.Run("missing mirror", func(t *testing.T) {
			r := New()
			r.RegisterNode(node(&gpu.Kernel{Name: "kern", WGSL: "fn kern(c: vec4<f32>) -> vec4<f32> { return c; }"}))
			err := r.ValidateRegistry(testContext(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "mirror")
		})
	})
}

func TestNotFoundErrorMessage(t *testing.T) {
	err := fmt.Errorf("compiling: %w", &NotFoundError{Identifier: "ghost"})
	assert.Contains(t, err.Error(), `"ghost"`)
}
