// Package mathops provides the scalar arithmetic and logic nodes.
package mathops

import (
	"context"
	"fmt"
	"math"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/registry"
	"github.com/vk/rastergraph/internal/typesys"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

func num(v float64) cty.Value { return cty.NumberFloatVal(v) }

// finite wraps v, rejecting the NaN and infinity results float
// operations produce at domain edges.
func finite(op string, v float64) (cty.Value, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return cty.NilVal, fmt.Errorf("%s: result is not a finite number", op)
	}
	return num(v), nil
}

type unaryInput struct {
	Primary float64 `rg:"primary"`
}

func registerUnary(r *registry.Registry, identifier string, fn func(float64) float64) {
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: identifier,
		Signature: typesys.Signature{
			Inputs:  []typesys.PortSpec{typesys.PortWithDefault("primary", cty.Number, cty.NumberIntVal(0))},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.Number)},
		},
		NewInput: func() any { return new(unaryInput) },
		Fn: func(_ context.Context, input *unaryInput) (cty.Value, error) {
			return num(fn(input.Primary)), nil
		},
	})
}

type pairInput struct {
	First  float64 `rg:"first"`
	Second float64 `rg:"second"`
}

func registerPair(r *registry.Registry, identifier string, fn func(a, b float64) float64) {
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: identifier,
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.PortWithDefault("first", cty.Number, cty.NumberIntVal(0)),
				typesys.PortWithDefault("second", cty.Number, cty.NumberIntVal(0)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.Number)},
		},
		NewInput: func() any { return new(pairInput) },
		Fn: func(_ context.Context, input *pairInput) (cty.Value, error) {
			return num(fn(input.First, input.Second)), nil
		},
	})
}

type boolPairInput struct {
	First  bool `rg:"first"`
	Second bool `rg:"second"`
}

func registerBoolPair(r *registry.Registry, identifier string, fn func(a, b bool) bool) {
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: identifier,
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.PortWithDefault("first", cty.Bool, cty.False),
				typesys.PortWithDefault("second", cty.Bool, cty.False),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.Bool)},
		},
		NewInput: func() any { return new(boolPairInput) },
		Fn: func(_ context.Context, input *boolPairInput) (cty.Value, error) {
			return cty.BoolVal(fn(input.First, input.Second)), nil
		},
	})
}

// Register implements the registry.Module interface.
func (m *Module) Register(r *registry.Registry) {
	type addInput struct {
		Primary float64 `rg:"primary"`
		Addend  float64 `rg:"addend"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "add",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.PortWithDefault("primary", cty.Number, cty.NumberIntVal(0)),
				typesys.PortWithDefault("addend", cty.Number, cty.NumberIntVal(0)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.Number)},
		},
		NewInput: func() any { return new(addInput) },
		Fn: func(_ context.Context, input *addInput) (cty.Value, error) {
			return num(input.Primary + input.Addend), nil
		},
	})

	type subtractInput struct {
		Primary    float64 `rg:"primary"`
		Subtrahend float64 `rg:"subtrahend"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "subtract",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.PortWithDefault("primary", cty.Number, cty.NumberIntVal(0)),
				typesys.PortWithDefault("subtrahend", cty.Number, cty.NumberIntVal(0)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.Number)},
		},
		NewInput: func() any { return new(subtractInput) },
		Fn: func(_ context.Context, input *subtractInput) (cty.Value, error) {
			return num(input.Primary - input.Subtrahend), nil
		},
	})

	type multiplyInput struct {
		Primary      float64 `rg:"primary"`
		Multiplicand float64 `rg:"multiplicand"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "multiply",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.PortWithDefault("primary", cty.Number, cty.NumberIntVal(0)),
				typesys.PortWithDefault("multiplicand", cty.Number, cty.NumberIntVal(1)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.Number)},
		},
		NewInput: func() any { return new(multiplyInput) },
		Fn: func(_ context.Context, input *multiplyInput) (cty.Value, error) {
			return num(input.Primary * input.Multiplicand), nil
		},
	})

	type divideInput struct {
		Primary float64 `rg:"primary"`
		Divisor float64 `rg:"divisor"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "divide",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.PortWithDefault("primary", cty.Number, cty.NumberIntVal(0)),
				typesys.PortWithDefault("divisor", cty.Number, cty.NumberIntVal(1)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.Number)},
		},
		NewInput: func() any { return new(divideInput) },
		Fn: func(_ context.Context, input *divideInput) (cty.Value, error) {
			if input.Divisor == 0 {
				return cty.NilVal, fmt.Errorf("divide: division by zero")
			}
			return finite("divide", input.Primary/input.Divisor)
		},
	})

	type powerInput struct {
		Primary  float64 `rg:"primary"`
		Exponent float64 `rg:"exponent"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "power",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.PortWithDefault("primary", cty.Number, cty.NumberIntVal(0)),
				typesys.PortWithDefault("exponent", cty.Number, cty.NumberIntVal(1)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.Number)},
		},
		NewInput: func() any { return new(powerInput) },
		Fn: func(_ context.Context, input *powerInput) (cty.Value, error) {
			return finite("power", math.Pow(input.Primary, input.Exponent))
		},
	})

	type logarithmInput struct {
		Primary float64 `rg:"primary"`
		Base    float64 `rg:"base"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "logarithm",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.PortWithDefault("primary", cty.Number, cty.NumberIntVal(1)),
				typesys.PortWithDefault("base", cty.Number, cty.NumberFloatVal(math.E)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.Number)},
		},
		NewInput: func() any { return new(logarithmInput) },
		Fn: func(_ context.Context, input *logarithmInput) (cty.Value, error) {
			if input.Primary <= 0 {
				return cty.NilVal, fmt.Errorf("logarithm: argument must be positive, got %v", input.Primary)
			}
			if input.Base <= 0 || input.Base == 1 {
				return cty.NilVal, fmt.Errorf("logarithm: base must be positive and not 1, got %v", input.Base)
			}
			return finite("logarithm", math.Log(input.Primary)/math.Log(input.Base))
		},
	})

	registerUnary(r, "floor", math.Floor)
	registerUnary(r, "ceil", math.Ceil)
	registerUnary(r, "round", math.Round)
	registerUnary(r, "absolute_value", math.Abs)

	registerPair(r, "min", math.Min)
	registerPair(r, "max", math.Max)

	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "equality",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.PortWithDefault("first", cty.Number, cty.NumberIntVal(0)),
				typesys.PortWithDefault("second", cty.Number, cty.NumberIntVal(0)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.Bool)},
		},
		NewInput: func() any { return new(pairInput) },
		Fn: func(_ context.Context, input *pairInput) (cty.Value, error) {
			return cty.BoolVal(input.First == input.Second), nil
		},
	})

	registerBoolPair(r, "logical_and", func(a, b bool) bool { return a && b })
	registerBoolPair(r, "logical_or", func(a, b bool) bool { return a || b })

	type notInput struct {
		Primary bool `rg:"primary"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "logical_not",
		Signature: typesys.Signature{
			Inputs:  []typesys.PortSpec{typesys.PortWithDefault("primary", cty.Bool, cty.False)},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.Bool)},
		},
		NewInput: func() any { return new(notInput) },
		Fn: func(_ context.Context, input *notInput) (cty.Value, error) {
			return cty.BoolVal(!input.Primary), nil
		},
	})
}
