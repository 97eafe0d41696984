// Package input provides the constant source nodes and the generic
// pass-through nodes every document starts from.
package input

import (
	"context"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/registry"
	"github.com/vk/rastergraph/internal/typesys"
	"github.com/vk/rastergraph/internal/value"
)

// Module implements the registry.Module interface for this package. It
// also carries the observation log that monitor nodes write to, keyed by
// the monitor's label input.
type Module struct {
	mu       sync.Mutex
	observed map[string]cty.Value
}

// NewModule creates the input module with an empty observation log.
func NewModule() *Module {
	return &Module{observed: make(map[string]cty.Value)}
}

// Observed returns the last value a monitor node recorded under label.
func (m *Module) Observed(label string) (cty.Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.observed[label]
	return v, ok
}

func (m *Module) record(label string, v cty.Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed[label] = v
}

// Register implements the registry.Module interface.
func (m *Module) Register(r *registry.Registry) {
	type valueInput struct {
		Value float64 `rg:"value"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "value",
		Signature: typesys.Signature{
			Inputs:  []typesys.PortSpec{typesys.PortWithDefault("value", cty.Number, cty.NumberIntVal(0))},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.Number)},
		},
		NewInput: func() any { return new(valueInput) },
		Fn: func(_ context.Context, input *valueInput) (cty.Value, error) {
			return cty.NumberFloatVal(input.Value), nil
		},
	})

	// Channels are gamma-encoded sRGB in [0, 1]; the produced color
	// stores linear light like every other color in the pipeline.
	type colorInput struct {
		Red   float64 `rg:"red"`
		Green float64 `rg:"green"`
		Blue  float64 `rg:"blue"`
		Alpha float64 `rg:"alpha"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "color",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.PortWithDefault("red", cty.Number, cty.NumberIntVal(0)),
				typesys.PortWithDefault("green", cty.Number, cty.NumberIntVal(0)),
				typesys.PortWithDefault("blue", cty.Number, cty.NumberIntVal(0)),
				typesys.PortWithDefault("alpha", cty.Number, cty.NumberIntVal(1)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", value.ColorType)},
		},
		NewInput: func() any { return new(colorInput) },
		Fn: func(_ context.Context, input *colorInput) (cty.Value, error) {
			c := value.Color{
				R: value.SRGBToLinear(input.Red),
				G: value.SRGBToLinear(input.Green),
				B: value.SRGBToLinear(input.Blue),
				A: input.Alpha,
			}
			return value.ColorVal(c.Clamp()), nil
		},
	})

	type booleanInput struct {
		Value bool `rg:"value"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "boolean",
		Signature: typesys.Signature{
			Inputs:  []typesys.PortSpec{typesys.PortWithDefault("value", cty.Bool, cty.False)},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.Bool)},
		},
		NewInput: func() any { return new(booleanInput) },
		Fn: func(_ context.Context, input *booleanInput) (cty.Value, error) {
			return cty.BoolVal(input.Value), nil
		},
	})

	type textInput struct {
		Text string `rg:"text"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "text",
		Signature: typesys.Signature{
			Inputs:  []typesys.PortSpec{typesys.PortWithDefault("text", cty.String, cty.StringVal(""))},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.String)},
		},
		NewInput: func() any { return new(textInput) },
		Fn: func(_ context.Context, input *textInput) (cty.Value, error) {
			return cty.StringVal(input.Text), nil
		},
	})

	type identityInput struct {
		Value cty.Value `rg:"value"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "identity",
		Signature: typesys.Signature{
			Inputs:  []typesys.PortSpec{typesys.Port("value", cty.DynamicPseudoType)},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.DynamicPseudoType)},
		},
		NewInput: func() any { return new(identityInput) },
		Fn: func(_ context.Context, input *identityInput) (cty.Value, error) {
			return input.Value, nil
		},
	})

	type monitorInput struct {
		Value cty.Value `rg:"value"`
		Label string    `rg:"label"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "monitor",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("value", cty.DynamicPseudoType),
				typesys.PortWithDefault("label", cty.String, cty.StringVal("")),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.DynamicPseudoType)},
		},
		NewInput: func() any { return new(monitorInput) },
		Fn: func(_ context.Context, input *monitorInput) (cty.Value, error) {
			m.record(input.Label, input.Value)
			return input.Value, nil
		},
	})
}
