package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/registry"
	"github.com/vk/rastergraph/internal/typesys"
)

// ErrDeliberate is the root cause returned by the "fail" node, so tests
// can assert on it with errors.Is.
var ErrDeliberate = errors.New("deliberate handler failure")

// CountingModule registers a small arithmetic node set whose handlers
// count their invocations. Tests use the counts to observe memoization
// and recomputation behavior:
//
//	value    number source, passes its "value" input through
//	double   multiplies its input by two
//	add      sums its two inputs
//	identity generic pass-through
//	text     string source
//	fail     always returns ErrDeliberate
type CountingModule struct {
	mu    sync.Mutex
	calls map[string]int
}

// NewCountingModule creates a counting module with all counters at zero.
func NewCountingModule() *CountingModule {
	return &CountingModule{calls: make(map[string]int)}
}

// Calls returns how many times the handler for identifier has run.
func (m *CountingModule) Calls(identifier string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[identifier]
}

// TotalCalls returns the number of handler invocations across all node types.
func (m *CountingModule) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// Reset zeroes all counters.
func (m *CountingModule) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[string]int)
}

func (m *CountingModule) inc(identifier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[identifier]++
}

// Register implements the registry.Module interface.
func (m *CountingModule) Register(r *registry.Registry) {
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
			m.inc("value")
			return cty.NumberFloatVal(input.Value), nil
		},
	})

	type doubleInput struct {
		Value float64 `rg:"value"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "double",
		Signature: typesys.Signature{
			Inputs:  []typesys.PortSpec{typesys.Port("value", cty.Number)},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.Number)},
		},
		NewInput: func() any { return new(doubleInput) },
		Fn: func(_ context.Context, input *doubleInput) (cty.Value, error) {
			m.inc("double")
			return cty.NumberFloatVal(input.Value * 2), nil
		},
	})

	type addInput struct {
		A float64 `rg:"a"`
		B float64 `rg:"b"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "add",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("a", cty.Number),
				typesys.Port("b", cty.Number),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.Number)},
		},
		NewInput: func() any { return new(addInput) },
		Fn: func(_ context.Context, input *addInput) (cty.Value, error) {
			m.inc("add")
			return cty.NumberFloatVal(input.A + input.B), nil
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
			m.inc("identity")
			return input.Value, nil
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
			m.inc("text")
			return cty.StringVal(input.Text), nil
		},
	})

	type failInput struct {
		Value float64 `rg:"value"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "fail",
		Signature: typesys.Signature{
			Inputs:  []typesys.PortSpec{typesys.PortWithDefault("value", cty.Number, cty.NumberIntVal(0))},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.Number)},
		},
		NewInput: func() any { return new(failInput) },
		Fn: func(_ context.Context, input *failInput) (cty.Value, error) {
			m.inc("fail")
			return cty.NilVal, ErrDeliberate
		},
	})
}
