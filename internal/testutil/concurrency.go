package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/registry"
	"github.com/vk/rastergraph/internal/typesys"
)

// MockSleeperModule is a shared, self-contained module for concurrency tests.
// It registers a "sleeper" node type that passes its numeric value through
// after a fixed delay, and records the execution window of each invocation
// keyed by the node's tag input.
type MockSleeperModule struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewMockSleeperModule creates a new sleeper module for testing.
func NewMockSleeperModule(completionChan chan<- string, sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

// Window returns the recorded execution window for a tag, or nil if the
// node never ran.
func (m *MockSleeperModule) Window(tag string) *ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ExecutionTimes[tag]
}

// Register registers the "sleeper" node's Go handler.
func (m *MockSleeperModule) Register(r *registry.Registry) {
	type sleeperInput struct {
		Value float64 `rg:"value"`
		Tag   string  `rg:"tag"`
	}

	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "sleeper",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.PortWithDefault("value", cty.Number, cty.NumberIntVal(0)),
				typesys.PortWithDefault("tag", cty.String, cty.StringVal("")),
			},
			Outputs: []typesys.PortSpec{
				typesys.Port("result", cty.Number),
			},
		},
		NewInput: func() any { return new(sleeperInput) },
		Fn: func(_ context.Context, input *sleeperInput) (cty.Value, error) {
			startTime := time.Now()
			time.Sleep(m.sleepDuration)
			endTime := time.Now()

			m.mu.Lock()
			m.ExecutionTimes[input.Tag] = &ExecutionRecord{Start: startTime, End: endTime}
			m.mu.Unlock()

			if m.completionChan != nil {
				m.completionChan <- input.Tag
			}
			return cty.NumberFloatVal(input.Value), nil
		},
	})
}
