package testutil

import "github.com/vk/rastergraph/internal/registry"

// SimpleModule is a test helper for easily creating a mock module that
// registers a single node type.
type SimpleModule struct {
	Node *registry.RegisteredNode
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	if m.Node != nil {
		r.RegisterNode(m.Node)
	}
}
