package registry

import (
	"fmt"
	"log/slog"

	"github.com/vk/rastergraph/internal/gpu"
	"github.com/vk/rastergraph/internal/typesys"
)

// RegisteredNode holds the compiled Go parts of one node type.
type RegisteredNode struct {
	// Identifier is the node type name used by documents, e.g. "grayscale".
	Identifier string

	// Signature declares the ordered input and output ports.
	Signature typesys.Signature

	// NewInput allocates the handler's input struct. Nil for handlers
	// that take no inputs.
	NewInput func() any

	// Fn is the native handler, shaped
	//
	//	func(ctx context.Context, input *T) (cty.Value, error)
	//
	// where *T matches NewInput's return.
	Fn any

	// Kernel is the optional device implementation. A node with a
	// kernel is eligible for fused GPU dispatch; Fn remains the
	// fallback.
	Kernel *gpu.Kernel
}

// RegisterNode registers a node type implementation.
func (r *Registry) RegisterNode(node *RegisteredNode) {
	if node.Identifier == "" {
		panic("node registered without an identifier")
	}
	if _, exists := r.NodeRegistry[node.Identifier]; exists {
		panic(fmt.Sprintf("node type '%s' already registered", node.Identifier))
	}
	slog.Debug("Registering node type.", "identifier", node.Identifier)
	r.NodeRegistry[node.Identifier] = node
}
