package registry

import (
	"fmt"

	"github.com/vk/rastergraph/internal/typesys"
)

// Module is the interface that all node modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all the registered node implementations and the implicit
// conversion table for a single application instance. It is populated at
// startup and read-only afterwards.
type Registry struct {
	NodeRegistry map[string]*RegisteredNode
	Conversions  *typesys.ConversionTable
}

// New creates and initializes a new Registry instance. The conversion
// table starts with the built-in conversions; modules add their own
// during Register.
func New() *Registry {
	return &Registry{
		NodeRegistry: make(map[string]*RegisteredNode),
		Conversions:  typesys.NewConversionTable(),
	}
}

// Install registers every module in order. Installation happens exactly
// once, before the first compile.
func (r *Registry) Install(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}

// NotFoundError reports a document node type with no registry entry.
type NotFoundError struct {
	Identifier string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no registered node type %q", e.Identifier)
}

// Lookup resolves a node type identifier to its registered implementation.
func (r *Registry) Lookup(identifier string) (*RegisteredNode, error) {
	n, ok := r.NodeRegistry[identifier]
	if !ok {
		return nil, &NotFoundError{Identifier: identifier}
	}
	return n, nil
}
