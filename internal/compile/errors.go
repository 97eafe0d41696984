package compile

import (
	"fmt"
	"strings"

	"github.com/vk/rastergraph/internal/document"
	"github.com/vk/rastergraph/internal/proto"
)

// UnresolvedReferenceError reports a node referencing something that does
// not exist: a registry entry, a subgraph, an import or export point, or
// a port index.
type UnresolvedReferenceError struct {
	Node   document.NodeID
	Detail string
}

// Error implements the error interface.
func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference at node %d: %s", e.Node, e.Detail)
}

// Diagnostic is one compile failure. Node is the root-level document node
// whose output is affected; Path is the exact failing node, which differs
// from the root when the failure happened inside an inlined subgraph.
type Diagnostic struct {
	Node document.NodeID
	Path proto.Identity
	Err  error
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	if string(d.Path) != "" {
		return fmt.Sprintf("node %d (at %s): %s", d.Node, d.Path, d.Err)
	}
	return fmt.Sprintf("node %d: %s", d.Node, d.Err)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// Diagnostics aggregates every root cause found during one compilation.
// Poison that merely propagated downstream is not repeated; each entry is
// an independent failure.
type Diagnostics []*Diagnostic

// HasErrors reports whether the compilation produced any failure.
func (d Diagnostics) HasErrors() bool {
	return len(d) > 0
}

// Error implements the error interface.
func (d Diagnostics) Error() string {
	switch len(d) {
	case 0:
		return "no diagnostics"
	case 1:
		return d[0].Error()
	}
	msgs := make([]string, len(d))
	for i, diag := range d {
		msgs[i] = diag.Error()
	}
	return fmt.Sprintf("%d compile errors:\n- %s", len(d), strings.Join(msgs, "\n- "))
}

// ForNode returns the diagnostics attributed to one root-level node.
func (d Diagnostics) ForNode(id document.NodeID) Diagnostics {
	var out Diagnostics
	for _, diag := range d {
		if diag.Node == id {
			out = append(out, diag)
		}
	}
	return out
}

func (d *Diagnostics) report(root document.NodeID, path proto.Identity, err error) {
	*d = append(*d, &Diagnostic{Node: root, Path: path, Err: err})
}
