package proto

import (
	"fmt"
	"strconv"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/document"
	"github.com/vk/rastergraph/internal/value"
)

// Identity is a ProtoNode's stable call-path identity. A root-level node's
// identity is its NodeID in decimal; a node inlined from a subgraph call
// site appends its own NodeID to the call site's identity ("7/3").
type Identity string

// RootIdentity is the identity of a root-level document node.
func RootIdentity(id document.NodeID) Identity {
	return Identity(strconv.FormatUint(uint64(id), 10))
}

// Child scopes an inlined node's identity to its call site.
func (i Identity) Child(id document.NodeID) Identity {
	return Identity(string(i) + "/" + strconv.FormatUint(uint64(id), 10))
}

// Ref points at an output slot of an earlier node in the network.
type Ref struct {
	Index  int
	Output int
}

// Input is one frozen input: exactly one of Literal and Ref is set.
// Convert names the implicit conversion the evaluator applies to the
// referenced value, empty when none is needed.
type Input struct {
	Literal cty.Value
	Ref     *Ref
	Convert string
	Type    cty.Type
}

// IsLiteral reports whether the input carries a literal value.
func (in Input) IsLiteral() bool {
	return in.Ref == nil
}

// Node is one compiled node. Fields are never mutated after compilation.
type Node struct {
	Identity    Identity
	Type        string
	Inputs      []Input
	OutputTypes []cty.Type
}

// Network is the compiled program: nodes ordered so that every reference
// points backwards, plus the mapping from root-level document nodes to
// their compiled positions.
type Network struct {
	Nodes []*Node

	// Sources maps each root-level document node to its index in Nodes.
	Sources map[document.NodeID]int

	fingerprint    value.Digest
	fingerprintSet bool
}

// Index returns the compiled position of a root-level document node.
func (n *Network) Index(id document.NodeID) (int, bool) {
	idx, ok := n.Sources[id]
	return idx, ok
}

// Closure returns the indices of a node's ancestor closure, the node
// itself included, in network order. Evaluation of the node needs exactly
// these nodes.
func (n *Network) Closure(index int) []int {
	needed := make([]bool, index+1)
	needed[index] = true
	for i := index; i >= 0; i-- {
		if !needed[i] {
			continue
		}
		for _, in := range n.Nodes[i].Inputs {
			if in.Ref != nil {
				needed[in.Ref.Index] = true
			}
		}
	}
	closure := make([]int, 0, index+1)
	for i, ok := range needed {
		if ok {
			closure = append(closure, i)
		}
	}
	return closure
}

// Validate checks the structural invariants: unique identities, references
// strictly backwards, output slots in range, exactly one of literal and
// reference per input.
func (n *Network) Validate() error {
	seen := make(map[Identity]int, len(n.Nodes))
	for i, node := range n.Nodes {
		if prev, dup := seen[node.Identity]; dup {
			return fmt.Errorf("nodes %d and %d share identity %q", prev, i, node.Identity)
		}
		seen[node.Identity] = i
		if len(node.OutputTypes) == 0 {
			return fmt.Errorf("node %q has no outputs", node.Identity)
		}
		for slot, in := range node.Inputs {
			if in.Ref == nil {
				if in.Literal == cty.NilVal {
					return fmt.Errorf("node %q input %d is neither literal nor reference", node.Identity, slot)
				}
				continue
			}
			if in.Literal != cty.NilVal {
				return fmt.Errorf("node %q input %d is both literal and reference", node.Identity, slot)
			}
			if in.Ref.Index < 0 || in.Ref.Index >= i {
				return fmt.Errorf("node %q input %d references index %d, want an earlier node", node.Identity, slot, in.Ref.Index)
			}
			producer := n.Nodes[in.Ref.Index]
			if in.Ref.Output < 0 || in.Ref.Output >= len(producer.OutputTypes) {
				return fmt.Errorf("node %q input %d references output %d of %q which has %d outputs",
					node.Identity, slot, in.Ref.Output, producer.Identity, len(producer.OutputTypes))
			}
		}
	}
	for id, idx := range n.Sources {
		if idx < 0 || idx >= len(n.Nodes) {
			return fmt.Errorf("document node %d maps to out-of-range index %d", id, idx)
		}
	}
	return nil
}
