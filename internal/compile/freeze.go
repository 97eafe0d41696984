package compile

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/document"
	"github.com/vk/rastergraph/internal/proto"
	"github.com/vk/rastergraph/internal/registry"
	"github.com/vk/rastergraph/internal/typesys"
)

// freeze resolves types over the ordered flat nodes and freezes each into
// an immutable ProtoNode. Nodes whose producers are missing or poisoned
// are dropped silently; new root causes are reported.
func freeze(ordered []*flatNode, aliases []callAlias, reg *registry.Registry, diags *Diagnostics) *proto.Network {
	network := &proto.Network{Sources: make(map[document.NodeID]int)}
	finalIndex := make(map[proto.Identity]int, len(ordered))

	for _, fn := range ordered {
		node := freezeNode(fn, network, finalIndex, reg, diags)
		if node == nil {
			continue
		}
		finalIndex[node.Identity] = len(network.Nodes)
		if fn.rootLevel {
			network.Sources[fn.id] = len(network.Nodes)
		}
		network.Nodes = append(network.Nodes, node)
	}

	for _, a := range aliases {
		if a.src.ref == nil {
			continue
		}
		if idx, ok := finalIndex[a.src.ref.identity]; ok {
			network.Sources[a.id] = idx
		}
	}
	return network
}

func freezeNode(fn *flatNode, network *proto.Network, finalIndex map[proto.Identity]int, reg *registry.Registry, diags *Diagnostics) *proto.Node {
	entry, err := reg.Lookup(fn.typ)
	if err != nil {
		diags.report(fn.root, fn.identity, &UnresolvedReferenceError{Node: fn.root, Detail: fmt.Sprintf("unknown node type %q", fn.typ)})
		return nil
	}
	sig := entry.Signature

	if len(fn.inputs) > len(sig.Inputs) {
		diags.report(fn.root, fn.identity, &UnresolvedReferenceError{
			Node:   fn.root,
			Detail: fmt.Sprintf("node has %d inputs but type %q declares %d", len(fn.inputs), fn.typ, len(sig.Inputs)),
		})
		return nil
	}

	inputs := make([]proto.Input, len(sig.Inputs))
	arrived := make([]cty.Type, len(sig.Inputs))
	for i, spec := range sig.Inputs {
		var fi flatInput
		if i < len(fn.inputs) {
			fi = fn.inputs[i]
		}

		in, got, ok := freezeInput(fn, spec, fi, network, finalIndex, diags)
		if !ok {
			return nil
		}

		conv, compatible := reg.Conversions.Compatible(got, spec.Type)
		if !compatible {
			diags.report(fn.root, fn.identity, &typesys.TypeError{Node: string(fn.identity), Port: spec.Name, Got: got, Want: spec.Type})
			return nil
		}
		arrivedType := got
		if conv != nil {
			arrivedType = spec.Type
			if in.Ref != nil {
				in.Convert = conv.Name
			} else {
				lit, err := conv.Fn(in.Literal)
				if err != nil {
					diags.report(fn.root, fn.identity, &typesys.TypeError{Node: string(fn.identity), Port: spec.Name, Got: got, Want: spec.Type, Detail: err.Error()})
					return nil
				}
				in.Literal = lit
			}
		}
		in.Type = arrivedType
		inputs[i] = in
		arrived[i] = arrivedType
	}

	outputs, err := typesys.BindSignature(sig, arrived)
	if err != nil {
		diags.report(fn.root, fn.identity, &typesys.TypeError{Node: string(fn.identity), Detail: err.Error()})
		return nil
	}

	return &proto.Node{
		Identity:    fn.identity,
		Type:        fn.typ,
		Inputs:      inputs,
		OutputTypes: outputs,
	}
}

// freezeInput produces the frozen input and the concrete type arriving at
// the port, before any implicit conversion. ok=false means the node must
// be dropped; the root cause, if new, has been reported.
func freezeInput(fn *flatNode, spec typesys.PortSpec, fi flatInput, network *proto.Network, finalIndex map[proto.Identity]int, diags *Diagnostics) (proto.Input, cty.Type, bool) {
	switch {
	case fi.ref != nil:
		pidx, ok := finalIndex[fi.ref.identity]
		if !ok {
			// The producer was poisoned in an earlier phase.
			return proto.Input{}, cty.NilType, false
		}
		producer := network.Nodes[pidx]
		if fi.ref.output < 0 || fi.ref.output >= len(producer.OutputTypes) {
			diags.report(fn.root, fn.identity, &UnresolvedReferenceError{
				Node:   fn.root,
				Detail: fmt.Sprintf("references output %d of node %s, which has %d outputs", fi.ref.output, producer.Identity, len(producer.OutputTypes)),
			})
			return proto.Input{}, cty.NilType, false
		}
		return proto.Input{Ref: &proto.Ref{Index: pidx, Output: fi.ref.output}}, producer.OutputTypes[fi.ref.output], true

	case fi.constant != cty.NilVal:
		return proto.Input{Literal: fi.constant}, fi.constant.Type(), true

	case spec.Default != cty.NilVal:
		return proto.Input{Literal: spec.Default}, spec.Default.Type(), true
	}

	diags.report(fn.root, fn.identity, &typesys.TypeError{
		Node:   string(fn.identity),
		Port:   spec.Name,
		Detail: "input has no connection, stored constant, or default",
	})
	return proto.Input{}, cty.NilType, false
}
