package typesys

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// PortSpec describes one typed slot of a node signature.
type PortSpec struct {
	// Name identifies the port in documents and error messages.
	Name string
	// Type is the port's declared type; cty.DynamicPseudoType marks a
	// generic port resolved at compile time.
	Type cty.Type
	// Default is the value used when an input port has neither a
	// connection nor a stored constant. cty.NilVal means no default.
	Default cty.Value
}

// Port builds a PortSpec without a default.
func Port(name string, t cty.Type) PortSpec {
	return PortSpec{Name: name, Type: t}
}

// PortWithDefault builds a PortSpec with a default value.
func PortWithDefault(name string, t cty.Type, def cty.Value) PortSpec {
	return PortSpec{Name: name, Type: t, Default: def}
}

// Signature is a node's typed interface: ordered inputs and outputs.
type Signature struct {
	Inputs  []PortSpec
	Outputs []PortSpec
}

// IsGeneric reports whether t is the generic placeholder.
func IsGeneric(t cty.Type) bool {
	return t.Equals(cty.DynamicPseudoType)
}

// TypeError is a compile-time type failure attributed to a specific node
// and port.
type TypeError struct {
	Node   string
	Port   string
	Got    cty.Type
	Want   cty.Type
	Detail string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	msg := fmt.Sprintf("type error at node %s", e.Node)
	if e.Port != "" {
		msg += fmt.Sprintf(", port %q", e.Port)
	}
	if e.Got != cty.NilType || e.Want != cty.NilType {
		msg += fmt.Sprintf(": cannot use %s where %s is required", friendly(e.Got), friendly(e.Want))
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func friendly(t cty.Type) string {
	if t == cty.NilType {
		return "(unresolved)"
	}
	return t.FriendlyName()
}

// BindSignature resolves a signature's generic ports given the resolved
// types of its inputs. inputTypes must have one entry per input port;
// cty.NilType marks an input whose type is not yet known. The returned
// slice holds the concrete output types.
//
// All generic ports share one binding. The binding is taken from the first
// generic input with a known type; a second generic input of a different
// type is a conflict.
func BindSignature(sig Signature, inputTypes []cty.Type) ([]cty.Type, error) {
	if len(inputTypes) != len(sig.Inputs) {
		return nil, fmt.Errorf("signature arity mismatch: %d inputs declared, %d provided", len(sig.Inputs), len(inputTypes))
	}

	binding := cty.NilType
	for i, spec := range sig.Inputs {
		if !IsGeneric(spec.Type) {
			continue
		}
		t := inputTypes[i]
		if t == cty.NilType {
			return nil, fmt.Errorf("generic input %q could not be resolved", spec.Name)
		}
		if binding == cty.NilType {
			binding = t
			continue
		}
		if !binding.Equals(t) {
			return nil, fmt.Errorf("generic inputs disagree: %q resolved to %s, but an earlier generic input resolved to %s",
				spec.Name, t.FriendlyName(), binding.FriendlyName())
		}
	}

	outputs := make([]cty.Type, len(sig.Outputs))
	for i, spec := range sig.Outputs {
		if !IsGeneric(spec.Type) {
			outputs[i] = spec.Type
			continue
		}
		if binding == cty.NilType {
			return nil, fmt.Errorf("generic output %q has no generic input to bind from", spec.Name)
		}
		outputs[i] = binding
	}
	return outputs, nil
}
