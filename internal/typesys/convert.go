package typesys

import (
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Conversion is one registered implicit conversion. Connections whose end
// types differ are legal exactly when a conversion from the producer type
// to the consumer type exists in the table.
type Conversion struct {
	// Name identifies the conversion in compiled networks, so a frozen
	// network can be re-associated with its conversion functions.
	Name string
	From cty.Type
	To   cty.Type
	// Fn performs the conversion. It must be pure: the same input value
	// always yields the same output value.
	Fn func(cty.Value) (cty.Value, error)
}

// ConversionTable is the enumerable set of implicit conversions known to
// one application instance. It is populated during module registration and
// read-only afterwards, like the node registry itself.
type ConversionTable struct {
	order  []string
	byName map[string]*Conversion
	byPair map[[2]string]*Conversion
}

// NewConversionTable returns a table seeded with the built-in scalar
// conversions: bool to number and number to string.
func NewConversionTable() *ConversionTable {
	t := &ConversionTable{
		byName: make(map[string]*Conversion),
		byPair: make(map[[2]string]*Conversion),
	}

	t.Register(Conversion{
		Name: "bool_to_number",
		From: cty.Bool,
		To:   cty.Number,
		Fn: func(v cty.Value) (cty.Value, error) {
			if v.True() {
				return cty.NumberIntVal(1), nil
			}
			return cty.NumberIntVal(0), nil
		},
	})
	t.Register(Conversion{
		Name: "number_to_string",
		From: cty.Number,
		To:   cty.String,
		Fn: func(v cty.Value) (cty.Value, error) {
			out, err := convert.Convert(v, cty.String)
			if err != nil {
				return cty.NilVal, err
			}
			return out, nil
		},
	})

	return t
}

// Register adds a conversion to the table. Registering a duplicate name or
// a duplicate (from, to) pair panics: conversions are installed once at
// startup, and a collision is a programming error.
func (t *ConversionTable) Register(c Conversion) {
	if c.Name == "" || c.Fn == nil {
		panic("typesys: conversion must have a name and a function")
	}
	if _, exists := t.byName[c.Name]; exists {
		panic(fmt.Sprintf("typesys: conversion %q already registered", c.Name))
	}
	pair := pairKey(c.From, c.To)
	if _, exists := t.byPair[pair]; exists {
		panic(fmt.Sprintf("typesys: conversion from %s to %s already registered", c.From.FriendlyName(), c.To.FriendlyName()))
	}

	stored := c
	t.order = append(t.order, c.Name)
	t.byName[c.Name] = &stored
	t.byPair[pair] = &stored
}

// Lookup returns the conversion from one type to another, if registered.
func (t *ConversionTable) Lookup(from, to cty.Type) (*Conversion, bool) {
	c, ok := t.byPair[pairKey(from, to)]
	return c, ok
}

// LookupName returns a conversion by its registered name.
func (t *ConversionTable) LookupName(name string) (*Conversion, bool) {
	c, ok := t.byName[name]
	return c, ok
}

// All returns every registered conversion in registration order.
func (t *ConversionTable) All() []Conversion {
	out := make([]Conversion, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, *t.byName[name])
	}
	return out
}

// Compatible decides whether a produced type may feed a consumed type.
// Identical types and unbound generics are compatible directly; otherwise
// a registered conversion is required and returned.
func (t *ConversionTable) Compatible(produced, consumed cty.Type) (*Conversion, bool) {
	if produced.Equals(consumed) || IsGeneric(produced) || IsGeneric(consumed) {
		return nil, true
	}
	if c, ok := t.Lookup(produced, consumed); ok {
		return c, true
	}
	return nil, false
}

// NumberInt coerces a cty number to an int64, erroring on fractions.
// Shared by node implementations that take integer-valued parameters.
func NumberInt(v cty.Value) (int64, error) {
	if !v.Type().Equals(cty.Number) {
		return 0, fmt.Errorf("expected number, got %s", v.Type().FriendlyName())
	}
	bf := v.AsBigFloat()
	n, acc := bf.Int64()
	if acc != big.Exact {
		return 0, fmt.Errorf("expected integer, got %s", bf.String())
	}
	return n, nil
}

func pairKey(from, to cty.Type) [2]string {
	return [2]string{from.GoString(), to.GoString()}
}
