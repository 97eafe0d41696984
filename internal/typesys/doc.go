// Package typesys is the port type system: it decides whether a producer
// output may feed a consumer input, holds the enumerable table of implicit
// conversions, and resolves generic ports to concrete types during
// compilation.
//
// Types are cty types. The generic placeholder is cty.DynamicPseudoType,
// written as "any" in documents; all generic ports of a single node share
// one type variable, so a generic pass-through node's output takes the
// type of whatever feeds its input.
package typesys
