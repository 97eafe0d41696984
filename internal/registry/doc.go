// Package registry provides the central catalog for the node system.
//
// The Registry stores mappings between the node type identifiers used in
// documents (e.g. "grayscale") and the compiled Go parts that implement
// them: the typed signature, the native handler and, for device-eligible
// nodes, the WGSL kernel. It also owns the implicit conversion table the
// compiler consults when wiring differently-typed ports.
//
// During application startup the registry is populated by the node
// modules and then validated, so that signatures and Go handler structs
// are perfectly in sync before the first compile, preventing a wide class
// of runtime errors.
package registry
