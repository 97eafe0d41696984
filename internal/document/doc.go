// Package document holds the editable graph model: nodes with typed ports,
// connections, stored constants, and nested subgraphs kept in an arena on
// the document.
//
// Structural mutations go through the Document methods, which enforce the
// model's two standing invariants before committing any change: every input
// has at most one incoming connection, and no sequence of connections or
// subgraph references forms a cycle. An operation that would violate either
// is rejected with no partial effect. Every successful mutation marks the
// document dirty so callers know a recompilation is due.
//
// Reading a document (serialization, compilation, display) never mutates it.
package document
