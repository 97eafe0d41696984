// Package proto defines the compiled form of a document graph: a flat,
// fully typed, topologically ordered network of ProtoNodes.
//
// A ProtoNode is immutable once produced. Its inputs are frozen to either
// a literal value or a positional reference to an earlier node in the
// network, so evaluation never consults the editable document. Identities
// are call-path strings ("7", "7/3") that stay stable across
// recompilations as long as the originating nodes do, which is what lets
// the memo cache survive edits elsewhere in the graph.
package proto
