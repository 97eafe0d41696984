// Package compile lowers an editable document graph into an executable
// proto.Network.
//
// Compilation runs in three passes: inline every subgraph call into a
// flat node list with call-path identities, order the flat list
// topologically with a deterministic tie-break, then resolve types and
// freeze each node's inputs into an immutable ProtoNode. The same
// document state always compiles to a byte-identical network.
//
// Failures never abort the whole compilation. An error poisons the
// failing node and everything downstream of it; unaffected siblings still
// compile and appear in the returned network. All root causes are
// collected in Diagnostics, each attributed to a root-level document node
// and the exact inlined call path.
package compile
