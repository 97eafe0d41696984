package document

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// NodeID is a document-unique, stable identifier for a node instance. IDs
// are allocated monotonically and never reused for the document's lifetime,
// so insertion order is recoverable by comparing IDs.
type NodeID uint64

// GraphRef selects a graph within a document: the root graph or an entry
// in the subgraph arena.
type GraphRef int

// RootRef selects the document's root graph.
const RootRef GraphRef = -1

// SubgraphIndex identifies a subgraph in the document's arena.
type SubgraphIndex int

// NoSubgraph marks a node implemented by a registry entry rather than a
// nested subgraph.
const NoSubgraph SubgraphIndex = -1

// ImportNodeType is the node type of a subgraph's entry points. Import
// nodes are placeholders eliminated during compilation; they never reach
// the registry.
const ImportNodeType = "import"

// Connection names the producing end of an edge: an output slot of a node.
type Connection struct {
	Node   NodeID
	Output int
}

// Input is one input slot of a node: either connected to a producer or
// backed by a stored constant. A slot with neither falls back to the
// signature's default at compile time.
type Input struct {
	Source   *Connection
	Constant cty.Value
}

// DocumentNode is one editable node. It references either a registry entry
// (by Type) or a nested subgraph (by Subgraph index), never both.
type DocumentNode struct {
	ID       NodeID
	Name     string
	Type     string
	Subgraph SubgraphIndex
	Inputs   []Input
}

// Graph is one level of the document: an ordered node list plus the
// designated import and export nodes. Node order is insertion order and is
// the deterministic tie-break for compilation.
type Graph struct {
	Nodes   []*DocumentNode
	Imports []NodeID
	Exports []NodeID

	index map[NodeID]*DocumentNode
}

func newGraph() *Graph {
	return &Graph{index: make(map[NodeID]*DocumentNode)}
}

// Node returns the node with the given ID, if present.
func (g *Graph) Node(id NodeID) (*DocumentNode, bool) {
	n, ok := g.index[id]
	return n, ok
}

// Document is a complete editable graph: the root graph plus the subgraph
// arena that nested nodes reference by index.
type Document struct {
	Root      *Graph
	Subgraphs []*Graph

	nextID NodeID
	dirty  bool
}

// New creates an empty document. A new document is dirty: it has never
// been compiled.
func New() *Document {
	return &Document{
		Root:   newGraph(),
		nextID: 1,
		dirty:  true,
	}
}

// Graph resolves a GraphRef to the graph it names.
func (d *Document) Graph(ref GraphRef) (*Graph, error) {
	if ref == RootRef {
		return d.Root, nil
	}
	if ref < 0 || int(ref) >= len(d.Subgraphs) {
		return nil, fmt.Errorf("no subgraph with index %d", ref)
	}
	return d.Subgraphs[ref], nil
}

// Dirty reports whether the document has structural or value edits that
// have not been compiled yet.
func (d *Document) Dirty() bool {
	return d.dirty
}

// MarkClean records that the current state has been compiled. The compiler
// never calls this itself; the owning session decides when a compilation
// result has been adopted.
func (d *Document) MarkClean() {
	d.dirty = false
}

// Equal reports whether two documents are structurally identical: same
// graphs, same node IDs, names, implementations, connections and constants,
// and the same ID allocation state.
func (d *Document) Equal(other *Document) bool {
	if d.nextID != other.nextID || len(d.Subgraphs) != len(other.Subgraphs) {
		return false
	}
	if !graphEqual(d.Root, other.Root) {
		return false
	}
	for i, sg := range d.Subgraphs {
		if !graphEqual(sg, other.Subgraphs[i]) {
			return false
		}
	}
	return true
}

func graphEqual(a, b *Graph) bool {
	if len(a.Nodes) != len(b.Nodes) || len(a.Imports) != len(b.Imports) || len(a.Exports) != len(b.Exports) {
		return false
	}
	for i, n := range a.Nodes {
		if !nodeEqual(n, b.Nodes[i]) {
			return false
		}
	}
	for i, id := range a.Imports {
		if id != b.Imports[i] {
			return false
		}
	}
	for i, id := range a.Exports {
		if id != b.Exports[i] {
			return false
		}
	}
	return true
}

func nodeEqual(a, b *DocumentNode) bool {
	if a.ID != b.ID || a.Name != b.Name || a.Type != b.Type || a.Subgraph != b.Subgraph || len(a.Inputs) != len(b.Inputs) {
		return false
	}
	for i, in := range a.Inputs {
		o := b.Inputs[i]
		if (in.Source == nil) != (o.Source == nil) {
			return false
		}
		if in.Source != nil && *in.Source != *o.Source {
			return false
		}
		if (in.Constant == cty.NilVal) != (o.Constant == cty.NilVal) {
			return false
		}
		if in.Constant != cty.NilVal && !in.Constant.RawEquals(o.Constant) {
			return false
		}
	}
	return true
}
