package document

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// CycleError reports a structural mutation that was rejected because it
// would introduce a cycle, either among connections or among nested
// subgraph references. The document is unchanged when it is returned.
type CycleError struct {
	Node   NodeID
	Reason string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	if e.Node != 0 {
		return fmt.Sprintf("cycle rejected at node %d: %s", e.Node, e.Reason)
	}
	return "cycle rejected: " + e.Reason
}

// AddSubgraph appends an empty graph to the arena and returns its index.
func (d *Document) AddSubgraph() SubgraphIndex {
	d.Subgraphs = append(d.Subgraphs, newGraph())
	d.dirty = true
	return SubgraphIndex(len(d.Subgraphs) - 1)
}

// AddNode creates a registry-implemented node in the referenced graph.
func (d *Document) AddNode(ref GraphRef, nodeType, name string) (NodeID, error) {
	if nodeType == "" {
		return 0, fmt.Errorf("node type must not be empty")
	}
	g, err := d.Graph(ref)
	if err != nil {
		return 0, err
	}
	return d.appendNode(g, &DocumentNode{Type: nodeType, Name: name, Subgraph: NoSubgraph}), nil
}

// AddSubgraphNode creates a node whose implementation is a nested subgraph.
// It fails with a CycleError if placing the node would make any subgraph
// contain itself, directly or transitively.
func (d *Document) AddSubgraphNode(ref GraphRef, sub SubgraphIndex, name string) (NodeID, error) {
	g, err := d.Graph(ref)
	if err != nil {
		return 0, err
	}
	if sub < 0 || int(sub) >= len(d.Subgraphs) {
		return 0, fmt.Errorf("no subgraph with index %d", sub)
	}
	if ref != RootRef {
		if err := d.checkContainment(sub, SubgraphIndex(ref)); err != nil {
			return 0, err
		}
	}
	return d.appendNode(g, &DocumentNode{Subgraph: sub, Name: name}), nil
}

func (d *Document) appendNode(g *Graph, n *DocumentNode) NodeID {
	n.ID = d.nextID
	d.nextID++
	g.Nodes = append(g.Nodes, n)
	g.index[n.ID] = n
	d.dirty = true
	return n.ID
}

// checkContainment verifies that subgraph sub does not reach host through
// nested subgraph references, which would make host contain itself once a
// node referencing sub is placed inside it.
func (d *Document) checkContainment(sub, host SubgraphIndex) error {
	if sub == host {
		return &CycleError{Reason: fmt.Sprintf("subgraph %d cannot contain itself", host)}
	}
	seen := make(map[SubgraphIndex]bool)
	stack := []SubgraphIndex{sub}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		for _, n := range d.Subgraphs[cur].Nodes {
			if n.Subgraph == NoSubgraph {
				continue
			}
			if n.Subgraph == host {
				return &CycleError{Node: n.ID, Reason: fmt.Sprintf("subgraph %d transitively contains subgraph %d", sub, host)}
			}
			stack = append(stack, n.Subgraph)
		}
	}
	return nil
}

// RemoveNode deletes a node and every connection that references it. The
// node's ID is retired, never reused.
func (d *Document) RemoveNode(ref GraphRef, id NodeID) error {
	g, err := d.Graph(ref)
	if err != nil {
		return err
	}
	if _, ok := g.index[id]; !ok {
		return fmt.Errorf("no node with id %d", id)
	}

	kept := g.Nodes[:0]
	for _, n := range g.Nodes {
		if n.ID == id {
			continue
		}
		for i := range n.Inputs {
			if src := n.Inputs[i].Source; src != nil && src.Node == id {
				n.Inputs[i].Source = nil
			}
		}
		kept = append(kept, n)
	}
	g.Nodes = kept
	delete(g.index, id)
	g.Imports = removeID(g.Imports, id)
	g.Exports = removeID(g.Exports, id)

	d.dirty = true
	return nil
}

func removeID(ids []NodeID, id NodeID) []NodeID {
	kept := ids[:0]
	for _, v := range ids {
		if v != id {
			kept = append(kept, v)
		}
	}
	return kept
}

// Connect wires an output of one node into an input slot of another within
// the same graph, replacing any existing connection on that slot. A
// connection that would close a cycle is rejected with a CycleError and no
// mutation.
func (d *Document) Connect(ref GraphRef, from NodeID, output int, to NodeID, input int) error {
	g, err := d.Graph(ref)
	if err != nil {
		return err
	}
	if _, ok := g.index[from]; !ok {
		return fmt.Errorf("no node with id %d", from)
	}
	toNode, ok := g.index[to]
	if !ok {
		return fmt.Errorf("no node with id %d", to)
	}
	if output < 0 || input < 0 {
		return fmt.Errorf("port indexes must not be negative")
	}
	if from == to {
		return &CycleError{Node: to, Reason: "a node cannot feed its own input"}
	}

	// Adding from->to closes a cycle exactly when `from` is already
	// downstream of `to`. The slot's current connection does not
	// participate in that walk, so replacement needs no special casing.
	if g.reaches(to, from) {
		return &CycleError{Node: to, Reason: fmt.Sprintf("node %d is downstream of node %d", from, to)}
	}

	growInputs(toNode, input)
	toNode.Inputs[input].Source = &Connection{Node: from, Output: output}
	d.dirty = true
	return nil
}

// reaches reports whether target is reachable from start by walking
// connections downstream.
func (g *Graph) reaches(start, target NodeID) bool {
	seen := make(map[NodeID]bool)
	stack := []NodeID{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == target {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		for _, n := range g.Nodes {
			for _, in := range n.Inputs {
				if in.Source != nil && in.Source.Node == cur {
					stack = append(stack, n.ID)
				}
			}
		}
	}
	return false
}

// Disconnect clears the connection on an input slot. The slot's stored
// constant, if any, becomes effective again.
func (d *Document) Disconnect(ref GraphRef, to NodeID, input int) error {
	g, err := d.Graph(ref)
	if err != nil {
		return err
	}
	n, ok := g.index[to]
	if !ok {
		return fmt.Errorf("no node with id %d", to)
	}
	if input < 0 || input >= len(n.Inputs) || n.Inputs[input].Source == nil {
		return fmt.Errorf("node %d input %d is not connected", to, input)
	}
	n.Inputs[input].Source = nil
	d.dirty = true
	return nil
}

// SetConstant stores a constant on an input slot. The constant takes
// effect whenever the slot has no connection.
func (d *Document) SetConstant(ref GraphRef, id NodeID, input int, v cty.Value) error {
	g, err := d.Graph(ref)
	if err != nil {
		return err
	}
	n, ok := g.index[id]
	if !ok {
		return fmt.Errorf("no node with id %d", id)
	}
	if input < 0 {
		return fmt.Errorf("port indexes must not be negative")
	}
	if v == cty.NilVal {
		return fmt.Errorf("constant must not be nil")
	}
	growInputs(n, input)
	n.Inputs[input].Constant = v
	d.dirty = true
	return nil
}

func growInputs(n *DocumentNode, idx int) {
	for len(n.Inputs) <= idx {
		n.Inputs = append(n.Inputs, Input{})
	}
}

// AddExport designates a node's output as externally observable. Root
// exports are the targets evaluation requests may name; a subgraph's
// single export is its value when instantiated.
func (d *Document) AddExport(ref GraphRef, id NodeID) error {
	g, err := d.Graph(ref)
	if err != nil {
		return err
	}
	if _, ok := g.index[id]; !ok {
		return fmt.Errorf("no node with id %d", id)
	}
	for _, existing := range g.Exports {
		if existing == id {
			return nil
		}
	}
	g.Exports = append(g.Exports, id)
	d.dirty = true
	return nil
}

// AddImport designates an import node as the next entry point of a
// subgraph. Binding order is declaration order.
func (d *Document) AddImport(ref GraphRef, id NodeID) error {
	if ref == RootRef {
		return fmt.Errorf("the root graph cannot declare imports")
	}
	g, err := d.Graph(ref)
	if err != nil {
		return err
	}
	n, ok := g.index[id]
	if !ok {
		return fmt.Errorf("no node with id %d", id)
	}
	if n.Type != ImportNodeType {
		return fmt.Errorf("node %d is not an import node", id)
	}
	g.Imports = append(g.Imports, id)
	d.dirty = true
	return nil
}
