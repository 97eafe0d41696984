package document

import (
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// The wire form keeps node identity, wiring, constants and nesting
// exactly. Constants carry their cty type alongside the value so a
// round trip restores them losslessly.

type documentJSON struct {
	NextID    uint64       `json:"next_id"`
	Root      *graphJSON   `json:"root"`
	Subgraphs []*graphJSON `json:"subgraphs,omitempty"`
}

type graphJSON struct {
	Nodes   []nodeJSON `json:"nodes"`
	Imports []NodeID   `json:"imports,omitempty"`
	Exports []NodeID   `json:"exports,omitempty"`
}

type nodeJSON struct {
	ID       NodeID      `json:"id"`
	Name     string      `json:"name,omitempty"`
	Type     string      `json:"type,omitempty"`
	Subgraph int         `json:"subgraph"`
	Inputs   []inputJSON `json:"inputs,omitempty"`
}

type inputJSON struct {
	Source       *connectionJSON `json:"source,omitempty"`
	Constant     json.RawMessage `json:"constant,omitempty"`
	ConstantType json.RawMessage `json:"constant_type,omitempty"`
}

type connectionJSON struct {
	Node   NodeID `json:"node"`
	Output int    `json:"output"`
}

// Marshal encodes the document as JSON. Constants of capsule type cannot
// be represented on the wire and make Marshal fail.
func Marshal(d *Document) ([]byte, error) {
	root, err := marshalGraph(d.Root)
	if err != nil {
		return nil, err
	}
	out := documentJSON{NextID: uint64(d.nextID), Root: root}
	for i, g := range d.Subgraphs {
		gj, err := marshalGraph(g)
		if err != nil {
			return nil, fmt.Errorf("subgraph %d: %w", i, err)
		}
		out.Subgraphs = append(out.Subgraphs, gj)
	}
	return json.Marshal(&out)
}

func marshalGraph(g *Graph) (*graphJSON, error) {
	gj := &graphJSON{
		Nodes:   make([]nodeJSON, 0, len(g.Nodes)),
		Imports: g.Imports,
		Exports: g.Exports,
	}
	for _, n := range g.Nodes {
		nj := nodeJSON{ID: n.ID, Name: n.Name, Type: n.Type, Subgraph: int(n.Subgraph)}
		for i, in := range n.Inputs {
			var ij inputJSON
			if in.Source != nil {
				ij.Source = &connectionJSON{Node: in.Source.Node, Output: in.Source.Output}
			}
			if in.Constant != cty.NilVal {
				if in.Constant.Type().IsCapsuleType() {
					return nil, fmt.Errorf("node %d input %d: constant of type %s cannot be serialized", n.ID, i, in.Constant.Type().FriendlyName())
				}
				val, err := ctyjson.Marshal(in.Constant, in.Constant.Type())
				if err != nil {
					return nil, fmt.Errorf("node %d input %d: %w", n.ID, i, err)
				}
				ty, err := ctyjson.MarshalType(in.Constant.Type())
				if err != nil {
					return nil, fmt.Errorf("node %d input %d: %w", n.ID, i, err)
				}
				ij.Constant = val
				ij.ConstantType = ty
			}
			nj.Inputs = append(nj.Inputs, ij)
		}
		gj.Nodes = append(gj.Nodes, nj)
	}
	return gj, nil
}

// Unmarshal decodes a document previously produced by Marshal. The result
// is marked dirty so the next evaluation compiles it from scratch.
func Unmarshal(data []byte) (*Document, error) {
	var in documentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	if in.Root == nil {
		return nil, fmt.Errorf("document has no root graph")
	}

	d := &Document{nextID: NodeID(in.NextID), dirty: true}
	var maxID NodeID

	root, err := unmarshalGraph(in.Root, len(in.Subgraphs), &maxID)
	if err != nil {
		return nil, err
	}
	d.Root = root
	for i, gj := range in.Subgraphs {
		g, err := unmarshalGraph(gj, len(in.Subgraphs), &maxID)
		if err != nil {
			return nil, fmt.Errorf("subgraph %d: %w", i, err)
		}
		d.Subgraphs = append(d.Subgraphs, g)
	}

	if d.nextID <= maxID {
		d.nextID = maxID + 1
	}
	if d.nextID == 0 {
		d.nextID = 1
	}
	return d, nil
}

func unmarshalGraph(gj *graphJSON, subgraphs int, maxID *NodeID) (*Graph, error) {
	g := newGraph()
	g.Imports = gj.Imports
	g.Exports = gj.Exports
	for _, nj := range gj.Nodes {
		if nj.ID == 0 {
			return nil, fmt.Errorf("node without an id")
		}
		if _, dup := g.index[nj.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %d", nj.ID)
		}
		if nj.Subgraph != int(NoSubgraph) && (nj.Subgraph < 0 || nj.Subgraph >= subgraphs) {
			return nil, fmt.Errorf("node %d references missing subgraph %d", nj.ID, nj.Subgraph)
		}
		n := &DocumentNode{ID: nj.ID, Name: nj.Name, Type: nj.Type, Subgraph: SubgraphIndex(nj.Subgraph)}
		for i, ij := range nj.Inputs {
			var in Input
			if ij.Source != nil {
				in.Source = &Connection{Node: ij.Source.Node, Output: ij.Source.Output}
			}
			if len(ij.Constant) > 0 {
				ty, err := ctyjson.UnmarshalType(ij.ConstantType)
				if err != nil {
					return nil, fmt.Errorf("node %d input %d: %w", nj.ID, i, err)
				}
				v, err := ctyjson.Unmarshal(ij.Constant, ty)
				if err != nil {
					return nil, fmt.Errorf("node %d input %d: %w", nj.ID, i, err)
				}
				in.Constant = v
			}
			n.Inputs = append(n.Inputs, in)
		}
		if nj.ID > *maxID {
			*maxID = nj.ID
		}
		g.Nodes = append(g.Nodes, n)
		g.index[n.ID] = n
	}
	for _, id := range g.Imports {
		if _, ok := g.index[id]; !ok {
			return nil, fmt.Errorf("import references missing node %d", id)
		}
	}
	for _, id := range g.Exports {
		if _, ok := g.index[id]; !ok {
			return nil, fmt.Errorf("export references missing node %d", id)
		}
	}
	return g, nil
}
