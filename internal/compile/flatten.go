package compile

import (
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/document"
	"github.com/vk/rastergraph/internal/proto"
)

// errPoisoned marks a node downstream of an already-reported failure.
// It never reaches Diagnostics; the root cause was recorded where it was
// discovered.
var errPoisoned = errors.New("upstream compilation failure")

// flatNode is a node that survived inlining, before type resolution.
type flatNode struct {
	identity  proto.Identity
	key       []uint64
	root      document.NodeID
	id        document.NodeID
	rootLevel bool
	typ       string
	inputs    []flatInput
}

// flatInput is a partially frozen input: a reference into flat space, a
// constant, or empty (the signature default applies at freeze time).
type flatInput struct {
	ref      *flatRef
	constant cty.Value
}

type flatRef struct {
	identity proto.Identity
	output   int
}

// instance is one graph being inlined: the root graph, or a subgraph at a
// specific call site.
type instance struct {
	g       *document.Graph
	prefix  proto.Identity
	key     []uint64
	root    document.NodeID
	imports []flatInput
	entries map[document.NodeID]*entry
}

type entry struct {
	visiting bool
	res      *resolvedNode
}

// resolvedNode maps one document node's outputs into flat space. A real
// node resolves to its identity (output o becomes a reference to slot o);
// import and subgraph-call placeholders resolve to explicit per-output
// sources.
type resolvedNode struct {
	err      error
	identity proto.Identity
	outputs  []flatInput
}

// callAlias lets a root-level subgraph call appear in the network's source
// map even though inlining erased the call node itself. Requests against
// the call resolve to the producer of its first export.
type callAlias struct {
	id  document.NodeID
	src flatInput
}

type expander struct {
	doc     *document.Document
	diags   *Diagnostics
	out     []*flatNode
	aliases []callAlias
	active  map[document.SubgraphIndex]bool
}

// flatten inlines every subgraph call reachable from the root graph,
// emitting flat nodes with call-path identities. Failed nodes are not
// emitted; their consumers resolve to poison.
func flatten(doc *document.Document, diags *Diagnostics) ([]*flatNode, []callAlias) {
	e := &expander{
		doc:    doc,
		diags:  diags,
		active: make(map[document.SubgraphIndex]bool),
	}
	e.expandAll(&instance{
		g:       doc.Root,
		entries: make(map[document.NodeID]*entry),
	})
	return e.out, e.aliases
}

func (e *expander) expandAll(inst *instance) {
	for _, n := range inst.g.Nodes {
		e.resolve(inst, n.ID)
	}
}

func (e *expander) resolve(inst *instance, id document.NodeID) *resolvedNode {
	if ent, ok := inst.entries[id]; ok {
		if ent.visiting {
			// The document model rejects cycles at mutation time; a
			// hand-assembled or deserialized document can still carry
			// one, so compilation re-checks.
			res := &resolvedNode{err: &document.CycleError{Node: id, Reason: "connection cycle discovered during compilation"}}
			e.diags.report(e.rootFor(inst, id), e.identityFor(inst, id), res.err)
			ent.visiting = false
			ent.res = res
			return res
		}
		return ent.res
	}

	ent := &entry{visiting: true}
	inst.entries[id] = ent

	node, ok := inst.g.Node(id)
	if !ok {
		ent.res = &resolvedNode{err: errPoisoned}
		ent.visiting = false
		return ent.res
	}

	var res *resolvedNode
	switch {
	case node.Type == document.ImportNodeType:
		res = e.resolveImport(inst, node)
	case node.Subgraph != document.NoSubgraph:
		res = e.resolveCall(inst, node)
	case node.Type == "":
		err := &UnresolvedReferenceError{Node: e.rootFor(inst, id), Detail: "node has neither a type nor a subgraph"}
		e.diags.report(e.rootFor(inst, id), e.identityFor(inst, id), err)
		res = &resolvedNode{err: err}
	default:
		res = e.resolveReal(inst, node)
	}

	if ent.res != nil {
		// A cycle re-entered this entry while we were resolving it;
		// keep the cycle verdict.
		return ent.res
	}
	ent.res = res
	ent.visiting = false

	if inst.prefix == "" && res.err == nil && res.identity == "" && len(res.outputs) > 0 {
		e.aliases = append(e.aliases, callAlias{id: id, src: res.outputs[0]})
	}
	return res
}

func (e *expander) resolveImport(inst *instance, node *document.DocumentNode) *resolvedNode {
	root, path := e.rootFor(inst, node.ID), e.identityFor(inst, node.ID)
	if inst.prefix == "" {
		err := &UnresolvedReferenceError{Node: root, Detail: "the root graph cannot bind imports"}
		e.diags.report(root, path, err)
		return &resolvedNode{err: err}
	}

	pos := -1
	for i, impID := range inst.g.Imports {
		if impID == node.ID {
			pos = i
			break
		}
	}
	if pos == -1 {
		err := &UnresolvedReferenceError{Node: root, Detail: fmt.Sprintf("import node %d is not declared in the subgraph's imports", node.ID)}
		e.diags.report(root, path, err)
		return &resolvedNode{err: err}
	}

	if pos < len(inst.imports) && !inst.imports[pos].empty() {
		return &resolvedNode{outputs: []flatInput{inst.imports[pos]}}
	}
	if len(node.Inputs) > 0 && node.Inputs[0].Constant != cty.NilVal {
		return &resolvedNode{outputs: []flatInput{{constant: node.Inputs[0].Constant}}}
	}
	err := &UnresolvedReferenceError{Node: root, Detail: fmt.Sprintf("import %d is not bound and has no default", pos)}
	e.diags.report(root, path, err)
	return &resolvedNode{err: err}
}

func (e *expander) resolveCall(inst *instance, node *document.DocumentNode) *resolvedNode {
	root, path := e.rootFor(inst, node.ID), e.identityFor(inst, node.ID)

	if int(node.Subgraph) < 0 || int(node.Subgraph) >= len(e.doc.Subgraphs) {
		err := &UnresolvedReferenceError{Node: root, Detail: fmt.Sprintf("no subgraph with index %d", node.Subgraph)}
		e.diags.report(root, path, err)
		return &resolvedNode{err: err}
	}
	if e.active[node.Subgraph] {
		err := &document.CycleError{Node: node.ID, Reason: fmt.Sprintf("subgraph %d contains itself", node.Subgraph)}
		e.diags.report(root, path, err)
		return &resolvedNode{err: err}
	}
	sub := e.doc.Subgraphs[node.Subgraph]

	bindings := make([]flatInput, len(sub.Imports))
	for i := range sub.Imports {
		if i >= len(node.Inputs) {
			continue
		}
		fi, err := e.resolveInput(inst, node, node.Inputs[i])
		if err != nil {
			return &resolvedNode{err: err}
		}
		bindings[i] = fi
	}

	child := &instance{
		g:       sub,
		prefix:  path,
		key:     e.keyFor(inst, node.ID),
		root:    root,
		imports: bindings,
		entries: make(map[document.NodeID]*entry),
	}
	e.active[node.Subgraph] = true
	e.expandAll(child)

	exports := make([]flatInput, len(sub.Exports))
	var callErr error
	for k, expID := range sub.Exports {
		r := e.resolve(child, expID)
		if r.err != nil {
			callErr = errPoisoned
			continue
		}
		out, err := sourceOf(r, 0)
		if err != nil {
			e.diags.report(root, e.identityFor(child, expID), &UnresolvedReferenceError{Node: root, Detail: err.Error()})
			callErr = errPoisoned
			continue
		}
		exports[k] = out
	}
	e.active[node.Subgraph] = false

	if callErr != nil {
		return &resolvedNode{err: callErr}
	}
	return &resolvedNode{outputs: exports}
}

func (e *expander) resolveReal(inst *instance, node *document.DocumentNode) *resolvedNode {
	inputs := make([]flatInput, len(node.Inputs))
	for i, in := range node.Inputs {
		fi, err := e.resolveInput(inst, node, in)
		if err != nil {
			return &resolvedNode{err: err}
		}
		inputs[i] = fi
	}

	fn := &flatNode{
		identity:  e.identityFor(inst, node.ID),
		key:       e.keyFor(inst, node.ID),
		root:      e.rootFor(inst, node.ID),
		id:        node.ID,
		rootLevel: inst.prefix == "",
		typ:       node.Type,
		inputs:    inputs,
	}
	e.out = append(e.out, fn)
	return &resolvedNode{identity: fn.identity}
}

// resolveInput maps one document input into flat space. A non-nil error is
// always poison: new root causes are reported before returning.
func (e *expander) resolveInput(inst *instance, consumer *document.DocumentNode, in document.Input) (flatInput, error) {
	if in.Source == nil {
		return flatInput{constant: in.Constant}, nil
	}

	root, path := e.rootFor(inst, consumer.ID), e.identityFor(inst, consumer.ID)
	if _, ok := inst.g.Node(in.Source.Node); !ok {
		err := &UnresolvedReferenceError{Node: root, Detail: fmt.Sprintf("connection references missing node %d", in.Source.Node)}
		e.diags.report(root, path, err)
		return flatInput{}, errPoisoned
	}

	r := e.resolve(inst, in.Source.Node)
	if r.err != nil {
		return flatInput{}, errPoisoned
	}
	out, err := sourceOf(r, in.Source.Output)
	if err != nil {
		e.diags.report(root, path, &UnresolvedReferenceError{Node: root, Detail: err.Error()})
		return flatInput{}, errPoisoned
	}
	return out, nil
}

func sourceOf(r *resolvedNode, output int) (flatInput, error) {
	if r.identity != "" {
		if output < 0 {
			return flatInput{}, fmt.Errorf("negative output index %d", output)
		}
		return flatInput{ref: &flatRef{identity: r.identity, output: output}}, nil
	}
	if output < 0 || output >= len(r.outputs) {
		return flatInput{}, fmt.Errorf("no output %d, producer has %d", output, len(r.outputs))
	}
	return r.outputs[output], nil
}

func (fi flatInput) empty() bool {
	return fi.ref == nil && fi.constant == cty.NilVal
}

func (e *expander) identityFor(inst *instance, id document.NodeID) proto.Identity {
	if inst.prefix == "" {
		return proto.RootIdentity(id)
	}
	return inst.prefix.Child(id)
}

func (e *expander) keyFor(inst *instance, id document.NodeID) []uint64 {
	key := make([]uint64, 0, len(inst.key)+1)
	key = append(key, inst.key...)
	return append(key, uint64(id))
}

func (e *expander) rootFor(inst *instance, id document.NodeID) document.NodeID {
	if inst.prefix == "" {
		return id
	}
	return inst.root
}
