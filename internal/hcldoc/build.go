package hcldoc

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/rastergraph/internal/ctxlog"
	"github.com/vk/rastergraph/internal/document"
	"github.com/vk/rastergraph/internal/registry"
	"github.com/vk/rastergraph/internal/typesys"
)

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "node", LabelNames: []string{"type", "name"}},
		{Type: "subgraph", LabelNames: []string{"name"}},
		{Type: "export", LabelNames: []string{"name"}},
	},
}

var subgraphSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "import", LabelNames: []string{"name"}},
		{Type: "node", LabelNames: []string{"type", "name"}},
		{Type: "export", LabelNames: []string{"name"}},
	},
}

var nodeSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "arguments"},
	},
}

var emptySchema = &hcl.BodySchema{}

// nodeInstance tracks one created node while its graph is still being
// wired. Instances are the reference namespace for arguments.
type nodeInstance struct {
	id        document.NodeID
	name      string
	typeName  string
	sub       document.SubgraphIndex
	reg       *registry.RegisteredNode
	isImport  bool
	arguments hcl.Body
}

// graphScope is the per-graph namespace: created instances by name, in
// declaration order.
type graphScope struct {
	ref   document.GraphRef
	nodes map[string]*nodeInstance
	order []*nodeInstance
}

func newGraphScope(ref document.GraphRef) *graphScope {
	return &graphScope{ref: ref, nodes: make(map[string]*nodeInstance)}
}

func (s *graphScope) add(inst *nodeInstance) {
	s.nodes[inst.name] = inst
	s.order = append(s.order, inst)
}

// subgraphMeta maps a subgraph's argument and output names to the slot
// positions the document model uses: import declaration order for
// inputs, export declaration order for outputs.
type subgraphMeta struct {
	imports map[string]int
	exports map[string]int
}

type builder struct {
	reg       *registry.Registry
	doc       *document.Document
	subgraphs map[string]document.SubgraphIndex
	meta      map[document.SubgraphIndex]*subgraphMeta
}

// build assembles the parsed files into one document. Subgraph blocks
// are processed before root nodes so instantiation can resolve them;
// within a graph all nodes are created before any argument is applied,
// so references may point forward in the file.
func build(ctx context.Context, reg *registry.Registry, files []*hcl.File) (*document.Document, hcl.Diagnostics) {
	b := &builder{
		reg:       reg,
		doc:       document.New(),
		subgraphs: make(map[string]document.SubgraphIndex),
		meta:      make(map[document.SubgraphIndex]*subgraphMeta),
	}
	var diags hcl.Diagnostics

	contents := make([]*hcl.BodyContent, 0, len(files))
	for _, f := range files {
		content, moreDiags := f.Body.Content(rootSchema)
		diags = append(diags, moreDiags...)
		if content != nil {
			contents = append(contents, content)
		}
	}

	for _, content := range contents {
		for _, blk := range content.Blocks {
			if blk.Type == "subgraph" {
				diags = append(diags, b.declareSubgraph(blk)...)
			}
		}
	}

	root := newGraphScope(document.RootRef)
	for _, content := range contents {
		for _, blk := range content.Blocks {
			if blk.Type == "node" {
				diags = append(diags, b.createNode(root, blk)...)
			}
		}
	}
	diags = append(diags, b.applyArguments(root)...)
	for _, content := range contents {
		for _, blk := range content.Blocks {
			if blk.Type == "export" {
				diags = append(diags, b.exportNode(root, nil, blk)...)
			}
		}
	}

	ctxlog.FromContext(ctx).Debug("Document loading complete.",
		"rootNodes", len(root.order), "subgraphs", len(b.subgraphs), "diagnostics", len(diags))
	return b.doc, diags
}

func (b *builder) declareSubgraph(blk *hcl.Block) hcl.Diagnostics {
	name := blk.Labels[0]
	if _, dup := b.subgraphs[name]; dup {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Duplicate subgraph",
			Detail:   fmt.Sprintf("A subgraph named %q is already declared.", name),
			Subject:  blk.LabelRanges[0].Ptr(),
		}}
	}
	idx := b.doc.AddSubgraph()
	b.subgraphs[name] = idx
	meta := &subgraphMeta{imports: make(map[string]int), exports: make(map[string]int)}
	b.meta[idx] = meta

	content, diags := blk.Body.Content(subgraphSchema)
	if content == nil {
		return diags
	}

	scope := newGraphScope(document.GraphRef(idx))
	for _, inner := range content.Blocks {
		switch inner.Type {
		case "import":
			diags = append(diags, b.declareImport(scope, meta, inner)...)
		case "node":
			diags = append(diags, b.createNode(scope, inner)...)
		}
	}
	diags = append(diags, b.applyArguments(scope)...)
	for _, inner := range content.Blocks {
		if inner.Type == "export" {
			diags = append(diags, b.exportNode(scope, meta, inner)...)
		}
	}
	return diags
}

func (b *builder) declareImport(scope *graphScope, meta *subgraphMeta, blk *hcl.Block) hcl.Diagnostics {
	name := blk.Labels[0]
	_, diags := blk.Body.Content(emptySchema)
	if _, dup := scope.nodes[name]; dup {
		return append(diags, duplicateNameDiag(name, blk))
	}
	id, err := b.doc.AddNode(scope.ref, document.ImportNodeType, name)
	if err != nil {
		return append(diags, errDiag("Cannot add import point", err, blk.DefRange))
	}
	if err := b.doc.AddImport(scope.ref, id); err != nil {
		return append(diags, errDiag("Cannot add import point", err, blk.DefRange))
	}
	meta.imports[name] = len(meta.imports)
	scope.add(&nodeInstance{id: id, name: name, typeName: document.ImportNodeType, sub: document.NoSubgraph, isImport: true})
	return diags
}

func (b *builder) createNode(scope *graphScope, blk *hcl.Block) hcl.Diagnostics {
	typeName, name := blk.Labels[0], blk.Labels[1]

	content, diags := blk.Body.Content(nodeSchema)
	var arguments hcl.Body
	if content != nil {
		for _, inner := range content.Blocks {
			if arguments != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  `Duplicate "arguments" block`,
					Detail:   `Only one "arguments" block is allowed per node.`,
					Subject:  inner.DefRange.Ptr(),
				})
				continue
			}
			arguments = inner.Body
		}
	}

	if _, dup := scope.nodes[name]; dup {
		return append(diags, duplicateNameDiag(name, blk))
	}

	inst := &nodeInstance{name: name, typeName: typeName, sub: document.NoSubgraph, arguments: arguments}
	if subIdx, ok := b.subgraphs[typeName]; ok {
		id, err := b.doc.AddSubgraphNode(scope.ref, subIdx, name)
		if err != nil {
			return append(diags, errDiag("Cannot instantiate subgraph", err, blk.DefRange))
		}
		inst.id = id
		inst.sub = subIdx
		scope.add(inst)
		return diags
	}

	rn, err := b.reg.Lookup(typeName)
	if err != nil {
		return append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unknown node type",
			Detail:   fmt.Sprintf("No registered node type or subgraph named %q.", typeName),
			Subject:  blk.LabelRanges[0].Ptr(),
		})
	}
	id, err := b.doc.AddNode(scope.ref, typeName, name)
	if err != nil {
		return append(diags, errDiag("Cannot add node", err, blk.DefRange))
	}
	inst.id = id
	inst.reg = rn
	scope.add(inst)
	return diags
}

// applyArguments wires every instance's arguments. Attributes apply in
// name order so extraction is deterministic regardless of file layout.
func (b *builder) applyArguments(scope *graphScope) hcl.Diagnostics {
	var diags hcl.Diagnostics
	for _, inst := range scope.order {
		if inst.arguments == nil {
			continue
		}
		attrs, moreDiags := inst.arguments.JustAttributes()
		diags = append(diags, moreDiags...)
		names := make([]string, 0, len(attrs))
		for n := range attrs {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			diags = append(diags, b.applyArgument(scope, inst, attrs[n])...)
		}
	}
	return diags
}

func (b *builder) applyArgument(scope *graphScope, inst *nodeInstance, attr *hcl.Attribute) hcl.Diagnostics {
	slot, ok := b.inputSlot(inst, attr.Name)
	if !ok {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unknown argument",
			Detail:   fmt.Sprintf("Node type %q has no input named %q.", inst.typeName, attr.Name),
			Subject:  attr.NameRange.Ptr(),
		}}
	}

	if len(attr.Expr.Variables()) == 0 {
		v, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return diags
		}
		if err := b.doc.SetConstant(scope.ref, inst.id, slot, v); err != nil {
			return append(diags, errDiag("Cannot store constant", err, attr.Expr.Range()))
		}
		return diags
	}

	from, output, diags := b.resolveReference(scope, attr.Expr)
	if diags.HasErrors() {
		return diags
	}
	if err := b.doc.Connect(scope.ref, from, output, inst.id, slot); err != nil {
		return append(diags, errDiag("Invalid connection", err, attr.Expr.Range()))
	}
	return diags
}

func (b *builder) inputSlot(inst *nodeInstance, name string) (int, bool) {
	switch {
	case inst.isImport:
		return 0, false
	case inst.sub != document.NoSubgraph:
		slot, ok := b.meta[inst.sub].imports[name]
		return slot, ok
	default:
		return portIndex(inst.reg.Signature.Inputs, name)
	}
}

// resolveReference maps a node.<name>[.<output>] traversal to the
// producing node and output slot. An omitted output names the first.
func (b *builder) resolveReference(scope *graphScope, expr hcl.Expression) (document.NodeID, int, hcl.Diagnostics) {
	traversal, trDiags := hcl.AbsTraversalForExpr(expr)
	if trDiags.HasErrors() {
		return 0, 0, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid argument expression",
			Detail:   "An argument is either a literal value or a single node.<name>.<output> reference; expressions cannot combine the two.",
			Subject:  expr.Range().Ptr(),
		}}
	}

	malformed := func(detail string) (document.NodeID, int, hcl.Diagnostics) {
		return 0, 0, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Malformed node reference",
			Detail:   detail,
			Subject:  expr.Range().Ptr(),
		}}
	}
	if traversal.RootName() != "node" {
		return malformed(fmt.Sprintf("Unknown reference root %q; references are written node.<name> or node.<name>.<output>.", traversal.RootName()))
	}
	steps := traversal[1:]
	if len(steps) < 1 || len(steps) > 2 {
		return malformed("References are written node.<name> or node.<name>.<output>.")
	}
	parts := make([]string, len(steps))
	for i, step := range steps {
		attr, ok := step.(hcl.TraverseAttr)
		if !ok {
			return malformed("References are written node.<name> or node.<name>.<output>.")
		}
		parts[i] = attr.Name
	}

	target, ok := scope.nodes[parts[0]]
	if !ok {
		return 0, 0, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unknown node",
			Detail:   fmt.Sprintf("No node named %q in this graph.", parts[0]),
			Subject:  expr.Range().Ptr(),
		}}
	}
	output := 0
	if len(parts) == 2 {
		slot, diags := b.outputSlot(target, parts[1], expr)
		if diags.HasErrors() {
			return 0, 0, diags
		}
		output = slot
	}
	return target.id, output, nil
}

func (b *builder) outputSlot(inst *nodeInstance, port string, expr hcl.Expression) (int, hcl.Diagnostics) {
	bad := func(detail string) (int, hcl.Diagnostics) {
		return 0, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unknown output",
			Detail:   detail,
			Subject:  expr.Range().Ptr(),
		}}
	}
	switch {
	case inst.isImport:
		return bad(fmt.Sprintf("Import point %q has a single output; reference it as node.%s.", inst.name, inst.name))
	case inst.sub != document.NoSubgraph:
		slot, ok := b.meta[inst.sub].exports[port]
		if !ok {
			return bad(fmt.Sprintf("Subgraph %q exports no node named %q.", inst.typeName, port))
		}
		return slot, nil
	default:
		slot, ok := portIndex(inst.reg.Signature.Outputs, port)
		if !ok {
			return bad(fmt.Sprintf("Node type %q has no output named %q.", inst.typeName, port))
		}
		return slot, nil
	}
}

// exportNode handles an export block. meta is nil at file scope and the
// owning subgraph's slot map inside one.
func (b *builder) exportNode(scope *graphScope, meta *subgraphMeta, blk *hcl.Block) hcl.Diagnostics {
	_, diags := blk.Body.Content(emptySchema)
	name := blk.Labels[0]
	inst, ok := scope.nodes[name]
	if !ok {
		return append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unknown export",
			Detail:   fmt.Sprintf("No node named %q to export.", name),
			Subject:  blk.LabelRanges[0].Ptr(),
		})
	}
	if err := b.doc.AddExport(scope.ref, inst.id); err != nil {
		return append(diags, errDiag("Cannot export node", err, blk.DefRange))
	}
	if meta != nil {
		if _, dup := meta.exports[name]; !dup {
			meta.exports[name] = len(meta.exports)
		}
	}
	return diags
}

func portIndex(ports []typesys.PortSpec, name string) (int, bool) {
	for i, p := range ports {
		if p.Name == name {
			return i, true
		}
	}
	return 0, false
}

func duplicateNameDiag(name string, blk *hcl.Block) *hcl.Diagnostic {
	subject := blk.DefRange
	if len(blk.LabelRanges) > 1 {
		subject = blk.LabelRanges[1]
	}
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Duplicate node name",
		Detail:   fmt.Sprintf("A node named %q already exists in this graph.", name),
		Subject:  subject.Ptr(),
	}
}

func errDiag(summary string, err error, rng hcl.Range) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   err.Error(),
		Subject:  rng.Ptr(),
	}
}
