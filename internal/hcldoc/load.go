package hcldoc

import (
	"context"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/rastergraph/internal/ctxlog"
	"github.com/vk/rastergraph/internal/document"
	"github.com/vk/rastergraph/internal/registry"
)

// Load reads the document files named by path and assembles them into a
// single Document. The registry supplies the signatures that map
// argument and output names to slots.
func Load(ctx context.Context, reg *registry.Registry, path string) (*document.Document, hcl.Diagnostics) {
	logger := ctxlog.FromContext(ctx)

	files, err := ResolvePath(ctx, path)
	if err != nil {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Cannot resolve document path",
			Detail:   err.Error(),
		}}
	}
	if len(files) == 0 {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "No document files",
			Detail:   "No *" + DocSuffix + " files found under " + path + ".",
		}}
	}
	logger.Debug("Discovered document files.", "count", len(files))

	parser := hclparse.NewParser()
	var diags hcl.Diagnostics
	parsed := make([]*hcl.File, 0, len(files))
	for _, name := range files {
		file, moreDiags := parser.ParseHCLFile(name)
		diags = append(diags, moreDiags...)
		if file != nil {
			parsed = append(parsed, file)
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}

	doc, buildDiags := build(ctx, reg, parsed)
	return doc, append(diags, buildDiags...)
}

// LoadSources assembles a Document from in-memory file contents, keyed
// by a display name used in diagnostics. Sources merge in name order.
func LoadSources(ctx context.Context, reg *registry.Registry, sources map[string][]byte) (*document.Document, hcl.Diagnostics) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	parser := hclparse.NewParser()
	var diags hcl.Diagnostics
	parsed := make([]*hcl.File, 0, len(names))
	for _, name := range names {
		file, moreDiags := parser.ParseHCL(sources[name], name)
		diags = append(diags, moreDiags...)
		if file != nil {
			parsed = append(parsed, file)
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}

	doc, buildDiags := build(ctx, reg, parsed)
	return doc, append(diags, buildDiags...)
}
