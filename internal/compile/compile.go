package compile

import (
	"context"

	"github.com/vk/rastergraph/internal/ctxlog"
	"github.com/vk/rastergraph/internal/document"
	"github.com/vk/rastergraph/internal/proto"
	"github.com/vk/rastergraph/internal/registry"
)

// Compile lowers a document into an executable network. The returned
// network contains every node that compiled cleanly; Diagnostics carries
// the root causes for everything that did not. Callers decide whether a
// partial network is usable by checking diags.HasErrors and the network's
// Sources.
func Compile(ctx context.Context, doc *document.Document, reg *registry.Registry) (*proto.Network, Diagnostics) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Compile: starting graph lowering.")
	var diags Diagnostics

	flat, aliases := flatten(doc, &diags)
	logger.Debug("Compile: inlining complete.", "flat_nodes", len(flat))

	ordered := orderFlat(flat)
	logger.Debug("Compile: topological ordering complete.")

	network := freeze(ordered, aliases, reg, &diags)
	logger.Debug("Compile: type resolution and freezing complete.",
		"nodes", len(network.Nodes), "errors", len(diags))

	return network, diags
}
