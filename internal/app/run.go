package app

import (
	"context"
	"fmt"

	"github.com/vk/rastergraph/internal/compile"
	"github.com/vk/rastergraph/internal/ctxlog"
	"github.com/vk/rastergraph/internal/document"
	"github.com/vk/rastergraph/internal/engine"
	"github.com/vk/rastergraph/internal/gpu"
)

// Run compiles the loaded document and renders every root export to the
// configured output. A compile failure in one export's subgraph does not
// stop clean sibling exports from rendering; the first failure is still
// returned after everything renderable has been written.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	exports := a.doc.Root.Exports
	if len(exports) == 0 {
		return fmt.Errorf("document declares no export nodes, nothing to render")
	}

	var backend *gpu.Backend
	if a.device != nil {
		backend = gpu.New(a.device.Device, a.device.Queue)
		defer backend.Close()
	}

	network, diags := compile.Compile(ctx, a.doc, a.registry)
	var firstErr error
	if diags.HasErrors() {
		for _, d := range diags {
			a.logger.Error("Compile diagnostic.", "node", d.Node, "error", d.Err.Error())
		}
		firstErr = diags
	}
	a.doc.MarkClean()

	eng := engine.New(a.registry, nil, backend, a.config.WorkerCount)

	a.logger.Info("🎨 Rendering exports...", "count", len(exports))
	for _, id := range exports {
		name := a.exportName(id)
		if failed := diags.ForNode(id); failed.HasErrors() {
			a.logger.Warn("Skipping export with compile errors.", "export", name)
			continue
		}

		v, err := eng.Evaluate(ctx, network, id)
		if err != nil {
			a.logger.Error("Export evaluation failed.", "export", name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("evaluating export %q: %w", name, err)
			}
			continue
		}

		path := exportPath(a.config.OutputPath, name, len(exports) > 1)
		if err := writeArtifact(v, path); err != nil {
			a.logger.Error("Writing artifact failed.", "export", name, "path", path, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("writing export %q: %w", name, err)
			}
			continue
		}
		a.logger.Info("Export written.", "export", name, "path", path)
	}
	a.logger.Info("🏁 Render finished.")

	if backend != nil {
		stats := backend.Stats()
		a.logger.Debug("GPU backend statistics.",
			"units", stats.Units, "hits", stats.Hits, "misses", stats.Misses)
	}

	a.logger.Debug("App.Run method finished.")
	return firstErr
}

// exportName resolves an export's display name, falling back to the ID.
func (a *App) exportName(id document.NodeID) string {
	if n, ok := a.doc.Root.Node(id); ok && n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("node-%d", id)
}
