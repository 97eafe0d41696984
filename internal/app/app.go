package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/rastergraph/internal/ctxlog"
	"github.com/vk/rastergraph/internal/document"
	"github.com/vk/rastergraph/internal/gpu"
	"github.com/vk/rastergraph/internal/hcldoc"
	"github.com/vk/rastergraph/internal/registry"
)

// App encapsulates one configured render pipeline: logger, node catalog,
// loaded document, and the optional GPU device.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *AppConfig
	registry *registry.Registry
	doc      *document.Document
	device   *gpu.Device
}

// NewApp is the constructor for the main application. Startup failures
// (an unloadable document, a broken node catalog) panic; the CLI
// entrypoint recovers them into exit codes.
func NewApp(outW io.Writer, cfg *AppConfig, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(cfg)
	}
	reg.Install(modules...)
	logger.Debug("All node modules registered.", "count", len(modules))

	if err := reg.ValidateRegistry(ctx); err != nil {
		// A catalog that fails validation is a programming error.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	doc, diags := hcldoc.Load(ctx, reg, cfg.DocPath)
	if diags.HasErrors() {
		panic(fmt.Errorf("failed to load document: %s", diags.Error()))
	}
	logger.Debug("Document loaded.",
		"rootNodes", len(doc.Root.Nodes), "subgraphs", len(doc.Subgraphs), "exports", len(doc.Root.Exports))

	var device *gpu.Device
	if cfg.UseGPU {
		d, err := gpu.Acquire()
		if err != nil {
			logger.Warn("GPU unavailable, rendering on the CPU.", "error", err)
		} else {
			logger.Info("GPU device acquired.", "adapter", d.Name())
			device = d
		}
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		doc:      doc,
		device:   device,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Document returns the loaded document. This is primarily for testing.
func (a *App) Document() *document.Document {
	return a.doc
}

// Close releases the GPU device, if one was acquired.
func (a *App) Close() {
	if a.device != nil {
		a.device.Close()
		a.device = nil
	}
}
