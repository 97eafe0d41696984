package app

import (
	"github.com/vk/rastergraph/internal/registry"
	"github.com/vk/rastergraph/modules/adjust"
	"github.com/vk/rastergraph/modules/blend"
	"github.com/vk/rastergraph/modules/generate"
	"github.com/vk/rastergraph/modules/input"
	"github.com/vk/rastergraph/modules/mathops"
	"github.com/vk/rastergraph/modules/raster"
	"github.com/vk/rastergraph/modules/transform"
	"github.com/vk/rastergraph/modules/vector"
)

// coreModules assembles the full node catalog. The generate module takes
// its endpoint from the config, so the list is built per instance rather
// than shared as a package variable.
func coreModules(cfg *AppConfig) []registry.Module {
	return []registry.Module{
		input.NewModule(),
		&adjust.Module{},
		&blend.Module{},
		&mathops.Module{},
		&vector.Module{},
		&raster.Module{},
		&transform.Module{},
		generate.NewModule(cfg.ServiceURL),
	}
}
