package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/rastergraph/internal/value"
)

// writeArtifact persists one evaluated export. Rasters become PNG files,
// strings (the svg_render output) are written verbatim, and plain data
// values are encoded as JSON. Other capsule values have no file form;
// the document must route them through svg_render or path_to_raster.
func writeArtifact(v cty.Value, path string) error {
	switch {
	case v.Type().Equals(value.RasterType):
		img, err := value.RasterFromValue(v)
		if err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := value.EncodePNG(img, f); err != nil {
			f.Close()
			return fmt.Errorf("encoding %s: %w", path, err)
		}
		return f.Close()

	case v.Type() == cty.String:
		return os.WriteFile(path, []byte(v.AsString()), 0o644)

	case v.Type().IsCapsuleType():
		return fmt.Errorf("a %s value has no artifact form; route the export through svg_render or path_to_raster", v.Type().FriendlyName())

	default:
		data, err := ctyjson.Marshal(v, v.Type())
		if err != nil {
			return fmt.Errorf("encoding %s: %w", path, err)
		}
		return os.WriteFile(path, append(data, '\n'), 0o644)
	}
}

// exportPath derives the artifact path for one export. A single export
// owns the configured path outright; with several, each export's name is
// inserted before the extension.
func exportPath(configured, name string, multiple bool) string {
	if !multiple {
		return configured
	}
	ext := filepath.Ext(configured)
	return strings.TrimSuffix(configured, ext) + "." + name + ext
}
