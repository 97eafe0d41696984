// Package blend composites two rasters with one of the standard blend
// modes. The node stays on the native path: with two raster inputs it
// never joins a fused device dispatch.
package blend

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/registry"
	"github.com/vk/rastergraph/internal/typesys"
	"github.com/vk/rastergraph/internal/value"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

type blendInput struct {
	Image   *value.Raster `rg:"image"`
	Second  *value.Raster `rg:"second"`
	Mode    string        `rg:"blend_mode"`
	Opacity float64       `rg:"opacity"`
}

// Register registers the blend node with the given registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "blend",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("image", value.RasterType),
				typesys.Port("second", value.RasterType),
				typesys.PortWithDefault("blend_mode", cty.String, cty.StringVal("normal")),
				typesys.PortWithDefault("opacity", cty.Number, cty.NumberFloatVal(100)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return &blendInput{} },
		Fn: func(ctx context.Context, in *blendInput) (cty.Value, error) {
			fn, ok := modes[in.Mode]
			if !ok {
				return cty.NilVal, fmt.Errorf("unknown blend mode %q", in.Mode)
			}
			fg, bg := in.Image, in.Second
			if fg.Width != bg.Width || fg.Height != bg.Height {
				return cty.NilVal, fmt.Errorf("blend inputs disagree on size: %dx%d vs %dx%d",
					fg.Width, fg.Height, bg.Width, bg.Height)
			}

			opacity := in.Opacity / 100
			out, err := value.NewRaster(fg.Width, fg.Height)
			if err != nil {
				return cty.NilVal, err
			}
			for i, f := range fg.Pix {
				out.Pix[i] = blendPixel(fn, f, bg.Pix[i], opacity)
			}
			return value.RasterVal(out), nil
		},
	})
}
