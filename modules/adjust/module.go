// Package adjust provides the per-pixel raster adjustment nodes. Every
// node carries a WGSL kernel, so chains of adjustments fuse into single
// device dispatches when a backend is available; the formulas in
// adjustments.go serve as the native fallback.
package adjust

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/gpu"
	"github.com/vk/rastergraph/internal/registry"
	"github.com/vk/rastergraph/internal/typesys"
	"github.com/vk/rastergraph/internal/value"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

func num(v float64) cty.Value { return cty.NumberFloatVal(v) }

func adjusted(img *value.Raster, apply func(value.Color, []float64) value.Color, params ...float64) (cty.Value, error) {
	out := img.Map(func(c value.Color) value.Color { return apply(c, params) })
	return value.RasterVal(out), nil
}

// Register implements the registry.Module interface.
func (m *Module) Register(r *registry.Registry) {
	// Tint channels are gamma sRGB in [0, 1]; black keeps the mix
	// neutral. The per-range weights are percentages.
	type grayscaleInput struct {
		Image    *value.Raster `rg:"image"`
		TintR    float64       `rg:"tint_r"`
		TintG    float64       `rg:"tint_g"`
		TintB    float64       `rg:"tint_b"`
		Reds     float64       `rg:"reds"`
		Yellows  float64       `rg:"yellows"`
		Greens   float64       `rg:"greens"`
		Cyans    float64       `rg:"cyans"`
		Blues    float64       `rg:"blues"`
		Magentas float64       `rg:"magentas"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "grayscale",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("image", value.RasterType),
				typesys.PortWithDefault("tint_r", cty.Number, num(0)),
				typesys.PortWithDefault("tint_g", cty.Number, num(0)),
				typesys.PortWithDefault("tint_b", cty.Number, num(0)),
				typesys.PortWithDefault("reds", cty.Number, num(40)),
				typesys.PortWithDefault("yellows", cty.Number, num(60)),
				typesys.PortWithDefault("greens", cty.Number, num(40)),
				typesys.PortWithDefault("cyans", cty.Number, num(60)),
				typesys.PortWithDefault("blues", cty.Number, num(20)),
				typesys.PortWithDefault("magentas", cty.Number, num(80)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return new(grayscaleInput) },
		Fn: func(_ context.Context, in *grayscaleInput) (cty.Value, error) {
			return adjusted(in.Image, grayscaleApply,
				in.TintR, in.TintG, in.TintB, in.Reds, in.Yellows, in.Greens, in.Cyans, in.Blues, in.Magentas)
		},
		Kernel: &gpu.Kernel{
			Name:   "grayscale",
			Params: []string{"tint_r", "tint_g", "tint_b", "reds", "yellows", "greens", "cyans", "blues", "magentas"},
			WGSL:   grayscaleWGSL,
			Apply:  grayscaleApply,
		},
	})

	type invertInput struct {
		Image *value.Raster `rg:"image"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "invert",
		Signature: typesys.Signature{
			Inputs:  []typesys.PortSpec{typesys.Port("image", value.RasterType)},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return new(invertInput) },
		Fn: func(_ context.Context, in *invertInput) (cty.Value, error) {
			return adjusted(in.Image, invertApply)
		},
		Kernel: &gpu.Kernel{Name: "invert", WGSL: invertWGSL, Apply: invertApply},
	})

	type hueSaturationInput struct {
		Image           *value.Raster `rg:"image"`
		HueShift        float64       `rg:"hue_shift"`
		SaturationShift float64       `rg:"saturation_shift"`
		LightnessShift  float64       `rg:"lightness_shift"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "hue_saturation",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("image", value.RasterType),
				typesys.PortWithDefault("hue_shift", cty.Number, num(0)),
				typesys.PortWithDefault("saturation_shift", cty.Number, num(0)),
				typesys.PortWithDefault("lightness_shift", cty.Number, num(0)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return new(hueSaturationInput) },
		Fn: func(_ context.Context, in *hueSaturationInput) (cty.Value, error) {
			return adjusted(in.Image, hueSaturationApply, in.HueShift, in.SaturationShift, in.LightnessShift)
		},
		Kernel: &gpu.Kernel{
			Name:   "hue_saturation",
			Params: []string{"hue_shift", "saturation_shift", "lightness_shift"},
			WGSL:   hueSaturationWGSL,
			Apply:  hueSaturationApply,
		},
	})

	type brightnessContrastInput struct {
		Image      *value.Raster `rg:"image"`
		Brightness float64       `rg:"brightness"`
		Contrast   float64       `rg:"contrast"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "brightness_contrast",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("image", value.RasterType),
				typesys.PortWithDefault("brightness", cty.Number, num(0)),
				typesys.PortWithDefault("contrast", cty.Number, num(0)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return new(brightnessContrastInput) },
		Fn: func(_ context.Context, in *brightnessContrastInput) (cty.Value, error) {
			return adjusted(in.Image, brightnessContrastApply, in.Brightness, in.Contrast)
		},
		Kernel: &gpu.Kernel{
			Name:   "brightness_contrast",
			Params: []string{"brightness", "contrast"},
			WGSL:   brightnessContrastWGSL,
			Apply:  brightnessContrastApply,
		},
	})

	type levelsInput struct {
		Image          *value.Raster `rg:"image"`
		Shadows        float64       `rg:"shadows"`
		Midtones       float64       `rg:"midtones"`
		Highlights     float64       `rg:"highlights"`
		OutputMinimums float64       `rg:"output_minimums"`
		OutputMaximums float64       `rg:"output_maximums"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "levels",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("image", value.RasterType),
				typesys.PortWithDefault("shadows", cty.Number, num(0)),
				typesys.PortWithDefault("midtones", cty.Number, num(50)),
				typesys.PortWithDefault("highlights", cty.Number, num(100)),
				typesys.PortWithDefault("output_minimums", cty.Number, num(0)),
				typesys.PortWithDefault("output_maximums", cty.Number, num(100)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return new(levelsInput) },
		Fn: func(_ context.Context, in *levelsInput) (cty.Value, error) {
			return adjusted(in.Image, levelsApply,
				in.Shadows, in.Midtones, in.Highlights, in.OutputMinimums, in.OutputMaximums)
		},
		Kernel: &gpu.Kernel{
			Name:   "levels",
			Params: []string{"shadows", "midtones", "highlights", "output_minimums", "output_maximums"},
			WGSL:   levelsWGSL,
			Apply:  levelsApply,
		},
	})

	type thresholdInput struct {
		Image        *value.Raster `rg:"image"`
		MinLuminance float64       `rg:"min_luminance"`
		MaxLuminance float64       `rg:"max_luminance"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "threshold",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("image", value.RasterType),
				typesys.PortWithDefault("min_luminance", cty.Number, num(50)),
				typesys.PortWithDefault("max_luminance", cty.Number, num(100)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return new(thresholdInput) },
		Fn: func(_ context.Context, in *thresholdInput) (cty.Value, error) {
			return adjusted(in.Image, thresholdApply, in.MinLuminance, in.MaxLuminance)
		},
		Kernel: &gpu.Kernel{
			Name:   "threshold",
			Params: []string{"min_luminance", "max_luminance"},
			WGSL:   thresholdWGSL,
			Apply:  thresholdApply,
		},
	})

	type vibranceInput struct {
		Image    *value.Raster `rg:"image"`
		Vibrance float64       `rg:"vibrance"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "vibrance",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("image", value.RasterType),
				typesys.PortWithDefault("vibrance", cty.Number, num(0)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return new(vibranceInput) },
		Fn: func(_ context.Context, in *vibranceInput) (cty.Value, error) {
			return adjusted(in.Image, vibranceApply, in.Vibrance)
		},
		Kernel: &gpu.Kernel{
			Name:   "vibrance",
			Params: []string{"vibrance"},
			WGSL:   vibranceWGSL,
			Apply:  vibranceApply,
		},
	})

	type posterizeInput struct {
		Image  *value.Raster `rg:"image"`
		Levels float64       `rg:"levels"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "posterize",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("image", value.RasterType),
				typesys.PortWithDefault("levels", cty.Number, num(4)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return new(posterizeInput) },
		Fn: func(_ context.Context, in *posterizeInput) (cty.Value, error) {
			return adjusted(in.Image, posterizeApply, in.Levels)
		},
		Kernel: &gpu.Kernel{
			Name:   "posterize",
			Params: []string{"levels"},
			WGSL:   posterizeWGSL,
			Apply:  posterizeApply,
		},
	})

	type exponentInput struct {
		Image    *value.Raster `rg:"image"`
		Exponent float64       `rg:"exponent"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "exponent",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("image", value.RasterType),
				typesys.PortWithDefault("exponent", cty.Number, num(1)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return new(exponentInput) },
		Fn: func(_ context.Context, in *exponentInput) (cty.Value, error) {
			return adjusted(in.Image, exponentApply, in.Exponent)
		},
		Kernel: &gpu.Kernel{
			Name:   "exponent",
			Params: []string{"exponent"},
			WGSL:   exponentWGSL,
			Apply:  exponentApply,
		},
	})

	type opacityInput struct {
		Image   *value.Raster `rg:"image"`
		Opacity float64       `rg:"opacity"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "opacity",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("image", value.RasterType),
				typesys.PortWithDefault("opacity", cty.Number, num(100)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return new(opacityInput) },
		Fn: func(_ context.Context, in *opacityInput) (cty.Value, error) {
			return adjusted(in.Image, opacityApply, in.Opacity)
		},
		Kernel: &gpu.Kernel{
			Name:   "opacity",
			Params: []string{"opacity"},
			WGSL:   opacityWGSL,
			Apply:  opacityApply,
		},
	})
}
