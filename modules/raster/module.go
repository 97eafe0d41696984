// Package raster provides the raster source and manipulation nodes:
// embedded images, resampling, channel extraction and masking.
package raster

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/registry"
	"github.com/vk/rastergraph/internal/typesys"
	"github.com/vk/rastergraph/internal/value"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// decodeEmbedded turns base64 PNG text, with or without a data URI
// prefix, into a raster.
func decodeEmbedded(data string) (*value.Raster, error) {
	data = strings.TrimSpace(data)
	if rest, ok := strings.CutPrefix(data, "data:"); ok {
		_, b64, found := strings.Cut(rest, "base64,")
		if !found {
			return nil, fmt.Errorf("data uri is not base64 encoded")
		}
		data = b64
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image data: %w", err)
	}
	return value.DecodePNGBytes(raw)
}

// Register implements the registry.Module interface.
func (m *Module) Register(r *registry.Registry) {
	type imageInput struct {
		Data string `rg:"data"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "image",
		Signature: typesys.Signature{
			Inputs:  []typesys.PortSpec{typesys.Port("data", cty.String)},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return new(imageInput) },
		Fn: func(_ context.Context, input *imageInput) (cty.Value, error) {
			if strings.TrimSpace(input.Data) == "" {
				return cty.NilVal, fmt.Errorf("image: no embedded data")
			}
			img, err := decodeEmbedded(input.Data)
			if err != nil {
				return cty.NilVal, err
			}
			return value.RasterVal(img), nil
		},
	})

	type decodeImageInput struct {
		Data string `rg:"data"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "decode_image",
		Signature: typesys.Signature{
			Inputs:  []typesys.PortSpec{typesys.Port("data", cty.String)},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return new(decodeImageInput) },
		Fn: func(_ context.Context, input *decodeImageInput) (cty.Value, error) {
			img, err := decodeEmbedded(input.Data)
			if err != nil {
				return cty.NilVal, err
			}
			return value.RasterVal(img), nil
		},
	})

	type resampleInput struct {
		Image  *value.Raster `rg:"image"`
		Width  int           `rg:"width"`
		Height int           `rg:"height"`
		Method string        `rg:"method"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "resample",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("image", value.RasterType),
				typesys.Port("width", cty.Number),
				typesys.Port("height", cty.Number),
				typesys.PortWithDefault("method", cty.String, cty.StringVal("bilinear")),
			},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return new(resampleInput) },
		Fn: func(_ context.Context, input *resampleInput) (cty.Value, error) {
			if input.Width < 1 || input.Height < 1 {
				return cty.NilVal, fmt.Errorf("resample: target size must be positive, got %dx%d", input.Width, input.Height)
			}
			out, err := resampleRaster(input.Image, input.Width, input.Height, input.Method)
			if err != nil {
				return cty.NilVal, err
			}
			return value.RasterVal(out), nil
		},
	})

	type extractChannelInput struct {
		Image   *value.Raster `rg:"image"`
		Channel string        `rg:"channel"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "extract_channel",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("image", value.RasterType),
				typesys.PortWithDefault("channel", cty.String, cty.StringVal("red")),
			},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return new(extractChannelInput) },
		Fn: func(_ context.Context, input *extractChannelInput) (cty.Value, error) {
			var pick func(value.Color) float64
			switch input.Channel {
			case "red":
				pick = func(c value.Color) float64 { return c.R }
			case "green":
				pick = func(c value.Color) float64 { return c.G }
			case "blue":
				pick = func(c value.Color) float64 { return c.B }
			case "alpha":
				pick = func(c value.Color) float64 { return c.A }
			default:
				return cty.NilVal, fmt.Errorf("unknown channel %q: expected red, green, blue, or alpha", input.Channel)
			}
			out := input.Image.Map(func(c value.Color) value.Color {
				v := pick(c)
				return value.Color{R: v, G: v, B: v, A: 1}
			})
			return value.RasterVal(out), nil
		},
	})

	type maskInput struct {
		Image   *value.Raster `rg:"image"`
		Stencil *value.Raster `rg:"stencil"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "mask",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("image", value.RasterType),
				typesys.Port("stencil", value.RasterType),
			},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return new(maskInput) },
		Fn: func(_ context.Context, input *maskInput) (cty.Value, error) {
			img, stencil := input.Image, input.Stencil
			if img.Width != stencil.Width || img.Height != stencil.Height {
				return cty.NilVal, fmt.Errorf("mask inputs disagree on size: %dx%d vs %dx%d",
					img.Width, img.Height, stencil.Width, stencil.Height)
			}
			out, err := value.NewRaster(img.Width, img.Height)
			if err != nil {
				return cty.NilVal, err
			}
			for i, c := range img.Pix {
				s := stencil.Pix[i]
				c.A *= s.LuminanceSRGB() * s.A
				out.Pix[i] = c
			}
			return value.RasterVal(out), nil
		},
	})
}
