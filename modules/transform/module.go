// Package transform provides the affine placement nodes: transforming
// paths and groups, and stacking graphic elements into groups.
package transform

import (
	"context"
	"fmt"
	"math"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/registry"
	"github.com/vk/rastergraph/internal/typesys"
	"github.com/vk/rastergraph/internal/value"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

func num(v float64) cty.Value { return cty.NumberFloatVal(v) }

// Register implements the registry.Module interface.
func (m *Module) Register(r *registry.Registry) {
	type transformInput struct {
		Element    cty.Value `rg:"element"`
		TranslateX float64   `rg:"translate_x"`
		TranslateY float64   `rg:"translate_y"`
		Rotate     float64   `rg:"rotate"`
		ScaleX     float64   `rg:"scale_x"`
		ScaleY     float64   `rg:"scale_y"`
		ShearX     float64   `rg:"shear_x"`
		ShearY     float64   `rg:"shear_y"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "transform",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("element", cty.DynamicPseudoType),
				typesys.PortWithDefault("translate_x", cty.Number, num(0)),
				typesys.PortWithDefault("translate_y", cty.Number, num(0)),
				typesys.PortWithDefault("rotate", cty.Number, num(0)),
				typesys.PortWithDefault("scale_x", cty.Number, num(1)),
				typesys.PortWithDefault("scale_y", cty.Number, num(1)),
				typesys.PortWithDefault("shear_x", cty.Number, num(0)),
				typesys.PortWithDefault("shear_y", cty.Number, num(0)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", cty.DynamicPseudoType)},
		},
		NewInput: func() any { return new(transformInput) },
		Fn: func(_ context.Context, input *transformInput) (cty.Value, error) {
			// Scale applies first, then shear, rotation, translation.
			t := value.Translation(input.TranslateX, input.TranslateY).
				Mul(value.Rotation(input.Rotate * math.Pi / 180)).
				Mul(value.Shearing(input.ShearX, input.ShearY)).
				Mul(value.Scaling(input.ScaleX, input.ScaleY))

			switch {
			case input.Element.Type().Equals(value.PathType):
				p, err := value.PathFromValue(input.Element)
				if err != nil {
					return cty.NilVal, err
				}
				return value.PathVal(p.ApplyTransform(t)), nil
			case input.Element.Type().Equals(value.GroupType):
				g, err := value.GroupFromValue(input.Element)
				if err != nil {
					return cty.NilVal, err
				}
				out := g.Clone()
				for i := range out.Elements {
					out.Elements[i].Transform = t.Mul(out.Elements[i].Transform)
				}
				return value.GroupVal(out), nil
			case input.Element.Type().Equals(value.RasterType):
				return cty.NilVal, fmt.Errorf("cannot transform a bare raster: stack it into a group first")
			}
			return cty.NilVal, fmt.Errorf("cannot transform %s: expected path or group", input.Element.Type().FriendlyName())
		},
	})

	type layerInput struct {
		Element cty.Value    `rg:"element"`
		Stack   *value.Group `rg:"stack"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "layer",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("element", cty.DynamicPseudoType),
				typesys.PortWithDefault("stack", value.GroupType, value.GroupVal(&value.Group{})),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", value.GroupType)},
		},
		NewInput: func() any { return new(layerInput) },
		Fn: func(_ context.Context, input *layerInput) (cty.Value, error) {
			out := input.Stack.Clone()
			switch {
			case input.Element.Type().Equals(value.PathType):
				p, err := value.PathFromValue(input.Element)
				if err != nil {
					return cty.NilVal, err
				}
				out.Elements = append(out.Elements, value.Element{Path: p.Clone(), Transform: value.IdentityTransform()})
			case input.Element.Type().Equals(value.RasterType):
				img, err := value.RasterFromValue(input.Element)
				if err != nil {
					return cty.NilVal, err
				}
				out.Elements = append(out.Elements, value.Element{Raster: img.Clone(), Transform: value.IdentityTransform()})
			case input.Element.Type().Equals(value.GroupType):
				g, err := value.GroupFromValue(input.Element)
				if err != nil {
					return cty.NilVal, err
				}
				out.Elements = append(out.Elements, g.Clone().Elements...)
			default:
				return cty.NilVal, fmt.Errorf("cannot stack %s: expected path, raster, or group", input.Element.Type().FriendlyName())
			}
			return value.GroupVal(out), nil
		},
	})
}
