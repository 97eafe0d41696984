// Package vector provides the path generator, styling and rasterization
// nodes, plus the implicit conversions that let paths and layered groups
// feed raster-only inputs.
package vector

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

func num(v float64) cty.Value { return cty.NumberFloatVal(v) }

// Register implements the registry.Module interface.
func (m *Module) Register(r *registry.Registry) {
	type rectangleInput struct {
		Width  float64 `rg:"width"`
		Height float64 `rg:"height"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "rectangle",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.PortWithDefault("width", cty.Number, num(100)),
				typesys.PortWithDefault("height", cty.Number, num(100)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", value.PathType)},
		},
		NewInput: func() any { return new(rectangleInput) },
		Fn: func(_ context.Context, input *rectangleInput) (cty.Value, error) {
			if input.Width <= 0 || input.Height <= 0 {
				return cty.NilVal, fmt.Errorf("rectangle: dimensions must be positive, got %vx%v", input.Width, input.Height)
			}
			return value.PathVal(rectanglePath(input.Width, input.Height)), nil
		},
	})

	type ellipseInput struct {
		RadiusX float64 `rg:"radius_x"`
		RadiusY float64 `rg:"radius_y"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "ellipse",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.PortWithDefault("radius_x", cty.Number, num(50)),
				typesys.PortWithDefault("radius_y", cty.Number, num(50)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", value.PathType)},
		},
		NewInput: func() any { return new(ellipseInput) },
		Fn: func(_ context.Context, input *ellipseInput) (cty.Value, error) {
			if input.RadiusX <= 0 || input.RadiusY <= 0 {
				return cty.NilVal, fmt.Errorf("ellipse: radii must be positive, got %v and %v", input.RadiusX, input.RadiusY)
			}
			return value.PathVal(ellipsePath(input.RadiusX, input.RadiusY)), nil
		},
	})

	type lineInput struct {
		X1 float64 `rg:"x1"`
		Y1 float64 `rg:"y1"`
		X2 float64 `rg:"x2"`
		Y2 float64 `rg:"y2"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "line",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.PortWithDefault("x1", cty.Number, num(0)),
				typesys.PortWithDefault("y1", cty.Number, num(0)),
				typesys.PortWithDefault("x2", cty.Number, num(100)),
				typesys.PortWithDefault("y2", cty.Number, num(100)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", value.PathType)},
		},
		NewInput: func() any { return new(lineInput) },
		Fn: func(_ context.Context, input *lineInput) (cty.Value, error) {
			return value.PathVal(linePath(input.X1, input.Y1, input.X2, input.Y2)), nil
		},
	})

	type fillInput struct {
		Path  *value.Path `rg:"path"`
		Color value.Color `rg:"color"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "fill",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("path", value.PathType),
				typesys.PortWithDefault("color", value.ColorType, value.ColorVal(value.Black)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", value.PathType)},
		},
		NewInput: func() any { return new(fillInput) },
		Fn: func(_ context.Context, input *fillInput) (cty.Value, error) {
			out := input.Path.Clone()
			c := input.Color
			out.Style.Fill = &c
			return value.PathVal(out), nil
		},
	})

	type strokeInput struct {
		Path   *value.Path `rg:"path"`
		Color  value.Color `rg:"color"`
		Weight float64     `rg:"weight"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "stroke",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.Port("path", value.PathType),
				typesys.PortWithDefault("color", value.ColorType, value.ColorVal(value.Black)),
				typesys.PortWithDefault("weight", cty.Number, num(0)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("result", value.PathType)},
		},
		NewInput: func() any { return new(strokeInput) },
		Fn: func(_ context.Context, input *strokeInput) (cty.Value, error) {
			if input.Weight < 0 {
				return cty.NilVal, fmt.Errorf("stroke: weight must not be negative, got %v", input.Weight)
			}
			out := input.Path.Clone()
			c := input.Color
			out.Style.Stroke = &c
			out.Style.StrokeWidth = input.Weight
			return value.PathVal(out), nil
		},
	})

	type pathToRasterInput struct {
		Path *value.Path `rg:"path"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "path_to_raster",
		Signature: typesys.Signature{
			Inputs:  []typesys.PortSpec{typesys.Port("path", value.PathType)},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return new(pathToRasterInput) },
		Fn: func(_ context.Context, input *pathToRasterInput) (cty.Value, error) {
			img, err := rasterize(input.Path)
			if err != nil {
				return cty.NilVal, err
			}
			return value.RasterVal(img), nil
		},
	})

	type svgRenderInput struct {
		Element cty.Value `rg:"element"`
	}
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "svg_render",
		Signature: typesys.Signature{
			Inputs:  []typesys.PortSpec{typesys.Port("element", cty.DynamicPseudoType)},
			Outputs: []typesys.PortSpec{typesys.Port("svg", cty.String)},
		},
		NewInput: func() any { return new(svgRenderInput) },
		Fn: func(_ context.Context, input *svgRenderInput) (cty.Value, error) {
			g, err := elementGroup(input.Element)
			if err != nil {
				return cty.NilVal, err
			}
			svg, err := renderSVG(g)
			if err != nil {
				return cty.NilVal, err
			}
			return cty.StringVal(svg), nil
		},
	})

	// Vector output may feed raster inputs directly; the connection picks
	// up an implicit rasterization.
	r.Conversions.Register(typesys.Conversion{
		Name: "path_to_raster",
		From: value.PathType,
		To:   value.RasterType,
		Fn: func(v cty.Value) (cty.Value, error) {
			p, err := value.PathFromValue(v)
			if err != nil {
				return cty.NilVal, err
			}
			img, err := rasterize(p)
			if err != nil {
				return cty.NilVal, err
			}
			return value.RasterVal(img), nil
		},
	})

	// Likewise a layered group flattens to pixels when a raster input
	// consumes it.
	r.Conversions.Register(typesys.Conversion{
		Name: "group_to_raster",
		From: value.GroupType,
		To:   value.RasterType,
		Fn: func(v cty.Value) (cty.Value, error) {
			g, err := value.GroupFromValue(v)
			if err != nil {
				return cty.NilVal, err
			}
			img, err := flattenGroup(g)
			if err != nil {
				return cty.NilVal, err
			}
			return value.RasterVal(img), nil
		},
	})
}

// elementGroup coerces any renderable value into a group: groups pass
// through, paths and rasters wrap as single elements.
func elementGroup(v cty.Value) (*value.Group, error) {
	switch {
	case v.Type().Equals(value.GroupType):
		g, err := value.GroupFromValue(v)
		if err != nil {
			return nil, err
		}
		return g, nil
	case v.Type().Equals(value.PathType):
		p, err := value.PathFromValue(v)
		if err != nil {
			return nil, err
		}
		return &value.Group{Elements: []value.Element{{Path: p, Transform: value.IdentityTransform()}}}, nil
	case v.Type().Equals(value.RasterType):
		r, err := value.RasterFromValue(v)
		if err != nil {
			return nil, err
		}
		return &value.Group{Elements: []value.Element{{Raster: r, Transform: value.IdentityTransform()}}}, nil
	}
	return nil, fmt.Errorf("cannot render %s as svg: expected path, group, or raster", v.Type().FriendlyName())
}
