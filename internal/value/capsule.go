package value

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
)

// Capsule types for the domain objects. These are the concrete port types
// used by node signatures alongside cty.Number, cty.String and cty.Bool.
var (
	RasterType    = cty.Capsule("raster", reflect.TypeOf(Raster{}))
	PathType      = cty.Capsule("path", reflect.TypeOf(Path{}))
	GroupType     = cty.Capsule("group", reflect.TypeOf(Group{}))
	ColorType     = cty.Capsule("color", reflect.TypeOf(Color{}))
	TransformType = cty.Capsule("transform", reflect.TypeOf(Transform{}))
)

// RasterVal wraps a raster in a cty value.
func RasterVal(r *Raster) cty.Value {
	return cty.CapsuleVal(RasterType, r)
}

// RasterFromValue unwraps a raster, reporting the actual type on mismatch.
func RasterFromValue(v cty.Value) (*Raster, error) {
	if !v.Type().Equals(RasterType) {
		return nil, fmt.Errorf("expected raster, got %s", v.Type().FriendlyName())
	}
	return v.EncapsulatedValue().(*Raster), nil
}

// PathVal wraps a path in a cty value.
func PathVal(p *Path) cty.Value {
	return cty.CapsuleVal(PathType, p)
}

// PathFromValue unwraps a path, reporting the actual type on mismatch.
func PathFromValue(v cty.Value) (*Path, error) {
	if !v.Type().Equals(PathType) {
		return nil, fmt.Errorf("expected path, got %s", v.Type().FriendlyName())
	}
	return v.EncapsulatedValue().(*Path), nil
}

// GroupVal wraps a group in a cty value.
func GroupVal(g *Group) cty.Value {
	return cty.CapsuleVal(GroupType, g)
}

// GroupFromValue unwraps a group, reporting the actual type on mismatch.
func GroupFromValue(v cty.Value) (*Group, error) {
	if !v.Type().Equals(GroupType) {
		return nil, fmt.Errorf("expected group, got %s", v.Type().FriendlyName())
	}
	return v.EncapsulatedValue().(*Group), nil
}

// ColorVal wraps a color in a cty value.
func ColorVal(c Color) cty.Value {
	return cty.CapsuleVal(ColorType, &c)
}

// ColorFromValue unwraps a color, reporting the actual type on mismatch.
func ColorFromValue(v cty.Value) (Color, error) {
	if !v.Type().Equals(ColorType) {
		return Color{}, fmt.Errorf("expected color, got %s", v.Type().FriendlyName())
	}
	return *v.EncapsulatedValue().(*Color), nil
}

// TransformVal wraps a transform in a cty value.
func TransformVal(t Transform) cty.Value {
	return cty.CapsuleVal(TransformType, &t)
}

// TransformFromValue unwraps a transform, reporting the actual type on mismatch.
func TransformFromValue(v cty.Value) (Transform, error) {
	if !v.Type().Equals(TransformType) {
		return Transform{}, fmt.Errorf("expected transform, got %s", v.Type().FriendlyName())
	}
	return *v.EncapsulatedValue().(*Transform), nil
}
