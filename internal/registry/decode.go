package registry

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/rastergraph/internal/typesys"
	"github.com/vk/rastergraph/internal/value"
)

// DecodeInputs fills a handler's input struct from frozen port values.
// Fields are matched to ports by their `rg` tag; untagged and unexported
// fields are left alone. Capsule-typed ports unwrap to their Go domain
// types, everything else decodes through gocty.
func DecodeInputs(target any, sig typesys.Signature, inputs []cty.Value) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("input target must be a pointer to a struct, got %T", target)
	}
	st := rv.Elem()

	portIndex := make(map[string]int, len(sig.Inputs))
	for i, p := range sig.Inputs {
		portIndex[p.Name] = i
	}

	for i := 0; i < st.NumField(); i++ {
		field := st.Type().Field(i)
		if !field.IsExported() {
			continue
		}
		tag := strings.Split(field.Tag.Get("rg"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		idx, ok := portIndex[tag]
		if !ok {
			return fmt.Errorf("field %s is tagged for undeclared port %q", field.Name, tag)
		}
		if idx >= len(inputs) || inputs[idx] == cty.NilVal {
			return fmt.Errorf("no value for port %q", tag)
		}
		if err := decodeField(st.Field(i), inputs[idx]); err != nil {
			return fmt.Errorf("port %q: %w", tag, err)
		}
	}
	return nil
}

func decodeField(fv reflect.Value, v cty.Value) error {
	switch fv.Interface().(type) {
	case *value.Raster:
		r, err := value.RasterFromValue(v)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(r))
	case *value.Path:
		p, err := value.PathFromValue(v)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(p))
	case *value.Group:
		g, err := value.GroupFromValue(v)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(g))
	case value.Color:
		c, err := value.ColorFromValue(v)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(c))
	case value.Transform:
		tr, err := value.TransformFromValue(v)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(tr))
	case cty.Value:
		fv.Set(reflect.ValueOf(v))
	default:
		return gocty.FromCtyValue(v, fv.Addr().Interface())
	}
	return nil
}
