package registry

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/rastergraph/internal/ctxlog"
	"github.com/vk/rastergraph/internal/value"
)

var (
	contextType  = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	ctyValueType = reflect.TypeOf(cty.Value{})

	rasterPtrType = reflect.TypeOf((*value.Raster)(nil))
	pathPtrType   = reflect.TypeOf((*value.Path)(nil))
	groupPtrType  = reflect.TypeOf((*value.Group)(nil))
	colorType     = reflect.TypeOf(value.Color{})
	transformType = reflect.TypeOf(value.Transform{})
)

// ValidateRegistry performs a strict parity check between node signatures
// and their Go handlers. It checks the handler's shape, the presence of a
// tagged struct field per declared input, and the compatibility of their
// types, plus kernel integrity for device-eligible nodes.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	identifiers := make([]string, 0, len(r.NodeRegistry))
	for id := range r.NodeRegistry {
		identifiers = append(identifiers, id)
	}
	sort.Strings(identifiers)

	for _, id := range identifiers {
		errs = append(errs, validateNode(logger, r.NodeRegistry[id])...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func validateNode(logger *slog.Logger, node *RegisteredNode) []string {
	var errs []string
	id := node.Identifier

	if len(node.Signature.Outputs) == 0 {
		errs = append(errs, fmt.Sprintf("node '%s': signature declares no outputs", id))
	}

	fnType := reflect.TypeOf(node.Fn)
	if fnType == nil || fnType.Kind() != reflect.Func {
		errs = append(errs, fmt.Sprintf("node '%s': Fn is not a function", id))
		return errs
	}
	if fnType.NumIn() != 2 || fnType.In(0) != contextType ||
		fnType.NumOut() != 2 || fnType.Out(0) != ctyValueType || fnType.Out(1) != errorType {
		errs = append(errs, fmt.Sprintf("node '%s': handler must be func(context.Context, *Input) (cty.Value, error), got %s", id, fnType))
		return errs
	}
	inputType := fnType.In(1)
	if inputType.Kind() != reflect.Pointer || inputType.Elem().Kind() != reflect.Struct {
		errs = append(errs, fmt.Sprintf("node '%s': handler input must be a pointer to a struct, got %s", id, inputType))
		return errs
	}

	if node.NewInput != nil {
		if got := reflect.TypeOf(node.NewInput()); got != inputType {
			errs = append(errs, fmt.Sprintf("node '%s': NewInput returns %s but the handler takes %s", id, got, inputType))
		}
	} else if len(node.Signature.Inputs) > 0 {
		errs = append(errs, fmt.Sprintf("node '%s': signature declares inputs, but Go handler has no input constructor", id))
	}

	goInputs := make(map[string]reflect.StructField)
	structType := inputType.Elem()
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() {
			continue
		}
		tagName := strings.Split(field.Tag.Get("rg"), ",")[0]
		if tagName != "" && tagName != "-" {
			goInputs[tagName] = field
		}
	}

	sigInputs := make(map[string]cty.Type, len(node.Signature.Inputs))
	for _, p := range node.Signature.Inputs {
		sigInputs[p.Name] = p.Type
	}

	// Check for presence mismatches
	for name := range goInputs {
		if _, ok := sigInputs[name]; !ok {
			errs = append(errs, fmt.Sprintf("node '%s': Go struct has field for input '%s' which is not declared in the signature", id, name))
		}
	}
	for _, p := range node.Signature.Inputs {
		if _, ok := goInputs[p.Name]; !ok {
			errs = append(errs, fmt.Sprintf("node '%s': signature declares input '%s' which is not found in the Go struct", id, p.Name))
		}
	}

	// Check for type mismatches
	for _, p := range node.Signature.Inputs {
		goField, ok := goInputs[p.Name]
		if !ok {
			continue
		}
		if msg := checkFieldType(logger, id, p.Name, p.Type, goField); msg != "" {
			errs = append(errs, msg)
		}
	}

	errs = append(errs, validateKernel(node)...)
	return errs
}

func checkFieldType(logger *slog.Logger, id, port string, portType cty.Type, field reflect.StructField) string {
	if field.Type == ctyValueType {
		if !portType.Equals(cty.DynamicPseudoType) {
			logger.Warn("Input has a concrete signature type but decodes into a raw cty.Value, which disables static type checking.", "node", id, "input", port)
		}
		return ""
	}
	if portType.Equals(cty.DynamicPseudoType) {
		return fmt.Sprintf("node '%s', input '%s': generic inputs must decode into a cty.Value field, got %s", id, port, field.Type)
	}

	if expected, ok := capsuleFieldType(portType); ok {
		if field.Type != expected {
			return fmt.Sprintf("node '%s', input '%s': type mismatch. Signature requires '%s' but Go struct field '%s' has type %s (want %s)",
				id, port, portType.FriendlyName(), field.Name, field.Type, expected)
		}
		return ""
	}

	goFieldType, err := gocty.ImpliedType(reflect.Zero(field.Type).Interface())
	if err != nil {
		return fmt.Sprintf("node '%s', input '%s': could not imply cty type from Go field type %s: %v", id, port, field.Type, err)
	}
	if !portType.Equals(goFieldType) {
		return fmt.Sprintf("node '%s', input '%s': type mismatch. Signature requires '%s' but Go struct field '%s' provides type '%s'",
			id, port, portType.FriendlyName(), field.Name, goFieldType.FriendlyName())
	}
	return ""
}

func capsuleFieldType(portType cty.Type) (reflect.Type, bool) {
	switch {
	case portType.Equals(value.RasterType):
		return rasterPtrType, true
	case portType.Equals(value.PathType):
		return pathPtrType, true
	case portType.Equals(value.GroupType):
		return groupPtrType, true
	case portType.Equals(value.ColorType):
		return colorType, true
	case portType.Equals(value.TransformType):
		return transformType, true
	}
	return nil, false
}

func validateKernel(node *RegisteredNode) []string {
	if node.Kernel == nil {
		return nil
	}
	var errs []string
	id := node.Identifier
	k := node.Kernel

	if k.Name == "" || k.WGSL == "" {
		errs = append(errs, fmt.Sprintf("node '%s': kernel must carry a name and WGSL source", id))
	}
	if k.Apply == nil {
		errs = append(errs, fmt.Sprintf("node '%s': kernel has no CPU mirror", id))
	}
	if len(node.Signature.Inputs) == 0 || !node.Signature.Inputs[0].Type.Equals(value.RasterType) {
		errs = append(errs, fmt.Sprintf("node '%s': kernel nodes must take a raster as their first input", id))
	}
	sigInputs := make(map[string]cty.Type, len(node.Signature.Inputs))
	for _, p := range node.Signature.Inputs {
		sigInputs[p.Name] = p.Type
	}
	for _, param := range k.Params {
		t, ok := sigInputs[param]
		if !ok {
			errs = append(errs, fmt.Sprintf("node '%s': kernel parameter '%s' is not a declared input", id, param))
			continue
		}
		if !t.Equals(cty.Number) {
			errs = append(errs, fmt.Sprintf("node '%s': kernel parameter '%s' must be a number input, got %s", id, param, t.FriendlyName()))
		}
	}
	return errs
}
