package registry

import (
	"context"
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/ctxlog"
)

// Invoke runs a node's native handler against frozen input values.
func (r *Registry) Invoke(ctx context.Context, node *RegisteredNode, inputs []cty.Value) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	var inputStruct any
	if node.NewInput != nil {
		inputStruct = node.NewInput()
		if err := DecodeInputs(inputStruct, node.Signature, inputs); err != nil {
			return cty.NilVal, fmt.Errorf("decoding inputs for '%s': %w", node.Identifier, err)
		}
	}

	logger.Debug("Calling node handler.", "identifier", node.Identifier)
	handlerFunc := reflect.ValueOf(node.Fn)
	callArgs := []reflect.Value{reflect.ValueOf(ctx)}
	if inputStruct == nil {
		callArgs = append(callArgs, reflect.Zero(handlerFunc.Type().In(1)))
	} else {
		callArgs = append(callArgs, reflect.ValueOf(inputStruct))
	}

	results := handlerFunc.Call(callArgs)
	output, errResult := results[0].Interface(), results[1].Interface()
	if errResult != nil {
		return cty.NilVal, errResult.(error)
	}
	return output.(cty.Value), nil
}
