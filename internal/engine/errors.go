package engine

import (
	"fmt"

	"github.com/vk/rastergraph/internal/proto"
)

// EvalError reports a node implementation failure during evaluation. Node
// names the node whose implementation failed, not the requested node:
// downstream nodes skipped because of the failure propagate the same
// error.
type EvalError struct {
	Node  proto.Identity
	Cause error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluation failed for node %s: %v", e.Node, e.Cause)
}

func (e *EvalError) Unwrap() error { return e.Cause }
