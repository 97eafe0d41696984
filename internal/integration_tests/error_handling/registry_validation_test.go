package error_handling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/registry"
	"github.com/vk/rastergraph/internal/testutil"
	"github.com/vk/rastergraph/internal/typesys"
)

// A registration whose signature and Go handler disagree must stop the
// app before any document is loaded.
func TestMismatchedRegistrationFailsStartup(t *testing.T) {
	type probeInput struct{}
	broken := &testutil.SimpleModule{
		Node: &registry.RegisteredNode{
			Identifier: "broken_probe",
			Signature: typesys.Signature{
				Inputs:  []typesys.PortSpec{typesys.PortWithDefault("level", cty.Number, cty.NumberIntVal(0))},
				Outputs: []typesys.PortSpec{typesys.Port("result", cty.Number)},
			},
			NewInput: func() any { return new(probeInput) },
			Fn: func(_ context.Context, _ *probeInput) (cty.Value, error) {
				return cty.NumberIntVal(0), nil
			},
		},
	}

	doc := `
node "broken_probe" "p" {
  arguments {}
}

export "p" {}
`
	result := testutil.RunRenderTest(t, map[string]string{"main.rg.hcl": doc}, broken)
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "startup panicked")
	assert.Contains(t, result.Err.Error(), "registry validation failed")
	assert.Contains(t, result.Err.Error(), "broken_probe")
	assert.Contains(t, result.Err.Error(), "level")
}
