package error_handling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/rastergraph/internal/testutil"
)

func TestUnknownNodeTypeFailsStartup(t *testing.T) {
	result := testutil.RunDocTest(t, `
node "does_not_exist" "x" {
}

export "x" {}
`)
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "startup panicked")
	assert.Contains(t, result.Err.Error(), "does_not_exist")
}

func TestMalformedDocumentFailsStartup(t *testing.T) {
	result := testutil.RunDocTest(t, `
node "value" "broken" {
  arguments {
`)
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "startup panicked")
}

func TestUnconnectedInputFailsCompile(t *testing.T) {
	// blend's image ports have no defaults; leaving them unwired is a
	// compile diagnostic, not a runtime failure.
	result := testutil.RunDocTest(t, `
node "blend" "orphan" {
  arguments {
    blend_mode = "multiply"
  }
}

export "orphan" {}
`)
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "no connection")
	assert.Contains(t, result.LogOutput, "Skipping export with compile errors.")
}

func TestRuntimeFailurePoisonsOnlyDependents(t *testing.T) {
	result := testutil.RunDocTest(t, `
node "logarithm" "bad" {
  arguments {
    primary = -1
  }
}

node "absolute_value" "downstream" {
  arguments {
    primary = node.bad
  }
}

node "value" "independent" {
  arguments {
    value = 7
  }
}

export "downstream" {}
export "independent" {}
`)
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "must be positive")

	testutil.AssertExportWritten(t, result, "independent")
	assert.Equal(t, 0, testutil.CountNodeInvocations(result, "absolute_value"),
		"dependents of a failed node never run")
}
