package document_features

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/rastergraph/internal/testutil"
)

// Two exports share the squared subtree; the cache must collapse the
// second request onto the first result instead of recomputing.
func TestSharedSubtreeEvaluatesOncePerRun(t *testing.T) {
	result := testutil.RunDocTest(t, `
node "value" "seed" {
  arguments {
    value = 3
  }
}

node "multiply" "squared" {
  arguments {
    primary      = node.seed
    multiplicand = node.seed
  }
}

node "add" "plus_one" {
  arguments {
    primary = node.squared
    addend  = 1
  }
}

node "add" "plus_two" {
  arguments {
    primary = node.squared
    addend  = 2
  }
}

export "plus_one" {}
export "plus_two" {}
`)
	require.NoError(t, result.Err, "logs:\n%s", result.LogOutput)
	testutil.AssertExportWritten(t, result, "plus_one")
	testutil.AssertExportWritten(t, result, "plus_two")

	assert.Equal(t, 1, testutil.CountNodeInvocations(result, "multiply"),
		"shared subtree must be computed once across exports")
	assert.Equal(t, 2, testutil.CountNodeInvocations(result, "add"))

	one, err := os.ReadFile(filepath.Join(result.OutputDir, "render.plus_one.png"))
	require.NoError(t, err)
	assert.Equal(t, "10\n", string(one))
	two, err := os.ReadFile(filepath.Join(result.OutputDir, "render.plus_two.png"))
	require.NoError(t, err)
	assert.Equal(t, "11\n", string(two))
}
