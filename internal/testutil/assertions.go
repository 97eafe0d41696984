package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertExportWritten checks the harness log output to confirm that a
// named export produced an artifact. Matching on the log line keeps the
// assertion independent of artifact naming internals.
func AssertExportWritten(t *testing.T, result *HarnessResult, export string) {
	t.Helper()

	expected := fmt.Sprintf(`msg="Export written." export=%s `, export)
	require.True(t,
		strings.Contains(result.LogOutput, expected),
		"expected log output for written export %q was not found in logs", export,
	)
}

// CountNodeInvocations reports how many times a node type's handler ran
// during the harness render, by counting the registry's invocation logs.
// The harness always logs in text format at debug level, which is what
// the substring match relies on.
func CountNodeInvocations(result *HarnessResult, identifier string) int {
	return strings.Count(result.LogOutput, fmt.Sprintf("identifier=%s\n", identifier))
}

// AssertNodeInvoked confirms a node type's handler ran at least once.
func AssertNodeInvoked(t *testing.T, result *HarnessResult, identifier string) {
	t.Helper()
	require.Positive(t, CountNodeInvocations(result, identifier),
		"expected node type %q to have been invoked", identifier)
}
