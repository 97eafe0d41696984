package testutil

import "testing"

// RunDocTest is a simplified harness for rendering a single in-memory
// document against the core node catalog.
func RunDocTest(t *testing.T, doc string) *HarnessResult {
	t.Helper()
	return RunRenderTest(t, map[string]string{"main.rg.hcl": doc})
}
