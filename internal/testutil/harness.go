package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/rastergraph/internal/app"
	"github.com/vk/rastergraph/internal/registry"
)

// HarnessResult holds the outcomes of one full render through the app
// lifecycle.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
	OutputDir string
}

// RunRenderTest runs the application lifecycle against the given
// document sources and returns the outcome. files maps relative names
// (e.g. "main.rg.hcl") to document text. Artifacts land in OutputDir as
// render.png, or render.<export>.png when several exports are declared.
// With no explicit modules the full core catalog is installed.
func RunRenderTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return runRender(context.Background(), t, files, "", modules...)
}

// RunServiceRenderTest is RunRenderTest with the imaginate node pointed
// at serviceURL.
func RunServiceRenderTest(t *testing.T, files map[string]string, serviceURL string) *HarnessResult {
	t.Helper()
	return runRender(context.Background(), t, files, serviceURL)
}

// RunRenderTestWithContext is RunRenderTest with a caller-owned context.
func RunRenderTestWithContext(ctx context.Context, t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return runRender(ctx, t, files, "", modules...)
}

func runRender(ctx context.Context, t *testing.T, files map[string]string, serviceURL string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	docDir := filepath.Join(tmpDir, "doc")
	outDir := filepath.Join(tmpDir, "out")
	require.NoError(t, os.Mkdir(docDir, 0o755))
	require.NoError(t, os.Mkdir(outDir, 0o755))

	for name, content := range files {
		path := filepath.Join(docDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg, err := app.NewConfig(app.AppConfig{
		DocPath:     docDir,
		OutputPath:  filepath.Join(outDir, "render.png"),
		ServiceURL:  serviceURL,
		LogLevel:    "debug",
		LogFormat:   "text",
		WorkerCount: 4,
	})
	require.NoError(t, err)

	logBuffer := &app.SafeBuffer{}

	// Startup failures panic inside NewApp; the harness turns them into
	// an inspectable error the way the CLI entrypoint does.
	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, cfg, modules...)
	}()
	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
			OutputDir: outDir,
		}
	}
	t.Cleanup(testApp.Close)

	runErr := testApp.Run(ctx)

	if os.Getenv("RG_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
		OutputDir: outDir,
	}
}
