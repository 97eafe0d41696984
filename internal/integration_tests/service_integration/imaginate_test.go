package service_integration

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/rastergraph/modules/generate"

	"github.com/vk/rastergraph/internal/testutil"
	"github.com/vk/rastergraph/internal/value"
)

const imaginateDoc = `
node "imaginate" "dream" {
  arguments {
    prompt = "a solid green square"
    width  = 2
    height = 2
    seed   = 7
  }
}

export "dream" {}
`

func TestImaginateRendersServiceImage(t *testing.T) {
	served, err := value.NewRaster(2, 2)
	require.NoError(t, err)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			served.Set(x, y, value.Color{G: 1, A: 1})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, value.EncodePNG(served, &buf))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		json.NewEncoder(w).Encode(map[string]string{
			"image": base64.StdEncoding.EncodeToString(buf.Bytes()),
		})
	}))
	defer srv.Close()

	result := testutil.RunServiceRenderTest(t, map[string]string{"main.rg.hcl": imaginateDoc}, srv.URL)
	require.NoError(t, result.Err, "logs:\n%s", result.LogOutput)
	testutil.AssertExportWritten(t, result, "dream")

	data, err := os.ReadFile(filepath.Join(result.OutputDir, "render.png"))
	require.NoError(t, err)
	img, err := value.DecodePNGBytes(data)
	require.NoError(t, err)
	require.Equal(t, 2, img.Width)
	px := img.At(0, 0)
	assert.InDelta(t, 0, px.R, 1e-6)
	assert.InDelta(t, 1, px.G, 1e-6)
	assert.InDelta(t, 1, px.A, 1e-6)
}

func TestImaginateServiceFailureSurfacesAsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "out of capacity"})
	}))
	defer srv.Close()

	result := testutil.RunServiceRenderTest(t, map[string]string{"main.rg.hcl": imaginateDoc}, srv.URL)
	require.Error(t, result.Err)

	var svcErr *generate.ServiceError
	require.ErrorAs(t, result.Err, &svcErr)
	assert.Equal(t, http.StatusInternalServerError, svcErr.Status)
	assert.Contains(t, svcErr.Message, "out of capacity")

	// One failed request, no retries.
	assert.Equal(t, 1, testutil.CountNodeInvocations(result, "imaginate"))
}

func TestImaginateWithoutServiceConfigured(t *testing.T) {
	result := testutil.RunRenderTest(t, map[string]string{"main.rg.hcl": imaginateDoc})
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "no generation service endpoint configured")

	var svcErr *generate.ServiceError
	assert.False(t, errors.As(result.Err, &svcErr), "a missing endpoint is local misconfiguration, not a service failure")
}
