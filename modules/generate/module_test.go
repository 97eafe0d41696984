package generate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/ctxlog"
	"github.com/vk/rastergraph/internal/registry"
	"github.com/vk/rastergraph/internal/value"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	return ctxlog.WithLogger(context.Background(), slog.New(slog.DiscardHandler))
}

func invokeImaginate(t *testing.T, m *Module, prompt string, width, height, seed int64) (cty.Value, error) {
	t.Helper()
	r := registry.New()
	r.Install(m)
	node, err := r.Lookup("imaginate")
	require.NoError(t, err)
	return r.Invoke(testContext(t), node, []cty.Value{
		cty.StringVal(prompt),
		cty.NumberIntVal(width),
		cty.NumberIntVal(height),
		cty.NumberIntVal(seed),
	})
}

func pngBase64(t *testing.T, img *value.Raster) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, value.EncodePNG(img, &buf))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestModuleValidates(t *testing.T) {
	r := registry.New()
	r.Install(NewModule("http://localhost:1"))
	require.NoError(t, r.ValidateRegistry(testContext(t)))
}

func TestImaginateDecodesServiceImage(t *testing.T) {
	served, err := value.NewRaster(2, 1)
	require.NoError(t, err)
	served.Set(0, 0, value.Color{R: 1, A: 1})
	served.Set(1, 0, value.Color{B: 1, A: 1})

	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.NoError(t, json.NewEncoder(w).Encode(generateResponse{Image: pngBase64(t, served)}))
	}))
	defer srv.Close()

	out, err := invokeImaginate(t, NewModule(srv.URL), "red left, blue right", 2, 1, 42)
	require.NoError(t, err)

	assert.Equal(t, "red left, blue right", got.Prompt)
	assert.Equal(t, 2, got.Width)
	assert.Equal(t, 1, got.Height)
	assert.Equal(t, int64(42), got.Seed)

	img, err := value.RasterFromValue(out)
	require.NoError(t, err)
	require.Equal(t, 2, img.Width)
	require.Equal(t, 1, img.Height)
	assert.InDelta(t, 1, img.At(0, 0).R, 1e-6)
	assert.InDelta(t, 1, img.At(1, 0).B, 1e-6)
}

func TestImaginateServiceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "model is still loading"})
	}))
	defer srv.Close()

	_, err := invokeImaginate(t, NewModule(srv.URL), "anything", 8, 8, 0)
	require.Error(t, err)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusServiceUnavailable, svcErr.Status)
	assert.Contains(t, svcErr.Message, "model is still loading")
}

func TestImaginateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	m := NewModule(srv.URL)
	m.Client = &http.Client{Timeout: 20 * time.Millisecond}

	_, err := invokeImaginate(t, m, "anything", 8, 8, 0)
	require.Error(t, err)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Zero(t, svcErr.Status)
	assert.NotNil(t, svcErr.Cause)
}

func TestImaginateMalformedBody(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{"image": truncated`},
		{name: "missing image", body: `{}`},
		{name: "bad base64", body: `{"image": "@@not-base64@@"}`},
		{name: "not a png", body: `{"image": "` + base64.StdEncoding.EncodeToString([]byte("plain text")) + `"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := invokeImaginate(t, NewModule(srv.URL), "anything", 8, 8, 0)
			require.Error(t, err)

			var svcErr *ServiceError
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, http.StatusOK, svcErr.Status)
		})
	}
}

func TestImaginateRejectsBadResolution(t *testing.T) {
	requested := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = true
	}))
	defer srv.Close()

	_, err := invokeImaginate(t, NewModule(srv.URL), "anything", 0, 8, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolution")

	var svcErr *ServiceError
	assert.False(t, errors.As(err, &svcErr), "local validation is not a service failure")
	assert.False(t, requested, "invalid resolution never reaches the service")
}

func TestImaginateRequiresEndpoint(t *testing.T) {
	_, err := invokeImaginate(t, &Module{}, "anything", 8, 8, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")
}

func TestServiceErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &ServiceError{Message: "request failed", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "generation service: request failed", err.Error())

	withStatus := &ServiceError{Status: 500, Message: "boom"}
	assert.Equal(t, "generation service: boom (status 500)", withStatus.Error())
}
