// Package generate calls an external image-generation service and turns
// its response into a raster. The node behaves like any other handler in
// the graph; a failed request is never retried by the engine, retry is
// the caller's decision.
package generate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rastergraph/internal/ctxlog"
	"github.com/vk/rastergraph/internal/registry"
	"github.com/vk/rastergraph/internal/typesys"
	"github.com/vk/rastergraph/internal/value"
)

// ServiceError reports a failure of the generation service: a timeout, a
// malformed response, or a failure the service reported itself.
type ServiceError struct {
	Status  int // HTTP status when the service answered, 0 otherwise
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("generation service: %s (status %d)", e.Message, e.Status)
	}
	return "generation service: " + e.Message
}

func (e *ServiceError) Unwrap() error { return e.Cause }

// Module implements the registry.Module interface for this package. The
// service endpoint and the HTTP client are fixed at install time.
type Module struct {
	BaseURL string
	Client  *http.Client
}

// NewModule creates the generate module pointed at baseURL.
func NewModule(baseURL string) *Module {
	return &Module{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type imaginateInput struct {
	Prompt string `rg:"prompt"`
	Width  int    `rg:"width"`
	Height int    `rg:"height"`
	Seed   int64  `rg:"seed"`
}

// Register implements the registry.Module interface.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterNode(&registry.RegisteredNode{
		Identifier: "imaginate",
		Signature: typesys.Signature{
			Inputs: []typesys.PortSpec{
				typesys.PortWithDefault("prompt", cty.String, cty.StringVal("")),
				typesys.PortWithDefault("width", cty.Number, cty.NumberIntVal(512)),
				typesys.PortWithDefault("height", cty.Number, cty.NumberIntVal(512)),
				typesys.PortWithDefault("seed", cty.Number, cty.NumberIntVal(0)),
			},
			Outputs: []typesys.PortSpec{typesys.Port("image", value.RasterType)},
		},
		NewInput: func() any { return new(imaginateInput) },
		Fn:       m.runImaginate,
	})
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Seed   int64  `json:"seed"`
}

type generateResponse struct {
	Image string `json:"image"`
}

func (m *Module) runImaginate(ctx context.Context, input *imaginateInput) (cty.Value, error) {
	if m.BaseURL == "" {
		return cty.NilVal, fmt.Errorf("imaginate: no generation service endpoint configured")
	}
	if input.Width < 1 || input.Height < 1 {
		return cty.NilVal, fmt.Errorf("imaginate: resolution must be at least 1x1, got %dx%d", input.Width, input.Height)
	}

	body, err := json.Marshal(generateRequest{
		Prompt: input.Prompt,
		Width:  input.Width,
		Height: input.Height,
		Seed:   input.Seed,
	})
	if err != nil {
		return cty.NilVal, fmt.Errorf("imaginate: encoding request: %w", err)
	}

	logger := ctxlog.FromContext(ctx).With("node", "imaginate", "width", input.Width, "height", input.Height, "seed", input.Seed)
	logger.Debug("Requesting image generation.")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL, bytes.NewReader(body))
	if err != nil {
		return cty.NilVal, fmt.Errorf("imaginate: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return cty.NilVal, &ServiceError{Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return cty.NilVal, &ServiceError{Status: resp.StatusCode, Message: "reading response", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return cty.NilVal, &ServiceError{Status: resp.StatusCode, Message: failureMessage(payload, resp.Status)}
	}

	var decoded generateResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return cty.NilVal, &ServiceError{Status: resp.StatusCode, Message: "malformed response body", Cause: err}
	}
	if decoded.Image == "" {
		return cty.NilVal, &ServiceError{Status: resp.StatusCode, Message: "response carries no image"}
	}

	raw, err := base64.StdEncoding.DecodeString(decoded.Image)
	if err != nil {
		return cty.NilVal, &ServiceError{Status: resp.StatusCode, Message: "image is not valid base64", Cause: err}
	}
	img, err := value.DecodePNGBytes(raw)
	if err != nil {
		return cty.NilVal, &ServiceError{Status: resp.StatusCode, Message: "image is not a decodable png", Cause: err}
	}

	logger.Debug("Generation service answered.", "status", resp.StatusCode)
	return value.RasterVal(img), nil
}

// failureMessage extracts the service's own error text when the body
// carries one, falling back to the HTTP status line.
func failureMessage(body []byte, statusLine string) string {
	var failure struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &failure) == nil && failure.Error != "" {
		return failure.Error
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return statusLine
}
