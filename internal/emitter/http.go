package emitter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// lineageEndpointPath is the OpenLineage ingestion endpoint, relative to the
// backend base URL.
const lineageEndpointPath = "/api/v1/lineage"

// maxErrorBodyBytes bounds how much of an error response body is read for
// diagnostics.
const maxErrorBodyBytes = 4096

// HTTPTransport delivers events with an HTTP POST to the backend's lineage
// endpoint. The underlying http.Client pools connections and is safe for
// concurrent use by many simultaneously open runs.
type HTTPTransport struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPTransport creates an HTTP transport from emission configuration.
// The per-attempt timeout comes from cfg.Timeout; the retry policy around it
// belongs to the Client.
func NewHTTPTransport(cfg *Config) (*HTTPTransport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("emitter config: %w", err)
	}

	return &HTTPTransport{
		endpoint: strings.TrimSuffix(cfg.BaseURL, "/") + lineageEndpointPath,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Deliver POSTs one serialized event.
//
// Status handling:
//   - 2xx: accepted
//   - 4xx: wraps ErrRejected (schema/versioning mismatch or auth failure;
//     retrying cannot help)
//   - 5xx and network errors: returned as transient, the Client retries them
func (t *HTTPTransport) Deliver(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build lineage request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if t.apiKey != "" {
		req.Header.Set("X-API-Key", t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("post lineage event: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return fmt.Errorf("transient backend failure: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
