package emitter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/lineage/internal/lineage"
)

func httpTestConfig(baseURL string) *Config {
	cfg := testConfig()
	cfg.BaseURL = baseURL

	return cfg
}

func TestHTTPTransport_Deliver(t *testing.T) {
	var (
		gotPath        string
		gotContentType string
		gotBody        []byte
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	transport, err := NewHTTPTransport(httpTestConfig(server.URL))
	require.NoError(t, err)

	payload, err := lineage.MarshalEvent(testEvent(t))
	require.NoError(t, err)

	err = transport.Deliver(context.Background(), payload)

	require.NoError(t, err)
	assert.Equal(t, "/api/v1/lineage", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, string(payload), string(gotBody))
}

func TestHTTPTransport_TrailingSlashBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/lineage", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport, err := NewHTTPTransport(httpTestConfig(server.URL + "/"))
	require.NoError(t, err)

	assert.NoError(t, transport.Deliver(context.Background(), []byte(`{}`)))
}

func TestHTTPTransport_APIKeyHeader(t *testing.T) {
	var gotKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := httpTestConfig(server.URL)
	cfg.APIKey = "secret-key"

	transport, err := NewHTTPTransport(cfg)
	require.NoError(t, err)

	require.NoError(t, transport.Deliver(context.Background(), []byte(`{}`)))
	assert.Equal(t, "secret-key", gotKey)
}

func TestHTTPTransport_ClientErrorIsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid event"}`))
	}))
	defer server.Close()

	transport, err := NewHTTPTransport(httpTestConfig(server.URL))
	require.NoError(t, err)

	err = transport.Deliver(context.Background(), []byte(`{}`))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "400")
}

func TestHTTPTransport_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	transport, err := NewHTTPTransport(httpTestConfig(server.URL))
	require.NoError(t, err)

	err = transport.Deliver(context.Background(), []byte(`{}`))

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
}

func TestHTTPTransport_ConnectionRefusedIsTransient(t *testing.T) {
	// Reserve a port, then close the listener so nothing is listening.
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	transport, err := NewHTTPTransport(httpTestConfig(server.URL))
	require.NoError(t, err)

	err = transport.Deliver(context.Background(), []byte(`{}`))

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
}

// End-to-end through the Client: 503 for the first N calls then 200 succeeds
// with N+1 requests observed at the server.
func TestClientWithHTTPTransport_RetryFlow(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := httpTestConfig(server.URL)
	cfg.BackoffBase = time.Millisecond

	transport, err := NewHTTPTransport(cfg)
	require.NoError(t, err)

	client, err := NewClient(cfg, transport, nil)
	require.NoError(t, err)

	err = client.Emit(context.Background(), testEvent(t))

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}
