package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocklib/internal/config"
	"stocklib/internal/handler"
)

type scriptedWorker struct {
	healthy  bool
	response handler.Response
}

func (w *scriptedWorker) Name() string { return "scripted" }

func (w *scriptedWorker) Health(context.Context) error {
	if !w.healthy {
		return fmt.Errorf("dependency down")
	}
	return nil
}

func (w *scriptedWorker) Process(_ context.Context, req handler.Request) (handler.Response, error) {
	resp := w.response
	resp.ID = req.ID
	return resp, nil
}

func newTestServer(w *scriptedWorker, cfg config.HandlerConfig) *httptest.Server {
	h := handler.NewHandler(w, cfg)
	return httptest.NewServer(NewHTTPAdapter(h).Mux())
}

func TestServeHTTP_Success(t *testing.T) {
	ok, _ := handler.NewSuccessResponse("", map[string]string{"ticker": "ACME"})
	srv := newTestServer(&scriptedWorker{healthy: true, response: ok}, config.HandlerConfig{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(`{"ticker":"ACME"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded handler.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.True(t, decoded.Success)
	assert.NotEmpty(t, decoded.ID)
}

func TestServeHTTP_RequestIDHeaderPreserved(t *testing.T) {
	ok, _ := handler.NewSuccessResponse("", nil)
	srv := newTestServer(&scriptedWorker{healthy: true, response: ok}, config.HandlerConfig{})
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/", strings.NewReader(`{}`))
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "trace-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded handler.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, "trace-123", decoded.ID)
}

func TestServeHTTP_ErrorStatusMapping(t *testing.T) {
	cases := []struct {
		code   string
		status int
	}{
		{"TICKER_NOT_FOUND", http.StatusNotFound},
		{"VALIDATION_ERROR", http.StatusBadRequest},
		{"UPSTREAM_ERROR", http.StatusBadGateway},
		{"PROCESSING_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			srv := newTestServer(&scriptedWorker{
				healthy:  true,
				response: handler.NewErrorResponse("", tc.code, "failed", ""),
			}, config.HandlerConfig{})
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(`{}`))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(&scriptedWorker{healthy: true}, config.HandlerConfig{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	w := &scriptedWorker{healthy: true}
	srv := newTestServer(w, config.HandlerConfig{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	w.healthy = false
	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&scriptedWorker{healthy: true}, config.HandlerConfig{EnableMetrics: true})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
