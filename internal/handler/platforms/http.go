// Package platforms adapts the transport-agnostic handler to concrete
// delivery surfaces. HTTP is the only one deployed today.
package platforms

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stocklib/internal/handler"
)

// HTTPAdapter serves the handler over plain HTTP. It implements
// http.Handler for the request path; Mux wires the surrounding
// endpoints.
type HTTPAdapter struct {
	handler *handler.Handler
}

// NewHTTPAdapter creates an HTTP adapter around the handler.
func NewHTTPAdapter(h *handler.Handler) *HTTPAdapter {
	return &HTTPAdapter{handler: h}
}

// Mux returns the full route set: the batch endpoint, health and
// Prometheus metrics.
func (a *HTTPAdapter) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/", a)
	mux.HandleFunc("/healthz", a.handleHealth)
	if a.handler.Config().EnableMetrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
	return mux
}

// ServeHTTP handles a batch request.
func (a *HTTPAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := a.readBody(r)
	if err != nil {
		a.writeResponse(w, handler.NewErrorResponse(
			uuid.New().String(), "INVALID_REQUEST", "Failed to read request body", err.Error()))
		return
	}

	req := a.buildRequest(r, body)
	resp, err := a.handler.Handle(r.Context(), req)
	if err != nil && resp.Error == nil {
		resp = handler.NewErrorResponse(req.ID, "INTERNAL_ERROR", "Request processing failed", err.Error())
	}
	a.writeResponse(w, resp)
}

func (a *HTTPAdapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := a.handler.Health(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "healthy",
		"worker": a.handler.Worker().Name(),
		"time":   time.Now().UTC(),
	})
}

func (a *HTTPAdapter) readBody(r *http.Request) ([]byte, error) {
	maxSize := a.handler.Config().MaxRequestSize
	if maxSize <= 0 {
		maxSize = 1 << 20
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxSize)
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

func (a *HTTPAdapter) buildRequest(r *http.Request, body []byte) handler.Request {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return handler.Request{
		ID:        requestID,
		Source:    "http",
		Type:      "document_batch",
		Payload:   json.RawMessage(body),
		Metadata:  map[string]string{"remote_addr": r.RemoteAddr},
		Timestamp: time.Now().UTC(),
	}
}

func (a *HTTPAdapter) writeResponse(w http.ResponseWriter, resp handler.Response) {
	w.Header().Set("Content-Type", "application/json")
	status := http.StatusOK
	if !resp.Success && resp.Error != nil {
		switch resp.Error.Code {
		case "TICKER_NOT_FOUND":
			status = http.StatusNotFound
		case "VALIDATION_ERROR", "INVALID_PAYLOAD", "INVALID_REQUEST":
			status = http.StatusBadRequest
		case "UPSTREAM_ERROR":
			status = http.StatusBadGateway
		default:
			status = http.StatusInternalServerError
		}
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
