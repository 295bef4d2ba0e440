// Package handler provides the transport-agnostic request pipeline:
// typed Request/Response envelopes, a Worker interface for the
// business logic and a middleware chain wrapping it.
package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"stocklib/internal/config"
	"stocklib/internal/observability/logger"
)

// Request is a transport-agnostic incoming request.
type Request struct {
	// ID uniquely identifies the request for tracing.
	ID string `json:"id"`

	// Source identifies the transport the request arrived on.
	Source string `json:"source"`

	// Type names the requested operation.
	Type string `json:"type"`

	// Payload is the raw request body.
	Payload json.RawMessage `json:"payload"`

	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Response is a transport-agnostic worker response.
type Response struct {
	ID          string            `json:"id"`
	Success     bool              `json:"success"`
	Data        json.RawMessage   `json:"data,omitempty"`
	Error       *ErrorResponse    `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ProcessedAt time.Time         `json:"processed_at"`
	Duration    time.Duration     `json:"duration,omitempty"`
}

// ErrorResponse is structured error information.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// Worker is the business logic behind the pipeline.
type Worker interface {
	// Name identifies the worker in logs and metrics.
	Name() string

	// Process handles one request.
	Process(ctx context.Context, request Request) (Response, error)

	// Health reports whether the worker's dependencies are usable.
	Health(ctx context.Context) error
}

// HandlerFunc is the signature middleware wraps.
type HandlerFunc func(ctx context.Context, req Request) (Response, error)

// Middleware wraps a HandlerFunc with a cross-cutting concern.
type Middleware func(next HandlerFunc) HandlerFunc

// Handler runs requests through the middleware chain into the worker.
type Handler struct {
	worker      Worker
	middlewares []Middleware
	cfg         config.HandlerConfig
}

// NewHandler creates a handler around a worker.
func NewHandler(worker Worker, cfg config.HandlerConfig) *Handler {
	return &Handler{worker: worker, cfg: cfg}
}

// Use appends middleware. The first middleware added becomes the
// outermost layer.
func (h *Handler) Use(middleware Middleware) {
	h.middlewares = append(h.middlewares, middleware)
}

// Worker exposes the wrapped worker.
func (h *Handler) Worker() Worker {
	return h.worker
}

// Config exposes the handler configuration.
func (h *Handler) Config() config.HandlerConfig {
	return h.cfg
}

// Handle processes one request through the chain, bounded by the
// configured timeout.
func (h *Handler) Handle(ctx context.Context, req Request) (Response, error) {
	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}
	ctx = context.WithValue(ctx, logger.RequestIDKey, req.ID)

	chain := h.worker.Process
	for i := len(h.middlewares) - 1; i >= 0; i-- {
		chain = h.middlewares[i](chain)
	}
	return chain(ctx, req)
}

// Health delegates to the worker.
func (h *Handler) Health(ctx context.Context) error {
	return h.worker.Health(ctx)
}

// NewRequest creates a request with a generated ID.
func NewRequest(requestType string, payload interface{}) (Request, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return Request{}, err
	}
	return Request{
		ID:        uuid.New().String(),
		Type:      requestType,
		Payload:   payloadBytes,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UTC(),
	}, nil
}

// Unmarshal decodes the request payload into v.
func (r *Request) Unmarshal(v interface{}) error {
	return json.Unmarshal(r.Payload, v)
}

// NewErrorResponse creates a failed response.
func NewErrorResponse(id, code, message, details string) Response {
	return Response{
		ID:      id,
		Success: false,
		Error: &ErrorResponse{
			Code:    code,
			Message: message,
			Details: details,
		},
		ProcessedAt: time.Now().UTC(),
	}
}

// NewSuccessResponse creates a successful response carrying data.
func NewSuccessResponse(id string, data interface{}) (Response, error) {
	resp := Response{
		ID:          id,
		Success:     true,
		ProcessedAt: time.Now().UTC(),
	}
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return Response{}, err
		}
		resp.Data = encoded
	}
	return resp, nil
}
