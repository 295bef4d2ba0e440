// Package worker adapts the document batch use case to the handler
// pipeline.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stocklib/internal/domain"
	"stocklib/internal/handler"
	"stocklib/internal/observability"
	"stocklib/internal/usecase"
)

// BatchExecutor runs document batches. Satisfied by
// usecase.DocumentBatch.
type BatchExecutor interface {
	Execute(ctx context.Context, req usecase.BatchRequest) (*usecase.BatchResult, error)
}

// BatchWorker implements handler.Worker for document batch requests.
type BatchWorker struct {
	executor BatchExecutor
	logger   observability.Logger
	metrics  observability.Metrics
}

// NewBatchWorker creates the worker.
func NewBatchWorker(executor BatchExecutor, logger observability.Logger, metrics observability.Metrics) *BatchWorker {
	return &BatchWorker{
		executor: executor,
		logger:   logger,
		metrics:  metrics,
	}
}

// Name identifies the worker.
func (w *BatchWorker) Name() string {
	return "document_batch"
}

// Health reports readiness.
func (w *BatchWorker) Health(ctx context.Context) error {
	if w.executor == nil {
		return fmt.Errorf("batch executor not wired")
	}
	return nil
}

// Process runs one document batch request.
func (w *BatchWorker) Process(ctx context.Context, request handler.Request) (handler.Response, error) {
	w.metrics.StartOperation("worker_process")
	defer w.metrics.EndOperation("worker_process")
	start := time.Now()
	defer func() {
		w.metrics.RecordDuration("worker_process", time.Since(start).Seconds())
	}()

	var batchReq usecase.BatchRequest
	if err := request.Unmarshal(&batchReq); err != nil {
		w.metrics.RecordError("worker_process", "invalid_payload")
		return handler.NewErrorResponse(request.ID, "INVALID_PAYLOAD",
			"Failed to parse batch request", err.Error()), nil
	}

	result, err := w.executor.Execute(ctx, batchReq)
	if err != nil {
		return w.errorResponse(ctx, request, err), nil
	}

	response, err := handler.NewSuccessResponse(request.ID, result)
	if err != nil {
		w.metrics.RecordError("worker_process", "response_encoding")
		return handler.NewErrorResponse(request.ID, "RESPONSE_ERROR",
			"Failed to encode response", err.Error()), nil
	}

	w.metrics.RecordSuccess("worker_process")
	w.logger.Info(ctx, "Batch request processed", observability.Fields{
		"request_id": request.ID,
		"ticker":     result.Ticker,
		"succeeded":  result.Succeeded,
		"failed":     result.Failed,
	})
	return response, nil
}

func (w *BatchWorker) errorResponse(ctx context.Context, request handler.Request, err error) handler.Response {
	code := "PROCESSING_ERROR"
	retryable := false

	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		retryable = fetchErr.IsRetryable()
		switch fetchErr.Kind {
		case domain.FailureNotFound:
			code = "TICKER_NOT_FOUND"
		default:
			code = "UPSTREAM_ERROR"
		}
	} else if isValidationError(err) {
		code = "VALIDATION_ERROR"
	}

	w.metrics.RecordError("worker_process", code)
	w.logger.Error(ctx, "Batch execution failed", err, observability.Fields{
		"request_id": request.ID,
		"error_code": code,
	})

	resp := handler.NewErrorResponse(request.ID, code, "Failed to execute document batch", err.Error())
	resp.Error.Retryable = retryable
	return resp
}

// isValidationError distinguishes request problems from pipeline
// problems. The use case reports both as plain errors, so the worker
// goes by the messages it produces.
func isValidationError(err error) bool {
	msg := err.Error()
	for _, marker := range []string{
		"ticker is required",
		"unknown document category",
		"archive storage is not configured",
	} {
		if strings.HasPrefix(msg, marker) {
			return true
		}
	}
	return false
}
