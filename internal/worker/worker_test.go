package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocklib/internal/domain"
	"stocklib/internal/handler"
	"stocklib/internal/observability/mocks"
	"stocklib/internal/usecase"
)

type stubExecutor struct {
	result  *usecase.BatchResult
	err     error
	lastReq usecase.BatchRequest
}

func (s *stubExecutor) Execute(_ context.Context, req usecase.BatchRequest) (*usecase.BatchResult, error) {
	s.lastReq = req
	return s.result, s.err
}

func newTestWorker(executor BatchExecutor) *BatchWorker {
	return NewBatchWorker(executor, mocks.NopLogger{}, mocks.NopMetrics{})
}

func batchRequest(t *testing.T, payload any) handler.Request {
	t.Helper()
	req, err := handler.NewRequest("document_batch", payload)
	require.NoError(t, err)
	return req
}

func TestProcess_Success(t *testing.T) {
	executor := &stubExecutor{result: &usecase.BatchResult{
		Ticker:    "ACME",
		Total:     2,
		Succeeded: 2,
	}}

	resp, err := newTestWorker(executor).Process(context.Background(),
		batchRequest(t, usecase.BatchRequest{Ticker: "acme"}))
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, "acme", executor.lastReq.Ticker)

	var result usecase.BatchResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, "ACME", result.Ticker)
	assert.Equal(t, 2, result.Succeeded)
}

func TestProcess_InvalidPayload(t *testing.T) {
	req := handler.Request{ID: "r1", Payload: json.RawMessage(`{not json`)}

	resp, err := newTestWorker(&stubExecutor{}).Process(context.Background(), req)
	require.NoError(t, err)
	require.False(t, resp.Success)
	assert.Equal(t, "INVALID_PAYLOAD", resp.Error.Code)
}

func TestProcess_TickerNotFound(t *testing.T) {
	executor := &stubExecutor{err: domain.NewFetchError(domain.FailureNotFound, "unknown ticker", "https://x.test")}

	resp, err := newTestWorker(executor).Process(context.Background(),
		batchRequest(t, usecase.BatchRequest{Ticker: "NOSUCH"}))
	require.NoError(t, err)
	require.False(t, resp.Success)
	assert.Equal(t, "TICKER_NOT_FOUND", resp.Error.Code)
	assert.False(t, resp.Error.Retryable)
}

func TestProcess_UpstreamErrorRetryable(t *testing.T) {
	executor := &stubExecutor{err: domain.NewFetchError(domain.FailureNetwork, "connection reset", "https://x.test")}

	resp, err := newTestWorker(executor).Process(context.Background(),
		batchRequest(t, usecase.BatchRequest{Ticker: "ACME"}))
	require.NoError(t, err)
	assert.Equal(t, "UPSTREAM_ERROR", resp.Error.Code)
	assert.True(t, resp.Error.Retryable)
}

func TestProcess_ValidationError(t *testing.T) {
	executor := &stubExecutor{err: fmt.Errorf("unknown document category: %q", "10-K")}

	resp, err := newTestWorker(executor).Process(context.Background(),
		batchRequest(t, usecase.BatchRequest{Ticker: "ACME"}))
	require.NoError(t, err)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestHealth(t *testing.T) {
	assert.NoError(t, newTestWorker(&stubExecutor{}).Health(context.Background()))
	assert.Error(t, NewBatchWorker(nil, mocks.NopLogger{}, mocks.NopMetrics{}).Health(context.Background()))
}
