package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stocklib/internal/observability"
	"stocklib/internal/observability/mocks"
)

// nopProvider hands out no-op observers for middleware tests.
type nopProvider struct{}

func (nopProvider) Logger(string) observability.Logger   { return mocks.NopLogger{} }
func (nopProvider) Metrics(string) observability.Metrics { return mocks.NopMetrics{} }
func (nopProvider) Close() error                         { return nil }

func TestRecoveryMiddleware_ConvertsPanic(t *testing.T) {
	panicking := func(ctx context.Context, req Request) (Response, error) {
		panic("boom")
	}
	wrapped := RecoveryMiddleware(nopProvider{})(panicking)

	resp, err := wrapped(context.Background(), Request{ID: "r1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic recovered")
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
}

func TestRecoveryMiddleware_PassesThrough(t *testing.T) {
	ok := func(ctx context.Context, req Request) (Response, error) {
		return NewSuccessResponse(req.ID, nil)
	}
	resp, err := RecoveryMiddleware(nopProvider{})(ok)(context.Background(), Request{ID: "r1"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestLoggingMiddleware_SetsDuration(t *testing.T) {
	ok := func(ctx context.Context, req Request) (Response, error) {
		return NewSuccessResponse(req.ID, nil)
	}
	resp, err := LoggingMiddleware(nopProvider{})(ok)(context.Background(), Request{ID: "r1"})
	require.NoError(t, err)
	assert.NotZero(t, resp.Duration)
}

func TestMetricsMiddleware_RecordsOutcomes(t *testing.T) {
	metrics := new(mocks.MockMetrics)
	metrics.On("StartOperation", "handle_request").Return()
	metrics.On("EndOperation", "handle_request").Return()
	metrics.On("RecordDuration", "handle_request", mock.AnythingOfType("float64")).Return()
	metrics.On("RecordError", "handle_request", "TICKER_NOT_FOUND").Return()

	provider := stubProvider{metrics: metrics}
	failing := func(ctx context.Context, req Request) (Response, error) {
		return NewErrorResponse(req.ID, "TICKER_NOT_FOUND", "unknown ticker", ""), nil
	}

	_, err := MetricsMiddleware(provider)(failing)(context.Background(), Request{ID: "r1"})
	require.NoError(t, err)
	metrics.AssertExpectations(t)
}

type stubProvider struct {
	metrics observability.Metrics
}

func (stubProvider) Logger(string) observability.Logger     { return mocks.NopLogger{} }
func (s stubProvider) Metrics(string) observability.Metrics { return s.metrics }
func (stubProvider) Close() error                           { return nil }
