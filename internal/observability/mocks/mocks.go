// Package mocks provides testify-based mock implementations of the
// observability interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"stocklib/internal/observability"
)

// MockLogger is a mock implementation of observability.Logger.
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(ctx context.Context, msg string, fields observability.Fields) {
	m.Called(ctx, msg, fields)
}

func (m *MockLogger) Info(ctx context.Context, msg string, fields observability.Fields) {
	m.Called(ctx, msg, fields)
}

func (m *MockLogger) Warn(ctx context.Context, msg string, fields observability.Fields) {
	m.Called(ctx, msg, fields)
}

func (m *MockLogger) Error(ctx context.Context, msg string, err error, fields observability.Fields) {
	m.Called(ctx, msg, err, fields)
}

func (m *MockLogger) WithFields(fields observability.Fields) observability.Logger {
	args := m.Called(fields)
	if logger, ok := args.Get(0).(observability.Logger); ok {
		return logger
	}
	return m
}

// NopLogger discards everything. Prefer it over MockLogger when a test
// doesn't assert on logging.
type NopLogger struct{}

func (NopLogger) Debug(context.Context, string, observability.Fields)        {}
func (NopLogger) Info(context.Context, string, observability.Fields)         {}
func (NopLogger) Warn(context.Context, string, observability.Fields)         {}
func (NopLogger) Error(context.Context, string, error, observability.Fields) {}
func (n NopLogger) WithFields(observability.Fields) observability.Logger     { return n }

// MockMetrics is a mock implementation of observability.Metrics.
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordSuccess(operation string) {
	m.Called(operation)
}

func (m *MockMetrics) RecordError(operation string, errorType string) {
	m.Called(operation, errorType)
}

func (m *MockMetrics) RecordDuration(operation string, seconds float64) {
	m.Called(operation, seconds)
}

func (m *MockMetrics) RecordFileSize(fileType string, bytes int64) {
	m.Called(fileType, bytes)
}

func (m *MockMetrics) StartOperation(operation string) {
	m.Called(operation)
}

func (m *MockMetrics) EndOperation(operation string) {
	m.Called(operation)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordSuccess(string)          {}
func (NopMetrics) RecordError(string, string)    {}
func (NopMetrics) RecordDuration(string, float64) {}
func (NopMetrics) RecordFileSize(string, int64)  {}
func (NopMetrics) StartOperation(string)         {}
func (NopMetrics) EndOperation(string)           {}
