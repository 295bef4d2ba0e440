// Package observability provides structured logging and metrics
// collection for the document retrieval pipeline.
//
// The package follows a provider pattern: the application builds one
// Provider at startup and components request their own Logger and
// Metrics instances by name, so every log line and metric carries the
// component it came from.
package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// Fields represents structured logging fields as key-value pairs.
type Fields map[string]interface{}

// Logger is the contract for structured logging. Implementations emit
// JSON suitable for log aggregation systems.
type Logger interface {
	// Debug logs detailed troubleshooting information, typically
	// filtered out in production.
	Debug(ctx context.Context, msg string, fields Fields)
	// Info logs general operational information.
	Info(ctx context.Context, msg string, fields Fields)
	// Warn logs potentially harmful situations that don't prevent
	// operation.
	Warn(ctx context.Context, msg string, fields Fields)
	// Error logs a failure together with its error value.
	Error(ctx context.Context, msg string, err error, fields Fields)
	// WithFields returns a Logger that includes the given fields in
	// every subsequent entry.
	WithFields(fields Fields) Logger
}

// Metrics is the contract for metrics collection. Implementations
// should expose Prometheus-compatible metrics.
type Metrics interface {
	// RecordSuccess increments the success counter for an operation.
	RecordSuccess(operation string)
	// RecordError increments the error counter for an operation and
	// error category.
	RecordError(operation string, errorType string)
	// RecordDuration records an operation duration in seconds.
	RecordDuration(operation string, seconds float64)
	// RecordFileSize records the size of a processed payload in bytes.
	RecordFileSize(fileType string, bytes int64)
	// StartOperation increments the in-progress gauge; pair with
	// EndOperation, usually via defer.
	StartOperation(operation string)
	// EndOperation decrements the in-progress gauge.
	EndOperation(operation string)
}

// Config holds provider-level observability settings.
type Config struct {
	// ServiceName identifies the service in logs and metric names.
	ServiceName string
	// Environment is the deployment environment (local, staging, ...).
	Environment string
	// LogLevel is the minimum level written ("debug".."error").
	LogLevel string
	// LogOutput defaults to os.Stdout when nil.
	LogOutput io.Writer
	// AdditionalFields are attached to every log entry.
	AdditionalFields Fields
}

// Provider hands out per-component Logger and Metrics instances.
type Provider interface {
	Logger(component string) Logger
	Metrics(component string) Metrics
	Close() error
}

// LoggerFactory builds a Logger for a component; MetricsFactory builds
// its Metrics. They let the provider stay independent of the concrete
// implementations.
type (
	LoggerFactory  func(cfg *Config, component string) Logger
	MetricsFactory func(cfg *Config, component string) Metrics
)

// DefaultProvider implements Provider with lazily created, cached
// per-component instances.
type DefaultProvider struct {
	config     *Config
	newLogger  LoggerFactory
	newMetrics MetricsFactory

	mu      sync.RWMutex
	loggers map[string]Logger
	metrics map[string]Metrics
}

// NewProvider creates a provider backed by the given factories.
func NewProvider(cfg *Config, newLogger LoggerFactory, newMetrics MetricsFactory) *DefaultProvider {
	if cfg.LogOutput == nil {
		cfg.LogOutput = os.Stdout
	}
	return &DefaultProvider{
		config:     cfg,
		newLogger:  newLogger,
		newMetrics: newMetrics,
		loggers:    make(map[string]Logger),
		metrics:    make(map[string]Metrics),
	}
}

// Logger returns the cached Logger for component, creating it on first
// use with a "component" field attached.
func (p *DefaultProvider) Logger(component string) Logger {
	p.mu.RLock()
	if l, ok := p.loggers[component]; ok {
		p.mu.RUnlock()
		return l
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.loggers[component]; ok {
		return l
	}
	l := p.newLogger(p.config, component)
	p.loggers[component] = l
	return l
}

// Metrics returns the cached Metrics for component.
func (p *DefaultProvider) Metrics(component string) Metrics {
	p.mu.RLock()
	if m, ok := p.metrics[component]; ok {
		p.mu.RUnlock()
		return m
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.metrics[component]; ok {
		return m
	}
	m := p.newMetrics(p.config, component)
	p.metrics[component] = m
	return m
}

// Close releases provider resources. Closers on the output writer are
// the caller's responsibility.
func (p *DefaultProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loggers = make(map[string]Logger)
	p.metrics = make(map[string]Metrics)
	return nil
}

var _ Provider = (*DefaultProvider)(nil)

// Validate checks provider configuration before use.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("observability config requires a service name")
	}
	return nil
}
