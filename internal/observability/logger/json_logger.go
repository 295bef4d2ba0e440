// Package logger provides the structured JSON logging implementation.
// It emits one JSON object per line with a consistent field structure
// for efficient querying in log aggregation systems.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"stocklib/internal/observability"
)

// LogLevel represents the severity of a log message; higher values are
// more severe.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel converts a string level to a LogLevel. Unrecognized
// levels default to InfoLevel.
func ParseLevel(level string) LogLevel {
	switch level {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// String returns the level's wire representation.
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

// JSONLogger implements observability.Logger with line-delimited JSON
// output. Every entry carries timestamp, level, service, environment,
// hostname and message plus persistent and call-specific fields.
// Writes are mutex-guarded so a logger may be shared across goroutines.
type JSONLogger struct {
	mu               sync.RWMutex
	output           io.Writer
	serviceName      string
	environment      string
	hostname         string
	minLevel         LogLevel
	persistentFields observability.Fields
}

// New creates a JSONLogger. A nil output defaults to os.Stdout; the
// system hostname is detected once at construction.
func New(serviceName, environment, logLevel string, output io.Writer, additionalFields observability.Fields) *JSONLogger {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	if output == nil {
		output = os.Stdout
	}
	return &JSONLogger{
		output:           output,
		serviceName:      serviceName,
		environment:      environment,
		hostname:         hostname,
		minLevel:         ParseLevel(logLevel),
		persistentFields: additionalFields,
	}
}

func (l *JSONLogger) Debug(ctx context.Context, msg string, fields observability.Fields) {
	if l.minLevel > DebugLevel {
		return
	}
	l.log(ctx, DebugLevel, msg, nil, fields)
}

func (l *JSONLogger) Info(ctx context.Context, msg string, fields observability.Fields) {
	if l.minLevel > InfoLevel {
		return
	}
	l.log(ctx, InfoLevel, msg, nil, fields)
}

func (l *JSONLogger) Warn(ctx context.Context, msg string, fields observability.Fields) {
	if l.minLevel > WarnLevel {
		return
	}
	l.log(ctx, WarnLevel, msg, nil, fields)
}

func (l *JSONLogger) Error(ctx context.Context, msg string, err error, fields observability.Fields) {
	l.log(ctx, ErrorLevel, msg, err, fields)
}

// WithFields returns a new logger sharing output and configuration but
// carrying the merged persistent fields.
func (l *JSONLogger) WithFields(fields observability.Fields) observability.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	merged := make(observability.Fields, len(l.persistentFields)+len(fields))
	for k, v := range l.persistentFields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return &JSONLogger{
		output:           l.output,
		serviceName:      l.serviceName,
		environment:      l.environment,
		hostname:         l.hostname,
		minLevel:         l.minLevel,
		persistentFields: merged,
	}
}

type contextKey string

// RequestIDKey and BatchIDKey are the context keys whose values are
// automatically extracted into log entries.
const (
	RequestIDKey contextKey = "request_id"
	BatchIDKey   contextKey = "batch_id"
)

func (l *JSONLogger) log(ctx context.Context, level LogLevel, msg string, err error, fields observability.Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := make(observability.Fields)

	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["service"] = l.serviceName
	entry["env"] = l.environment
	entry["hostname"] = l.hostname
	entry["message"] = msg

	if ctx != nil {
		if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
			entry["request_id"] = requestID
		}
		if batchID, ok := ctx.Value(BatchIDKey).(string); ok {
			entry["batch_id"] = batchID
		}
	}

	if err != nil {
		entry["error"] = err.Error()
		entry["error_type"] = fmt.Sprintf("%T", err)
	}

	for k, v := range l.persistentFields {
		entry[k] = v
	}
	for k, v := range fields {
		entry[k] = v
	}

	if jsonBytes, marshalErr := json.Marshal(entry); marshalErr == nil {
		l.output.Write(jsonBytes)
		l.output.Write([]byte("\n"))
	}
}

var _ observability.Logger = (*JSONLogger)(nil)
