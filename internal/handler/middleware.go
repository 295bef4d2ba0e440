package handler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"stocklib/internal/observability"
)

// RecoveryMiddleware converts panics into error responses. It belongs
// at the outermost layer of the chain.
func RecoveryMiddleware(provider observability.Provider) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (resp Response, err error) {
			defer func() {
				if r := recover(); r != nil {
					provider.Logger("handler").Error(ctx, "Panic recovered", fmt.Errorf("%v", r), observability.Fields{
						"request_id": req.ID,
						"stack":      string(debug.Stack()),
					})
					provider.Metrics("handler").RecordError("panic", "panic_recovered")

					// Panic details stay out of the client response.
					resp = NewErrorResponse(req.ID, "INTERNAL_ERROR", "An internal error occurred", "")
					err = fmt.Errorf("panic recovered: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

// LoggingMiddleware logs request start and completion.
func LoggingMiddleware(provider observability.Provider) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			requestLogger := provider.Logger("handler").WithFields(observability.Fields{
				"request_id": req.ID,
				"type":       req.Type,
				"source":     req.Source,
			})

			requestLogger.Info(ctx, "Processing request", observability.Fields{
				"payload_size": len(req.Payload),
			})
			start := time.Now()

			resp, err := next(ctx, req)
			duration := time.Since(start)

			switch {
			case err != nil:
				requestLogger.Error(ctx, "Request failed", err, observability.Fields{
					"duration_ms": duration.Milliseconds(),
				})
			case !resp.Success:
				fields := observability.Fields{"duration_ms": duration.Milliseconds()}
				if resp.Error != nil {
					fields["error_code"] = resp.Error.Code
				}
				requestLogger.Warn(ctx, "Request completed with failure", fields)
			default:
				requestLogger.Info(ctx, "Request completed", observability.Fields{
					"duration_ms": duration.Milliseconds(),
				})
			}

			resp.Duration = duration
			return resp, err
		}
	}
}

// MetricsMiddleware records per-request metrics.
func MetricsMiddleware(provider observability.Provider) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			metrics := provider.Metrics("handler")

			metrics.StartOperation("handle_request")
			defer metrics.EndOperation("handle_request")
			start := time.Now()

			resp, err := next(ctx, req)
			metrics.RecordDuration("handle_request", time.Since(start).Seconds())

			switch {
			case err != nil:
				metrics.RecordError("handle_request", "processing_error")
			case !resp.Success:
				errorType := "unknown_error"
				if resp.Error != nil {
					errorType = resp.Error.Code
				}
				metrics.RecordError("handle_request", errorType)
			default:
				metrics.RecordSuccess("handle_request")
			}
			return resp, err
		}
	}
}
