// Package framework wraps function handlers with execution logging.
package framework

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/jaronwright/workouts-sub003/pkg/bootstrap"
	"github.com/jaronwright/workouts-sub003/pkg/execution"
)

// HandlerFunc is the signature for a CloudEvent function handler.
// It receives the context, event, service, logger, and execution ID.
// Returns outputs (for logging) and error.
type HandlerFunc func(ctx context.Context, e event.Event, svc *bootstrap.Service, logger *slog.Logger, execID string) (interface{}, error)

// WrapHandler wraps a CloudEvent handler with automatic execution logging.
func WrapHandler(serviceName string, svc *bootstrap.Service, handler HandlerFunc) func(context.Context, event.Event) error {
	return func(ctx context.Context, e event.Event) error {
		logger := slog.With("service", serviceName)

		execID, err := execution.LogStart(ctx, svc.DB, serviceName, execution.Options{
			TriggerType: "pubsub",
		})
		if err != nil {
			logger.Error("Failed to log execution start", "error", err)
			// Continue anyway - don't fail the function just because logging failed
		}

		logger = logger.With("execution_id", execID)
		logger.Info("Function started")

		outputs, handlerErr := handler(ctx, e, svc, logger, execID)

		if handlerErr != nil {
			logger.Error("Function failed", "error", handlerErr)
			if logErr := execution.LogFailure(ctx, svc.DB, execID, handlerErr); logErr != nil {
				logger.Warn("Failed to log execution failure", "error", logErr)
			}
			return handlerErr
		}

		logger.Info("Function completed successfully")
		if logErr := execution.LogSuccess(ctx, svc.DB, execID, outputs); logErr != nil {
			logger.Warn("Failed to log execution success", "error", logErr)
		}

		return nil
	}
}

// HTTPHandlerFunc is the signature for an HTTP function handler.
type HTTPHandlerFunc func(w http.ResponseWriter, r *http.Request, svc *bootstrap.Service, logger *slog.Logger, execID string) (interface{}, error)

// WrapHTTPHandler wraps an HTTP handler with the same execution logging.
// The handler owns the response; the wrapper only records the outcome.
func WrapHTTPHandler(serviceName string, svc *bootstrap.Service, handler HTTPHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := slog.With("service", serviceName)

		execID, err := execution.LogStart(ctx, svc.DB, serviceName, execution.Options{
			TriggerType: "http",
		})
		if err != nil {
			logger.Error("Failed to log execution start", "error", err)
		}

		logger = logger.With("execution_id", execID)
		logger.Info("Function started", "method", r.Method, "path", r.URL.Path)

		outputs, handlerErr := handler(w, r, svc, logger, execID)

		if handlerErr != nil {
			logger.Error("Function failed", "error", handlerErr)
			if logErr := execution.LogFailure(ctx, svc.DB, execID, handlerErr); logErr != nil {
				logger.Warn("Failed to log execution failure", "error", logErr)
			}
			return
		}

		logger.Info("Function completed successfully")
		if logErr := execution.LogSuccess(ctx, svc.DB, execID, outputs); logErr != nil {
			logger.Warn("Failed to log execution success", "error", logErr)
		}
	}
}
