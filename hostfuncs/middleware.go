package hostfuncs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/errors"
)

// Middleware wraps a local function to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps outermost).
type Middleware func(next entities.LocalFunc) entities.LocalFunc

// Chain applies middleware to fn so that mw[0] runs first.
func Chain(fn entities.LocalFunc, mw ...Middleware) entities.LocalFunc {
	wrapped := fn
	for i := len(mw) - 1; i >= 0; i-- {
		wrapped = mw[i](wrapped)
	}
	return wrapped
}

func functionName(ctx context.Context) string {
	if hc, ok := ctx.(HostContext); ok {
		return hc.FunctionName()
	}
	return "unknown"
}

// PanicRecoveryMiddleware converts a panic in the wrapped function into a
// *errors.CalleeError instead of crashing the host.
func PanicRecoveryMiddleware() Middleware {
	return func(next entities.LocalFunc) entities.LocalFunc {
		return func(ctx context.Context, args []entities.Value) (results []entities.Value, err error) {
			defer func() {
				if r := recover(); r != nil {
					results = nil
					err = &errors.CalleeError{
						Function: functionName(ctx),
						Err:      fmt.Errorf("%v", r),
						Stack:    debug.Stack(),
						Panicked: true,
					}
				}
			}()
			return next(ctx, args)
		}
	}
}

// LoggingMiddleware logs every invocation with its function name,
// invocation id and duration.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next entities.LocalFunc) entities.LocalFunc {
		return func(ctx context.Context, args []entities.Value) ([]entities.Value, error) {
			attrs := []any{slog.String("function", functionName(ctx))}
			if hc, ok := ctx.(HostContext); ok {
				attrs = append(attrs, slog.String("invocation_id", hc.InvocationID()))
			}

			logger.DebugContext(ctx, "invoking function", append(attrs, slog.Int("args", len(args)))...)
			start := time.Now()
			results, err := next(ctx, args)
			attrs = append(attrs, slog.Duration("duration", time.Since(start)))
			if err != nil {
				logger.ErrorContext(ctx, "function failed", append(attrs, slog.Any("error", err))...)
			} else {
				logger.DebugContext(ctx, "function completed", attrs...)
			}
			return results, err
		}
	}
}
