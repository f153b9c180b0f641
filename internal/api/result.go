package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ytanalyzer/internal/logging"
	"ytanalyzer/internal/services"
)

// Result is the envelope returned by every Core operation.
type Result[T any] struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Payload T      `json:"payload"`
}

// Kind returns the error kind of a failed result, or "" on success.
func (r Result[T]) Kind() string {
	if r.Success || r.Error == "" {
		return ""
	}
	kind, _, found := strings.Cut(r.Error, ":")
	if !found {
		return services.KindInternal
	}
	return kind
}

func ok[T any](payload T) Result[T] {
	return Result[T]{Success: true, Payload: payload}
}

func failed[T any](err error) Result[T] {
	return Result[T]{Error: services.Describe(err)}
}

// invoke runs fn under a correlation id, logs the outcome, and converts
// errors and panics into a Result.
func invoke[T any](ctx context.Context, c *Core, operation string, fn func(context.Context) (T, error)) (result Result[T]) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithRequestID(ctx, uuid.NewString())
	ctx = services.WithOperation(ctx, operation)
	logger := logging.WithContext(ctx, c.logger)
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := services.Wrap(services.ErrInternal, "api", operation, fmt.Sprintf("panic: %v", r), nil)
			logging.ErrorWithContext(logger, "operation panicked", "api_panic",
				logging.Error(err),
				logging.Hint("inspect the stack of the failing component"),
				logging.Impact("operation returned an internal error"),
			)
			result = failed[T](err)
		}
	}()

	payload, err := fn(ctx)
	elapsed := time.Since(started)
	if err != nil {
		logger.Info("operation failed",
			logging.String("kind", services.Kind(err)),
			logging.Error(err),
			logging.Duration("elapsed", elapsed),
		)
		return failed[T](err)
	}
	logger.Debug("operation completed", logging.Duration("elapsed", elapsed))
	return ok(payload)
}
