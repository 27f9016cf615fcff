package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Handler processes one envelope. A returned error is logged and counted by
// the bus; it never reaches the emitter.
type Handler func(ctx context.Context, env *Envelope) error

// Middleware wraps handlers to add cross-cutting concerns.
type Middleware func(next Handler) Handler

// Chain applies middleware in order, with first middleware outermost.
func Chain(h Handler, middleware ...Middleware) Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

// PanicError is returned by Recover when a handler panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// Recover turns handler panics into *PanicError.
func Recover() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, env *Envelope) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Value: r}
				}
			}()
			return next(ctx, env)
		}
	}
}

// Logging logs every handler invocation at debug level with its duration.
func Logging(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		if logger == nil {
			return next
		}
		return func(ctx context.Context, env *Envelope) error {
			start := time.Now()
			err := next(ctx, env)
			logger.DebugContext(ctx, "handled envelope",
				slog.String("event_type", env.Type()),
				slog.String("event_id", env.ID()),
				slog.Duration("duration", time.Since(start)),
				slog.Bool("failed", err != nil),
			)
			return err
		}
	}
}

// Timed reports each invocation's duration and outcome to fn.
func Timed(fn func(eventType string, d time.Duration, err error)) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, env *Envelope) error {
			start := time.Now()
			err := next(ctx, env)
			fn(env.Type(), time.Since(start), err)
			return err
		}
	}
}
