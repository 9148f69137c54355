package cache

import (
	"context"
	"time"

	"github.com/dailyyoga/cacheorch/logger"
	"github.com/dailyyoga/cacheorch/routine"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Attempt is a single try of a refresh cycle, with the source already resolved
type Attempt func(ctx context.Context) (any, error)

// Middleware wraps every refresh attempt of every cache.
// Middlewares can be used for logging, recovery, tracing, metrics, etc.
type Middleware func(next Attempt) Attempt

type contextKey string

const (
	cacheNameKey contextKey = "cache:name"
	attemptKey   contextKey = "cache:attempt"
)

// CacheName returns the name of the cache whose refresh is running in ctx
func CacheName(ctx context.Context) string {
	name, _ := ctx.Value(cacheNameKey).(string)
	return name
}

// AttemptNumber returns the 1-based attempt number of the refresh running in ctx
func AttemptNumber(ctx context.Context) int {
	n, _ := ctx.Value(attemptKey).(int)
	return n
}

func withAttempt(ctx context.Context, name string, attempt int) context.Context {
	ctx = context.WithValue(ctx, cacheNameKey, name)
	return context.WithValue(ctx, attemptKey, attempt)
}

// applyMiddlewares applies multiple middlewares to an attempt.
// applyMiddlewares(a, mw1, mw2, mw3) results in mw1(mw2(mw3(a))).
func applyMiddlewares(a Attempt, mws ...Middleware) Attempt {
	for i := len(mws) - 1; i >= 0; i-- {
		a = mws[i](a)
	}
	return a
}

// recoveryMiddleware converts a panicking refresh into an error and logs its stack
func recoveryMiddleware(log logger.Logger) Middleware {
	return func(next Attempt) Attempt {
		return func(ctx context.Context) (value any, err error) {
			err = routine.Call(func() error {
				var innerErr error
				value, innerErr = next(ctx)
				return innerErr
			})
			if pe, ok := err.(*routine.PanicError); ok {
				log.Error("refresh panicked",
					zap.String("cache", CacheName(ctx)),
					zap.Int("attempt", AttemptNumber(ctx)),
					zap.Any("panic", pe.Value),
					zap.String("stack", string(pe.Stack)),
				)
			}
			return value, err
		}
	}
}

// loggingMiddleware logs attempt outcome and duration
func loggingMiddleware(log logger.Logger) Middleware {
	return func(next Attempt) Attempt {
		return func(ctx context.Context) (any, error) {
			start := time.Now()
			value, err := next(ctx)
			fields := []zap.Field{
				zap.String("cache", CacheName(ctx)),
				zap.Int("attempt", AttemptNumber(ctx)),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				log.Warn("refresh attempt failed", append(fields, zap.Error(err))...)
			} else {
				log.Debug("refresh attempt succeeded", fields...)
			}
			return value, err
		}
	}
}

// tracingMiddleware opens a span per attempt
func tracingMiddleware(tracer trace.Tracer) Middleware {
	return func(next Attempt) Attempt {
		return func(ctx context.Context) (any, error) {
			ctx, span := tracer.Start(ctx, "cache.refresh.attempt",
				trace.WithAttributes(
					attribute.String("cache.name", CacheName(ctx)),
					attribute.Int("cache.attempt", AttemptNumber(ctx)),
				),
			)
			defer span.End()

			value, err := next(ctx)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return value, err
		}
	}
}
