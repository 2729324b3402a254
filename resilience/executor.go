/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package resilience

import (
	"context"

	"go.uber.org/zap"
)

// Executor runs store calls through a per-name circuit breaker wrapping the
// retry policy, so an exhausted retry sequence counts as one breaker failure.
type Executor struct {
	Retry    *RetryPolicy
	Breakers *BreakerRegistry
}

// NewExecutor builds an Executor from the given settings.
func NewExecutor(retry RetryConfig, breaker BreakerConfig, logger *zap.Logger) *Executor {
	return &Executor{
		Retry:    NewRetryPolicy(retry, logger),
		Breakers: NewBreakerRegistry(breaker, logger),
	}
}

// Execute runs fn under the breaker named name, retrying transient failures.
func Execute[T any](ctx context.Context, e *Executor, name string, fn func(context.Context) (T, error)) (T, error) {
	res, err := e.Breakers.Get(name).Execute(func() (interface{}, error) {
		return Retry(ctx, e.Retry, name, fn)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}

// Do is Execute for operations without a result.
func Do(ctx context.Context, e *Executor, name string, fn func(context.Context) error) error {
	_, err := Execute(ctx, e, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
