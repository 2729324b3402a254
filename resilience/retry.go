/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/suparena/blogstore/errors"
)

// RetryConfig configures a RetryPolicy.
type RetryConfig struct {
	MaxRetries   int           // Retries after the first attempt (default: 3)
	InitialDelay time.Duration // Delay before the first retry (default: 100ms)
	MaxDelay     time.Duration // Delay cap (default: 5s)

	// OnRetry is called before each wait with the failed attempt number
	// (1-based), the delay about to be applied, and the error.
	OnRetry func(name string, attempt int, delay time.Duration, err error)
}

// DefaultRetryConfig returns the default retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}
}

// RetryPolicy re-executes operations that fail with transient errors using
// capped exponential backoff without jitter. It holds no per-call state and
// is safe for concurrent use.
type RetryPolicy struct {
	config RetryConfig
	logger *zap.Logger
}

// NewRetryPolicy fills zero fields from DefaultRetryConfig. A negative
// MaxRetries disables retrying.
func NewRetryPolicy(config RetryConfig, logger *zap.Logger) *RetryPolicy {
	defaults := DefaultRetryConfig()
	if config.MaxRetries == 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = defaults.InitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = defaults.MaxDelay
	}
	if config.MaxDelay < config.InitialDelay {
		config.MaxDelay = config.InitialDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryPolicy{config: config, logger: logger.Named("retry")}
}

// Config returns the effective settings.
func (p *RetryPolicy) Config() RetryConfig {
	return p.config
}

func (p *RetryPolicy) newBackOff() backoff.BackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     p.config.InitialDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         p.config.MaxDelay,
	}
}

// Retry runs fn until it succeeds, fails with a non-transient error, or the
// policy allows no more attempts.
//
// Non-transient errors are returned as-is. When every attempt failed
// transiently the result is an *errors.RetryExhaustedError holding each
// attempt's error in order. A done context aborts the wait and returns the
// context's error.
func Retry[T any](ctx context.Context, p *RetryPolicy, name string, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		attempt int
		errs    []error
	)

	operation := func() (T, error) {
		attempt++
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		errs = append(errs, err)
		if !IsTransient(err) {
			return zero, backoff.Permanent(err)
		}
		return zero, err
	}

	notify := func(err error, delay time.Duration) {
		p.logger.Warn("retrying operation",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		if p.config.OnRetry != nil {
			p.config.OnRetry(name, attempt, delay, err)
		}
	}

	v, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(p.newBackOff()),
		backoff.WithMaxTries(uint(p.config.MaxRetries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err == nil {
		return v, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}
	if len(errs) == 0 {
		return zero, err
	}
	last := errs[len(errs)-1]
	if !IsTransient(last) {
		return zero, last
	}
	p.logger.Error("retries exhausted",
		zap.String("operation", name),
		zap.Int("attempts", len(errs)),
		zap.Error(last))
	return zero, &errors.RetryExhaustedError{Name: name, Errs: errs}
}
