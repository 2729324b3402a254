/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package resilience

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/suparena/blogstore/errors"
)

// State is a circuit breaker mode.
type State = gobreaker.State

const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	MaxFailures  uint32        // Consecutive failures that open the breaker (default: 3)
	ResetTimeout time.Duration // Time spent open before a probe is allowed (default: 60s)

	// OnStateChange is called after every transition.
	OnStateChange func(name string, from, to State)
}

// DefaultBreakerConfig returns the default breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:  3,
		ResetTimeout: 60 * time.Second,
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	defaults := DefaultBreakerConfig()
	if c.MaxFailures == 0 {
		c.MaxFailures = defaults.MaxFailures
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = defaults.ResetTimeout
	}
	return c
}

// CircuitBreaker short-circuits an operation class after repeated failures.
//
// Closed counts consecutive failures and opens at MaxFailures. Open rejects
// every call with *errors.CircuitOpenError until ResetTimeout has passed,
// then admits exactly one probe (HalfOpen). A successful probe closes the
// breaker and clears the count; a failed one reopens it.
//
// Caller errors (not found, conflict, validation, configuration,
// serialization, cancellation) are passed through without counting.
type CircuitBreaker struct {
	name   string
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger

	mu          sync.Mutex
	lastFailure time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(name string, config BreakerConfig, logger *zap.Logger) *CircuitBreaker {
	config = config.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &CircuitBreaker{
		name:   name,
		logger: logger.Named("breaker").With(zap.String("breaker", name)),
	}
	maxFailures := config.MaxFailures
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     config.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				b.logger.Warn("circuit breaker opened",
					zap.String("from", from.String()),
					zap.Time("last_failure", b.LastFailure()))
			} else {
				b.logger.Info("circuit breaker state changed",
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			}
			if config.OnStateChange != nil {
				config.OnStateChange(name, from, to)
			}
		},
		IsSuccessful: isBreakerSuccess,
	})
	return b
}

// isBreakerSuccess treats caller errors as successful calls so that they
// never trip the breaker.
func isBreakerSuccess(err error) bool {
	return err == nil ||
		errors.IsCallerError(err) ||
		stderrors.Is(err, context.Canceled)
}

// Name returns the operation name the breaker protects.
func (b *CircuitBreaker) Name() string {
	return b.name
}

// State returns the current mode. An open breaker whose reset timeout has
// elapsed reports HalfOpen.
func (b *CircuitBreaker) State() State {
	return b.cb.State()
}

// Failures returns the current consecutive failure count.
func (b *CircuitBreaker) Failures() uint32 {
	return b.cb.Counts().ConsecutiveFailures
}

// LastFailure returns the time of the most recent counted failure.
func (b *CircuitBreaker) LastFailure() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastFailure
}

// Execute runs fn unless the breaker is open.
func (b *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		v, err := fn()
		if !isBreakerSuccess(err) {
			b.mu.Lock()
			b.lastFailure = time.Now()
			b.mu.Unlock()
		}
		return v, err
	})
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		state := b.cb.State()
		b.logger.Debug("circuit breaker rejected call", zap.String("state", state.String()))
		return nil, &errors.CircuitOpenError{Name: b.name, State: state.String()}
	}
	return res, err
}

// BreakerRegistry lazily creates one breaker per operation name.
type BreakerRegistry struct {
	config   BreakerConfig
	logger   *zap.Logger
	breakers sync.Map // name -> *CircuitBreaker
}

// NewBreakerRegistry creates an empty registry whose breakers share config.
func NewBreakerRegistry(config BreakerConfig, logger *zap.Logger) *BreakerRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BreakerRegistry{config: config.withDefaults(), logger: logger}
}

// Get returns the breaker for name, creating it on first use.
func (r *BreakerRegistry) Get(name string) *CircuitBreaker {
	if b, ok := r.breakers.Load(name); ok {
		return b.(*CircuitBreaker)
	}
	b, _ := r.breakers.LoadOrStore(name, NewCircuitBreaker(name, r.config, r.logger))
	return b.(*CircuitBreaker)
}

// States snapshots the mode of every breaker created so far.
func (r *BreakerRegistry) States() map[string]State {
	states := make(map[string]State)
	r.breakers.Range(func(key, value any) bool {
		states[key.(string)] = value.(*CircuitBreaker).State()
		return true
	})
	return states
}
