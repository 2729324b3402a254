/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package resilience

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/suparena/blogstore/errors"
)

func statusError(code int) error {
	return &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: code}},
		Err:      fmt.Errorf("status %d", code),
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func fastPolicy(maxRetries int) *RetryPolicy {
	return NewRetryPolicy(RetryConfig{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
	}, zap.NewNop())
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	for n := 0; n < 3; n++ {
		t.Run(fmt.Sprintf("failures=%d", n), func(t *testing.T) {
			calls := 0
			v, err := Retry(context.Background(), fastPolicy(3), "op", func(ctx context.Context) (string, error) {
				calls++
				if calls <= n {
					return "", statusError(http.StatusServiceUnavailable)
				}
				return "ok", nil
			})
			require.NoError(t, err)
			assert.Equal(t, "ok", v)
			assert.Equal(t, n+1, calls)
		})
	}
}

func TestRetryExhaustion(t *testing.T) {
	calls := 0
	var attemptErrs []error
	_, err := Retry(context.Background(), fastPolicy(3), "table:blogposts:GetEntity", func(ctx context.Context) (int, error) {
		calls++
		e := fmt.Errorf("attempt %d: %w", calls, statusError(http.StatusTooManyRequests))
		attemptErrs = append(attemptErrs, e)
		return 0, e
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)

	var exhausted *errors.RetryExhaustedError
	require.True(t, stderrors.As(err, &exhausted))
	assert.Equal(t, "table:blogposts:GetEntity", exhausted.Name)
	assert.Equal(t, attemptErrs, exhausted.Errs)
	assert.True(t, errors.IsRetryExhausted(err))
	assert.Equal(t, errors.KindTransient, errors.KindOf(err))
}

func TestRetryFatalErrorNotRetried(t *testing.T) {
	calls := 0
	fatal := errors.NewAlreadyExistsError("Post", "p1/r1")
	_, err := Retry(context.Background(), fastPolicy(3), "op", func(ctx context.Context) (int, error) {
		calls++
		return 0, fatal
	})
	assert.Equal(t, 1, calls)
	assert.Same(t, fatal, err)
}

func TestRetryFatalAfterTransient(t *testing.T) {
	calls := 0
	fatal := stderrors.New("access denied")
	_, err := Retry(context.Background(), fastPolicy(3), "op", func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, timeoutError{}
		}
		return 0, fatal
	})
	assert.Equal(t, 2, calls)
	assert.Equal(t, fatal, err)
}

func TestRetryDelaysDoubleAndCap(t *testing.T) {
	var delays []time.Duration
	policy := NewRetryPolicy(RetryConfig{
		MaxRetries:   5,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
		OnRetry: func(name string, attempt int, delay time.Duration, err error) {
			delays = append(delays, delay)
		},
	}, nil)

	_, err := Retry(context.Background(), policy, "op", func(ctx context.Context) (int, error) {
		return 0, syscallReset()
	})
	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		time.Millisecond,
		2 * time.Millisecond,
		4 * time.Millisecond,
		4 * time.Millisecond,
		4 * time.Millisecond,
	}, delays)
}

func TestRetryLogsAttempts(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	policy := NewRetryPolicy(RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond}, zap.New(core))

	calls := 0
	_, err := Retry(context.Background(), policy, "blob:images:Get", func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, statusError(http.StatusBadGateway)
		}
		return 1, nil
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("retrying operation").All()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].ContextMap()["attempt"])
	assert.Equal(t, int64(2), entries[1].ContextMap()["attempt"])
	assert.Equal(t, "blob:images:Get", entries[0].ContextMap()["operation"])
}

func TestRetryContextCancelled(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{MaxRetries: 3, InitialDelay: time.Hour, MaxDelay: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, policy, "op", func(ctx context.Context) (int, error) {
			calls++
			return 0, timeoutError{}
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestNewRetryPolicyDefaults(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{}, nil)
	assert.Equal(t, 3, p.Config().MaxRetries)
	assert.Equal(t, 100*time.Millisecond, p.Config().InitialDelay)
	assert.Equal(t, 5*time.Second, p.Config().MaxDelay)

	p = NewRetryPolicy(RetryConfig{MaxRetries: -1}, nil)
	calls := 0
	_, err := Retry(context.Background(), p, "op", func(ctx context.Context) (int, error) {
		calls++
		return 0, timeoutError{}
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", timeoutError{}, true},
		{"wrapped timeout", fmt.Errorf("get: %w", timeoutError{}), true},
		{"connection reset", syscallReset(), true},
		{"connection reset text", stderrors.New("read tcp: connection reset by peer"), true},
		{"429", statusError(http.StatusTooManyRequests), true},
		{"500", statusError(http.StatusInternalServerError), true},
		{"502", statusError(http.StatusBadGateway), true},
		{"503", statusError(http.StatusServiceUnavailable), true},
		{"504", statusError(http.StatusGatewayTimeout), true},
		{"400", statusError(http.StatusBadRequest), false},
		{"404", statusError(http.StatusNotFound), false},
		{"throughput", &types.ProvisionedThroughputExceededException{}, true},
		{"request limit", &types.RequestLimitExceeded{}, true},
		{"internal", &types.InternalServerError{}, true},
		{"conditional", &types.ConditionalCheckFailedException{}, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"not found", errors.NewNotFoundError("Post", "k"), false},
		{"plain", stderrors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
