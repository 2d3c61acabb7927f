package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/pkg/utils/httpclient"
)

func fastRetry(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

var errTransient = &httpclient.StatusError{StatusCode: http.StatusServiceUnavailable}

func TestRetryEventualSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(2), func() error {
		calls++
		return errTransient
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errTransient)
	assert.Contains(t, err.Error(), "giving up after 2 attempts")
	assert.Equal(t, 2, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := &httpclient.StatusError{StatusCode: http.StatusNotFound, Body: "model not found"}
	calls := 0
	err := Retry(context.Background(), fastRetry(5), func() error {
		calls++
		return permanent
	})
	assert.Same(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, fastRetry(3), func() error { calls++; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	cfg := fastRetry(10)
	cfg.InitialDelay = time.Hour
	err = Retry(ctx, cfg, func() error { return errTransient })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Retry(context.Background(), fastRetry(0), func() error { calls++; return errTransient })
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"breaker open", ErrBreakerOpen, false},
		{"canceled", fmt.Errorf("wrap: %w", context.Canceled), false},
		{"502", &httpclient.StatusError{StatusCode: http.StatusBadGateway}, true},
		{"429", fmt.Errorf("embed: %w", &httpclient.StatusError{StatusCode: http.StatusTooManyRequests}), true},
		{"404", &httpclient.StatusError{StatusCode: http.StatusNotFound}, false},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"plain", errors.New("invalid embedding"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
