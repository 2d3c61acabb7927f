package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-rag/pkg/utils/httpclient"
)

// RetryConfig 指数退避重试配置。
type RetryConfig struct {
	// MaxAttempts 最大尝试次数, 包含首次调用。
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Retryable 为 nil 时使用 IsRetryable。
	Retryable func(error) bool
}

// DefaultRetryConfig 返回默认重试配置。
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Retryable:    IsRetryable,
	}
}

// Retry 执行 fn, 可重试错误按指数退避重新执行。
func Retry(ctx context.Context, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	retryable := config.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	attempts := max(config.MaxAttempts, 1)

	delay := config.InitialDelay
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil || !retryable(err) {
			return err
		}
		if attempt >= attempts {
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		logger.Debugw("retrying after transient error", "attempt", attempt, "delay", delay.String(), "error", err.Error())

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		delay = time.Duration(float64(delay) * config.Multiplier)
		if config.MaxDelay > 0 && delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}
}

// IsRetryable 判断 Ollama 调用错误是否为瞬时故障。
// 网络错误、5xx、429 和 408 可重试, 熔断与上下文错误不可重试。
func IsRetryable(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, ErrBreakerOpen),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}

	var se *httpclient.StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusInternalServerError ||
			se.StatusCode == http.StatusTooManyRequests ||
			se.StatusCode == http.StatusRequestTimeout
	}

	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET)
}
