// Package resilience 为 Embedding 与生成调用提供重试和熔断。
//
// 生成调用只经过熔断器, 失败不会被自动重试, 由调用方决定是否重新提交。
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/kart-io/logger"
)

// ErrBreakerOpen 熔断器打开时直接返回, 不访问后端。
var ErrBreakerOpen = errors.New("circuit breaker is open")

// State 熔断器状态。
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig 熔断器配置。
type BreakerConfig struct {
	// MaxFailures 连续失败达到该次数后打开。
	MaxFailures int
	// Cooldown 打开后经过该时长进入半开。
	Cooldown time.Duration
	// HalfOpenProbes 半开状态允许的探测调用数, 全部成功后关闭。
	HalfOpenProbes int
	// OnStateChange 状态切换回调, 在持有锁之外调用。
	OnStateChange func(name string, from, to State)
}

// DefaultBreakerConfig 返回默认熔断器配置。
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		MaxFailures:    5,
		Cooldown:       60 * time.Second,
		HalfOpenProbes: 1,
	}
}

// Breaker 按后端命名的熔断器。
type Breaker struct {
	name   string
	config BreakerConfig
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probes   int
	passed   int
}

// NewBreaker 创建熔断器, config 为 nil 时使用默认值。
func NewBreaker(name string, config *BreakerConfig) *Breaker {
	if config == nil {
		config = DefaultBreakerConfig()
	}
	cfg := *config
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 1
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = 1
	}
	return &Breaker{name: name, config: cfg, now: time.Now}
}

// Name 返回熔断器名称。
func (b *Breaker) Name() string {
	return b.name
}

// Do 通过熔断器执行 fn。熔断打开时返回 ErrBreakerOpen。
func (b *Breaker) Do(fn func() error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	err := fn()
	b.release(err)
	return err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	from := b.state
	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.config.Cooldown {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		b.state, b.probes, b.passed = StateHalfOpen, 1, 0
	case StateHalfOpen:
		if b.probes >= b.config.HalfOpenProbes {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		b.probes++
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
	return nil
}

func (b *Breaker) release(err error) {
	b.mu.Lock()
	from := b.state
	if err != nil {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.config.MaxFailures {
			b.state, b.openedAt = StateOpen, b.now()
		}
	} else {
		switch b.state {
		case StateClosed:
			b.failures = 0
		case StateHalfOpen:
			b.passed++
			if b.passed >= b.config.HalfOpenProbes {
				b.state, b.failures = StateClosed, 0
			}
		}
	}
	to, failures := b.state, b.failures
	b.mu.Unlock()

	if from != to && to == StateOpen {
		logger.Warnw("circuit breaker opened", "breaker", b.name, "failures", failures)
	}
	b.notify(from, to)
}

func (b *Breaker) notify(from, to State) {
	if from == to {
		return
	}
	if to != StateOpen {
		logger.Infow("circuit breaker state changed", "breaker", b.name, "from", from.String(), "to", to.String())
	}
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, from, to)
	}
}

// State 返回当前状态。
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// BreakerStats 熔断器快照。
type BreakerStats struct {
	Name     string    `json:"name"`
	State    string    `json:"state"`
	Failures int       `json:"failures"`
	OpenedAt time.Time `json:"opened_at,omitempty"`
}

// Stats 返回熔断器快照。
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStats{
		Name:     b.name,
		State:    b.state.String(),
		Failures: b.failures,
		OpenedAt: b.openedAt,
	}
}

// Reset 强制回到关闭状态。
func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.state
	b.state, b.failures, b.probes, b.passed = StateClosed, 0, 0, 0
	b.mu.Unlock()
	b.notify(from, StateClosed)
}
