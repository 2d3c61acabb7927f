package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg *BreakerConfig) (*Breaker, *clock) {
	c := &clock{t: time.Unix(1700000000, 0)}
	b := NewBreaker("test", cfg)
	b.now = c.now
	return b, c
}

func fail() error    { return errBackend }
func succeed() error { return nil }

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b, _ := newTestBreaker(&BreakerConfig{MaxFailures: 3, Cooldown: time.Minute})

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, b.Do(fail), errBackend)
		assert.Equal(t, StateClosed, b.State())
	}
	assert.ErrorIs(t, b.Do(fail), errBackend)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(&BreakerConfig{MaxFailures: 2, Cooldown: time.Minute})

	_ = b.Do(fail)
	require.NoError(t, b.Do(succeed))
	_ = b.Do(fail)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 1, b.Stats().Failures)
}

func TestBreakerHalfOpen(t *testing.T) {
	t.Run("probe succeeds", func(t *testing.T) {
		b, c := newTestBreaker(&BreakerConfig{MaxFailures: 1, Cooldown: time.Minute, HalfOpenProbes: 1})
		_ = b.Do(fail)
		require.Equal(t, StateOpen, b.State())

		c.advance(30 * time.Second)
		assert.ErrorIs(t, b.Do(succeed), ErrBreakerOpen)

		c.advance(31 * time.Second)
		require.NoError(t, b.Do(succeed))
		assert.Equal(t, StateClosed, b.State())
	})

	t.Run("probe fails", func(t *testing.T) {
		b, c := newTestBreaker(&BreakerConfig{MaxFailures: 1, Cooldown: time.Minute, HalfOpenProbes: 1})
		_ = b.Do(fail)

		c.advance(2 * time.Minute)
		assert.ErrorIs(t, b.Do(fail), errBackend)
		assert.Equal(t, StateOpen, b.State())
		assert.ErrorIs(t, b.Do(succeed), ErrBreakerOpen)
	})

	t.Run("probe limit", func(t *testing.T) {
		b, c := newTestBreaker(&BreakerConfig{MaxFailures: 1, Cooldown: time.Minute, HalfOpenProbes: 1})
		_ = b.Do(fail)
		c.advance(2 * time.Minute)

		err := b.Do(func() error {
			// 探测进行中, 其他调用被拒绝
			assert.ErrorIs(t, b.Do(succeed), ErrBreakerOpen)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, StateClosed, b.State())
	})
}

func TestBreakerStateChangeHook(t *testing.T) {
	var transitions []string
	b, c := newTestBreaker(&BreakerConfig{
		MaxFailures: 1,
		Cooldown:    time.Second,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})

	_ = b.Do(fail)
	c.advance(2 * time.Second)
	_ = b.Do(succeed)

	assert.Equal(t, []string{
		"test:closed->open",
		"test:open->half-open",
		"test:half-open->closed",
	}, transitions)
}

func TestBreakerResetAndStats(t *testing.T) {
	b, _ := newTestBreaker(&BreakerConfig{MaxFailures: 1, Cooldown: time.Hour})
	_ = b.Do(fail)

	s := b.Stats()
	assert.Equal(t, "test", s.Name)
	assert.Equal(t, "open", s.State)
	assert.False(t, s.OpenedAt.IsZero())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, b.Stats().Failures)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
