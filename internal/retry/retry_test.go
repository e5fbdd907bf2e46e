package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsAfterTransientErrors(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_Exhausted(t *testing.T) {
	boom := errors.New("boom")
	attempts := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		attempts++
		return boom
	})

	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	boom := errors.New("malformed")
	attempts := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		attempts++
		return NonRetryable(boom)
	})

	assert.True(t, IsNonRetryable(err))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestDo_ContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	cfg := Config{MaxAttempts: 100, InitialDelay: 10 * time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 1}
	attempts := 0
	err := Do(ctx, cfg, func() error {
		attempts++
		return errors.New("down")
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, attempts, 100)
}

func TestDo_OnRetryReportsGrowingDelay(t *testing.T) {
	var delays []time.Duration
	cfg := fastConfig(4)
	cfg.OnRetry = func(_ int, _ error, next time.Duration) {
		delays = append(delays, next)
	}

	_ = Do(context.Background(), cfg, func() error { return errors.New("down") })

	assert.Equal(t, []time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond}, delays)
}

func TestNonRetryable_Nil(t *testing.T) {
	assert.NoError(t, NonRetryable(nil))
	assert.False(t, IsNonRetryable(errors.New("plain")))
}

func TestDo_JitterStaysWithinQuarter(t *testing.T) {
	var delays []time.Duration
	cfg := Config{
		MaxAttempts:  5,
		InitialDelay: 8 * time.Millisecond,
		MaxDelay:     8 * time.Millisecond,
		Multiplier:   1,
		AddJitter:    true,
		OnRetry: func(_ int, _ error, next time.Duration) {
			delays = append(delays, next)
		},
	}

	_ = Do(context.Background(), cfg, func() error { return errors.New("down") })

	assert.Len(t, delays, 4)
	for _, d := range delays {
		assert.GreaterOrEqual(t, d, 6*time.Millisecond)
		assert.LessOrEqual(t, d, 10*time.Millisecond+time.Microsecond)
	}
}

func TestDo_OnRetryAttemptNumbers(t *testing.T) {
	var attempts []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, _ error, _ time.Duration) {
		attempts = append(attempts, attempt)
	}

	err := Do(context.Background(), cfg, func() error { return errors.New("down") })

	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_RejectsInvertedDelays(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Second, MaxDelay: time.Millisecond}
	called := false

	err := Do(context.Background(), cfg, func() error {
		called = true
		return nil
	})

	assert.Error(t, err)
	assert.False(t, called)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.True(t, cfg.AddJitter)
	assert.LessOrEqual(t, cfg.InitialDelay, cfg.MaxDelay)

	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		return errors.New("down")
	})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, attempts)
}
