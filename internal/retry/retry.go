package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy controls how many times and how patiently an operation is retried.
type Policy struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Initial     time.Duration `mapstructure:"initial_delay"`
	Multiplier  float64       `mapstructure:"multiplier"`
	Max         time.Duration `mapstructure:"max_delay"`
}

// Permanent wraps err so Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do runs fn until it succeeds, returns a permanent error, attempts run out or
// ctx is cancelled. Delays grow by Multiplier and are capped at Max.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	calls := 0
	b := backoff.WithContext(backoff.WithMaxRetries(exponential(p), uint64(attempts-1)), ctx)
	err := backoff.Retry(func() error {
		calls++
		return fn(ctx)
	}, b)
	if err == nil || calls < attempts || ctx.Err() != nil || attempts == 1 {
		return err
	}
	return fmt.Errorf("failed after %d attempts: %w", calls, err)
}

// exponential builds a jitter-free backoff that never gives up on elapsed time;
// the attempt budget is enforced by WithMaxRetries.
func exponential(p Policy) *backoff.ExponentialBackOff {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	maxDelay := p.Max
	if maxDelay <= 0 {
		maxDelay = time.Duration(math.MaxInt64)
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.Initial,
		RandomizationFactor: 0,
		Multiplier:          mult,
		MaxInterval:         maxDelay,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}
