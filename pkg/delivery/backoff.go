package delivery

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy is an immutable configuration value shared read-only across
// delivery attempts. MaxAttempts counts physical calls, so MaxAttempts=1
// means no retries.
type RetryPolicy struct {
	MaxAttempts int           `env:"DELIVERY_MAX_ATTEMPTS" envDefault:"3"`
	BaseDelay   time.Duration `env:"DELIVERY_BASE_DELAY" envDefault:"1s"`
	MaxDelay    time.Duration `env:"DELIVERY_MAX_DELAY" envDefault:"30s"`
	Multiplier  float64       `env:"DELIVERY_BACKOFF_MULTIPLIER" envDefault:"2"`
	Jitter      bool          `env:"DELIVERY_BACKOFF_JITTER" envDefault:"true"`
}

// DefaultRetryPolicy balances quick recovery from transient issues with
// protection against overloading failing destinations.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2,
		Jitter:      true,
	}
}

// Delay returns the backoff before the given retry attempt:
// min(MaxDelay, BaseDelay * Multiplier^(attempt-1)), jittered by up to ±20%
// when Jitter is enabled to avoid thundering-herd synchronization across
// concurrent clients. Attempt 1 is the first retry.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	max := p.MaxDelay
	if max <= 0 {
		max = 30 * time.Second
	}
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2
	}

	interval := float64(base) * math.Pow(multiplier, float64(attempt-1))
	if interval > float64(max) {
		interval = float64(max)
	}

	if p.Jitter {
		// Random factor in [0.8, 1.2].
		interval *= 1 + (rand.Float64()*2-1)*0.2
	}

	return time.Duration(interval)
}

// BackoffStrategy calculates retry delays. Implementations must be safe for
// concurrent use; the fan-out dispatcher shares one strategy across all of a
// destination's flush goroutines.
type BackoffStrategy interface {
	// NextInterval returns the backoff duration before the given attempt.
	// Attempt starts at 1 for the first retry.
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with jitter.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFactor    float64
}

// NextInterval calculates exponential backoff with jitter.
// Formula: min(InitialInterval * (Multiplier ^ (attempt-1)) * (1 ± JitterFactor), MaxInterval)
func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial == 0 {
		initial = time.Second
	}
	max := e.MaxInterval
	if max == 0 {
		max = 30 * time.Second
	}
	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	// Zero jitter is intentionally allowed for deterministic behavior.
	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if e.JitterFactor > 0 {
		randomJitter := (rand.Float64()*2 - 1) * e.JitterFactor
		interval *= 1 + randomJitter
	}
	if interval > float64(max) {
		interval = float64(max)
	}

	return time.Duration(interval)
}

// LinearBackoff implements simple linear backoff without jitter.
type LinearBackoff struct {
	Interval    time.Duration
	MaxInterval time.Duration
}

// NextInterval returns linearly increasing delays.
// Formula: min(Interval * attempt, MaxInterval)
func (l LinearBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	interval := l.Interval
	if interval == 0 {
		interval = time.Second
	}
	max := l.MaxInterval
	if max == 0 {
		max = 30 * time.Second
	}

	delay := interval * time.Duration(attempt)
	if delay > max {
		delay = max
	}
	return delay
}

// FixedBackoff implements a constant delay between retries.
type FixedBackoff struct {
	Interval time.Duration
}

// NextInterval always returns the same interval regardless of attempt number.
func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// Strategy adapts the policy to the BackoffStrategy interface so components
// configured with a RetryPolicy and components taking a raw strategy share
// the same delay curve.
func (p RetryPolicy) Strategy() BackoffStrategy {
	jitter := 0.0
	if p.Jitter {
		jitter = 0.2
	}
	return ExponentialBackoff{
		InitialInterval: p.BaseDelay,
		MaxInterval:     p.MaxDelay,
		Multiplier:      p.Multiplier,
		JitterFactor:    jitter,
	}
}
