package metrics

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/hookrelay/pkg/delivery"
)

// AggregatorOption configures an Aggregator at construction.
type AggregatorOption func(*Aggregator)

// WithWindowSize sets the sliding window duration. Default is 5 minutes.
func WithWindowSize(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.windowSize = d
		}
	}
}

// WithMaxSamples caps the number of outcomes retained per destination window.
func WithMaxSamples(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxSamples = n
		}
	}
}

// WithTrendThreshold sets the percentage-point change in success rate between
// consecutive windows that counts as a trend. Default is 2.
func WithTrendThreshold(pp float64) AggregatorOption {
	return func(a *Aggregator) {
		if pp > 0 {
			a.trendThreshold = pp
		}
	}
}

// WithRecomputeInterval sets how often Run rebuilds snapshots. Default 30s.
func WithRecomputeInterval(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.recomputeEvery = d
		}
	}
}

// WithRecentAlertLimit bounds the recent alert list. Default is 100.
func WithRecentAlertLimit(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.recentLimit = n
		}
	}
}

// WithAlertRule registers a rule evaluated on every recompute. An invalid
// rule panics: rules come from startup configuration.
func WithAlertRule(r AlertRule) AggregatorOption {
	if err := r.Validate(); err != nil {
		panic(fmt.Sprintf("WithAlertRule: %v", err))
	}
	return func(a *Aggregator) {
		a.rules = append(a.rules, r)
	}
}

// WithAlertPublisher sets the callback invoked for each breached rule,
// typically bridging into the real-time notifier.
func WithAlertPublisher(fn func(AlertEvent)) AggregatorOption {
	return func(a *Aggregator) {
		a.publish = fn
	}
}

// WithCircuitStates supplies the circuit state source used by Health,
// usually (*delivery.CircuitRegistry).States.
func WithCircuitStates(fn func() map[string]delivery.CircuitState) AggregatorOption {
	return func(a *Aggregator) {
		a.circuitStates = fn
	}
}

// WithClock overrides the time source. Used by tests to control window
// boundaries deterministically.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithTickerFactory overrides how Run obtains its recompute ticker so tests
// can drive recomputes without sleeping.
func WithTickerFactory(fn func(time.Duration) (<-chan time.Time, func())) AggregatorOption {
	return func(a *Aggregator) {
		if fn != nil {
			a.newTicker = fn
		}
	}
}

// WithLogger supplies the structured logger used by the aggregator.
func WithLogger(l *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}
