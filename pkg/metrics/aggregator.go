package metrics

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/hookrelay/pkg/delivery"
	"github.com/dmitrymomot/hookrelay/pkg/logger"
)

// Aggregator maintains a sliding window of delivery outcomes per destination
// and derives immutable snapshots from them. It implements
// delivery.OutcomeRecorder so it can be attached directly to a delivery
// client, and it evaluates alert rules on every recompute.
type Aggregator struct {
	mu      sync.Mutex
	windows map[string]*window

	// prevRates and peakRates carry state between recomputes for trend and
	// peak detection. Negative prevRate means no previous window yet.
	prevRates map[string]float64
	peakRates map[string]float64
	stale     atomic.Int64

	snapshots atomic.Pointer[map[string]Snapshot]

	alertMu sync.Mutex
	recent  []AlertEvent

	windowSize     time.Duration
	maxSamples     int
	trendThreshold float64
	recomputeEvery time.Duration
	recentLimit    int
	rules          []AlertRule
	publish        func(AlertEvent)
	circuitStates  func() map[string]delivery.CircuitState
	now            func() time.Time
	newTicker      func(time.Duration) (<-chan time.Time, func())
	log            *slog.Logger
}

// NewAggregator creates an aggregator with a 5 minute window, 2pp trend
// threshold, and 30s recompute interval by default.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		windows:        make(map[string]*window),
		prevRates:      make(map[string]float64),
		peakRates:      make(map[string]float64),
		windowSize:     5 * time.Minute,
		maxSamples:     10_000,
		trendThreshold: 2.0,
		recomputeEvery: 30 * time.Second,
		recentLimit:    100,
		now:            time.Now,
		log:            slog.Default(),
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	empty := make(map[string]Snapshot)
	a.snapshots.Store(&empty)
	return a
}

// Record consumes one delivery outcome. Outcomes already older than the
// window are counted and dropped; they are never applied retroactively.
// Record never blocks beyond a short mutex hold, keeping the delivery path
// fast.
func (a *Aggregator) Record(o delivery.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	w, ok := a.windows[o.Destination]
	if !ok {
		w = newWindow(a.windowSize, a.maxSamples)
		a.windows[o.Destination] = w
	}
	if !w.add(o, a.now()) {
		a.stale.Add(1)
		a.log.Debug("stale outcome dropped",
			logger.Destination(o.Destination), logger.CorrelationID(o.CorrelationID))
	}
}

// Run recomputes snapshots on the configured interval until ctx is done.
func (a *Aggregator) Run(ctx context.Context) error {
	tick, stop := a.newTicker(a.recomputeEvery)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			a.Recompute()
		}
	}
}

// Recompute rebuilds all snapshots from the current window contents and
// swaps them in atomically, then evaluates alert rules against the fresh
// snapshots. Readers never observe a partially updated set.
func (a *Aggregator) Recompute() {
	now := a.now()

	a.mu.Lock()
	next := make(map[string]Snapshot, len(a.windows))
	for dest, w := range a.windows {
		w.prune(now)
		prev, ok := a.prevRates[dest]
		if !ok {
			prev = -1
		}
		s := w.snapshot(dest, now, prev, a.trendThreshold, a.peakRates[dest])
		next[dest] = s
		a.prevRates[dest] = s.SuccessRate
		a.peakRates[dest] = s.PeakRate
	}
	a.mu.Unlock()

	a.snapshots.Store(&next)

	for _, s := range next {
		a.evaluate(s, now)
	}
}

// Snapshots returns the latest snapshot per destination.
func (a *Aggregator) Snapshots() map[string]Snapshot {
	return maps.Clone(*a.snapshots.Load())
}

// SnapshotFor returns the latest snapshot for one destination.
func (a *Aggregator) SnapshotFor(destination string) (Snapshot, bool) {
	s, ok := (*a.snapshots.Load())[destination]
	return s, ok
}

// StaleDropped returns how many outcomes arrived too late to be counted.
func (a *Aggregator) StaleDropped() int64 {
	return a.stale.Load()
}

// RecentAlerts returns the bounded list of recent alert events, newest last.
func (a *Aggregator) RecentAlerts() []AlertEvent {
	a.alertMu.Lock()
	defer a.alertMu.Unlock()
	out := make([]AlertEvent, len(a.recent))
	copy(out, a.recent)
	return out
}

func (a *Aggregator) evaluate(s Snapshot, now time.Time) {
	for _, rule := range a.rules {
		value, breached := rule.breached(s)
		if !breached {
			continue
		}

		event := newAlertEvent(rule, s, value, now)

		a.alertMu.Lock()
		a.recent = append(a.recent, event)
		if len(a.recent) > a.recentLimit {
			a.recent = a.recent[len(a.recent)-a.recentLimit:]
		}
		a.alertMu.Unlock()

		a.log.Warn("alert rule breached",
			logger.Destination(s.Destination),
			slog.String("metric", string(rule.Metric)),
			slog.Float64("value", value),
			slog.Float64("threshold", rule.Threshold),
			slog.String("severity", rule.Severity))

		if a.publish != nil {
			a.publish(event)
		}
	}
}

// HealthStatus is the aggregate service health derived from circuit states
// and recent success rates.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// DestinationHealth is the per-destination slice of a health report.
type DestinationHealth struct {
	Circuit     string  `json:"circuit"`
	SuccessRate float64 `json:"success_rate"`
	Total       int     `json:"total"`
}

// HealthReport is served by the health endpoint.
type HealthReport struct {
	Status       HealthStatus                 `json:"status"`
	Destinations map[string]DestinationHealth `json:"destinations"`
}

// Health derives aggregate health: unhealthy when any circuit is open or a
// destination's success rate fell below 50%, degraded when any circuit is
// half-open or a success rate fell below 90%, healthy otherwise.
func (a *Aggregator) Health() HealthReport {
	report := HealthReport{
		Status:       HealthHealthy,
		Destinations: make(map[string]DestinationHealth),
	}

	snapshots := *a.snapshots.Load()
	var states map[string]delivery.CircuitState
	if a.circuitStates != nil {
		states = a.circuitStates()
	}

	for dest, s := range snapshots {
		dh := DestinationHealth{
			Circuit:     delivery.CircuitClosed.String(),
			SuccessRate: s.SuccessRate,
			Total:       s.Total,
		}
		if state, ok := states[dest]; ok {
			dh.Circuit = state.String()
		}
		report.Destinations[dest] = dh
	}
	for dest, state := range states {
		if _, ok := report.Destinations[dest]; !ok {
			report.Destinations[dest] = DestinationHealth{
				Circuit:     state.String(),
				SuccessRate: 100.0,
			}
		}
	}

	for _, dh := range report.Destinations {
		switch {
		case dh.Circuit == delivery.CircuitOpen.String() || (dh.Total > 0 && dh.SuccessRate < 50):
			report.Status = HealthUnhealthy
		case dh.Circuit == delivery.CircuitHalfOpen.String() || (dh.Total > 0 && dh.SuccessRate < 90):
			if report.Status == HealthHealthy {
				report.Status = HealthDegraded
			}
		}
	}

	return report
}
