package metrics

import (
	"math"
	"slices"
	"time"

	"github.com/dmitrymomot/hookrelay/pkg/delivery"
)

// Trend describes the success rate direction between consecutive windows.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// KindStat is the per-error-kind slice of a window's failures.
type KindStat struct {
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Snapshot is an immutable view of one destination's sliding window. It is
// rebuilt from scratch on every recompute and swapped in atomically, so the
// success rate and error breakdown always describe the same set of outcomes.
type Snapshot struct {
	Destination    string                          `json:"destination"`
	WindowStart    time.Time                       `json:"window_start"`
	WindowEnd      time.Time                       `json:"window_end"`
	Total          int                             `json:"total"`
	Successes      int                             `json:"successes"`
	Failures       int                             `json:"failures"`
	SuccessRate    float64                         `json:"success_rate"`
	AvgLatency     time.Duration                   `json:"avg_latency"`
	P95Latency     time.Duration                   `json:"p95_latency"`
	CurrentRate    float64                         `json:"current_rate"`
	PeakRate       float64                         `json:"peak_rate"`
	ErrorBreakdown map[delivery.ErrorKind]KindStat `json:"error_breakdown,omitempty"`
	Trend          Trend                           `json:"trend"`
}

// window accumulates outcomes for a single destination. Not safe for
// concurrent use; the aggregator serializes access under its lock.
type window struct {
	size       time.Duration
	maxSamples int
	outcomes   []delivery.Outcome
}

func newWindow(size time.Duration, maxSamples int) *window {
	return &window{size: size, maxSamples: maxSamples}
}

// add appends an outcome unless it is already older than the window.
// Late outcomes inside the window are accepted in arrival order; windows are
// recomputed wholesale so ordering does not affect the derived rates.
func (w *window) add(o delivery.Outcome, now time.Time) bool {
	if now.Sub(o.Timestamp) > w.size {
		return false
	}
	w.outcomes = append(w.outcomes, o)
	if len(w.outcomes) > w.maxSamples {
		w.outcomes = w.outcomes[len(w.outcomes)-w.maxSamples:]
	}
	return true
}

// prune drops outcomes that have aged out of the window.
func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.size)
	kept := w.outcomes[:0]
	for _, o := range w.outcomes {
		if o.Timestamp.After(cutoff) {
			kept = append(kept, o)
		}
	}
	w.outcomes = kept
}

// snapshot derives the metrics for the current window contents.
// prevRate is the previous window's success rate used for trend detection;
// a negative prevRate means no previous window exists and the trend is stable.
func (w *window) snapshot(dest string, now time.Time, prevRate, trendThreshold, peakRate float64) Snapshot {
	s := Snapshot{
		Destination: dest,
		WindowStart: now.Add(-w.size),
		WindowEnd:   now,
		Total:       len(w.outcomes),
		Trend:       TrendStable,
		PeakRate:    peakRate,
	}
	if s.Total == 0 {
		s.SuccessRate = 100.0
		return s
	}

	var latencySum time.Duration
	latencies := make([]time.Duration, 0, s.Total)
	breakdown := make(map[delivery.ErrorKind]KindStat)

	for _, o := range w.outcomes {
		if o.Success() {
			s.Successes++
		} else {
			s.Failures++
			stat := breakdown[o.ErrorKind]
			stat.Count++
			breakdown[o.ErrorKind] = stat
		}
		latencySum += o.Latency
		latencies = append(latencies, o.Latency)
	}

	s.SuccessRate = 100.0 * float64(s.Successes) / float64(s.Total)
	s.AvgLatency = latencySum / time.Duration(s.Total)
	s.P95Latency = percentile(latencies, 0.95)
	s.CurrentRate = float64(s.Total) / w.size.Minutes()
	if s.CurrentRate > s.PeakRate {
		s.PeakRate = s.CurrentRate
	}

	if s.Failures > 0 {
		for kind, stat := range breakdown {
			stat.Percent = 100.0 * float64(stat.Count) / float64(s.Failures)
			breakdown[kind] = stat
		}
		s.ErrorBreakdown = breakdown
	}

	if prevRate >= 0 {
		switch diff := s.SuccessRate - prevRate; {
		case diff > trendThreshold:
			s.Trend = TrendIncreasing
		case diff < -trendThreshold:
			s.Trend = TrendDecreasing
		}
	}

	return s
}

// percentile returns the p-th percentile using nearest-rank on a sorted copy.
func percentile(values []time.Duration, p float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
