package metrics

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Metric names an alertable dimension of a Snapshot.
type Metric string

const (
	MetricSuccessRate  Metric = "success_rate"
	MetricErrorRate    Metric = "error_rate"
	MetricP95LatencyMs Metric = "p95_latency_ms"
	MetricCurrentRate  Metric = "current_rate"
)

// Direction tells whether a rule fires above or below its threshold.
type Direction string

const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

// Severity levels for alert events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// AlertRule is evaluated against every destination snapshot on each
// recompute. A rule fires when the metric crosses the threshold in the
// configured direction.
type AlertRule struct {
	Metric    Metric    `json:"metric"`
	Threshold float64   `json:"threshold"`
	Direction Direction `json:"direction"`
	Severity  string    `json:"severity"`
}

// Validate rejects malformed rules at registration time.
func (r AlertRule) Validate() error {
	switch r.Metric {
	case MetricSuccessRate, MetricErrorRate, MetricP95LatencyMs, MetricCurrentRate:
	default:
		return fmt.Errorf("%w: unknown metric %q", ErrInvalidRule, r.Metric)
	}
	switch r.Direction {
	case DirectionAbove, DirectionBelow:
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidRule, r.Direction)
	}
	return nil
}

// value extracts the rule's metric from a snapshot.
func (r AlertRule) value(s Snapshot) float64 {
	switch r.Metric {
	case MetricSuccessRate:
		return s.SuccessRate
	case MetricErrorRate:
		return 100.0 - s.SuccessRate
	case MetricP95LatencyMs:
		return float64(s.P95Latency.Milliseconds())
	case MetricCurrentRate:
		return s.CurrentRate
	default:
		return 0
	}
}

// breached reports whether the snapshot crosses the rule's threshold.
// Empty windows never breach: there is nothing to alert on yet.
func (r AlertRule) breached(s Snapshot) (float64, bool) {
	if s.Total == 0 {
		return 0, false
	}
	v := r.value(s)
	switch r.Direction {
	case DirectionAbove:
		return v, v > r.Threshold
	case DirectionBelow:
		return v, v < r.Threshold
	default:
		return v, false
	}
}

// AlertEvent is a single rule breach, published to the notifier and kept in
// the bounded recent list.
type AlertEvent struct {
	ID              string    `json:"id"`
	Destination     string    `json:"destination"`
	Metric          Metric    `json:"metric"`
	Direction       Direction `json:"direction"`
	Severity        string    `json:"severity"`
	Threshold       float64   `json:"threshold"`
	Value           float64   `json:"value"`
	Timestamp       time.Time `json:"timestamp"`
	Recommendations []string  `json:"recommendations,omitempty"`
}

func newAlertEvent(rule AlertRule, s Snapshot, value float64, now time.Time) AlertEvent {
	return AlertEvent{
		ID:              uuid.New().String(),
		Destination:     s.Destination,
		Metric:          rule.Metric,
		Direction:       rule.Direction,
		Severity:        rule.Severity,
		Threshold:       rule.Threshold,
		Value:           value,
		Timestamp:       now,
		Recommendations: recommendations(rule.Metric, s),
	}
}

// recommendations produces actionable next steps tailored to the breached
// metric and what the window shows.
func recommendations(metric Metric, s Snapshot) []string {
	var recs []string

	switch metric {
	case MetricSuccessRate, MetricErrorRate:
		recs = append(recs, "inspect the error breakdown to find the dominant failure kind")
		for kind, stat := range s.ErrorBreakdown {
			if stat.Percent >= 50 {
				recs = append(recs, fmt.Sprintf("over half of failures are %s; address that path first", kind))
			}
		}
		if s.Trend == TrendDecreasing {
			recs = append(recs, "success rate is still falling; consider pausing non-critical traffic")
		}
	case MetricP95LatencyMs:
		recs = append(recs, "check destination responsiveness and lower the per-attempt timeout if needed")
	case MetricCurrentRate:
		recs = append(recs, "delivery rate exceeds the configured ceiling; verify upstream is not retry-storming")
	}

	return recs
}
