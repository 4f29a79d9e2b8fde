package delivery

import "time"

// Status is the terminal disposition of a delivery attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Destination describes a configured delivery target. Destinations are
// registered at construction and never mutated afterwards; the Key doubles
// as the circuit breaker key.
type Destination struct {
	Key     string
	URL     string
	Secret  string            // optional outbound signing secret
	Headers map[string]string // optional static headers
}

// Request captures a single logical send. It is immutable once the first
// attempt starts; retries increment Attempt on new physical calls but keep
// the same correlation ID.
type Request struct {
	Destination   string
	URL           string
	Payload       []byte
	Headers       map[string]string
	CorrelationID string
	Attempt       int
	Deadline      time.Time
}

// Outcome records the result of one physical delivery attempt. Outcomes are
// created exactly once per attempt, appended to the outcome stream consumed
// by the metrics aggregator, and never mutated.
type Outcome struct {
	CorrelationID string        `json:"correlation_id"`
	Destination   string        `json:"destination"`
	Status        Status        `json:"status"`
	StatusCode    int           `json:"status_code,omitempty"`
	ErrorKind     ErrorKind     `json:"error_kind,omitempty"`
	Latency       time.Duration `json:"latency"`
	Attempt       int           `json:"attempt"`
	Timestamp     time.Time     `json:"timestamp"`
}

// Success reports whether the outcome is terminal success.
func (o Outcome) Success() bool {
	return o.Status == StatusSuccess
}

// OutcomeRecorder consumes the outcome stream. The metrics aggregator is the
// primary implementation; recorders must not block the delivery path.
type OutcomeRecorder interface {
	Record(outcome Outcome)
}

// OutcomeRecorderFunc adapts a function to the OutcomeRecorder interface.
type OutcomeRecorderFunc func(outcome Outcome)

func (f OutcomeRecorderFunc) Record(outcome Outcome) { f(outcome) }
