package fanout

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Level is the severity of a log record.
type Level string

const (
	LevelDebug    Level = "debug"
	LevelInfo     Level = "info"
	LevelWarning  Level = "warn"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// Valid reports whether the level is part of the known set.
func (l Level) Valid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarning, LevelError, LevelCritical:
		return true
	default:
		return false
	}
}

// Record is one log entry flowing through the dispatcher. Records are
// immutable once dispatched; sinks receive formatted copies.
type Record struct {
	Message       string         `json:"message"`
	Level         Level          `json:"level"`
	Service       string         `json:"service"`
	Timestamp     time.Time      `json:"timestamp"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	TraceID       string         `json:"trace_id,omitempty"`
	Environment   string         `json:"environment,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Formatter serializes a record for sink consumption.
type Formatter func(Record) ([]byte, error)

// JSONFormatter is the default formatter: a single-line JSON object.
func JSONFormatter(r Record) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return b, nil
}

// ParseRecord reverses JSONFormatter so formatted records round-trip
// losslessly. Used by consumers reading records back out of a sink.
func ParseRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, errors.Join(ErrParse, err)
	}
	return r, nil
}
