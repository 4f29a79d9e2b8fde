package notify

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the kind of real-time message.
type MessageType string

const (
	// TypeActivityEvent announces a delivery attempt outcome.
	TypeActivityEvent MessageType = "activity_event"
	// TypePerformanceUpdate carries a fresh metrics snapshot.
	TypePerformanceUpdate MessageType = "performance_update"
	// TypeAlertTriggered announces a breached alert rule.
	TypeAlertTriggered MessageType = "alert_triggered"
)

// Valid reports whether the message type is part of the known set.
func (t MessageType) Valid() bool {
	switch t {
	case TypeActivityEvent, TypePerformanceUpdate, TypeAlertTriggered:
		return true
	default:
		return false
	}
}

// Envelope is the wire format for every real-time message. The payload is
// pre-serialized so subscribers of different transports share one encoding.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope wraps a payload in a typed envelope stamped with the current
// time. Unknown message types and unserializable payloads are rejected.
func NewEnvelope(msgType MessageType, payload any) (Envelope, error) {
	if !msgType.Valid() {
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownMessageType, msgType)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrEncodePayload, err)
	}
	return Envelope{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}, nil
}
