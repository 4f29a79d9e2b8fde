package ingest

// EventKind is the closed set of inbound webhook event variants. Anything
// outside the known set maps to the explicit unsupported variant instead of
// falling through an open-ended string switch.
type EventKind string

const (
	EventPing        EventKind = "ping"
	EventWorkflowRun EventKind = "workflow_run"
	EventUnsupported EventKind = "unsupported"
)

// Event is a tagged variant: the kind drives dispatch and the name preserves
// the raw event string for acknowledgements and logs.
type Event struct {
	Kind EventKind
	Name string
}

// ClassifyEvent maps a raw event name onto a variant.
func ClassifyEvent(name string) Event {
	switch name {
	case string(EventPing):
		return Event{Kind: EventPing, Name: name}
	case string(EventWorkflowRun):
		return Event{Kind: EventWorkflowRun, Name: name}
	default:
		return Unsupported(name)
	}
}

// Unsupported is the explicit catch-all variant. Unsupported events are
// acknowledged, never processed, and never an error.
func Unsupported(name string) Event {
	return Event{Kind: EventUnsupported, Name: name}
}
