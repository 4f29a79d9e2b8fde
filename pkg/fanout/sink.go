package fanout

import "context"

// Sink receives formatted record batches. Implementations must be safe for
// concurrent Write calls: the dispatcher flushes destinations independently.
type Sink interface {
	Name() string
	Write(ctx context.Context, batch [][]byte) error
}

// SinkFunc adapts a function to the Sink interface for custom destinations.
type SinkFunc struct {
	name string
	fn   func(ctx context.Context, batch [][]byte) error
}

// NewSinkFunc wraps a function as a named sink.
func NewSinkFunc(name string, fn func(ctx context.Context, batch [][]byte) error) SinkFunc {
	return SinkFunc{name: name, fn: fn}
}

func (s SinkFunc) Name() string { return s.name }

func (s SinkFunc) Write(ctx context.Context, batch [][]byte) error {
	return s.fn(ctx, batch)
}
