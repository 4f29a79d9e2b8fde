package fanout

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// ConsoleSink writes records line by line to an io.Writer, one JSON object
// per line. Writes are serialized so interleaved flushes stay line-atomic.
type ConsoleSink struct {
	mu   sync.Mutex
	name string
	w    io.Writer
}

// NewConsoleSink creates a console sink writing to w.
func NewConsoleSink(name string, w io.Writer) *ConsoleSink {
	return &ConsoleSink{name: name, w: w}
}

func (s *ConsoleSink) Name() string { return s.name }

func (s *ConsoleSink) Write(ctx context.Context, batch [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range batch {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrSinkWrite, err)
		}
		if _, err := s.w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("%w: %w", ErrSinkWrite, err)
		}
	}
	return nil
}
