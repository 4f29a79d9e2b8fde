package fanout

import (
	"log/slog"
	"time"
)

// DispatcherOption configures a Dispatcher at construction.
type DispatcherOption func(*Dispatcher)

// WithBatchSize sets how many records trigger an immediate flush. Default 10.
func WithBatchSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

// WithFlushInterval sets how often partial batches are flushed. Default 5s.
func WithFlushInterval(interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.flushInterval = interval
		}
	}
}

// WithWriteTimeout bounds a single sink write so a stalled destination
// cannot hold a flush goroutine forever. Default 10s.
func WithWriteTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.writeTimeout = timeout
		}
	}
}

// WithFormatter replaces the default JSON formatter.
func WithFormatter(f Formatter) DispatcherOption {
	return func(d *Dispatcher) {
		if f != nil {
			d.format = f
		}
	}
}

// WithTickerFactory overrides how Run obtains its flush ticker so tests can
// drive flushes without sleeping.
func WithTickerFactory(fn func(time.Duration) (<-chan time.Time, func())) DispatcherOption {
	return func(d *Dispatcher) {
		if fn != nil {
			d.newTicker = fn
		}
	}
}

// WithLogger supplies the structured logger used for drop warnings.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}
