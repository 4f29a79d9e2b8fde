package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/hookrelay/pkg/delivery"
	"github.com/dmitrymomot/hookrelay/pkg/logger"
)

// boundSink pairs a sink with its destination config and runtime state.
type boundSink struct {
	sink    Sink
	dest    Destination
	backoff delivery.BackoffStrategy

	mu      sync.Mutex
	enabled bool
}

func (b *boundSink) isEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// Dispatcher fans log records out to every enabled destination. Dispatch
// never blocks the caller and never returns an error: logging must not be
// able to take down the paths it observes. Batches are flushed when they
// reach the batch size or on the flush ticker, whichever comes first, and
// each destination is flushed independently with its own retry budget.
type Dispatcher struct {
	mu      sync.Mutex
	pending []Record
	sinks   map[string]*boundSink
	closed  bool

	wg sync.WaitGroup

	format        Formatter
	batchSize     int
	flushInterval time.Duration
	writeTimeout  time.Duration
	newTicker     func(time.Duration) (<-chan time.Time, func())
	log           *slog.Logger
}

// NewDispatcher creates a dispatcher with batch size 10, 5s flush interval,
// and 10s per-write timeout by default.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sinks:         make(map[string]*boundSink),
		format:        JSONFormatter,
		batchSize:     10,
		flushInterval: 5 * time.Second,
		writeTimeout:  10 * time.Second,
		log:           slog.Default(),
		newTicker: func(interval time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(interval)
			return t.C, t.Stop
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register binds a sink to a destination config. The destination must be
// valid and the name unused. Disabled destinations are registered but
// skipped at flush time until enabled.
func (d *Dispatcher) Register(dest Destination, sink Sink) error {
	if err := dest.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.sinks[dest.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateSink, dest.Name)
	}
	d.sinks[dest.Name] = &boundSink{
		sink:    sink,
		dest:    dest,
		backoff: backoffFor(dest),
		enabled: dest.Enabled,
	}
	return nil
}

// SetEnabled toggles a destination at runtime. In-flight flushes for the
// destination complete; subsequent flushes respect the new state.
func (d *Dispatcher) SetEnabled(name string, enabled bool) error {
	d.mu.Lock()
	bs, ok := d.sinks[name]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDestination, name)
	}

	bs.mu.Lock()
	bs.enabled = enabled
	bs.mu.Unlock()
	return nil
}

// Dispatch queues one record. Records with no timestamp are stamped on
// arrival; records with no level default to info. Dispatching to a closed
// dispatcher silently drops the record.
func (d *Dispatcher) Dispatch(r Record) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	if r.Level == "" {
		r.Level = LevelInfo
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.pending = append(d.pending, r)
	full := len(d.pending) >= d.batchSize
	var batch []Record
	if full {
		batch = d.pending
		d.pending = nil
	}
	d.mu.Unlock()

	if full {
		d.flush(batch)
	}
}

// Run flushes partial batches on the configured interval until ctx is done,
// then flushes the remainder.
func (d *Dispatcher) Run(ctx context.Context) error {
	tick, stop := d.newTicker(d.flushInterval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			d.Flush()
			return ctx.Err()
		case <-tick:
			d.Flush()
		}
	}
}

// Flush sends the current partial batch to all enabled destinations.
func (d *Dispatcher) Flush() {
	d.mu.Lock()
	batch := d.pending
	d.pending = nil
	d.mu.Unlock()

	if len(batch) > 0 {
		d.flush(batch)
	}
}

// Close flushes the remainder and waits for in-flight writes to finish.
// Safe to call more than once.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	batch := d.pending
	d.pending = nil
	d.mu.Unlock()

	if len(batch) > 0 {
		d.flush(batch)
	}
	d.wg.Wait()
	return nil
}

// flush formats the batch once and hands it to every enabled destination in
// its own goroutine, so one slow sink cannot delay the others.
func (d *Dispatcher) flush(batch []Record) {
	formatted := make([][]byte, 0, len(batch))
	for _, r := range batch {
		b, err := d.format(r)
		if err != nil {
			d.log.Warn("record dropped by formatter", logger.Error(err))
			continue
		}
		formatted = append(formatted, b)
	}
	if len(formatted) == 0 {
		return
	}

	d.mu.Lock()
	targets := make([]*boundSink, 0, len(d.sinks))
	for _, bs := range d.sinks {
		targets = append(targets, bs)
	}
	d.mu.Unlock()

	for _, bs := range targets {
		if !bs.isEnabled() {
			continue
		}
		d.wg.Add(1)
		go func(bs *boundSink) {
			defer d.wg.Done()
			d.deliver(bs, formatted)
		}(bs)
	}
}

// deliver writes one batch to one destination, retrying per the
// destination's budget. An exhausted budget drops the batch with a warning;
// a log batch is never allowed to wedge the pipeline.
func (d *Dispatcher) deliver(bs *boundSink, batch [][]byte) {
	attempts := bs.dest.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.writeTimeout)
		err := bs.sink.Write(ctx, batch)
		cancel()
		if err == nil {
			return
		}

		d.log.Warn("sink write failed",
			logger.Component("fanout"),
			slog.String("sink", bs.sink.Name()),
			logger.Attempt(attempt),
			logger.Error(err))

		if attempt < attempts {
			time.Sleep(bs.backoff.NextInterval(attempt))
		}
	}

	d.log.Warn("batch dropped after retry budget exhausted",
		logger.Component("fanout"),
		slog.String("sink", bs.sink.Name()),
		slog.Int("records", len(batch)))
}

// backoffFor derives the retry pacing from the destination config: a fixed
// interval when one is set, otherwise a short exponential ramp.
func backoffFor(dest Destination) delivery.BackoffStrategy {
	if dest.RetryInterval > 0 {
		return delivery.FixedBackoff{Interval: dest.RetryInterval}
	}
	return delivery.ExponentialBackoff{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2,
	}
}
