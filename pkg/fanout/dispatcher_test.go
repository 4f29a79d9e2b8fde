package fanout_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookrelay/pkg/fanout"
)

// captureSink records every batch it receives and can be told to fail.
type captureSink struct {
	mu      sync.Mutex
	name    string
	batches [][][]byte
	writes  int
	fail    bool
}

func (s *captureSink) Name() string { return s.name }

func (s *captureSink) Write(_ context.Context, batch [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.batches = append(s.batches, batch)
	return nil
}

func (s *captureSink) batchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sizes := make([]int, len(s.batches))
	for i, b := range s.batches {
		sizes[i] = len(b)
	}
	return sizes
}

func (s *captureSink) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func register(t *testing.T, d *fanout.Dispatcher, sink fanout.Sink, maxRetries int) {
	t.Helper()
	require.NoError(t, d.Register(fanout.Destination{
		Type:          fanout.DestinationCustom,
		Name:          sink.Name(),
		Enabled:       true,
		MaxRetries:    maxRetries,
		RetryInterval: time.Millisecond,
	}, sink))
}

func dispatchN(d *fanout.Dispatcher, n int) {
	for range n {
		d.Dispatch(fanout.Record{Message: "m", Level: fanout.LevelInfo, Service: "test"})
	}
}

func TestDispatcher_BatchingAcrossDestinations(t *testing.T) {
	t.Parallel()

	a := &captureSink{name: "a"}
	b := &captureSink{name: "b"}
	d := fanout.NewDispatcher(fanout.WithBatchSize(10))
	register(t, d, a, 0)
	register(t, d, b, 0)

	dispatchN(d, 25)
	require.NoError(t, d.Close())

	assert.ElementsMatch(t, []int{10, 10, 5}, a.batchSizes())
	assert.ElementsMatch(t, []int{10, 10, 5}, b.batchSizes())
}

func TestDispatcher_DisabledDestinationSkipped(t *testing.T) {
	t.Parallel()

	a := &captureSink{name: "a"}
	b := &captureSink{name: "b"}
	d := fanout.NewDispatcher(fanout.WithBatchSize(10))
	register(t, d, a, 0)
	register(t, d, b, 0)

	dispatchN(d, 10)
	require.Eventually(t, func() bool {
		return len(b.batchSizes()) == 1
	}, time.Second, 5*time.Millisecond, "first batch lands before disabling")
	require.NoError(t, d.SetEnabled("b", false))
	dispatchN(d, 10)
	require.NoError(t, d.Close())

	assert.ElementsMatch(t, []int{10, 10}, a.batchSizes(), "unaffected destination keeps receiving")
	assert.ElementsMatch(t, []int{10}, b.batchSizes(), "disabled destination stops receiving")
}

func TestDispatcher_RetryBudgetPerDestination(t *testing.T) {
	t.Parallel()

	healthy := &captureSink{name: "healthy"}
	broken := &captureSink{name: "broken", fail: true}
	d := fanout.NewDispatcher(fanout.WithBatchSize(5))
	register(t, d, healthy, 2)
	register(t, d, broken, 2)

	dispatchN(d, 5)
	require.NoError(t, d.Close())

	assert.Equal(t, 3, broken.writeCount(), "initial write plus two retries, then dropped")
	assert.ElementsMatch(t, []int{5}, healthy.batchSizes(), "failing destination does not affect the healthy one")
}

func TestDispatcher_FlushOnTicker(t *testing.T) {
	t.Parallel()

	sink := &captureSink{name: "a"}
	tick := make(chan time.Time)
	d := fanout.NewDispatcher(
		fanout.WithBatchSize(100),
		fanout.WithTickerFactory(func(time.Duration) (<-chan time.Time, func()) {
			return tick, func() {}
		}),
	)
	register(t, d, sink, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	dispatchN(d, 3)
	tick <- time.Now()

	require.Eventually(t, func() bool {
		sizes := sink.batchSizes()
		return len(sizes) == 1 && sizes[0] == 3
	}, time.Second, 5*time.Millisecond, "partial batch flushed by the ticker")

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestDispatcher_CloseFlushesRemainder(t *testing.T) {
	t.Parallel()

	sink := &captureSink{name: "a"}
	d := fanout.NewDispatcher(fanout.WithBatchSize(100))
	register(t, d, sink, 0)

	dispatchN(d, 7)
	require.NoError(t, d.Close())

	assert.ElementsMatch(t, []int{7}, sink.batchSizes())

	d.Dispatch(fanout.Record{Message: "late"})
	require.NoError(t, d.Close(), "close is idempotent")
	assert.ElementsMatch(t, []int{7}, sink.batchSizes(), "records after close are dropped")
}

func TestDispatcher_RegisterRejectsDuplicatesAndInvalid(t *testing.T) {
	t.Parallel()

	d := fanout.NewDispatcher()
	sink := &captureSink{name: "a"}
	register(t, d, sink, 0)

	err := d.Register(fanout.Destination{Type: fanout.DestinationCustom, Name: "a", Enabled: true}, sink)
	assert.ErrorIs(t, err, fanout.ErrDuplicateSink)

	err = d.Register(fanout.Destination{Type: "bogus", Name: "x"}, sink)
	assert.ErrorIs(t, err, fanout.ErrInvalidDestination)

	assert.ErrorIs(t, d.SetEnabled("unknown", true), fanout.ErrInvalidDestination)
}

func TestDispatcher_DefaultsAppliedOnDispatch(t *testing.T) {
	t.Parallel()

	sink := &captureSink{name: "a"}
	d := fanout.NewDispatcher(fanout.WithBatchSize(1))
	register(t, d, sink, 0)

	d.Dispatch(fanout.Record{Message: "bare"})
	require.NoError(t, d.Close())

	require.ElementsMatch(t, []int{1}, sink.batchSizes())
	r, err := fanout.ParseRecord(sink.batches[0][0])
	require.NoError(t, err)
	assert.Equal(t, fanout.LevelInfo, r.Level)
	assert.False(t, r.Timestamp.IsZero())
}

func TestConsoleSink(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := fanout.NewConsoleSink("stdout", &buf)

	require.NoError(t, sink.Write(context.Background(), [][]byte{
		[]byte(`{"message":"one"}`),
		[]byte(`{"message":"two"}`),
	}))

	assert.Equal(t, "{\"message\":\"one\"}\n{\"message\":\"two\"}\n", buf.String())
	assert.Equal(t, "stdout", sink.Name())
}
