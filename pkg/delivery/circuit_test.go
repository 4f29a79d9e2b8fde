package delivery_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/hookrelay/pkg/delivery"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	cb := delivery.NewCircuitBreaker(3, 1, time.Minute)

	assert.Equal(t, delivery.CircuitClosed, cb.State())
	assert.True(t, cb.Allow())

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, delivery.CircuitClosed, cb.State(), "below threshold stays closed")
	assert.True(t, cb.Allow())

	cb.RecordFailure()
	assert.Equal(t, delivery.CircuitOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	cb := delivery.NewCircuitBreaker(3, 1, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	assert.Equal(t, delivery.CircuitClosed, cb.State(), "success interleaved, never 3 consecutive failures")
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_HalfOpenAfterRecoveryTimeout(t *testing.T) {
	t.Parallel()

	cb := delivery.NewCircuitBreaker(1, 1, 20*time.Millisecond)

	cb.RecordFailure()
	assert.Equal(t, delivery.CircuitOpen, cb.State())
	assert.False(t, cb.Allow())

	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, delivery.CircuitHalfOpen, cb.State())
	assert.True(t, cb.Allow(), "probe allowed after recovery timeout")
}

func TestCircuitBreaker_HalfOpenTransitions(t *testing.T) {
	t.Parallel()

	t.Run("probe success closes", func(t *testing.T) {
		t.Parallel()

		cb := delivery.NewCircuitBreaker(1, 1, 20*time.Millisecond)
		cb.RecordFailure()
		time.Sleep(30 * time.Millisecond)
		assert.True(t, cb.Allow())

		cb.RecordSuccess()
		assert.Equal(t, delivery.CircuitClosed, cb.State())
		assert.True(t, cb.Allow())
	})

	t.Run("probe failure reopens", func(t *testing.T) {
		t.Parallel()

		cb := delivery.NewCircuitBreaker(1, 1, 20*time.Millisecond)
		cb.RecordFailure()
		time.Sleep(30 * time.Millisecond)
		assert.True(t, cb.Allow())

		cb.RecordFailure()
		assert.Equal(t, delivery.CircuitOpen, cb.State())
		assert.False(t, cb.Allow(), "recovery timer restarted")
	})

	t.Run("success threshold above one", func(t *testing.T) {
		t.Parallel()

		cb := delivery.NewCircuitBreaker(1, 2, 20*time.Millisecond)
		cb.RecordFailure()
		time.Sleep(30 * time.Millisecond)
		assert.True(t, cb.Allow())

		cb.RecordSuccess()
		assert.Equal(t, delivery.CircuitHalfOpen, cb.State(), "one probe is not enough")

		assert.True(t, cb.Allow())
		cb.RecordSuccess()
		assert.Equal(t, delivery.CircuitClosed, cb.State())
	})
}

func TestCircuitBreaker_Reset(t *testing.T) {
	t.Parallel()

	cb := delivery.NewCircuitBreaker(1, 1, time.Minute)
	cb.RecordFailure()
	assert.Equal(t, delivery.CircuitOpen, cb.State())

	cb.Reset()
	assert.Equal(t, delivery.CircuitClosed, cb.State())
	assert.True(t, cb.Allow())
	assert.Zero(t, cb.Stats().Failures)
}

func TestCircuitBreaker_Stats(t *testing.T) {
	t.Parallel()

	cb := delivery.NewCircuitBreaker(5, 1, time.Minute)

	stats := cb.Stats()
	assert.Equal(t, "CLOSED", stats.State)
	assert.Zero(t, stats.Failures)
	assert.True(t, stats.LastFailureTime.IsZero())

	cb.RecordFailure()
	cb.RecordFailure()

	stats = cb.Stats()
	assert.Equal(t, 2, stats.Failures)
	assert.False(t, stats.LastFailureTime.IsZero())
	assert.True(t, stats.OpenedAt.IsZero(), "still closed")
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	cb := delivery.NewCircuitBreaker(50, 1, time.Minute)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				cb.Allow()
				cb.RecordFailure()
				cb.RecordSuccess()
				cb.State()
				cb.Stats()
			}
		}()
	}
	wg.Wait()
}

func TestCircuitState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "CLOSED", delivery.CircuitClosed.String())
	assert.Equal(t, "OPEN", delivery.CircuitOpen.String())
	assert.Equal(t, "HALF_OPEN", delivery.CircuitHalfOpen.String())
	assert.Equal(t, "UNKNOWN", delivery.CircuitState(99).String())
}

func TestCircuitRegistry(t *testing.T) {
	t.Parallel()

	t.Run("breakers are independent per key", func(t *testing.T) {
		t.Parallel()

		reg := delivery.NewCircuitRegistry(1, 1, time.Minute)
		reg.Get("a").RecordFailure()

		assert.Equal(t, delivery.CircuitOpen, reg.Get("a").State())
		assert.Equal(t, delivery.CircuitClosed, reg.Get("b").State())
	})

	t.Run("get returns same breaker", func(t *testing.T) {
		t.Parallel()

		reg := delivery.NewCircuitRegistry(0, 0, 0)
		assert.Same(t, reg.Get("a"), reg.Get("a"))
	})

	t.Run("states and stats cover known keys", func(t *testing.T) {
		t.Parallel()

		reg := delivery.NewCircuitRegistry(1, 1, time.Minute)
		reg.Get("a").RecordFailure()
		reg.Get("b")

		states := reg.States()
		assert.Len(t, states, 2)
		assert.Equal(t, delivery.CircuitOpen, states["a"])
		assert.Equal(t, delivery.CircuitClosed, states["b"])

		stats := reg.Stats()
		assert.Equal(t, "OPEN", stats["a"].State)
		assert.Equal(t, "CLOSED", stats["b"].State)
	})
}
