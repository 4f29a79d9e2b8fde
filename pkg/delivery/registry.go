package delivery

import (
	"sync"
	"time"
)

// CircuitRegistry holds one circuit breaker per destination key, created
// lazily on first use. All destinations share the same breaker parameters;
// each breaker tracks its own failures independently.
type CircuitRegistry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker

	failureThreshold int
	successThreshold int
	recoveryTimeout  time.Duration
}

// NewCircuitRegistry creates a registry with shared breaker parameters.
func NewCircuitRegistry(failureThreshold, successThreshold int, recoveryTimeout time.Duration) *CircuitRegistry {
	return &CircuitRegistry{
		breakers:         make(map[string]*CircuitBreaker),
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

// Get returns the breaker for a destination key, creating it if needed.
func (r *CircuitRegistry) Get(key string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[key]
	if !ok {
		cb = NewCircuitBreaker(r.failureThreshold, r.successThreshold, r.recoveryTimeout)
		r.breakers[key] = cb
	}
	return cb
}

// States returns the current circuit state per known destination.
// Used by the health endpoint to derive aggregate status.
func (r *CircuitRegistry) States() map[string]CircuitState {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make(map[string]CircuitState, len(r.breakers))
	for key, cb := range r.breakers {
		states[key] = cb.State()
	}
	return states
}

// Stats returns monitoring statistics per known destination.
func (r *CircuitRegistry) Stats() map[string]CircuitStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make(map[string]CircuitStats, len(r.breakers))
	for key, cb := range r.breakers {
		stats[key] = cb.Stats()
	}
	return stats
}
