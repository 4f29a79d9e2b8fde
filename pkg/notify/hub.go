package notify

import (
	"context"
	"sync"
)

// Subscription is one consumer's view of the hub's message stream.
type Subscription struct {
	ch     chan Envelope
	closed bool
	mu     sync.RWMutex
}

func newSubscription(bufferSize int) *Subscription {
	return &Subscription{ch: make(chan Envelope, bufferSize)}
}

// C returns the channel delivering envelopes. The channel is closed when the
// subscription ends.
func (s *Subscription) C() <-chan Envelope {
	return s.ch
}

// Close ends the subscription. Safe to call more than once.
func (s *Subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

// send delivers without blocking; a full buffer or closed subscription
// reports false so the hub can prune the subscriber.
func (s *Subscription) send(env Envelope) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	select {
	case s.ch <- env:
		return true
	default:
		return false
	}
}

// Hub fans envelopes out to all active subscriptions. Publishing never
// blocks: a subscriber whose buffer is full misses the message and is
// removed, so one stalled dashboard cannot back-pressure the delivery path.
type Hub struct {
	mu         sync.RWMutex
	subs       map[*Subscription]struct{}
	bufferSize int
	closed     bool
	cleanupWg  sync.WaitGroup
}

// NewHub creates a hub. bufferSize is the per-subscriber channel buffer;
// a minimum of 1 is enforced to keep sends non-blocking.
func NewHub(bufferSize int) *Hub {
	return &Hub{
		subs:       make(map[*Subscription]struct{}),
		bufferSize: max(bufferSize, 1),
	}
}

// Subscribe registers a new subscription scoped to ctx: when ctx is
// cancelled the subscription is removed and its channel closed. Subscribing
// to a closed hub returns an already-closed subscription.
func (h *Hub) Subscribe(ctx context.Context) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := newSubscription(h.bufferSize)
	if h.closed {
		_ = sub.Close()
		return sub
	}
	h.subs[sub] = struct{}{}

	if ctx.Done() != nil {
		h.cleanupWg.Add(1)
		go func() {
			defer h.cleanupWg.Done()
			<-ctx.Done()
			h.remove(sub)
		}()
	}

	return sub
}

// Publish builds a typed envelope and broadcasts it.
func (h *Hub) Publish(msgType MessageType, payload any) error {
	env, err := NewEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	h.Broadcast(env)
	return nil
}

// Broadcast sends an envelope to every active subscription. Slow or closed
// subscribers are pruned asynchronously; broadcast itself never blocks.
func (h *Hub) Broadcast(env Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for sub := range h.subs {
		if !sub.send(env) {
			go h.remove(sub)
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close shuts the hub down and closes every subscription. Idempotent.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for sub := range h.subs {
		_ = sub.Close()
	}
	clear(h.subs)
	h.mu.Unlock()

	// Wait for context cleanup goroutines so Close never races remove.
	h.cleanupWg.Wait()
	return nil
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subs, sub)
	_ = sub.Close()
}
