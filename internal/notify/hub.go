// Package notify fans room list snapshots out to in-process subscribers and,
// optionally, to a Redis channel.
package notify

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/example/room-tracker/internal/metrics"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 8

// ErrClosed is returned when subscribing to a closed hub.
var ErrClosed = errors.New("notify: hub closed")

// Hub is a single-topic broadcast channel. Publish never blocks: when a
// subscriber's queue is full the oldest queued value is dropped in favour of
// the new one.
type Hub[T any] struct {
	mu     sync.Mutex
	subs   map[*Subscription[T]]struct{}
	buffer int
	closed bool
	logger *slog.Logger
}

// Subscription receives published values until it is closed or the hub shuts down.
type Subscription[T any] struct {
	hub  *Hub[T]
	ch   chan T
	once sync.Once
}

// NewHub constructs a hub whose subscribers queue up to buffer values.
func NewHub[T any](buffer int, logger *slog.Logger) *Hub[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub[T]{
		subs:   make(map[*Subscription[T]]struct{}),
		buffer: buffer,
		logger: logger.With("component", "notify.Hub"),
	}
}

// Subscribe attaches a new subscriber.
func (h *Hub[T]) Subscribe() (*Subscription[T], error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	sub := &Subscription[T]{hub: h, ch: make(chan T, h.buffer)}
	h.subs[sub] = struct{}{}
	metrics.Subscribers.Inc()
	h.logger.Debug("subscriber attached", "subscribers", len(h.subs))
	return sub, nil
}

// Publish delivers value to every subscriber without blocking.
func (h *Hub[T]) Publish(value T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	metrics.SnapshotsPublished.Inc()

	dropped := 0
	for sub := range h.subs {
		for sent := false; !sent; {
			select {
			case sub.ch <- value:
				sent = true
			default:
				select {
				case <-sub.ch:
					dropped++
				default:
				}
			}
		}
	}
	if dropped > 0 {
		metrics.SnapshotsDropped.Add(float64(dropped))
		h.logger.Debug("dropped stale snapshots", "dropped", dropped)
	}
}

// Len reports the number of attached subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close detaches every subscriber and rejects further subscriptions.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		h.detachLocked(sub)
	}
	h.logger.Info("hub closed")
}

func (h *Hub[T]) detachLocked(sub *Subscription[T]) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	metrics.Subscribers.Dec()
	sub.once.Do(func() { close(sub.ch) })
}

// C returns the receive channel. It is closed when the subscription ends.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Close unsubscribes. It is safe to call more than once and after the hub closed.
func (s *Subscription[T]) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.detachLocked(s)
}
