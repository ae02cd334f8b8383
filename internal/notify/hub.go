// Package notify provides a small publish/subscribe hub used by the cart
// and draft lists to announce state changes.
package notify

import (
	"sync"

	"go.uber.org/zap"
)

// Hub fans out values of type T to registered subscribers.
//
// A subscriber that panics is recovered and logged; the remaining
// subscribers are still notified.
type Hub[T any] struct {
	lg *zap.Logger

	mu     sync.Mutex
	nextID uint64
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// NewHub creates a Hub that logs subscriber failures to lg.
func NewHub[T any](lg *zap.Logger) *Hub[T] {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Hub[T]{lg: lg}
}

// Subscribe registers fn and returns a function removing exactly that
// registration. Calling the returned function more than once is harmless.
func (h *Hub[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscriber[T]{id: id, fn: fn})
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, s := range h.subs {
			if s.id == id {
				h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
				return
			}
		}
	}
}

// Len returns the number of registered subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish delivers v to every subscriber in registration order. The
// subscriber list is snapshotted first, so callbacks may subscribe or
// unsubscribe without deadlocking.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	subs := make([]subscriber[T], len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	for _, s := range subs {
		h.deliver(s, v)
	}
}

func (h *Hub[T]) deliver(s subscriber[T], v T) {
	defer func() {
		if rec := recover(); rec != nil {
			h.lg.Error("Subscriber failed",
				zap.Uint64("subscriber", s.id),
				zap.Any("panic", rec),
			)
		}
	}()
	s.fn(v)
}
