package remote

import (
	"context"
	"sync"
)

// Hub fans collection snapshots out to subscribers. Each subscriber channel
// holds at most one pending snapshot; a newer snapshot replaces an unread one,
// so Publish never blocks on a slow consumer.
type Hub[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan []T
	nextID int
}

// NewHub builds an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[int]chan []T)}
}

// Subscribe registers a subscriber that lives until unsubscribe or ctx is done.
func (h *Hub[T]) Subscribe(ctx context.Context) (<-chan []T, Unsubscribe) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	ch := make(chan []T, 1)
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	stop := make(chan struct{})
	unsubscribe := func() {
		once.Do(func() {
			close(stop)
			h.mu.Lock()
			delete(h.subs, id)
			close(ch)
			h.mu.Unlock()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-stop:
		}
	}()
	return ch, unsubscribe
}

// Publish delivers items to every subscriber.
func (h *Hub[T]) Publish(items []T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- items:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- items:
		default:
		}
	}
}

// Len reports the number of live subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
