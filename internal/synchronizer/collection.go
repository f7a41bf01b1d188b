package synchronizer

import "sync"

// collection is the local copy of one entity table. It is only ever replaced
// as a whole. Every refresh takes a ticket before it calls the store; a result
// is applied only if no refresh with a later ticket was applied first.
type collection[T any] struct {
	mu      sync.RWMutex
	items   []T
	issued  uint64
	applied uint64
	version uint64
}

// begin hands out the ticket for a refresh that is about to start.
func (c *collection[T]) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	return c.issued
}

// replace installs items when ticket is not older than the last applied one.
func (c *collection[T]) replace(ticket uint64, items []T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ticket < c.applied {
		return false
	}
	c.applied = ticket
	c.items = items
	c.version++
	return true
}

// reset installs items unconditionally, superseding any refresh in flight.
func (c *collection[T]) reset(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	c.applied = c.issued
	c.items = items
	c.version++
}

// list returns a copy of the current items.
func (c *collection[T]) list() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// find returns the first item matching fn.
func (c *collection[T]) find(fn func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if fn(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (c *collection[T]) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *collection[T]) currentVersion() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}
