package engine

import (
	"sync"

	"blockcal/internal/model"
)

// Cache is the in-memory mirror of the last known server state: an ordered
// collection of persisted events keyed by id. Drafts are never cached. The
// coordinator is the cache's only writer; everything else reads snapshots.
type Cache struct {
	mu     sync.RWMutex
	events []model.Event
	index  map[string]int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{index: make(map[string]int)}
}

// ReplaceAll swaps the whole collection for the given one, preserving its
// order.
func (c *Cache) ReplaceAll(events []model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = make([]model.Event, len(events))
	copy(c.events, events)
	c.reindex()
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
	c.index = make(map[string]int)
}

// Append adds a newly persisted event at the end of the collection.
func (c *Cache) Append(ev model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index[ev.ID] = len(c.events)
	c.events = append(c.events, ev)
}

// Replace overwrites the mutable fields of the cached event with ev's id,
// keeping its position. Returns false when the id is not cached.
func (c *Cache) Replace(ev model.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[ev.ID]
	if !ok {
		return false
	}
	c.events[i].Title = ev.Title
	c.events[i].Start = ev.Start
	c.events[i].End = ev.End
	c.events[i].DurationHours = ev.DurationHours
	return true
}

// Remove deletes the event with the given id, preserving the order of the
// rest. Returns false when the id is not cached.
func (c *Cache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.events = append(c.events[:i], c.events[i+1:]...)
	c.reindex()
	return true
}

// Get returns a copy of the cached event with the given id.
func (c *Cache) Get(id string) (model.Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return model.Event{}, false
	}
	return c.events[i], true
}

// Has reports whether the id is cached.
func (c *Cache) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[id]
	return ok
}

// Len returns the number of cached events.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}

// Snapshot returns a copy of the collection in cache order.
func (c *Cache) Snapshot() []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Event, len(c.events))
	copy(out, c.events)
	return out
}

// reindex rebuilds the id index after a structural change. Callers hold c.mu.
func (c *Cache) reindex() {
	c.index = make(map[string]int, len(c.events))
	for i, ev := range c.events {
		c.index[ev.ID] = i
	}
}
