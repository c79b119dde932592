package region

import (
	"sync"

	"github.com/go-mclib/anvil/chunk"
)

// columnCache is a concurrent map from slot index to cached chunk column,
// providing compute-if-absent semantics: at most one caller populates a
// given slot, and concurrent callers for the same index observe the same
// *chunk.Column.
type columnCache struct {
	mu      sync.Mutex
	entries map[int]*cacheEntry
}

type cacheEntry struct {
	once   sync.Once
	col    *chunk.Column
	err    error
	loaded bool
}

func newColumnCache() *columnCache {
	return &columnCache{entries: make(map[int]*cacheEntry)}
}

// loadOrCompute returns the cached column at index, computing it with fn on
// first access. Concurrent callers for the same index block on the same
// computation and observe the same result.
func (c *columnCache) loadOrCompute(index int, fn func() (*chunk.Column, error)) (*chunk.Column, error) {
	c.mu.Lock()
	e, ok := c.entries[index]
	if !ok {
		e = &cacheEntry{}
		c.entries[index] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.col, e.err = fn()
		e.loaded = e.err == nil
	})
	return e.col, e.err
}

// peek returns the cached column at index without computing it.
func (c *columnCache) peek(index int) (*chunk.Column, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[index]
	if !ok || !e.loaded {
		return nil, false
	}
	return e.col, true
}

// store installs col at index unconditionally, as if it had always been
// the result of loadOrCompute.
func (c *columnCache) store(index int, col *chunk.Column) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := &cacheEntry{col: col, loaded: true}
	e.once.Do(func() {})
	c.entries[index] = e
}

// forget removes index from the cache, returning whether it was present.
func (c *columnCache) forget(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[index]
	delete(c.entries, index)
	return ok
}

// rangeLoaded calls fn for every currently loaded (index, column) pair.
func (c *columnCache) rangeLoaded(fn func(index int, col *chunk.Column)) {
	c.mu.Lock()
	snapshot := make(map[int]*chunk.Column, len(c.entries))
	for idx, e := range c.entries {
		if e.loaded {
			snapshot[idx] = e.col
		}
	}
	c.mu.Unlock()

	for idx, col := range snapshot {
		fn(idx, col)
	}
}

// clear drops every entry from the cache.
func (c *columnCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int]*cacheEntry)
}
