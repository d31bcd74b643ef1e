// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package cache provides the optional proxy response cache with TTL support.
//
// Lookups never fail a request: any backend error is reported as a miss.
package cache

import (
	"container/list"
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Entry is one cached proxy response body.
type Entry struct {
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// Cache stores proxy responses by request path.
type Cache interface {
	// Get returns the entry for key. Expired, missing and unreadable entries are misses.
	Get(ctx context.Context, key string) (Entry, bool)
	// Set stores e under key for ttl. Failures are logged and dropped.
	Set(ctx context.Context, key string, e Entry, ttl time.Duration)
	// Stats returns cache statistics.
	Stats() Stats
	// Close releases background resources.
	Close() error
}

// Stats holds cache performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Evictions    int64
	CurrentSize  int
	CurrentBytes int64
}

type counters struct {
	hits, misses, sets, evictions atomic.Int64
}

func (c *counters) snapshot(size int) Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Sets:        c.sets.Load(),
		Evictions:   c.evictions.Load(),
		CurrentSize: size,
	}
}

type entry struct {
	key        string
	value      Entry
	expiration time.Time
}

// DefaultMaxBytes caps the memory cache when no limit is configured.
const DefaultMaxBytes int64 = 256 << 20

// MemoryCache is an in-process LRU Cache bounded by the total size of cached
// bodies, with periodic cleanup of expired entries.
type MemoryCache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	lru      *list.List // front is most recently used
	bytes    int64
	maxBytes int64
	stats    counters
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewMemoryCache creates a memory cache holding at most maxBytes of response
// bodies; a non-positive maxBytes selects DefaultMaxBytes. A positive
// cleanupInterval starts a janitor goroutine that runs until Close.
func NewMemoryCache(cleanupInterval time.Duration, maxBytes int64) *MemoryCache {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	c := &MemoryCache{
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		maxBytes: maxBytes,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	} else {
		close(c.done)
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) (Entry, bool) {
	c.mu.Lock()
	el, ok := c.entries[key]
	if !ok || c.now().After(el.Value.(*entry).expiration) {
		c.mu.Unlock()
		c.stats.misses.Add(1)
		return Entry{}, false
	}
	c.lru.MoveToFront(el)
	e := el.Value.(*entry).value
	c.mu.Unlock()

	c.stats.hits.Add(1)
	return Entry{ContentType: e.ContentType, Body: slices.Clone(e.Body)}, true
}

// Set stores e under key. Bodies larger than the cache limit are not stored;
// otherwise least recently used entries are evicted until e fits.
func (c *MemoryCache) Set(_ context.Context, key string, e Entry, ttl time.Duration) {
	size := int64(len(e.Body))
	if ttl <= 0 || size > c.maxBytes {
		return
	}
	value := &entry{
		key:        key,
		value:      Entry{ContentType: e.ContentType, Body: slices.Clone(e.Body)},
		expiration: c.now().Add(ttl),
	}

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
	evicted := 0
	for c.bytes+size > c.maxBytes {
		c.removeElement(c.lru.Back())
		evicted++
	}
	c.entries[key] = c.lru.PushFront(value)
	c.bytes += size
	c.mu.Unlock()

	c.stats.sets.Add(1)
	c.stats.evictions.Add(int64(evicted))
}

// removeElement drops el from the index and the recency list. Callers hold mu.
func (c *MemoryCache) removeElement(el *list.Element) {
	e := c.lru.Remove(el).(*entry)
	delete(c.entries, e.key)
	c.bytes -= int64(len(e.value.Body))
}

func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats.snapshot(len(c.entries))
	s.CurrentBytes = c.bytes
	return s
}

// Close stops the janitor. It is safe to call more than once.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
	return nil
}

// deleteExpired removes expired entries and returns how many were removed.
func (c *MemoryCache) deleteExpired() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for el := c.lru.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*entry).expiration) {
			c.removeElement(el)
			n++
		}
		el = prev
	}
	c.stats.evictions.Add(int64(n))
	return n
}

func (c *MemoryCache) janitor(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}

// NoOp caches nothing.
type NoOp struct{}

func (NoOp) Get(context.Context, string) (Entry, bool)         { return Entry{}, false }
func (NoOp) Set(context.Context, string, Entry, time.Duration) {}
func (NoOp) Stats() Stats                                      { return Stats{} }
func (NoOp) Close() error                                      { return nil }
