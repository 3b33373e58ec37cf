// Package cache bounds the per-visitor state the server keeps in memory.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// DefaultCapacity is used when NewLRU gets a non-positive capacity.
const DefaultCapacity = 512

type entry[V any] struct {
	key     string
	value   V
	expires time.Time
	element *list.Element
}

// LRU is a fixed-size map that drops the least recently used key when full
// and, with a non-zero idle TTL, keys not touched for that long.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*entry[V]
	order    *list.List
	now      func() time.Time
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides time.Now for expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewLRU creates a cache holding at most capacity keys. A zero ttl never
// expires entries.
func NewLRU[V any](capacity int, ttl time.Duration, opts ...Option) *LRU[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*entry[V]),
		order:    list.New(),
		now:      o.now,
	}
}

// Get returns the value for key and refreshes its idle deadline.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

// GetOrLoad returns the cached value for key, or stores and returns load().
// load runs under the cache lock, so concurrent callers for the same key
// share one value. loaded is true when load was called.
func (c *LRU[V]) GetOrLoad(key string, load func() V) (v V, loaded bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.getLocked(key); ok {
		return v, false
	}
	v = load()
	c.setLocked(key, v)
	return v, true
}

func (c *LRU[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value)
}

func (c *LRU[V]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, ok := c.items[key]; ok {
		c.removeEntry(ent)
	}
}

// Len counts stored keys, including expired ones not yet dropped.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry[V])
	c.order.Init()
}

func (c *LRU[V]) getLocked(key string) (V, bool) {
	ent, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	now := c.now()
	if !ent.expires.IsZero() && !now.Before(ent.expires) {
		c.removeEntry(ent)
		var zero V
		return zero, false
	}
	ent.expires = c.expiry(now)
	c.order.MoveToFront(ent.element)
	return ent.value, true
}

func (c *LRU[V]) setLocked(key string, value V) {
	now := c.now()
	if ent, ok := c.items[key]; ok {
		ent.value = value
		ent.expires = c.expiry(now)
		c.order.MoveToFront(ent.element)
		return
	}
	c.evictExpired(now)
	if len(c.items) >= c.capacity {
		c.evictOldest()
	}
	c.items[key] = &entry[V]{
		key:     key,
		value:   value,
		expires: c.expiry(now),
		element: c.order.PushFront(key),
	}
}

func (c *LRU[V]) expiry(now time.Time) time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(c.ttl)
}

// evictExpired drops idle entries from the cold end of the list.
func (c *LRU[V]) evictExpired(now time.Time) {
	if c.ttl <= 0 {
		return
	}
	for elem := c.order.Back(); elem != nil; elem = c.order.Back() {
		ent := c.items[elem.Value.(string)]
		if now.Before(ent.expires) {
			return
		}
		c.removeEntry(ent)
	}
}

func (c *LRU[V]) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	if ent, ok := c.items[elem.Value.(string)]; ok {
		c.removeEntry(ent)
	}
}

func (c *LRU[V]) removeEntry(ent *entry[V]) {
	if ent.element != nil {
		c.order.Remove(ent.element)
	}
	delete(c.items, ent.key)
}
