// Package cache keeps AI results keyed by résumé fingerprint and operation, so
// the same upload is not analyzed twice.
package cache

import (
	"container/list"
	"sync"
	"time"

	"careercoach/internal/config"
)

// Key identifies one cached result. Fingerprint is empty for results that do
// not depend on a résumé, such as job trends.
type Key struct {
	Fingerprint string
	Operation   config.Operation
}

type entry struct {
	key     Key
	owner   string
	value   any
	expires time.Time
}

// Cache is a bounded LRU cache with a TTL, safe for concurrent use
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	ll         *list.List
	items      map[Key]*list.Element
	owners     map[string]map[string]struct{} // userID -> fingerprints

	hits, misses uint64
}

// New creates a cache. maxEntries <= 0 means 512; ttl <= 0 disables expiry.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 512
	}
	return &Cache{
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		ll:         list.New(),
		items:      make(map[Key]*list.Element),
		owners:     make(map[string]map[string]struct{}),
	}
}

// Get returns the value under key if present and not expired
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	e := el.Value.(*entry)
	if c.ttl > 0 && c.now().After(e.expires) {
		c.removeElement(el)
		c.misses++
		return nil, false
	}
	c.ll.MoveToFront(el)
	c.hits++
	return e.value, true
}

// Put stores value under key on behalf of userID, evicting the least
// recently used entry when full.
func (c *Cache) Put(userID string, key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expires = expires
		e.owner = userID
		c.ll.MoveToFront(el)
	} else {
		c.items[key] = c.ll.PushFront(&entry{key: key, owner: userID, value: value, expires: expires})
	}

	if userID != "" && key.Fingerprint != "" {
		fps := c.owners[userID]
		if fps == nil {
			fps = make(map[string]struct{})
			c.owners[userID] = fps
		}
		fps[key.Fingerprint] = struct{}{}
	}

	for c.ll.Len() > c.maxEntries {
		c.removeElement(c.ll.Back())
	}
}

// Invalidate drops every entry cached for the fingerprints userID uploaded
// before. It is called when the user uploads a new résumé.
func (c *Cache) Invalidate(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	fps := c.owners[userID]
	delete(c.owners, userID)
	removed := 0
	for el := c.ll.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		if _, ok := fps[e.key.Fingerprint]; ok {
			c.removeElement(el)
			removed++
		}
		el = next
	}
	return removed
}

// Len returns the number of entries, including expired ones not yet evicted
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Stats reports hit and miss counters
func (c *Cache) Stats() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]any{
		"entries":     c.ll.Len(),
		"max_entries": c.maxEntries,
		"ttl":         c.ttl.String(),
		"hits":        c.hits,
		"misses":      c.misses,
	}
}

func (c *Cache) removeElement(el *list.Element) {
	e := c.ll.Remove(el).(*entry)
	delete(c.items, e.key)
}

// Lookup is a typed Get
func Lookup[T any](c *Cache, key Key) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
