package groupcache

import (
	"sync"
	"time"
)

type entry struct {
	subject string
	exp     time.Time
}

// Cache keeps group subjects by conversation id for a fixed TTL.
type Cache struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time
	m   map[string]entry
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{ttl: ttl, now: time.Now, m: make(map[string]entry)}
}

func (c *Cache) Get(convID string) (string, bool) {
	c.mu.RLock()
	e, ok := c.m[convID]
	c.mu.RUnlock()
	if !ok || c.now().After(e.exp) {
		return "", false
	}
	return e.subject, true
}

func (c *Cache) Set(convID, subject string) {
	c.mu.Lock()
	c.m[convID] = entry{subject: subject, exp: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Sweep drops expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.m {
		if now.After(e.exp) {
			delete(c.m, k)
			n++
		}
	}
	return n
}
