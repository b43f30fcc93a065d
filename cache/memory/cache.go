package memory

import (
	"context"
	"sync"
	"time"

	"github.com/w-h-a/insight/cache"
)

type entry struct {
	value   []byte
	expires time.Time
}

// memoryCache evicts in insertion order once it is full, and lazily drops
// expired entries on read.
type memoryCache struct {
	options cache.Options
	entries map[string]entry
	order   []string
	mtx     sync.Mutex
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	e, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if time.Now().After(e.expires) {
		delete(c.entries, key)
		c.dropOrder(key)
		return nil, false
	}

	cpy := make([]byte, len(e.value))
	copy(cpy, e.value)

	return cpy, true
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	cpy := make([]byte, len(value))
	copy(cpy, value)

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}

	c.entries[key] = entry{
		value:   cpy,
		expires: time.Now().Add(c.options.TTL),
	}

	for len(c.entries) > c.options.MaxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// dropOrder removes one key from the eviction queue. Without it an expired
// key re-Set later would sit in the queue twice and evict its own live
// entry out of turn.
func (c *memoryCache) dropOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func NewCache(opts ...cache.Option) cache.Cache {
	options := cache.NewOptions(opts...)

	return &memoryCache{
		options: options,
		entries: map[string]entry{},
	}
}
