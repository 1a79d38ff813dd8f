// Package cache provides an in-memory LRU cache with TTL support, used as a
// translation memory so identical strings are not retranslated across jobs.
package cache

import (
	"container/list"
	"log/slog"
	"sync"
	"time"
)

// entry is one cached value with its expiration.
type entry struct {
	key       string
	value     any
	expiresAt time.Time
}

func (e *entry) expired() bool {
	return time.Now().After(e.expiresAt)
}

// Metrics tracks cache statistics.
type Metrics struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
}

// HitRate returns the cache hit rate as a percentage (0-100).
func (m Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total) * 100
}

// LRUConfig holds configuration for the LRU cache.
type LRUConfig struct {
	MaxEntries int           // Maximum number of entries (0 = default)
	DefaultTTL time.Duration // TTL applied to every entry
	Logger     *slog.Logger
}

// DefaultLRUConfig returns default configuration.
func DefaultLRUConfig() LRUConfig {
	return LRUConfig{
		MaxEntries: 10000,
		DefaultTTL: 24 * time.Hour,
		Logger:     slog.Default(),
	}
}

// LRU is a thread-safe LRU cache with TTL support.
type LRU struct {
	config  LRUConfig
	items   map[string]*list.Element
	order   *list.List
	mu      sync.Mutex
	metrics Metrics
}

// NewLRU creates a new LRU cache.
func NewLRU(config LRUConfig) *LRU {
	if config.MaxEntries <= 0 {
		config.MaxEntries = 10000
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 24 * time.Hour
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &LRU{
		config: config,
		items:  make(map[string]*list.Element),
		order:  list.New(),
	}
}

// Get returns the value for key if present and not expired.
func (c *LRU) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.metrics.Misses++
		return nil, false
	}

	e := elem.Value.(*entry)
	if e.expired() {
		c.order.Remove(elem)
		delete(c.items, key)
		c.metrics.Expirations++
		c.metrics.Misses++
		return nil, false
	}

	c.order.MoveToFront(elem)
	c.metrics.Hits++
	return e.value, true
}

// Set stores a value under key, evicting the least recently used entry when
// the cache is full.
func (c *LRU) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry)
		e.value = value
		e.expiresAt = time.Now().Add(c.config.DefaultTTL)
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.config.MaxEntries {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
			c.metrics.Evictions++
		}
	}

	c.items[key] = c.order.PushFront(&entry{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(c.config.DefaultTTL),
	})
}

// Len returns the number of entries, including any not yet expired lazily.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Metrics returns a copy of the current cache statistics.
func (c *LRU) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}
