package billing

import (
	"sync"
	"time"
)

// DefaultFreshnessWindow bounds how long an authoritative figure is reused
// before the API is asked again.
const DefaultFreshnessWindow = 15 * time.Minute

// FreshnessCache holds the last authoritative figure. Each instance is
// independent; nothing is shared process-wide.
type FreshnessCache struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time

	valid     bool
	key       string
	value     float64
	fetchedAt time.Time
}

// NewFreshnessCache creates a cache. A nil clock uses time.Now.
func NewFreshnessCache(window time.Duration, now func() time.Time) *FreshnessCache {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	if now == nil {
		now = time.Now
	}
	return &FreshnessCache{window: window, now: now}
}

// Get returns the cached value for key while it is younger than the window.
func (c *FreshnessCache) Get(key string) (float64, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid || c.key != key {
		return 0, time.Time{}, false
	}
	if c.now().Sub(c.fetchedAt) >= c.window {
		return 0, time.Time{}, false
	}
	return c.value, c.fetchedAt, true
}

// Put stores a freshly fetched value.
func (c *FreshnessCache) Put(key string, value float64) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.valid = true
	c.key = key
	c.value = value
	c.fetchedAt = c.now()
	return c.fetchedAt
}

// Last returns the most recent value regardless of age.
func (c *FreshnessCache) Last() (float64, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.fetchedAt, c.valid
}

// Invalidate drops the cached value.
func (c *FreshnessCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}

// Window returns the freshness window.
func (c *FreshnessCache) Window() time.Duration {
	return c.window
}
