package services

import (
	"strings"
	"sync"
	"time"

	domain "github.com/dernekpanel/api/internal/domain"
)

// ProbeCache memoises national identity probe results for a short window so
// that repeated form validation calls do not hit the datastore every
// keystroke. Entries expire after the configured TTL; expired entries are
// swept lazily when the cache grows past the sweep size.
type ProbeCache struct {
	mu        sync.Mutex
	entries   map[string]probeCacheEntry
	ttl       time.Duration
	sweepSize int
	now       func() time.Time
}

type probeCacheEntry struct {
	probe     domain.DuplicateProbe
	expiresAt time.Time
}

// NewProbeCache constructs an empty cache with the given TTL and sweep size.
func NewProbeCache(ttl time.Duration, sweepSize int, clock func() time.Time) *ProbeCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if sweepSize <= 0 {
		sweepSize = 100
	}
	if clock == nil {
		clock = time.Now
	}
	return &ProbeCache{
		entries:   make(map[string]probeCacheEntry),
		ttl:       ttl,
		sweepSize: sweepSize,
		now:       clock,
	}
}

// ProbeCacheKey derives the cache key for a national identity lookup.
func ProbeCacheKey(nationalID, excludeID string) string {
	exclude := strings.TrimSpace(excludeID)
	if exclude == "" {
		exclude = "none"
	}
	return "tc:" + strings.TrimSpace(nationalID) + ":" + exclude
}

// Get returns the cached probe for the key if it has not expired.
func (c *ProbeCache) Get(key string) (domain.DuplicateProbe, bool) {
	if c == nil {
		return domain.DuplicateProbe{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return domain.DuplicateProbe{}, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return domain.DuplicateProbe{}, false
	}
	return entry.probe, true
}

// Set stores the probe result under the key and sweeps expired entries when
// the cache has grown past the sweep size.
func (c *ProbeCache) Set(key string, probe domain.DuplicateProbe) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = probeCacheEntry{probe: probe, expiresAt: now.Add(c.ttl)}

	if len(c.entries) <= c.sweepSize {
		return
	}
	for k, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, k)
		}
	}
}

// Clear drops all cached entries. Callers invoke this after beneficiary
// writes so stale probe results do not mask fresh duplicates.
func (c *ProbeCache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]probeCacheEntry)
}

// Len reports the number of entries currently held, including expired ones
// that have not been swept yet.
func (c *ProbeCache) Len() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
