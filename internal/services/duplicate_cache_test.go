package services

import (
	"sync"
	"testing"
	"time"

	domain "github.com/dernekpanel/api/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestProbeCacheKey(t *testing.T) {
	if got := ProbeCacheKey("12345678901", ""); got != "tc:12345678901:none" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := ProbeCacheKey("12345678901", "ben_01"); got != "tc:12345678901:ben_01" {
		t.Fatalf("unexpected key: %s", got)
	}
}

func TestProbeCacheHitWithinTTL(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cache := NewProbeCache(5*time.Minute, 100, clock.Now)

	probe := domain.DuplicateProbe{Exists: true, ExistingID: "ben_01", ExistingName: "Ayşe Demir"}
	cache.Set("tc:12345678901:none", probe)

	clock.Advance(4 * time.Minute)
	got, ok := cache.Get("tc:12345678901:none")
	if !ok {
		t.Fatal("expected cache hit within ttl")
	}
	if got != probe {
		t.Fatalf("unexpected cached probe: %+v", got)
	}
}

func TestProbeCacheExpiresAfterTTL(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cache := NewProbeCache(5*time.Minute, 100, clock.Now)

	cache.Set("tc:12345678901:none", domain.DuplicateProbe{Exists: true})

	// An entry is still valid at exactly the ttl boundary.
	clock.Advance(5 * time.Minute)
	if _, ok := cache.Get("tc:12345678901:none"); !ok {
		t.Fatal("expected hit at the ttl boundary")
	}

	clock.Advance(time.Nanosecond)
	if _, ok := cache.Get("tc:12345678901:none"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if cache.Len() != 0 {
		t.Fatalf("expected expired entry to be evicted, len=%d", cache.Len())
	}
}

func TestProbeCacheSweepsExpiredEntries(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cache := NewProbeCache(time.Minute, 3, clock.Now)

	cache.Set("tc:1:none", domain.DuplicateProbe{})
	cache.Set("tc:2:none", domain.DuplicateProbe{})
	cache.Set("tc:3:none", domain.DuplicateProbe{})

	clock.Advance(2 * time.Minute)

	// The fourth insert pushes the map past the sweep size and drops the
	// three expired entries.
	cache.Set("tc:4:none", domain.DuplicateProbe{})
	if cache.Len() != 1 {
		t.Fatalf("expected sweep to leave 1 entry, len=%d", cache.Len())
	}
	if _, ok := cache.Get("tc:4:none"); !ok {
		t.Fatal("expected fresh entry to survive the sweep")
	}
}

func TestProbeCacheClear(t *testing.T) {
	cache := NewProbeCache(5*time.Minute, 100, nil)
	cache.Set("tc:1:none", domain.DuplicateProbe{Exists: true})
	cache.Clear()

	if cache.Len() != 0 {
		t.Fatalf("expected empty cache after clear, len=%d", cache.Len())
	}
	if _, ok := cache.Get("tc:1:none"); ok {
		t.Fatal("expected miss after clear")
	}
}
