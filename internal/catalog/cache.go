package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/podlift/podlift/internal/printify"
)

// DefaultTTL is how long a fetched snapshot stays fresh
const DefaultTTL = time.Hour

// FetchFunc fetches the full blueprint catalog for a credential scope
type FetchFunc func(ctx context.Context, scope string) ([]printify.Blueprint, error)

// UnavailableError means the remote catalog could not be fetched
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("catalog unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Snapshot is one credential scope's view of the blueprint catalog
type Snapshot struct {
	Entries   []printify.Blueprint
	FetchedAt time.Time
}

// Cache holds time-bounded catalog snapshots keyed by credential scope.
// A stale or missing snapshot triggers one fetch; the snapshot for that
// scope is replaced whole, so readers never see a partial update. A failed
// fetch leaves any prior snapshot untouched and surfaces UnavailableError.
type Cache struct {
	ttl   time.Duration
	now   func() time.Time
	fetch FetchFunc

	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

// New creates a cache around a fetch function
func New(ttl time.Duration, fetch FetchFunc) *Cache {
	return NewWithClock(ttl, fetch, time.Now)
}

// NewWithClock creates a cache with an injected clock for tests
func NewWithClock(ttl time.Duration, fetch FetchFunc, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:       ttl,
		now:       now,
		fetch:     fetch,
		snapshots: make(map[string]*Snapshot),
	}
}

// Get returns a fresh snapshot for the scope, fetching if needed
func (c *Cache) Get(ctx context.Context, scope string) (*Snapshot, error) {
	if snap, ok := c.fresh(scope); ok {
		return snap, nil
	}

	slog.Info("Fetching live blueprint catalog")
	entries, err := c.fetch(ctx, scope)
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}

	snap := &Snapshot{
		Entries:   entries,
		FetchedAt: c.now(),
	}

	c.mu.Lock()
	c.snapshots[scope] = snap
	c.mu.Unlock()

	slog.Info("Cached blueprint catalog", "blueprints", len(entries))
	return snap, nil
}

// Peek returns the current snapshot for a scope without refreshing
func (c *Cache) Peek(scope string) (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.snapshots[scope]
	return snap, ok
}

func (c *Cache) fresh(scope string) (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, ok := c.snapshots[scope]
	if !ok || len(snap.Entries) == 0 {
		return nil, false
	}
	if c.now().Sub(snap.FetchedAt) >= c.ttl {
		return nil, false
	}
	return snap, true
}
