package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/podlift/podlift/internal/printify"
)

func TestCacheGet(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	fetches := 0
	fetch := func(ctx context.Context, scope string) ([]printify.Blueprint, error) {
		fetches++
		return []printify.Blueprint{{ID: 6, Title: "Unisex Jersey Tee", Brand: "Bella+Canvas", Model: "3001"}}, nil
	}

	cache := NewWithClock(time.Hour, fetch, now)

	snap, err := cache.Get(context.Background(), "token-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Entries) != 1 || snap.Entries[0].ID != 6 {
		t.Errorf("unexpected snapshot entries: %+v", snap.Entries)
	}
	if fetches != 1 {
		t.Fatalf("expected 1 fetch, got %d", fetches)
	}

	// Second get within the TTL must not refetch
	if _, err := cache.Get(context.Background(), "token-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetches != 1 {
		t.Errorf("expected cache hit, got %d fetches", fetches)
	}

	// A different scope fetches independently
	if _, err := cache.Get(context.Background(), "token-b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetches != 2 {
		t.Errorf("expected per-scope fetch, got %d fetches", fetches)
	}

	// Past the TTL the snapshot is stale and replaced
	clock = clock.Add(time.Hour + time.Minute)
	if _, err := cache.Get(context.Background(), "token-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetches != 3 {
		t.Errorf("expected refetch after TTL, got %d fetches", fetches)
	}
}

func TestCacheFetchFailure(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	healthy := true
	fetchErr := errors.New("connection refused")
	fetch := func(ctx context.Context, scope string) ([]printify.Blueprint, error) {
		if !healthy {
			return nil, fetchErr
		}
		return []printify.Blueprint{{ID: 77, Model: "18500"}}, nil
	}

	cache := NewWithClock(time.Hour, fetch, now)

	if _, err := cache.Get(context.Background(), "token"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Go stale, then fail the refresh
	clock = clock.Add(2 * time.Hour)
	healthy = false

	_, err := cache.Get(context.Background(), "token")
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if !errors.Is(err, fetchErr) {
		t.Errorf("expected wrapped fetch cause, got %v", err)
	}

	// The prior snapshot must survive the failed refresh
	snap, ok := cache.Peek("token")
	if !ok || len(snap.Entries) != 1 || snap.Entries[0].ID != 77 {
		t.Errorf("prior snapshot was not preserved: %+v", snap)
	}
}

func TestCacheEmptyFetchNotCachedAsFresh(t *testing.T) {
	fetches := 0
	fetch := func(ctx context.Context, scope string) ([]printify.Blueprint, error) {
		fetches++
		return nil, nil
	}

	cache := NewWithClock(time.Hour, fetch, time.Now)

	for i := 0; i < 2; i++ {
		if _, err := cache.Get(context.Background(), "token"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if fetches != 2 {
		t.Errorf("empty snapshot should not satisfy freshness, got %d fetches", fetches)
	}
}
