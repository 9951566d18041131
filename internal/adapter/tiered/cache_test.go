package tiered_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/dexcache/internal/adapter/tiered"
	"github.com/Strob0t/dexcache/internal/port/cache/cachetest"
)

var errDown = errors.New("nats: connection closed")

// memCache is a simple in-memory cache for testing.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	return nil
}

func (m *memCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func TestCompliance(t *testing.T) {
	cachetest.RunComplianceTests(t, tiered.New(newMemCache(), newMemCache(), time.Minute))
}

func TestTiered_L1Hit(t *testing.T) {
	l1, l2 := newMemCache(), newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute)

	l1.data["evolution.1"] = []byte("bulbasaur")

	val, found, err := c.Get(context.Background(), "evolution.1")
	if err != nil {
		t.Fatal(err)
	}
	if !found || string(val) != "bulbasaur" {
		t.Fatalf("got %q, %v; want L1 hit", val, found)
	}
}

func TestTiered_L2HitWithBackfill(t *testing.T) {
	l1, l2 := newMemCache(), newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute)

	l2.data["evolution.10"] = []byte("caterpie")

	val, found, err := c.Get(context.Background(), "evolution.10")
	if err != nil {
		t.Fatal(err)
	}
	if !found || string(val) != "caterpie" {
		t.Fatalf("got %q, %v; want L2 hit", val, found)
	}
	if !l1.has("evolution.10") {
		t.Fatal("expected L1 to be backfilled")
	}
}

func TestTiered_SetWritesBothLevels(t *testing.T) {
	l1, l2 := newMemCache(), newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute)

	if err := c.Set(context.Background(), "evolution.67", []byte("eevee"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if !l1.has("evolution.67") || !l2.has("evolution.67") {
		t.Fatal("expected value in both levels")
	}
}

func TestTiered_L2FailureDegradesToMiss(t *testing.T) {
	l1, l2 := newMemCache(), newMemCache()
	l2.err = errDown
	c := tiered.New(l1, l2, 5*time.Minute)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "evolution.1")
	if err != nil {
		t.Fatalf("Get returned %v, want nil on L2 failure", err)
	}
	if found {
		t.Fatal("expected miss")
	}

	if err := c.Set(ctx, "evolution.1", []byte("bulbasaur"), time.Hour); err != nil {
		t.Fatalf("Set returned %v, want nil on L2 failure", err)
	}
	if !l1.has("evolution.1") {
		t.Fatal("expected L1 write despite L2 failure")
	}
}

func TestTiered_DeleteReportsL2Failure(t *testing.T) {
	l1, l2 := newMemCache(), newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute)
	ctx := context.Background()

	_ = c.Set(ctx, "evolution.1", []byte("bulbasaur"), time.Hour)
	l2.err = errDown

	if err := c.Delete(ctx, "evolution.1"); !errors.Is(err, errDown) {
		t.Fatalf("Delete error = %v, want %v", err, errDown)
	}
	if l1.has("evolution.1") {
		t.Fatal("expected L1 entry removed")
	}
}
