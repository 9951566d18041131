// Package lookup implements the time-bounded cache of upstream reference
// lookups. Expiry is evaluated lazily on read; nothing runs in the background.
package lookup

import (
	"bytes"
	"log/slog"
	"sync"
	"time"
)

// DefaultDuration is how long an entry stays fresh when no duration is configured.
const DefaultDuration = time.Hour

// Status classifies a lookup result.
type Status int

const (
	// StatusMissing means no entry exists for the key.
	StatusMissing Status = iota
	// StatusStale means an entry exists but is older than the cache duration.
	StatusStale
	// StatusFresh means an entry exists and is still valid.
	StatusFresh
)

func (s Status) String() string {
	switch s {
	case StatusFresh:
		return "fresh"
	case StatusStale:
		return "stale"
	default:
		return "missing"
	}
}

// Stats describes the cache contents. Size counts stale entries too.
type Stats struct {
	Size           int           `json:"size"`
	OldestEntryAge time.Duration `json:"-"`
}

// OldestEntryAgeSeconds returns OldestEntryAge in seconds.
func (s Stats) OldestEntryAgeSeconds() float64 {
	return s.OldestEntryAge.Seconds()
}

type entry struct {
	payload   []byte
	fetchedAt time.Time
}

// Cache maps an entity key to the payload last fetched for it.
// All methods are safe for concurrent use.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]entry
	duration time.Duration
	now      func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now as the cache's clock.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an empty cache whose entries stay fresh for duration.
// A non-positive duration falls back to DefaultDuration.
func New(duration time.Duration, opts ...Option) *Cache {
	if duration <= 0 {
		duration = DefaultDuration
	}
	c := &Cache{
		entries:  make(map[string]entry),
		duration: duration,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Duration returns the freshness window fixed at construction.
func (c *Cache) Duration() time.Duration {
	return c.duration
}

// Get returns a copy of the payload for key if it exists and is fresh.
func (c *Cache) Get(key string) ([]byte, bool) {
	payload, status := c.Lookup(key)
	if status != StatusFresh {
		return nil, false
	}
	return payload, true
}

// Lookup is Get with the miss reason exposed. The payload is only returned
// for fresh entries.
func (c *Cache) Lookup(key string) ([]byte, Status) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, StatusMissing
	}
	if c.now().Sub(e.fetchedAt) >= c.duration {
		return nil, StatusStale
	}
	return bytes.Clone(e.payload), StatusFresh
}

// Put stores payload under key with the current time, replacing any entry.
func (c *Cache) Put(key string, payload []byte) {
	e := entry{payload: bytes.Clone(payload), fetchedAt: c.now()}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()

	slog.Debug("lookup cache put", "key", key, "bytes", len(payload))
}

// Evict removes the entry for key. Missing keys are ignored.
func (c *Cache) Evict(key string) {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()

	if ok {
		slog.Debug("lookup cache evict", "key", key)
	}
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	slog.Debug("lookup cache cleared", "entries", n)
}

// Stats reports the entry count and the age of the oldest entry (0 when empty).
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.entries) == 0 {
		return Stats{}
	}

	var oldest time.Time
	for _, e := range c.entries {
		if oldest.IsZero() || e.fetchedAt.Before(oldest) {
			oldest = e.fetchedAt
		}
	}

	age := c.now().Sub(oldest)
	if age < 0 {
		age = 0
	}
	return Stats{Size: len(c.entries), OldestEntryAge: age}
}
