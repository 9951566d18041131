package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	cfotel "github.com/Strob0t/dexcache/internal/adapter/otel"
	"github.com/Strob0t/dexcache/internal/domain"
	"github.com/Strob0t/dexcache/internal/domain/pokemon"
	"github.com/Strob0t/dexcache/internal/lookup"
	"github.com/Strob0t/dexcache/internal/port/refdata"
)

// PokemonService resolves Pokemon through the lookup cache, fetching from the
// reference API on a miss or a stale entry.
type PokemonService struct {
	cache   *lookup.Cache
	fetcher refdata.Fetcher
	metrics *cfotel.Metrics
	group   singleflight.Group
}

// NewPokemonService creates a PokemonService. metrics may be nil.
func NewPokemonService(cache *lookup.Cache, fetcher refdata.Fetcher, metrics *cfotel.Metrics) *PokemonService {
	return &PokemonService{cache: cache, fetcher: fetcher, metrics: metrics}
}

// Get returns the Pokemon for a name or numeric id. Concurrent misses for the
// same key share one upstream request. Upstream failures leave the cache
// untouched.
func (s *PokemonService) Get(ctx context.Context, nameOrID string) (*pokemon.Pokemon, error) {
	key, err := pokemon.NormalizeKey(nameOrID)
	if err != nil {
		return nil, err
	}

	raw, status := s.cache.Lookup(key)
	s.metrics.RecordLookup(ctx, status.String())
	if status == lookup.StatusFresh {
		p, err := pokemon.Decode(raw)
		if err == nil {
			return p, nil
		}
		slog.Warn("discarding undecodable cache entry", "key", key, "error", err)
		s.cache.Evict(key)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), key)
	})
	if err != nil {
		return nil, err
	}
	return pokemon.Decode(v.([]byte))
}

// fetch retrieves and validates a payload, then stores it.
func (s *PokemonService) fetch(ctx context.Context, key string) ([]byte, error) {
	ctx, span := cfotel.StartFetchSpan(ctx, "pokemon", key)
	defer span.End()

	start := time.Now()
	raw, err := s.fetcher.FetchPokemon(ctx, key)
	s.metrics.RecordUpstream(ctx, "pokemon", err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetch pokemon %s: %w", key, err)
	}

	if _, err := pokemon.Decode(raw); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("pokemon %s: %w: %w", key, domain.ErrUpstream, err)
	}

	s.cache.Put(key, raw)
	return raw, nil
}

// CacheStats reports the lookup cache size and oldest entry age.
func (s *PokemonService) CacheStats() lookup.Stats {
	return s.cache.Stats()
}

// Evict drops the cached entry for a name or id. Absent keys are a no-op.
func (s *PokemonService) Evict(nameOrID string) error {
	key, err := pokemon.NormalizeKey(nameOrID)
	if err != nil {
		return err
	}
	s.cache.Evict(key)
	return nil
}

// ClearCache drops every cached entry.
func (s *PokemonService) ClearCache() {
	s.cache.Clear()
}
