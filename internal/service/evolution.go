package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	cfotel "github.com/Strob0t/dexcache/internal/adapter/otel"
	"github.com/Strob0t/dexcache/internal/domain"
	"github.com/Strob0t/dexcache/internal/port/cache"
	"github.com/Strob0t/dexcache/internal/port/refdata"
)

// EvolutionService serves evolution chains read-through a byte cache.
type EvolutionService struct {
	cache   cache.Cache
	fetcher refdata.Fetcher
	ttl     time.Duration
	metrics *cfotel.Metrics
	group   singleflight.Group
}

// NewEvolutionService creates an EvolutionService. metrics may be nil.
func NewEvolutionService(c cache.Cache, fetcher refdata.Fetcher, ttl time.Duration, metrics *cfotel.Metrics) *EvolutionService {
	return &EvolutionService{cache: c, fetcher: fetcher, ttl: ttl, metrics: metrics}
}

func evolutionKey(id int) string {
	return "evolution." + strconv.Itoa(id)
}

// Get returns the raw evolution chain JSON for a chain id. Cache read and
// write failures are logged and fall through to the upstream.
func (s *EvolutionService) Get(ctx context.Context, id int) (json.RawMessage, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: evolution chain id must be positive", domain.ErrValidation)
	}
	key := evolutionKey(id)

	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("evolution cache read failed", "key", key, "error", err)
	}
	s.metrics.RecordEvolution(ctx, ok)
	if ok {
		return data, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		ctx, span := cfotel.StartFetchSpan(ctx, "evolution-chain", key)
		defer span.End()

		start := time.Now()
		raw, err := s.fetcher.FetchEvolutionChain(ctx, id)
		s.metrics.RecordUpstream(ctx, "evolution-chain", err, time.Since(start))
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("fetch evolution chain %d: %w", id, err)
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("evolution chain %d: %w: invalid JSON", id, domain.ErrUpstream)
		}
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			slog.Warn("evolution cache write failed", "key", key, "error", err)
		}
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(v.([]byte)), nil
}

// Invalidate drops a cached chain.
func (s *EvolutionService) Invalidate(ctx context.Context, id int) error {
	return s.cache.Delete(ctx, evolutionKey(id))
}
