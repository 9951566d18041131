package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "dexcache"

// Metrics holds all dexcache metric instruments. A nil *Metrics is valid and
// records nothing, so services can run without telemetry.
type Metrics struct {
	Lookups          metric.Int64Counter
	UpstreamFetches  metric.Int64Counter
	UpstreamDuration metric.Float64Histogram
	FavoriteChanges  metric.Int64Counter
	EvolutionLookups metric.Int64Counter
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsFromProvider(otel.GetMeterProvider())
}

// NewMetricsFromProvider creates all metric instruments on mp.
func NewMetricsFromProvider(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Lookups, err = meter.Int64Counter("dexcache.lookup.requests",
		metric.WithDescription("Lookup cache requests by status (fresh, stale, missing)"))
	if err != nil {
		return nil, err
	}

	m.UpstreamFetches, err = meter.Int64Counter("dexcache.upstream.fetches",
		metric.WithDescription("Requests to the reference API by resource and outcome"))
	if err != nil {
		return nil, err
	}

	m.UpstreamDuration, err = meter.Float64Histogram("dexcache.upstream.duration_seconds",
		metric.WithDescription("Reference API request duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.FavoriteChanges, err = meter.Int64Counter("dexcache.favorites.changes",
		metric.WithDescription("Favorites added or removed"))
	if err != nil {
		return nil, err
	}

	m.EvolutionLookups, err = meter.Int64Counter("dexcache.evolution.lookups",
		metric.WithDescription("Evolution chain cache lookups by result (hit, miss)"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordLookup counts a lookup cache read.
func (m *Metrics) RecordLookup(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.Lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordUpstream counts a reference API call and its latency.
func (m *Metrics) RecordUpstream(ctx context.Context, resource string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(attribute.String("resource", resource), attribute.String("outcome", outcome))
	m.UpstreamFetches.Add(ctx, 1, attrs)
	m.UpstreamDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordFavorite counts a favorites mutation; op is "added" or "removed".
func (m *Metrics) RecordFavorite(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.FavoriteChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// RecordEvolution counts an evolution chain cache read.
func (m *Metrics) RecordEvolution(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.EvolutionLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
