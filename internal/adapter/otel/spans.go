package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "dexcache"

// StartFetchSpan starts a span around a reference API fetch that missed
// the cache.
func StartFetchSpan(ctx context.Context, resource, key string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "upstream.fetch",
		trace.WithAttributes(
			attribute.String("upstream.resource", resource),
			attribute.String("upstream.key", key),
		),
	)
}

// StartFavoriteSpan starts a span for a favorites mutation.
func StartFavoriteSpan(ctx context.Context, op, username string, pokemonID int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "favorites."+op,
		trace.WithAttributes(
			attribute.String("user.name", username),
			attribute.Int("pokemon.id", pokemonID),
		),
	)
}
