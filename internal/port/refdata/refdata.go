// Package refdata defines the port to the read-only reference-data API.
package refdata

import "context"

// Fetcher retrieves raw JSON records from the reference API. Implementations
// never retry; a failed fetch is reported to the caller as-is.
type Fetcher interface {
	// FetchPokemon returns the record for a normalised name or numeric id.
	FetchPokemon(ctx context.Context, key string) ([]byte, error)
	// FetchEvolutionChain returns the evolution chain with the given id.
	FetchEvolutionChain(ctx context.Context, id int) ([]byte, error)
}
