// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue.
// The context carries request-scoped values such as the request ID.
type Handler func(ctx context.Context, subject string, data []byte) error

// Publisher is the publishing half of a queue. Services that only emit
// events depend on this.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	Publisher

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subjects published by dexcache.
const (
	SubjectFavoriteAdded   = "favorites.added"
	SubjectFavoriteRemoved = "favorites.removed"

	// SubjectFavoritesAll matches every favorites event.
	SubjectFavoritesAll = "favorites.>"
)

// FavoriteEventPayload is the schema for favorites.added and
// favorites.removed messages.
type FavoriteEventPayload struct {
	User      string `json:"user"`
	PokemonID int    `json:"pokemon_id"`
	Name      string `json:"name,omitempty"`
	At        int64  `json:"at"`
}
