package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	cfotel "github.com/Strob0t/dexcache/internal/adapter/otel"
	"github.com/Strob0t/dexcache/internal/domain"
	"github.com/Strob0t/dexcache/internal/domain/pokemon"
	"github.com/Strob0t/dexcache/internal/favorites"
	"github.com/Strob0t/dexcache/internal/port/messagequeue"
)

// PokemonGetter resolves a Pokemon by name or id.
type PokemonGetter interface {
	Get(ctx context.Context, nameOrID string) (*pokemon.Pokemon, error)
}

// FavoritesService manages per-user favorites and emits change events.
type FavoritesService struct {
	store   *favorites.Store
	pokemon PokemonGetter
	events  messagequeue.Publisher
	metrics *cfotel.Metrics
	now     func() time.Time
}

// NewFavoritesService creates a FavoritesService. events and metrics may be nil.
func NewFavoritesService(store *favorites.Store, pokemon PokemonGetter, events messagequeue.Publisher, metrics *cfotel.Metrics) *FavoritesService {
	return &FavoritesService{
		store:   store,
		pokemon: pokemon,
		events:  events,
		metrics: metrics,
		now:     time.Now,
	}
}

// Add resolves the Pokemon and appends it to the user's favorites. added is
// false when it was already present; the resolved Pokemon is returned either
// way so callers can name it.
func (s *FavoritesService) Add(ctx context.Context, username string, pokemonID int) (p *pokemon.Pokemon, added bool, err error) {
	if pokemonID <= 0 {
		return nil, false, fmt.Errorf("%w: pokemon_id must be positive", domain.ErrValidation)
	}
	ctx, span := cfotel.StartFavoriteSpan(ctx, "add", username, pokemonID)
	defer span.End()

	p, err = s.pokemon.Get(ctx, strconv.Itoa(pokemonID))
	if err != nil {
		return nil, false, err
	}

	added, err = s.store.Add(username, p)
	if err != nil {
		return nil, false, err
	}
	if added {
		s.metrics.RecordFavorite(ctx, "added")
		s.publish(ctx, messagequeue.SubjectFavoriteAdded, username, p.ID, p.Name)
	}
	return p, added, nil
}

// Remove deletes a favorite and reports whether it was present.
func (s *FavoritesService) Remove(ctx context.Context, username string, pokemonID int) bool {
	ctx, span := cfotel.StartFavoriteSpan(ctx, "remove", username, pokemonID)
	defer span.End()

	if !s.store.Remove(username, pokemonID) {
		return false
	}
	s.metrics.RecordFavorite(ctx, "removed")
	s.publish(ctx, messagequeue.SubjectFavoriteRemoved, username, pokemonID, "")
	return true
}

// List returns the user's favorites in insertion order.
func (s *FavoritesService) List(username string) []pokemon.Pokemon {
	return s.store.List(username)
}

// Contains reports whether the user has marked the Pokemon.
func (s *FavoritesService) Contains(username string, pokemonID int) bool {
	return s.store.Contains(username, pokemonID)
}

// publish emits a change event. Delivery is best effort: the in-memory
// store is the source of truth, so failures are only logged.
func (s *FavoritesService) publish(ctx context.Context, subject, username string, id int, name string) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(messagequeue.FavoriteEventPayload{
		User:      username,
		PokemonID: id,
		Name:      name,
		At:        s.now().Unix(),
	})
	if err != nil {
		slog.Error("marshal favorite event", "error", err)
		return
	}
	if err := s.events.Publish(ctx, subject, data); err != nil {
		slog.Warn("publish favorite event failed", "subject", subject, "user", username, "error", err)
	}
}

// SubscribeActivityLog logs every favorites event seen on the queue,
// including those published by other instances. The returned function
// cancels the subscription.
func SubscribeActivityLog(ctx context.Context, q messagequeue.Queue) (func(), error) {
	return q.Subscribe(ctx, messagequeue.SubjectFavoritesAll, func(ctx context.Context, subject string, data []byte) error {
		var ev messagequeue.FavoriteEventPayload
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", subject, err)
		}
		slog.InfoContext(ctx, "favorites activity",
			"subject", subject, "user", ev.User, "pokemon_id", ev.PokemonID, "at", time.Unix(ev.At, 0).UTC())
		return nil
	})
}
