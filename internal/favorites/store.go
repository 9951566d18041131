// Package favorites tracks, per user, the ordered set of Pokemon the user has marked.
package favorites

import (
	"log/slog"
	"sync"

	"github.com/Strob0t/dexcache/internal/domain/pokemon"
)

// Store maps a user identity to that user's favorites in insertion order,
// unique by Pokemon ID. All methods are safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	users map[string][]pokemon.Pokemon
}

// New creates an empty store.
func New() *Store {
	return &Store{users: make(map[string][]pokemon.Pokemon)}
}

// Add appends p to the user's favorites. It returns false without changing
// anything when an entry with the same ID is already present. Entities
// without an ID are rejected with domain.ErrMalformedEntity.
func (s *Store) Add(user string, p *pokemon.Pokemon) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	snapshot := p.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.users[user]
	if indexOf(list, p.ID) >= 0 {
		slog.Debug("favorite already present", "user", user, "pokemon_id", p.ID, "name", p.Name)
		return false, nil
	}
	s.users[user] = append(list, snapshot)

	slog.Debug("favorite added", "user", user, "pokemon_id", p.ID, "name", p.Name)
	return true, nil
}

// Remove deletes the entry with the given ID and reports whether one existed.
func (s *Store) Remove(user string, id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.users[user]
	i := indexOf(list, id)
	if i < 0 {
		return false
	}

	rest := make([]pokemon.Pokemon, 0, len(list)-1)
	rest = append(rest, list[:i]...)
	rest = append(rest, list[i+1:]...)
	if len(rest) == 0 {
		delete(s.users, user)
	} else {
		s.users[user] = rest
	}

	slog.Debug("favorite removed", "user", user, "pokemon_id", id)
	return true
}

// List returns a copy of the user's favorites in insertion order.
// Unknown users get an empty, non-nil slice.
func (s *Store) List(user string) []pokemon.Pokemon {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.users[user]
	out := make([]pokemon.Pokemon, len(list))
	for i := range list {
		out[i] = list[i].Clone()
	}
	return out
}

// Contains reports whether the user has marked the Pokemon with the given ID.
func (s *Store) Contains(user string, id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.users[user], id) >= 0
}

// indexOf scans list for id. Favorites lists are bounded by the catalog size.
func indexOf(list []pokemon.Pokemon, id int) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
