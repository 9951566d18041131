package http

import (
	"fmt"
	"net/http"

	"github.com/Strob0t/dexcache/internal/middleware"
)

type addFavoriteRequest struct {
	PokemonID *int `json:"pokemon_id"`
}

func currentUsername(r *http.Request) string {
	if id := middleware.IdentityFromContext(r.Context()); id != nil {
		return id.Username
	}
	return ""
}

// ListFavorites handles GET /api/favorites.
func (h *Handlers) ListFavorites(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, envelope{"favorites": h.Favorites.List(currentUsername(r))})
}

// AddFavorite handles POST /api/favorites. A duplicate is reported as 400.
func (h *Handlers) AddFavorite(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[addFavoriteRequest](w, r)
	if !ok {
		return
	}
	if req.PokemonID == nil {
		writeError(w, http.StatusBadRequest, "pokemon_id is required")
		return
	}

	p, added, err := h.Favorites.Add(r.Context(), currentUsername(r), *req.PokemonID)
	if err != nil {
		writeDomainError(w, err, "Pokemon not found")
		return
	}
	if !added {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s is already in favorites", p.Name))
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"message": fmt.Sprintf("Added %s to favorites", p.Name)})
}

// RemoveFavorite handles DELETE /api/favorites/{id}.
func (h *Handlers) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	if !h.Favorites.Remove(r.Context(), currentUsername(r), id) {
		writeError(w, http.StatusNotFound, "Pokemon not found in favorites")
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"message": "Pokemon removed from favorites"})
}
