package http

import (
	"net/http"
)

// GetPokemon handles GET /api/pokemon/{nameOrID}.
func (h *Handlers) GetPokemon(w http.ResponseWriter, r *http.Request) {
	p, err := h.Pokemon.Get(r.Context(), urlParam(r, "nameOrID"))
	if err != nil {
		writeDomainError(w, err, "Pokemon not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetEvolutions handles GET /api/evolutions/{id}. The upstream chain is
// passed through unchanged.
func (h *Handlers) GetEvolutions(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	raw, err := h.Evolutions.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Evolution chain not found")
		return
	}
	writeRaw(w, http.StatusOK, raw)
}

// CacheStats handles GET /api/cache/stats.
func (h *Handlers) CacheStats(w http.ResponseWriter, _ *http.Request) {
	s := h.Pokemon.CacheStats()
	writeSuccess(w, http.StatusOK, envelope{
		"size":             s.Size,
		"oldest_entry_age": s.OldestEntryAgeSeconds(),
	})
}

// ClearCache handles DELETE /api/cache.
func (h *Handlers) ClearCache(w http.ResponseWriter, _ *http.Request) {
	h.Pokemon.ClearCache()
	writeSuccess(w, http.StatusOK, envelope{"message": "Cache cleared"})
}

// EvictCacheEntry handles DELETE /api/cache/{key}. Evicting an absent key
// succeeds.
func (h *Handlers) EvictCacheEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.Pokemon.Evict(urlParam(r, "key")); err != nil {
		writeDomainError(w, err, "invalid key")
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"message": "Cache entry removed"})
}
