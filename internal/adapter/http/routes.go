package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router. auth guards
// every route that acts on behalf of a user.
func MountRoutes(r chi.Router, h *Handlers, auth func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/healthcheck", h.Healthcheck)

		r.Put("/create-user", h.CreateUser)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Delete("/reset-users", h.ResetUsers)

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Get("/pokemon/{nameOrID}", h.GetPokemon)
			r.Get("/evolutions/{id}", h.GetEvolutions)

			r.Get("/favorites", h.ListFavorites)
			r.Post("/favorites", h.AddFavorite)
			r.Delete("/favorites/{id}", h.RemoveFavorite)

			r.Get("/cache/stats", h.CacheStats)
			r.Delete("/cache", h.ClearCache)
			r.Delete("/cache/{key}", h.EvictCacheEntry)
		})
	})
}
