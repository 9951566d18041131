package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Strob0t/dexcache/internal/service"
)

// healthTimeout bounds each readiness probe.
const healthTimeout = 2 * time.Second

// HealthCheck is a named readiness probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handlers holds the services the HTTP surface dispatches to.
type Handlers struct {
	Pokemon    *service.PokemonService
	Favorites  *service.FavoritesService
	Evolutions *service.EvolutionService
	Auth       *service.AuthService
	Checks     []HealthCheck

	CookieName   string
	CookieSecure bool
}

// Health handles GET /api/health. It reports liveness only.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, envelope{"message": "Service is running"})
}

// Healthcheck handles GET /api/healthcheck, running every readiness probe.
func (h *Handlers) Healthcheck(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.Checks))
	healthy := true
	for _, c := range h.Checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		err := c.Check(ctx)
		cancel()
		if err != nil {
			healthy = false
			checks[c.Name] = err.Error()
			continue
		}
		checks[c.Name] = "ok"
	}

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, envelope{
			"status":  "unhealthy",
			"message": "Pokemon API is degraded",
			"checks":  checks,
		})
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"status":  "healthy",
		"message": "Pokemon API is running",
		"checks":  checks,
	})
}
