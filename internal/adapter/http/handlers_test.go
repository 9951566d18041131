package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	cfhttp "github.com/Strob0t/dexcache/internal/adapter/http"
	"github.com/Strob0t/dexcache/internal/adapter/pokeapi"
	"github.com/Strob0t/dexcache/internal/adapter/ristretto"
	"github.com/Strob0t/dexcache/internal/config"
	"github.com/Strob0t/dexcache/internal/domain"
	"github.com/Strob0t/dexcache/internal/domain/user"
	"github.com/Strob0t/dexcache/internal/favorites"
	"github.com/Strob0t/dexcache/internal/lookup"
	"github.com/Strob0t/dexcache/internal/middleware"
	"github.com/Strob0t/dexcache/internal/service"
)

// memUserStore implements database.UserStore in memory.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]user.User
}

func (m *memUserStore) CreateUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return fmt.Errorf("create user: %w", domain.ErrConflict)
	}
	m.users[u.Username] = *u
	return nil
}

func (m *memUserStore) GetUserByUsername(_ context.Context, username string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, fmt.Errorf("get user: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func (m *memUserStore) ListUsers(_ context.Context) ([]user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []user.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memUserStore) UpdatePassword(_ context.Context, username, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = hash
	m.users[username] = u
	return nil
}

func (m *memUserStore) DeleteAllUsers(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.users))
	m.users = map[string]user.User{}
	return n, nil
}

// fakePokeAPI serves a handful of records the way pokeapi.co does.
func fakePokeAPI(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	calls := new(atomic.Int64)
	records := map[string]string{
		"1":         `{"id":1,"name":"bulbasaur","types":[{"slot":1,"type":{"name":"grass"}}]}`,
		"bulbasaur": `{"id":1,"name":"bulbasaur","types":[{"slot":1,"type":{"name":"grass"}}]}`,
		"25":        `{"id":25,"name":"pikachu","types":[{"slot":1,"type":{"name":"electric"}}]}`,
		"pikachu":   `{"id":25,"name":"pikachu","types":[{"slot":1,"type":{"name":"electric"}}]}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /pokemon/{key}", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, ok := records[r.PathValue("key")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("GET /pokemon", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"count":1302,"results":[]}`))
	})
	mux.HandleFunc("GET /evolution-chain/1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"chain":{"species":{"name":"bulbasaur"},"evolves_to":[]}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, calls
}

type testEnv struct {
	router        chi.Router
	upstreamCalls *atomic.Int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	upstream, calls := fakePokeAPI(t)
	client := pokeapi.NewClient(upstream.URL, 2*time.Second)

	evoCache, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(evoCache.Close)

	authCfg := &config.Auth{
		JWTSecret:         "handler-test-secret-at-least-32-bytes",
		AccessTokenExpiry: time.Hour,
		BcryptCost:        4,
		CookieName:        "dexcache_session",
	}
	authSvc := service.NewAuthService(&memUserStore{users: map[string]user.User{}}, authCfg)
	pokemonSvc := service.NewPokemonService(lookup.New(time.Hour), client, nil)

	h := &cfhttp.Handlers{
		Pokemon:    pokemonSvc,
		Favorites:  service.NewFavoritesService(favorites.New(), pokemonSvc, nil, nil),
		Evolutions: service.NewEvolutionService(evoCache, client, time.Hour, nil),
		Auth:       authSvc,
		Checks: []cfhttp.HealthCheck{
			{Name: "pokeapi", Check: client.Health},
		},
		CookieName: authCfg.CookieName,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	cfhttp.MountRoutes(r, h, middleware.Auth(authSvc, authCfg.CookieName))
	return &testEnv{router: r, upstreamCalls: calls}
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// login registers and logs in a user, returning the session cookie.
func (e *testEnv) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	creds := fmt.Sprintf(`{"username":%q,"password":"Test@123"}`, username)
	if rec := e.do(t, http.MethodPut, "/api/create-user", creds); rec.Code != http.StatusCreated {
		t.Fatalf("create-user: %d %s", rec.Code, rec.Body.String())
	}
	rec := e.do(t, http.MethodPost, "/api/login", creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "dexcache_session" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/healthcheck", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthcheck: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["status"]; got != "healthy" {
		t.Errorf("status = %v, want healthy", got)
	}
}

func TestHealthcheckReportsFailure(t *testing.T) {
	h := &cfhttp.Handlers{Checks: []cfhttp.HealthCheck{
		{Name: "postgres", Check: func(context.Context) error { return errors.New("connection refused") }},
	}}
	rec := httptest.NewRecorder()
	h.Healthcheck(rec, httptest.NewRequest(http.MethodGet, "/api/healthcheck", http.NoBody))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	body := decode(t, rec)
	want := map[string]any{"postgres": "connection refused"}
	if diff := cmp.Diff(want, body["checks"]); diff != "" {
		t.Errorf("checks mismatch (-want +got):\n%s", diff)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/pokemon/1", "/api/favorites", "/api/evolutions/1", "/api/cache/stats"} {
		rec := env.do(t, http.MethodGet, path, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", path, rec.Code)
		}
	}
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)
	creds := `{"username":"ash","password":"Test@123"}`

	if rec := env.do(t, http.MethodPut, "/api/create-user", creds); rec.Code != http.StatusCreated {
		t.Fatalf("create-user: %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/api/create-user", creds); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate create-user: %d, want 409", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/api/create-user", `{"username":"ash2","password":"x"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("weak password: %d, want 400", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/login", `{"username":"ash","password":"wrong-pass"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d, want 401", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/login", `{not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed login: %d, want 400", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/login", creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d", rec.Code)
	}
	token, _ := decode(t, rec)["access_token"].(string)
	if token == "" {
		t.Fatal("no access_token in login response")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/favorites", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	bearer := httptest.NewRecorder()
	env.router.ServeHTTP(bearer, req)
	if bearer.Code != http.StatusOK {
		t.Fatalf("bearer auth: %d", bearer.Code)
	}

	logout := env.do(t, http.MethodPost, "/api/logout", "")
	if logout.Code != http.StatusOK {
		t.Fatalf("logout: %d", logout.Code)
	}
	cleared := false
	for _, c := range logout.Result().Cookies() {
		if c.Name == "dexcache_session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("logout did not expire the session cookie")
	}

	if rec := env.do(t, http.MethodDelete, "/api/reset-users", ""); rec.Code != http.StatusOK {
		t.Fatalf("reset-users: %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/login", creds); rec.Code != http.StatusUnauthorized {
		t.Fatalf("login after reset: %d, want 401", rec.Code)
	}
}

func TestGetPokemonCachesLookups(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "ash")

	rec := env.do(t, http.MethodGet, "/api/pokemon/Pikachu", "", session)
	if rec.Code != http.StatusOK {
		t.Fatalf("get pokemon: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["name"]; got != "pikachu" {
		t.Errorf("name = %v, want pikachu", got)
	}
	env.do(t, http.MethodGet, "/api/pokemon/pikachu", "", session)
	if n := env.upstreamCalls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}

	if rec := env.do(t, http.MethodGet, "/api/pokemon/missingno", "", session); rec.Code != http.StatusNotFound {
		t.Errorf("unknown pokemon: %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/pokemon/0", "", session); rec.Code != http.StatusBadRequest {
		t.Errorf("id 0: %d, want 400", rec.Code)
	}
}

func TestFavoritesFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice")
	bob := env.login(t, "bob")

	rec := env.do(t, http.MethodPost, "/api/favorites", `{"pokemon_id":1}`, alice)
	if rec.Code != http.StatusOK {
		t.Fatalf("add: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["message"]; got != "Added bulbasaur to favorites" {
		t.Errorf("message = %v", got)
	}

	rec = env.do(t, http.MethodPost, "/api/favorites", `{"pokemon_id":1}`, alice)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate add: %d, want 400", rec.Code)
	}
	if got := decode(t, rec)["message"]; got != "bulbasaur is already in favorites" {
		t.Errorf("message = %v", got)
	}

	if rec := env.do(t, http.MethodPost, "/api/favorites", `{}`, alice); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing id: %d, want 400", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/favorites", `{"pokemon_id":9999}`, alice); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown pokemon: %d, want 404", rec.Code)
	}

	env.do(t, http.MethodPost, "/api/favorites", `{"pokemon_id":25}`, alice)

	rec = env.do(t, http.MethodGet, "/api/favorites", "", alice)
	var list struct {
		Status    string `json:"status"`
		Favorites []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"favorites"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range list.Favorites {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"bulbasaur", "pikachu"}, names); diff != "" {
		t.Errorf("favorites mismatch (-want +got):\n%s", diff)
	}

	rec = env.do(t, http.MethodGet, "/api/favorites", "", bob)
	if !strings.Contains(rec.Body.String(), `"favorites":[]`) {
		t.Errorf("bob's favorites = %s, want empty list", rec.Body.String())
	}

	if rec := env.do(t, http.MethodDelete, "/api/favorites/1", "", alice); rec.Code != http.StatusOK {
		t.Fatalf("remove: %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/favorites/1", "", alice); rec.Code != http.StatusNotFound {
		t.Fatalf("second remove: %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/favorites/abc", "", alice); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d, want 400", rec.Code)
	}
}

func TestEvolutions(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "ash")

	rec := env.do(t, http.MethodGet, "/api/evolutions/1", "", session)
	if rec.Code != http.StatusOK {
		t.Fatalf("evolutions: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"bulbasaur"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if rec := env.do(t, http.MethodGet, "/api/evolutions/2", "", session); rec.Code != http.StatusNotFound {
		t.Errorf("unknown chain: %d, want 404", rec.Code)
	}
}

func TestCacheEndpoints(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "ash")

	env.do(t, http.MethodGet, "/api/pokemon/1", "", session)
	env.do(t, http.MethodGet, "/api/pokemon/25", "", session)

	stats := decode(t, env.do(t, http.MethodGet, "/api/cache/stats", "", session))
	if stats["size"] != float64(2) {
		t.Fatalf("size = %v, want 2", stats["size"])
	}
	if _, ok := stats["oldest_entry_age"].(float64); !ok {
		t.Fatalf("oldest_entry_age missing: %v", stats)
	}

	if rec := env.do(t, http.MethodDelete, "/api/cache/25", "", session); rec.Code != http.StatusOK {
		t.Fatalf("evict: %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/cache/never-cached", "", session); rec.Code != http.StatusOK {
		t.Fatalf("evict absent: %d", rec.Code)
	}
	stats = decode(t, env.do(t, http.MethodGet, "/api/cache/stats", "", session))
	if stats["size"] != float64(1) {
		t.Fatalf("size after evict = %v, want 1", stats["size"])
	}

	if rec := env.do(t, http.MethodDelete, "/api/cache", "", session); rec.Code != http.StatusOK {
		t.Fatalf("clear: %d", rec.Code)
	}
	stats = decode(t, env.do(t, http.MethodGet, "/api/cache/stats", "", session))
	if stats["size"] != float64(0) || stats["oldest_entry_age"] != float64(0) {
		t.Fatalf("stats after clear = %v", stats)
	}
}
