package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	dxhttp "github.com/Strob0t/dexcache/internal/adapter/http"
	dxnats "github.com/Strob0t/dexcache/internal/adapter/nats"
	"github.com/Strob0t/dexcache/internal/adapter/natskv"
	dxotel "github.com/Strob0t/dexcache/internal/adapter/otel"
	"github.com/Strob0t/dexcache/internal/adapter/pokeapi"
	"github.com/Strob0t/dexcache/internal/adapter/postgres"
	"github.com/Strob0t/dexcache/internal/adapter/ristretto"
	"github.com/Strob0t/dexcache/internal/adapter/tiered"
	"github.com/Strob0t/dexcache/internal/config"
	"github.com/Strob0t/dexcache/internal/favorites"
	"github.com/Strob0t/dexcache/internal/logger"
	"github.com/Strob0t/dexcache/internal/lookup"
	"github.com/Strob0t/dexcache/internal/middleware"
	"github.com/Strob0t/dexcache/internal/port/cache"
	"github.com/Strob0t/dexcache/internal/port/messagequeue"
	"github.com/Strob0t/dexcache/internal/resilience"
	"github.com/Strob0t/dexcache/internal/service"
)

const (
	shutdownTimeout      = 10 * time.Second
	rateCleanupInterval  = time.Minute
	rateClientMaxIdle    = 10 * time.Minute
	evolutionL1MaxExpiry = 5 * time.Minute
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	var err error
	args := os.Args[1:]
	switch {
	case len(args) > 0 && args[0] == "migrate":
		err = runMigrate(args[1:])
	case len(args) > 0 && args[0] == "admin":
		err = runAdmin(args[1:])
	default:
		err = run(args)
	}
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"cache_duration", cfg.Cache.Duration,
		"nats_enabled", cfg.NATS.URL != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---

	shutdownOTEL, err := dxotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := dxotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	store := postgres.NewStore(pool)

	client := pokeapi.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)
	client.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("ristretto: %w", err)
	}
	defer l1.Close()

	checks := []dxhttp.HealthCheck{
		{Name: "postgres", Check: store.Ping},
		{Name: "upstream", Check: client.Health},
	}

	var (
		evolutionCache cache.Cache = l1
		events         messagequeue.Publisher
	)
	if cfg.NATS.URL != "" {
		queue, err := dxnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Close() }()

		l2, err := natskv.Open(ctx, queue.JetStream(), cfg.Cache.L2Bucket, cfg.Cache.EvolutionTTL)
		if err != nil {
			return fmt.Errorf("nats kv: %w", err)
		}
		evolutionCache = tiered.New(l1, l2, min(cfg.Cache.EvolutionTTL, evolutionL1MaxExpiry))
		events = queue

		cancelActivity, err := service.SubscribeActivityLog(ctx, queue)
		if err != nil {
			return fmt.Errorf("activity subscriber: %w", err)
		}
		defer cancelActivity()

		checks = append(checks, dxhttp.HealthCheck{Name: "nats", Check: func(context.Context) error {
			if !queue.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}})
	}

	// --- Services ---

	lookupCache := lookup.New(cfg.Cache.Duration)
	favoriteStore := favorites.New()

	pokemonSvc := service.NewPokemonService(lookupCache, client, metrics)
	favoritesSvc := service.NewFavoritesService(favoriteStore, pokemonSvc, events, metrics)
	evolutionSvc := service.NewEvolutionService(evolutionCache, client, cfg.Cache.EvolutionTTL, metrics)
	authSvc := service.NewAuthService(store, &cfg.Auth)

	// --- HTTP ---

	handlers := &dxhttp.Handlers{
		Pokemon:      pokemonSvc,
		Favorites:    favoritesSvc,
		Evolutions:   evolutionSvc,
		Auth:         authSvc,
		Checks:       checks,
		CookieName:   cfg.Auth.CookieName,
		CookieSecure: cfg.Auth.CookieSecure,
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	limiter.StartCleanup(ctx, rateCleanupInterval, rateClientMaxIdle)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(dxhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(dxhttp.SecurityHeaders)
	r.Use(dxhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(dxotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(limiter.Handler)
	r.Use(chimw.Timeout(30 * time.Second))

	dxhttp.MountRoutes(r, handlers, middleware.Auth(authSvc, cfg.Auth.CookieName))

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
