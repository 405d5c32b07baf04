// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/api"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/booking"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/config"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/database"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/events"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/handler"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/logger"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/notify"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/repository"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/service"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/session"
	"github.com/Shivanand-hulikatti/event-hub-storefront/internal/validate"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func main() {
	os.Exit(start(os.Args[1:]))
}

// start runs the storefront and returns the process exit code. Deferred
// calls, the logger flush included, finish before main exits.
func start(args []string) int {
	cfg, err := config.Load(args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	log, err := logger.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 2
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	// ── 1. Backend client ────────────────────────────────────────────────
	clientCfg := api.ClientConfig{
		BaseURL:    cfg.BackendURL,
		AuthScheme: cfg.AuthScheme,
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
		Logger:     log,
	}
	if n := cfg.MaxRequestsPerMin; n > 0 {
		clientCfg.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}
	client, err := api.NewClient(clientCfg)
	if err != nil {
		return err
	}

	// ── 2. Storage backends ──────────────────────────────────────────────
	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb, err = database.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	}

	tokens, closeTokens, err := tokenRepository(ctx, cfg, rdb, log)
	if err != nil {
		return err
	}
	defer closeTokens()

	var cacheBackend events.Backend
	if cfg.EventsCache == config.StoreRedis {
		cacheBackend = events.NewRedisBackend(rdb, cfg.EventsCacheTTL)
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	sess := session.New(client, tokens, log)
	bookings := booking.New(client, sess, log)
	cache := events.NewCache(client, cacheBackend, log)
	notes := notify.New(log)
	validator := validate.New()

	// Restore the saved session and warm the event list side by side.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sess.Initialize(gctx)
	})
	g.Go(func() error {
		if _, err := cache.Events(gctx); err != nil {
			log.Warn("warm event cache", zap.Error(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("initialize session: %w", err)
	}
	if user := sess.User(); user != nil {
		log.Info("session restored", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	}

	h, err := handler.New(handler.Deps{
		Session:  sess,
		Bookings: bookings,
		Events:   cache,
		Flow:     service.NewBookingFlow(client, sess, bookings, cache, notes, log),
		Auth:     service.NewAuthService(client, sess, validator, notes, log),
		Admin:    service.NewAdminService(client, sess, cache, notes, log),
		Notes:    notes,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      h.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", "http://localhost:"+cfg.AppPort), zap.String("backend", cfg.BackendURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	bookings.Close()
	sess.Close()
	log.Info("server stopped")
	return nil
}

// tokenRepository opens the configured token store. The returned func
// releases whatever the store holds open.
func tokenRepository(ctx context.Context, cfg *config.Config, rdb *redis.Client, log *zap.Logger) (repository.TokenRepository, func(), error) {
	noop := func() {}
	switch cfg.TokenStore {
	case config.StoreMemory:
		return repository.NewMemoryTokenRepository(), noop, nil
	case config.StoreFile:
		repo, err := repository.NewFileTokenRepository(cfg.TokenFile)
		if err != nil {
			return nil, nil, err
		}
		log.Info("token store", zap.String("kind", "file"), zap.String("path", repo.Path()))
		return repo, noop, nil
	case config.StoreRedis:
		log.Info("token store", zap.String("kind", "redis"), zap.String("key", cfg.TokenKey))
		return repository.NewRedisTokenRepository(rdb, cfg.TokenKey), noop, nil
	case config.StorePostgres:
		pool, err := database.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, err
		}
		if err := database.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("token store", zap.String("kind", "postgres"), zap.String("key", cfg.TokenKey))
		return repository.NewPostgresTokenRepository(pool, cfg.TokenKey), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown token store %q", cfg.TokenStore)
}
