package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fieldorder/backend/internal/cache"
	"fieldorder/backend/internal/clients/directory"
	"fieldorder/backend/internal/config"
	"fieldorder/backend/internal/httpapi"
	"fieldorder/backend/internal/service"
	"fieldorder/backend/internal/shiftwindow"
	"fieldorder/backend/internal/store"
	"fieldorder/backend/internal/store/memory"
	"fieldorder/backend/internal/store/postgres"
)

func main() {
	zlog, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = zlog.Sync() }()
	logger := zlog.Sugar()

	if err := run(logger); err != nil {
		logger.Fatalw("server exited", "error", err)
	}
}

func run(logger *zap.SugaredLogger) error {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	repo, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	historyCache := openCache(ctx, cfg, logger)

	loc, err := time.LoadLocation(cfg.ShiftTimezone)
	if err != nil {
		return err
	}
	policy := shiftwindow.NewPolicy(loc)

	var directoryClient *directory.Client
	if cfg.DirectoryAddress != "" {
		directoryClient = directory.NewClient(cfg.DirectoryAddress)
		logger.Infow("customer directory enabled", "address", cfg.DirectoryAddress)
	}

	svc := service.New(repo, policy, shiftwindow.SystemClock{}, historyCache, directoryClient, logger, cfg.HistoryCacheTTL())
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), repo)
	api := httpapi.New(svc, auth, logger)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Infow("listening", "address", cfg.RunAddress, "timezone", cfg.ShiftTimezone)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-gctx.Done()
		logger.Infow("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// openStore picks PostgreSQL when DATABASE_URL is set; a configured but
// unreachable database is fatal rather than silently degraded. Without it the
// server runs on the seeded in-memory store for local development.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (store.Repository, error) {
	if cfg.DatabaseURL != "" {
		repo, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Infow("using postgres store")
		return repo, nil
	}

	logger.Warnw("DATABASE_URL not set, using in-memory store with seed data")
	return memory.NewSeeded(), nil
}

// openCache returns the Redis history cache when configured and reachable,
// otherwise the noop cache. A dead Redis at startup downgrades with a warning
// instead of blocking the server.
func openCache(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) cache.HistoryCache {
	if cfg.RedisAddr == "" {
		return cache.NoopHistoryCache{}
	}

	redisCache := cache.NewRedisHistoryCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := redisCache.Ping(pingCtx); err != nil {
		logger.Warnw("redis unreachable, history caching disabled", "addr", cfg.RedisAddr, "error", err)
		_ = redisCache.Close()
		return cache.NoopHistoryCache{}
	}

	logger.Infow("history cache enabled", "addr", cfg.RedisAddr)
	return redisCache
}
