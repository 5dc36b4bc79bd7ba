package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/campushunt/treasurehunt/internal/auth"
	"github.com/campushunt/treasurehunt/internal/config"
	"github.com/campushunt/treasurehunt/internal/database"
	"github.com/campushunt/treasurehunt/internal/handler/health"
	"github.com/campushunt/treasurehunt/internal/hunt"
	"github.com/campushunt/treasurehunt/internal/migrations"
	"github.com/campushunt/treasurehunt/internal/server"
	"github.com/campushunt/treasurehunt/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBDriver, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "driver", cfg.DBDriver, "path", cfg.DBPath)

	checks := map[string]health.Checker{
		"sqlite": health.CheckerFunc(db.PingContext),
	}

	// --- Rate limits ---
	var unlockLimiter, loginLimiter server.Limiter
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		checks["redis"] = health.CheckerFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		unlockLimiter = server.NewRedisLimiter(rdb, "unlock", cfg.UnlockRateLimit)
		loginLimiter = server.NewRedisLimiter(rdb, "login", cfg.LoginRateLimit)
	} else {
		logger.Info("redis not configured, rate limits kept in memory")
		unlockLimiter = server.NewMemoryLimiter(cfg.UnlockRateLimit)
		loginLimiter = server.NewMemoryLimiter(cfg.LoginRateLimit)
	}

	engine := hunt.NewEngine(store.New(db), logger)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Options{
		Engine:        engine,
		Tokens:        auth.New(cfg.JWTSecret, cfg.AdminTokenTTL, cfg.TeamTokenTTL),
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		UnlockLimiter: unlockLimiter,
		LoginLimiter:  loginLimiter,
		SPADir:        cfg.SPADir,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
