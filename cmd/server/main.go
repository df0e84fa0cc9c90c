package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/geoduel/internal/cities"
	"github.com/playperu/geoduel/internal/config"
	"github.com/playperu/geoduel/internal/database"
	"github.com/playperu/geoduel/internal/handler/health"
	"github.com/playperu/geoduel/internal/limiter"
	"github.com/playperu/geoduel/internal/metrics"
	"github.com/playperu/geoduel/internal/migrations"
	"github.com/playperu/geoduel/internal/registry"
	"github.com/playperu/geoduel/internal/server"
	"github.com/playperu/geoduel/internal/store"
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
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	version, err := migrations.Run(ctx, db)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath, "schema_version", version)

	sqlStore := store.NewSQLiteStore(db)
	checks := map[string]health.Checker{
		"sqlite": dbChecker{db},
	}

	// --- Redis (optional leaderboard cache) ---
	var backend store.Backend = sqlStore
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")
		backend = store.NewCachedLeaderboard(sqlStore, rdb, cfg.LeaderboardTTL, logger)
		checks["redis"] = redisChecker{rdb}
	}

	// --- Game ---
	m := metrics.New()
	broker := server.NewBroker(logger)
	broker.OnDrop(m.EventDropped)

	reg := registry.New(registry.Config{
		FrontendURL: cfg.FrontendURL,
		MaxRooms:    cfg.MaxRooms,
		Match:       cfg.Match(),
	}, registry.Deps{
		Publisher: broker,
		Cities:    cities.New(cities.Catalog()),
		Recorder:  backend,
		Metrics:   m,
		Logger:    logger,
	})

	conns := limiter.PerMinute(cfg.ConnRatePerMin, cfg.ConnBurst)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Registry: reg,
		Broker:   broker,
		Stats:    statsReader{SQLiteStore: sqlStore, board: backend},
		Health:   health.NewHandler(logger, checks, reg.Count),
		Metrics:  m,
		Play: server.PlayConfig{
			Conns:    conns,
			MsgRate:  cfg.MsgRate,
			MsgBurst: cfg.MsgBurst,
		},
		Admin: server.AdminCredentials{
			User:         cfg.AdminUser,
			PasswordHash: cfg.AdminPasswordHash,
		},
		SPADir: cfg.SPADir,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		return conns.Run(gctx, logger)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		err := srv.Shutdown(context.Background())
		reg.Close()
		logger.Info("rooms closed")
		return err
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

// statsReader serves the leaderboard through the cache and everything
// else straight from SQLite.
type statsReader struct {
	*store.SQLiteStore
	board store.Backend
}

func (s statsReader) Leaderboard(ctx context.Context, limit int) ([]store.PlayerStats, error) {
	return s.board.Leaderboard(ctx, limit)
}

// dbChecker adapts *sql.DB to health.Checker.
type dbChecker struct{ db *sql.DB }

func (d dbChecker) Check(ctx context.Context) error { return d.db.PingContext(ctx) }

// redisChecker adapts *redis.Client to health.Checker.
type redisChecker struct{ client *redis.Client }

func (r redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }
