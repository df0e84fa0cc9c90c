package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/playperu/geoduel/internal/match"
)

type Config struct {
	HTTPAddr    string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath      string     `env:"DB_PATH" envDefault:"data/geoduel.db"`
	RedisURL    string     `env:"REDIS_URL"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir      string     `env:"SPA_DIR" envDefault:"../web/dist"`
	FrontendURL string     `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	MaxRooms    int        `env:"MAX_ROOMS" envDefault:"1000"`

	RoundTimeLimit time.Duration `env:"ROUND_TIME_LIMIT" envDefault:"30s"`
	ResultsDelay   time.Duration `env:"RESULTS_DELAY" envDefault:"5s"`
	CleanupDelay   time.Duration `env:"CLEANUP_DELAY" envDefault:"5m"`
	RematchDelay   time.Duration `env:"REMATCH_DELAY" envDefault:"2s"`
	VoteTimeout    time.Duration `env:"VOTE_TIMEOUT" envDefault:"60s"`
	PersistTimeout time.Duration `env:"PERSIST_TIMEOUT" envDefault:"5s"`
	LeaderboardTTL time.Duration `env:"LEADERBOARD_TTL" envDefault:"30s"`

	ConnRatePerMin int     `env:"CONN_RATE_PER_MIN" envDefault:"50"`
	ConnBurst      int     `env:"CONN_BURST" envDefault:"50"`
	MsgRate        float64 `env:"MSG_RATE" envDefault:"10"`
	MsgBurst       int     `env:"MSG_BURST" envDefault:"20"`

	AdminUser         string `env:"ADMIN_USER" envDefault:"admin"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.RoundTimeLimit < time.Second {
		return nil, fmt.Errorf("ROUND_TIME_LIMIT must be at least 1s, got %s", cfg.RoundTimeLimit)
	}
	return &cfg, nil
}

// Match returns the coordinator timings.
func (c *Config) Match() match.Config {
	return match.Config{
		RoundTimeLimit: c.RoundTimeLimit,
		ResultsDelay:   c.ResultsDelay,
		CleanupDelay:   c.CleanupDelay,
		RematchDelay:   c.RematchDelay,
		VoteTimeout:    c.VoteTimeout,
		PersistTimeout: c.PersistTimeout,
	}
}
