package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	m := cfg.Match()
	if m.RoundTimeLimit != 30*time.Second || m.ResultsDelay != 5*time.Second || m.VoteTimeout != time.Minute {
		t.Errorf("match config = %+v", m)
	}
	if cfg.ConnRatePerMin != 50 || cfg.MsgBurst != 20 {
		t.Errorf("rate limits = %d/min, burst %d", cfg.ConnRatePerMin, cfg.MsgBurst)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ROUND_TIME_LIMIT", "45s")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RoundTimeLimit != 45*time.Second {
		t.Errorf("round time limit = %s", cfg.RoundTimeLimit)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %s", cfg.LogLevel)
	}
	if cfg.RedisURL == "" {
		t.Error("redis url not read")
	}
}

func TestLoadRejectsShortRounds(t *testing.T) {
	t.Setenv("ROUND_TIME_LIMIT", "500ms")
	if _, err := Load(); err == nil {
		t.Error("expected an error for a sub-second round")
	}
}
