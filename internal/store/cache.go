package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/geoduel/internal/geoduel"
)

const leaderboardKey = "geoduel:leaderboard"

// Backend is what the cache wraps: a recorder with a leaderboard read.
type Backend interface {
	geoduel.Recorder
	Leaderboard(ctx context.Context, limit int) ([]PlayerStats, error)
}

// CachedLeaderboard keeps leaderboard pages in a Redis hash keyed by page
// size. Recording a game drops the hash. Redis failures are logged and the
// backend is used directly.
type CachedLeaderboard struct {
	next   Backend
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedLeaderboard(next Backend, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedLeaderboard {
	return &CachedLeaderboard{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *CachedLeaderboard) Leaderboard(ctx context.Context, limit int) ([]PlayerStats, error) {
	limit = ClampLimit(limit)
	field := strconv.Itoa(limit)

	data, err := c.rdb.HGet(ctx, leaderboardKey, field).Bytes()
	switch {
	case err == nil:
		var out []PlayerStats
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
		c.logger.Warn("discarding corrupt leaderboard cache entry", "limit", limit)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("leaderboard cache read failed", "error", err)
	}

	out, err := c.next.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(out)
	if err != nil {
		return out, nil
	}
	_, err = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, leaderboardKey, field, data)
		p.Expire(ctx, leaderboardKey, c.ttl)
		return nil
	})
	if err != nil {
		c.logger.Warn("leaderboard cache write failed", "error", err)
	}
	return out, nil
}

func (c *CachedLeaderboard) RecordGame(ctx context.Context, rec geoduel.GameRecord) error {
	if err := c.next.RecordGame(ctx, rec); err != nil {
		return err
	}
	if err := c.rdb.Del(ctx, leaderboardKey).Err(); err != nil {
		c.logger.Warn("leaderboard cache invalidation failed", "error", err)
	}
	return nil
}
