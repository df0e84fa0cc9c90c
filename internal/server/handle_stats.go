package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/geoduel/internal/store"
)

// Stats serves the read side of the game history.
type Stats interface {
	Leaderboard(ctx context.Context, limit int) ([]store.PlayerStats, error)
	PlayerStats(ctx context.Context, playerID string) (store.PlayerStats, error)
	PlayerGames(ctx context.Context, playerID string, limit int) ([]store.GameSummary, error)
}

// LimitQuery is the page size accepted by the list endpoints.
type LimitQuery struct {
	Limit int `query:"limit" description:"Number of rows, 1 to 100. Defaults to 10."`
}

// PlayerPath identifies a player in stats routes.
type PlayerPath struct {
	PlayerID string `path:"playerID"`
}

type PlayerGamesRequest struct {
	PlayerPath
	LimitQuery
}

// parseLimit reads ?limit. Missing means the default, garbage is rejected.
func parseLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return store.DefaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return store.ClampLimit(n), true
}

func handleLeaderboard(logger *slog.Logger, stats Stats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		board, err := stats.Leaderboard(r.Context(), limit)
		if err != nil {
			logger.Error("loading leaderboard", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, board)
	}
}

func handlePlayerStats(logger *slog.Logger, stats Stats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "playerID")
		ps, err := stats.PlayerStats(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "player not found")
			return
		}
		if err != nil {
			logger.Error("loading player stats", "player", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, ps)
	}
}

func handlePlayerGames(logger *slog.Logger, stats Stats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		id := chi.URLParam(r, "playerID")
		games, err := stats.PlayerGames(r.Context(), id, limit)
		if err != nil {
			logger.Error("loading player games", "player", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, games)
	}
}
