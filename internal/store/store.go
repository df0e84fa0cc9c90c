// Package store persists finished games and serves the stats read models.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/playperu/geoduel/internal/geo"
	"github.com/playperu/geoduel/internal/geoduel"
)

var ErrNotFound = errors.New("not found")

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type PlayerStats struct {
	PlayerID        string    `json:"playerId"`
	PlayerName      string    `json:"playerName"`
	GamesPlayed     int       `json:"gamesPlayed"`
	GamesWon        int       `json:"gamesWon"`
	TotalScore      int       `json:"totalScore"`
	BestRoundScore  int       `json:"bestRoundScore"`
	AverageAccuracy float64   `json:"averageAccuracy"`
	LastPlayed      time.Time `json:"lastPlayed"`
}

type GameSummary struct {
	ID                 int64     `json:"id"`
	RoomCode           string    `json:"roomCode"`
	HostPlayerID       string    `json:"hostPlayerId"`
	HostPlayerName     string    `json:"hostPlayerName"`
	OpponentPlayerID   string    `json:"opponentPlayerId"`
	OpponentPlayerName string    `json:"opponentPlayerName"`
	Difficulty         int       `json:"difficulty"`
	TotalRounds        int       `json:"totalRounds"`
	HostTotalScore     int       `json:"hostTotalScore"`
	OpponentTotalScore int       `json:"opponentTotalScore"`
	WinnerID           *string   `json:"winnerId"`
	StartedAt          time.Time `json:"startedAt"`
	CompletedAt        time.Time `json:"completedAt"`
}

// ClampLimit maps a requested page size onto [1, MaxLimit].
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// RecordGame writes the game, its rounds and both players' stats in one
// transaction.
func (s *SQLiteStore) RecordGame(ctx context.Context, rec geoduel.GameRecord) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var winner sql.NullString
	if rec.WinnerID != nil {
		winner = sql.NullString{String: *rec.WinnerID, Valid: true}
	}

	var gameID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO game_history (
			room_code, host_player_id, host_player_name, opponent_player_id, opponent_player_name,
			difficulty, total_rounds, host_total_score, opponent_total_score, winner_id,
			started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, rec.RoomCode, rec.Host.ID, rec.Host.Name, rec.Opponent.ID, rec.Opponent.Name,
		rec.Difficulty, rec.TotalRounds, rec.HostTotal, rec.OpponentTotal, winner,
		formatTime(rec.StartedAt), formatTime(rec.CompletedAt),
	).Scan(&gameID)
	if err != nil {
		return fmt.Errorf("inserting game: %w", err)
	}

	for _, r := range rec.Rounds {
		hLat, hLng, hDist := guessColumns(r.HostGuess)
		oLat, oLng, oDist := guessColumns(r.OpponentGuess)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO round_history (
				game_id, round_number, city_name, city_country, city_lat, city_lng,
				host_guess_lat, host_guess_lng, host_distance, host_score,
				opponent_guess_lat, opponent_guess_lng, opponent_distance, opponent_score,
				completed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, gameID, r.RoundNumber, r.City.Name, r.City.Country, r.City.Lat, r.City.Lng,
			hLat, hLng, hDist, r.HostScore,
			oLat, oLng, oDist, r.OpponentScore,
			formatTime(r.CompletedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting round %d: %w", r.RoundNumber, err)
		}
	}

	for _, slot := range geoduel.Slots {
		if err := upsertStats(ctx, tx, rec, slot); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func guessColumns(g *geoduel.Guess) (lat, lng, dist sql.NullFloat64) {
	if g == nil {
		return
	}
	return sql.NullFloat64{Float64: g.Lat, Valid: true},
		sql.NullFloat64{Float64: g.Lng, Valid: true},
		sql.NullFloat64{Float64: g.DistanceKm, Valid: true}
}

func upsertStats(ctx context.Context, tx *sql.Tx, rec geoduel.GameRecord, slot geoduel.Slot) error {
	player := rec.Host
	total := rec.HostTotal
	if slot == geoduel.SlotOpponent {
		player = rec.Opponent
		total = rec.OpponentTotal
	}

	won := 0
	if rec.WinnerID != nil && *rec.WinnerID == player.ID {
		won = 1
	}
	best := 0
	for _, r := range rec.Rounds {
		best = max(best, r.ScoreFor(slot))
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO player_stats (
			player_id, player_name, games_played, games_won, total_score,
			best_round_score, average_accuracy, last_played
		) VALUES (?, ?, 1, ?, ?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			player_name      = excluded.player_name,
			games_played     = player_stats.games_played + 1,
			games_won        = player_stats.games_won + excluded.games_won,
			total_score      = player_stats.total_score + excluded.total_score,
			best_round_score = MAX(player_stats.best_round_score, excluded.best_round_score),
			average_accuracy = (player_stats.average_accuracy * player_stats.games_played + excluded.average_accuracy)
			                   / (player_stats.games_played + 1),
			last_played      = excluded.last_played
	`, player.ID, player.Name, won, total, best, gameAccuracy(rec.Rounds, slot), formatTime(rec.CompletedAt))
	if err != nil {
		return fmt.Errorf("updating stats for %s: %w", player.ID, err)
	}
	return nil
}

// gameAccuracy is the accuracy of the mean distance over the rounds the
// player answered. A player who never answered scores zero.
func gameAccuracy(rounds []geoduel.RoundResult, slot geoduel.Slot) float64 {
	var sum float64
	n := 0
	for _, r := range rounds {
		if g := r.GuessFor(slot); g != nil {
			sum += g.DistanceKm
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(geo.Accuracy(sum / float64(n)))
}

const statsColumns = `player_id, player_name, games_played, games_won, total_score,
	best_round_score, average_accuracy, last_played`

type scanner interface {
	Scan(dest ...any) error
}

func scanStats(row scanner) (PlayerStats, error) {
	var ps PlayerStats
	var last string
	err := row.Scan(&ps.PlayerID, &ps.PlayerName, &ps.GamesPlayed, &ps.GamesWon, &ps.TotalScore,
		&ps.BestRoundScore, &ps.AverageAccuracy, &last)
	if err != nil {
		return ps, err
	}
	ps.LastPlayed, err = parseTime(last)
	return ps, err
}

// Leaderboard ranks players by wins, then total score, then accuracy.
func (s *SQLiteStore) Leaderboard(ctx context.Context, limit int) ([]PlayerStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+statsColumns+`
		FROM player_stats
		ORDER BY games_won DESC, total_score DESC, average_accuracy DESC
		LIMIT ?
	`, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	out := []PlayerStats{}
	for rows.Next() {
		ps, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning leaderboard: %w", err)
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) PlayerStats(ctx context.Context, playerID string) (PlayerStats, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+statsColumns+` FROM player_stats WHERE player_id = ?`, playerID)
	ps, err := scanStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ps, ErrNotFound
	}
	return ps, err
}

// PlayerGames lists the player's most recent games first.
func (s *SQLiteStore) PlayerGames(ctx context.Context, playerID string, limit int) ([]GameSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_code, host_player_id, host_player_name, opponent_player_id, opponent_player_name,
			difficulty, total_rounds, host_total_score, opponent_total_score, winner_id,
			started_at, completed_at
		FROM game_history
		WHERE host_player_id = ? OR opponent_player_id = ?
		ORDER BY completed_at DESC, id DESC
		LIMIT ?
	`, playerID, playerID, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying games: %w", err)
	}
	defer rows.Close()

	out := []GameSummary{}
	for rows.Next() {
		var g GameSummary
		var winner sql.NullString
		var started, completed string
		err := rows.Scan(&g.ID, &g.RoomCode, &g.HostPlayerID, &g.HostPlayerName, &g.OpponentPlayerID, &g.OpponentPlayerName,
			&g.Difficulty, &g.TotalRounds, &g.HostTotalScore, &g.OpponentTotalScore, &winner,
			&started, &completed)
		if err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		if winner.Valid {
			g.WinnerID = &winner.String
		}
		if g.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if g.CompletedAt, err = parseTime(completed); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
