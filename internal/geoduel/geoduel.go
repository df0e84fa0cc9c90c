// Package geoduel defines the core domain types shared by the registry,
// the match coordinator, the store and the transport. It has no external
// dependencies.
package geoduel

import (
	"context"
	"time"
)

const (
	MinDifficulty = 1
	MaxDifficulty = 5
	MinRounds     = 1
	MaxRounds     = 10

	RoomCodeLength = 8
	MaxNameLength  = 20
)

type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

type Phase string

const (
	PhaseLobby        Phase = "lobby"
	PhasePlaying      Phase = "playing"
	PhaseRoundResults Phase = "roundResults"
	PhaseGameOver     Phase = "gameOver"
)

// Slot is the stable key a player occupies within a room.
type Slot string

const (
	SlotHost     Slot = "host"
	SlotOpponent Slot = "opponent"
)

var Slots = [...]Slot{SlotHost, SlotOpponent}

type ConnectionStatus string

const (
	Connected    ConnectionStatus = "connected"
	Disconnected ConnectionStatus = "disconnected"
)

type Room struct {
	Code          string     `json:"id"`
	HostID        string     `json:"hostId"`
	OpponentID    string     `json:"opponentId,omitempty"`
	Difficulty    int        `json:"difficulty"`
	RoundLimit    int        `json:"roundLimit"`
	Status        RoomStatus `json:"status"`
	CurrentRound  int        `json:"currentRound"`
	ShareableLink string     `json:"shareableLink"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// SlotOf reports which slot playerID occupies in the room.
func (r Room) SlotOf(playerID string) (Slot, bool) {
	switch {
	case playerID == "":
		return "", false
	case playerID == r.HostID:
		return SlotHost, true
	case playerID == r.OpponentID:
		return SlotOpponent, true
	}
	return "", false
}

func (r Room) PlayerIn(s Slot) string {
	if s == SlotHost {
		return r.HostID
	}
	return r.OpponentID
}

type Player struct {
	ID               string           `json:"id"`
	DisplayName      string           `json:"name"`
	IsHost           bool             `json:"isHost"`
	ConnectionStatus ConnectionStatus `json:"connectionStatus"`
	Scores           []int            `json:"scores"`
	TotalScore       int              `json:"totalScore"`
}

// WithScores returns a copy of p with per-round scores taken from results.
// TotalScore is always the sum of Scores.
func (p Player) WithScores(results []RoundResult, s Slot) Player {
	p.Scores = make([]int, 0, len(results))
	p.TotalScore = 0
	for _, r := range results {
		sc := r.ScoreFor(s)
		p.Scores = append(p.Scores, sc)
		p.TotalScore += sc
	}
	return p
}

type City struct {
	Name       string  `json:"name"`
	Country    string  `json:"country"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Difficulty int     `json:"difficulty"`
}

type Guess struct {
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	SubmittedAt time.Time `json:"submittedAt"`
	DistanceKm  float64   `json:"distance"`
	Score       int       `json:"score"`
	// Quality is set once the guess is scored.
	Quality     string    `json:"quality,omitempty"`
}

// RoundResult is immutable once appended to a session. A nil guess means
// the player did not answer before the deadline.
type RoundResult struct {
	RoundNumber   int       `json:"roundNumber"`
	City          City      `json:"city"`
	HostGuess     *Guess    `json:"hostGuess"`
	OpponentGuess *Guess    `json:"opponentGuess"`
	HostScore     int       `json:"hostScore"`
	OpponentScore int       `json:"opponentScore"`
	CompletedAt   time.Time `json:"completedAt"`
}

func (r RoundResult) ScoreFor(s Slot) int {
	if s == SlotHost {
		return r.HostScore
	}
	return r.OpponentScore
}

func (r RoundResult) GuessFor(s Slot) *Guess {
	if s == SlotHost {
		return r.HostGuess
	}
	return r.OpponentGuess
}

// Totals sums per-round scores for both slots.
func Totals(results []RoundResult) (host, opponent int) {
	for _, r := range results {
		host += r.HostScore
		opponent += r.OpponentScore
	}
	return host, opponent
}

// Winner compares summed scores. Equal totals yield no winner.
func Winner(results []RoundResult) (Slot, bool) {
	host, opponent := Totals(results)
	switch {
	case host > opponent:
		return SlotHost, true
	case opponent > host:
		return SlotOpponent, true
	}
	return "", false
}

// GameState is the client-facing snapshot of a room's session.
type GameState struct {
	Phase          Phase          `json:"phase"`
	CurrentRound   int            `json:"currentRound"`
	TotalRounds    int            `json:"totalRounds"`
	CurrentCity    *City          `json:"currentCity"`
	RoundTimeLimit int            `json:"roundTimeLimit"`
	RoundDeadline  *time.Time     `json:"roundDeadline,omitempty"`
	Guessed        map[Slot]bool  `json:"guessed"`
	RoundResults   []RoundResult  `json:"roundResults"`
	Scores         map[Slot]int   `json:"scores"`
	Winner         *string        `json:"winner"`
	PlayAgainVotes map[Slot]*bool `json:"playAgainVotes"`
}

// Notifier delivers an event to a single player. Implementations must not
// block the caller.
type Notifier interface {
	Notify(playerID string, ev Event)
}

// Recorder is the persistence sink for finished games.
type Recorder interface {
	RecordGame(ctx context.Context, rec GameRecord) error
}

type PlayerRecord struct {
	ID   string
	Name string
}

type GameRecord struct {
	RoomCode      string
	Host          PlayerRecord
	Opponent      PlayerRecord
	Difficulty    int
	TotalRounds   int
	HostTotal     int
	OpponentTotal int
	WinnerID      *string
	StartedAt     time.Time
	CompletedAt   time.Time
	Rounds        []RoundResult
}
