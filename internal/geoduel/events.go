package geoduel

// Event is one outbound message on a player's channel.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Outbound event names.
const (
	EventRoomCreated     = "room-created"
	EventRoomJoined      = "room-joined"
	EventRoomLeft        = "room-left"
	EventRoomClosed      = "room-closed"
	EventPlayerJoined    = "player-joined"
	EventPlayerLeft      = "player-left"
	EventGameStarted     = "game-started"
	EventRoundStarted    = "round-started"
	EventGuessReceived   = "guess-received"
	EventRoundEnded      = "round-ended"
	EventGameEnded       = "game-ended"
	EventPlayAgainVote   = "play-again-vote"
	EventNewGameStarting = "new-game-starting"
	EventMatchAbandoned  = "match-abandoned"
	EventError           = "error"
)

// ReasonNotAgreed is sent when a rematch vote does not pass.
const ReasonNotAgreed = "not all players agreed"

type RoomCreated struct {
	Room          Room   `json:"room"`
	Player        Player `json:"player"`
	ShareableLink string `json:"shareableLink"`
}

type RoomJoined struct {
	Room   Room   `json:"room"`
	Player Player `json:"player"`
	IsHost bool   `json:"isHost"`
}

type PlayerJoined struct {
	Opponent Player `json:"opponent"`
}

type PlayerLeft struct {
	PlayerID string `json:"playerId"`
}

type RoomClosed struct {
	RoomID string `json:"roomId"`
	Reason string `json:"reason"`
}

type GameStarted struct {
	GameState GameState `json:"gameState"`
}

type RoundStarted struct {
	City        City `json:"city"`
	RoundNumber int  `json:"roundNumber"`
	TimeLimit   int  `json:"timeLimit"`
}

type GuessReceived struct {
	PlayerID   string `json:"playerId"`
	HasGuessed bool   `json:"hasGuessed"`
}

type RoundEnded struct {
	Result    RoundResult `json:"result"`
	GameState GameState   `json:"gameState"`
}

type FinalScores struct {
	Host     int `json:"host"`
	Opponent int `json:"opponent"`
}

type GameEnded struct {
	Winner      *Player     `json:"winner"`
	FinalScores FinalScores `json:"finalScores"`
}

type PlayAgainVote struct {
	PlayerID string `json:"playerId"`
	Vote     bool   `json:"vote"`
}

type NewGameStarting struct {
	GameState GameState `json:"gameState"`
}

type ErrorPayload struct {
	Reason string `json:"reason"`
	Code   string `json:"code"`
}

// ErrorEvent converts err to a client-facing error event. Internal and
// unclassified errors are reported generically.
func ErrorEvent(err error) Event {
	switch KindOf(err) {
	case KindValidation, KindConflict, KindNotFound:
		return Event{Type: EventError, Data: ErrorPayload{Reason: err.Error(), Code: CodeOf(err)}}
	}
	return Event{Type: EventError, Data: ErrorPayload{Reason: ErrInternal.Message, Code: ErrInternal.Code}}
}
