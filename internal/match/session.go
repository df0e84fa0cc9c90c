package match

import (
	"time"

	"github.com/playperu/geoduel/internal/geo"
	"github.com/playperu/geoduel/internal/geoduel"
)

// session is the single aggregate for one match. It is only touched by the
// owning Coordinator's loop goroutine and holds no timers of its own.
type session struct {
	phase       geoduel.Phase
	round       int
	totalRounds int
	timeLimit   time.Duration

	city         *geoduel.City
	roundStarted time.Time
	deadline     time.Time
	guesses      map[geoduel.Slot]*geoduel.Guess
	results      []geoduel.RoundResult

	winner      geoduel.Slot
	votes       map[geoduel.Slot]bool
	votesClosed bool

	startedAt time.Time
}

func newSession(totalRounds int, timeLimit time.Duration) *session {
	return &session{
		phase:       geoduel.PhaseLobby,
		totalRounds: totalRounds,
		timeLimit:   timeLimit,
		guesses:     make(map[geoduel.Slot]*geoduel.Guess, len(geoduel.Slots)),
		votes:       make(map[geoduel.Slot]bool, len(geoduel.Slots)),
	}
}

// beginRound moves Lobby or RoundResults into Playing for the next round.
func (s *session) beginRound(city geoduel.City, now time.Time) error {
	switch s.phase {
	case geoduel.PhaseLobby:
		s.startedAt = now
	case geoduel.PhaseRoundResults:
		if s.round >= s.totalRounds {
			return geoduel.Errorf(geoduel.ErrInternal, "round %d is the last of %d", s.round, s.totalRounds)
		}
	default:
		return geoduel.Errorf(geoduel.ErrWrongPhase, "cannot start a round during %s", s.phase)
	}

	s.round++
	s.city = &city
	s.roundStarted = now
	s.deadline = now.Add(s.timeLimit)
	clear(s.guesses)
	s.phase = geoduel.PhasePlaying
	return nil
}

// submit stores a guess for slot and reports whether every slot has now
// guessed. Scoring happens at round completion.
func (s *session) submit(slot geoduel.Slot, lat, lng float64, now time.Time) (bool, error) {
	if s.phase != geoduel.PhasePlaying {
		return false, geoduel.Errorf(geoduel.ErrWrongPhase, "game is not in playing phase")
	}
	if !geo.ValidCoordinates(lat, lng) {
		return false, geoduel.Errorf(geoduel.ErrInvalidArgument,
			"coordinates must be within -90..90 latitude and -180..180 longitude")
	}
	if _, ok := s.guesses[slot]; ok {
		return false, geoduel.Errorf(geoduel.ErrAlreadyGuessed, "round %d", s.round)
	}

	s.guesses[slot] = &geoduel.Guess{Lat: lat, Lng: lng, SubmittedAt: now}
	return len(s.guesses) == len(geoduel.Slots), nil
}

func (s *session) completeRound(now time.Time) (geoduel.RoundResult, error) {
	if s.phase != geoduel.PhasePlaying {
		return geoduel.RoundResult{}, geoduel.Errorf(geoduel.ErrWrongPhase, "round %d is not in progress", s.round)
	}
	if s.city == nil {
		return geoduel.RoundResult{}, geoduel.Errorf(geoduel.ErrInternal, "round %d has no current city", s.round)
	}

	target := geo.Point{Lat: s.city.Lat, Lng: s.city.Lng}
	res := geoduel.RoundResult{
		RoundNumber: s.round,
		City:        *s.city,
		CompletedAt: now,
	}
	for _, slot := range geoduel.Slots {
		g, ok := s.guesses[slot]
		if !ok {
			continue
		}
		scored := *g
		scored.DistanceKm, scored.Score = geo.Score(geo.Point{Lat: g.Lat, Lng: g.Lng}, target)
		scored.Quality = string(geo.QualityOf(scored.DistanceKm))
		if slot == geoduel.SlotHost {
			res.HostGuess, res.HostScore = &scored, scored.Score
		} else {
			res.OpponentGuess, res.OpponentScore = &scored, scored.Score
		}
	}

	s.results = append(s.results, res)
	s.phase = geoduel.PhaseRoundResults
	return res, nil
}

func (s *session) finalRound() bool { return s.round >= s.totalRounds }

// finish moves RoundResults to GameOver and settles the winner.
func (s *session) finish() (geoduel.Slot, bool, error) {
	if s.phase != geoduel.PhaseRoundResults || !s.finalRound() {
		return "", false, geoduel.Errorf(geoduel.ErrInternal, "cannot finish during %s of round %d/%d", s.phase, s.round, s.totalRounds)
	}
	winner, ok := geoduel.Winner(s.results)
	s.winner = winner
	s.phase = geoduel.PhaseGameOver
	s.city = nil
	clear(s.votes)
	s.votesClosed = false
	return winner, ok, nil
}

// vote records a play-again vote and reports whether every slot has voted.
// A slot may change its vote until voting closes.
func (s *session) vote(slot geoduel.Slot, v bool) (bool, error) {
	if s.phase != geoduel.PhaseGameOver {
		return false, geoduel.Errorf(geoduel.ErrWrongPhase, "game is not finished")
	}
	if s.votesClosed {
		return false, geoduel.Errorf(geoduel.ErrWrongPhase, "play-again voting is closed")
	}
	s.votes[slot] = v
	return len(s.votes) == len(geoduel.Slots), nil
}

// closeVoting counts missing votes as no and reports whether everyone agreed.
func (s *session) closeVoting() bool {
	s.votesClosed = true
	for _, slot := range geoduel.Slots {
		if !s.votes[slot] {
			return false
		}
	}
	return true
}

func (s *session) state(room geoduel.Room) geoduel.GameState {
	st := geoduel.GameState{
		Phase:          s.phase,
		CurrentRound:   s.round,
		TotalRounds:    s.totalRounds,
		RoundTimeLimit: int(s.timeLimit / time.Second),
		Guessed:        make(map[geoduel.Slot]bool, len(geoduel.Slots)),
		RoundResults:   append([]geoduel.RoundResult(nil), s.results...),
		Scores:         make(map[geoduel.Slot]int, len(geoduel.Slots)),
		PlayAgainVotes: make(map[geoduel.Slot]*bool, len(geoduel.Slots)),
	}
	if s.city != nil {
		c := *s.city
		st.CurrentCity = &c
	}
	if s.phase == geoduel.PhasePlaying {
		d := s.deadline
		st.RoundDeadline = &d
	}

	host, opponent := geoduel.Totals(s.results)
	st.Scores[geoduel.SlotHost] = host
	st.Scores[geoduel.SlotOpponent] = opponent

	for _, slot := range geoduel.Slots {
		_, st.Guessed[slot] = s.guesses[slot]
		st.PlayAgainVotes[slot] = nil
		if v, ok := s.votes[slot]; ok && s.phase == geoduel.PhaseGameOver {
			st.PlayAgainVotes[slot] = &v
		}
	}

	if s.phase == geoduel.PhaseGameOver && s.winner != "" {
		id := room.PlayerIn(s.winner)
		st.Winner = &id
	}
	return st
}
