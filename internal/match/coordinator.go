// Package match runs the per-room game state machine. Each Coordinator owns
// one room's session and timers and serializes every mutation through a
// single goroutine, so player requests and timer firings never interleave.
package match

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/playperu/geoduel/internal/geoduel"
	"github.com/playperu/geoduel/internal/metrics"
)

// Rooms is the slice of the session registry a coordinator needs. The
// registry keeps room status and round number in step with the session.
type Rooms interface {
	// BeginMatch moves a full, waiting room to playing on behalf of
	// playerID and returns its current membership.
	BeginMatch(code, playerID string) (geoduel.Room, error)
	// SetRound and FinishMatch report false when the room is no longer
	// playing, which happens once the opponent has left.
	SetRound(code string, round int) bool
	FinishMatch(code string) bool
	ResetMatch(code string)
	Player(id string) (geoduel.Player, bool)
	CloseRoom(code, reason string)
}

type CityPicker interface {
	Pick(tier int) (geoduel.City, error)
}

type Config struct {
	RoundTimeLimit time.Duration
	ResultsDelay   time.Duration
	CleanupDelay   time.Duration
	RematchDelay   time.Duration
	VoteTimeout    time.Duration
	PersistTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		RoundTimeLimit: 30 * time.Second,
		ResultsDelay:   5 * time.Second,
		CleanupDelay:   5 * time.Minute,
		RematchDelay:   2 * time.Second,
		VoteTimeout:    60 * time.Second,
		PersistTimeout: 5 * time.Second,
	}
}

type Deps struct {
	Rooms     Rooms
	Cities    CityPicker
	Notifier  geoduel.Notifier
	Recorder  geoduel.Recorder
	Scheduler Scheduler
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Now       func() time.Time
}

const (
	triggerGuesses  = "guesses"
	triggerDeadline = "deadline"

	reasonExpired = "expired"
)

type Coordinator struct {
	code string
	cfg  Config

	rooms    Rooms
	cities   CityPicker
	notifier geoduel.Notifier
	recorder geoduel.Recorder
	sched    Scheduler
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time

	inbox    chan func()
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
	persist  sync.WaitGroup

	// Owned by the loop goroutine.
	room    geoduel.Room
	sess    *session
	timers  map[timerKind]Timer
	gens    map[timerKind]uint64
	stalled bool
}

// New starts a coordinator for room. Call Stop to tear it down.
func New(room geoduel.Room, deps Deps, cfg Config) *Coordinator {
	c := &Coordinator{
		code:     room.Code,
		cfg:      cfg,
		rooms:    deps.Rooms,
		cities:   deps.Cities,
		notifier: deps.Notifier,
		recorder: deps.Recorder,
		sched:    deps.Scheduler,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		now:      deps.Now,
		inbox:    make(chan func(), 16),
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
		room:     room,
		timers:   make(map[timerKind]Timer),
		gens:     make(map[timerKind]uint64),
	}
	if c.sched == nil {
		c.sched = SystemScheduler{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.logger = c.logger.With("room", room.Code)

	go c.loop()
	return c
}

func (c *Coordinator) loop() {
	defer close(c.exited)
	defer c.cancelAll()
	for {
		select {
		case fn := <-c.inbox:
			select {
			case <-c.done:
				return
			default:
			}
			fn()
		case <-c.done:
			return
		}
	}
}

// Stop tears the coordinator down and cancels every pending timer. It does
// not block and is safe to call more than once.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// Wait blocks until the loop has exited and in-flight persistence for
// finished games has returned. Stop must be called first. Records are only
// queued from the loop, so none can be added once it is gone.
func (c *Coordinator) Wait() {
	<-c.exited
	c.persist.Wait()
}

func (c *Coordinator) closedErr() error {
	return geoduel.Errorf(geoduel.ErrNotFound, "room %s is closed", c.code)
}

// post queues fn without waiting for it to run. Posts after Stop are dropped.
func (c *Coordinator) post(fn func()) {
	select {
	case c.inbox <- fn:
	case <-c.done:
	}
}

// call runs fn on the loop goroutine and returns its result.
func (c *Coordinator) call(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	select {
	case c.inbox <- func() { reply <- fn() }:
	case <-c.done:
		return c.closedErr()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-c.done:
		select {
		case err := <-reply:
			return err
		default:
			return c.closedErr()
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start begins a match. Either player may start once both slots are filled.
func (c *Coordinator) Start(ctx context.Context, playerID string) error {
	return c.call(ctx, func() error { return c.start(playerID) })
}

func (c *Coordinator) SubmitGuess(ctx context.Context, playerID string, lat, lng float64) error {
	return c.call(ctx, func() error { return c.guess(playerID, lat, lng) })
}

func (c *Coordinator) Vote(ctx context.Context, playerID string, vote bool) error {
	return c.call(ctx, func() error { return c.vote(playerID, vote) })
}

// State returns a snapshot of the session. A room that has not started a
// match reports the lobby phase.
func (c *Coordinator) State(ctx context.Context) (geoduel.GameState, error) {
	var st geoduel.GameState
	err := c.call(ctx, func() error {
		st = c.state()
		return nil
	})
	return st, err
}

// OpponentLeft abandons the current match if playerID was the opponent in
// it. The host is told and nothing is persisted.
func (c *Coordinator) OpponentLeft(playerID string) {
	c.post(func() { c.abandon(playerID) })
}

func (c *Coordinator) state() geoduel.GameState {
	if c.sess == nil {
		return newSession(c.room.RoundLimit, c.cfg.RoundTimeLimit).state(c.room)
	}
	return c.sess.state(c.room)
}

func (c *Coordinator) checkLive() error {
	if c.stalled {
		return geoduel.Errorf(geoduel.ErrInternal, "room %s is stalled", c.code)
	}
	return nil
}

func (c *Coordinator) slotOf(playerID string) (geoduel.Slot, error) {
	slot, ok := c.room.SlotOf(playerID)
	if !ok {
		return "", geoduel.Errorf(geoduel.ErrNotFound, "player %s is not in room %s", playerID, c.code)
	}
	return slot, nil
}

func (c *Coordinator) start(playerID string) error {
	if err := c.checkLive(); err != nil {
		return err
	}
	if c.sess != nil && c.sess.phase != geoduel.PhaseLobby {
		return geoduel.Errorf(geoduel.ErrWrongPhase, "cannot start a game during %s", c.sess.phase)
	}

	room, err := c.rooms.BeginMatch(c.code, playerID)
	if err != nil {
		return err
	}
	city, err := c.cities.Pick(room.Difficulty)
	if err != nil {
		c.rooms.ResetMatch(c.code)
		return geoduel.Errorf(geoduel.ErrInternal, "picking city: %v", err)
	}

	c.cancelAll()
	c.room = room
	c.sess = newSession(room.RoundLimit, c.cfg.RoundTimeLimit)
	if err := c.sess.beginRound(city, c.now()); err != nil {
		c.fail(err)
		return err
	}
	if !c.rooms.SetRound(c.code, c.sess.round) {
		c.abandon(c.room.OpponentID)
		return geoduel.Errorf(geoduel.ErrWrongPhase, "opponent left before the game started")
	}

	c.logger.Info("game started", "player", playerID, "rounds", room.RoundLimit, "difficulty", room.Difficulty)
	c.broadcast(geoduel.Event{Type: geoduel.EventGameStarted, Data: geoduel.GameStarted{GameState: c.state()}})
	c.announceRound()
	return nil
}

func (c *Coordinator) announceRound() {
	c.broadcast(geoduel.Event{Type: geoduel.EventRoundStarted, Data: geoduel.RoundStarted{
		City:        *c.sess.city,
		RoundNumber: c.sess.round,
		TimeLimit:   int(c.cfg.RoundTimeLimit / time.Second),
	}})
	c.schedule(timerDeadline, c.cfg.RoundTimeLimit)
}

func (c *Coordinator) guess(playerID string, lat, lng float64) error {
	if err := c.checkLive(); err != nil {
		return err
	}
	if c.sess == nil {
		return geoduel.Errorf(geoduel.ErrWrongPhase, "game has not started")
	}
	slot, err := c.slotOf(playerID)
	if err != nil {
		return err
	}

	complete, err := c.sess.submit(slot, lat, lng, c.now())
	if err != nil {
		return err
	}
	c.broadcast(geoduel.Event{Type: geoduel.EventGuessReceived, Data: geoduel.GuessReceived{PlayerID: playerID, HasGuessed: true}})

	if complete {
		c.cancel(timerDeadline)
		c.completeRound(triggerGuesses)
	}
	return nil
}

func (c *Coordinator) completeRound(trigger string) {
	res, err := c.sess.completeRound(c.now())
	if err != nil {
		c.fail(err)
		return
	}
	c.metrics.RoundCompleted(trigger)
	c.logger.Debug("round completed", "round", res.RoundNumber, "trigger", trigger,
		"host_score", res.HostScore, "opponent_score", res.OpponentScore)

	c.broadcast(geoduel.Event{Type: geoduel.EventRoundEnded, Data: geoduel.RoundEnded{Result: res, GameState: c.state()}})
	c.schedule(timerAdvance, c.cfg.ResultsDelay)
}

// advance leaves RoundResults for the next round or for GameOver.
func (c *Coordinator) advance() {
	if c.sess == nil || c.sess.phase != geoduel.PhaseRoundResults {
		return
	}
	if c.sess.finalRound() {
		c.finish()
		return
	}

	city, err := c.cities.Pick(c.room.Difficulty)
	if err != nil {
		c.fail(geoduel.Errorf(geoduel.ErrInternal, "picking city: %v", err))
		return
	}
	if err := c.sess.beginRound(city, c.now()); err != nil {
		c.fail(err)
		return
	}
	if !c.rooms.SetRound(c.code, c.sess.round) {
		c.abandon(c.room.OpponentID)
		return
	}
	c.announceRound()
}

func (c *Coordinator) finish() {
	winner, ok, err := c.sess.finish()
	if err != nil {
		c.fail(err)
		return
	}
	if !c.rooms.FinishMatch(c.code) {
		c.abandon(c.room.OpponentID)
		return
	}

	host, opponent := geoduel.Totals(c.sess.results)
	ended := geoduel.GameEnded{FinalScores: geoduel.FinalScores{Host: host, Opponent: opponent}}
	if ok {
		id := c.room.PlayerIn(winner)
		p, found := c.rooms.Player(id)
		if !found {
			p = geoduel.Player{ID: id, IsHost: winner == geoduel.SlotHost}
		}
		p = p.WithScores(c.sess.results, winner)
		ended.Winner = &p
	}

	c.metrics.GameFinished(!ok)
	c.logger.Info("game finished", "host_score", host, "opponent_score", opponent, "tie", !ok)
	c.broadcast(geoduel.Event{Type: geoduel.EventGameEnded, Data: ended})

	c.record()
	c.schedule(timerVote, c.cfg.VoteTimeout)
	c.schedule(timerCleanup, c.cfg.CleanupDelay)
}

// record hands the finished game to the recorder off the loop goroutine.
// Failures are logged and never reach players.
func (c *Coordinator) record() {
	if c.recorder == nil {
		return
	}

	rec := geoduel.GameRecord{
		RoomCode:    c.code,
		Host:        c.playerRecord(c.room.HostID),
		Opponent:    c.playerRecord(c.room.OpponentID),
		Difficulty:  c.room.Difficulty,
		TotalRounds: c.sess.totalRounds,
		StartedAt:   c.sess.startedAt,
		CompletedAt: c.now(),
		Rounds:      append([]geoduel.RoundResult(nil), c.sess.results...),
	}
	rec.HostTotal, rec.OpponentTotal = geoduel.Totals(rec.Rounds)
	if c.sess.winner != "" {
		id := c.room.PlayerIn(c.sess.winner)
		rec.WinnerID = &id
	}

	c.persist.Add(1)
	go func() {
		defer c.persist.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PersistTimeout)
		defer cancel()
		if err := c.recorder.RecordGame(ctx, rec); err != nil {
			c.metrics.PersistFailed()
			c.logger.Error("recording game", "error", err)
		}
	}()
}

func (c *Coordinator) playerRecord(id string) geoduel.PlayerRecord {
	rec := geoduel.PlayerRecord{ID: id}
	if p, ok := c.rooms.Player(id); ok {
		rec.Name = p.DisplayName
	}
	return rec
}

func (c *Coordinator) vote(playerID string, v bool) error {
	if err := c.checkLive(); err != nil {
		return err
	}
	if c.sess == nil {
		return geoduel.Errorf(geoduel.ErrWrongPhase, "game is not finished")
	}
	slot, err := c.slotOf(playerID)
	if err != nil {
		return err
	}

	all, err := c.sess.vote(slot, v)
	if err != nil {
		return err
	}
	c.broadcast(geoduel.Event{Type: geoduel.EventPlayAgainVote, Data: geoduel.PlayAgainVote{PlayerID: playerID, Vote: v}})

	if all {
		c.closeVoting()
	}
	return nil
}

// closeVoting resolves the play-again vote. Missing votes count as no.
func (c *Coordinator) closeVoting() {
	c.cancel(timerVote)
	if !c.sess.closeVoting() {
		c.logger.Info("rematch declined")
		c.broadcast(geoduel.Event{Type: geoduel.EventError, Data: geoduel.ErrorPayload{
			Reason: geoduel.ReasonNotAgreed,
			Code:   "not_agreed",
		}})
		return
	}

	c.cancel(timerCleanup)
	c.rooms.ResetMatch(c.code)
	c.sess = newSession(c.room.RoundLimit, c.cfg.RoundTimeLimit)
	c.metrics.Rematch()
	c.logger.Info("rematch agreed")

	c.broadcast(geoduel.Event{Type: geoduel.EventNewGameStarting, Data: geoduel.NewGameStarting{GameState: c.state()}})
	c.schedule(timerRematch, c.cfg.RematchDelay)
}

// abandon discards the match once the opponent is gone. It runs on the
// registry's OpponentLeft notice or when the registry refuses a status
// change; whichever comes first wins and the other is a no-op.
func (c *Coordinator) abandon(playerID string) {
	if c.sess == nil || playerID == "" || playerID != c.room.OpponentID {
		return
	}

	phase := c.sess.phase
	c.cancelAll()
	c.sess = nil
	c.room.OpponentID = ""
	c.rooms.ResetMatch(c.code)
	c.logger.Info("match abandoned", "player", playerID, "phase", phase)

	if host := c.room.HostID; host != "" {
		c.notifier.Notify(host, geoduel.Event{Type: geoduel.EventMatchAbandoned, Data: geoduel.PlayerLeft{PlayerID: playerID}})
	}
}

// fail stalls the room after an invariant breaks. Timers are cancelled and
// every later request is rejected as internal.
func (c *Coordinator) fail(err error) {
	c.logger.Error("room stalled", "error", err)
	c.stalled = true
	c.cancelAll()
	c.broadcast(geoduel.ErrorEvent(err))
}

func (c *Coordinator) onTimer(kind timerKind) {
	switch kind {
	case timerDeadline:
		if c.sess != nil && c.sess.phase == geoduel.PhasePlaying {
			c.completeRound(triggerDeadline)
		}
	case timerAdvance:
		c.advance()
	case timerVote:
		if c.sess != nil && c.sess.phase == geoduel.PhaseGameOver && !c.sess.votesClosed {
			c.closeVoting()
		}
	case timerCleanup:
		c.logger.Info("closing idle room")
		c.rooms.CloseRoom(c.code, reasonExpired)
	case timerRematch:
		if err := c.start(c.room.HostID); err != nil {
			c.logger.Warn("starting rematch", "error", err)
			c.broadcast(geoduel.ErrorEvent(err))
		}
	}
}

// schedule arms the timer of the given kind, replacing any pending one.
// A firing only takes effect if its generation is still current.
func (c *Coordinator) schedule(kind timerKind, d time.Duration) {
	c.cancel(kind)
	gen := c.gens[kind]
	c.timers[kind] = c.sched.AfterFunc(d, func() {
		c.post(func() { c.fire(kind, gen) })
	})
}

func (c *Coordinator) fire(kind timerKind, gen uint64) {
	if c.gens[kind] != gen {
		return
	}
	if _, ok := c.timers[kind]; !ok {
		return
	}
	delete(c.timers, kind)
	c.gens[kind]++
	if c.stalled {
		return
	}
	c.onTimer(kind)
}

func (c *Coordinator) cancel(kind timerKind) {
	if t, ok := c.timers[kind]; ok {
		t.Stop()
		delete(c.timers, kind)
	}
	c.gens[kind]++
}

func (c *Coordinator) cancelAll() {
	for _, kind := range []timerKind{timerDeadline, timerAdvance, timerVote, timerCleanup, timerRematch} {
		c.cancel(kind)
	}
}

func (c *Coordinator) broadcast(ev geoduel.Event) {
	for _, id := range []string{c.room.HostID, c.room.OpponentID} {
		if id != "" {
			c.notifier.Notify(id, ev)
		}
	}
}
