// Package registry keeps the in-memory index of rooms, players and
// connections, and owns one match coordinator per room.
package registry

import (
	"cmp"
	"context"
	"crypto/rand"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/geoduel/internal/geoduel"
	"github.com/playperu/geoduel/internal/match"
	"github.com/playperu/geoduel/internal/metrics"
)

// Publisher delivers an event to one connection. It must not block.
type Publisher interface {
	Publish(connID string, ev geoduel.Event)
}

type Config struct {
	FrontendURL string
	MaxRooms    int
	Match       match.Config
}

type Deps struct {
	Publisher Publisher
	Cities    match.CityPicker
	Recorder  geoduel.Recorder
	Scheduler match.Scheduler
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Now       func() time.Time
	// NewCode overrides room code generation, mostly for tests.
	NewCode func() string
}

const (
	reasonHostLeft = "host left"
	reasonShutdown = "server shutting down"
)

type roomEntry struct {
	room  geoduel.Room
	coord *match.Coordinator
}

type playerEntry struct {
	player geoduel.Player
	room   string
	conn   string
}

type delivery struct {
	conn string
	ev   geoduel.Event
}

type Registry struct {
	cfg     Config
	pub     Publisher
	cities  match.CityPicker
	rec     geoduel.Recorder
	sched   match.Scheduler
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
	newCode func() string

	mu      sync.RWMutex
	rooms   map[string]*roomEntry
	players map[string]*playerEntry
	conns   map[string]string // conn ID -> player ID
}

func New(cfg Config, deps Deps) *Registry {
	r := &Registry{
		cfg:     cfg,
		pub:     deps.Publisher,
		cities:  deps.Cities,
		rec:     deps.Recorder,
		sched:   deps.Scheduler,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     deps.Now,
		newCode: deps.NewCode,
		rooms:   make(map[string]*roomEntry),
		players: make(map[string]*playerEntry),
		conns:   make(map[string]string),
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newCode == nil {
		r.newCode = newRoomCode
	}
	return r
}

// newRoomCode returns eight characters of crypto/rand base32 text.
func newRoomCode() string {
	return rand.Text()[:geoduel.RoomCodeLength]
}

func (r *Registry) deliver(ds []delivery) {
	for _, d := range ds {
		r.pub.Publish(d.conn, d.ev)
	}
}

func defaultName(playerID string) string {
	return "Player " + playerID[:6]
}

// roomCodePattern matches a normalized room code.
var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

func cleanName(name, playerID string) (string, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) > geoduel.MaxNameLength {
		return "", geoduel.Errorf(geoduel.ErrInvalidArgument, "name must be at most %d characters", geoduel.MaxNameLength)
	}
	if name == "" {
		return defaultName(playerID), nil
	}
	return name, nil
}

// CreateRoom opens a room with the connection's player as host.
func (r *Registry) CreateRoom(connID string, difficulty, roundLimit int, name string) (geoduel.Room, geoduel.Player, error) {
	if difficulty < geoduel.MinDifficulty || difficulty > geoduel.MaxDifficulty {
		return geoduel.Room{}, geoduel.Player{}, geoduel.Errorf(geoduel.ErrInvalidArgument,
			"difficulty must be between %d and %d", geoduel.MinDifficulty, geoduel.MaxDifficulty)
	}
	if roundLimit < geoduel.MinRounds || roundLimit > geoduel.MaxRounds {
		return geoduel.Room{}, geoduel.Player{}, geoduel.Errorf(geoduel.ErrInvalidArgument,
			"round limit must be between %d and %d", geoduel.MinRounds, geoduel.MaxRounds)
	}
	playerID := uuid.NewString()
	name, err := cleanName(name, playerID)
	if err != nil {
		return geoduel.Room{}, geoduel.Player{}, err
	}

	r.mu.Lock()
	if _, ok := r.conns[connID]; ok {
		r.mu.Unlock()
		return geoduel.Room{}, geoduel.Player{}, geoduel.Errorf(geoduel.ErrAlreadyBound, "connection is already in a room")
	}
	if r.cfg.MaxRooms > 0 && len(r.rooms) >= r.cfg.MaxRooms {
		r.mu.Unlock()
		return geoduel.Room{}, geoduel.Player{}, geoduel.Errorf(geoduel.ErrUnavailable, "room limit of %d reached", r.cfg.MaxRooms)
	}

	code := r.newCode()
	for r.rooms[code] != nil {
		code = r.newCode()
	}
	now := r.now()
	room := geoduel.Room{
		Code:          code,
		HostID:        playerID,
		Difficulty:    difficulty,
		RoundLimit:    roundLimit,
		Status:        geoduel.RoomWaiting,
		ShareableLink: strings.TrimRight(r.cfg.FrontendURL, "/") + "/multiplayer/join/" + code,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	player := geoduel.Player{
		ID:               playerID,
		DisplayName:      name,
		IsHost:           true,
		ConnectionStatus: geoduel.Connected,
		Scores:           []int{},
	}

	r.rooms[code] = &roomEntry{room: room, coord: r.newCoordinator(room)}
	r.players[playerID] = &playerEntry{player: player, room: code, conn: connID}
	r.conns[connID] = playerID
	r.mu.Unlock()

	r.metrics.RoomOpened()
	r.logger.Info("room created", "room", code, "player", playerID, "difficulty", difficulty, "rounds", roundLimit)
	r.deliver([]delivery{{conn: connID, ev: geoduel.Event{
		Type: geoduel.EventRoomCreated,
		Data: geoduel.RoomCreated{Room: room, Player: player, ShareableLink: room.ShareableLink},
	}}})
	return room, player, nil
}

func (r *Registry) newCoordinator(room geoduel.Room) *match.Coordinator {
	return match.New(room, match.Deps{
		Rooms:     r,
		Cities:    r.cities,
		Notifier:  r,
		Recorder:  r.rec,
		Scheduler: r.sched,
		Metrics:   r.metrics,
		Logger:    r.logger,
		Now:       r.now,
	}, r.cfg.Match)
}

// JoinRoom binds the connection to the opponent slot of a waiting room.
func (r *Registry) JoinRoom(connID, code, name string) (geoduel.Room, geoduel.Player, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return geoduel.Room{}, geoduel.Player{}, geoduel.Errorf(geoduel.ErrInvalidArgument, "room code is required")
	}
	if !roomCodePattern.MatchString(code) {
		return geoduel.Room{}, geoduel.Player{}, geoduel.Errorf(geoduel.ErrInvalidArgument,
			"room code must be %d letters or digits", geoduel.RoomCodeLength)
	}
	// Only the host gets a generated name.
	if strings.TrimSpace(name) == "" {
		return geoduel.Room{}, geoduel.Player{}, geoduel.Errorf(geoduel.ErrInvalidArgument, "player name is required")
	}
	playerID := uuid.NewString()
	name, err := cleanName(name, playerID)
	if err != nil {
		return geoduel.Room{}, geoduel.Player{}, err
	}

	r.mu.Lock()
	entry, ok := r.rooms[code]
	switch {
	case !ok:
		err = geoduel.Errorf(geoduel.ErrNotFound, "room %s", code)
	case entry.room.OpponentID != "":
		err = geoduel.Errorf(geoduel.ErrRoomFull, "room %s", code)
	case entry.room.Status != geoduel.RoomWaiting:
		err = geoduel.Errorf(geoduel.ErrWrongPhase, "room %s is %s", code, entry.room.Status)
	default:
		if _, bound := r.conns[connID]; bound {
			err = geoduel.Errorf(geoduel.ErrAlreadyBound, "connection is already in a room")
		}
	}
	if err != nil {
		r.mu.Unlock()
		return geoduel.Room{}, geoduel.Player{}, err
	}

	player := geoduel.Player{
		ID:               playerID,
		DisplayName:      name,
		ConnectionStatus: geoduel.Connected,
		Scores:           []int{},
	}
	entry.room.OpponentID = playerID
	entry.room.UpdatedAt = r.now()
	room := entry.room
	r.players[playerID] = &playerEntry{player: player, room: code, conn: connID}
	r.conns[connID] = playerID

	ds := []delivery{{conn: connID, ev: geoduel.Event{
		Type: geoduel.EventRoomJoined,
		Data: geoduel.RoomJoined{Room: room, Player: player, IsHost: false},
	}}}
	if host, ok := r.players[room.HostID]; ok {
		ds = append(ds, delivery{conn: host.conn, ev: geoduel.Event{
			Type: geoduel.EventPlayerJoined,
			Data: geoduel.PlayerJoined{Opponent: player},
		}})
	}
	r.mu.Unlock()

	r.logger.Info("room joined", "room", code, "player", playerID)
	r.deliver(ds)
	return room, player, nil
}

// LeaveRoom removes the connection's player from roomID. An empty roomID
// means whatever room the connection is in.
func (r *Registry) LeaveRoom(connID, roomID string) error {
	r.mu.RLock()
	playerID, ok := r.conns[connID]
	var inRoom string
	if ok {
		inRoom = r.players[playerID].room
	}
	r.mu.RUnlock()

	if !ok {
		return geoduel.Errorf(geoduel.ErrNotFound, "connection is not in a room")
	}
	if roomID != "" && !strings.EqualFold(roomID, inRoom) {
		return geoduel.Errorf(geoduel.ErrNotFound, "not a member of room %s", roomID)
	}
	r.Leave(playerID)
	return nil
}

// Disconnect releases whatever the connection was bound to. A disconnect
// is handled exactly like leaving.
func (r *Registry) Disconnect(connID string) {
	r.mu.RLock()
	playerID, ok := r.conns[connID]
	r.mu.RUnlock()
	if ok {
		r.Leave(playerID)
	}
}

// Leave removes a player. A departing host closes the room; a departing
// opponent frees the slot and abandons any match in progress.
func (r *Registry) Leave(playerID string) {
	r.mu.Lock()
	pe, ok := r.players[playerID]
	if !ok {
		r.mu.Unlock()
		return
	}
	entry := r.rooms[pe.room]
	ds := []delivery{{conn: pe.conn, ev: geoduel.Event{Type: geoduel.EventRoomLeft, Data: geoduel.PlayerLeft{PlayerID: playerID}}}}
	r.unbind(playerID)

	if entry == nil {
		r.mu.Unlock()
		r.deliver(ds)
		return
	}

	if entry.room.HostID == playerID {
		if opp, ok := r.players[entry.room.OpponentID]; ok {
			ds = append(ds,
				delivery{conn: opp.conn, ev: geoduel.Event{Type: geoduel.EventPlayerLeft, Data: geoduel.PlayerLeft{PlayerID: playerID}}},
				delivery{conn: opp.conn, ev: geoduel.Event{Type: geoduel.EventRoomClosed, Data: geoduel.RoomClosed{RoomID: entry.room.Code, Reason: reasonHostLeft}}},
			)
		}
		r.removeRoom(entry)
		r.mu.Unlock()

		r.logger.Info("room closed", "room", entry.room.Code, "reason", reasonHostLeft)
		r.deliver(ds)
		return
	}

	entry.room.OpponentID = ""
	entry.room.Status = geoduel.RoomWaiting
	entry.room.CurrentRound = 0
	entry.room.UpdatedAt = r.now()
	if host, ok := r.players[entry.room.HostID]; ok {
		ds = append(ds, delivery{conn: host.conn, ev: geoduel.Event{Type: geoduel.EventPlayerLeft, Data: geoduel.PlayerLeft{PlayerID: playerID}}})
	}
	coord := entry.coord
	r.mu.Unlock()

	r.logger.Info("opponent left", "room", entry.room.Code, "player", playerID)
	r.deliver(ds)
	coord.OpponentLeft(playerID)
}

// unbind drops a player and its connection binding. r.mu must be held.
func (r *Registry) unbind(playerID string) {
	if pe, ok := r.players[playerID]; ok {
		delete(r.conns, pe.conn)
		delete(r.players, playerID)
	}
}

// removeRoom drops a room and all of its members and stops its
// coordinator. r.mu must be held.
func (r *Registry) removeRoom(entry *roomEntry) {
	r.unbind(entry.room.HostID)
	r.unbind(entry.room.OpponentID)
	delete(r.rooms, entry.room.Code)
	entry.coord.Stop()
	r.metrics.RoomClosed()
}

// ResolveRoomForConnection returns the room code the connection is bound to.
func (r *Registry) ResolveRoomForConnection(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	playerID, ok := r.conns[connID]
	if !ok {
		return "", false
	}
	return r.players[playerID].room, true
}

// Lookup returns the connection's player and the coordinator of its room.
func (r *Registry) Lookup(connID string) (geoduel.Player, *match.Coordinator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	playerID, ok := r.conns[connID]
	if !ok {
		return geoduel.Player{}, nil, geoduel.Errorf(geoduel.ErrNotFound, "connection is not in a room")
	}
	pe := r.players[playerID]
	entry, ok := r.rooms[pe.room]
	if !ok {
		return geoduel.Player{}, nil, geoduel.Errorf(geoduel.ErrNotFound, "room %s", pe.room)
	}
	return pe.player, entry.coord, nil
}

// Room returns a copy of the room with the given code.
func (r *Registry) Room(code string) (geoduel.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.rooms[code]
	if !ok {
		return geoduel.Room{}, false
	}
	return entry.room, true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// RoomSummary is an operator view of one room.
type RoomSummary struct {
	Room     geoduel.Room      `json:"room"`
	Host     *geoduel.Player   `json:"host"`
	Opponent *geoduel.Player   `json:"opponent"`
	State    geoduel.GameState `json:"gameState"`
}

// Snapshot lists every room ordered by creation time, including each
// room's session state.
func (r *Registry) Snapshot(ctx context.Context) ([]RoomSummary, error) {
	type item struct {
		sum   RoomSummary
		coord *match.Coordinator
	}
	r.mu.RLock()
	items := make([]item, 0, len(r.rooms))
	for _, entry := range r.rooms {
		sum := RoomSummary{Room: entry.room}
		if pe, ok := r.players[entry.room.HostID]; ok {
			p := pe.player
			sum.Host = &p
		}
		if pe, ok := r.players[entry.room.OpponentID]; ok {
			p := pe.player
			sum.Opponent = &p
		}
		items = append(items, item{sum: sum, coord: entry.coord})
	}
	r.mu.RUnlock()

	out := make([]RoomSummary, 0, len(items))
	for _, it := range items {
		st, err := it.coord.State(ctx)
		if geoduel.KindOf(err) == geoduel.KindNotFound {
			// Closed since the copy was taken.
			continue
		}
		if err != nil {
			return nil, err
		}
		it.sum.State = st
		out = append(out, it.sum)
	}
	slices.SortFunc(out, func(a, b RoomSummary) int {
		return cmp.Or(a.Room.CreatedAt.Compare(b.Room.CreatedAt), cmp.Compare(a.Room.Code, b.Room.Code))
	})
	return out, nil
}

// Close shuts every room, telling members why, and waits for pending game
// records to be written.
func (r *Registry) Close() {
	r.mu.Lock()
	var ds []delivery
	coords := make([]*match.Coordinator, 0, len(r.rooms))
	for _, entry := range r.rooms {
		ds = append(ds, r.closeDeliveries(entry, reasonShutdown)...)
		coords = append(coords, entry.coord)
		r.removeRoom(entry)
	}
	r.mu.Unlock()

	r.deliver(ds)
	for _, c := range coords {
		c.Wait()
	}
}

// closeDeliveries builds room-closed events for every member. r.mu must be
// held.
func (r *Registry) closeDeliveries(entry *roomEntry, reason string) []delivery {
	var ds []delivery
	for _, id := range []string{entry.room.HostID, entry.room.OpponentID} {
		if pe, ok := r.players[id]; ok {
			ds = append(ds, delivery{conn: pe.conn, ev: geoduel.Event{
				Type: geoduel.EventRoomClosed,
				Data: geoduel.RoomClosed{RoomID: entry.room.Code, Reason: reason},
			}})
		}
	}
	return ds
}
