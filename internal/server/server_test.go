package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"nhooyr.io/websocket"

	"github.com/playperu/geoduel/internal/cities"
	"github.com/playperu/geoduel/internal/database"
	"github.com/playperu/geoduel/internal/geo"
	"github.com/playperu/geoduel/internal/geoduel"
	"github.com/playperu/geoduel/internal/handler/health"
	"github.com/playperu/geoduel/internal/limiter"
	"github.com/playperu/geoduel/internal/match"
	"github.com/playperu/geoduel/internal/metrics"
	"github.com/playperu/geoduel/internal/migrations"
	"github.com/playperu/geoduel/internal/registry"
	"github.com/playperu/geoduel/internal/store"
)

type testEnv struct {
	srv   *httptest.Server
	reg   *registry.Registry
	store *store.SQLiteStore
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, configure func(*Deps)) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := discardLogger()

	db, err := database.Open(ctx, database.Memory)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	st := store.NewSQLiteStore(db)

	m := metrics.New()
	broker := NewBroker(logger)
	broker.OnDrop(m.EventDropped)

	cfg := match.DefaultConfig()
	cfg.ResultsDelay = time.Hour
	reg := registry.New(registry.Config{
		FrontendURL: "http://play.test",
		MaxRooms:    10,
		Match:       cfg,
	}, registry.Deps{
		Publisher: broker,
		Cities:    cities.New(cities.Catalog()),
		Recorder:  st,
		Metrics:   m,
		Logger:    logger,
	})
	t.Cleanup(reg.Close)

	deps := Deps{
		Registry: reg,
		Broker:   broker,
		Stats:    st,
		Health:   health.NewHandler(logger, map[string]health.Checker{"sqlite": health.CheckFunc(st.Ping)}, reg.Count),
		Metrics:  m,
		Play:     PlayConfig{MsgRate: 100, MsgBurst: 100},
	}
	if configure != nil {
		configure(&deps)
	}

	srv := httptest.NewServer(New(":0", logger, deps).Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, reg: reg, store: st}
}

func (e *testEnv) dial(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, "ws"+e.srv.URL[len("http"):]+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"type": typ, "data": data})
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips events until one of type typ arrives and decodes its
// data into v.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, v any) {
	t.Helper()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decoding %s: %v", data, err)
		}
		if msg.Type != typ {
			continue
		}
		if v != nil {
			if err := json.Unmarshal(msg.Data, v); err != nil {
				t.Fatalf("decoding %s data: %v", typ, err)
			}
		}
		return
	}
}

func TestPlayRound(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	host := env.dial(t, ctx)
	guest := env.dial(t, ctx)

	send(t, ctx, host, msgCreateRoom, CreateRoomRequest{Difficulty: 2, RoundLimit: 1, PlayerName: "Ana"})
	var created geoduel.RoomCreated
	readUntil(t, ctx, host, geoduel.EventRoomCreated, &created)
	code := created.Room.Code
	if len(code) != geoduel.RoomCodeLength {
		t.Fatalf("room code = %q", code)
	}
	if want := "http://play.test/multiplayer/join/" + code; created.ShareableLink != want {
		t.Errorf("link = %q, want %q", created.ShareableLink, want)
	}

	send(t, ctx, guest, msgJoinRoom, JoinRoomRequest{RoomCode: strings.ToLower(code), PlayerName: "Ben"})
	var joined geoduel.RoomJoined
	readUntil(t, ctx, guest, geoduel.EventRoomJoined, &joined)
	if joined.IsHost || joined.Room.Code != code {
		t.Errorf("joined = %+v", joined)
	}
	var opp geoduel.PlayerJoined
	readUntil(t, ctx, host, geoduel.EventPlayerJoined, &opp)
	if opp.Opponent.DisplayName != "Ben" {
		t.Errorf("opponent = %+v", opp.Opponent)
	}

	send(t, ctx, host, msgStartGame, RoomRequest{RoomID: code})
	var rounds [2]geoduel.RoundStarted
	for i, c := range []*websocket.Conn{host, guest} {
		readUntil(t, ctx, c, geoduel.EventRoundStarted, &rounds[i])
	}
	if rounds[0].RoundNumber != 1 || rounds[0].City != rounds[1].City {
		t.Fatalf("round started = %+v / %+v", rounds[0], rounds[1])
	}
	city := rounds[0].City

	send(t, ctx, host, msgPlayerGuess, map[string]float64{"lat": city.Lat, "lng": city.Lng})
	send(t, ctx, guest, msgPlayerGuess, map[string]float64{"lat": 0, "lng": 0})

	for _, c := range []*websocket.Conn{host, guest} {
		var ended geoduel.RoundEnded
		readUntil(t, ctx, c, geoduel.EventRoundEnded, &ended)
		if ended.Result.RoundNumber != 1 || ended.Result.HostScore != 5000 {
			t.Errorf("round ended = %+v", ended.Result)
		}
		if ended.Result.OpponentGuess == nil || ended.Result.OpponentScore >= 5000 {
			t.Errorf("opponent result = %+v", ended.Result)
		}
		if g := ended.Result.HostGuess; g == nil || g.Quality != string(geo.QualityPerfect) {
			t.Errorf("host guess = %+v, want Perfect quality", g)
		}
	}
}

func TestPlayRejections(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := env.dial(t, ctx)

	tests := []struct {
		name     string
		typ      string
		data     any
		wantCode string
	}{
		{"unknown type", "dance", nil, geoduel.ErrInvalidArgument.Code},
		{"bad payload", msgCreateRoom, "not an object", geoduel.ErrInvalidArgument.Code},
		{"bad difficulty", msgCreateRoom, CreateRoomRequest{Difficulty: 9, RoundLimit: 3}, geoduel.ErrInvalidArgument.Code},
		{"missing coordinates", msgPlayerGuess, map[string]float64{"lat": 1}, geoduel.ErrInvalidArgument.Code},
		{"start without room", msgStartGame, RoomRequest{RoomID: "ABCDEFGH"}, geoduel.ErrNotFound.Code},
		{"join unknown room", msgJoinRoom, JoinRoomRequest{RoomCode: "ZZZZZZZZ", PlayerName: "Zoe"}, geoduel.ErrNotFound.Code},
		{"join without name", msgJoinRoom, JoinRoomRequest{RoomCode: "ZZZZZZZZ"}, geoduel.ErrInvalidArgument.Code},
		{"join malformed code", msgJoinRoom, JoinRoomRequest{RoomCode: "ZZ-1", PlayerName: "Zoe"}, geoduel.ErrInvalidArgument.Code},
		{"vote without room", msgPlayAgainVote, VoteRequest{Vote: true}, geoduel.ErrNotFound.Code},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, ctx, conn, tt.typ, tt.data)
			var got geoduel.ErrorPayload
			readUntil(t, ctx, conn, geoduel.EventError, &got)
			if got.Code != tt.wantCode {
				t.Errorf("code = %q (%s), want %q", got.Code, got.Reason, tt.wantCode)
			}
		})
	}
}

func TestPlayDisconnectRemovesRoom(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	host := env.dial(t, ctx)
	send(t, ctx, host, msgCreateRoom, CreateRoomRequest{Difficulty: 1, RoundLimit: 3})
	readUntil(t, ctx, host, geoduel.EventRoomCreated, nil)
	if n := env.reg.Count(); n != 1 {
		t.Fatalf("rooms = %d, want 1", n)
	}

	host.Close(websocket.StatusNormalClosure, "bye")
	deadline := time.Now().Add(2 * time.Second)
	for env.reg.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("room was not removed after host disconnected")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPlayConnectionRateLimit(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Play.Conns = limiter.PerMinute(1, 1)
	})

	first, err := http.Get(env.srv.URL + "/ws")
	if err != nil {
		t.Fatal(err)
	}
	first.Body.Close()
	if first.StatusCode == http.StatusTooManyRequests {
		t.Fatal("first request was rate limited")
	}

	second, err := http.Get(env.srv.URL + "/ws")
	if err != nil {
		t.Fatal(err)
	}
	defer second.Body.Close()
	if second.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", second.StatusCode, http.StatusTooManyRequests)
	}
}

func TestStatsEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	winner := "p-ana"
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := geoduel.GameRecord{
		RoomCode:    "ROOM0001",
		Host:        geoduel.PlayerRecord{ID: "p-ana", Name: "Ana"},
		Opponent:    geoduel.PlayerRecord{ID: "p-ben", Name: "Ben"},
		Difficulty:  1,
		TotalRounds: 1,
		HostTotal:   5000,
		WinnerID:    &winner,
		StartedAt:   now.Add(-time.Minute),
		CompletedAt: now,
		Rounds: []geoduel.RoundResult{{
			RoundNumber: 1,
			City:        geoduel.City{Name: "Lima", Country: "Peru", Lat: -12.0464, Lng: -77.0428, Difficulty: 1},
			HostGuess:   &geoduel.Guess{Lat: -12.0464, Lng: -77.0428, Score: 5000},
			HostScore:   5000,
			CompletedAt: now,
		}},
	}
	if err := env.store.RecordGame(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/api/leaderboard", http.StatusOK, `"playerId":"p-ana"`},
		{"/api/leaderboard?limit=1", http.StatusOK, `"gamesWon":1`},
		{"/api/leaderboard?limit=abc", http.StatusBadRequest, `"error"`},
		{"/api/players/p-ben/stats", http.StatusOK, `"gamesPlayed":1`},
		{"/api/players/nobody/stats", http.StatusNotFound, `player not found`},
		{"/api/players/p-ben/games", http.StatusOK, `"roomCode":"ROOM0001"`},
		{"/api/players/nobody/games", http.StatusOK, `[]`},
		{"/api/players/p-ben/games?limit=0", http.StatusBadRequest, `"error"`},
		{"/api/nothing", http.StatusNotFound, ``},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(env.srv.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", resp.StatusCode, tt.wantStatus, body)
			}
			if !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("body = %s, want it to contain %s", body, tt.wantBody)
			}
		})
	}
}

func TestAdminRooms(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	env := newTestEnv(t, func(d *Deps) {
		d.Admin = AdminCredentials{User: "admin", PasswordHash: string(hash)}
	})
	if _, _, err := env.reg.CreateRoom("conn-1", 3, 5, "Ana"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		user, pass string
		wantStatus int
	}{
		{"no credentials", "", "", http.StatusUnauthorized},
		{"wrong password", "admin", "nope", http.StatusUnauthorized},
		{"wrong user", "root", "hunter2", http.StatusUnauthorized},
		{"valid", "admin", "hunter2", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/api/admin/rooms", nil)
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if resp.Header.Get("WWW-Authenticate") == "" {
					t.Error("missing WWW-Authenticate header")
				}
				return
			}
			var got AdminRoomsResponse
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if got.Count != 1 || got.Rooms[0].Host == nil || got.Rooms[0].Host.DisplayName != "Ana" {
				t.Errorf("rooms = %+v", got)
			}
			if got.Rooms[0].State.Phase != geoduel.PhaseLobby {
				t.Errorf("phase = %q", got.Rooms[0].State.Phase)
			}
		})
	}
}

func TestAdminRoutesDisabledWithoutHash(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, err := http.Get(env.srv.URL + "/api/admin/rooms")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, _, err := env.reg.CreateRoom("conn-1", 1, 1, ""); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(env.srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var h health.Response
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || h.Status != "ok" || h.ActiveRooms != 1 {
		t.Errorf("health = %d %+v", resp.StatusCode, h)
	}

	resp, err = http.Get(env.srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "geoduel_rooms_active 1") {
		t.Errorf("metrics missing rooms gauge:\n%s", body)
	}
}

func TestHandleOpenAPI(t *testing.T) {
	h := handleOpenAPI()
	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	rec := httptest.NewRecorder()

	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "application/json") {
		t.Fatalf("content-type = %q, want application/json", got)
	}

	body := rec.Body.String()
	for _, path := range []string{"/healthz", "/ws", "/api/leaderboard", "/api/players/{playerID}/games", "/api/admin/rooms"} {
		if !strings.Contains(body, `"`+path+`"`) {
			t.Errorf("body missing %s path", path)
		}
	}
}
