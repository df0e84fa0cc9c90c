package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"

	"github.com/playperu/geoduel/internal/geoduel"
	"github.com/playperu/geoduel/internal/limiter"
	"github.com/playperu/geoduel/internal/match"
	"github.com/playperu/geoduel/internal/metrics"
	"github.com/playperu/geoduel/internal/registry"
)

// Inbound message types.
const (
	msgCreateRoom    = "create-room"
	msgJoinRoom      = "join-room"
	msgLeaveRoom     = "leave-room"
	msgStartGame     = "start-game"
	msgPlayerGuess   = "player-guess"
	msgPlayAgainVote = "play-again-vote"
)

const (
	requestTimeout = 5 * time.Second
	writeTimeout   = 5 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4 << 10
)

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type CreateRoomRequest struct {
	Difficulty int    `json:"difficulty"`
	RoundLimit int    `json:"roundLimit"`
	PlayerName string `json:"playerName,omitempty"`
}

type JoinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName,omitempty"`
}

type RoomRequest struct {
	RoomID string `json:"roomId"`
}

type GuessRequest struct {
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

type VoteRequest struct {
	Vote bool `json:"vote"`
}

type PlayConfig struct {
	// Conns admits new connections per client IP. Nil admits everything.
	Conns    *limiter.Keyed
	MsgRate  float64
	MsgBurst int
}

var errRateLimited = &geoduel.Error{Kind: geoduel.KindConflict, Code: "rate_limited", Message: "rate limit exceeded"}

func handlePlay(logger *slog.Logger, reg *registry.Registry, broker *Broker, m *metrics.Metrics, cfg PlayConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if cfg.Conns != nil && !cfg.Conns.Allow(ip) {
			m.Rejected(errRateLimited.Code)
			writeError(w, http.StatusTooManyRequests, errRateLimited.Message)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(maxMessageSize)

		pc := &playConn{
			id:     uuid.NewString(),
			reg:    reg,
			broker: broker,
			m:      m,
			msgs:   rate.NewLimiter(rate.Limit(cfg.MsgRate), cfg.MsgBurst),
		}
		pc.logger = logger.With("conn", pc.id, "remote", ip)

		ch := broker.Subscribe(pc.id)
		defer broker.Unsubscribe(pc.id)
		defer reg.Disconnect(pc.id)

		m.ConnectionOpened()
		defer m.ConnectionClosed()
		pc.logger.Debug("websocket connected")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go pc.writeLoop(ctx, cancel, conn, ch)

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				pc.logger.Debug("websocket read ended", "error", err)
				return
			}
			pc.handle(ctx, data)
		}
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type playConn struct {
	id     string
	reg    *registry.Registry
	broker *Broker
	m      *metrics.Metrics
	msgs   *rate.Limiter
	logger *slog.Logger
}

// writeLoop is the only writer on conn. Every outbound frame, replies
// included, goes through the broker so ordering matches publish order.
func (pc *playConn) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, ch <-chan []byte) {
	defer cancel()
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-ch:
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, data)
			wcancel()
			if err != nil {
				pc.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			pctx, pcancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				pc.logger.Debug("websocket ping failed", "error", err)
				return
			}
		}
	}
}

func (pc *playConn) handle(ctx context.Context, data []byte) {
	if !pc.msgs.Allow() {
		pc.reject(msgTypeUnknown, errRateLimited)
		return
	}

	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		pc.reject(msgTypeUnknown, geoduel.Errorf(geoduel.ErrInvalidArgument, "malformed message"))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if err := pc.dispatch(ctx, msg); err != nil {
		pc.reject(msg.Type, err)
	}
}

const msgTypeUnknown = "unknown"

func (pc *playConn) reject(typ string, err error) {
	code := geoduel.CodeOf(err)
	pc.m.Rejected(code)
	switch geoduel.KindOf(err) {
	case geoduel.KindInternal, geoduel.KindUnknown:
		pc.logger.Error("request failed", "type", typ, "error", err)
	default:
		pc.logger.Debug("request rejected", "type", typ, "code", code, "error", err)
	}
	pc.broker.Publish(pc.id, geoduel.ErrorEvent(err))
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return geoduel.Errorf(geoduel.ErrInvalidArgument, "malformed payload")
	}
	return nil
}

func (pc *playConn) dispatch(ctx context.Context, msg inbound) error {
	switch msg.Type {
	case msgCreateRoom:
		var req CreateRoomRequest
		if err := decode(msg.Data, &req); err != nil {
			return err
		}
		_, _, err := pc.reg.CreateRoom(pc.id, req.Difficulty, req.RoundLimit, req.PlayerName)
		return err

	case msgJoinRoom:
		var req JoinRoomRequest
		if err := decode(msg.Data, &req); err != nil {
			return err
		}
		_, _, err := pc.reg.JoinRoom(pc.id, req.RoomCode, req.PlayerName)
		return err

	case msgLeaveRoom:
		var req RoomRequest
		if err := decode(msg.Data, &req); err != nil {
			return err
		}
		return pc.reg.LeaveRoom(pc.id, req.RoomID)

	case msgStartGame:
		var req RoomRequest
		if err := decode(msg.Data, &req); err != nil {
			return err
		}
		player, coord, err := pc.member(req.RoomID)
		if err != nil {
			return err
		}
		return coord.Start(ctx, player.ID)

	case msgPlayerGuess:
		var req GuessRequest
		if err := decode(msg.Data, &req); err != nil {
			return err
		}
		if req.Lat == nil || req.Lng == nil {
			return geoduel.Errorf(geoduel.ErrInvalidArgument, "lat and lng are required")
		}
		player, coord, err := pc.member("")
		if err != nil {
			return err
		}
		return coord.SubmitGuess(ctx, player.ID, *req.Lat, *req.Lng)

	case msgPlayAgainVote:
		var req VoteRequest
		if err := decode(msg.Data, &req); err != nil {
			return err
		}
		player, coord, err := pc.member("")
		if err != nil {
			return err
		}
		return coord.Vote(ctx, player.ID, req.Vote)
	}
	return geoduel.Errorf(geoduel.ErrInvalidArgument, "unknown message type %q", msg.Type)
}

// member resolves the connection's player and room coordinator. A non-empty
// roomID must match the bound room.
func (pc *playConn) member(roomID string) (geoduel.Player, *match.Coordinator, error) {
	if roomID != "" {
		code, ok := pc.reg.ResolveRoomForConnection(pc.id)
		if !ok || !strings.EqualFold(code, roomID) {
			return geoduel.Player{}, nil, geoduel.Errorf(geoduel.ErrNotFound, "not a member of room %s", roomID)
		}
	}
	return pc.reg.Lookup(pc.id)
}
