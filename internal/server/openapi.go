package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/geoduel/internal/handler/health"
	"github.com/playperu/geoduel/internal/store"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "GeoDuel API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for GeoDuel, a two-player city guessing game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Reports dependency health, uptime and the number of live rooms.")
	getHealthz.AddRespStructure(health.Response{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(health.Response{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /metrics
	getMetrics, _ := r.NewOperationContext(http.MethodGet, "/metrics")
	getMetrics.SetSummary("Prometheus metrics")
	getMetrics.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getMetrics)

	// GET /ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/ws")
	getWS.SetSummary("Game connection")
	getWS.SetDescription("Upgrades to a WebSocket carrying JSON messages of the form {\"type\", \"data\"}. " +
		"Clients send create-room, join-room, leave-room, start-game, player-guess and play-again-vote.")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	getWS.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusTooManyRequests))
	_ = r.AddOperation(getWS)

	// GET /api/leaderboard
	getBoard, _ := r.NewOperationContext(http.MethodGet, "/api/leaderboard")
	getBoard.SetSummary("Leaderboard")
	getBoard.SetDescription("Players ranked by wins, then total score, then accuracy.")
	getBoard.AddReqStructure(LimitQuery{})
	getBoard.AddRespStructure([]store.PlayerStats{}, openapi.WithHTTPStatus(http.StatusOK))
	getBoard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(getBoard)

	// GET /api/players/{playerID}/stats
	getStats, _ := r.NewOperationContext(http.MethodGet, "/api/players/{playerID}/stats")
	getStats.SetSummary("Player stats")
	getStats.AddReqStructure(PlayerPath{})
	getStats.AddRespStructure(store.PlayerStats{}, openapi.WithHTTPStatus(http.StatusOK))
	getStats.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getStats)

	// GET /api/players/{playerID}/games
	getGames, _ := r.NewOperationContext(http.MethodGet, "/api/players/{playerID}/games")
	getGames.SetSummary("Player game history")
	getGames.SetDescription("Finished games the player took part in, most recent first.")
	getGames.AddReqStructure(PlayerGamesRequest{})
	getGames.AddRespStructure([]store.GameSummary{}, openapi.WithHTTPStatus(http.StatusOK))
	getGames.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(getGames)

	// GET /api/admin/rooms
	getRooms, _ := r.NewOperationContext(http.MethodGet, "/api/admin/rooms")
	getRooms.SetSummary("Live rooms")
	getRooms.SetDescription("Lists every live room with its members and match state. Requires HTTP Basic auth.")
	getRooms.AddRespStructure(AdminRoomsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getRooms.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getRooms)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
