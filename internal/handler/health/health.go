package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

type Handler struct {
	checks  map[string]Checker
	rooms   func() int
	started time.Time
	now     func() time.Time
	logger  *slog.Logger
}

// NewHandler reports the named checks along with process uptime and the
// live room count returned by rooms.
func NewHandler(logger *slog.Logger, checks map[string]Checker, rooms func() int) *Handler {
	return &Handler{
		checks:  checks,
		rooms:   rooms,
		started: time.Now(),
		now:     time.Now,
		logger:  logger,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

type result struct {
	Status string `json:"status"`
}

type Response struct {
	Status      string            `json:"status"`
	Uptime      float64           `json:"uptime"`
	ActiveRooms int               `json:"activeRooms"`
	Checks      map[string]result `json:"checks"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := Response{
		Status: "ok",
		Uptime: h.now().Sub(h.started).Seconds(),
		Checks: make(map[string]result, len(h.checks)),
	}
	if h.rooms != nil {
		resp.ActiveRooms = h.rooms()
	}
	status := http.StatusOK

	for name, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			h.logger.Error("health check failed", "name", name, "error", err)
			resp.Checks[name] = result{Status: "error"}
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = result{Status: "ok"}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
