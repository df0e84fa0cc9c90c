package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/geoduel/internal/handler/health"
	"github.com/playperu/geoduel/internal/metrics"
	"github.com/playperu/geoduel/internal/registry"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Registry *registry.Registry
	Broker   *Broker
	Stats    Stats
	Health   *health.Handler
	Metrics  *metrics.Metrics
	Play     PlayConfig
	Admin    AdminCredentials
	SPADir   string
}

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("GeoDuel API", "/openapi.json", "/docs"))
	r.Mount("/healthz", deps.Health.Routes())
	r.Handle("/metrics", deps.Metrics.Handler())

	r.Get("/ws", handlePlay(logger, deps.Registry, deps.Broker, deps.Metrics, deps.Play))

	r.Route("/api", func(r chi.Router) {
		r.Get("/leaderboard", handleLeaderboard(logger, deps.Stats))
		r.Get("/players/{playerID}/stats", handlePlayerStats(logger, deps.Stats))
		r.Get("/players/{playerID}/games", handlePlayerGames(logger, deps.Stats))

		if deps.Admin.Enabled() {
			r.Route("/admin", func(r chi.Router) {
				r.Use(adminAuthMiddleware(deps.Admin))
				r.Get("/rooms", handleAdminRooms(logger, deps.Registry))
			})
		} else {
			logger.Info("admin endpoints disabled", "reason", "no password hash configured")
		}
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
