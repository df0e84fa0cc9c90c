package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// quietPaths are polled by infrastructure and logged at debug only.
var quietPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// newStructuredLogger writes one access log line per request. An accepted
// WebSocket upgrade holds the request open for the whole session, so it
// gets a line when the upgrade starts and a "websocket session" line with
// the session length once the connection ends.
func newStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			reqID := middleware.GetReqID(r.Context())
			upgrade := isWebSocketUpgrade(r)
			if upgrade {
				logger.Debug("websocket upgrade",
					"path", r.URL.Path,
					"remote", r.RemoteAddr,
					"request_id", reqID,
				)
			}

			defer func() {
				if upgrade && ww.Status() == http.StatusSwitchingProtocols {
					logger.Info("websocket session",
						"path", r.URL.Path,
						"remote", r.RemoteAddr,
						"session_ms", time.Since(start).Milliseconds(),
						"request_id", reqID,
					)
					return
				}

				level := slog.LevelInfo
				if quietPaths[r.URL.Path] && ww.Status() < http.StatusInternalServerError {
					level = slog.LevelDebug
				}
				logger.Log(r.Context(), level, "http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", reqID,
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
