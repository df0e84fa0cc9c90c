package server

import (
	"log/slog"
	"net/http"

	"github.com/playperu/geoduel/internal/registry"
)

// AdminRoomsResponse lists the live rooms.
type AdminRoomsResponse struct {
	Count int                    `json:"count"`
	Rooms []registry.RoomSummary `json:"rooms"`
}

func handleAdminRooms(logger *slog.Logger, reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := reg.Snapshot(r.Context())
		if err != nil {
			logger.Error("listing rooms", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if rooms == nil {
			rooms = []registry.RoomSummary{}
		}
		writeJSON(w, http.StatusOK, AdminRoomsResponse{Count: len(rooms), Rooms: rooms})
	}
}
