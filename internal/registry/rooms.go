package registry

import (
	"github.com/playperu/geoduel/internal/geoduel"
)

// The methods below are called by coordinators from their own goroutines.
// None of them calls back into a coordinator while r.mu is held.

func (r *Registry) BeginMatch(code, playerID string) (geoduel.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rooms[code]
	if !ok {
		return geoduel.Room{}, geoduel.Errorf(geoduel.ErrNotFound, "room %s", code)
	}
	if _, ok := entry.room.SlotOf(playerID); !ok {
		return geoduel.Room{}, geoduel.Errorf(geoduel.ErrNotFound, "player %s is not in room %s", playerID, code)
	}
	if entry.room.OpponentID == "" {
		return geoduel.Room{}, geoduel.Errorf(geoduel.ErrWrongPhase, "waiting for an opponent")
	}
	if entry.room.Status != geoduel.RoomWaiting {
		return geoduel.Room{}, geoduel.Errorf(geoduel.ErrWrongPhase, "room %s is %s", code, entry.room.Status)
	}

	entry.room.Status = geoduel.RoomPlaying
	entry.room.CurrentRound = 0
	entry.room.UpdatedAt = r.now()
	return entry.room, nil
}

// SetRound records the round in progress. It refuses once the room has
// dropped back to waiting, so a coordinator that has not yet heard of a
// departed opponent cannot advance an empty room.
func (r *Registry) SetRound(code string, round int) bool {
	return r.updatePlaying(code, func(room *geoduel.Room) { room.CurrentRound = round })
}

func (r *Registry) FinishMatch(code string) bool {
	return r.updatePlaying(code, func(room *geoduel.Room) { room.Status = geoduel.RoomFinished })
}

func (r *Registry) updatePlaying(code string, fn func(*geoduel.Room)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.rooms[code]
	if !ok || entry.room.Status != geoduel.RoomPlaying || entry.room.OpponentID == "" {
		return false
	}
	fn(&entry.room)
	entry.room.UpdatedAt = r.now()
	return true
}

func (r *Registry) ResetMatch(code string) {
	r.update(code, func(room *geoduel.Room) {
		room.Status = geoduel.RoomWaiting
		room.CurrentRound = 0
	})
}

func (r *Registry) update(code string, fn func(*geoduel.Room)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.rooms[code]; ok {
		fn(&entry.room)
		entry.room.UpdatedAt = r.now()
	}
}

func (r *Registry) Player(id string) (geoduel.Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pe, ok := r.players[id]
	if !ok {
		return geoduel.Player{}, false
	}
	return pe.player, true
}

// CloseRoom removes a room on the coordinator's behalf and tells both
// members.
func (r *Registry) CloseRoom(code, reason string) {
	r.mu.Lock()
	entry, ok := r.rooms[code]
	if !ok {
		r.mu.Unlock()
		return
	}
	ds := r.closeDeliveries(entry, reason)
	r.removeRoom(entry)
	r.mu.Unlock()

	r.logger.Info("room closed", "room", code, "reason", reason)
	r.deliver(ds)
}

// Notify routes an event to the player's connection. Events for players
// that are no longer bound are dropped.
func (r *Registry) Notify(playerID string, ev geoduel.Event) {
	r.mu.RLock()
	pe, ok := r.players[playerID]
	var conn string
	if ok {
		conn = pe.conn
	}
	r.mu.RUnlock()

	if ok {
		r.pub.Publish(conn, ev)
	}
}
