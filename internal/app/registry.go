package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gnupbl/partyvoice/internal/domain"
)

// Registry tracks which rooms this process created. Only rooms in here
// are ever auto-reclaimed or vote-moderated; pre-existing rooms on the
// platform are left alone.
type Registry struct {
	mu        sync.RWMutex
	ephemeral map[domain.RoomID]domain.Room
}

func NewRegistry() *Registry {
	return &Registry{ephemeral: make(map[domain.RoomID]domain.Room)}
}

// RegisterEphemeral marks a room as system-created. Idempotent.
func (r *Registry) RegisterEphemeral(room domain.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ephemeral[room.ID] = room
	log.Info().Str("module", "app.registry").Str("room", string(room.ID)).Str("name", room.Name).Msg("registered ephemeral room")
}

func (r *Registry) IsEphemeral(room domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ephemeral[room]
	return ok
}

// Forget drops all tracking for the room. Safe on unknown ids.
func (r *Registry) Forget(room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ephemeral[room]; !ok {
		return
	}
	delete(r.ephemeral, room)
	log.Info().Str("module", "app.registry").Str("room", string(room)).Msg("forgot room")
}

// List returns every tracked ephemeral room.
func (r *Registry) List() []domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Room, 0, len(r.ephemeral))
	for _, room := range r.ephemeral {
		out = append(out, room)
	}
	return out
}
