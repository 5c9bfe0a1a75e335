package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gnupbl/partyvoice/internal/clock"
	"github.com/gnupbl/partyvoice/internal/domain"
	"github.com/gnupbl/partyvoice/internal/platform"
)

// reclaimTimeout bounds the platform round-trips made when a grace
// timer fires.
const reclaimTimeout = 10 * time.Second

// Reclaimer deletes ephemeral rooms that stay empty for a full grace
// period. Per room the timer moves NONE → PENDING → (CANCELLED | FIRED)
// with at most one pending timer at any time.
type Reclaimer struct {
	mu      sync.Mutex
	pending map[domain.RoomID]clock.Timer

	clk      clock.Clock
	grace    time.Duration
	registry *Registry
	votes    *VoteCoordinator
	plat     platform.Platform
}

func NewReclaimer(clk clock.Clock, grace time.Duration, reg *Registry, votes *VoteCoordinator, plat platform.Platform) *Reclaimer {
	return &Reclaimer{
		pending:  make(map[domain.RoomID]clock.Timer),
		clk:      clk,
		grace:    grace,
		registry: reg,
		votes:    votes,
		plat:     plat,
	}
}

// Arm starts the grace timer for a room that just became empty. A room
// that already has a pending timer is left untouched.
func (r *Reclaimer) Arm(room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[room]; ok {
		return
	}
	r.pending[room] = r.clk.AfterFunc(r.grace, func() { r.fire(room) })
	log.Info().Str("module", "app.reclaim").Str("room", string(room)).Dur("grace", r.grace).Msg("armed idle timer")
}

// Disarm cancels the pending timer, typically because someone joined
// before the grace period ran out. No-op when no timer exists.
func (r *Reclaimer) Disarm(room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.pending[room]
	if !ok {
		return
	}
	t.Stop()
	delete(r.pending, room)
	log.Info().Str("module", "app.reclaim").Str("room", string(room)).Msg("disarmed idle timer")
}

// Pending reports whether a grace timer is currently armed for room.
func (r *Reclaimer) Pending(room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[room]
	return ok
}

// fire runs when the grace period elapses. Occupancy is re-read live:
// a join may have raced the timer without a matching Disarm. Deletion
// is terminal and never retried; local bookkeeping is cleared even when
// the platform call fails, otherwise a failed delete would leak the
// room forever.
func (r *Reclaimer) fire(room domain.RoomID) {
	r.mu.Lock()
	delete(r.pending, room)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), reclaimTimeout)
	defer cancel()

	occupants, err := r.plat.Occupants(ctx, room)
	if err == nil && len(occupants) > 0 {
		log.Info().Str("module", "app.reclaim").Str("room", string(room)).Int("occupants", len(occupants)).Msg("room re-occupied, skipping reclaim")
		return
	}
	if err != nil {
		log.Warn().Str("module", "app.reclaim").Str("room", string(room)).Err(err).Msg("occupancy re-check failed, reclaiming anyway")
	}

	if err := r.plat.DeleteRoom(ctx, room); err != nil {
		log.Warn().Str("module", "app.reclaim").Str("room", string(room)).Err(err).Msg("room deletion failed")
	} else {
		log.Info().Str("module", "app.reclaim").Str("room", string(room)).Msg("reclaimed idle room")
	}

	r.registry.Forget(room)
	if r.votes != nil {
		r.votes.Discard(room)
	}
}
