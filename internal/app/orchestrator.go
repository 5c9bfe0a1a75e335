package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gnupbl/partyvoice/internal/domain"
	"github.com/gnupbl/partyvoice/internal/platform"
)

// PartyResult is what a successful room creation hands back to the
// command or HTTP layer. InviteLink is empty when the platform refused
// to mint one; that failure never fails the creation itself.
type PartyResult struct {
	Room       domain.RoomID
	Name       string
	InviteLink string
	NotFound   []domain.ParticipantID
}

// Orchestrator is the façade over the engine: it reacts to creation
// requests and occupancy changes and drives the registry, the reclaim
// timers and the vote table.
type Orchestrator struct {
	Registry *Registry
	Reclaim  *Reclaimer
	Votes    *VoteCoordinator
	Platform platform.Platform
}

// partyName builds the room display name from the party size plus a
// random numeric suffix so repeated parties do not collide.
func partyName(members int) string {
	suffix := rand.IntN(9000) + 1000
	if members == 1 {
		return fmt.Sprintf("🎉 solo party voice (%d)", suffix)
	}
	return fmt.Sprintf("🎉 %d-member party voice (%d)", members, suffix)
}

// CreateEphemeralRoom resolves the invitees, creates a voice room only
// they (and the initiator) can enter, and registers it for automatic
// reclaim. Unresolvable ids are dropped and reported back, never fatal;
// the room itself failing to create is.
func (o *Orchestrator) CreateEphemeralRoom(ctx context.Context, initiator domain.ParticipantID, invitees []domain.ParticipantID) (*PartyResult, error) {
	rules := domain.NewAccessRuleSet(initiator, invitees)

	resolved := make([]domain.ParticipantID, 0, len(rules.Allow))
	var notFound []domain.ParticipantID
	for _, id := range rules.Allow {
		_, err := o.Platform.ResolveParticipant(ctx, id)
		switch {
		case err == nil:
			resolved = append(resolved, id)
		case errors.Is(err, platform.ErrNotFound):
			notFound = append(notFound, id)
		default:
			return nil, fmt.Errorf("resolve participant %s: %w", id, err)
		}
	}
	if len(resolved) == 0 {
		return nil, domain.ErrNoValidMembers
	}
	rules = domain.AccessRuleSet{DenyEveryone: true, Allow: resolved}

	name := partyName(len(resolved))
	room, err := o.Platform.CreateRoom(ctx, name, rules)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRoomCreationFailed, err)
	}
	o.Registry.RegisterEphemeral(domain.Room{ID: room, Name: name, CreatedAt: time.Now()})
	log.Info().Str("module", "app.orchestrator").Str("room", string(room)).
		Str("name", name).Int("members", len(resolved)).Msg("created ephemeral room")

	link, err := o.Platform.CreateInvite(ctx, room)
	if err != nil {
		log.Warn().Str("module", "app.orchestrator").Str("room", string(room)).Err(err).Msg("invite link unavailable")
		link = ""
	}

	return &PartyResult{Room: room, Name: name, InviteLink: link, NotFound: notFound}, nil
}

// OnOccupancyChanged reacts to a join/leave notification. Only
// transitions across the zero boundary matter: empty→occupied cancels a
// pending reclaim, occupied→empty arms one for ephemeral rooms. Safe to
// call repeatedly and after the room is gone.
func (o *Orchestrator) OnOccupancyChanged(room domain.RoomID, previous, current int) {
	switch {
	case previous == 0 && current > 0:
		o.Reclaim.Disarm(room)
	case previous > 0 && current == 0:
		if o.Registry.IsEphemeral(room) {
			o.Reclaim.Arm(room)
		}
	}
}
