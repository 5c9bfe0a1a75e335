// Package platform defines the contract with the chat/voice platform
// that hosts the rooms. The engine only ever talks to this interface;
// the discord adapter implements it against the real service and tests
// substitute an in-memory fake.
package platform

import (
	"context"
	"errors"

	"github.com/gnupbl/partyvoice/internal/domain"
)

var (
	// ErrNotFound covers unknown participants, already-deleted rooms
	// and similar "the thing is gone" answers from the platform.
	ErrNotFound = errors.New("platform: not found")

	// ErrPermissionDenied means the platform refused a moderation or
	// management action for lack of rights.
	ErrPermissionDenied = errors.New("platform: permission denied")
)

// VoteNotice announces a freshly started exclusion vote to the room.
type VoteNotice struct {
	Room      domain.RoomID
	Initiator domain.Participant
	Target    domain.Participant
	Required  int
	WindowSec int
}

// VoteOutcome is the final report of an exclusion vote.
type VoteOutcome struct {
	Room   domain.RoomID
	Target domain.ParticipantID
	Passed bool
	// Enforced is false on a passed vote whose disconnect or entry-ban
	// could not be applied ("passed but could not enforce").
	Enforced  bool
	Approvals int
	Required  int
}

type Platform interface {
	// CreateRoom creates a voice room with the given entry policy and
	// returns its platform-assigned identifier.
	CreateRoom(ctx context.Context, name string, rules domain.AccessRuleSet) (domain.RoomID, error)

	// DeleteRoom removes the room. Deleting an already-gone room
	// returns ErrNotFound.
	DeleteRoom(ctx context.Context, room domain.RoomID) error

	// CreateInvite returns a reusable, non-expiring join link for the
	// room. Best-effort: callers degrade to "link unavailable".
	CreateInvite(ctx context.Context, room domain.RoomID) (string, error)

	// ResolveParticipant looks up a live participant by id, returning
	// ErrNotFound for ids that do not resolve.
	ResolveParticipant(ctx context.Context, id domain.ParticipantID) (*domain.Participant, error)

	// Occupants lists who is currently connected to the room's voice,
	// automated accounts included (callers filter on Participant.Bot).
	Occupants(ctx context.Context, room domain.RoomID) ([]domain.Participant, error)

	// Disconnect drops the participant from whatever voice room they
	// occupy.
	Disconnect(ctx context.Context, id domain.ParticipantID) error

	// DenyEntry adds a per-participant deny override on the room so a
	// removed participant cannot immediately rejoin.
	DenyEntry(ctx context.Context, room domain.RoomID, id domain.ParticipantID) error

	// AnnounceVote posts the ballot prompt into the room's chat.
	AnnounceVote(ctx context.Context, notice VoteNotice) error

	// ReportVoteOutcome posts the final tally into the room's chat.
	ReportVoteOutcome(ctx context.Context, outcome VoteOutcome) error
}
