package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gnupbl/partyvoice/internal/clock"
	"github.com/gnupbl/partyvoice/internal/domain"
	"github.com/gnupbl/partyvoice/internal/platform"
)

// Ballot rejections. None of them mutate the session.
var (
	ErrNoActiveVote     = errors.New("no vote is running in this room")
	ErrAlreadyVoted     = errors.New("voter already cast a ballot this session")
	ErrVoterNotPresent  = errors.New("voter is not in the room")
	ErrVoterNotEligible = errors.New("automated accounts cannot vote")
)

// finalizeTimeout bounds the platform round-trips made while enforcing
// and reporting a finished vote.
const finalizeTimeout = 10 * time.Second

type voteSession struct {
	initiator domain.ParticipantID
	target    domain.ParticipantID
	voters    map[domain.ParticipantID]struct{}
	required  int
	timer     clock.Timer
	done      bool
}

// VoteCoordinator runs at most one timed exclusion vote per room:
// IDLE → COLLECTING → (PASSED | FAILED) → IDLE. Ballots are
// one-per-voter and quorum ends the vote early; otherwise the deadline
// decides. Cleanup back to IDLE is unconditional.
type VoteCoordinator struct {
	mu     sync.Mutex
	active map[domain.RoomID]*voteSession

	clk      clock.Clock
	window   time.Duration
	registry *Registry
	plat     platform.Platform
}

func NewVoteCoordinator(clk clock.Clock, window time.Duration, reg *Registry, plat platform.Platform) *VoteCoordinator {
	return &VoteCoordinator{
		active:   make(map[domain.RoomID]*voteSession),
		clk:      clk,
		window:   window,
		registry: reg,
		plat:     plat,
	}
}

// requiredVotes is the quorum for a house of n live voters: ceiling of
// half, plus one extra vote when n is even so a 50/50 split never
// passes. Product decision, not a derivation; change here only.
func requiredVotes(n int) int {
	if n < 1 {
		return 1
	}
	req := (n + 1) / 2
	if n%2 == 0 {
		req++
	}
	return req
}

// StartVote opens an exclusion vote against target in the initiator's
// room. Preconditions are checked in order and the first failure wins;
// nothing is mutated on a rejected start.
func (c *VoteCoordinator) StartVote(ctx context.Context, room domain.RoomID, initiator, target domain.ParticipantID) (*platform.VoteNotice, error) {
	if !c.registry.IsEphemeral(room) {
		return nil, domain.ErrIneligibleRoom
	}

	occupants, err := c.plat.Occupants(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("query occupants: %w", err)
	}
	byID := make(map[domain.ParticipantID]domain.Participant, len(occupants))
	totalVoters := 0
	for _, p := range occupants {
		byID[p.ID] = p
		if !p.Bot {
			totalVoters++
		}
	}
	initiatorMeta, ok := byID[initiator]
	if !ok {
		return nil, domain.ErrIneligibleRoom
	}

	c.mu.Lock()
	if _, running := c.active[room]; running {
		c.mu.Unlock()
		return nil, domain.ErrVoteInProgress
	}
	targetMeta, present := byID[target]
	if !present {
		c.mu.Unlock()
		return nil, domain.ErrTargetNotPresent
	}
	if target == initiator {
		c.mu.Unlock()
		return nil, domain.ErrSelfTargetForbidden
	}

	sess := &voteSession{
		initiator: initiator,
		target:    target,
		voters:    make(map[domain.ParticipantID]struct{}),
		required:  requiredVotes(totalVoters),
	}
	c.active[room] = sess
	sess.timer = c.clk.AfterFunc(c.window, func() { c.onDeadline(room, sess) })
	notice := &platform.VoteNotice{
		Room:      room,
		Initiator: initiatorMeta,
		Target:    targetMeta,
		Required:  sess.required,
		WindowSec: int(c.window / time.Second),
	}
	c.mu.Unlock()

	log.Info().Str("module", "app.vote").Str("room", string(room)).
		Str("target", string(target)).Int("required", sess.required).
		Int("voters", totalVoters).Msg("vote started")

	if err := c.plat.AnnounceVote(ctx, *notice); err != nil {
		log.Warn().Str("module", "app.vote").Str("room", string(room)).Err(err).Msg("vote announcement failed")
	}
	return notice, nil
}

// CastBallot records one approve-removal signal. A voter gets one
// ballot per session and must still be in the room when it lands.
// Reaching quorum finalizes the vote immediately.
func (c *VoteCoordinator) CastBallot(ctx context.Context, room domain.RoomID, voter domain.ParticipantID) error {
	c.mu.Lock()
	sess, ok := c.active[room]
	if !ok || sess.done {
		c.mu.Unlock()
		return ErrNoActiveVote
	}
	if _, voted := sess.voters[voter]; voted {
		c.mu.Unlock()
		return ErrAlreadyVoted
	}
	c.mu.Unlock()

	// Presence is read live so voters who already left cannot sway the
	// outcome from outside the room.
	occupants, err := c.plat.Occupants(ctx, room)
	if err != nil {
		return fmt.Errorf("query occupants: %w", err)
	}
	var found *domain.Participant
	for i := range occupants {
		if occupants[i].ID == voter {
			found = &occupants[i]
			break
		}
	}
	if found == nil {
		return ErrVoterNotPresent
	}
	// The quorum counts humans only, so only humans get a ballot.
	if found.Bot {
		return ErrVoterNotEligible
	}

	c.mu.Lock()
	if cur, ok := c.active[room]; !ok || cur != sess || sess.done {
		c.mu.Unlock()
		return ErrNoActiveVote
	}
	if _, voted := sess.voters[voter]; voted {
		c.mu.Unlock()
		return ErrAlreadyVoted
	}
	sess.voters[voter] = struct{}{}
	approvals := len(sess.voters)
	quorum := approvals >= sess.required
	if quorum {
		sess.done = true
		sess.timer.Stop()
		delete(c.active, room)
	}
	c.mu.Unlock()

	log.Info().Str("module", "app.vote").Str("room", string(room)).
		Str("voter", string(voter)).Int("approvals", approvals).
		Int("required", sess.required).Msg("ballot recorded")

	if quorum {
		c.finalize(room, sess, approvals)
	}
	return nil
}

// Active reports whether a vote is collecting ballots in the room.
func (c *VoteCoordinator) Active(room domain.RoomID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[room]
	return ok
}

// Discard drops a session without reporting, used when the room itself
// disappears mid-vote.
func (c *VoteCoordinator) Discard(room domain.RoomID) {
	c.mu.Lock()
	sess, ok := c.active[room]
	if ok {
		sess.done = true
		sess.timer.Stop()
		delete(c.active, room)
	}
	c.mu.Unlock()
	if ok {
		log.Info().Str("module", "app.vote").Str("room", string(room)).Msg("discarded pending vote")
	}
}

func (c *VoteCoordinator) onDeadline(room domain.RoomID, sess *voteSession) {
	c.mu.Lock()
	if cur, ok := c.active[room]; !ok || cur != sess || sess.done {
		c.mu.Unlock()
		return
	}
	sess.done = true
	delete(c.active, room)
	approvals := len(sess.voters)
	c.mu.Unlock()

	c.finalize(room, sess, approvals)
}

// finalize enforces and reports the outcome. The session is already
// out of the active table by the time this runs; every platform error
// here is logged and swallowed so cleanup can never be undone by a
// failed round-trip.
func (c *VoteCoordinator) finalize(room domain.RoomID, sess *voteSession, approvals int) {
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	outcome := platform.VoteOutcome{
		Room:      room,
		Target:    sess.target,
		Passed:    approvals >= sess.required,
		Approvals: approvals,
		Required:  sess.required,
	}

	if outcome.Passed {
		outcome.Enforced = true
		if err := c.plat.Disconnect(ctx, sess.target); err != nil {
			outcome.Enforced = false
			log.Warn().Str("module", "app.vote").Str("room", string(room)).Err(err).Msg("disconnect failed")
		}
		if err := c.plat.DenyEntry(ctx, room, sess.target); err != nil {
			outcome.Enforced = false
			log.Warn().Str("module", "app.vote").Str("room", string(room)).Err(err).Msg("entry ban failed")
		}
	}

	log.Info().Str("module", "app.vote").Str("room", string(room)).
		Bool("passed", outcome.Passed).Bool("enforced", outcome.Enforced).
		Int("approvals", approvals).Int("required", sess.required).Msg("vote finalized")

	if err := c.plat.ReportVoteOutcome(ctx, outcome); err != nil {
		log.Warn().Str("module", "app.vote").Str("room", string(room)).Err(err).Msg("outcome report failed")
	}
}
