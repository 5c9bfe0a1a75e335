package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gnupbl/partyvoice/internal/domain"
)

func TestRequiredVotes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		voters int
		want   int
	}{
		{1, 1},
		{2, 2}, // even house: strict majority
		{3, 2},
		{4, 3},
		{5, 3},
		{6, 4},
		{7, 4},
		{0, 1}, // degenerate, guarded
	}
	for _, tt := range tests {
		if got := requiredVotes(tt.voters); got != tt.want {
			t.Errorf("requiredVotes(%d): got=%d want=%d", tt.voters, got, tt.want)
		}
	}
}

// voteFixture seats alice, bob and carol in an ephemeral room.
func voteFixture(t *testing.T) *engine {
	t.Helper()
	e := newEngine()
	e.reg.RegisterEphemeral(domain.Room{ID: "r"})
	for _, id := range []domain.ParticipantID{"alice", "bob", "carol"} {
		e.plat.addMember(id, false)
	}
	e.plat.setOccupants("r", "alice", "bob", "carol")
	return e
}

func TestStartVotePreconditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setup     func(e *engine)
		room      domain.RoomID
		initiator domain.ParticipantID
		target    domain.ParticipantID
		wantErr   error
	}{
		{
			name:      "room not ephemeral",
			setup:     func(e *engine) {},
			room:      "pre-existing",
			initiator: "alice",
			target:    "bob",
			wantErr:   domain.ErrIneligibleRoom,
		},
		{
			name:      "initiator not in room",
			setup:     func(e *engine) { e.plat.setOccupants("r", "bob", "carol") },
			room:      "r",
			initiator: "alice",
			target:    "bob",
			wantErr:   domain.ErrIneligibleRoom,
		},
		{
			name: "vote already running",
			setup: func(e *engine) {
				_, _ = e.votes.StartVote(context.Background(), "r", "alice", "bob")
			},
			room:      "r",
			initiator: "carol",
			target:    "bob",
			wantErr:   domain.ErrVoteInProgress,
		},
		{
			name:      "target not present",
			setup:     func(e *engine) { e.plat.setOccupants("r", "alice", "carol") },
			room:      "r",
			initiator: "alice",
			target:    "bob",
			wantErr:   domain.ErrTargetNotPresent,
		},
		{
			name:      "self target",
			setup:     func(e *engine) {},
			room:      "r",
			initiator: "alice",
			target:    "alice",
			wantErr:   domain.ErrSelfTargetForbidden,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := voteFixture(t)
			tt.setup(e)
			_, err := e.votes.StartVote(context.Background(), tt.room, tt.initiator, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("StartVote: got err=%v want=%v", err, tt.wantErr)
			}
		})
	}
}

func TestStartVoteWhileCollectingLeavesSessionUntouched(t *testing.T) {
	t.Parallel()

	e := voteFixture(t)
	ctx := context.Background()

	notice, err := e.votes.StartVote(ctx, "r", "alice", "bob")
	if err != nil {
		t.Fatalf("StartVote: %v", err)
	}
	if notice.Required != 2 {
		t.Fatalf("required: got=%d want=2", notice.Required)
	}

	if _, err := e.votes.StartVote(ctx, "r", "carol", "alice"); !errors.Is(err, domain.ErrVoteInProgress) {
		t.Fatalf("second StartVote: got err=%v want=%v", err, domain.ErrVoteInProgress)
	}

	// The original session still finalizes against its own target.
	if err := e.votes.CastBallot(ctx, "r", "alice"); err != nil {
		t.Fatalf("CastBallot: %v", err)
	}
	if err := e.votes.CastBallot(ctx, "r", "carol"); err != nil {
		t.Fatalf("CastBallot: %v", err)
	}
	outcome, ok := e.plat.lastOutcome()
	if !ok || !outcome.Passed || outcome.Target != "bob" {
		t.Fatalf("unexpected outcome: %+v ok=%v", outcome, ok)
	}
}

func TestQuorumCountsHumansOnly(t *testing.T) {
	t.Parallel()

	e := voteFixture(t)
	e.plat.addMember("beep", true)
	e.plat.setOccupants("r", "alice", "bob", "carol", "beep")

	notice, err := e.votes.StartVote(context.Background(), "r", "alice", "bob")
	if err != nil {
		t.Fatalf("StartVote: %v", err)
	}
	// 3 humans, not 4 occupants.
	if notice.Required != 2 {
		t.Fatalf("required: got=%d want=2", notice.Required)
	}
}

func TestBotBallotsRejected(t *testing.T) {
	t.Parallel()

	e := voteFixture(t)
	e.plat.addMember("beep", true)
	e.plat.setOccupants("r", "alice", "bob", "carol", "beep")
	ctx := context.Background()

	if _, err := e.votes.StartVote(ctx, "r", "alice", "bob"); err != nil {
		t.Fatalf("StartVote: %v", err)
	}
	if err := e.votes.CastBallot(ctx, "r", "alice"); err != nil {
		t.Fatalf("human ballot: %v", err)
	}

	// A bot in the room must not count toward the human-sized quorum.
	if err := e.votes.CastBallot(ctx, "r", "beep"); !errors.Is(err, ErrVoterNotEligible) {
		t.Fatalf("bot ballot: got=%v want=%v", err, ErrVoterNotEligible)
	}
	if len(e.plat.outcomes) != 0 {
		t.Fatalf("vote finalized on a bot ballot: %v", e.plat.outcomes)
	}
	if !e.votes.Active("r") {
		t.Fatal("session must keep collecting after a rejected bot ballot")
	}

	// A second human still completes the quorum.
	if err := e.votes.CastBallot(ctx, "r", "carol"); err != nil {
		t.Fatalf("second human ballot: %v", err)
	}
	outcome, ok := e.plat.lastOutcome()
	if !ok || !outcome.Passed || outcome.Approvals != 2 {
		t.Fatalf("unexpected outcome: %+v ok=%v", outcome, ok)
	}
}

func TestVotePassesEarlyOnQuorum(t *testing.T) {
	t.Parallel()

	e := voteFixture(t)
	ctx := context.Background()

	if _, err := e.votes.StartVote(ctx, "r", "alice", "bob"); err != nil {
		t.Fatalf("StartVote: %v", err)
	}
	if err := e.votes.CastBallot(ctx, "r", "alice"); err != nil {
		t.Fatalf("ballot alice: %v", err)
	}
	if err := e.votes.CastBallot(ctx, "r", "carol"); err != nil {
		t.Fatalf("ballot carol: %v", err)
	}

	outcome, ok := e.plat.lastOutcome()
	if !ok {
		t.Fatal("no outcome reported")
	}
	if !outcome.Passed || !outcome.Enforced || outcome.Approvals != 2 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(e.plat.disconnected) != 1 || e.plat.disconnected[0] != "bob" {
		t.Fatalf("disconnect calls: %v", e.plat.disconnected)
	}
	if len(e.plat.denied) != 1 || e.plat.denied[0] != "bob" {
		t.Fatalf("deny calls: %v", e.plat.denied)
	}
	if e.votes.Active("r") {
		t.Fatal("room must return to idle after finalization")
	}

	// The deadline timer must not fire a second finalization.
	e.clk.Advance(time.Minute)
	if len(e.plat.outcomes) != 1 {
		t.Fatalf("outcomes: got=%d want=1", len(e.plat.outcomes))
	}
}

func TestVoteFailsAtDeadlineWithoutQuorum(t *testing.T) {
	t.Parallel()

	e := voteFixture(t)
	ctx := context.Background()

	if _, err := e.votes.StartVote(ctx, "r", "alice", "bob"); err != nil {
		t.Fatalf("StartVote: %v", err)
	}
	if err := e.votes.CastBallot(ctx, "r", "alice"); err != nil {
		t.Fatalf("ballot: %v", err)
	}

	e.clk.Advance(30 * time.Second)

	outcome, ok := e.plat.lastOutcome()
	if !ok {
		t.Fatal("no outcome reported at deadline")
	}
	if outcome.Passed || outcome.Approvals != 1 || outcome.Required != 2 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(e.plat.disconnected) != 0 || len(e.plat.denied) != 0 {
		t.Fatal("failed vote must not trigger moderation")
	}
	if e.votes.Active("r") {
		t.Fatal("room must return to idle after a failed vote")
	}
}

func TestBallotRejections(t *testing.T) {
	t.Parallel()

	e := voteFixture(t)
	ctx := context.Background()

	if err := e.votes.CastBallot(ctx, "r", "alice"); !errors.Is(err, ErrNoActiveVote) {
		t.Fatalf("ballot before vote: got=%v want=%v", err, ErrNoActiveVote)
	}

	if _, err := e.votes.StartVote(ctx, "r", "alice", "bob"); err != nil {
		t.Fatalf("StartVote: %v", err)
	}
	if err := e.votes.CastBallot(ctx, "r", "alice"); err != nil {
		t.Fatalf("first ballot: %v", err)
	}
	if err := e.votes.CastBallot(ctx, "r", "alice"); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("duplicate ballot: got=%v want=%v", err, ErrAlreadyVoted)
	}
	if err := e.votes.CastBallot(ctx, "r", "stranger"); !errors.Is(err, ErrVoterNotPresent) {
		t.Fatalf("outsider ballot: got=%v want=%v", err, ErrVoterNotPresent)
	}

	// carol leaves, then tries to vote.
	e.plat.setOccupants("r", "alice", "bob")
	if err := e.votes.CastBallot(ctx, "r", "carol"); !errors.Is(err, ErrVoterNotPresent) {
		t.Fatalf("departed voter ballot: got=%v want=%v", err, ErrVoterNotPresent)
	}
}

func TestVotePassedButNotEnforced(t *testing.T) {
	t.Parallel()

	e := voteFixture(t)
	e.plat.disconnectErr = errors.New("missing permission")
	ctx := context.Background()

	if _, err := e.votes.StartVote(ctx, "r", "alice", "bob"); err != nil {
		t.Fatalf("StartVote: %v", err)
	}
	if err := e.votes.CastBallot(ctx, "r", "alice"); err != nil {
		t.Fatalf("ballot: %v", err)
	}
	if err := e.votes.CastBallot(ctx, "r", "carol"); err != nil {
		t.Fatalf("ballot: %v", err)
	}

	outcome, ok := e.plat.lastOutcome()
	if !ok {
		t.Fatal("no outcome reported")
	}
	if !outcome.Passed || outcome.Enforced {
		t.Fatalf("expected passed-but-not-enforced, got %+v", outcome)
	}
	// The entry ban is still attempted even when the disconnect fails.
	if len(e.plat.denied) != 1 {
		t.Fatalf("deny calls: %v", e.plat.denied)
	}
	if e.votes.Active("r") {
		t.Fatal("cleanup must happen regardless of enforcement errors")
	}
}

func TestDiscardDropsSessionSilently(t *testing.T) {
	t.Parallel()

	e := voteFixture(t)
	if _, err := e.votes.StartVote(context.Background(), "r", "alice", "bob"); err != nil {
		t.Fatalf("StartVote: %v", err)
	}

	e.votes.Discard("r")

	if e.votes.Active("r") {
		t.Fatal("discarded session still active")
	}
	e.clk.Advance(time.Minute)
	if len(e.plat.outcomes) != 0 {
		t.Fatalf("discarded session reported an outcome: %v", e.plat.outcomes)
	}
}
