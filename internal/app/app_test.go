package app

import (
	"context"
	"sync"
	"time"

	"github.com/gnupbl/partyvoice/internal/clock"
	"github.com/gnupbl/partyvoice/internal/domain"
	"github.com/gnupbl/partyvoice/internal/platform"
)

// fakePlatform is an in-memory stand-in for the chat platform. Tests
// preload members and occupancy and inspect the calls afterwards.
type fakePlatform struct {
	mu sync.Mutex

	members   map[domain.ParticipantID]domain.Participant
	occupancy map[domain.RoomID][]domain.Participant

	nextRoom domain.RoomID
	invite   string

	createErr     error
	inviteErr     error
	deleteErr     error
	disconnectErr error
	denyErr       error
	occupantsErr  error

	created      []string
	createdRules []domain.AccessRuleSet
	deleted      []domain.RoomID
	disconnected []domain.ParticipantID
	denied       []domain.ParticipantID
	notices      []platform.VoteNotice
	outcomes     []platform.VoteOutcome
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		members:   make(map[domain.ParticipantID]domain.Participant),
		occupancy: make(map[domain.RoomID][]domain.Participant),
		nextRoom:  "room-1",
		invite:    "https://discord.gg/test",
	}
}

func (f *fakePlatform) addMember(id domain.ParticipantID, bot bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[id] = domain.Participant{ID: id, Username: "u-" + string(id), Bot: bot}
}

func (f *fakePlatform) setOccupants(room domain.RoomID, ids ...domain.ParticipantID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	occ := make([]domain.Participant, 0, len(ids))
	for _, id := range ids {
		p, ok := f.members[id]
		if !ok {
			p = domain.Participant{ID: id}
		}
		occ = append(occ, p)
	}
	f.occupancy[room] = occ
}

func (f *fakePlatform) CreateRoom(_ context.Context, name string, rules domain.AccessRuleSet) (domain.RoomID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, name)
	f.createdRules = append(f.createdRules, rules)
	return f.nextRoom, nil
}

func (f *fakePlatform) DeleteRoom(_ context.Context, room domain.RoomID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, room)
	delete(f.occupancy, room)
	return nil
}

func (f *fakePlatform) CreateInvite(_ context.Context, room domain.RoomID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inviteErr != nil {
		return "", f.inviteErr
	}
	return f.invite, nil
}

func (f *fakePlatform) ResolveParticipant(_ context.Context, id domain.ParticipantID) (*domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.members[id]
	if !ok {
		return nil, platform.ErrNotFound
	}
	return &p, nil
}

func (f *fakePlatform) Occupants(_ context.Context, room domain.RoomID) ([]domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.occupantsErr != nil {
		return nil, f.occupantsErr
	}
	return f.occupancy[room], nil
}

func (f *fakePlatform) Disconnect(_ context.Context, id domain.ParticipantID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disconnectErr != nil {
		return f.disconnectErr
	}
	f.disconnected = append(f.disconnected, id)
	return nil
}

func (f *fakePlatform) DenyEntry(_ context.Context, _ domain.RoomID, id domain.ParticipantID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denyErr != nil {
		return f.denyErr
	}
	f.denied = append(f.denied, id)
	return nil
}

func (f *fakePlatform) AnnounceVote(_ context.Context, notice platform.VoteNotice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice)
	return nil
}

func (f *fakePlatform) ReportVoteOutcome(_ context.Context, outcome platform.VoteOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
	return nil
}

func (f *fakePlatform) lastOutcome() (platform.VoteOutcome, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.outcomes) == 0 {
		return platform.VoteOutcome{}, false
	}
	return f.outcomes[len(f.outcomes)-1], true
}

// engine bundles a fully wired engine on fakes for tests.
type engine struct {
	plat    *fakePlatform
	clk     *clock.Fake
	reg     *Registry
	votes   *VoteCoordinator
	reclaim *Reclaimer
	orch    *Orchestrator
}

func newEngine() *engine {
	plat := newFakePlatform()
	clk := clock.NewFake(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	reg := NewRegistry()
	votes := NewVoteCoordinator(clk, 30*time.Second, reg, plat)
	reclaim := NewReclaimer(clk, 60*time.Second, reg, votes, plat)
	return &engine{
		plat:    plat,
		clk:     clk,
		reg:     reg,
		votes:   votes,
		reclaim: reclaim,
		orch: &Orchestrator{
			Registry: reg,
			Reclaim:  reclaim,
			Votes:    votes,
			Platform: plat,
		},
	}
}
