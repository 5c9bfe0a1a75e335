package app

import (
	"testing"
	"time"

	"github.com/gnupbl/partyvoice/internal/domain"
)

func TestRegistryTracksEphemeralRooms(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if reg.IsEphemeral("unknown") {
		t.Fatal("empty registry should not know any room")
	}

	now := time.Now()
	reg.RegisterEphemeral(domain.Room{ID: "a", Name: "party a", CreatedAt: now})
	reg.RegisterEphemeral(domain.Room{ID: "a", Name: "party a", CreatedAt: now}) // idempotent
	reg.RegisterEphemeral(domain.Room{ID: "b", Name: "party b", CreatedAt: now})

	if !reg.IsEphemeral("a") || !reg.IsEphemeral("b") {
		t.Fatal("registered rooms must report ephemeral")
	}
	if got := len(reg.List()); got != 2 {
		t.Fatalf("List: got=%d want=2", got)
	}

	reg.Forget("a")
	if reg.IsEphemeral("a") {
		t.Fatal("forgotten room still reported ephemeral")
	}
	reg.Forget("a") // no-op on unknown id
	reg.Forget("never-registered")

	rooms := reg.List()
	if len(rooms) != 1 || rooms[0].ID != "b" {
		t.Fatalf("List after forget: got=%v", rooms)
	}
	if rooms[0].Name != "party b" {
		t.Fatalf("room metadata lost: %+v", rooms[0])
	}
}
