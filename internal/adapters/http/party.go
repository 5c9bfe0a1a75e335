package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/gnupbl/partyvoice/internal/app"
	"github.com/gnupbl/partyvoice/internal/domain"
	"github.com/gnupbl/partyvoice/internal/platform"
)

// createPartyTimeout bounds member resolution plus room creation for
// one request; expiry maps to 503 so the matchmaking backend can retry
// on its side.
const createPartyTimeout = 10 * time.Second

// PartyService is the slice of the orchestrator this surface needs.
type PartyService interface {
	CreateEphemeralRoom(ctx context.Context, initiator domain.ParticipantID, invitees []domain.ParticipantID) (*app.PartyResult, error)
}

// RoomLister exposes the registry's tracked rooms for the debug list.
type RoomLister interface {
	List() []domain.Room
}

type createPartyRequest struct {
	MemberIDs []any `json:"memberIds"`
}

type createPartyResponse struct {
	Message     string   `json:"message"`
	InviteLink  string   `json:"inviteLink,omitempty"`
	NotFoundIDs []string `json:"notFoundIds"`
}

// memberIDs coerces the wire-level ids, which arrive as strings or
// numbers depending on the caller, into participant ids. Numbers are
// decoded as json.Number so snowflakes survive without float rounding.
func (r createPartyRequest) memberIDs() ([]domain.ParticipantID, error) {
	out := make([]domain.ParticipantID, 0, len(r.MemberIDs))
	for _, raw := range r.MemberIDs {
		switch v := raw.(type) {
		case string:
			if v == "" {
				return nil, fmt.Errorf("empty member id")
			}
			out = append(out, domain.ParticipantID(v))
		case json.Number:
			out = append(out, domain.ParticipantID(v.String()))
		default:
			return nil, fmt.Errorf("member id must be a string or number, got %T", raw)
		}
	}
	return out, nil
}

func handleCreateParty(svc PartyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createPartyRequest
		dec := json.NewDecoder(c.Request.Body)
		dec.UseNumber()
		if err := dec.Decode(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}

		ids, err := req.memberIDs()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if len(ids) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "memberIds must not be empty"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), createPartyTimeout)
		defer cancel()

		// The first id is the party leader; the rest are invitees.
		res, err := svc.CreateEphemeralRoom(ctx, ids[0], ids[1:])
		if err != nil {
			status, msg := translateCreateErr(err)
			log.Warn().Str("module", "adapters.http").
				Str("request_id", c.GetString("request_id")).
				Int("status", status).Err(err).Msg("create-party failed")
			c.JSON(status, gin.H{"error": msg})
			return
		}

		notFound := make([]string, 0, len(res.NotFound))
		for _, id := range res.NotFound {
			notFound = append(notFound, string(id))
		}
		c.JSON(http.StatusOK, createPartyResponse{
			Message:     fmt.Sprintf("party room %q created", res.Name),
			InviteLink:  res.InviteLink,
			NotFoundIDs: notFound,
		})
	}
}

func translateCreateErr(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNoValidMembers):
		return http.StatusBadRequest, "no valid members to create a room for"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "member resolution timed out"
	case errors.Is(err, platform.ErrNotFound):
		return http.StatusInternalServerError, "target community not found"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

type roomView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func handleListRooms(rooms RoomLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		list := rooms.List()
		out := make([]roomView, 0, len(list))
		for _, room := range list {
			out = append(out, roomView{
				ID:        string(room.ID),
				Name:      room.Name,
				CreatedAt: room.CreatedAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"rooms": out})
	}
}
