// Package discord adapts the engine's platform contract onto the
// Discord API and feeds gateway events back into the engine.
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/gnupbl/partyvoice/internal/domain"
	"github.com/gnupbl/partyvoice/internal/platform"
)

// Client implements platform.Platform for a single guild.
type Client struct {
	session *discordgo.Session
	guildID string
}

func NewClient(session *discordgo.Session, guildID string) *Client {
	return &Client{session: session, guildID: guildID}
}

// translateErr maps Discord REST errors onto the platform sentinels so
// the engine never has to know about numeric API codes.
func translateErr(err error) error {
	var rerr *discordgo.RESTError
	if !errors.As(err, &rerr) || rerr.Message == nil {
		return err
	}
	switch rerr.Message.Code {
	case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
		return fmt.Errorf("%w: %s", platform.ErrNotFound, rerr.Message.Message)
	case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
		return fmt.Errorf("%w: %s", platform.ErrPermissionDenied, rerr.Message.Message)
	}
	return err
}

func (c *Client) CreateRoom(ctx context.Context, name string, rules domain.AccessRuleSet) (domain.RoomID, error) {
	overwrites := make([]*discordgo.PermissionOverwrite, 0, len(rules.Allow)+1)
	if rules.DenyEveryone {
		// The @everyone role shares the guild's id.
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:   c.guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionVoiceConnect,
		})
	}
	for _, id := range rules.Allow {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    string(id),
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionVoiceConnect,
		})
	}

	ch, err := c.session.GuildChannelCreateComplex(c.guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildVoice,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", translateErr(err)
	}
	return domain.RoomID(ch.ID), nil
}

func (c *Client) DeleteRoom(ctx context.Context, room domain.RoomID) error {
	_, err := c.session.ChannelDelete(string(room), discordgo.WithContext(ctx))
	return translateErr(err)
}

func (c *Client) CreateInvite(ctx context.Context, room domain.RoomID) (string, error) {
	inv, err := c.session.ChannelInviteCreate(string(room), discordgo.Invite{
		MaxAge:    0, // never expires
		MaxUses:   0, // unlimited
		Temporary: false,
		Unique:    true,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", translateErr(err)
	}
	return "https://discord.gg/" + inv.Code, nil
}

func (c *Client) ResolveParticipant(ctx context.Context, id domain.ParticipantID) (*domain.Participant, error) {
	m, err := c.session.GuildMember(c.guildID, string(id), discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateErr(err)
	}
	return &domain.Participant{
		ID:       id,
		Username: m.User.Username,
		Bot:      m.User.Bot,
	}, nil
}

// Occupants reads the gateway state cache rather than the REST API:
// voice states are only delivered over the gateway, and the cache is
// the platform's authoritative live view of who is connected.
func (c *Client) Occupants(ctx context.Context, room domain.RoomID) ([]domain.Participant, error) {
	guild, err := c.session.State.Guild(c.guildID)
	if err != nil {
		return nil, fmt.Errorf("%w: guild %s", platform.ErrNotFound, c.guildID)
	}
	var out []domain.Participant
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != string(room) {
			continue
		}
		p := domain.Participant{ID: domain.ParticipantID(vs.UserID)}
		if m, err := c.session.State.Member(c.guildID, vs.UserID); err == nil && m.User != nil {
			p.Username = m.User.Username
			p.Bot = m.User.Bot
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *Client) Disconnect(ctx context.Context, id domain.ParticipantID) error {
	// Moving a member to the nil channel drops them from voice.
	err := c.session.GuildMemberMove(c.guildID, string(id), nil, discordgo.WithContext(ctx))
	return translateErr(err)
}

func (c *Client) DenyEntry(ctx context.Context, room domain.RoomID, id domain.ParticipantID) error {
	err := c.session.ChannelPermissionSet(
		string(room), string(id),
		discordgo.PermissionOverwriteTypeMember,
		0, discordgo.PermissionVoiceConnect,
		discordgo.WithContext(ctx),
	)
	return translateErr(err)
}

func (c *Client) AnnounceVote(ctx context.Context, notice platform.VoteNotice) error {
	content := fmt.Sprintf(
		"🗳️ <@%s> started a vote to remove <@%s> from this room.\n%d vote(s) needed within %d seconds.",
		notice.Initiator.ID, notice.Target.ID, notice.Required, notice.WindowSec,
	)
	_, err := c.session.ChannelMessageSendComplex(string(notice.Room), &discordgo.MessageSend{
		Content: content,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Vote to remove",
						Style:    discordgo.DangerButton,
						CustomID: ballotCustomID(notice.Room),
					},
				},
			},
		},
	}, discordgo.WithContext(ctx))
	return translateErr(err)
}

func (c *Client) ReportVoteOutcome(ctx context.Context, outcome platform.VoteOutcome) error {
	var content string
	switch {
	case outcome.Passed && outcome.Enforced:
		content = fmt.Sprintf("✅ Vote passed (%d/%d). <@%s> was removed from the room.",
			outcome.Approvals, outcome.Required, outcome.Target)
	case outcome.Passed:
		content = fmt.Sprintf("⚠️ Vote passed (%d/%d) but <@%s> could not be removed. Check the bot's permissions.",
			outcome.Approvals, outcome.Required, outcome.Target)
	default:
		content = fmt.Sprintf("❌ Vote failed: %d of %d required vote(s).",
			outcome.Approvals, outcome.Required)
	}
	_, err := c.session.ChannelMessageSend(string(outcome.Room), content, discordgo.WithContext(ctx))
	return translateErr(err)
}
