package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/gnupbl/partyvoice/internal/app"
	"github.com/gnupbl/partyvoice/internal/domain"
)

// interactionTimeout bounds platform round-trips made while serving a
// single slash command or button press. Discord drops interaction
// tokens after 3 seconds unless deferred, so creation replies are
// deferred first.
const interactionTimeout = 15 * time.Second

// Gateway subscribes to guild events and translates them into engine
// calls: voice-state updates become occupancy notifications, slash
// commands become creation/vote requests, button presses become
// ballots.
type Gateway struct {
	session *discordgo.Session
	guildID string
	orch    *app.Orchestrator
}

func NewGateway(session *discordgo.Session, guildID string, orch *app.Orchestrator) *Gateway {
	return &Gateway{session: session, guildID: guildID, orch: orch}
}

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "party",
		Description: "Create a temporary voice room only the mentioned members can enter",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "members",
				Description: "Mention the members to invite (optional)",
				Required:    false,
			},
		},
	},
	{
		Name:        "votekick",
		Description: "Start a vote to remove a member from your party room",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "target",
				Description: "The member to vote out",
				Required:    true,
			},
		},
	},
}

// Start registers the event handlers and opens the gateway socket.
func (g *Gateway) Start() error {
	g.session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	g.session.AddHandler(g.onReady)
	g.session.AddHandler(g.onInteraction)
	g.session.AddHandler(g.onVoiceStateUpdate)
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

func (g *Gateway) Close() error { return g.session.Close() }

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Info().Str("module", "adapters.discord").Str("user", r.User.Username).Msg("gateway ready")
	if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, g.guildID, commands); err != nil {
		log.Error().Str("module", "adapters.discord").Err(err).Msg("command registration failed")
	}
}

func (g *Gateway) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case "party":
			g.handleParty(i)
		case "votekick":
			g.handleVotekick(i)
		}
	case discordgo.InteractionMessageComponent:
		if room, ok := parseBallotCustomID(i.MessageComponentData().CustomID); ok {
			g.handleBallot(i, room)
		}
	}
}

func (g *Gateway) handleParty(i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	// Room creation takes several round-trips; acknowledge first so
	// the interaction token does not expire under us.
	if err := g.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		log.Warn().Str("module", "adapters.discord").Err(err).Msg("defer failed")
		return
	}

	var invitees []domain.ParticipantID
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "members" {
			invitees = ParseMentions(opt.StringValue())
		}
	}
	initiator := domain.ParticipantID(i.Member.User.ID)

	res, err := g.orch.CreateEphemeralRoom(ctx, initiator, invitees)
	if err != nil {
		g.followUp(i, partyFailureMessage(err))
		log.Error().Str("module", "adapters.discord").Err(err).Msg("party creation failed")
		return
	}

	msg := fmt.Sprintf("✅ Party room created: <#%s>", res.Room)
	if res.InviteLink != "" {
		msg += "\nInvite: " + res.InviteLink
	}
	if len(res.NotFound) > 0 {
		msg += fmt.Sprintf("\n(%d mentioned member(s) could not be found and were skipped.)", len(res.NotFound))
	}
	g.followUp(i, msg)
}

// partyFailureMessage picks the user-facing reply for a failed room
// creation. No valid members gets its own wording; everything else is
// almost always a permission problem on the bot's side.
func partyFailureMessage(err error) string {
	if errors.Is(err, domain.ErrNoValidMembers) {
		return "⚠️ No valid members to create a room for."
	}
	return "⚠️ Could not create the party room. Check the bot's permissions."
}

func (g *Gateway) handleVotekick(i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return
	}
	target := domain.ParticipantID(data.Options[0].UserValue(nil).ID)
	initiator := domain.ParticipantID(i.Member.User.ID)

	room, ok := g.voiceRoomOf(initiator)
	if !ok {
		g.ephemeralReply(i, "⚠️ Join a party voice room first.")
		return
	}

	_, err := g.orch.Votes.StartVote(ctx, room, initiator, target)
	switch {
	case err == nil:
		g.ephemeralReply(i, "🗳️ Vote started.")
	case errors.Is(err, domain.ErrIneligibleRoom):
		g.ephemeralReply(i, "⚠️ Votes only work inside party rooms.")
	case errors.Is(err, domain.ErrVoteInProgress):
		g.ephemeralReply(i, "⚠️ A vote is already running in this room.")
	case errors.Is(err, domain.ErrTargetNotPresent):
		g.ephemeralReply(i, "⚠️ That member is not in your room.")
	case errors.Is(err, domain.ErrSelfTargetForbidden):
		g.ephemeralReply(i, "⚠️ You cannot vote against yourself.")
	default:
		g.ephemeralReply(i, "⚠️ Could not start the vote.")
		log.Error().Str("module", "adapters.discord").Err(err).Msg("vote start failed")
	}
}

func (g *Gateway) handleBallot(i *discordgo.InteractionCreate, room domain.RoomID) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	voter := domain.ParticipantID(i.Member.User.ID)
	err := g.orch.Votes.CastBallot(ctx, room, voter)
	switch {
	case err == nil:
		g.ephemeralReply(i, "🗳️ Ballot counted.")
	case errors.Is(err, app.ErrNoActiveVote):
		g.ephemeralReply(i, "⚠️ This vote has already ended.")
	case errors.Is(err, app.ErrAlreadyVoted):
		g.ephemeralReply(i, "⚠️ You already voted.")
	case errors.Is(err, app.ErrVoterNotPresent):
		g.ephemeralReply(i, "⚠️ Only members in the room can vote.")
	case errors.Is(err, app.ErrVoterNotEligible):
		g.ephemeralReply(i, "⚠️ Bots do not get a vote.")
	default:
		g.ephemeralReply(i, "⚠️ Could not record your ballot.")
		log.Error().Str("module", "adapters.discord").Err(err).Msg("ballot failed")
	}
}

// onVoiceStateUpdate turns join/leave/move events into occupancy
// notifications for the channels involved. Counts come from the state
// cache, which discordgo updates before running handlers.
func (g *Gateway) onVoiceStateUpdate(s *discordgo.Session, e *discordgo.VoiceStateUpdate) {
	if e.GuildID != g.guildID {
		return
	}
	var oldChannel string
	if e.BeforeUpdate != nil {
		oldChannel = e.BeforeUpdate.ChannelID
	}
	newChannel := e.ChannelID
	if oldChannel == newChannel {
		return
	}

	if oldChannel != "" {
		current := g.channelOccupancy(oldChannel)
		g.orch.OnOccupancyChanged(domain.RoomID(oldChannel), current+1, current)
	}
	if newChannel != "" {
		current := g.channelOccupancy(newChannel)
		previous := current - 1
		if previous < 0 {
			previous = 0
		}
		g.orch.OnOccupancyChanged(domain.RoomID(newChannel), previous, current)
	}
}

func (g *Gateway) channelOccupancy(channelID string) int {
	guild, err := g.session.State.Guild(g.guildID)
	if err != nil {
		return 0
	}
	n := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID {
			n++
		}
	}
	return n
}

// voiceRoomOf finds which voice channel the participant currently
// occupies, if any.
func (g *Gateway) voiceRoomOf(id domain.ParticipantID) (domain.RoomID, bool) {
	guild, err := g.session.State.Guild(g.guildID)
	if err != nil {
		return "", false
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == string(id) && vs.ChannelID != "" {
			return domain.RoomID(vs.ChannelID), true
		}
	}
	return "", false
}

func (g *Gateway) ephemeralReply(i *discordgo.InteractionCreate, content string) {
	err := g.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Warn().Str("module", "adapters.discord").Err(err).Msg("interaction reply failed")
	}
}

func (g *Gateway) followUp(i *discordgo.InteractionCreate, content string) {
	_, err := g.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
	})
	if err != nil {
		log.Warn().Str("module", "adapters.discord").Err(err).Msg("followup failed")
	}
}

const ballotPrefix = "votekick:"

func ballotCustomID(room domain.RoomID) string {
	return ballotPrefix + string(room)
}

func parseBallotCustomID(custom string) (domain.RoomID, bool) {
	if !strings.HasPrefix(custom, ballotPrefix) {
		return "", false
	}
	return domain.RoomID(strings.TrimPrefix(custom, ballotPrefix)), true
}
