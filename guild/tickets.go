package guild

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"guildwarden/events"
	"guildwarden/platform"
	"guildwarden/settings"
)

// Ticket settings.
const (
	keyTicketChannels    = "tickets.channels"
	keyTicketIncrement   = "tickets.increment"
	keyTicketLimit       = "tickets.limit"
	keyTicketName        = "tickets.name"
	keyTicketParent      = "tickets.parent"
	keyTicketDescription = "tickets.description"
	keyTicketAlert       = "tickets.alert"
	keyTicketLogs        = "tickets.transcript_logs"
	keyTimezone          = "utils.timezone"
)

const (
	defaultTicketName = "ticket-{increment}"
	maxChannelName    = 100

	// ticketButtonExperiment gates the close button on ticket openers.
	ticketButtonExperiment int64 = 1621199146

	// CloseButtonPrefix starts the custom ID of a ticket's close button.
	CloseButtonPrefix = "ticket_close_"
)

var (
	crabPattern = regexp.MustCompile(`(?i)crab`)
	snowflake   = regexp.MustCompile(`\d{15,21}`)
)

// CreateTicket opens a private ticket channel for authorID. categoryID may be
// empty to use the configured category.
func (s *Supervisor) CreateTicket(ctx context.Context, guildID, authorID, subject, categoryID string) (*discordgo.Channel, error) {
	state, ok := s.State(guildID)
	if !ok {
		return nil, ErrUnknownGuild
	}

	author, err := s.platform.Member(ctx, guildID, authorID)
	if errors.Is(err, platform.ErrNotFound) {
		return nil, OutcomeAuthorMismatch
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ticket author: %w", err)
	}

	blacklisted, err := s.blacklist.IsBlacklisted(ctx, guildID, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if blacklisted {
		return nil, OutcomeBlacklisted
	}

	if categoryID == "" {
		categoryID = settings.Value(ctx, s.settings, guildID, keyTicketParent, "")
	}
	channels, err := s.platform.Channels(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	category := findChannel(channels, categoryID)
	if category == nil || category.Type != discordgo.ChannelTypeGuildCategory {
		return nil, OutcomeDisabled
	}

	me, err := s.platform.Self(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bot member: %w", err)
	}

	limit := max(settings.Value(ctx, s.settings, guildID, keyTicketLimit, 1), 1)
	pool := state.ticketPool(limit)
	if pool.Available() == 0 {
		return nil, OutcomeLock
	}
	permit, err := pool.Acquire(ctx, permitTimeout)
	if err != nil {
		return nil, err
	}
	defer permit.Release()

	if err := s.reserveTicket(ctx, state, authorID, limit); err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			state.ticketList.Lock()
			state.unreserve(authorID)
			state.ticketList.Unlock()
		}
	}()

	name := s.nextTicketName(ctx, state, author.User)
	topic := fmt.Sprintf("Ticket created by %s (%s) with subject \"%s\"", author.User.Mention(), authorID, subject)
	ticket, err := s.platform.CreateChannel(ctx, guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                topic,
		ParentID:             category.ID,
		PermissionOverwrites: composeTicketOverwrites(category.PermissionOverwrites, authorID, me.User.ID, guildID),
	}, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket channel: %w", err)
	}

	opener := s.sendTicketOpener(ctx, guildID, ticket, author, subject)

	s.commitTicket(ctx, state, authorID, ticket.ID)
	committed = true

	permit.Release()

	ev := events.Event{Name: events.TicketCreate, GuildID: guildID, ChannelID: ticket.ID, UserID: authorID}
	if opener != nil {
		ev.MessageID = opener.ID
	}
	s.notifier.Emit(ctx, ev)
	s.logger.Info("Ticket created",
		zap.String("guild_id", guildID),
		zap.String("channel_id", ticket.ID),
		zap.String("author_id", authorID))
	return ticket, nil
}

// CloseTicket archives and deletes a ticket channel. The closer must be the
// ticket's author or hold ManageChannels.
func (s *Supervisor) CloseTicket(ctx context.Context, guildID, channelID, closerID, reason string) (*discordgo.Channel, error) {
	state, ok := s.State(guildID)
	if !ok {
		return nil, ErrUnknownGuild
	}
	closer, err := s.platform.Member(ctx, guildID, closerID)
	if errors.Is(err, platform.ErrNotFound) {
		return nil, OutcomeForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ticket closer: %w", err)
	}

	channel, channels, err := s.detachTicket(ctx, state, closer, channelID)
	if err != nil {
		return nil, err
	}

	record := newTranscript(s.location(ctx, guildID))
	if err := s.platform.Messages(ctx, channelID, func(m *discordgo.Message) error {
		record.add(m)
		return nil
	}); err != nil {
		s.logger.Warn("Failed to read ticket history",
			zap.String("guild_id", guildID),
			zap.String("channel_id", channelID),
			zap.Error(err))
	}
	body := record.close(closer.User)
	filename := channel.Name + "-transcript.txt"

	creator := closer
	if authorID := ticketAuthorID(channel.Topic); authorID != "" && authorID != closerID {
		if member, err := s.platform.Member(ctx, guildID, authorID); err == nil {
			creator = member
		}
	}
	_, err = s.platform.SendDirect(ctx, creator.User.ID, &discordgo.MessageSend{
		Content: fmt.Sprintf("Your ticket in %s was closed for the reason \"%s\". The transcript is below", guildName(ctx, s.platform, guildID), reason),
		Files:   []*discordgo.File{transcriptFile(filename, body)},
	})
	if err != nil {
		s.logger.Debug("Failed to deliver transcript", zap.String("user_id", creator.User.ID), zap.Error(err))
	}

	if logID := s.transcriptLog(ctx, guildID, channels); logID != "" {
		roles, _ := s.platform.Roles(ctx, guildID)
		color := memberColor(closer, roles)
		if color == 0 {
			color = colorDefault
		}
		embed := &discordgo.MessageEmbed{
			Title:     fmt.Sprintf("Ticket %s was closed", channel.Name),
			Color:     color,
			Timestamp: s.now().Format(time.RFC3339),
			Fields: []*discordgo.MessageEmbedField{
				embedField("Closed by", fmt.Sprintf("%s (%s)", closer.User.Mention(), closer.User.ID)),
				embedField("Reason", reason),
			},
		}
		_, err := s.platform.Send(ctx, logID, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{embed},
			Files:  []*discordgo.File{transcriptFile(filename, body)},
		})
		if err != nil {
			s.logger.Debug("Failed to log closed ticket", zap.String("channel_id", logID), zap.Error(err))
		}
	}

	s.notifier.Emit(ctx, events.Event{Name: events.TicketClose, GuildID: guildID, ChannelID: channelID, UserID: creator.User.ID})

	deleted, err := s.platform.DeleteChannel(ctx, channelID, "Ticket closed")
	if err != nil {
		return nil, fmt.Errorf("failed to delete ticket channel: %w", err)
	}
	s.logger.Info("Ticket closed",
		zap.String("guild_id", guildID),
		zap.String("channel_id", channelID),
		zap.String("closer_id", closerID))
	return deleted, nil
}

// Tickets lists the guild's open ticket channels.
func (s *Supervisor) Tickets(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	channels, err := s.platform.Channels(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return s.openTickets(ctx, guildID, channels), nil
}

// reserveTicket counts the author's listed and in-flight tickets and holds one
// more for them when that is below limit.
func (s *Supervisor) reserveTicket(ctx context.Context, state *TenantState, authorID string, limit int) error {
	state.ticketList.Lock()
	defer state.ticketList.Unlock()

	channels, err := s.platform.Channels(ctx, state.GuildID)
	if err != nil {
		return fmt.Errorf("failed to list channels: %w", err)
	}
	owned := state.reserved[authorID]
	for _, ticket := range s.openTickets(ctx, state.GuildID, channels) {
		if strings.Contains(ticket.Topic, authorID) {
			owned++
		}
	}
	if owned >= limit {
		return OutcomeLimit
	}
	state.reserved[authorID]++
	return nil
}

// commitTicket appends a created ticket to the stored list, dropping channels
// that vanished, and turns the author's reservation into that entry.
func (s *Supervisor) commitTicket(ctx context.Context, state *TenantState, authorID, channelID string) {
	state.ticketList.Lock()
	defer state.ticketList.Unlock()
	defer state.unreserve(authorID)

	guildID := state.GuildID
	var ids []string
	if channels, err := s.platform.Channels(ctx, guildID); err == nil {
		for _, ticket := range s.openTickets(ctx, guildID, channels) {
			if ticket.ID != channelID {
				ids = append(ids, ticket.ID)
			}
		}
	} else {
		// Keep every stored ID rather than guess which vanished.
		ids = settings.Value(ctx, s.settings, guildID, keyTicketChannels, []string(nil))
	}
	ids = append(ids, channelID)
	if err := s.settings.Set(ctx, guildID, keyTicketChannels, ids); err != nil {
		s.logger.Warn("Failed to save ticket channels", zap.String("guild_id", guildID), zap.Error(err))
	}
}

// detachTicket removes channelID from the stored list if closer may close it.
// It also returns the guild's channels for the caller's log lookups.
func (s *Supervisor) detachTicket(ctx context.Context, state *TenantState, closer *discordgo.Member, channelID string) (*discordgo.Channel, []*discordgo.Channel, error) {
	state.ticketList.Lock()
	defer state.ticketList.Unlock()

	guildID := state.GuildID
	channels, err := s.platform.Channels(ctx, guildID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list channels: %w", err)
	}
	open := s.openTickets(ctx, guildID, channels)
	channel := findChannel(open, channelID)
	if channel == nil {
		return nil, nil, OutcomeNonTicket
	}

	manager, err := s.hasPermission(ctx, guildID, "", closer, discordgo.PermissionManageChannels)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check closer permissions: %w", err)
	}
	if !manager && !strings.Contains(channel.Topic, closer.User.ID) {
		return nil, nil, OutcomeForbidden
	}

	remaining := make([]string, 0, len(open))
	for _, ticket := range open {
		if ticket.ID != channelID {
			remaining = append(remaining, ticket.ID)
		}
	}
	if len(remaining) > 0 {
		err = s.settings.Set(ctx, guildID, keyTicketChannels, remaining)
	} else {
		err = s.settings.Delete(ctx, guildID, keyTicketChannels)
	}
	if err != nil {
		s.logger.Warn("Failed to save ticket channels", zap.String("guild_id", guildID), zap.Error(err))
	}
	return channel, channels, nil
}

// openTickets maps the stored ticket IDs onto live text channels, dropping
// any that no longer exist.
func (s *Supervisor) openTickets(ctx context.Context, guildID string, channels []*discordgo.Channel) []*discordgo.Channel {
	ids := settings.Value(ctx, s.settings, guildID, keyTicketChannels, []string(nil))
	open := make([]*discordgo.Channel, 0, len(ids))
	for _, id := range ids {
		if channel := findChannel(channels, id); channel != nil && channel.Type == discordgo.ChannelTypeGuildText {
			open = append(open, channel)
		}
	}
	return open
}

// nextTicketName renders the name template and advances the counter.
func (s *Supervisor) nextTicketName(ctx context.Context, state *TenantState, author *discordgo.User) string {
	state.sequence.Lock()
	defer state.sequence.Unlock()

	guildID := state.GuildID
	increment := settings.Value(ctx, s.settings, guildID, keyTicketIncrement, 0)
	template := settings.Value(ctx, s.settings, guildID, keyTicketName, defaultTicketName)
	name := renderTicketName(template, []ticketVariable{
		{"{increment}", strconv.Itoa(increment)},
		{"{name}", author.Username},
		{"{id}", author.ID},
		{"{word}", s.randomWord()},
		{"{uuid}", uuid.NewString()[:4]},
		{"{crab}", "🦀"},
	})
	if err := s.settings.Set(ctx, guildID, keyTicketIncrement, increment+1); err != nil {
		s.logger.Warn("Failed to save ticket counter", zap.String("guild_id", guildID), zap.Error(err))
	}
	return name
}

type ticketVariable struct {
	key, value string
}

// renderTicketName replaces the first occurrence of each variable in order,
// then every "crab".
func renderTicketName(template string, vars []ticketVariable) string {
	name := template
	for _, v := range vars {
		name = strings.Replace(name, v.key, v.value, 1)
	}
	name = crabPattern.ReplaceAllString(name, "🦀")
	if runes := []rune(name); len(runes) > maxChannelName {
		name = string(runes[:maxChannelName])
	}
	return name
}

// composeTicketOverwrites inherits the category's overwrites, minus Manage
// Roles and minus anything for the author, the bot or @everyone, then adds
// the ticket's own entries for those three.
func composeTicketOverwrites(inherited []*discordgo.PermissionOverwrite, authorID, botID, everyoneID string) []*discordgo.PermissionOverwrite {
	overwrites := make([]*discordgo.PermissionOverwrite, 0, len(inherited)+3)
	for _, ow := range inherited {
		if ow.ID == authorID || ow.ID == botID || ow.ID == everyoneID {
			continue
		}
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    ow.ID,
			Type:  ow.Type,
			Allow: ow.Allow &^ discordgo.PermissionManageRoles,
			Deny:  ow.Deny &^ discordgo.PermissionManageRoles,
		})
	}
	return append(overwrites,
		&discordgo.PermissionOverwrite{
			ID:    authorID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		},
		&discordgo.PermissionOverwrite{
			ID:    botID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionManageChannels,
		},
		&discordgo.PermissionOverwrite{
			ID:   everyoneID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
	)
}

func (s *Supervisor) sendTicketOpener(ctx context.Context, guildID string, ticket *discordgo.Channel, author *discordgo.Member, subject string) *discordgo.Message {
	roles, err := s.platform.Roles(ctx, guildID)
	if err != nil {
		s.logger.Debug("Failed to list roles", zap.String("guild_id", guildID), zap.Error(err))
	}
	color := memberColor(author, roles)
	if color == 0 {
		color = colorDefault
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Ticket opened by %s", author.User.Username),
		Description: settings.Value(ctx, s.settings, guildID, keyTicketDescription, ""),
		Color:       color,
		Timestamp:   s.now().Format(time.RFC3339),
		Fields:      []*discordgo.MessageEmbedField{embedField("Subject", subject)},
	}
	msg := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}

	if alertID := settings.Value(ctx, s.settings, guildID, keyTicketAlert, ""); alertID != "" && findRole(roles, alertID) != nil && !s.isModerator(ctx, guildID, author) {
		msg.Content = fmt.Sprintf("<@&%s>", alertID)
		msg.AllowedMentions = &discordgo.MessageAllowedMentions{Roles: []string{alertID}}
	}
	if s.hasExperiment(guildID, ticketButtonExperiment, 1) {
		msg.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Close Ticket",
					Style:    discordgo.DangerButton,
					CustomID: CloseButtonPrefix + ticket.ID,
				},
			}},
		}
	}

	opener, err := s.platform.Send(ctx, ticket.ID, msg)
	if err != nil {
		s.logger.Debug("Failed to send ticket opener", zap.String("channel_id", ticket.ID), zap.Error(err))
		return nil
	}
	return opener
}

// transcriptLog is the channel closed tickets are logged to, if it exists.
func (s *Supervisor) transcriptLog(ctx context.Context, guildID string, channels []*discordgo.Channel) string {
	for _, key := range []string{keyTicketLogs, keyActionLog} {
		id := settings.Value(ctx, s.settings, guildID, key, "")
		if id != "" && findChannel(channels, id) != nil {
			return id
		}
	}
	return ""
}

func (s *Supervisor) location(ctx context.Context, guildID string) *time.Location {
	name := settings.Value(ctx, s.settings, guildID, keyTimezone, "")
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ticketAuthorID pulls the author's ID out of a ticket topic.
func ticketAuthorID(topic string) string {
	return snowflake.FindString(topic)
}

func transcriptFile(name string, body []byte) *discordgo.File {
	return &discordgo.File{Name: name, ContentType: "text/plain", Reader: bytes.NewReader(body)}
}

func guildName(ctx context.Context, p Platform, guildID string) string {
	g, err := p.Guild(ctx, guildID)
	if err != nil || g.Name == "" {
		return "the server"
	}
	return g.Name
}

func findChannel(channels []*discordgo.Channel, id string) *discordgo.Channel {
	if id == "" {
		return nil
	}
	for _, channel := range channels {
		if channel.ID == id {
			return channel
		}
	}
	return nil
}

func findRole(roles []*discordgo.Role, id string) *discordgo.Role {
	for _, role := range roles {
		if role.ID == id {
			return role
		}
	}
	return nil
}
