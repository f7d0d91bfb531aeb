package guild

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guildwarden/model"
	"guildwarden/platform"
)

// LoadMutes replaces the cached mutes with the persisted ones.
func (s *Supervisor) LoadMutes(ctx context.Context, guildID string) error {
	return s.loadPunishments(ctx, guildID, model.PunishmentMute)
}

// LoadBans replaces the cached temporary bans with the persisted ones.
func (s *Supervisor) LoadBans(ctx context.Context, guildID string) error {
	return s.loadPunishments(ctx, guildID, model.PunishmentBan)
}

func (s *Supervisor) loadPunishments(ctx context.Context, guildID string, kind model.PunishmentKind) error {
	state, ok := s.State(guildID)
	if !ok {
		return ErrUnknownGuild
	}
	state.records.Lock()
	defer state.records.Unlock()
	records, err := s.punishments.List(ctx, guildID, kind)
	if err != nil {
		return fmt.Errorf("failed to load %s records: %w", kind, err)
	}
	set := make(map[string]time.Time, len(records))
	for _, record := range records {
		set[record.UserID] = record.Expiry()
	}
	state.replacePunishments(kind, set)
	return nil
}

// RecordMute stores a mute that expires at until; the zero time never expires.
func (s *Supervisor) RecordMute(ctx context.Context, guildID, userID string, until time.Time) error {
	return s.recordPunishment(ctx, guildID, userID, model.PunishmentMute, until)
}

// RecordTempBan stores a ban that expires at until.
func (s *Supervisor) RecordTempBan(ctx context.Context, guildID, userID string, until time.Time) error {
	return s.recordPunishment(ctx, guildID, userID, model.PunishmentBan, until)
}

func (s *Supervisor) recordPunishment(ctx context.Context, guildID, userID string, kind model.PunishmentKind, until time.Time) error {
	state, ok := s.State(guildID)
	if !ok {
		return ErrUnknownGuild
	}
	record := model.PunishmentRecord{
		GuildID: guildID,
		UserID:  userID,
		Until:   model.FormatUntil(until),
		Kind:    kind,
	}
	state.records.Lock()
	defer state.records.Unlock()
	if err := s.punishments.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to save %s record: %w", kind, err)
	}
	state.remember(kind, userID, until)
	return nil
}

// clearPunishment drops a punishment from the cache and the store. A missing
// row is not an error here.
func (s *Supervisor) clearPunishment(ctx context.Context, guildID, userID string, kind model.PunishmentKind) {
	if state, ok := s.State(guildID); ok {
		state.records.Lock()
		defer state.records.Unlock()
		state.forget(kind, userID)
	}
	if err := s.punishments.Delete(ctx, guildID, userID, kind); err != nil {
		s.logger.Debug("No punishment row removed",
			zap.String("guild_id", guildID),
			zap.String("user_id", userID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

// Sweep reverses every punishment of the given kind that has expired.
func (s *Supervisor) Sweep(ctx context.Context, guildID string, kind model.PunishmentKind) {
	state, ok := s.State(guildID)
	if !ok {
		return
	}
	if !s.platform.Ready(guildID) {
		s.logger.Debug("Skipping sweep of unavailable guild", zap.String("guild_id", guildID))
		return
	}
	me, err := s.platform.Self(ctx, guildID)
	if err != nil {
		s.logger.Debug("Skipping sweep, bot member unavailable",
			zap.String("guild_id", guildID),
			zap.Error(err))
		return
	}

	for _, userID := range state.due(kind, s.now()) {
		if ctx.Err() != nil {
			return
		}
		switch kind {
		case model.PunishmentMute:
			s.expireMute(ctx, state, me, userID)
		case model.PunishmentBan:
			s.expireBan(ctx, state, me, userID)
		}
	}
}

func (s *Supervisor) expireMute(ctx context.Context, state *TenantState, me *discordgo.Member, userID string) {
	guildID := state.GuildID
	member, err := s.platform.Member(ctx, guildID, userID)
	if errors.Is(err, platform.ErrNotFound) {
		s.expireDeparted(ctx, state, me, userID, model.PunishmentMute)
		return
	}
	if err != nil {
		s.logger.Warn("Failed to resolve muted member",
			zap.String("guild_id", guildID),
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}

	state.forget(model.PunishmentMute, userID)
	if _, err := s.Unmute(ctx, guildID, member, "Automatic unmute", me); err != nil {
		s.logger.Warn("Failed to automatically unmute",
			zap.String("guild_id", guildID),
			zap.String("user_id", userID),
			zap.Error(err))
		s.modLog(ctx, guildID, &discordgo.MessageSend{
			Content: fmt.Sprintf("Failed to automatically unmute %s due to `%s`", member.User.Mention(), failureCode(err)),
		})
	}
}

func (s *Supervisor) expireBan(ctx context.Context, state *TenantState, me *discordgo.Member, userID string) {
	guildID := state.GuildID
	user, err := s.platform.User(ctx, userID)
	if errors.Is(err, platform.ErrNotFound) {
		s.expireDeparted(ctx, state, me, userID, model.PunishmentBan)
		return
	}
	if err != nil {
		s.logger.Warn("Failed to resolve banned user",
			zap.String("guild_id", guildID),
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}

	state.forget(model.PunishmentBan, userID)
	_, err = s.Unban(ctx, guildID, user, "Automatic unban", me, "")
	switch {
	case err == nil:
	case OutcomeOf(err) == OutcomeNoBan:
		s.clearPunishment(ctx, guildID, userID, model.PunishmentBan)
	default:
		s.logger.Warn("Failed to automatically unban",
			zap.String("guild_id", guildID),
			zap.String("user_id", userID),
			zap.Error(err))
		s.modLog(ctx, guildID, &discordgo.MessageSend{
			Content: fmt.Sprintf("Failed to automatically unban %s due to `%s`", user.Mention(), failureCode(err)),
		})
	}
}

// expireDeparted forgets a punishment whose subject is gone.
func (s *Supervisor) expireDeparted(ctx context.Context, state *TenantState, me *discordgo.Member, userID string, kind model.PunishmentKind) {
	guildID := state.GuildID
	state.forget(kind, userID)

	title := "Unmute"
	if kind == model.PunishmentBan {
		title = "Unban"
	}
	embed := actionEmbed(fmt.Sprintf("%s | %s", title, userID), colorSuccess, s.now(),
		embedField("User", fmt.Sprintf("Unknown User (%s)", userID)),
		embedField("Moderator", me.User.Mention()),
	)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: userID}

	if err := s.punishments.Delete(ctx, guildID, userID, kind); err != nil {
		s.logger.Warn("Failed to delete expired punishment",
			zap.String("guild_id", guildID),
			zap.String("user_id", userID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		embed.Fields = append(embed.Fields, embedField("Error", "Failed to remove the record from the database"))
	}
	s.modLog(ctx, guildID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
}

func failureCode(err error) string {
	if code := OutcomeOf(err); code != "" {
		return string(code)
	}
	return "error"
}
