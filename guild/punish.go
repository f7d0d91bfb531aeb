package guild

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guildwarden/model"
)

// Mute gives the member the muted role, creating the role on first use. A
// zero until mutes until someone unmutes them; otherwise the mute sweep lifts
// it once until has passed.
func (s *Supervisor) Mute(ctx context.Context, guildID string, member *discordgo.Member, reason string, moderator *discordgo.Member, until time.Time) (string, error) {
	if member == nil || reason == "" || moderator == nil {
		return "", OutcomeArgs
	}
	allowed, err := s.hasPermission(ctx, guildID, "", moderator, discordgo.PermissionManageRoles)
	if err != nil {
		return "", fmt.Errorf("failed to check moderator permissions: %w", err)
	}
	if !allowed {
		return "", OutcomeForbidden
	}
	roleID, err := s.InitMuteRole(ctx, guildID)
	if errors.Is(err, ErrUnknownGuild) {
		return "", err
	}
	if err != nil {
		s.logger.Warn("No muted role available", zap.String("guild_id", guildID), zap.Error(err))
		return "", OutcomeDisabled
	}

	caseID, err := s.createModLogEntry(ctx, guildID, member.User.ID, moderator.User.ID, model.ModLogMute, reason)
	if err != nil {
		s.logger.Warn("Failed to record mute", zap.String("guild_id", guildID), zap.Error(err))
		return "", OutcomeEntry
	}
	if err := s.platform.AddRole(ctx, guildID, member.User.ID, roleID, auditReason(moderator, reason)); err != nil {
		return "", s.compensate(ctx, guildID, caseID, model.ModLogMute, err)
	}
	if err := s.RecordMute(ctx, guildID, member.User.ID, until); err != nil {
		// The role is on; without the row the mute just will not expire.
		s.logger.Error("Failed to persist mute",
			zap.String("guild_id", guildID),
			zap.String("user_id", member.User.ID),
			zap.Error(err))
	}

	embed := actionEmbed(fmt.Sprintf("Mute | %s", member.User.Username), colorDefault, s.now(),
		embedField("User", fmt.Sprintf("%s (%s)", member.User.Mention(), member.User.ID)),
		embedField("Moderator", moderator.User.Mention()),
		embedField("Reason", reason),
		embedField("Until", untilText(until)),
	)
	embed.Author.IconURL = member.AvatarURL("2048")
	embed.Footer = &discordgo.MessageEmbedFooter{Text: member.User.ID}
	s.modLog(ctx, guildID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
	return caseID, nil
}

// Ban bans the user. A non-zero until makes it a temporary ban that the ban
// sweep lifts; a permanent ban replaces any temporary one.
func (s *Supervisor) Ban(ctx context.Context, guildID string, user *discordgo.User, reason string, moderator *discordgo.Member, channelID string, until time.Time, deleteDays int) (string, error) {
	if user == nil || reason == "" || moderator == nil || deleteDays < 0 || deleteDays > 7 {
		return "", OutcomeArgs
	}
	allowed, err := s.hasPermission(ctx, guildID, channelID, moderator, discordgo.PermissionBanMembers)
	if err != nil {
		return "", fmt.Errorf("failed to check moderator permissions: %w", err)
	}
	if !allowed {
		return "", OutcomeForbidden
	}

	caseID, err := s.createModLogEntry(ctx, guildID, user.ID, moderator.User.ID, model.ModLogBan, reason)
	if err != nil {
		s.logger.Warn("Failed to record ban", zap.String("guild_id", guildID), zap.Error(err))
		return "", OutcomeEntry
	}
	if err := s.platform.CreateBan(ctx, guildID, user.ID, auditReason(moderator, reason), deleteDays); err != nil {
		return "", s.compensate(ctx, guildID, caseID, model.ModLogBan, err)
	}

	if until.IsZero() {
		s.clearPunishment(ctx, guildID, user.ID, model.PunishmentBan)
	} else if err := s.RecordTempBan(ctx, guildID, user.ID, until); err != nil {
		s.logger.Error("Failed to persist temporary ban",
			zap.String("guild_id", guildID),
			zap.String("user_id", user.ID),
			zap.Error(err))
	}

	embed := actionEmbed(fmt.Sprintf("Ban | %s", user.Username), colorFailure, s.now(),
		embedField("User", fmt.Sprintf("%s (%s)", user.Mention(), user.ID)),
		embedField("Moderator", moderator.User.Mention()),
		embedField("Reason", reason),
		embedField("Until", untilText(until)),
	)
	embed.Author.IconURL = user.AvatarURL("2048")
	embed.Footer = &discordgo.MessageEmbedFooter{Text: user.ID}
	s.modLog(ctx, guildID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})

	if channelID != "" {
		s.confirm(ctx, channelID, fmt.Sprintf("%s has been banned", user.Username))
	}
	return caseID, nil
}

func untilText(until time.Time) string {
	if until.IsZero() {
		return "Forever"
	}
	return fmt.Sprintf("<t:%d:R>", until.Unix())
}
