package guild

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"guildwarden/model"
	"guildwarden/settings"
)

const (
	colorSuccess = 0x2ECC71
	colorFailure = 0xE74C3C
	colorDefault = 0xFFFFFF

	modLogDateFormat = "2006/01/02 15:04:05"
)

// Log channel settings.
const (
	keyModerationLog = "log.moderation"
	keyActionLog     = "log.action"
	keyMuteRole      = "mod.mutedrole"
)

// modLog posts to the guild's moderation log channel, if one is set.
func (s *Supervisor) modLog(ctx context.Context, guildID string, msg *discordgo.MessageSend) {
	s.logTo(ctx, guildID, keyModerationLog, msg)
}

func (s *Supervisor) logTo(ctx context.Context, guildID, key string, msg *discordgo.MessageSend) {
	channelID := settings.Value(ctx, s.settings, guildID, key, "")
	if channelID == "" {
		return
	}
	if _, err := s.platform.Send(ctx, channelID, msg); err != nil {
		s.logger.Debug("Failed to post to log channel",
			zap.String("guild_id", guildID),
			zap.String("setting", key),
			zap.Error(err))
	}
}

// createModLogEntry writes a provisional entry and returns its case ID.
func (s *Supervisor) createModLogEntry(ctx context.Context, guildID, userID, moderatorID string, action model.ModLogType, reason string) (string, error) {
	entry := model.ModLogEntry{
		GuildID:     guildID,
		UserID:      userID,
		ModeratorID: moderatorID,
		Reason:      reason,
		Date:        s.now().UTC().Format(modLogDateFormat),
		Type:        action,
		CaseID:      uuid.NewString(),
	}
	if err := s.modLogs.Create(ctx, entry); err != nil {
		return "", fmt.Errorf("failed to create mod log entry: %w", err)
	}
	return entry.CaseID, nil
}

// compensate turns a failed action into its outcome, removing the
// provisional entry first.
func (s *Supervisor) compensate(ctx context.Context, guildID, caseID string, action model.ModLogType, cause error) error {
	s.logger.Warn("Moderation action failed",
		zap.String("guild_id", guildID),
		zap.String("action", string(action)),
		zap.String("case_id", caseID),
		zap.Error(cause))
	if caseID == "" {
		return actionFailure(action, false)
	}
	if err := s.modLogs.Delete(ctx, guildID, caseID); err != nil {
		s.logger.Error("Failed to delete mod log entry of failed action",
			zap.String("guild_id", guildID),
			zap.String("case_id", caseID),
			zap.Error(err))
		return actionFailure(action, true)
	}
	return actionFailure(action, false)
}

// hasPermission reports whether the member holds perm, guild wide when
// channelID is empty. Administrator implies every permission.
func (s *Supervisor) hasPermission(ctx context.Context, guildID, channelID string, member *discordgo.Member, perm int64) (bool, error) {
	var (
		perms int64
		err   error
	)
	if channelID != "" {
		perms, err = s.platform.ChannelPermissions(ctx, channelID, member.User.ID)
	} else {
		perms, err = s.platform.MemberPermissions(ctx, guildID, member.User.ID)
	}
	if err != nil {
		return false, err
	}
	return perms&discordgo.PermissionAdministrator != 0 || perms&perm == perm, nil
}

func (s *Supervisor) isModerator(ctx context.Context, guildID string, member *discordgo.Member) bool {
	ok, err := s.hasPermission(ctx, guildID, "", member, discordgo.PermissionManageMessages)
	return err == nil && ok
}

// muteRoleID is the configured muted role, falling back to a role named "Muted".
func (s *Supervisor) muteRoleID(ctx context.Context, guildID string) string {
	if id := settings.Value(ctx, s.settings, guildID, keyMuteRole, ""); id != "" {
		return id
	}
	roles, err := s.platform.Roles(ctx, guildID)
	if err != nil {
		return ""
	}
	for _, role := range roles {
		if strings.EqualFold(role.Name, "muted") {
			return role.ID
		}
	}
	return ""
}

func actionEmbed(title string, color int, at time.Time, fields ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:     color,
		Timestamp: at.Format(time.RFC3339),
		Author:    &discordgo.MessageEmbedAuthor{Name: title},
		Fields:    fields,
	}
}

func embedField(name, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value}
}
