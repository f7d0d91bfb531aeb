package guild

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guildwarden/model"
	"guildwarden/platform"
)

// blockedPermissions are removed from a target on block and restored on unblock.
const blockedPermissions = discordgo.PermissionSendMessages | discordgo.PermissionAddReactions

// Unban lifts a ban. The moderator needs BanMembers, in channelID when given.
// On success the case ID of the new mod log entry is returned.
func (s *Supervisor) Unban(ctx context.Context, guildID string, user *discordgo.User, reason string, moderator *discordgo.Member, channelID string) (string, error) {
	if user == nil || reason == "" || moderator == nil {
		return "", OutcomeArgs
	}
	allowed, err := s.hasPermission(ctx, guildID, channelID, moderator, discordgo.PermissionBanMembers)
	if err != nil {
		return "", fmt.Errorf("failed to check moderator permissions: %w", err)
	}
	if !allowed {
		return "", OutcomeForbidden
	}

	if _, err := s.platform.Ban(ctx, guildID, user.ID); err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return "", OutcomeNoBan
		}
		return "", fmt.Errorf("failed to fetch ban: %w", err)
	}

	caseID, err := s.createModLogEntry(ctx, guildID, user.ID, moderator.User.ID, model.ModLogUnban, reason)
	if err != nil {
		s.logger.Warn("Failed to record unban", zap.String("guild_id", guildID), zap.Error(err))
		return "", OutcomeEntry
	}

	if err := s.platform.Unban(ctx, guildID, user.ID, auditReason(moderator, reason)); err != nil {
		return "", s.compensate(ctx, guildID, caseID, model.ModLogUnban, err)
	}

	s.clearPunishment(ctx, guildID, user.ID, model.PunishmentBan)

	embed := actionEmbed(fmt.Sprintf("Unban | %s", user.Username), colorSuccess, s.now(),
		embedField("User", fmt.Sprintf("%s (%s)", user.Mention(), user.ID)),
		embedField("Moderator", moderator.User.Mention()),
		embedField("Reason", reason),
	)
	embed.Author.IconURL = user.AvatarURL("2048")
	embed.Footer = &discordgo.MessageEmbedFooter{Text: user.ID}
	s.modLog(ctx, guildID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})

	if channelID != "" {
		s.confirm(ctx, channelID, fmt.Sprintf("%s has been unbanned", user.Username))
	}
	return caseID, nil
}

// Unmute removes the muted role from a member and clears any timeout.
func (s *Supervisor) Unmute(ctx context.Context, guildID string, member *discordgo.Member, reason string, moderator *discordgo.Member) (string, error) {
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

	caseID, err := s.createModLogEntry(ctx, guildID, member.User.ID, moderator.User.ID, model.ModLogUnmute, reason)
	if err != nil {
		s.logger.Warn("Failed to record unmute", zap.String("guild_id", guildID), zap.Error(err))
		return "", OutcomeEntry
	}

	audit := auditReason(moderator, reason)
	if roleID := s.muteRoleID(ctx, guildID); roleID != "" && hasRole(member, roleID) {
		if err := s.platform.RemoveRole(ctx, guildID, member.User.ID, roleID, audit); err != nil {
			return "", s.compensate(ctx, guildID, caseID, model.ModLogUnmute, err)
		}
	}
	if member.CommunicationDisabledUntil != nil {
		if err := s.platform.ClearTimeout(ctx, guildID, member.User.ID, audit); err != nil {
			s.logger.Debug("Failed to clear timeout", zap.String("guild_id", guildID), zap.Error(err))
		}
	}

	s.clearPunishment(ctx, guildID, member.User.ID, model.PunishmentMute)

	embed := actionEmbed(fmt.Sprintf("Unmute | %s", member.User.Username), colorSuccess, s.now(),
		embedField("User", fmt.Sprintf("%s (%s)", member.User.Mention(), member.User.ID)),
		embedField("Moderator", moderator.User.Mention()),
		embedField("Reason", reason),
	)
	embed.Author.IconURL = member.AvatarURL("2048")
	embed.Footer = &discordgo.MessageEmbedFooter{Text: member.User.ID}
	s.modLog(ctx, guildID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
	return caseID, nil
}

// Block denies the target sending messages and adding reactions in channelID.
func (s *Supervisor) Block(ctx context.Context, guildID string, target BlockTarget, reason string, moderator *discordgo.Member, channelID string) (string, error) {
	return s.setBlocked(ctx, guildID, target, reason, moderator, channelID, true)
}

// Unblock lifts the deny set by Block. An overwrite left empty is removed,
// except the one for @everyone.
func (s *Supervisor) Unblock(ctx context.Context, guildID string, target BlockTarget, reason string, moderator *discordgo.Member, channelID string) (string, error) {
	return s.setBlocked(ctx, guildID, target, reason, moderator, channelID, false)
}

func (s *Supervisor) setBlocked(ctx context.Context, guildID string, target BlockTarget, reason string, moderator *discordgo.Member, channelID string, block bool) (string, error) {
	action, title, verb := model.ModLogUnblock, "Unblock", "unblocked"
	if block {
		action, title, verb = model.ModLogBlock, "Block", "blocked"
	}

	if target == nil || reason == "" || moderator == nil || channelID == "" {
		return "", OutcomeArgs
	}
	allowed, err := s.hasPermission(ctx, guildID, channelID, moderator, discordgo.PermissionManageMessages)
	if err != nil {
		return "", fmt.Errorf("failed to check moderator permissions: %w", err)
	}
	if !allowed {
		return "", OutcomeForbidden
	}

	var caseID string
	if target.Auditable() {
		caseID, err = s.createModLogEntry(ctx, guildID, target.ID(), moderator.User.ID, action, reason)
		if err != nil {
			s.logger.Warn("Failed to record channel block change", zap.String("guild_id", guildID), zap.Error(err))
			return "", OutcomeEntry
		}
	}

	channel, err := s.platform.Channel(ctx, channelID)
	if err != nil {
		return "", s.compensate(ctx, guildID, caseID, action, err)
	}
	overwrite := &discordgo.PermissionOverwrite{ID: target.ID(), Type: target.OverwriteType()}
	if existing := findOverwrite(channel.PermissionOverwrites, target.ID()); existing != nil {
		overwrite.Allow, overwrite.Deny = existing.Allow, existing.Deny
	}
	overwrite.Allow &^= blockedPermissions
	if block {
		overwrite.Deny |= blockedPermissions
	} else {
		overwrite.Deny &^= blockedPermissions
	}

	audit := auditReason(moderator, reason)
	if err := s.platform.EditOverwrite(ctx, channelID, overwrite, audit); err != nil {
		return "", s.compensate(ctx, guildID, caseID, action, err)
	}

	if !block && overwrite.Allow == 0 && overwrite.Deny == 0 && target.ID() != guildID {
		if err := s.platform.DeleteOverwrite(ctx, channelID, target.ID(), audit); err != nil {
			s.logger.Debug("Failed to remove empty overwrite",
				zap.String("guild_id", guildID),
				zap.String("channel_id", channelID),
				zap.Error(err))
		}
	}

	color := target.DisplayColor()
	if color == 0 {
		color = colorDefault
	}
	embed := actionEmbed(fmt.Sprintf("%s | %s", title, target.DisplayName()), color, s.now(),
		embedField("Target", target.DisplayName()),
		embedField("Moderator", moderator.User.Mention()),
		embedField("Channel", fmt.Sprintf("<#%s>", channelID)),
		embedField("Reason", reason),
	)
	embed.Author.IconURL = target.AvatarOrIcon()
	embed.Footer = &discordgo.MessageEmbedFooter{Text: target.ID()}
	s.modLog(ctx, guildID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})

	s.confirm(ctx, channelID, fmt.Sprintf("%s has been %s from this channel", target.DisplayName(), verb))
	return caseID, nil
}

// confirm posts an acknowledgement without pinging anyone.
func (s *Supervisor) confirm(ctx context.Context, channelID, content string) {
	_, err := s.platform.Send(ctx, channelID, &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	if err != nil {
		s.logger.Debug("Failed to send confirmation", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func auditReason(moderator *discordgo.Member, reason string) string {
	return fmt.Sprintf("%s | %s", moderator.User.Username, reason)
}

func hasRole(member *discordgo.Member, roleID string) bool {
	for _, id := range member.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

func findOverwrite(overwrites []*discordgo.PermissionOverwrite, id string) *discordgo.PermissionOverwrite {
	for _, ow := range overwrites {
		if ow.ID == id {
			return ow
		}
	}
	return nil
}
