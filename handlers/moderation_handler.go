package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guildwarden/bot"
	"guildwarden/guild"
	"guildwarden/model"
	"guildwarden/utils"
)

// modLogsShown caps how many of the latest entries /modlogs lists.
const modLogsShown = 10

// moderationStart defers the reply and takes the per-target cooldown.
// The returned release must be called when the action failed.
func moderationStart(i *discordgo.InteractionCreate, b *bot.Bot, action, targetID string) (release func(), ok bool) {
	key := fmt.Sprintf("%s:%s:%s", i.GuildID, action, targetID)
	if !b.Cooldowns.TryAcquire(key) {
		b.Responder.SendErrorResponse(i, "That action was just performed on this target.")
		return nil, false
	}
	if err := b.Responder.DeferResponse(i, true); err != nil {
		b.Logger.Warn("Failed to defer interaction", zap.Error(err))
		b.Cooldowns.Release(key)
		return nil, false
	}
	return func() { b.Cooldowns.Release(key) }, true
}

// untilFrom parses an optional duration into an expiry. Empty means forever.
func untilFrom(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := utils.ParseDuration(raw)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(d), nil
}

func handleMuteCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	opts := newOptionMap(i.ApplicationCommandData().Options)
	userID := opts.id("user")
	until, err := untilFrom(opts.string("duration"), time.Now())
	if err != nil {
		b.Responder.SendErrorResponse(i, fmt.Sprintf("Invalid duration: %v", err))
		return
	}
	release, ok := moderationStart(i, b, "mute", userID)
	if !ok {
		return
	}
	ctx, cancel := interactionContext()
	defer cancel()

	member, err := guildMember(s, i.GuildID, userID)
	if err != nil {
		release()
		b.Responder.SendFollowUpError(i.Interaction, "That user is not in this server.")
		return
	}
	if _, err := b.Supervisor.Mute(ctx, i.GuildID, member, opts.string("reason"), i.Member, until); err != nil {
		release()
		followUpError(b, i, "mute", err)
		return
	}
	b.Responder.SendFollowUp(i.Interaction, fmt.Sprintf("🔇 %s has been muted", member.User.Username))
}

func handleUnmuteCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	opts := newOptionMap(i.ApplicationCommandData().Options)
	userID := opts.id("user")
	release, ok := moderationStart(i, b, "unmute", userID)
	if !ok {
		return
	}
	ctx, cancel := interactionContext()
	defer cancel()

	member, err := guildMember(s, i.GuildID, userID)
	if err != nil {
		release()
		b.Responder.SendFollowUpError(i.Interaction, "That user is not in this server.")
		return
	}
	if _, err := b.Supervisor.Unmute(ctx, i.GuildID, member, opts.string("reason"), i.Member); err != nil {
		release()
		followUpError(b, i, "unmute", err)
		return
	}
	b.Responder.SendFollowUp(i.Interaction, fmt.Sprintf("🔊 %s has been unmuted", member.User.Username))
}

func handleBanCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	data := i.ApplicationCommandData()
	opts := newOptionMap(data.Options)
	userID := opts.id("user")
	until, err := untilFrom(opts.string("duration"), time.Now())
	if err != nil {
		b.Responder.SendErrorResponse(i, fmt.Sprintf("Invalid duration: %v", err))
		return
	}
	release, ok := moderationStart(i, b, "ban", userID)
	if !ok {
		return
	}
	ctx, cancel := interactionContext()
	defer cancel()

	user, err := resolvedUser(s, data, userID)
	if err != nil {
		release()
		b.Responder.SendFollowUpError(i.Interaction, "I could not find that user.")
		return
	}
	if _, err := b.Supervisor.Ban(ctx, i.GuildID, user, opts.string("reason"), i.Member, i.ChannelID, until, opts.int("delete_days")); err != nil {
		release()
		followUpError(b, i, "ban", err)
		return
	}
	b.Responder.SendFollowUp(i.Interaction, "✅ Done")
}

func handleUnbanCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	data := i.ApplicationCommandData()
	opts := newOptionMap(data.Options)
	userID := opts.id("user")
	release, ok := moderationStart(i, b, "unban", userID)
	if !ok {
		return
	}
	ctx, cancel := interactionContext()
	defer cancel()

	user, err := resolvedUser(s, data, userID)
	if err != nil {
		release()
		b.Responder.SendFollowUpError(i.Interaction, "I could not find that user.")
		return
	}
	if _, err := b.Supervisor.Unban(ctx, i.GuildID, user, opts.string("reason"), i.Member, i.ChannelID); err != nil {
		release()
		followUpError(b, i, "unban", err)
		return
	}
	b.Responder.SendFollowUp(i.Interaction, "✅ Done")
}

func handleBlockCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot, block bool) {
	data := i.ApplicationCommandData()
	opts := newOptionMap(data.Options)
	channelID := opts.id("channel")
	if channelID == "" {
		channelID = i.ChannelID
	}
	if err := b.Responder.DeferResponse(i, true); err != nil {
		b.Logger.Warn("Failed to defer interaction", zap.Error(err))
		return
	}
	ctx, cancel := interactionContext()
	defer cancel()

	target, err := blockTarget(s, i.GuildID, data, opts.id("target"))
	if err != nil {
		b.Responder.SendFollowUpError(i.Interaction, "I could not find that member or role.")
		return
	}
	act, operation := b.Supervisor.Unblock, "unblock"
	if block {
		act, operation = b.Supervisor.Block, "block"
	}
	if _, err := act(ctx, i.GuildID, target, opts.string("reason"), i.Member, channelID); err != nil {
		followUpError(b, i, operation, err)
		return
	}
	b.Responder.SendFollowUp(i.Interaction, "✅ Done")
}

// blockTarget resolves a mentionable option into a role or member target.
func blockTarget(s *discordgo.Session, guildID string, data discordgo.ApplicationCommandInteractionData, id string) (guild.BlockTarget, error) {
	g, err := s.State.Guild(guildID)
	if err != nil {
		if g, err = s.Guild(guildID); err != nil {
			return nil, err
		}
	}
	if data.Resolved != nil {
		if role, ok := data.Resolved.Roles[id]; ok {
			return guild.RoleTarget{Role: role, GuildIcon: g.IconURL("2048")}, nil
		}
	}
	if id == guildID {
		for _, role := range g.Roles {
			if role.ID == id {
				return guild.RoleTarget{Role: role, GuildIcon: g.IconURL("2048")}, nil
			}
		}
	}
	member, err := guildMember(s, guildID, id)
	if err != nil {
		return nil, err
	}
	return guild.NewMemberTarget(member, g.Roles), nil
}

func handleModLogsCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	opts := newOptionMap(i.ApplicationCommandData().Options)
	userID := opts.id("user")
	ctx, cancel := interactionContext()
	defer cancel()

	entries, err := b.ModLogs.ListByUser(ctx, i.GuildID, userID)
	if err != nil {
		b.Logger.Error("Failed to list mod logs", zap.String("guild_id", i.GuildID), zap.String("user_id", userID), zap.Error(err))
		b.Responder.SendErrorResponse(i, "Could not read the mod log.")
		return
	}
	message := formatModLogs(userID, entries)
	if opts.bool("public") {
		b.Responder.SendPublicResponse(i, message)
		return
	}
	b.Responder.SendSimpleResponse(i, message)
}

// formatModLogs renders the latest entries of a user's history, newest last.
func formatModLogs(userID string, entries []model.ModLogEntry) string {
	if len(entries) == 0 {
		return fmt.Sprintf("<@%s> has no mod log entries.", userID)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Mod log for <@%s> (%d entries)", userID, len(entries))
	if len(entries) > modLogsShown {
		fmt.Fprintf(&sb, ", latest %d", modLogsShown)
		entries = entries[len(entries)-modLogsShown:]
	}
	sb.WriteString("\n")
	for _, e := range entries {
		reason := e.Reason
		if reason == "" {
			reason = "no reason given"
		} else if r := []rune(reason); len(r) > 60 {
			reason = string(r[:59]) + "…"
		}
		fmt.Fprintf(&sb, "`%s` **%s** by <@%s> on %s: %s\n", e.CaseID, e.Type, e.ModeratorID, e.Date, reason)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
