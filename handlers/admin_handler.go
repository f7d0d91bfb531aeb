package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guildwarden/bot"
	"guildwarden/guild"
)

func handleConfigCommand(_ *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	name, opts := subcommand(i.ApplicationCommandData())
	ctx, cancel := interactionContext()
	defer cancel()

	switch name {
	case "set":
		option, ok := guild.LookupOption(opts.string("key"))
		if !ok {
			b.Responder.SendErrorResponse(i, "Unknown setting.")
			return
		}
		value, err := option.Parse(opts.string("value"))
		if err != nil {
			b.Responder.SendErrorResponse(i, err.Error())
			return
		}
		if err := b.Settings.Set(ctx, i.GuildID, option.Key, value); err != nil {
			b.Responder.SendErrorResponse(i, "Failed to save the setting.")
			return
		}
		b.Responder.SendSimpleResponse(i, fmt.Sprintf("✅ `%s` is now %s", option.Key, formatOption(option, value)))
	case "reset":
		key := opts.string("key")
		if _, ok := guild.LookupOption(key); !ok {
			b.Responder.SendErrorResponse(i, "Unknown setting.")
			return
		}
		if err := b.Settings.Delete(ctx, i.GuildID, key); err != nil {
			b.Responder.SendErrorResponse(i, "Failed to reset the setting.")
			return
		}
		b.Responder.SendSimpleResponse(i, fmt.Sprintf("✅ `%s` has been reset", key))
	case "show":
		var lines []string
		for _, option := range guild.ConfigOptions() {
			var value any
			set, err := b.Settings.Get(ctx, i.GuildID, option.Key, &value)
			shown := "not set"
			if err != nil {
				shown = "unreadable"
			} else if set {
				shown = formatOption(option, value)
			}
			lines = append(lines, fmt.Sprintf("`%s`: %s", option.Key, shown))
		}
		b.Responder.SendSimpleResponse(i, strings.Join(lines, "\n"))
	}
}

func formatOption(option guild.Option, value any) string {
	switch option.Kind {
	case guild.OptionChannel:
		return fmt.Sprintf("<#%v>", value)
	case guild.OptionRole:
		return fmt.Sprintf("<@&%v>", value)
	default:
		return fmt.Sprintf("`%v`", value)
	}
}

func handlePermRolesCommand(_ *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	name, opts := subcommand(i.ApplicationCommandData())
	if err := b.Responder.DeferResponse(i, true); err != nil {
		b.Logger.Warn("Failed to defer interaction", zap.Error(err))
		return
	}
	ctx, cancel := interactionContext()
	defer cancel()

	switch name {
	case "set":
		allow, errAllow := parsePermissionBits(opts.string("allow"))
		deny, errDeny := parsePermissionBits(opts.string("deny"))
		if errAllow != nil || errDeny != nil {
			b.Responder.SendFollowUpError(i.Interaction, "Permissions must be non-negative integers.")
			return
		}
		if allow&deny != 0 {
			b.Responder.SendFollowUpError(i.Interaction, "A permission cannot be both allowed and denied.")
			return
		}
		roleID := opts.id("role")
		if err := b.Supervisor.SetPermissionRole(ctx, i.GuildID, roleID, allow, deny); err != nil {
			followUpError(b, i, "set permission role", err)
			return
		}
		if err := b.Supervisor.ReconcilePermissionRoles(ctx, i.GuildID); err != nil {
			followUpError(b, i, "reconcile permission roles", err)
			return
		}
		b.Responder.SendFollowUp(i.Interaction, fmt.Sprintf("✅ <@&%s> is now managed on every channel", roleID))
	case "remove":
		roleID := opts.id("role")
		if err := b.Supervisor.RemovePermissionRole(ctx, i.GuildID, roleID); err != nil {
			followUpError(b, i, "remove permission role", err)
			return
		}
		b.Responder.SendFollowUp(i.Interaction, fmt.Sprintf("✅ <@&%s> is no longer managed", roleID))
	case "list":
		state, ok := b.Supervisor.State(i.GuildID)
		if !ok {
			followUpError(b, i, "list permission roles", guild.ErrUnknownGuild)
			return
		}
		roles := state.PermRoles()
		if len(roles) == 0 {
			b.Responder.SendFollowUp(i.Interaction, "No roles are managed.")
			return
		}
		lines := make([]string, 0, len(roles))
		for _, r := range roles {
			lines = append(lines, fmt.Sprintf("<@&%s> allow `%d` deny `%d`", r.RoleID, r.Allow, r.Deny))
		}
		b.Responder.SendFollowUp(i.Interaction, strings.Join(lines, "\n"))
	case "sync":
		if err := b.Supervisor.ReconcilePermissionRoles(ctx, i.GuildID); err != nil {
			followUpError(b, i, "reconcile permission roles", err)
			return
		}
		if err := b.Supervisor.SyncMuteRolePermissions(ctx, i.GuildID); err != nil {
			followUpError(b, i, "sync muted role", err)
			return
		}
		b.Responder.SendFollowUp(i.Interaction, "✅ Channels are in sync")
	}
}

func parsePermissionBits(raw string) (int64, error) {
	bits, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if bits < 0 {
		return 0, fmt.Errorf("negative permission bits: %d", bits)
	}
	return bits, nil
}

func handleBlacklistCommand(_ *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	name, opts := subcommand(i.ApplicationCommandData())
	ctx, cancel := interactionContext()
	defer cancel()

	userID := opts.id("user")
	switch name {
	case "add":
		if err := b.Blacklist.Plonk(ctx, i.GuildID, userID, opts.string("reason")); err != nil {
			b.Logger.Error("Failed to blacklist user", zap.String("guild_id", i.GuildID), zap.Error(err))
			b.Responder.SendErrorResponse(i, "Failed to update the blacklist.")
			return
		}
		b.Responder.SendSimpleResponse(i, fmt.Sprintf("✅ <@%s> can no longer open tickets", userID))
	case "remove":
		if err := b.Blacklist.Unplonk(ctx, i.GuildID, userID); err != nil {
			b.Logger.Error("Failed to unblacklist user", zap.String("guild_id", i.GuildID), zap.Error(err))
			b.Responder.SendErrorResponse(i, "Failed to update the blacklist.")
			return
		}
		b.Responder.SendSimpleResponse(i, fmt.Sprintf("✅ <@%s> can open tickets again", userID))
	}
}
