package commands

import (
	"github.com/bwmarrin/discordgo"

	"guildwarden/commands/defs"
	"guildwarden/guild"
)

// GenerateCommands returns every application command the bot registers.
func GenerateCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		defs.Ticket,
		defs.Mute,
		defs.Unmute,
		defs.Ban,
		defs.Unban,
		defs.Block,
		defs.Unblock,
		defs.Blacklist,
		defs.ModLogs,
		defs.PermRoles,
		configCommand(),
		defs.Stats,
	}
}

// configCommand offers one choice per configurable guild setting.
func configCommand() *discordgo.ApplicationCommand {
	opts := guild.ConfigOptions()
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(opts))
	for _, o := range opts {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: o.Key, Value: o.Key})
	}
	keyOption := func() *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "key",
			Description: "Setting to change",
			Required:    true,
			Choices:     choices,
		}
	}

	manageGuild := int64(discordgo.PermissionManageGuild)
	return &discordgo.ApplicationCommand{
		Name:                     "config",
		Description:              "Change server settings",
		DefaultMemberPermissions: &manageGuild,
		NameLocalizations: &map[discordgo.Locale]string{
			discordgo.ChineseCN: "配置",
			discordgo.ChineseTW: "配置",
		},
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Set a setting",
				Options: []*discordgo.ApplicationCommandOption{
					keyOption(),
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "value",
						Description: "New value; channels and roles may be mentioned",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "reset",
				Description: "Reset a setting to its default",
				Options:     []*discordgo.ApplicationCommandOption{keyOption()},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "show",
				Description: "Show current settings",
			},
		},
	}
}
