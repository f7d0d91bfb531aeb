package defs

import "github.com/bwmarrin/discordgo"

var PermRoles = &discordgo.ApplicationCommand{
	Name:                     "permroles",
	Description:              "Keep role overwrites in sync on every channel",
	DefaultMemberPermissions: &manageRoles,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "set",
			Description: "Set the overwrite a role should have everywhere",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "Role to manage",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "allow",
					Description: "Allowed permission bits",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "deny",
					Description: "Denied permission bits",
					Required:    true,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "remove",
			Description: "Stop managing a role",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "Role to stop managing",
					Required:    true,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "list",
			Description: "Show managed roles",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "sync",
			Description: "Apply managed roles and the muted role to every channel now",
		},
	},
}

var Stats = &discordgo.ApplicationCommand{
	Name:        "stats",
	Description: "Show bot and host status",
	NameLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "系统信息",
		discordgo.ChineseTW: "系統資訊",
	},
}
