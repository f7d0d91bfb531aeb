package defs

import "github.com/bwmarrin/discordgo"

var (
	banMembers     int64 = discordgo.PermissionBanMembers
	manageRoles    int64 = discordgo.PermissionManageRoles
	manageMessages int64 = discordgo.PermissionManageMessages
	manageGuild    int64 = discordgo.PermissionManageGuild
	minDeleteDays        = 0.0
)

func userOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: description,
		Required:    true,
	}
}

func reasonOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "Reason recorded in the mod log",
		Required:    true,
		MaxLength:   512,
	}
}

func durationOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "duration",
		Description: "How long, e.g. 30m, 12h, 7d (empty is forever)",
		Required:    false,
	}
}

var Mute = &discordgo.ApplicationCommand{
	Name:                     "mute",
	Description:              "Give a member the muted role",
	DefaultMemberPermissions: &manageRoles,
	NameLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "禁言",
		discordgo.ChineseTW: "禁言",
	},
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member to mute"),
		reasonOption(),
		durationOption(),
	},
}

var Unmute = &discordgo.ApplicationCommand{
	Name:                     "unmute",
	Description:              "Lift a member's mute",
	DefaultMemberPermissions: &manageRoles,
	NameLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "解除禁言",
		discordgo.ChineseTW: "解除禁言",
	},
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member to unmute"),
		reasonOption(),
	},
}

var Ban = &discordgo.ApplicationCommand{
	Name:                     "ban",
	Description:              "Ban a user, optionally for a limited time",
	DefaultMemberPermissions: &banMembers,
	NameLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "封禁",
		discordgo.ChineseTW: "封禁",
	},
	Options: []*discordgo.ApplicationCommandOption{
		userOption("User to ban"),
		reasonOption(),
		durationOption(),
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "delete_days",
			Description: "Days of messages to delete",
			Required:    false,
			MinValue:    &minDeleteDays,
			MaxValue:    7,
		},
	},
}

var Unban = &discordgo.ApplicationCommand{
	Name:                     "unban",
	Description:              "Lift a ban",
	DefaultMemberPermissions: &banMembers,
	NameLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "解除封禁",
		discordgo.ChineseTW: "解除封禁",
	},
	Options: []*discordgo.ApplicationCommandOption{
		userOption("User to unban (ID works for users outside the server)"),
		reasonOption(),
	},
}

func blockOptions(verb string) []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionMentionable,
			Name:        "target",
			Description: "Member or role to " + verb,
			Required:    true,
		},
		reasonOption(),
		{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "channel",
			Description:  "Channel to " + verb + " in (defaults to this one)",
			Required:     false,
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews},
		},
	}
}

var Block = &discordgo.ApplicationCommand{
	Name:                     "block",
	Description:              "Stop a member or role from talking in a channel",
	DefaultMemberPermissions: &manageMessages,
	Options:                  blockOptions("block"),
}

var Unblock = &discordgo.ApplicationCommand{
	Name:                     "unblock",
	Description:              "Let a blocked member or role talk again",
	DefaultMemberPermissions: &manageMessages,
	Options:                  blockOptions("unblock"),
}

var Blacklist = &discordgo.ApplicationCommand{
	Name:                     "blacklist",
	Description:              "Bar users from opening tickets",
	DefaultMemberPermissions: &manageGuild,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "add",
			Description: "Blacklist a user",
			Options: []*discordgo.ApplicationCommandOption{
				userOption("User to blacklist"),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Why",
					Required:    false,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "remove",
			Description: "Remove a user from the blacklist",
			Options:     []*discordgo.ApplicationCommandOption{userOption("User to remove")},
		},
	},
}

var ModLogs = &discordgo.ApplicationCommand{
	Name:                     "modlogs",
	Description:              "List the moderation history of a user",
	DefaultMemberPermissions: &manageMessages,
	NameLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "处罚记录",
		discordgo.ChineseTW: "處罰記錄",
	},
	Options: []*discordgo.ApplicationCommandOption{
		userOption("User to look up"),
		{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        "public",
			Description: "Show the history to everyone in the channel",
			Required:    false,
		},
	},
}
