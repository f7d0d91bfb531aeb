package defs

import "github.com/bwmarrin/discordgo"

var Ticket = &discordgo.ApplicationCommand{
	Name:        "ticket",
	Description: "Open or close a support ticket",
	NameLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "工单",
		discordgo.ChineseTW: "工單",
	},
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "创建或关闭支持工单",
		discordgo.ChineseTW: "建立或關閉支援工單",
	},
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "new",
			Description: "Open a new ticket",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "subject",
					Description: "What do you need help with?",
					Required:    false,
					MaxLength:   200,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "close",
			Description: "Close this ticket",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Why the ticket is being closed",
					Required:    false,
				},
			},
		},
	},
}
