package handlers

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"guildwarden/bot"
)

// interactionTimeout bounds one command; closing a long ticket reads its whole history.
const interactionTimeout = 2 * time.Minute

func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)
	addHandlers(b)
}

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"ticket": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			handleTicketCommand(s, i, b)
		},
		"mute": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			handleMuteCommand(s, i, b)
		},
		"unmute": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			handleUnmuteCommand(s, i, b)
		},
		"ban": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			handleBanCommand(s, i, b)
		},
		"unban": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			handleUnbanCommand(s, i, b)
		},
		"block": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			handleBlockCommand(s, i, b, true)
		},
		"unblock": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			handleBlockCommand(s, i, b, false)
		},
		"blacklist": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			handleBlacklistCommand(s, i, b)
		},
		"modlogs": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			handleModLogsCommand(s, i, b)
		},
		"permroles": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			handlePermRolesCommand(s, i, b)
		},
		"config": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			handleConfigCommand(s, i, b)
		},
		"stats": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			SystemInfoHandler(s, i, b)
		},
	}
}

func addHandlers(b *bot.Bot) {
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		handleInteractionCreate(s, i, b)
	})
}

func interactionContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), interactionTimeout)
}

type optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption

func newOptionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) optionMap {
	m := make(optionMap, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

func (m optionMap) string(name string) string {
	if opt, ok := m[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (m optionMap) int(name string) int {
	if opt, ok := m[name]; ok {
		return int(opt.IntValue())
	}
	return 0
}

func (m optionMap) bool(name string) bool {
	if opt, ok := m[name]; ok {
		return opt.BoolValue()
	}
	return false
}

// id returns the snowflake of a user, role, channel or mentionable option.
func (m optionMap) id(name string) string {
	if opt, ok := m[name]; ok {
		if v, ok := opt.Value.(string); ok {
			return v
		}
	}
	return ""
}

// subcommand splits a command into its subcommand name and options.
func subcommand(data discordgo.ApplicationCommandInteractionData) (string, optionMap) {
	if len(data.Options) == 0 {
		return "", optionMap{}
	}
	sub := data.Options[0]
	return sub.Name, newOptionMap(sub.Options)
}

// resolvedUser prefers the user object Discord sent with the interaction.
func resolvedUser(s *discordgo.Session, data discordgo.ApplicationCommandInteractionData, userID string) (*discordgo.User, error) {
	if data.Resolved != nil {
		if u, ok := data.Resolved.Users[userID]; ok {
			return u, nil
		}
	}
	return s.User(userID)
}

func guildMember(s *discordgo.Session, guildID, userID string) (*discordgo.Member, error) {
	if m, err := s.State.Member(guildID, userID); err == nil {
		return m, nil
	}
	return s.GuildMember(guildID, userID)
}
