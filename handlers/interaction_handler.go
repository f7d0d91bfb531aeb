package handlers

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"guildwarden/bot"
	"guildwarden/guild"
)

func handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if i.GuildID == "" || i.Member == nil {
		return // commands are guild only
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if h, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
			h(s, i)
		}
	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		if strings.HasPrefix(customID, guild.CloseButtonPrefix) {
			handleCloseButton(s, i, b, strings.TrimPrefix(customID, guild.CloseButtonPrefix))
		}
	}
}
