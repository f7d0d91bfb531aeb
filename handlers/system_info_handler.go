package handlers

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guildwarden/bot"
)

func SystemInfoHandler(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	embed := b.CollectStats().Embed(time.Now())
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.Logger.Warn("Failed to send system info", zap.Error(err))
	}
}
