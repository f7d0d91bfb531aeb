package handlers

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guildwarden/bot"
)

const (
	defaultSubject     = "No subject given"
	defaultCloseReason = "No reason given"
	buttonCloseReason  = "Closed with the close button"
)

func handleTicketCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	name, opts := subcommand(i.ApplicationCommandData())
	switch name {
	case "new":
		subject := opts.string("subject")
		if subject == "" {
			subject = defaultSubject
		}
		openTicket(i, b, subject)
	case "close":
		reason := opts.string("reason")
		if reason == "" {
			reason = defaultCloseReason
		}
		closeTicket(i, b, i.ChannelID, reason)
	}
}

func openTicket(i *discordgo.InteractionCreate, b *bot.Bot, subject string) {
	if err := b.Responder.DeferResponse(i, true); err != nil {
		b.Logger.Warn("Failed to defer interaction", zap.Error(err))
		return
	}
	ctx, cancel := interactionContext()
	defer cancel()

	ticket, err := b.Supervisor.CreateTicket(ctx, i.GuildID, i.Member.User.ID, subject, "")
	if err != nil {
		followUpError(b, i, "create ticket", err)
		return
	}
	b.Responder.SendFollowUp(i.Interaction, fmt.Sprintf("✅ Your ticket has been created: %s", ticket.Mention()))
}

// closeTicket answers before closing since the channel the interaction came
// from may be the one being deleted.
func closeTicket(i *discordgo.InteractionCreate, b *bot.Bot, channelID, reason string) {
	if err := b.Responder.DeferResponse(i, true); err != nil {
		b.Logger.Warn("Failed to defer interaction", zap.Error(err))
		return
	}
	ctx, cancel := interactionContext()
	defer cancel()

	closed, err := b.Supervisor.CloseTicket(ctx, i.GuildID, channelID, i.Member.User.ID, reason)
	if err != nil {
		followUpError(b, i, "close ticket", err)
		return
	}
	if closed.ID != i.ChannelID {
		b.Responder.SendFollowUp(i.Interaction, fmt.Sprintf("✅ Closed #%s", closed.Name))
	}
}

func handleCloseButton(_ *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot, channelID string) {
	if channelID == "" {
		return
	}
	closeTicket(i, b, channelID, buttonCloseReason)
}
