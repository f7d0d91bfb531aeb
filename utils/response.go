package utils

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Responder wraps the interaction reply calls used by every handler.
type Responder struct {
	session *discordgo.Session
	logger  *zap.Logger
}

func NewResponder(s *discordgo.Session, logger *zap.Logger) *Responder {
	return &Responder{session: s, logger: logger.Named("response")}
}

// SendErrorResponse sends an ephemeral error message.
func (r *Responder) SendErrorResponse(i *discordgo.InteractionCreate, message string) {
	r.respond(i, "❌ "+message, discordgo.MessageFlagsEphemeral)
}

// SendPublicResponse sends a message everyone in the channel can see.
func (r *Responder) SendPublicResponse(i *discordgo.InteractionCreate, message string) {
	r.respond(i, message, 0)
}

// SendSimpleResponse sends a simple ephemeral message.
func (r *Responder) SendSimpleResponse(i *discordgo.InteractionCreate, message string) {
	r.respond(i, message, discordgo.MessageFlagsEphemeral)
}

func (r *Responder) respond(i *discordgo.InteractionCreate, message string, flags discordgo.MessageFlags) {
	err := r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:         message,
			Flags:           flags,
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		},
	})
	if err != nil {
		r.logger.Warn("Error sending response", zap.String("interaction_id", i.ID), zap.Error(err))
	}
}

// SendFollowUp edits the deferred response.
func (r *Responder) SendFollowUp(i *discordgo.Interaction, message string) {
	_, err := r.session.InteractionResponseEdit(i, &discordgo.WebhookEdit{
		Content:         &message,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	if err != nil {
		r.logger.Warn("Error sending follow-up message", zap.String("interaction_id", i.ID), zap.Error(err))
	}
}

// SendFollowUpError sends a follow-up error message to an interaction.
func (r *Responder) SendFollowUpError(i *discordgo.Interaction, message string) {
	r.SendFollowUp(i, "❌ "+message)
}

// DeferResponse defers an interaction response, optionally making it ephemeral.
func (r *Responder) DeferResponse(i *discordgo.InteractionCreate, ephemeral bool) error {
	response := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}
	if ephemeral {
		response.Data = &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		}
	}
	return r.session.InteractionRespond(i.Interaction, response)
}
