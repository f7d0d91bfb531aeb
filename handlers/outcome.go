package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guildwarden/bot"
	"guildwarden/guild"
)

var outcomeMessages = map[guild.Outcome]string{
	guild.OutcomeAuthorMismatch: "I could not find you in this server.",
	guild.OutcomeBlacklisted:    "You are not allowed to open tickets here.",
	guild.OutcomeDisabled:       "This feature has not been set up in this server.",
	guild.OutcomeLimit:          "You already have the maximum number of open tickets.",
	guild.OutcomeLock:           "A ticket is already being created, try again in a moment.",
	guild.OutcomeForbidden:      "You do not have permission to do that.",
	guild.OutcomeNonTicket:      "This channel is not a ticket.",
	guild.OutcomeArgs:           "A target and a reason are required.",
	guild.OutcomeEntry:          "Failed to create a mod log entry, nothing was changed.",
	guild.OutcomeNoBan:          "That user is not banned.",
}

// describeOutcome turns a guild operation error into a user facing message.
// ok is false for unexpected failures, which callers should log.
func describeOutcome(err error) (msg string, ok bool) {
	code := guild.OutcomeOf(err)
	if code == "" {
		if errors.Is(err, guild.ErrUnknownGuild) {
			return "This server is still starting up, try again shortly.", true
		}
		return "Something went wrong, please try again later.", false
	}
	if msg, found := outcomeMessages[code]; found {
		return msg, true
	}
	if action, orphaned := strings.CutSuffix(string(code), "_and_entry"); orphaned {
		return fmt.Sprintf("Failed to %s, and the mod log entry for it could not be removed.", action), true
	}
	return fmt.Sprintf("Failed to %s.", code), true
}

// followUpError reports err on a deferred interaction.
func followUpError(b *bot.Bot, i *discordgo.InteractionCreate, operation string, err error) {
	msg, expected := describeOutcome(err)
	if !expected {
		b.Logger.Error("Command failed",
			zap.String("operation", operation),
			zap.String("guild_id", i.GuildID),
			zap.String("user_id", i.Member.User.ID),
			zap.Error(err))
	}
	b.Responder.SendFollowUpError(i.Interaction, msg)
}
