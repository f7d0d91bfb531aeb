package guild

import (
	"errors"

	"guildwarden/model"
)

// Outcome is the stable code for an expected failure of a guild operation.
// It is returned as an error so callers can branch on it with errors.As or ==.
type Outcome string

func (o Outcome) Error() string { return string(o) }

const (
	OutcomeAuthorMismatch Outcome = "author-mismatch"
	OutcomeBlacklisted    Outcome = "blacklisted"
	OutcomeDisabled       Outcome = "disabled"
	OutcomeLimit          Outcome = "limit"
	OutcomeLock           Outcome = "lock"
	OutcomeForbidden      Outcome = "forbidden"
	OutcomeNonTicket      Outcome = "nonticket"
	OutcomeArgs           Outcome = "args"
	OutcomeEntry          Outcome = "entry"
	OutcomeNoBan          Outcome = "no_ban"

	OutcomeUnban           Outcome = "unban"
	OutcomeUnbanAndEntry   Outcome = "unban_and_entry"
	OutcomeBlock           Outcome = "block"
	OutcomeBlockAndEntry   Outcome = "block_and_entry"
	OutcomeUnblock         Outcome = "unblock"
	OutcomeUnblockAndEntry Outcome = "unblock_and_entry"
	OutcomeUnmute          Outcome = "unmute"
	OutcomeUnmuteAndEntry  Outcome = "unmute_and_entry"
	OutcomeMute            Outcome = "mute"
	OutcomeMuteAndEntry    Outcome = "mute_and_entry"
	OutcomeBan             Outcome = "ban"
	OutcomeBanAndEntry     Outcome = "ban_and_entry"
)

// OutcomeOf extracts the outcome code from err, or "" when err is nil or an
// unexpected failure.
func OutcomeOf(err error) Outcome {
	var o Outcome
	if errors.As(err, &o) {
		return o
	}
	return ""
}

// actionFailure is the code for a failed moderation action. orphaned means
// the provisional mod log entry could not be removed.
func actionFailure(action model.ModLogType, orphaned bool) Outcome {
	if orphaned {
		return Outcome(string(action) + "_and_entry")
	}
	return Outcome(action)
}
