package platform

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// ErrNotFound marks a member, user, ban, channel or role that Discord no
// longer knows about.
var ErrNotFound = errors.New("not found")

// Discord JSON error codes that mean the object is gone.
var unknownCodes = map[int]struct{}{
	discordgo.ErrCodeUnknownChannel: {},
	discordgo.ErrCodeUnknownMember:  {},
	discordgo.ErrCodeUnknownUser:    {},
	discordgo.ErrCodeUnknownBan:     {},
	discordgo.ErrCodeUnknownRole:    {},
	discordgo.ErrCodeUnknownMessage: {},
}

// translate maps REST "unknown object" failures onto ErrNotFound and leaves
// everything else untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil {
			if _, ok := unknownCodes[restErr.Message.Code]; ok {
				return errors.Join(ErrNotFound, err)
			}
		}
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return errors.Join(ErrNotFound, err)
		}
	}
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return ErrNotFound
	}
	return err
}
