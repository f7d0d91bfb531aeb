package platform

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGuildPermissions(t *testing.T) {
	roles := []*discordgo.Role{
		{ID: "g", Permissions: discordgo.PermissionViewChannel},
		{ID: "mod", Permissions: discordgo.PermissionManageMessages},
		{ID: "admin", Permissions: discordgo.PermissionAdministrator},
	}

	tests := []struct {
		name   string
		member *discordgo.Member
		want   int64
	}{
		{
			name:   "everyone only",
			member: &discordgo.Member{User: &discordgo.User{ID: "u"}},
			want:   discordgo.PermissionViewChannel,
		},
		{
			name:   "role adds",
			member: &discordgo.Member{User: &discordgo.User{ID: "u"}, Roles: []string{"mod"}},
			want:   discordgo.PermissionViewChannel | discordgo.PermissionManageMessages,
		},
		{
			name:   "administrator is everything",
			member: &discordgo.Member{User: &discordgo.User{ID: "u"}, Roles: []string{"admin"}},
			want:   discordgo.PermissionAll,
		},
		{
			name:   "owner is everything",
			member: &discordgo.Member{User: &discordgo.User{ID: "owner"}},
			want:   discordgo.PermissionAll,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, guildPermissions("g", "owner", roles, tt.member))
		})
	}
}

func TestSortOldestFirst(t *testing.T) {
	messages := []*discordgo.Message{{ID: "1000000000000000003"}, {ID: "999999999999999999"}, {ID: "1000000000000000001"}}
	sortOldestFirst(messages)
	assert.Equal(t, "999999999999999999", messages[0].ID)
	assert.Equal(t, "1000000000000000001", messages[1].ID)
	assert.Equal(t, "1000000000000000003", messages[2].ID)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))

	unknownMember := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMember},
	}
	assert.ErrorIs(t, translate(unknownMember), ErrNotFound)

	forbidden := &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusForbidden},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingPermissions},
	}
	assert.NotErrorIs(t, translate(forbidden), ErrNotFound)

	assert.ErrorIs(t, translate(discordgo.ErrStateNotFound), ErrNotFound)

	other := errors.New("network down")
	assert.Equal(t, other, translate(other))
}

func TestChannelsAreCopies(t *testing.T) {
	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{
		ID: "g",
		Channels: []*discordgo.Channel{{
			ID:      "c",
			GuildID: "g",
			Type:    discordgo.ChannelTypeGuildText,
			PermissionOverwrites: []*discordgo.PermissionOverwrite{
				{ID: "r", Type: discordgo.PermissionOverwriteTypeRole, Allow: discordgo.PermissionViewChannel},
			},
		}},
	}))
	d := NewDiscord(&discordgo.Session{State: state}, zap.NewNop())
	ctx := context.Background()

	channels, err := d.Channels(ctx, "g")
	require.NoError(t, err)
	require.Len(t, channels, 1)
	channels[0].PermissionOverwrites[0].Deny = discordgo.PermissionSendMessages
	channels[0].PermissionOverwrites = nil

	single, err := d.Channel(ctx, "c")
	require.NoError(t, err)
	single.Topic = "changed"

	cached, err := state.Channel("c")
	require.NoError(t, err)
	require.Len(t, cached.PermissionOverwrites, 1)
	assert.Zero(t, cached.PermissionOverwrites[0].Deny)
	assert.Empty(t, cached.Topic)
}
