package guild

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guildwarden/model"
)

const (
	modID    = "710000000000000001"
	bannedID = "710000000000000002"
	chatID   = "820000000000000010"
)

func ledgerHarness(t *testing.T) (*harness, *discordgo.Member, *discordgo.User) {
	t.Helper()
	h := newHarness(t)
	mod := h.platform.addMember(modID, "mod", discordgo.PermissionBanMembers|discordgo.PermissionManageMessages|discordgo.PermissionManageRoles)
	h.platform.users[bannedID] = &discordgo.User{ID: bannedID, Username: "troll"}
	h.platform.bans[bannedID] = true
	h.platform.addChannel(&discordgo.Channel{ID: chatID, Type: discordgo.ChannelTypeGuildText})
	return h, mod, h.platform.users[bannedID]
}

func TestUnban(t *testing.T) {
	ctx := context.Background()

	t.Run("success clears the temporary ban", func(t *testing.T) {
		h, mod, user := ledgerHarness(t)
		h.set(t, keyModerationLog, modLogID)
		require.NoError(t, h.sup.RecordTempBan(ctx, testGuild, bannedID, h.now.Add(1e9)))

		caseID, err := h.sup.Unban(ctx, testGuild, user, "appealed", mod, chatID)
		require.NoError(t, err)
		assert.NotEmpty(t, caseID)
		assert.False(t, h.platform.bans[bannedID])
		assert.False(t, h.punishments.has(bannedID, model.PunishmentBan))

		entry := h.modLogs.entries[caseID]
		assert.Equal(t, model.ModLogUnban, entry.Type)
		assert.Equal(t, modID, entry.ModeratorID)
		assert.Equal(t, "2024/05/01 12:00:00", entry.Date)

		assert.Len(t, h.platform.sentTo(modLogID), 1)
		assert.Len(t, h.platform.sentTo(chatID), 1)
	})

	t.Run("failed action compensates the entry", func(t *testing.T) {
		h, mod, user := ledgerHarness(t)
		h.platform.unbanErr = errBoom

		_, err := h.sup.Unban(ctx, testGuild, user, "appealed", mod, "")
		assert.Equal(t, OutcomeUnban, OutcomeOf(err))
		assert.Zero(t, h.modLogs.count())
	})

	t.Run("entry that cannot be compensated is reported", func(t *testing.T) {
		h, mod, user := ledgerHarness(t)
		h.platform.unbanErr = errBoom
		h.modLogs.deleteErr = errBoom

		_, err := h.sup.Unban(ctx, testGuild, user, "appealed", mod, "")
		assert.Equal(t, OutcomeUnbanAndEntry, OutcomeOf(err))
		assert.Equal(t, 1, h.modLogs.count())
	})

	t.Run("precondition outcomes", func(t *testing.T) {
		h, mod, user := ledgerHarness(t)
		nobody := h.platform.addMember("710000000000000003", "nobody", 0)

		_, err := h.sup.Unban(ctx, testGuild, user, "", mod, "")
		assert.Equal(t, OutcomeArgs, OutcomeOf(err))

		_, err = h.sup.Unban(ctx, testGuild, user, "appealed", nil, "")
		assert.Equal(t, OutcomeArgs, OutcomeOf(err))

		_, err = h.sup.Unban(ctx, testGuild, user, "appealed", nobody, "")
		assert.Equal(t, OutcomeForbidden, OutcomeOf(err))

		_, err = h.sup.Unban(ctx, testGuild, &discordgo.User{ID: "710000000000000004"}, "appealed", mod, "")
		assert.Equal(t, OutcomeNoBan, OutcomeOf(err))

		h.modLogs.createErr = errBoom
		_, err = h.sup.Unban(ctx, testGuild, user, "appealed", mod, "")
		assert.Equal(t, OutcomeEntry, OutcomeOf(err))
		assert.True(t, h.platform.bans[bannedID], "action not attempted without an entry")
	})
}

func TestBlock(t *testing.T) {
	ctx := context.Background()

	t.Run("member block merges into existing overwrite", func(t *testing.T) {
		h, mod, _ := ledgerHarness(t)
		target := h.platform.addMember("710000000000000005", "spammer", 0)
		require.NoError(t, h.platform.EditOverwrite(ctx, chatID, &discordgo.PermissionOverwrite{
			ID: target.User.ID, Type: discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionAttachFiles | discordgo.PermissionSendMessages,
		}, ""))

		caseID, err := h.sup.Block(ctx, testGuild, NewMemberTarget(target, nil), "spam", mod, chatID)
		require.NoError(t, err)
		assert.NotEmpty(t, caseID)

		ch, _ := h.platform.Channel(ctx, chatID)
		ow := findOverwrite(ch.PermissionOverwrites, target.User.ID)
		require.NotNil(t, ow)
		assert.Equal(t, int64(discordgo.PermissionAttachFiles), ow.Allow)
		assert.Equal(t, int64(blockedPermissions), ow.Deny)
		assert.Equal(t, model.ModLogBlock, h.modLogs.entries[caseID].Type)
	})

	t.Run("role targets are not logged", func(t *testing.T) {
		h, mod, _ := ledgerHarness(t)
		role := &discordgo.Role{ID: "920000000000000001", Name: "Newcomers", Color: 0x00FF00}

		caseID, err := h.sup.Block(ctx, testGuild, RoleTarget{Role: role}, "raid", mod, chatID)
		require.NoError(t, err)
		assert.Empty(t, caseID)
		assert.Zero(t, h.modLogs.count())
	})

	t.Run("failed overwrite is compensated", func(t *testing.T) {
		h, mod, _ := ledgerHarness(t)
		target := h.platform.addMember("710000000000000005", "spammer", 0)
		h.platform.editErr = errBoom

		_, err := h.sup.Block(ctx, testGuild, NewMemberTarget(target, nil), "spam", mod, chatID)
		assert.Equal(t, OutcomeBlock, OutcomeOf(err))
		assert.Zero(t, h.modLogs.count())

		h.modLogs.deleteErr = errBoom
		_, err = h.sup.Unblock(ctx, testGuild, NewMemberTarget(target, nil), "spam", mod, chatID)
		assert.Equal(t, OutcomeUnblockAndEntry, OutcomeOf(err))
	})

	t.Run("moderator needs manage messages in the channel", func(t *testing.T) {
		h, mod, _ := ledgerHarness(t)
		h.platform.chPerms[chatID] = map[string]int64{modID: discordgo.PermissionSendMessages}
		target := h.platform.addMember("710000000000000005", "spammer", 0)

		_, err := h.sup.Block(ctx, testGuild, NewMemberTarget(target, nil), "spam", mod, chatID)
		assert.Equal(t, OutcomeForbidden, OutcomeOf(err))
	})
}

func TestUnblock(t *testing.T) {
	ctx := context.Background()

	t.Run("empty overwrite is removed", func(t *testing.T) {
		h, mod, _ := ledgerHarness(t)
		target := NewMemberTarget(h.platform.addMember("710000000000000005", "spammer", 0), nil)
		_, err := h.sup.Block(ctx, testGuild, target, "spam", mod, chatID)
		require.NoError(t, err)

		_, err = h.sup.Unblock(ctx, testGuild, target, "ok now", mod, chatID)
		require.NoError(t, err)

		ch, _ := h.platform.Channel(ctx, chatID)
		assert.Nil(t, findOverwrite(ch.PermissionOverwrites, target.ID()))
		assert.Equal(t, 2, h.modLogs.count())
	})

	t.Run("everyone overwrite is kept", func(t *testing.T) {
		h, mod, _ := ledgerHarness(t)
		everyone := RoleTarget{Role: &discordgo.Role{ID: testGuild, Name: "@everyone"}}
		_, err := h.sup.Block(ctx, testGuild, everyone, "lockdown", mod, chatID)
		require.NoError(t, err)

		_, err = h.sup.Unblock(ctx, testGuild, everyone, "over", mod, chatID)
		require.NoError(t, err)

		ch, _ := h.platform.Channel(ctx, chatID)
		ow := findOverwrite(ch.PermissionOverwrites, testGuild)
		require.NotNil(t, ow)
		assert.Zero(t, ow.Allow|ow.Deny)
	})
}

func TestUnmute(t *testing.T) {
	ctx := context.Background()
	h, mod, _ := ledgerHarness(t)
	h.set(t, "mod.mutedrole", mutedRole)
	muted := h.platform.addMember("710000000000000006", "quiet", 0, mutedRole)
	require.NoError(t, h.sup.RecordMute(ctx, testGuild, muted.User.ID, h.now.Add(1e12)))

	_, err := h.sup.Unmute(ctx, testGuild, muted, "served", mod)
	require.NoError(t, err)
	assert.Equal(t, []string{muted.User.ID + ":" + mutedRole}, h.platform.removed)
	state, _ := h.sup.State(testGuild)
	_, cached := state.Punishment(model.PunishmentMute, muted.User.ID)
	assert.False(t, cached)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeLimit, OutcomeOf(OutcomeLimit))
	assert.Empty(t, OutcomeOf(errBoom))
	assert.Empty(t, OutcomeOf(nil))
	assert.Equal(t, OutcomeBlockAndEntry, actionFailure(model.ModLogBlock, true))
	assert.Equal(t, "unmute", OutcomeUnmute.Error())
}
