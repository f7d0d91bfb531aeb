package punishments

import (
	"context"
	"testing"
	"time"

	"guildwarden/model"
	"guildwarden/utils/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Init(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	until := time.UnixMilli(1700000000000)

	t.Run("upsert and list", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, model.PunishmentRecord{
			GuildID: "g1", UserID: "u1", Until: model.FormatUntil(until), Kind: model.PunishmentMute,
		}))
		require.NoError(t, store.Upsert(ctx, model.PunishmentRecord{
			GuildID: "g1", UserID: "u2", Until: "0", Kind: model.PunishmentBan,
		}))

		mutes, err := store.List(ctx, "g1", model.PunishmentMute)
		require.NoError(t, err)
		require.Len(t, mutes, 1)
		assert.Equal(t, "u1", mutes[0].UserID)
		assert.Equal(t, model.PunishmentMute, mutes[0].Kind)
		assert.True(t, until.Equal(mutes[0].Expiry()))

		bans, err := store.List(ctx, "g1", model.PunishmentBan)
		require.NoError(t, err)
		require.Len(t, bans, 1)
		assert.True(t, bans[0].Expiry().IsZero())
	})

	t.Run("upsert replaces expiry", func(t *testing.T) {
		later := until.Add(time.Hour)
		require.NoError(t, store.Upsert(ctx, model.PunishmentRecord{
			GuildID: "g1", UserID: "u1", Until: model.FormatUntil(later), Kind: model.PunishmentMute,
		}))

		mutes, err := store.List(ctx, "g1", model.PunishmentMute)
		require.NoError(t, err)
		require.Len(t, mutes, 1)
		assert.True(t, later.Equal(mutes[0].Expiry()))
	})

	t.Run("guilds are isolated", func(t *testing.T) {
		mutes, err := store.List(ctx, "g2", model.PunishmentMute)
		require.NoError(t, err)
		assert.Empty(t, mutes)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "g1", "u1", model.PunishmentMute))
		assert.Error(t, store.Delete(ctx, "g1", "u1", model.PunishmentMute))
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := store.List(ctx, "g1", model.PunishmentKind("kick"))
		assert.Error(t, err)
	})
}
