package bot

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"guildwarden/model"
)

type fakeMaintainer struct {
	mu     sync.Mutex
	guilds []string
	calls  []string
	failOn map[string]error
}

func (f *fakeMaintainer) Guilds() []string { return f.guilds }

func (f *fakeMaintainer) record(step, guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, guildID+":"+step)
	return f.failOn[guildID+":"+step]
}

func (f *fakeMaintainer) LoadMutes(_ context.Context, g string) error { return f.record("mutes", g) }
func (f *fakeMaintainer) LoadBans(_ context.Context, g string) error  { return f.record("bans", g) }
func (f *fakeMaintainer) ReconcilePermissionRoles(_ context.Context, g string) error {
	return f.record("permroles", g)
}
func (f *fakeMaintainer) SyncMuteRolePermissions(_ context.Context, g string) error {
	return f.record("muterole", g)
}

func TestRunMaintenance(t *testing.T) {
	t.Run("every step for every guild", func(t *testing.T) {
		m := &fakeMaintainer{guilds: []string{"1", "2", "3", "4", "5"}}
		var reported error
		runMaintenance(m, zap.NewNop(), func(err error) { reported = err })

		assert.NoError(t, reported)
		assert.Len(t, m.calls, 20)
	})

	t.Run("a failing step does not stop the rest", func(t *testing.T) {
		m := &fakeMaintainer{
			guilds: []string{"1", "2"},
			failOn: map[string]error{"1:bans": errors.New("db locked")},
		}
		var reported error
		runMaintenance(m, zap.NewNop(), func(err error) { reported = err })

		require.Error(t, reported)
		assert.Contains(t, reported.Error(), "guild 1: load bans")
		sort.Strings(m.calls)
		assert.Equal(t, []string{
			"1:bans", "1:muterole", "1:mutes", "1:permroles",
			"2:bans", "2:muterole", "2:mutes", "2:permroles",
		}, m.calls)
	})
}

func TestConnectRedis(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled without address", func(t *testing.T) {
		rdb, err := ConnectRedis(ctx, model.RedisConfig{}, zap.NewNop())
		require.NoError(t, err)
		assert.Nil(t, rdb)
	})

	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb, err := ConnectRedis(ctx, model.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
		require.NoError(t, err)
		defer rdb.Close()
		assert.NoError(t, rdb.Ping(ctx).Err())
	})

	t.Run("gives up when cancelled", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
		_, err := ConnectRedis(ctx, model.RedisConfig{Addr: addr}, zap.NewNop())
		assert.Error(t, err)
	})
}

func TestStatsEmbed(t *testing.T) {
	embed := SystemStats{CPUCount: 4, Guilds: 2, Uptime: 90 * time.Second}.Embed(time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC))
	assert.Equal(t, "系统信息", embed.Title)
	assert.Equal(t, "-", embed.Fields[0].Value)
	assert.Equal(t, "系统监控・今天09:30", embed.Footer.Text)
}
