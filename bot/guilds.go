package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const guildSetupTimeout = 2 * time.Minute

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.Logger.Info("Logged in",
		zap.String("user", s.State.User.Username),
		zap.Int("guilds", len(r.Guilds)))
}

// onGuildCreate fires for every guild at startup, on joins and when an
// outage ends. Managing an already managed guild only reloads punishments.
func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Unavailable {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), guildSetupTimeout)
		defer cancel()

		b.Supervisor.Add(ctx, g.ID)
		if err := b.Supervisor.ReconcilePermissionRoles(ctx, g.ID); err != nil {
			b.Logger.Warn("Failed to reconcile permission roles", zap.String("guild_id", g.ID), zap.Error(err))
		}
	}()
}

// onGuildDelete drops the guild on removal and on outages; an outage ends
// with a GuildCreate that adds it back.
func (b *Bot) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	b.Supervisor.Remove(g.ID)
	if !g.Unavailable {
		b.Settings.Evict(g.ID)
		b.Logger.Info("Left guild", zap.String("guild_id", g.ID))
	}
}
