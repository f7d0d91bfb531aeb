package bot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"guildwarden/events"
)

// Run connects, registers commands and blocks until SIGINT or SIGTERM.
func (b *Bot) Run() error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	b.startedAt = time.Now()

	if err := b.RefreshCommands(); err != nil {
		b.OpsLog.Error("System", "Register commands", err.Error())
	}

	b.Events.On(events.TicketCreate, func(ev events.Event) {
		b.Logger.Info("Ticket opened", zap.String("guild_id", ev.GuildID), zap.String("channel_id", ev.ChannelID), zap.String("user_id", ev.UserID))
	})
	b.Events.On(events.TicketClose, func(ev events.Event) {
		b.Logger.Info("Ticket closed", zap.String("guild_id", ev.GuildID), zap.String("channel_id", ev.ChannelID), zap.String("user_id", ev.UserID))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := b.Events.Subscribe(ctx, func(ev events.Event) {
		b.Logger.Debug("Event from another process",
			zap.String("event", ev.Name),
			zap.String("guild_id", ev.GuildID),
			zap.String("origin", ev.Origin))
	})
	if err != nil {
		b.OpsLog.Warn("System", "Subscribe events", err.Error())
	}

	b.scheduler.Start()

	b.Logger.Info("Bot is now running. Press CTRL-C to exit.")
	b.OpsLog.Info("System", "Startup", "Bot has started successfully.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	select {
	case <-sc:
	case <-b.done:
	}
	return nil
}
