package bot

import (
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"guildwarden/commands"
	"guildwarden/events"
	"guildwarden/guild"
	"guildwarden/model"
	"guildwarden/platform"
	"guildwarden/settings"
	"guildwarden/utils"
	"guildwarden/utils/database"
	"guildwarden/utils/database/punishments"
)

// moderationCooldown keeps a double-submitted command from acting twice on the same target.
const moderationCooldown = 5 * time.Second

type Bot struct {
	Session            *discordgo.Session
	RegisteredCommands []*discordgo.ApplicationCommand
	config             atomic.Value // *model.Config
	CommandHandlers    map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)

	DB         *sqlx.DB
	Redis      *redis.Client
	Settings   *settings.Store
	Blacklist  *database.PlonkDB
	ModLogs    *database.ModLogDB
	Events     *events.Notifier
	Supervisor *guild.Supervisor
	OpsLog     *utils.OpsLog
	Responder  *utils.Responder
	Cooldowns  *utils.Cooldown
	Logger     *zap.Logger

	scheduler *Scheduler
	startedAt time.Time
	done      chan struct{}
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load().(*model.Config)
}

// New wires the session, stores and guild supervisor. rdb may be nil.
func New(cfg *model.Config, db *sqlx.DB, rdb *redis.Client, logger *zap.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent
	dg.StateEnabled = true
	dg.State.TrackMembers = true
	dg.State.TrackRoles = true
	dg.State.TrackChannels = true

	store := settings.NewStore(database.NewSettingsDB(db), logger)
	plonks := database.NewPlonkDB(db)
	modLogs := database.NewModLogDB(db)
	notifier := events.NewNotifier(rdb, logger)

	b := &Bot{
		Session:   dg,
		DB:        db,
		Redis:     rdb,
		Settings:  store,
		Blacklist: plonks,
		ModLogs:   modLogs,
		Events:    notifier,
		OpsLog:    utils.NewOpsLog(dg, cfg.LogChannelID, logger),
		Responder: utils.NewResponder(dg, logger),
		Cooldowns: utils.NewCooldown(moderationCooldown),
		Logger:    logger.Named("bot"),
		done:      make(chan struct{}),
	}
	b.config.Store(cfg)

	b.Supervisor = guild.NewSupervisor(guild.Options{
		Platform:    platform.NewDiscord(dg, logger),
		Settings:    store,
		Punishments: punishments.NewStore(db),
		ModLogs:     modLogs,
		PermRoles:   database.NewPermRoleDB(db),
		Blacklist:   plonks,
		Notifier:    notifier,
		Logger:      logger,
		TicketWords: cfg.TicketWords,
		Experiments: cfg.Experiments,
	})
	b.scheduler = NewScheduler(b)

	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onGuildDelete)
	return b, nil
}

// Close stops background work, then the supervisor, then the gateway.
func (b *Bot) Close() {
	b.Logger.Info("Gracefully shutting down")
	close(b.done)
	b.scheduler.Stop()
	b.Supervisor.Close()

	if err := b.Session.Close(); err != nil {
		b.Logger.Warn("Failed to close session", zap.Error(err))
	}
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			b.Logger.Warn("Failed to close redis", zap.Error(err))
		}
	}
}

// RefreshCommands overwrites the global command set.
func (b *Bot) RefreshCommands() error {
	cmds := commands.GenerateCommands()
	appID := b.GetConfig().AppID
	if appID == "" {
		appID = b.Session.State.User.ID
	}
	b.Logger.Info("Registering commands", zap.Int("count", len(cmds)))
	registered, err := b.Session.ApplicationCommandBulkOverwrite(appID, "", cmds)
	if err != nil {
		return err
	}
	b.RegisteredCommands = registered
	return nil
}
