package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"guildwarden/guild"
)

const (
	maintenanceWorkers = 4
	maintenanceTimeout = 10 * time.Minute
)

// Maintainer is the per-guild work the maintenance ticker runs.
type Maintainer interface {
	Guilds() []string
	LoadMutes(ctx context.Context, guildID string) error
	LoadBans(ctx context.Context, guildID string) error
	ReconcilePermissionRoles(ctx context.Context, guildID string) error
	SyncMuteRolePermissions(ctx context.Context, guildID string) error
}

var _ Maintainer = (*guild.Supervisor)(nil)

// Scheduler manages all scheduled tasks.
type Scheduler struct {
	bot  *Bot
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewScheduler creates a new scheduler.
func NewScheduler(bot *Bot) *Scheduler {
	return &Scheduler{
		bot:  bot,
		done: make(chan struct{}),
	}
}

// Start begins all scheduled tasks.
func (s *Scheduler) Start() {
	cfg := s.bot.GetConfig()
	s.wg.Add(2)
	go s.every(cfg.MaintenanceInterval, func() {
		runMaintenance(s.bot.Supervisor, s.bot.Logger, s.bot.reportMaintenance)
	})
	go s.every(cfg.StatsInterval, s.bot.logStats)
}

// Stop terminates all scheduled tasks gracefully.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		s.bot.Logger.Info("Stopping scheduler")
		close(s.done)
		s.wg.Wait()
	})
}

func (s *Scheduler) every(interval time.Duration, task func()) {
	defer s.wg.Done()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			task()
		case <-s.done:
			return
		}
	}
}

// runMaintenance reseeds punishments and reapplies channel overwrites for
// every managed guild, a few guilds at a time. Failures are passed to report.
func runMaintenance(m Maintainer, logger *zap.Logger, report func(error)) {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
	defer cancel()

	guilds := m.Guilds()
	logger.Info("Running maintenance", zap.Int("guilds", len(guilds)))

	p := pool.New().WithContext(ctx).WithMaxGoroutines(maintenanceWorkers)
	for _, guildID := range guilds {
		p.Go(func(ctx context.Context) error {
			steps := []struct {
				name string
				run  func(context.Context, string) error
			}{
				{"load mutes", m.LoadMutes},
				{"load bans", m.LoadBans},
				{"reconcile permission roles", m.ReconcilePermissionRoles},
				{"sync muted role", m.SyncMuteRolePermissions},
			}
			var failed error
			for _, step := range steps {
				if err := step.run(ctx, guildID); err != nil && failed == nil {
					failed = fmt.Errorf("guild %s: %s: %w", guildID, step.name, err)
				}
			}
			return failed
		})
	}
	if err := p.Wait(); err != nil && report != nil {
		report(err)
	}
}

func (b *Bot) reportMaintenance(err error) {
	b.OpsLog.Warn("Scheduler", "Maintenance", err.Error())
}
