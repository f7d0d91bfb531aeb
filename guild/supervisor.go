package guild

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"guildwarden/model"
)

const (
	muteSweepInterval = 60 * time.Second
	banSweepInterval  = 90 * time.Second
)

// ErrUnknownGuild is returned for operations on a guild the supervisor does not run.
var ErrUnknownGuild = errors.New("guild is not managed")

// Options wires a Supervisor to its collaborators.
type Options struct {
	Platform    Platform
	Settings    Settings
	Punishments PunishmentStore
	ModLogs     ModLogStore
	PermRoles   PermRoleStore
	Blacklist   Blacklist
	Notifier    Notifier
	Logger      *zap.Logger

	// TicketWords feeds the {word} ticket name variable.
	TicketWords []string
	Experiments []model.Experiment
	// Now defaults to time.Now.
	Now func() time.Time
}

// TenantState is the in-memory state of one guild.
type TenantState struct {
	GuildID string

	mu        sync.Mutex
	mutes     map[string]time.Time
	tempBans  map[string]time.Time
	permRoles map[string]model.PermRole
	tickets   *permitPool

	// records serialises punishment store writes with reseeds, so a record
	// saved while a reseed is listing lands after the reseed swaps its maps.
	records sync.Mutex

	// sequence serialises reads and writes of the ticket counter.
	sequence sync.Mutex

	// ticketList guards tickets.channels and reserved, the per-author count
	// of creations that passed the limit check but are not listed yet.
	ticketList sync.Mutex
	reserved   map[string]int
}

func newTenantState(guildID string) *TenantState {
	return &TenantState{
		GuildID:   guildID,
		mutes:     make(map[string]time.Time),
		tempBans:  make(map[string]time.Time),
		permRoles: make(map[string]model.PermRole),
		tickets:   newPermitPool(1),
		reserved:  make(map[string]int),
	}
}

func (t *TenantState) punishments(kind model.PunishmentKind) map[string]time.Time {
	if kind == model.PunishmentBan {
		return t.tempBans
	}
	return t.mutes
}

// Punishment returns the cached expiry for a user.
func (t *TenantState) Punishment(kind model.PunishmentKind, userID string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	until, ok := t.punishments(kind)[userID]
	return until, ok
}

func (t *TenantState) replacePunishments(kind model.PunishmentKind, set map[string]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if kind == model.PunishmentBan {
		t.tempBans = set
	} else {
		t.mutes = set
	}
}

func (t *TenantState) remember(kind model.PunishmentKind, userID string, until time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.punishments(kind)[userID] = until
}

func (t *TenantState) forget(kind model.PunishmentKind, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.punishments(kind), userID)
}

// due lists users whose punishment has a set expiry at or before now.
func (t *TenantState) due(kind model.PunishmentKind, now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []string
	for userID, until := range t.punishments(kind) {
		if !until.IsZero() && !now.Before(until) {
			ids = append(ids, userID)
		}
	}
	sort.Strings(ids)
	return ids
}

// ticketPool returns the permit pool for limit, replacing it when the limit changed.
func (t *TenantState) ticketPool(limit int) *permitPool {
	if limit < 1 {
		limit = 1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tickets.limit != limit {
		t.tickets = newPermitPool(limit)
	}
	return t.tickets
}

// unreserve drops one of the author's in-flight tickets. Callers hold ticketList.
func (t *TenantState) unreserve(authorID string) {
	if t.reserved[authorID] <= 1 {
		delete(t.reserved, authorID)
		return
	}
	t.reserved[authorID]--
}

func (t *TenantState) setPermRoles(roles []model.PermRole) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.permRoles = make(map[string]model.PermRole, len(roles))
	for _, role := range roles {
		t.permRoles[role.RoleID] = role
	}
}

// PermRoles returns a copy of the cached permission roles.
func (t *TenantState) PermRoles() []model.PermRole {
	t.mu.Lock()
	defer t.mu.Unlock()
	roles := make([]model.PermRole, 0, len(t.permRoles))
	for _, role := range t.permRoles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].RoleID < roles[j].RoleID })
	return roles
}

type tenant struct {
	state  *TenantState
	cancel context.CancelFunc
}

// Supervisor owns every managed guild and its background sweeps.
type Supervisor struct {
	platform    Platform
	settings    Settings
	punishments PunishmentStore
	modLogs     ModLogStore
	permRoles   PermRoleStore
	blacklist   Blacklist
	notifier    Notifier
	logger      *zap.Logger

	words       []string
	experiments []model.Experiment
	now         func() time.Time

	mu      sync.RWMutex
	tenants map[string]*tenant
	loops   conc.WaitGroup

	muteInterval time.Duration
	banInterval  time.Duration
}

func NewSupervisor(opts Options) *Supervisor {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		platform:     opts.Platform,
		settings:     opts.Settings,
		punishments:  opts.Punishments,
		modLogs:      opts.ModLogs,
		permRoles:    opts.PermRoles,
		blacklist:    opts.Blacklist,
		notifier:     opts.Notifier,
		logger:       logger.Named("guild"),
		words:        opts.TicketWords,
		experiments:  opts.Experiments,
		now:          now,
		tenants:      make(map[string]*tenant),
		muteInterval: muteSweepInterval,
		banInterval:  banSweepInterval,
	}
}

// Add starts managing a guild: punishments are loaded and both sweeps start.
// Adding a managed guild again only reloads its punishments.
func (s *Supervisor) Add(ctx context.Context, guildID string) *TenantState {
	s.mu.Lock()
	t, exists := s.tenants[guildID]
	if !exists {
		loopCtx, cancel := context.WithCancel(context.Background())
		t = &tenant{state: newTenantState(guildID), cancel: cancel}
		s.tenants[guildID] = t
		s.startSweep(loopCtx, guildID, model.PunishmentMute, s.muteInterval)
		s.startSweep(loopCtx, guildID, model.PunishmentBan, s.banInterval)
	}
	s.mu.Unlock()

	if err := s.LoadMutes(ctx, guildID); err != nil {
		s.logger.Warn("Failed to load mutes", zap.String("guild_id", guildID), zap.Error(err))
	}
	if err := s.LoadBans(ctx, guildID); err != nil {
		s.logger.Warn("Failed to load bans", zap.String("guild_id", guildID), zap.Error(err))
	}

	if !exists {
		s.logger.Info("Guild added", zap.String("guild_id", guildID))
	}
	return t.state
}

// Remove stops the guild's sweeps and drops its state.
func (s *Supervisor) Remove(guildID string) {
	s.mu.Lock()
	t, ok := s.tenants[guildID]
	delete(s.tenants, guildID)
	s.mu.Unlock()
	if !ok {
		return
	}
	t.cancel()
	s.logger.Info("Guild removed", zap.String("guild_id", guildID))
}

// Close removes every guild and waits for their loops to exit.
func (s *Supervisor) Close() {
	for _, guildID := range s.Guilds() {
		s.Remove(guildID)
	}
	if r := s.loops.WaitAndRecover(); r != nil {
		s.logger.Error("Sweep loop panicked", zap.String("panic", r.String()))
	}
}

// State returns the state of a managed guild.
func (s *Supervisor) State(guildID string) (*TenantState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[guildID]
	if !ok {
		return nil, false
	}
	return t.state, true
}

// Guilds lists the managed guild IDs.
func (s *Supervisor) Guilds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.tenants))
	for id := range s.tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Supervisor) startSweep(ctx context.Context, guildID string, kind model.PunishmentKind, interval time.Duration) {
	s.loops.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, ok := s.State(guildID); !ok {
					return
				}
				var pc panics.Catcher
				pc.Try(func() { s.Sweep(ctx, guildID, kind) })
				if r := pc.Recovered(); r != nil {
					s.logger.Error("Sweep panicked",
						zap.String("guild_id", guildID),
						zap.String("kind", string(kind)),
						zap.String("panic", r.String()))
				}
			}
		}
	})
}

func (s *Supervisor) hasExperiment(guildID string, id int64, bucket int) bool {
	for _, e := range s.experiments {
		if e.ID == id {
			return e.Has(guildID, bucket)
		}
	}
	return false
}

func (s *Supervisor) randomWord() string {
	if len(s.words) == 0 {
		return ""
	}
	return s.words[rand.IntN(len(s.words))]
}
