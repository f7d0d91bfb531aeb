package guild

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"guildwarden/events"
	"guildwarden/model"
	"guildwarden/platform"
	"guildwarden/settings"
)

const (
	testGuild = "100000000000000001"
	testBot   = "200000000000000002"
)

var errBoom = errors.New("boom")

type sentMessage struct {
	to    string
	msg   *discordgo.MessageSend
	files map[string]string
}

// fakePlatform is an in-memory guild. Lookups return copies so callers
// cannot mutate state without going through an API call.
type fakePlatform struct {
	mu sync.Mutex

	ready    bool
	guild    *discordgo.Guild
	members  map[string]*discordgo.Member
	users    map[string]*discordgo.User
	roles    []*discordgo.Role
	channels []*discordgo.Channel
	perms    map[string]int64
	chPerms  map[string]map[string]int64
	bans     map[string]bool
	history  map[string][]*discordgo.Message

	sent       []sentMessage
	directs    []sentMessage
	created    []discordgo.GuildChannelCreateData
	deleted    []string
	overwrites int
	edits      []*discordgo.PermissionOverwrite
	removed    []string
	added      []string
	nextID     int

	memberErr     error
	unbanErr      error
	banErr        error
	addRoleErr    error
	createRoleErr error
	removeRoleErr error
	editErr       error
	createErr     error
	setErrFor     map[string]error

	// createDelay holds CreateChannel outside the lock so creations overlap.
	createDelay time.Duration
}

func newFakePlatform() *fakePlatform {
	p := &fakePlatform{
		ready:     true,
		guild:     &discordgo.Guild{ID: testGuild, Name: "Test Guild"},
		members:   make(map[string]*discordgo.Member),
		users:     make(map[string]*discordgo.User),
		perms:     make(map[string]int64),
		chPerms:   make(map[string]map[string]int64),
		bans:      make(map[string]bool),
		history:   make(map[string][]*discordgo.Message),
		setErrFor: make(map[string]error),
	}
	p.addMember(testBot, "warden", discordgo.PermissionAdministrator)
	return p
}

func (p *fakePlatform) addMember(id, name string, perms int64, roles ...string) *discordgo.Member {
	p.mu.Lock()
	defer p.mu.Unlock()
	user := &discordgo.User{ID: id, Username: name}
	member := &discordgo.Member{GuildID: testGuild, User: user, Roles: roles}
	p.users[id] = user
	p.members[id] = member
	p.perms[id] = perms
	return member
}

func (p *fakePlatform) addChannel(ch *discordgo.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch.GuildID = testGuild
	p.channels = append(p.channels, ch)
}

func copyChannel(ch *discordgo.Channel) *discordgo.Channel {
	c := *ch
	c.PermissionOverwrites = make([]*discordgo.PermissionOverwrite, 0, len(ch.PermissionOverwrites))
	for _, ow := range ch.PermissionOverwrites {
		o := *ow
		c.PermissionOverwrites = append(c.PermissionOverwrites, &o)
	}
	return &c
}

func (p *fakePlatform) channel(id string) *discordgo.Channel {
	for _, ch := range p.channels {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

func (p *fakePlatform) Ready(string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *fakePlatform) Guild(context.Context, string) (*discordgo.Guild, error) {
	return p.guild, nil
}

func (p *fakePlatform) Self(ctx context.Context, guildID string) (*discordgo.Member, error) {
	return p.Member(ctx, guildID, testBot)
}

func (p *fakePlatform) Member(_ context.Context, _, userID string) (*discordgo.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.memberErr != nil {
		return nil, p.memberErr
	}
	m, ok := p.members[userID]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", userID, platform.ErrNotFound)
	}
	c := *m
	return &c, nil
}

func (p *fakePlatform) User(_ context.Context, userID string) (*discordgo.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, platform.ErrNotFound)
	}
	return u, nil
}

func (p *fakePlatform) Roles(context.Context, string) ([]*discordgo.Role, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*discordgo.Role(nil), p.roles...), nil
}

func (p *fakePlatform) Channel(_ context.Context, channelID string) (*discordgo.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := p.channel(channelID)
	if ch == nil {
		return nil, platform.ErrNotFound
	}
	return copyChannel(ch), nil
}

func (p *fakePlatform) Channels(context.Context, string) ([]*discordgo.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*discordgo.Channel, 0, len(p.channels))
	for _, ch := range p.channels {
		out = append(out, copyChannel(ch))
	}
	return out, nil
}

func (p *fakePlatform) MemberPermissions(_ context.Context, _, userID string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.perms[userID], nil
}

func (p *fakePlatform) ChannelPermissions(_ context.Context, channelID, userID string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if byUser, ok := p.chPerms[channelID]; ok {
		if perms, ok := byUser[userID]; ok {
			return perms, nil
		}
	}
	perms := p.perms[userID]
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll, nil
	}
	return perms, nil
}

func (p *fakePlatform) CreateChannel(_ context.Context, _ string, data discordgo.GuildChannelCreateData, _ string) (*discordgo.Channel, error) {
	p.mu.Lock()
	delay := p.createDelay
	p.mu.Unlock()
	time.Sleep(delay)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.nextID++
	p.created = append(p.created, data)
	ch := &discordgo.Channel{
		ID:                   fmt.Sprintf("30000000000000000%d", p.nextID),
		GuildID:              testGuild,
		Name:                 data.Name,
		Type:                 data.Type,
		Topic:                data.Topic,
		ParentID:             data.ParentID,
		PermissionOverwrites: data.PermissionOverwrites,
	}
	p.channels = append(p.channels, ch)
	return copyChannel(ch), nil
}

func (p *fakePlatform) DeleteChannel(_ context.Context, channelID, _ string) (*discordgo.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, ch := range p.channels {
		if ch.ID == channelID {
			p.channels = append(p.channels[:i], p.channels[i+1:]...)
			p.deleted = append(p.deleted, channelID)
			return ch, nil
		}
	}
	return nil, platform.ErrNotFound
}

func (p *fakePlatform) SetOverwrites(_ context.Context, channelID string, overwrites []*discordgo.PermissionOverwrite, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.setErrFor[channelID]; err != nil {
		return err
	}
	ch := p.channel(channelID)
	if ch == nil {
		return platform.ErrNotFound
	}
	p.overwrites++
	ch.PermissionOverwrites = copyChannel(&discordgo.Channel{PermissionOverwrites: overwrites}).PermissionOverwrites
	return nil
}

func (p *fakePlatform) EditOverwrite(_ context.Context, channelID string, overwrite *discordgo.PermissionOverwrite, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.editErr != nil {
		return p.editErr
	}
	ch := p.channel(channelID)
	if ch == nil {
		return platform.ErrNotFound
	}
	o := *overwrite
	p.edits = append(p.edits, &o)
	ch.PermissionOverwrites = replaceOverwrite(ch.PermissionOverwrites, &o)
	return nil
}

func (p *fakePlatform) DeleteOverwrite(_ context.Context, channelID, targetID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := p.channel(channelID)
	if ch == nil {
		return platform.ErrNotFound
	}
	kept := ch.PermissionOverwrites[:0]
	for _, ow := range ch.PermissionOverwrites {
		if ow.ID != targetID {
			kept = append(kept, ow)
		}
	}
	ch.PermissionOverwrites = kept
	return nil
}

func (p *fakePlatform) Messages(_ context.Context, channelID string, fn func(*discordgo.Message) error) error {
	p.mu.Lock()
	history := append([]*discordgo.Message(nil), p.history[channelID]...)
	p.mu.Unlock()
	for _, m := range history {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func readFiles(msg *discordgo.MessageSend) map[string]string {
	files := make(map[string]string, len(msg.Files))
	for _, f := range msg.Files {
		body, _ := io.ReadAll(f.Reader)
		files[f.Name] = string(body)
	}
	return files
}

func (p *fakePlatform) Send(_ context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	files := readFiles(msg)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	p.sent = append(p.sent, sentMessage{to: channelID, msg: msg, files: files})
	return &discordgo.Message{ID: fmt.Sprintf("40000000000000000%d", p.nextID), ChannelID: channelID}, nil
}

func (p *fakePlatform) SendDirect(_ context.Context, userID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	files := readFiles(msg)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.directs = append(p.directs, sentMessage{to: userID, msg: msg, files: files})
	return &discordgo.Message{}, nil
}

func (p *fakePlatform) sentTo(channelID string) []sentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []sentMessage
	for _, m := range p.sent {
		if m.to == channelID {
			out = append(out, m)
		}
	}
	return out
}

func (p *fakePlatform) Ban(_ context.Context, _, userID string) (*discordgo.GuildBan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.bans[userID] {
		return nil, fmt.Errorf("ban %s: %w", userID, platform.ErrNotFound)
	}
	return &discordgo.GuildBan{User: p.users[userID]}, nil
}

func (p *fakePlatform) Unban(_ context.Context, _, userID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unbanErr != nil {
		return p.unbanErr
	}
	delete(p.bans, userID)
	return nil
}

func (p *fakePlatform) CreateBan(_ context.Context, _, userID, _ string, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.banErr != nil {
		return p.banErr
	}
	p.bans[userID] = true
	return nil
}

func (p *fakePlatform) CreateRole(_ context.Context, _ string, params *discordgo.RoleParams, _ string) (*discordgo.Role, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createRoleErr != nil {
		return nil, p.createRoleErr
	}
	p.nextID++
	role := &discordgo.Role{ID: fmt.Sprintf("95000000000000000%d", p.nextID), Name: params.Name}
	p.roles = append(p.roles, role)
	return role, nil
}

func (p *fakePlatform) AddRole(_ context.Context, _, userID, roleID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.addRoleErr != nil {
		return p.addRoleErr
	}
	p.added = append(p.added, userID+":"+roleID)
	return nil
}

func (p *fakePlatform) RemoveRole(_ context.Context, _, userID, roleID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.removeRoleErr != nil {
		return p.removeRoleErr
	}
	p.removed = append(p.removed, userID+":"+roleID)
	return nil
}

func (p *fakePlatform) ClearTimeout(context.Context, string, string, string) error { return nil }

// memorySettings backs a real settings.Store.
type memorySettings struct {
	mu   sync.Mutex
	rows map[string]map[string]string
}

func (m *memorySettings) LoadGuildSettings(_ context.Context, guildID string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for k, v := range m.rows[guildID] {
		out[k] = v
	}
	return out, nil
}

func (m *memorySettings) SaveSetting(_ context.Context, guildID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows[guildID] == nil {
		m.rows[guildID] = make(map[string]string)
	}
	m.rows[guildID][key] = value
	return nil
}

func (m *memorySettings) DeleteSetting(_ context.Context, guildID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows[guildID], key)
	return nil
}

type punishmentKey struct {
	guildID, userID string
	kind            model.PunishmentKind
}

type memoryPunishments struct {
	mu        sync.Mutex
	rows      map[punishmentKey]model.PunishmentRecord
	deleteErr error
	// listing runs once at the start of the next List, before the rows are read.
	listing func()
}

func (m *memoryPunishments) List(_ context.Context, guildID string, kind model.PunishmentKind) ([]model.PunishmentRecord, error) {
	m.mu.Lock()
	listing := m.listing
	m.listing = nil
	m.mu.Unlock()
	if listing != nil {
		listing()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PunishmentRecord
	for k, r := range m.rows {
		if k.guildID == guildID && k.kind == kind {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memoryPunishments) Upsert(_ context.Context, r model.PunishmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[punishmentKey{r.GuildID, r.UserID, r.Kind}] = r
	return nil
}

func (m *memoryPunishments) Delete(_ context.Context, guildID, userID string, kind model.PunishmentKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	k := punishmentKey{guildID, userID, kind}
	if _, ok := m.rows[k]; !ok {
		return errors.New("no punishment record found")
	}
	delete(m.rows, k)
	return nil
}

func (m *memoryPunishments) has(userID string, kind model.PunishmentKind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[punishmentKey{testGuild, userID, kind}]
	return ok
}

type memoryModLogs struct {
	mu        sync.Mutex
	entries   map[string]model.ModLogEntry
	createErr error
	deleteErr error
}

func (m *memoryModLogs) Create(_ context.Context, e model.ModLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.entries[e.CaseID] = e
	return nil
}

func (m *memoryModLogs) Delete(_ context.Context, _, caseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.entries, caseID)
	return nil
}

func (m *memoryModLogs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type memoryPermRoles struct {
	mu    sync.Mutex
	roles map[string]model.PermRole
}

func (m *memoryPermRoles) List(_ context.Context, guildID string) ([]model.PermRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PermRole
	for _, r := range m.roles {
		if r.GuildID == guildID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryPermRoles) Upsert(_ context.Context, r model.PermRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[r.RoleID] = r
	return nil
}

func (m *memoryPermRoles) Delete(_ context.Context, _, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.roles, roleID)
	return nil
}

type memoryBlacklist map[string]bool

func (b memoryBlacklist) IsBlacklisted(_ context.Context, _, userID string) (bool, error) {
	return b[userID], nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (n *recordingNotifier) Emit(_ context.Context, ev events.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

type harness struct {
	sup         *Supervisor
	platform    *fakePlatform
	settings    *settings.Store
	punishments *memoryPunishments
	modLogs     *memoryModLogs
	permRoles   *memoryPermRoles
	blacklist   memoryBlacklist
	notifier    *recordingNotifier
	now         time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		platform:    newFakePlatform(),
		settings:    settings.NewStore(&memorySettings{rows: make(map[string]map[string]string)}, zap.NewNop()),
		punishments: &memoryPunishments{rows: make(map[punishmentKey]model.PunishmentRecord)},
		modLogs:     &memoryModLogs{entries: make(map[string]model.ModLogEntry)},
		permRoles:   &memoryPermRoles{roles: make(map[string]model.PermRole)},
		blacklist:   memoryBlacklist{},
		notifier:    &recordingNotifier{},
		now:         time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	h.sup = NewSupervisor(Options{
		Platform:    h.platform,
		Settings:    h.settings,
		Punishments: h.punishments,
		ModLogs:     h.modLogs,
		PermRoles:   h.permRoles,
		Blacklist:   h.blacklist,
		Notifier:    h.notifier,
		Logger:      zap.NewNop(),
		TicketWords: []string{"otter"},
		Now:         func() time.Time { return h.now },
	})
	h.sup.Add(context.Background(), testGuild)
	t.Cleanup(h.sup.Close)
	return h
}

func (h *harness) set(t *testing.T, key string, value any) {
	t.Helper()
	require.NoError(t, h.settings.Set(context.Background(), testGuild, key, value))
}
