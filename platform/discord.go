// Package platform adapts a discordgo session to the guild engine. Reads are
// served from the session state when possible and fall back to REST.
package platform

import (
	"context"
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const messagePageSize = 100

type Discord struct {
	session *discordgo.Session
	logger  *zap.Logger
}

func NewDiscord(session *discordgo.Session, logger *zap.Logger) *Discord {
	return &Discord{session: session, logger: logger.Named("platform")}
}

func opts(ctx context.Context, reason string) []discordgo.RequestOption {
	o := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		o = append(o, discordgo.WithAuditLogReason(reason))
	}
	return o
}

// Ready reports whether the gateway session is up and the guild is available.
func (d *Discord) Ready(guildID string) bool {
	if !d.session.DataReady || d.session.State == nil {
		return false
	}
	g, err := d.session.State.Guild(guildID)
	return err == nil && !g.Unavailable
}

func (d *Discord) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if g, err := d.session.State.Guild(guildID); err == nil {
		return g, nil
	}
	g, err := d.session.Guild(guildID, opts(ctx, "")...)
	return g, translate(err)
}

func (d *Discord) Self(ctx context.Context, guildID string) (*discordgo.Member, error) {
	if d.session.State == nil || d.session.State.User == nil {
		return nil, fmt.Errorf("session has no user")
	}
	return d.Member(ctx, guildID, d.session.State.User.ID)
}

func (d *Discord) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if m, err := d.session.State.Member(guildID, userID); err == nil {
		return m, nil
	}
	m, err := d.session.GuildMember(guildID, userID, opts(ctx, "")...)
	if err != nil {
		return nil, translate(err)
	}
	m.GuildID = guildID
	if err := d.session.State.MemberAdd(m); err != nil {
		d.logger.Debug("Failed to cache member", zap.String("guild_id", guildID), zap.Error(err))
	}
	return m, nil
}

func (d *Discord) User(ctx context.Context, userID string) (*discordgo.User, error) {
	u, err := d.session.User(userID, opts(ctx, "")...)
	return u, translate(err)
}

func (d *Discord) Roles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	if g, err := d.session.State.Guild(guildID); err == nil && len(g.Roles) > 0 {
		return g.Roles, nil
	}
	roles, err := d.session.GuildRoles(guildID, opts(ctx, "")...)
	return roles, translate(err)
}

// Channel and Channels hand out copies; state channels belong to the gateway
// handlers and are only touched under the state lock.
func (d *Discord) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if c, err := d.session.State.Channel(channelID); err == nil {
		d.session.State.RLock()
		defer d.session.State.RUnlock()
		return copyChannel(c), nil
	}
	c, err := d.session.Channel(channelID, opts(ctx, "")...)
	return c, translate(err)
}

func (d *Discord) Channels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	if g, err := d.session.State.Guild(guildID); err == nil {
		d.session.State.RLock()
		channels := make([]*discordgo.Channel, 0, len(g.Channels))
		for _, c := range g.Channels {
			channels = append(channels, copyChannel(c))
		}
		d.session.State.RUnlock()
		if len(channels) > 0 {
			return channels, nil
		}
	}
	channels, err := d.session.GuildChannels(guildID, opts(ctx, "")...)
	return channels, translate(err)
}

func copyChannel(c *discordgo.Channel) *discordgo.Channel {
	cp := *c
	cp.PermissionOverwrites = make([]*discordgo.PermissionOverwrite, 0, len(c.PermissionOverwrites))
	for _, ow := range c.PermissionOverwrites {
		o := *ow
		cp.PermissionOverwrites = append(cp.PermissionOverwrites, &o)
	}
	return &cp
}

// MemberPermissions computes guild-wide permissions from the member's roles.
func (d *Discord) MemberPermissions(ctx context.Context, guildID, userID string) (int64, error) {
	g, err := d.Guild(ctx, guildID)
	if err != nil {
		return 0, err
	}
	m, err := d.Member(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}
	roles, err := d.Roles(ctx, guildID)
	if err != nil {
		return 0, err
	}
	return guildPermissions(g.ID, g.OwnerID, roles, m), nil
}

func (d *Discord) ChannelPermissions(ctx context.Context, channelID, userID string) (int64, error) {
	perms, err := d.session.UserChannelPermissions(userID, channelID, opts(ctx, "")...)
	return perms, translate(err)
}

// CreateChannel caches the new channel right away so list reads made before
// the gateway echoes CHANNEL_CREATE already include it.
func (d *Discord) CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData, reason string) (*discordgo.Channel, error) {
	c, err := d.session.GuildChannelCreateComplex(guildID, data, opts(ctx, reason)...)
	if err != nil {
		return nil, translate(err)
	}
	if err := d.session.State.ChannelAdd(copyChannel(c)); err != nil {
		d.logger.Debug("Failed to cache channel", zap.String("channel_id", c.ID), zap.Error(err))
	}
	return c, nil
}

func (d *Discord) DeleteChannel(ctx context.Context, channelID, reason string) (*discordgo.Channel, error) {
	c, err := d.session.ChannelDelete(channelID, opts(ctx, reason)...)
	if err != nil {
		return nil, translate(err)
	}
	if err := d.session.State.ChannelRemove(c); err != nil {
		d.logger.Debug("Failed to uncache channel", zap.String("channel_id", c.ID), zap.Error(err))
	}
	return c, nil
}

func (d *Discord) SetOverwrites(ctx context.Context, channelID string, overwrites []*discordgo.PermissionOverwrite, reason string) error {
	_, err := d.session.ChannelEditComplex(channelID, &discordgo.ChannelEdit{PermissionOverwrites: overwrites}, opts(ctx, reason)...)
	return translate(err)
}

func (d *Discord) EditOverwrite(ctx context.Context, channelID string, ow *discordgo.PermissionOverwrite, reason string) error {
	err := d.session.ChannelPermissionSet(channelID, ow.ID, ow.Type, ow.Allow, ow.Deny, opts(ctx, reason)...)
	return translate(err)
}

func (d *Discord) DeleteOverwrite(ctx context.Context, channelID, targetID, reason string) error {
	return translate(d.session.ChannelPermissionDelete(channelID, targetID, opts(ctx, reason)...))
}

// Messages pages forward through the channel from its first message.
func (d *Discord) Messages(ctx context.Context, channelID string, fn func(*discordgo.Message) error) error {
	after := "0"
	for {
		page, err := d.session.ChannelMessages(channelID, messagePageSize, "", after, "", opts(ctx, "")...)
		if err != nil {
			return translate(err)
		}
		if len(page) == 0 {
			return nil
		}
		sortOldestFirst(page)
		for _, m := range page {
			if err := fn(m); err != nil {
				return err
			}
		}
		if len(page) < messagePageSize {
			return nil
		}
		after = page[len(page)-1].ID
	}
}

func (d *Discord) Send(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	m, err := d.session.ChannelMessageSendComplex(channelID, msg, opts(ctx, "")...)
	return m, translate(err)
}

func (d *Discord) SendDirect(ctx context.Context, userID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	channel, err := d.session.UserChannelCreate(userID, opts(ctx, "")...)
	if err != nil {
		return nil, translate(err)
	}
	return d.Send(ctx, channel.ID, msg)
}

func (d *Discord) Ban(ctx context.Context, guildID, userID string) (*discordgo.GuildBan, error) {
	b, err := d.session.GuildBan(guildID, userID, opts(ctx, "")...)
	return b, translate(err)
}

func (d *Discord) CreateBan(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	return translate(d.session.GuildBanCreateWithReason(guildID, userID, reason, deleteDays, opts(ctx, "")...))
}

func (d *Discord) Unban(ctx context.Context, guildID, userID, reason string) error {
	return translate(d.session.GuildBanDelete(guildID, userID, opts(ctx, reason)...))
}

func (d *Discord) CreateRole(ctx context.Context, guildID string, params *discordgo.RoleParams, reason string) (*discordgo.Role, error) {
	r, err := d.session.GuildRoleCreate(guildID, params, opts(ctx, reason)...)
	if err != nil {
		return nil, translate(err)
	}
	if err := d.session.State.RoleAdd(guildID, r); err != nil {
		d.logger.Debug("Failed to cache role", zap.String("guild_id", guildID), zap.Error(err))
	}
	return r, nil
}

func (d *Discord) AddRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return translate(d.session.GuildMemberRoleAdd(guildID, userID, roleID, opts(ctx, reason)...))
}

func (d *Discord) RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return translate(d.session.GuildMemberRoleRemove(guildID, userID, roleID, opts(ctx, reason)...))
}

func (d *Discord) ClearTimeout(ctx context.Context, guildID, userID, reason string) error {
	return translate(d.session.GuildMemberTimeout(guildID, userID, nil, opts(ctx, reason)...))
}

// guildPermissions folds @everyone and the member's roles together.
func guildPermissions(guildID, ownerID string, roles []*discordgo.Role, member *discordgo.Member) int64 {
	if member.User != nil && member.User.ID == ownerID {
		return discordgo.PermissionAll
	}
	held := make(map[string]struct{}, len(member.Roles))
	for _, id := range member.Roles {
		held[id] = struct{}{}
	}
	var perms int64
	for _, role := range roles {
		if _, ok := held[role.ID]; ok || role.ID == guildID {
			perms |= role.Permissions
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}

// sortOldestFirst orders messages by snowflake, which follows creation time.
func sortOldestFirst(messages []*discordgo.Message) {
	sort.Slice(messages, func(i, j int) bool {
		a, b := messages[i].ID, messages[j].ID
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}
