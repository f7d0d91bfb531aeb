package guild

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"guildwarden/events"
	"guildwarden/model"
	"guildwarden/settings"
)

// Platform is the slice of Discord the guild engine talks to. Lookups of
// objects that no longer exist return an error wrapping platform.ErrNotFound.
type Platform interface {
	// Ready reports whether the gateway is connected and the guild available.
	Ready(guildID string) bool

	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	Self(ctx context.Context, guildID string) (*discordgo.Member, error)
	Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	User(ctx context.Context, userID string) (*discordgo.User, error)
	Roles(ctx context.Context, guildID string) ([]*discordgo.Role, error)
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	Channels(ctx context.Context, guildID string) ([]*discordgo.Channel, error)

	// MemberPermissions returns guild-wide permissions, ChannelPermissions
	// the permissions after channel overwrites.
	MemberPermissions(ctx context.Context, guildID, userID string) (int64, error)
	ChannelPermissions(ctx context.Context, channelID, userID string) (int64, error)

	CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData, reason string) (*discordgo.Channel, error)
	DeleteChannel(ctx context.Context, channelID, reason string) (*discordgo.Channel, error)
	// SetOverwrites replaces every overwrite on the channel in one edit.
	SetOverwrites(ctx context.Context, channelID string, overwrites []*discordgo.PermissionOverwrite, reason string) error
	EditOverwrite(ctx context.Context, channelID string, overwrite *discordgo.PermissionOverwrite, reason string) error
	DeleteOverwrite(ctx context.Context, channelID, targetID, reason string) error

	// Messages walks the channel history oldest first until fn returns an error.
	Messages(ctx context.Context, channelID string, fn func(*discordgo.Message) error) error
	Send(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	SendDirect(ctx context.Context, userID string, msg *discordgo.MessageSend) (*discordgo.Message, error)

	Ban(ctx context.Context, guildID, userID string) (*discordgo.GuildBan, error)
	CreateBan(ctx context.Context, guildID, userID, reason string, deleteDays int) error
	Unban(ctx context.Context, guildID, userID, reason string) error
	CreateRole(ctx context.Context, guildID string, params *discordgo.RoleParams, reason string) (*discordgo.Role, error)
	AddRole(ctx context.Context, guildID, userID, roleID, reason string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error
	ClearTimeout(ctx context.Context, guildID, userID, reason string) error
}

// Settings is the per-guild option store.
type Settings interface {
	settings.Getter
	Set(ctx context.Context, guildID, key string, value any) error
	Delete(ctx context.Context, guildID, key string) error
}

type PunishmentStore interface {
	List(ctx context.Context, guildID string, kind model.PunishmentKind) ([]model.PunishmentRecord, error)
	Upsert(ctx context.Context, record model.PunishmentRecord) error
	Delete(ctx context.Context, guildID, userID string, kind model.PunishmentKind) error
}

type ModLogStore interface {
	Create(ctx context.Context, entry model.ModLogEntry) error
	Delete(ctx context.Context, guildID, caseID string) error
}

type PermRoleStore interface {
	List(ctx context.Context, guildID string) ([]model.PermRole, error)
	Upsert(ctx context.Context, role model.PermRole) error
	Delete(ctx context.Context, guildID, roleID string) error
}

// Blacklist answers whether a user is barred from tickets, either in the
// guild or globally.
type Blacklist interface {
	IsBlacklisted(ctx context.Context, guildID, userID string) (bool, error)
}

type Notifier interface {
	Emit(ctx context.Context, ev events.Event)
}
