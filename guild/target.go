package guild

import (
	"github.com/bwmarrin/discordgo"
)

// BlockTarget is the subject of a channel block: a member or a role.
// The set of implementations is closed.
type BlockTarget interface {
	ID() string
	OverwriteType() discordgo.PermissionOverwriteType
	// DisplayName is how the target is shown in channel and log messages.
	DisplayName() string
	DisplayColor() int
	AvatarOrIcon() string
	// Auditable reports whether actions on the target get a mod log entry.
	Auditable() bool

	isBlockTarget()
}

type MemberTarget struct {
	Member *discordgo.Member
	Color  int
}

// NewMemberTarget builds a member target coloured by the member's highest
// coloured role.
func NewMemberTarget(member *discordgo.Member, roles []*discordgo.Role) MemberTarget {
	return MemberTarget{Member: member, Color: memberColor(member, roles)}
}

func (t MemberTarget) ID() string { return t.Member.User.ID }

func (t MemberTarget) OverwriteType() discordgo.PermissionOverwriteType {
	return discordgo.PermissionOverwriteTypeMember
}

func (t MemberTarget) DisplayName() string  { return t.Member.User.Mention() }
func (t MemberTarget) DisplayColor() int    { return t.Color }
func (t MemberTarget) AvatarOrIcon() string { return t.Member.AvatarURL("2048") }
func (t MemberTarget) Auditable() bool      { return true }
func (MemberTarget) isBlockTarget()         {}

type RoleTarget struct {
	Role *discordgo.Role
	// GuildIcon is used in place of an avatar.
	GuildIcon string
}

func (t RoleTarget) ID() string { return t.Role.ID }

func (t RoleTarget) OverwriteType() discordgo.PermissionOverwriteType {
	return discordgo.PermissionOverwriteTypeRole
}

func (t RoleTarget) DisplayName() string  { return t.Role.Name }
func (t RoleTarget) DisplayColor() int    { return t.Role.Color }
func (t RoleTarget) AvatarOrIcon() string { return t.GuildIcon }
func (t RoleTarget) Auditable() bool      { return false }
func (RoleTarget) isBlockTarget()         {}

// memberColor is the colour of the highest positioned coloured role the
// member holds, or 0.
func memberColor(member *discordgo.Member, roles []*discordgo.Role) int {
	if member == nil {
		return 0
	}
	held := make(map[string]struct{}, len(member.Roles))
	for _, id := range member.Roles {
		held[id] = struct{}{}
	}
	color, position := 0, -1
	for _, role := range roles {
		if _, ok := held[role.ID]; !ok || role.Color == 0 {
			continue
		}
		if role.Position > position {
			color, position = role.Color, role.Position
		}
	}
	return color
}
