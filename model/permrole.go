package model

// PermRole is the desired channel overwrite for a role across every channel of a guild.
type PermRole struct {
	GuildID string `db:"gid"`
	RoleID  string `db:"rid"`
	Allow   int64  `db:"allow"`
	Deny    int64  `db:"deny"`
}
