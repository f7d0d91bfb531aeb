package model

// ModLogType is the kind of moderation action a log entry documents.
type ModLogType string

const (
	ModLogUnban   ModLogType = "unban"
	ModLogBlock   ModLogType = "block"
	ModLogUnblock ModLogType = "unblock"
	ModLogUnmute  ModLogType = "unmute"
	ModLogMute    ModLogType = "mute"
	ModLogBan     ModLogType = "ban"
)

// ModLogEntry represents a row in the 'modlogs' table.
type ModLogEntry struct {
	GuildID     string     `db:"gid"`
	UserID      string     `db:"uid"`
	ModeratorID string     `db:"modid"`
	Reason      string     `db:"reason"`
	Date        string     `db:"date"`
	Type        ModLogType `db:"type"`
	CaseID      string     `db:"caseid"`
}
