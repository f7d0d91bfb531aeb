package model

import "time"

// PunishmentKind selects the table a timed punishment lives in.
type PunishmentKind string

const (
	PunishmentMute PunishmentKind = "mute"
	PunishmentBan  PunishmentKind = "ban"
)

// PunishmentRecord represents a single timed punishment row.
// The database tables are named 'mutes' and 'bans'.
type PunishmentRecord struct {
	GuildID string         `db:"gid"`
	UserID  string         `db:"uid"`
	Until   string         `db:"until"` // milliseconds, or legacy float seconds
	Kind    PunishmentKind `db:"-"`
}

// Expiry returns the absolute expiry of the record; zero means it never expires.
func (p PunishmentRecord) Expiry() time.Time {
	return ParseUntil(p.Until)
}
