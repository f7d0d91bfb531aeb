package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PlonkDB is the blacklist. Rows with an empty gid apply to every guild.
type PlonkDB struct {
	db *sqlx.DB
}

func NewPlonkDB(db *sqlx.DB) *PlonkDB {
	return &PlonkDB{db: db}
}

// IsBlacklisted reports whether a user is plonked in the guild or globally.
func (p *PlonkDB) IsBlacklisted(ctx context.Context, guildID, userID string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM plonks WHERE uid = ? AND (gid = '' OR gid = ?)"
	if err := p.db.GetContext(ctx, &count, query, userID, guildID); err != nil {
		return false, fmt.Errorf("failed to check blacklist for user %s: %w", userID, err)
	}
	return count > 0, nil
}

// Plonk adds a user to the blacklist. An empty guildID blacklists globally.
func (p *PlonkDB) Plonk(ctx context.Context, guildID, userID, reason string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO plonks (gid, uid, reason) VALUES (?, ?, ?)
		ON CONFLICT(gid, uid) DO UPDATE SET reason = excluded.reason;
	`, guildID, userID, reason)
	if err != nil {
		return fmt.Errorf("failed to plonk user %s: %w", userID, err)
	}
	return nil
}

// Unplonk removes a user from the blacklist scope.
func (p *PlonkDB) Unplonk(ctx context.Context, guildID, userID string) error {
	_, err := p.db.ExecContext(ctx, "DELETE FROM plonks WHERE gid = ? AND uid = ?", guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to unplonk user %s: %w", userID, err)
	}
	return nil
}
