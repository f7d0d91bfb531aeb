package database

import (
	"context"
	"fmt"

	"guildwarden/model"

	"github.com/jmoiron/sqlx"
)

// ModLogDB stores moderation log entries.
type ModLogDB struct {
	db *sqlx.DB
}

func NewModLogDB(db *sqlx.DB) *ModLogDB {
	return &ModLogDB{db: db}
}

// Create inserts a new entry. The case ID is chosen by the caller.
func (m *ModLogDB) Create(ctx context.Context, entry model.ModLogEntry) error {
	query := `INSERT INTO modlogs (gid, uid, modid, reason, date, type, caseid)
			  VALUES (:gid, :uid, :modid, :reason, :date, :type, :caseid)`

	_, err := m.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("failed to insert modlog entry: %w", err)
	}
	return nil
}

// Delete removes an entry by case ID.
func (m *ModLogDB) Delete(ctx context.Context, guildID, caseID string) error {
	result, err := m.db.ExecContext(ctx, "DELETE FROM modlogs WHERE gid = ? AND caseid = ?", guildID, caseID)
	if err != nil {
		return fmt.Errorf("failed to delete modlog entry %s: %w", caseID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for modlog entry %s: %w", caseID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no modlog entry found with case id %s", caseID)
	}
	return nil
}

// ListByUser retrieves the entries for a user in a guild, oldest first.
func (m *ModLogDB) ListByUser(ctx context.Context, guildID, userID string) ([]model.ModLogEntry, error) {
	var entries []model.ModLogEntry
	query := "SELECT * FROM modlogs WHERE gid = ? AND uid = ? ORDER BY rowid"
	err := m.db.SelectContext(ctx, &entries, query, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get modlog entries for user %s in guild %s: %w", userID, guildID, err)
	}
	return entries, nil
}
