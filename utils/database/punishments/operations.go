package punishments

import (
	"context"
	"fmt"

	"guildwarden/model"

	"github.com/jmoiron/sqlx"
)

// Store persists timed mutes and bans.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func tableFor(kind model.PunishmentKind) (string, error) {
	switch kind {
	case model.PunishmentMute:
		return "mutes", nil
	case model.PunishmentBan:
		return "bans", nil
	default:
		return "", fmt.Errorf("unknown punishment kind %q", kind)
	}
}

// List retrieves all punishment records of a kind for a guild.
func (s *Store) List(ctx context.Context, guildID string, kind model.PunishmentKind) ([]model.PunishmentRecord, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	var records []model.PunishmentRecord
	err = s.db.SelectContext(ctx, &records, "SELECT gid, uid, until FROM "+table+" WHERE gid = ?", guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s records for guild %s: %w", kind, guildID, err)
	}
	for i := range records {
		records[i].Kind = kind
	}
	return records, nil
}

// Upsert adds a punishment record, replacing the expiry of an existing one.
func (s *Store) Upsert(ctx context.Context, record model.PunishmentRecord) error {
	table, err := tableFor(record.Kind)
	if err != nil {
		return err
	}

	query := `INSERT INTO ` + table + ` (gid, uid, until) VALUES (:gid, :uid, :until)
			  ON CONFLICT(gid, uid) DO UPDATE SET until = excluded.until`
	if _, err := s.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("failed to insert %s record: %w", record.Kind, err)
	}
	return nil
}

// Delete removes the record of a user.
func (s *Store) Delete(ctx context.Context, guildID, userID string, kind model.PunishmentKind) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE gid = ? AND uid = ?", guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete %s record for user %s: %w", kind, userID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for %s record of user %s: %w", kind, userID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no %s record found for user %s in guild %s", kind, userID, guildID)
	}
	return nil
}
