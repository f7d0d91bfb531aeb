package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type settingRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

// SettingsDB persists per-guild settings as JSON encoded values keyed by dotted option names.
type SettingsDB struct {
	db *sqlx.DB
}

func NewSettingsDB(db *sqlx.DB) *SettingsDB {
	return &SettingsDB{db: db}
}

// LoadGuildSettings returns every stored option for a guild.
func (s *SettingsDB) LoadGuildSettings(ctx context.Context, guildID string) (map[string]string, error) {
	var rows []settingRow
	err := s.db.SelectContext(ctx, &rows, "SELECT key, value FROM guildconfig WHERE gid = ?", guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings for guild %s: %w", guildID, err)
	}

	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	return values, nil
}

// SaveSetting inserts or replaces one option.
func (s *SettingsDB) SaveSetting(ctx context.Context, guildID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guildconfig (gid, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(gid, key) DO UPDATE SET
			value = excluded.value;
	`, guildID, key, value)
	if err != nil {
		return fmt.Errorf("failed to save setting %s for guild %s: %w", key, guildID, err)
	}
	return nil
}

// DeleteSetting removes one option. Deleting a missing option is not an error.
func (s *SettingsDB) DeleteSetting(ctx context.Context, guildID, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM guildconfig WHERE gid = ? AND key = ?", guildID, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting %s for guild %s: %w", key, guildID, err)
	}
	return nil
}
