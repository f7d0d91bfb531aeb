package database

import (
	"context"
	"fmt"
	"strconv"

	"guildwarden/model"

	"github.com/jmoiron/sqlx"
)

// Bitsets are stored as decimal text; sqlite integers are signed 64-bit
// and Discord permission values are defined as strings.
type permRoleRow struct {
	GuildID string `db:"gid"`
	RoleID  string `db:"rid"`
	Allow   string `db:"allow"`
	Deny    string `db:"deny"`
}

// PermRoleDB stores the desired overwrite of each permission role.
type PermRoleDB struct {
	db *sqlx.DB
}

func NewPermRoleDB(db *sqlx.DB) *PermRoleDB {
	return &PermRoleDB{db: db}
}

// List returns every permission role of a guild.
func (p *PermRoleDB) List(ctx context.Context, guildID string) ([]model.PermRole, error) {
	var rows []permRoleRow
	err := p.db.SelectContext(ctx, &rows, "SELECT gid, rid, allow, deny FROM permroles WHERE gid = ?", guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get permission roles for guild %s: %w", guildID, err)
	}

	roles := make([]model.PermRole, 0, len(rows))
	for _, row := range rows {
		allow, err := strconv.ParseInt(row.Allow, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid allow bitset for role %s: %w", row.RoleID, err)
		}
		deny, err := strconv.ParseInt(row.Deny, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid deny bitset for role %s: %w", row.RoleID, err)
		}
		roles = append(roles, model.PermRole{GuildID: row.GuildID, RoleID: row.RoleID, Allow: allow, Deny: deny})
	}
	return roles, nil
}

// Upsert creates or replaces a permission role.
func (p *PermRoleDB) Upsert(ctx context.Context, role model.PermRole) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO permroles (gid, rid, allow, deny)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(gid, rid) DO UPDATE SET
			allow = excluded.allow,
			deny = excluded.deny;
	`, role.GuildID, role.RoleID, strconv.FormatInt(role.Allow, 10), strconv.FormatInt(role.Deny, 10))
	if err != nil {
		return fmt.Errorf("failed to save permission role %s: %w", role.RoleID, err)
	}
	return nil
}

// Delete removes a permission role.
func (p *PermRoleDB) Delete(ctx context.Context, guildID, roleID string) error {
	result, err := p.db.ExecContext(ctx, "DELETE FROM permroles WHERE gid = ? AND rid = ?", guildID, roleID)
	if err != nil {
		return fmt.Errorf("failed to delete permission role %s: %w", roleID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for permission role %s: %w", roleID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no permission role found with id %s", roleID)
	}
	return nil
}
