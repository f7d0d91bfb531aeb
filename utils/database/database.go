package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS mutes (
		gid TEXT NOT NULL,
		uid TEXT NOT NULL,
		until TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (gid, uid)
	);`,
	`CREATE TABLE IF NOT EXISTS bans (
		gid TEXT NOT NULL,
		uid TEXT NOT NULL,
		until TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (gid, uid)
	);`,
	`CREATE TABLE IF NOT EXISTS modlogs (
		gid TEXT NOT NULL,
		uid TEXT NOT NULL,
		modid TEXT NOT NULL,
		reason TEXT NOT NULL,
		date TEXT NOT NULL,
		type TEXT NOT NULL,
		caseid TEXT NOT NULL PRIMARY KEY
	);`,
	`CREATE INDEX IF NOT EXISTS modlogs_gid_uid ON modlogs (gid, uid);`,
	`CREATE TABLE IF NOT EXISTS permroles (
		gid TEXT NOT NULL,
		rid TEXT NOT NULL,
		allow TEXT NOT NULL DEFAULT '0',
		deny TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (gid, rid)
	);`,
	`CREATE TABLE IF NOT EXISTS guildconfig (
		gid TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (gid, key)
	);`,
	`CREATE TABLE IF NOT EXISTS plonks (
		gid TEXT NOT NULL DEFAULT '',
		uid TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (gid, uid)
	);`,
}

// Columns added after the first release. Re-running them on an up to date
// database fails with "duplicate column name", which is ignored.
var alterStatements = []string{
	`ALTER TABLE plonks ADD COLUMN reason TEXT NOT NULL DEFAULT ''`,
}

// Init opens the sqlite database and ensures all necessary tables are created.
func Init(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// sqlite serialises writers anyway; a single connection also keeps
	// ":memory:" databases shared between queries.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	for _, stmt := range alterStatements {
		_, err = db.Exec(stmt)
		if err != nil && !strings.Contains(err.Error(), "duplicate column name") {
			db.Close()
			return nil, fmt.Errorf("failed to execute ALTER statement %s: %w", stmt, err)
		}
	}

	return db, nil
}
