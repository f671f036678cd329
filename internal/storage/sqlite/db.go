// Package sqlite keeps CLI state (practice timers, fetched problems) in a
// local SQLite file.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/felixgeelhaar/solvehelper/internal/storage/migrations"
)

// DB is the CLI state database.
type DB struct {
	*sql.DB
}

// Open opens or creates the database at path. SQLite allows one writer,
// so the pool holds a single connection.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return &DB{DB: db}, nil
}

// Migrate brings the schema up to date. Each step runs in its own
// transaction together with its version row.
func (db *DB) Migrate() error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	current, err := db.Version()
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}
	all, err := migrations.SQLite()
	if err != nil {
		return err
	}

	for _, m := range migrations.Pending(all, current) {
		if err := db.apply(m); err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		slog.Debug("applied local migration", "name", m.Name, "version", m.Version)
	}
	return nil
}

func (db *DB) apply(m migrations.Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
		return err
	}
	return tx.Commit()
}

// Version returns the current schema version, 0 before the first migration.
func (db *DB) Version() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}
