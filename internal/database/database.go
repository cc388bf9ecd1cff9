package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// DB is the monitor's sqlite store for accounts and settings
type DB struct {
	*sqlx.DB
}

// Open connects to the sqlite file at path, creating its directory, applies
// the schema and seeds the settings row with the defaults.
func Open(ctx context.Context, path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", path)
	conn, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// sqlite has a single writer
	conn.SetMaxOpenConns(1)

	db := &DB{conn}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// migrate applies the schema and inserts the settings row if it is missing,
// so GetSettings always reads a stored row.
func (db *DB) migrate(ctx context.Context) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	defaults := models.DefaultSettings()
	if _, err := tx.ExecContext(ctx, seedSettings, defaults.Mode, defaults.MailgunSigningKey, defaults.MonitoredEmail); err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}
