package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// ErrNotFound is returned when a record is not found
var ErrNotFound = errors.New("record not found")

// UpsertAccount creates an account or replaces the one with the same address
func (db *DB) UpsertAccount(ctx context.Context, account *models.MonitoredAccount) error {
	query := `
		INSERT INTO accounts (address, password, host, port, use_tls, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			password = excluded.password,
			host = excluded.host,
			port = excluded.port,
			use_tls = excluded.use_tls,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	_, err := db.ExecContext(ctx, query,
		account.Address,
		account.Password,
		account.Host,
		account.Port,
		account.UseTLS,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}

	account.UpdatedAt = now
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	return nil
}

// ListAccounts returns all accounts in creation order
func (db *DB) ListAccounts(ctx context.Context) ([]*models.MonitoredAccount, error) {
	var accounts []*models.MonitoredAccount
	query := `SELECT * FROM accounts ORDER BY created_at, address`
	err := db.SelectContext(ctx, &accounts, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// DeleteAccount deletes an account
func (db *DB) DeleteAccount(ctx context.Context, address string) error {
	query := `DELETE FROM accounts WHERE address = ?`
	result, err := db.ExecContext(ctx, query, address)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
