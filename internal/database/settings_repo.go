package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// GetSettings returns the stored settings, or the defaults if none were saved
func (db *DB) GetSettings(ctx context.Context) (models.Settings, error) {
	var settings models.Settings
	query := `SELECT mode, mailgun_signing_key, monitored_email FROM settings WHERE id = 1`
	err := db.GetContext(ctx, &settings, query)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

// SaveSettings stores the settings
func (db *DB) SaveSettings(ctx context.Context, settings models.Settings) error {
	query := `
		INSERT INTO settings (id, mode, mailgun_signing_key, monitored_email)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode = excluded.mode,
			mailgun_signing_key = excluded.mailgun_signing_key,
			monitored_email = excluded.monitored_email
	`
	_, err := db.ExecContext(ctx, query, settings.Mode, settings.MailgunSigningKey, settings.MonitoredEmail)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
