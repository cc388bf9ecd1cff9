package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenSeedsSettings(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)

	var rows int
	require.NoError(t, db.GetContext(ctx, &rows, `SELECT COUNT(*) FROM settings`))
	assert.Equal(t, 1, rows)

	saved := models.Settings{Mode: models.ModeMailgun, MailgunSigningKey: "key-123"}
	require.NoError(t, db.SaveSettings(ctx, saved))
	require.NoError(t, db.Close())

	// Reopening keeps the saved row
	db, err = Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	got, err := db.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	account := &models.MonitoredAccount{
		Address:  "relay@gmail.com",
		Password: "secret",
		Host:     "imap.gmail.com",
		Port:     993,
		UseTLS:   true,
	}
	require.NoError(t, db.UpsertAccount(ctx, account))

	accounts, err := db.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	got := accounts[0]
	assert.Equal(t, "secret", got.Password)
	assert.Equal(t, "imap.gmail.com:993", got.Server())
	assert.True(t, got.UseTLS)

	// Upsert replaces the existing row
	account.Host = "imap.example.com"
	account.Port = 143
	account.UseTLS = false
	require.NoError(t, db.UpsertAccount(ctx, account))

	accounts, err = db.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "imap.example.com:143", accounts[0].Server())
	assert.False(t, accounts[0].UseTLS)

	require.NoError(t, db.DeleteAccount(ctx, "relay@gmail.com"))
	accounts, err = db.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
	assert.ErrorIs(t, db.DeleteAccount(ctx, "relay@gmail.com"), ErrNotFound)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	settings, err := db.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), settings)

	want := models.Settings{
		Mode:              models.ModeMailgun,
		MailgunSigningKey: "key-123",
		MonitoredEmail:    "codes@mg.example.com",
	}
	require.NoError(t, db.SaveSettings(ctx, want))

	got, err := db.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	want.Mode = models.ModeIMAP
	require.NoError(t, db.SaveSettings(ctx, want))
	got, err = db.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ModeIMAP, got.Mode)
}
