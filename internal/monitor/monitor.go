// Package monitor owns the monitored accounts and settings and keeps the
// IMAP watchers in line with them.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/config"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/database"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/email"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/secret"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

var (
	// ErrInvalidAccount is returned when an account misses its address or password
	ErrInvalidAccount = errors.New("account requires user and password")
	// ErrInvalidMode is returned for an unknown mode
	ErrInvalidMode = errors.New("mode must be imap or mailgun")
)

// Repository persists accounts and settings
type Repository interface {
	ListAccounts(ctx context.Context) ([]*models.MonitoredAccount, error)
	UpsertAccount(ctx context.Context, account *models.MonitoredAccount) error
	DeleteAccount(ctx context.Context, address string) error
	GetSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error
}

// Watcher runs one IMAP watcher per account
type Watcher interface {
	Restart(ctx context.Context, accounts []*models.MonitoredAccount) error
	StopAll(ctx context.Context) error
	TestConnection(ctx context.Context, account *models.MonitoredAccount) error
	Status(address string) string
}

// AccountView is an account as shown to operators, without its password
type AccountView struct {
	User   string `json:"user"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Secure bool   `json:"secure"`
	Status string `json:"status"`
}

// Deps dependencies for creating a monitor
type Deps struct {
	Config  *config.Config
	Repo    Repository
	Cipher  *secret.Cipher
	Watcher Watcher
	Logger  *slog.Logger
}

// Monitor holds the current settings and accounts. Every mutation is
// persisted first, then the watchers are restarted.
type Monitor struct {
	config  *config.Config
	repo    Repository
	cipher  *secret.Cipher
	watcher Watcher
	logger  *slog.Logger

	// restartMu orders mutations together with their restarts. It is taken
	// before mu and is held while the watchers restart, mu is not.
	restartMu sync.Mutex

	mu       sync.RWMutex
	settings models.Settings
	accounts []*models.MonitoredAccount // passwords in clear
	master   bool                       // accounts come from the environment
}

// New creates a new monitor
func New(deps Deps) *Monitor {
	return &Monitor{
		config:   deps.Config,
		repo:     deps.Repo,
		cipher:   deps.Cipher,
		watcher:  deps.Watcher,
		logger:   deps.Logger.With("component", "monitor"),
		settings: models.DefaultSettings(),
	}
}

// Start loads the state and starts the watchers
func (m *Monitor) Start(ctx context.Context) error {
	return m.mutate(ctx, func() error {
		if err := m.load(ctx); err != nil {
			return err
		}

		m.logger.Info("monitor started",
			"mode", m.settings.Mode,
			"accounts", len(m.accounts),
			"monitored_email", m.settings.MonitoredEmail,
			"env_account", m.master,
		)
		return nil
	})
}

// load reads the database, then applies environment overrides
func (m *Monitor) load(ctx context.Context) error {
	settings, err := m.repo.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	stored, err := m.repo.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}

	accounts := make([]*models.MonitoredAccount, 0, len(stored))
	for _, acc := range stored {
		password, err := m.cipher.Decrypt(acc.Password)
		if err != nil {
			m.logger.Error("failed to decrypt password, skipping account", "email", acc.Address, "error", err)
			continue
		}
		acc.Password = password
		accounts = append(accounts, acc)
	}

	if m.config.MasterAccountSet() {
		accounts = []*models.MonitoredAccount{{
			Address:  m.config.IMAPUser,
			Password: m.config.IMAPPassword,
			Host:     m.config.IMAPHost,
			Port:     m.config.IMAPPort,
			UseTLS:   true,
		}}
		m.master = true
	}

	if m.config.AppMode != "" {
		settings.Mode = models.Mode(m.config.AppMode)
	}
	if m.config.MonitoredEmail != "" {
		settings.MonitoredEmail = m.config.MonitoredEmail
	}
	if m.config.MailgunSigningKey != "" {
		settings.MailgunSigningKey = m.config.MailgunSigningKey
	}

	m.settings = settings
	m.accounts = accounts
	return nil
}

// mutate runs fn with m.mu held, then restarts the watchers from a snapshot
// of the new state once m.mu is released. Nothing is restarted when fn fails.
func (m *Monitor) mutate(ctx context.Context, fn func() error) error {
	m.restartMu.Lock()
	defer m.restartMu.Unlock()

	m.mu.Lock()
	if err := fn(); err != nil {
		m.mu.Unlock()
		return err
	}
	settings := m.settings
	accounts := make([]*models.MonitoredAccount, len(m.accounts))
	copy(accounts, m.accounts)
	m.mu.Unlock()

	m.restart(ctx, settings, accounts)
	return nil
}

// restart stops every watcher and, in imap mode, starts one per account.
// m.restartMu must be held.
func (m *Monitor) restart(ctx context.Context, settings models.Settings, accounts []*models.MonitoredAccount) {
	if settings.Mode != models.ModeIMAP || len(accounts) == 0 {
		if err := m.watcher.StopAll(ctx); err != nil {
			m.logger.Warn("failed to stop some watchers", "error", err)
		}
		return
	}

	if err := m.watcher.Restart(ctx, accounts); err != nil {
		m.logger.Warn("restart finished with errors", "error", err)
	}
}

// Settings returns the current settings
func (m *Monitor) Settings() models.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Accounts returns the monitored accounts with their watcher status
func (m *Monitor) Accounts() []AccountView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	views := make([]AccountView, 0, len(m.accounts))
	for _, acc := range m.accounts {
		views = append(views, AccountView{
			User:   acc.Address,
			Host:   acc.Host,
			Port:   acc.Port,
			Secure: acc.UseTLS,
			Status: m.watcher.Status(acc.Address),
		})
	}
	return views
}

// UpsertAccount adds or replaces an account and switches to imap mode
func (m *Monitor) UpsertAccount(ctx context.Context, account models.MonitoredAccount) error {
	if err := normalize(&account); err != nil {
		return err
	}

	password, err := m.cipher.Encrypt(account.Password)
	if err != nil {
		return fmt.Errorf("failed to encrypt password: %w", err)
	}
	stored := account
	stored.Password = password

	return m.mutate(ctx, func() error {
		if err := m.repo.UpsertAccount(ctx, &stored); err != nil {
			return err
		}

		settings := m.settings
		settings.Mode = models.ModeIMAP
		if err := m.repo.SaveSettings(ctx, settings); err != nil {
			return err
		}

		account.CreatedAt = stored.CreatedAt
		account.UpdatedAt = stored.UpdatedAt
		m.replaceAccount(&account)
		m.settings = settings

		m.logger.Info("account saved", "email", account.Address, "server", account.Server())
		return nil
	})
}

// replaceAccount swaps the account with the same address or appends it.
// m.mu must be held.
func (m *Monitor) replaceAccount(account *models.MonitoredAccount) {
	for i, acc := range m.accounts {
		if strings.EqualFold(acc.Address, account.Address) {
			m.accounts[i] = account
			return
		}
	}
	m.accounts = append(m.accounts, account)
}

// RemoveAccount removes an account. Removing an unknown address is not an error.
func (m *Monitor) RemoveAccount(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)

	return m.mutate(ctx, func() error {
		if err := m.repo.DeleteAccount(ctx, address); err != nil && !errors.Is(err, database.ErrNotFound) {
			return err
		}

		kept := make([]*models.MonitoredAccount, 0, len(m.accounts))
		for _, acc := range m.accounts {
			if !strings.EqualFold(acc.Address, address) {
				kept = append(kept, acc)
			}
		}
		m.accounts = kept

		m.logger.Info("account removed", "email", address)
		return nil
	})
}

// SetMode changes the ingestion mode. The signing key is only replaced when
// signingKey is not nil.
func (m *Monitor) SetMode(ctx context.Context, mode models.Mode, signingKey *string) error {
	if !mode.Valid() {
		return ErrInvalidMode
	}

	return m.mutate(ctx, func() error {
		settings := m.settings
		settings.Mode = mode
		if signingKey != nil {
			settings.MailgunSigningKey = *signingKey
		}

		if err := m.repo.SaveSettings(ctx, settings); err != nil {
			return err
		}
		m.settings = settings

		m.logger.Info("mode changed", "mode", mode, "signing_key_set", settings.MailgunSigningKey != "")
		return nil
	})
}

// TestConnection connects, logs in and selects INBOX without keeping the session
func (m *Monitor) TestConnection(ctx context.Context, account models.MonitoredAccount) error {
	if err := normalize(&account); err != nil {
		return err
	}

	m.logger.Info("testing connection", "email", account.Address, "server", account.Server())
	return m.watcher.TestConnection(ctx, &account)
}

// Shutdown stops every watcher
func (m *Monitor) Shutdown(ctx context.Context) error {
	m.restartMu.Lock()
	defer m.restartMu.Unlock()

	m.logger.Info("shutting down watchers")
	return m.watcher.StopAll(ctx)
}

// normalize validates an account and fills in its server when missing
func normalize(account *models.MonitoredAccount) error {
	account.Address = strings.TrimSpace(account.Address)
	if account.Address == "" || account.Password == "" {
		return ErrInvalidAccount
	}

	account.Host = strings.TrimSpace(account.Host)
	if account.Host == "" {
		host, port, err := email.ResolveIMAPServer(account.Address)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAccount, err)
		}
		account.Host = host
		if account.Port == 0 {
			account.Port = port
			account.UseTLS = port == email.DefaultIMAPPort
		}
	}

	if account.Port == 0 {
		account.Port = email.DefaultIMAPPort
	}
	return nil
}
