package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/config"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/metrics"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/pipeline"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// Account statuses reported by Status
const (
	StatusDisconnected = "disconnected"
	StatusConnected    = "connected"
	StatusReconnecting = "reconnecting"
)

// mailbox is the part of Client the manager drives
type mailbox interface {
	Watch(ctx context.Context, onNew func([]*RawEmail)) error
	Stop(ctx context.Context) error
	IsConnected() bool
}

// Manager manages all email connections
type Manager struct {
	clients   map[string]*clientWrapper
	mu        sync.RWMutex
	config    *config.Config
	logger    *slog.Logger
	submitter pipeline.Submitter
	dial      func(cfg ClientConfig) mailbox
}

type clientWrapper struct {
	client  mailbox
	account models.MonitoredAccount
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager creates a new email manager. New messages are submitted to
// submitter as they arrive.
func NewManager(cfg *config.Config, submitter pipeline.Submitter, logger *slog.Logger) *Manager {
	m := &Manager{
		clients:   make(map[string]*clientWrapper),
		config:    cfg,
		logger:    logger.With("component", "email_manager"),
		submitter: submitter,
	}
	m.dial = func(cfg ClientConfig) mailbox {
		return NewClient(cfg, m.logger)
	}
	return m
}

func (m *Manager) clientConfig(account *models.MonitoredAccount) ClientConfig {
	return ClientConfig{
		Email:          account.Address,
		Password:       account.Password,
		Server:         account.Server(),
		UseTLS:         account.UseTLS,
		IdleTimeout:    m.config.IMAPIdleTimeout,
		DialTimeout:    m.config.IMAPDialTimeout,
		PollInterval:   m.config.IMAPPollInterval,
		ReconnectDelay: m.config.IMAPReconnectDelay,
	}
}

func key(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// TestConnection tests an IMAP connection
func (m *Manager) TestConnection(ctx context.Context, account *models.MonitoredAccount) error {
	client := NewClient(m.clientConfig(account), m.logger)

	if err := client.Connect(ctx); err != nil {
		return err
	}

	if _, err := client.SelectINBOX(ctx); err != nil {
		client.Stop(ctx)
		return err
	}

	return client.Stop(ctx)
}

// AddAccount starts watching an account. It returns without waiting for the
// connection; failures are logged and retried by the client.
func (m *Manager) AddAccount(account *models.MonitoredAccount) error {
	if account.Address == "" || account.Password == "" {
		return fmt.Errorf("account requires an address and a password")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Check if already exists
	if _, exists := m.clients[key(account.Address)]; exists {
		return nil
	}

	client := m.dial(m.clientConfig(account))

	clientCtx, cancel := context.WithCancel(context.Background())
	wrapper := &clientWrapper{
		client:  client,
		account: *account,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	m.clients[key(account.Address)] = wrapper
	metrics.ConnectedAccounts.Inc()

	go m.runClient(clientCtx, wrapper)

	m.logger.Info("added email account", "email", account.Address, "server", account.Server())
	return nil
}

// runClient runs the watcher until it is stopped
func (m *Manager) runClient(ctx context.Context, wrapper *clientWrapper) {
	defer close(wrapper.done)

	err := wrapper.client.Watch(ctx, func(messages []*RawEmail) {
		m.submit(ctx, wrapper.account.Address, messages)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Error("watcher stopped", "email", wrapper.account.Address, "error", err)
	}
}

// submit hands new messages to the pipeline in UID order
func (m *Manager) submit(ctx context.Context, address string, messages []*RawEmail) {
	for _, msg := range messages {
		event := pipeline.MessageObserved{
			TraceID:   uuid.NewString(),
			Source:    pipeline.SourceIMAP,
			Monitored: address,
			Message:   msg.Message(),
		}

		m.logger.Info("new message",
			"email", address,
			"uid", msg.UID,
			"message_id", msg.MessageID,
			"from", msg.From,
			"date", msg.Date,
			"subject", msg.Subject,
			"trace_id", event.TraceID,
		)

		if err := m.submitter.Submit(ctx, event); err != nil {
			m.logger.Warn("failed to submit message", "email", address, "uid", msg.UID, "error", err)
			return
		}
	}
}

// RemoveAccount stops and removes an email connection
func (m *Manager) RemoveAccount(ctx context.Context, address string) error {
	m.mu.Lock()
	wrapper, exists := m.clients[key(address)]
	if exists {
		delete(m.clients, key(address))
	}
	m.mu.Unlock()

	if !exists {
		return nil
	}

	err := m.stopClient(ctx, wrapper)
	m.logger.Info("removed email account", "email", address)
	return err
}

// stopClient stops the client and waits for its watcher to exit
func (m *Manager) stopClient(ctx context.Context, wrapper *clientWrapper) error {
	defer metrics.ConnectedAccounts.Dec()

	err := wrapper.client.Stop(ctx)
	wrapper.cancel()

	select {
	case <-wrapper.done:
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
		m.logger.Warn("watcher did not exit in time", "email", wrapper.account.Address)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", wrapper.account.Address, err)
	}
	return nil
}

// Status returns the status of an account
func (m *Manager) Status(address string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wrapper, exists := m.clients[key(address)]
	if !exists {
		return StatusDisconnected
	}

	if wrapper.client.IsConnected() {
		return StatusConnected
	}
	return StatusReconnecting
}

// Count returns the number of watched accounts
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Restart stops every client and starts one per account
func (m *Manager) Restart(ctx context.Context, accounts []*models.MonitoredAccount) error {
	err := m.StopAll(ctx)

	for _, account := range accounts {
		if addErr := m.AddAccount(account); addErr != nil {
			m.logger.Error("failed to start account", "email", account.Address, "error", addErr)
			err = errors.Join(err, addErr)
		}
	}

	m.logger.Info("email accounts restarted", "count", m.Count())
	return err
}

// StopAll stops all email connections concurrently. Every failure is logged
// and the joined errors are returned once all clients have stopped.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	wrappers := m.clients
	m.clients = make(map[string]*clientWrapper)
	m.mu.Unlock()

	if len(wrappers) == 0 {
		return nil
	}

	m.logger.Info("stopping all email clients", "count", len(wrappers))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, wrapper := range wrappers {
		wg.Add(1)
		go func(w *clientWrapper) {
			defer wg.Done()
			if err := m.stopClient(ctx, w); err != nil {
				m.logger.Error("failed to stop email client", "email", w.account.Address, "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(wrapper)
	}
	wg.Wait()

	m.logger.Info("all email clients stopped")
	return errors.Join(errs...)
}
