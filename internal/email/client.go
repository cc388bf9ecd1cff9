package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/metrics"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

var (
	errNotConnected = errors.New("not connected")
	errStopped      = errors.New("client stopped")
)

// RawEmail represents a raw email message from IMAP
type RawEmail struct {
	UID       uint32
	MessageID string
	From      string
	To        string // Original recipient header, see recipientHeader
	Subject   string
	Date      time.Time
	BodyHTML  string
	BodyText  string
}

// Message returns the fields the extraction pipeline consumes
func (e *RawEmail) Message() models.RawMessage {
	return models.RawMessage{
		EnvelopeTo: e.To,
		Subject:    e.Subject,
		PlainText:  e.BodyText,
		HTML:       e.BodyHTML,
	}
}

// ClientConfig configuration for IMAP client
type ClientConfig struct {
	Email          string
	Password       string
	Server         string // host:port
	UseTLS         bool
	IdleTimeout    time.Duration
	DialTimeout    time.Duration
	PollInterval   time.Duration
	ReconnectDelay time.Duration
}

// Client IMAP client for a single email account.
//
// Every command runs while holding the mailbox lock. Stop takes the lock
// before logging out, so a fetch in flight always finishes or fails first.
type Client struct {
	config ClientConfig
	logger *slog.Logger

	lock chan struct{} // mailbox lock

	stateMu   sync.Mutex
	client    *client.Client
	connected bool
	stopped   bool
	notify    chan struct{}
	pumpDone  chan struct{}

	lastUID  uint32
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewClient creates a new IMAP client
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	return &Client{
		config: cfg,
		logger: logger.With("email", cfg.Email),
		lock:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
}

// acquire takes the mailbox lock
func (c *Client) acquire(ctx context.Context) error {
	select {
	case c.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release gives the mailbox lock back
func (c *Client) release() {
	<-c.lock
}

// withMailbox runs fn with the mailbox lock held. The lock is released when fn
// returns, whether or not it failed.
func (c *Client) withMailbox(ctx context.Context, fn func(*client.Client) error) error {
	if err := c.acquire(ctx); err != nil {
		return fmt.Errorf("failed to acquire mailbox lock: %w", err)
	}
	defer c.release()

	c.stateMu.Lock()
	imapClient := c.client
	c.stateMu.Unlock()

	if imapClient == nil {
		return errNotConnected
	}
	return fn(imapClient)
}

// Connect connects to the IMAP server and logs in
func (c *Client) Connect(ctx context.Context) error {
	if err := c.acquire(ctx); err != nil {
		return fmt.Errorf("failed to acquire mailbox lock: %w", err)
	}
	defer c.release()

	c.stateMu.Lock()
	connected := c.connected
	c.stateMu.Unlock()
	if connected {
		return nil
	}

	c.logger.Info("connecting to IMAP server", "server", c.config.Server, "tls", c.config.UseTLS)

	// Connect with timeout
	timeout := c.config.DialTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	dialer := &net.Dialer{Timeout: timeout}
	var conn net.Conn
	var err error
	if c.config.UseTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer}).DialContext(ctx, "tcp", c.config.Server)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", c.config.Server)
	}
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	end := c.guardHandshake(ctx, conn, timeout)
	imapClient, err := client.New(conn)
	if err != nil {
		end()
		conn.Close()
		return fmt.Errorf("failed to create IMAP client: %w", err)
	}

	// Login
	err = imapClient.Login(c.config.Email, c.config.Password)
	if end() {
		err = c.handshakeErr(ctx, timeout)
	}
	if err != nil {
		imapClient.Terminate()
		return fmt.Errorf("failed to login: %w", err)
	}

	updates := make(chan client.Update, 32)
	imapClient.Updates = updates

	c.stateMu.Lock()
	if c.stopped {
		c.stateMu.Unlock()
		imapClient.Logout()
		return errStopped
	}
	c.client = imapClient
	c.connected = true
	c.notify = make(chan struct{}, 1)
	c.pumpDone = make(chan struct{})
	go pumpUpdates(updates, c.notify, c.pumpDone)
	c.stateMu.Unlock()

	c.logger.Info("connected to IMAP server")
	return nil
}

// guardHandshake closes conn when the greeting and LOGIN outlast timeout,
// or when ctx ends or Stop is called first. The returned func ends the guard
// and reports whether it closed the connection.
func (c *Client) guardHandshake(ctx context.Context, conn net.Conn, timeout time.Duration) func() bool {
	done := make(chan struct{})
	fired := make(chan bool, 1)

	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-done:
			fired <- false
			return
		case <-timer.C:
		case <-ctx.Done():
		case <-c.stopCh:
		}
		conn.Close()
		fired <- true
	}()

	return func() bool {
		close(done)
		return <-fired
	}
}

func (c *Client) isStopped() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.stopped
}

func (c *Client) handshakeErr(ctx context.Context, timeout time.Duration) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case c.isStopped():
		return errStopped
	default:
		return fmt.Errorf("no answer from %s within %s", c.config.Server, timeout)
	}
}

// SelectINBOX selects the INBOX mailbox
func (c *Client) SelectINBOX(ctx context.Context) (*imap.MailboxStatus, error) {
	var mbox *imap.MailboxStatus
	err := c.withMailbox(ctx, func(cl *client.Client) error {
		var err error
		mbox, err = cl.Select("INBOX", false)
		if err != nil {
			return fmt.Errorf("failed to select INBOX: %w", err)
		}
		return nil
	})
	return mbox, err
}

// FetchNewMessages fetches messages with UID > sinceUID, in UID order
func (c *Client) FetchNewMessages(ctx context.Context, sinceUID uint32) ([]*RawEmail, error) {
	var emails []*RawEmail

	err := c.withMailbox(ctx, func(cl *client.Client) error {
		// Create UID sequence set for UIDs > sinceUID
		seqSet := new(imap.SeqSet)
		seqSet.AddRange(sinceUID+1, 0) // 0 means * (all)

		section := &imap.BodySectionName{Peek: true}
		items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

		messages := make(chan *imap.Message, 100)
		done := make(chan error, 1)

		go func() {
			done <- cl.UidFetch(seqSet, items, messages)
		}()

		for msg := range messages {
			// "N:*" always matches the last message, even when it is older
			if msg.Uid <= sinceUID {
				continue
			}
			email, err := c.parseMessage(msg, section)
			if err != nil {
				c.logger.Warn("failed to parse message", "uid", msg.Uid, "error", err)
				continue
			}
			emails = append(emails, email)
		}

		if err := <-done; err != nil {
			return fmt.Errorf("failed to fetch: %w", err)
		}
		return nil
	})

	sort.Slice(emails, func(i, j int) bool { return emails[i].UID < emails[j].UID })
	return emails, err
}

// parseMessage parses an IMAP message into RawEmail
func (c *Client) parseMessage(msg *imap.Message, section *imap.BodySectionName) (*RawEmail, error) {
	email := &RawEmail{
		UID: msg.Uid,
	}

	// Parse envelope
	if msg.Envelope != nil {
		email.Subject = msg.Envelope.Subject
		email.Date = msg.Envelope.Date
		email.MessageID = msg.Envelope.MessageId

		if len(msg.Envelope.From) > 0 {
			email.From = msg.Envelope.From[0].Address()
		}
		email.To = joinAddresses(msg.Envelope.To)
	}

	// Parse body
	bodyReader := msg.GetBody(section)
	if bodyReader == nil {
		return nil, fmt.Errorf("message has no body")
	}

	mr, err := mail.CreateReader(bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail reader: %w", err)
	}

	if to := recipientHeader(&mr.Header); to != "" {
		email.To = to
	}
	if email.From == "" {
		if list, err := mr.Header.AddressList("From"); err == nil && len(list) > 0 {
			email.From = list[0].Address
		}
	}
	if email.MessageID == "" {
		email.MessageID, _ = mr.Header.MessageID()
	}

	// Read parts
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			c.logger.Warn("failed to read part", "uid", msg.Uid, "error", err)
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}

			if strings.HasPrefix(ct, "text/html") && email.BodyHTML == "" {
				email.BodyHTML = string(body)
			} else if strings.HasPrefix(ct, "text/plain") && email.BodyText == "" {
				email.BodyText = string(body)
			}
		}
	}

	return email, nil
}

// recipientHeader returns the To addresses, falling back to the headers
// forwarding setups leave behind
func recipientHeader(h *mail.Header) string {
	if list, err := h.AddressList("To"); err == nil && len(list) > 0 {
		addrs := make([]string, 0, len(list))
		for _, a := range list {
			addrs = append(addrs, a.Address)
		}
		return strings.Join(addrs, ", ")
	}

	for _, key := range []string{"Delivered-To", "X-Forwarded-To"} {
		if v := strings.TrimSpace(h.Get(key)); v != "" {
			return v
		}
	}
	return ""
}

func joinAddresses(list []*imap.Address) string {
	addrs := make([]string, 0, len(list))
	for _, a := range list {
		if addr := a.Address(); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return strings.Join(addrs, ", ")
}

// GetHighestUID returns the highest UID in the mailbox
func (c *Client) GetHighestUID(ctx context.Context) (uint32, error) {
	var highest uint32
	err := c.withMailbox(ctx, func(cl *client.Client) error {
		// Search for all messages
		criteria := imap.NewSearchCriteria()
		uids, err := cl.UidSearch(criteria)
		if err != nil {
			return fmt.Errorf("failed to search: %w", err)
		}

		for _, uid := range uids {
			if uid > highest {
				highest = uid
			}
		}
		return nil
	})
	return highest, err
}

// Watch keeps the mailbox connected and calls onNew with every batch of new
// messages until ctx is cancelled or Stop is called. Messages already in the
// mailbox when Watch first connects are skipped.
func (c *Client) Watch(ctx context.Context, onNew func([]*RawEmail)) error {
	c.logger.Info("starting watcher")
	primed := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("watcher: stop signal received")
			return nil
		default:
		}

		// Check if we need to (re)connect
		if !c.IsConnected() {
			if err := c.connectAndSelect(ctx, !primed); err != nil {
				if errors.Is(err, errStopped) {
					return nil
				}
				c.logger.Error("failed to connect", "error", err)
				if c.config.ReconnectDelay <= 0 {
					return err
				}
				if !c.sleep(ctx, c.config.ReconnectDelay) {
					return nil
				}
				continue
			}
			primed = true
		}

		// Catch up on anything newer than the last UID
		fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		messages, err := c.FetchNewMessages(fetchCtx, c.lastUID)
		cancel()
		if err != nil && !errors.Is(err, errNotConnected) {
			metrics.IncrementIMAPError("fetch")
			c.logger.Error("failed to fetch messages", "error", err)
			c.handleDisconnect()
			continue
		}
		for _, msg := range messages {
			if msg.UID > c.lastUID {
				c.lastUID = msg.UID
			}
		}
		if len(messages) > 0 {
			onNew(messages)
		}

		// Wait for the server to announce new mail
		if err := c.idle(ctx); err != nil {
			switch {
			case errors.Is(err, errStopped):
				return nil
			case ctx.Err() != nil:
				return ctx.Err()
			}
			metrics.IncrementIMAPError("idle")
			c.logger.Warn("IDLE error", "error", err)
			c.handleDisconnect()
			if c.config.ReconnectDelay <= 0 {
				return err
			}
			if !c.sleep(ctx, c.config.ReconnectDelay) {
				return nil
			}
		}
	}
}

// connectAndSelect connects, selects INBOX and, on the first connection,
// records the highest UID so older mail is not reported
func (c *Client) connectAndSelect(ctx context.Context, prime bool) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.config.DialTimeout+5*time.Second)
	defer cancel()

	if err := c.Connect(dialCtx); err != nil {
		metrics.IncrementIMAPError("connect")
		return err
	}

	mbox, err := c.SelectINBOX(dialCtx)
	if err != nil {
		metrics.IncrementIMAPError("select")
		c.handleDisconnect()
		return err
	}

	if !prime {
		return nil
	}

	if mbox != nil && mbox.UidNext > 0 {
		c.lastUID = mbox.UidNext - 1
		return nil
	}

	highest, err := c.GetHighestUID(dialCtx)
	if err != nil {
		metrics.IncrementIMAPError("select")
		c.handleDisconnect()
		return err
	}
	c.lastUID = highest
	return nil
}

// sleep waits for d unless the client is stopped or ctx is cancelled
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-c.stopCh:
		return false
	}
}

// handleDisconnect drops a broken connection
func (c *Client) handleDisconnect() {
	c.stateMu.Lock()
	imapClient := c.detachLocked()
	c.stateMu.Unlock()

	if imapClient != nil {
		imapClient.Terminate()
	}
}

// detachLocked clears the connection state and returns the old client.
// stateMu must be held.
func (c *Client) detachLocked() *client.Client {
	imapClient := c.client
	c.client = nil
	c.connected = false
	if c.pumpDone != nil {
		close(c.pumpDone)
		c.pumpDone = nil
	}
	return imapClient
}

// Stop stops the watcher, then logs out while holding the mailbox lock.
// If the lock is not released in time the connection is terminated instead.
func (c *Client) Stop(ctx context.Context) error {
	c.stopOnce.Do(func() {
		c.stateMu.Lock()
		c.stopped = true
		c.stateMu.Unlock()
		close(c.stopCh)
	})

	lockCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.acquire(lockCtx); err != nil {
		c.logger.Warn("mailbox lock not released in time, terminating connection", "error", err)
		c.handleDisconnect()
		return fmt.Errorf("failed to acquire mailbox lock: %w", err)
	}
	defer c.release()

	c.stateMu.Lock()
	imapClient := c.detachLocked()
	c.stateMu.Unlock()

	if imapClient == nil {
		return nil
	}

	// Try logout with timeout, then force close
	done := make(chan error, 1)
	go func() {
		done <- imapClient.Logout()
	}()

	select {
	case err := <-done:
		if err != nil {
			metrics.IncrementIMAPError("logout")
			return fmt.Errorf("failed to logout: %w", err)
		}
	case <-time.After(2 * time.Second):
		imapClient.Terminate()
		metrics.IncrementIMAPError("logout")
		return fmt.Errorf("logout timed out")
	}

	c.logger.Info("logged out")
	return nil
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.connected
}
