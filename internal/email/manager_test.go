package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/config"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/pipeline"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// fakeMailbox blocks in Watch until stopped. When barrier is set, Stop only
// returns once every mailbox sharing the barrier is stopping.
type fakeMailbox struct {
	stopErr error
	barrier *sync.WaitGroup
	pending []*RawEmail

	once    sync.Once
	stopped chan struct{}
}

func newFakeMailbox(stopErr error, barrier *sync.WaitGroup) *fakeMailbox {
	return &fakeMailbox{stopErr: stopErr, barrier: barrier, stopped: make(chan struct{})}
}

func (f *fakeMailbox) Watch(ctx context.Context, onNew func([]*RawEmail)) error {
	if len(f.pending) > 0 {
		onNew(f.pending)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.stopped:
		return nil
	}
}

func (f *fakeMailbox) Stop(ctx context.Context) error {
	f.once.Do(func() { close(f.stopped) })

	if f.barrier != nil {
		f.barrier.Done()
		all := make(chan struct{})
		go func() {
			f.barrier.Wait()
			close(all)
		}()
		select {
		case <-all:
		case <-time.After(2 * time.Second):
			return errors.New("stopped one at a time")
		}
	}
	return f.stopErr
}

func (f *fakeMailbox) IsConnected() bool {
	select {
	case <-f.stopped:
		return false
	default:
		return true
	}
}

type recordingSubmitter struct {
	mu     sync.Mutex
	events []pipeline.MessageObserved
}

func (s *recordingSubmitter) Submit(ctx context.Context, ev pipeline.MessageObserved) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func testManager(mailboxes map[string]*fakeMailbox, submitter pipeline.Submitter) *Manager {
	m := NewManager(&config.Config{}, submitter, slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.dial = func(cfg ClientConfig) mailbox {
		return mailboxes[cfg.Email]
	}
	return m
}

func account(address string) *models.MonitoredAccount {
	return &models.MonitoredAccount{Address: address, Password: "secret", Host: "imap.example.com", Port: 993, UseTLS: true}
}

func TestStopAllStopsEveryClient(t *testing.T) {
	errLogout := errors.New("logout timed out")
	errLock := errors.New("mailbox lock not released")

	var barrier sync.WaitGroup
	barrier.Add(3)
	mailboxes := map[string]*fakeMailbox{
		"uno@example.com":  newFakeMailbox(errLogout, &barrier),
		"dos@example.com":  newFakeMailbox(nil, &barrier),
		"tres@example.com": newFakeMailbox(errLock, &barrier),
	}
	m := testManager(mailboxes, &recordingSubmitter{})

	for address := range mailboxes {
		require.NoError(t, m.AddAccount(account(address)))
	}
	require.Equal(t, 3, m.Count())
	assert.Equal(t, StatusConnected, m.Status("DOS@example.com"))

	err := m.StopAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errLogout)
	assert.ErrorIs(t, err, errLock)
	assert.Contains(t, err.Error(), "uno@example.com")
	assert.Contains(t, err.Error(), "tres@example.com")
	assert.NotContains(t, err.Error(), "dos@example.com")
	assert.NotContains(t, err.Error(), "one at a time")

	for address, mb := range mailboxes {
		assert.False(t, mb.IsConnected(), address)
	}
	assert.Zero(t, m.Count())
	assert.Equal(t, StatusDisconnected, m.Status("dos@example.com"))
}

func TestStopAllWithoutClients(t *testing.T) {
	m := testManager(nil, &recordingSubmitter{})
	assert.NoError(t, m.StopAll(context.Background()))
}

func TestRestartReplacesClients(t *testing.T) {
	mailboxes := map[string]*fakeMailbox{
		"uno@example.com": newFakeMailbox(nil, nil),
		"dos@example.com": newFakeMailbox(nil, nil),
	}
	m := testManager(mailboxes, &recordingSubmitter{})

	require.NoError(t, m.AddAccount(account("uno@example.com")))
	// Adding the same address twice keeps one client
	require.NoError(t, m.AddAccount(account("UNO@example.com")))
	require.Equal(t, 1, m.Count())

	require.NoError(t, m.Restart(context.Background(), []*models.MonitoredAccount{account("dos@example.com")}))
	assert.Equal(t, 1, m.Count())
	assert.False(t, mailboxes["uno@example.com"].IsConnected())
	assert.Equal(t, StatusConnected, m.Status("dos@example.com"))
	assert.Equal(t, StatusDisconnected, m.Status("uno@example.com"))

	require.NoError(t, m.RemoveAccount(context.Background(), "dos@example.com"))
	assert.Zero(t, m.Count())
}

func TestWatchedMessagesAreSubmitted(t *testing.T) {
	mb := newFakeMailbox(nil, nil)
	mb.pending = []*RawEmail{
		{UID: 10, MessageID: "<a@netflix.com>", From: "info@account.netflix.com", To: "perfil1@example.com", BodyText: "Código 1234"},
		{UID: 11, MessageID: "<b@netflix.com>", From: "info@account.netflix.com", To: "perfil2@example.com", BodyText: "Código 5678"},
	}
	submitter := &recordingSubmitter{}
	m := testManager(map[string]*fakeMailbox{"uno@example.com": mb}, submitter)

	require.NoError(t, m.AddAccount(account("uno@example.com")))
	assert.Eventually(t, func() bool { return submitter.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, m.StopAll(context.Background()))

	submitter.mu.Lock()
	defer submitter.mu.Unlock()
	require.Len(t, submitter.events, 2)
	assert.Equal(t, pipeline.SourceIMAP, submitter.events[0].Source)
	assert.Equal(t, "uno@example.com", submitter.events[0].Monitored)
	assert.Equal(t, "perfil1@example.com", submitter.events[0].Message.EnvelopeTo)
	assert.Equal(t, "perfil2@example.com", submitter.events[1].Message.EnvelopeTo)
	assert.NotEqual(t, submitter.events[0].TraceID, submitter.events[1].TraceID)
}

func TestAddAccountRequiresCredentials(t *testing.T) {
	m := testManager(nil, &recordingSubmitter{})
	assert.Error(t, m.AddAccount(&models.MonitoredAccount{Address: "uno@example.com"}))
	assert.Zero(t, m.Count())
}
