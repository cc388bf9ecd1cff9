package email

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-imap/client"
)

// idleExitTimeout bounds how long leaving IDLE may take before the
// connection is considered broken
const idleExitTimeout = 5 * time.Second

// pumpUpdates drains unilateral server updates so the IMAP reader never
// blocks, and turns new-mail announcements into a single pending signal
func pumpUpdates(updates <-chan client.Update, notify chan<- struct{}, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case u := <-updates:
			if _, ok := u.(*client.MailboxUpdate); !ok {
				continue
			}
			select {
			case notify <- struct{}{}:
			default:
			}
		}
	}
}

// idle waits in IDLE until the server reports a mailbox change. Servers
// without IDLE are polled every PollInterval instead. The mailbox lock is
// held for the whole wait and released on return.
//
// Returns nil when new mail may be available, errStopped after Stop.
func (c *Client) idle(ctx context.Context) error {
	c.stateMu.Lock()
	notify := c.notify
	c.stateMu.Unlock()

	return c.withMailbox(ctx, func(cl *client.Client) error {
		// A change already seen while fetching
		select {
		case <-notify:
			return nil
		default:
		}

		stop := make(chan struct{})
		done := make(chan error, 1)

		go func() {
			done <- cl.Idle(stop, &client.IdleOptions{
				LogoutTimeout: c.config.IdleTimeout,
				PollInterval:  c.config.PollInterval,
			})
		}()

		leave := func(reason error) error {
			close(stop)
			select {
			case err := <-done:
				if err != nil && reason == nil {
					return fmt.Errorf("failed to leave IDLE: %w", err)
				}
			case <-time.After(idleExitTimeout):
				return fmt.Errorf("timed out leaving IDLE")
			}
			return reason
		}

		select {
		case <-notify:
			c.logger.Debug("mailbox update received")
			return leave(nil)
		case err := <-done:
			// IDLE ended on its own, usually the server dropped it
			if err != nil {
				return fmt.Errorf("IDLE failed: %w", err)
			}
			return nil
		case <-ctx.Done():
			return leave(ctx.Err())
		case <-c.stopCh:
			return leave(errStopped)
		}
	})
}
