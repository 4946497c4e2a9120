package imap

import (
	"context"
	"log"
	"time"

	idle "github.com/emersion/go-imap-idle"
	imapclient "github.com/emersion/go-imap/client"
)

// idleRetrySleep is the pause after an IDLE error before reconnecting.
const idleRetrySleep = 10 * time.Second

// idlePollFallback is the polling interval used when the server does
// not support IDLE.
const idlePollFallback = 5 * time.Second

// Watch runs an IMAP IDLE loop against the inbox and invokes onUpdate
// whenever the server reports new messages. It blocks until ctx is
// canceled, reconnecting with a pause after errors. The watcher uses
// its own dedicated connection so IDLE never blocks sync traffic.
func (a *Adapter) Watch(ctx context.Context, onUpdate func()) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := a.watchOnce(ctx, onUpdate); err != nil {
			log.Printf("Warning: IMAP idle loop for %s ended: %v", a.creds.EmailAddress, err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(idleRetrySleep):
		}
	}
}

// watchOnce dials, selects the inbox and idles until an error or
// cancellation. Updates arrive through the client's unsolicited-update
// channel.
func (a *Adapter) watchOnce(ctx context.Context, onUpdate func()) error {
	c, err := dialIMAP(ctx, a.creds)
	if err != nil {
		return err
	}
	defer func() { _ = c.Logout() }()

	if _, err := c.Select(inboxMailbox, false); err != nil {
		return err
	}

	updates := make(chan imapclient.Update, 10)
	c.Updates = updates

	idleClient := idle.NewClient(c)
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- idleClient.IdleWithFallback(stop, idlePollFallback)
	}()

	for {
		select {
		case <-ctx.Done():
			close(stop)
			<-done
			return nil
		case err := <-done:
			return err
		case update := <-updates:
			if isNewMailUpdate(update) {
				onUpdate()
			}
		}
	}
}

// isNewMailUpdate reports whether an unsolicited update indicates new
// messages in the watched mailbox.
func isNewMailUpdate(update imapclient.Update) bool {
	mboxUpdate, ok := update.(*imapclient.MailboxUpdate)
	if !ok || mboxUpdate.Mailbox == nil {
		return false
	}
	return mboxUpdate.Mailbox.Name == inboxMailbox && mboxUpdate.Mailbox.Messages > 0
}
