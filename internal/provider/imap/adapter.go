package imap

import (
	"context"

	"github.com/emersion/go-imap/client"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
)

// inboxMailbox is the mailbox syncs target and message ids resolve
// against.
const inboxMailbox = "INBOX"

// syncBatchLimit caps one SyncMessages batch.
const syncBatchLimit = 200

// Adapter talks to one IMAP account. Instances are not safe for
// concurrent use; construct one per concurrent operation.
type Adapter struct {
	creds   provider.Credentials
	manager *provider.ConnManager

	// Lowered in tests to exercise batching without hundreds of
	// messages.
	batchLimit int
}

// NewAdapter wires an adapter for the given decrypted credentials.
func NewAdapter(creds provider.Credentials) *Adapter {
	a := &Adapter{
		creds:      creds,
		batchLimit: syncBatchLimit,
	}
	a.manager = provider.NewConnManager(provider.KindIMAP, func(ctx context.Context) (provider.Transport, error) {
		c, err := dialIMAP(ctx, creds)
		if err != nil {
			return nil, err
		}
		return &imapTransport{c: c}, nil
	})
	return a
}

// Kind reports the provider variant.
func (a *Adapter) Kind() provider.Kind { return provider.KindIMAP }

// acquire returns the live IMAP client behind the managed transport.
func (a *Adapter) acquire(ctx context.Context) (*client.Client, error) {
	transport, err := a.manager.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return transport.(*imapTransport).c, nil
}

// opErr wraps a failed command and drops the cached connection, since
// a failed command usually leaves the session unusable.
func (a *Adapter) opErr(op string, err error) error {
	a.manager.Invalidate()
	return &provider.OpError{Kind: provider.KindIMAP, Op: op, Err: err}
}

// TestConnection dials, logs in and opens INBOX once, without touching
// the cached connection. A rejected login reports failure instead of
// returning an error so callers can distinguish bad credentials from a
// dead server.
func (a *Adapter) TestConnection(ctx context.Context) (*provider.ConnectionTest, error) {
	c, err := dialIMAP(ctx, a.creds)
	if err != nil {
		if provider.IsAuthError(err) {
			return &provider.ConnectionTest{Success: false, Message: "login rejected; check username and password"}, nil
		}
		return nil, err
	}
	defer func() { _ = c.Logout() }()

	if _, err := c.Select(inboxMailbox, true); err != nil {
		return &provider.ConnectionTest{Success: false, Message: "logged in but could not open INBOX: " + err.Error()}, nil
	}

	return &provider.ConnectionTest{Success: true, Message: "IMAP connection verified"}, nil
}

// RefreshTokens is not applicable to password-based IMAP accounts.
func (a *Adapter) RefreshTokens(context.Context) (*provider.TokenBundle, error) {
	return nil, nil
}

// Disconnect releases the cached connection.
func (a *Adapter) Disconnect() {
	a.manager.Close()
}
