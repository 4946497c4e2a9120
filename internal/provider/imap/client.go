// Package imap implements the provider contract over raw IMAP and
// SMTP, for mailboxes that have no vendor API.
package imap

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
)

const dialTimeout = 5 * time.Second

// imapTransport adapts a live IMAP session to the managed transport
// interface.
type imapTransport struct {
	c *client.Client
}

func (t *imapTransport) Ping(context.Context) error { return t.c.Noop() }

func (t *imapTransport) Close() error { return t.c.Logout() }

// dialIMAP connects and authenticates one IMAP session. Port 993 gets
// implicit TLS; anything else is treated as a plaintext development
// server. A rejected login comes back as an AuthError so callers can
// tell bad credentials from an unreachable host.
func dialIMAP(ctx context.Context, creds provider.Credentials) (*client.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(creds.IMAPHost, strconv.Itoa(creds.IMAPPort))
	dialer := &net.Dialer{Timeout: dialTimeout}

	var c *client.Client
	var err error
	if creds.IMAPPort == 993 {
		c, err = client.DialWithDialerTLS(dialer, addr, nil)
	} else {
		c, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server %s: %w", addr, err)
	}

	if err := c.Login(creds.Username, creds.Password); err != nil {
		_ = c.Logout()
		return nil, &provider.AuthError{Kind: provider.KindIMAP, Err: err}
	}

	return c, nil
}
