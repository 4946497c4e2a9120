package imap

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
)

// SendMail submits the message to the account's SMTP server. Delivery
// is fire-and-forget: acceptance by the server counts as success.
func (a *Adapter) SendMail(ctx context.Context, msg *provider.OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := *msg
	if out.From == "" {
		out.From = a.creds.EmailAddress
	}

	recipients := make([]string, 0, len(out.To)+len(out.Cc)+len(out.Bcc))
	for _, list := range [][]string{out.To, out.Cc, out.Bcc} {
		for _, addr := range list {
			recipients = append(recipients, models.ExtractEmailAddress(addr))
		}
	}
	if len(recipients) == 0 {
		return &provider.ValidationError{Field: "to", Reason: "is required"}
	}

	raw, err := provider.BuildMIME(&out)
	if err != nil {
		return &provider.OpError{Kind: provider.KindIMAP, Op: "build message", Err: err}
	}

	c, err := a.dialSMTP()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err := c.SendMail(models.ExtractEmailAddress(out.From), recipients, bytes.NewReader(raw)); err != nil {
		return &provider.OpError{Kind: provider.KindIMAP, Op: "smtp send", Err: err}
	}
	return nil
}

// SaveDraft appends the message to the drafts mailbox with \Draft set.
// Plain APPEND does not report the new UID, so the returned id is
// empty; the draft shows up with an id on the next sync of its mailbox.
func (a *Adapter) SaveDraft(ctx context.Context, msg *provider.OutgoingMessage) (string, error) {
	draft := *msg
	if draft.From == "" {
		draft.From = a.creds.EmailAddress
	}
	if len(draft.To)+len(draft.Cc)+len(draft.Bcc) == 0 {
		// The MIME builder insists on a recipient; a draft addressed to
		// no one yet goes to the account itself.
		draft.To = []string{a.creds.EmailAddress}
	}

	raw, err := provider.BuildMIME(&draft)
	if err != nil {
		return "", &provider.OpError{Kind: provider.KindIMAP, Op: "build draft", Err: err}
	}

	drafts, err := a.resolveSpecialMailbox(ctx, models.FolderDrafts)
	if errors.Is(err, provider.ErrNotFound) {
		created, createErr := a.CreateFolder(ctx, "Drafts")
		if createErr != nil {
			return "", createErr
		}
		drafts = created.ProviderFolderID
	} else if err != nil {
		return "", err
	}

	c, err := a.acquire(ctx)
	if err != nil {
		return "", err
	}

	if err := c.Append(drafts, []string{imap.DraftFlag}, time.Now(), bytes.NewReader(raw)); err != nil {
		return "", a.opErr("append draft", err)
	}

	return "", nil
}

// dialSMTP connects and authenticates an SMTP session. Port 465 gets
// implicit TLS, 587 STARTTLS; anything else is treated as a plaintext
// development server.
func (a *Adapter) dialSMTP() (*smtp.Client, error) {
	addr := net.JoinHostPort(a.creds.SMTPHost, strconv.Itoa(a.creds.SMTPPort))

	var c *smtp.Client
	var err error
	switch a.creds.SMTPPort {
	case 465:
		c, err = smtp.DialTLS(addr, &tls.Config{ServerName: a.creds.SMTPHost})
	case 587:
		c, err = smtp.DialStartTLS(addr, &tls.Config{ServerName: a.creds.SMTPHost})
	default:
		c, err = smtp.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server %s: %w", addr, err)
	}

	if a.creds.Password != "" {
		if err := c.Auth(sasl.NewPlainClient("", a.creds.Username, a.creds.Password)); err != nil {
			_ = c.Close()
			return nil, &provider.AuthError{Kind: provider.KindIMAP, Err: err}
		}
	}

	return c, nil
}
