package gmail

import (
	"context"
	"encoding/base64"

	"github.com/paul2999Git/mailapp-sub000/internal/provider"
	gmailapi "google.golang.org/api/gmail/v1"
)

// SendMail builds the RFC 822 bytes and hands them to the send
// endpoint, which also files the copy under SENT.
func (a *Adapter) SendMail(ctx context.Context, msg *provider.OutgoingMessage) error {
	out := *msg
	if out.From == "" {
		out.From = a.creds.EmailAddress
	}
	if len(out.To)+len(out.Cc)+len(out.Bcc) == 0 {
		return &provider.ValidationError{Field: "to", Reason: "is required"}
	}

	raw, err := provider.BuildMIME(&out)
	if err != nil {
		return &provider.OpError{Kind: provider.KindGmail, Op: "build message", Err: err}
	}

	svc, err := a.service(ctx)
	if err != nil {
		return err
	}

	send := &gmailapi.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	if _, err := svc.Users.Messages.Send(gmailUser, send).Context(ctx).Do(); err != nil {
		return a.wrapErr("send message", err)
	}
	return nil
}

// SaveDraft stores the message under DRAFT and returns the created
// message id.
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
		return "", &provider.OpError{Kind: provider.KindGmail, Op: "build draft", Err: err}
	}

	svc, err := a.service(ctx)
	if err != nil {
		return "", err
	}

	created, err := svc.Users.Drafts.Create(gmailUser, &gmailapi.Draft{
		Message: &gmailapi.Message{Raw: base64.URLEncoding.EncodeToString(raw)},
	}).Context(ctx).Do()
	if err != nil {
		return "", a.wrapErr("create draft", err)
	}

	if created.Message != nil {
		return created.Message.Id, nil
	}
	return created.Id, nil
}
