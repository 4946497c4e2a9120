package outlook

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/mail"
	"strings"

	"github.com/paul2999Git/mailapp-sub000/internal/provider"
)

// SendMail submits the message through /me/sendMail, which also files
// the copy under Sent Items.
func (a *Adapter) SendMail(ctx context.Context, msg *provider.OutgoingMessage) error {
	if len(msg.To)+len(msg.Cc)+len(msg.Bcc) == 0 {
		return &provider.ValidationError{Field: "to", Reason: "is required"}
	}

	return a.do(ctx, "send message", http.MethodPost, a.baseURL+"/me/sendMail",
		&sendMailRequest{Message: outgoingToGraph(msg), SaveToSentItems: true}, nil)
}

// SaveDraft creates the message in Drafts and returns its id. Unlike
// SMTP-backed providers, Graph is happy to hold a recipient-less
// draft.
func (a *Adapter) SaveDraft(ctx context.Context, msg *provider.OutgoingMessage) (string, error) {
	var created graphMessage
	err := a.do(ctx, "create draft", http.MethodPost, a.baseURL+"/me/messages",
		outgoingToGraph(msg), &created)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// outgoingToGraph maps an outgoing message onto the Graph message
// shape. Graph fills in the sender itself, so From is only set when
// the caller overrides it.
func outgoingToGraph(msg *provider.OutgoingMessage) *graphMessage {
	gm := &graphMessage{
		Subject:       msg.Subject,
		ToRecipients:  toRecipients(msg.To),
		CcRecipients:  toRecipients(msg.Cc),
		BccRecipients: toRecipients(msg.Bcc),
	}

	if msg.From != "" {
		from := parseRecipient(msg.From)
		gm.From = &from
	}

	body := &graphItemBody{ContentType: "text", Content: msg.BodyText}
	if msg.BodyHTML != "" {
		body = &graphItemBody{ContentType: "html", Content: msg.BodyHTML}
	}
	gm.Body = body

	for _, att := range msg.Attachments {
		gm.Attachments = append(gm.Attachments, graphAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         att.Filename,
			ContentType:  att.MimeType,
			ContentBytes: base64.StdEncoding.EncodeToString(att.Content),
		})
	}
	return gm
}

// parseRecipient splits `Name <user@host>` (or a bare address) into a
// Graph recipient.
func parseRecipient(s string) graphRecipient {
	if addr, err := mail.ParseAddress(s); err == nil {
		return graphRecipient{EmailAddress: graphEmailAddress{Name: addr.Name, Address: addr.Address}}
	}
	return graphRecipient{EmailAddress: graphEmailAddress{Address: strings.TrimSpace(s)}}
}

func toRecipients(addrs []string) []graphRecipient {
	recipients := make([]graphRecipient, 0, len(addrs))
	for _, addr := range addrs {
		if strings.TrimSpace(addr) == "" {
			continue
		}
		recipients = append(recipients, parseRecipient(addr))
	}
	return recipients
}
