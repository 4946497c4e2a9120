package provider

import (
	"bytes"
	"time"

	"github.com/jhillyerd/enmime"
)

// BuildMIME renders an outgoing message as RFC 822 bytes. Address
// fields are expected to be bare addresses. Every adapter sends (or
// drafts) the same bytes; only the delivery channel differs.
func BuildMIME(msg *OutgoingMessage) ([]byte, error) {
	subject := msg.Subject
	if subject == "" {
		// The builder refuses subjectless messages; half-written drafts
		// get the usual client placeholder.
		subject = "(no subject)"
	}

	b := enmime.Builder().
		From("", msg.From).
		Subject(subject).
		Date(time.Now())

	for _, to := range msg.To {
		b = b.To("", to)
	}
	for _, cc := range msg.Cc {
		b = b.CC("", cc)
	}
	for _, bcc := range msg.Bcc {
		b = b.BCC("", bcc)
	}

	if msg.BodyText != "" {
		b = b.Text([]byte(msg.BodyText))
	}
	if msg.BodyHTML != "" {
		b = b.HTML([]byte(msg.BodyHTML))
	}
	if msg.InReplyTo != "" {
		b = b.Header("In-Reply-To", msg.InReplyTo)
	}
	if msg.References != "" {
		b = b.Header("References", msg.References)
	}

	for _, att := range msg.Attachments {
		b = b.AddAttachment(att.Content, att.MimeType, att.Filename)
	}

	root, err := b.Build()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := root.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
