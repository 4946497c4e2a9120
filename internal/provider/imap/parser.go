package imap

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
)

// parseMessage converts a fetched IMAP message into a normalized row.
// Ownership fields (account, user, folder) are left for the caller.
func parseMessage(msg *imap.Message, uidValidity uint32, section *imap.BodySectionName) *models.Message {
	m := &models.Message{
		ProviderMessageID: formatMessageID(uidValidity, msg.Uid),
		SizeBytes:         int64(msg.Size),
	}

	for _, flag := range msg.Flags {
		switch flag {
		case imap.SeenFlag:
			m.IsRead = true
		case imap.FlaggedFlag:
			m.IsStarred = true
		case imap.DraftFlag:
			m.IsDraft = true
		}
	}

	if !msg.InternalDate.IsZero() {
		received := msg.InternalDate
		m.ReceivedAt = &received
	}

	if env := msg.Envelope; env != nil {
		m.Subject = env.Subject
		m.MessageIDHeader = env.MessageId
		m.InReplyTo = env.InReplyTo
		if len(env.From) > 0 {
			m.FromAddress = formatAddress(env.From[0])
		}
		m.ToAddresses = formatAddressList(env.To)
		m.CcAddresses = formatAddressList(env.Cc)
		m.BccAddresses = formatAddressList(env.Bcc)
		if len(env.ReplyTo) > 0 {
			m.ReplyTo = formatAddress(env.ReplyTo[0])
		}
		if !env.Date.IsZero() {
			sent := env.Date
			m.SentAt = &sent
		}
	}

	if section != nil {
		if body := msg.GetBody(section); body != nil {
			parseBody(m, body)
		}
	}

	m.HasAttachments = len(m.Attachments) > 0
	return m
}

// parseBody extracts text/HTML bodies, threading headers and attachment
// metadata from the raw RFC 822 content.
func parseBody(m *models.Message, body io.Reader) {
	envelope, err := enmime.ReadEnvelope(body)
	if err != nil {
		log.Printf("Warning: failed to parse body of message %s: %v", m.ProviderMessageID, err)
		return
	}

	m.BodyText = envelope.Text
	m.UnsafeBodyHTML = envelope.HTML
	if m.UnsafeBodyHTML == "" && m.BodyText != "" {
		m.UnsafeBodyHTML = strings.ReplaceAll(m.BodyText, "\n", "<br>")
	}
	m.Snippet = provider.MakeSnippet(envelope.Text)

	if refs := envelope.GetHeader("References"); refs != "" {
		m.ReferenceIDs = refs
	}

	for _, part := range append(envelope.Attachments, envelope.Inlines...) {
		if part.FileName == "" && part.ContentID == "" {
			continue
		}
		m.Attachments = append(m.Attachments, models.Attachment{
			ProviderAttachmentID: part.FileName,
			Filename:             part.FileName,
			MimeType:             part.ContentType,
			SizeBytes:            int64(len(part.Content)),
			ContentID:            part.ContentID,
			IsInline:             part.ContentID != "",
		})
	}
}

// formatAddress renders an IMAP address as `Name <user@host>`, or the
// bare address when no display name is set.
func formatAddress(addr *imap.Address) string {
	if addr == nil || addr.MailboxName == "" || addr.HostName == "" {
		return ""
	}
	email := fmt.Sprintf("%s@%s", addr.MailboxName, addr.HostName)
	if addr.PersonalName != "" {
		return fmt.Sprintf("%s <%s>", addr.PersonalName, email)
	}
	return email
}

// formatAddressList renders an address list, skipping entries with no
// usable address.
func formatAddressList(addrs []*imap.Address) []string {
	formatted := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if s := formatAddress(addr); s != "" {
			formatted = append(formatted, s)
		}
	}
	return formatted
}
