package outlook

import (
	"fmt"
	"strings"

	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
)

// parseMessage converts a Graph message into a normalized row.
// Ownership fields (account, user, folder) are left for the caller.
func parseMessage(msg *graphMessage) *models.Message {
	m := &models.Message{
		ProviderMessageID: msg.ID,
		Subject:           msg.Subject,
		MessageIDHeader:   msg.InternetMessageID,
		Snippet:           provider.MakeSnippet(msg.BodyPreview),
		IsDraft:           msg.IsDraft,
		IsRead:            true,
		ProviderLabels:    msg.Categories,
	}

	if msg.IsRead != nil {
		m.IsRead = *msg.IsRead
	}
	if msg.Flag != nil && msg.Flag.FlagStatus == "flagged" {
		m.IsStarred = true
	}

	if msg.From != nil {
		m.FromAddress = formatRecipient(*msg.From)
	}
	m.ToAddresses = formatRecipients(msg.ToRecipients)
	m.CcAddresses = formatRecipients(msg.CcRecipients)
	m.BccAddresses = formatRecipients(msg.BccRecipients)
	if len(msg.ReplyTo) > 0 {
		m.ReplyTo = formatRecipient(msg.ReplyTo[0])
	}

	m.SentAt = msg.SentDateTime
	m.ReceivedAt = msg.ReceivedDateTime

	if msg.Body != nil {
		// Graph renders the body in one format; bodyPreview stands in
		// for plain text when only HTML comes back.
		if strings.EqualFold(msg.Body.ContentType, "html") {
			m.UnsafeBodyHTML = msg.Body.Content
		} else {
			m.BodyText = msg.Body.Content
			if m.BodyText != "" {
				m.UnsafeBodyHTML = strings.ReplaceAll(m.BodyText, "\n", "<br>")
			}
		}
	}

	for _, h := range msg.InternetMessageHeaders {
		switch strings.ToLower(h.Name) {
		case "in-reply-to":
			m.InReplyTo = h.Value
		case "references":
			m.ReferenceIDs = h.Value
		}
	}

	for _, att := range msg.Attachments {
		m.Attachments = append(m.Attachments, models.Attachment{
			ProviderAttachmentID: att.ID,
			Filename:             att.Name,
			MimeType:             att.ContentType,
			SizeBytes:            att.Size,
			IsInline:             att.IsInline,
			ContentID:            strings.Trim(att.ContentID, "<>"),
		})
	}
	m.HasAttachments = msg.HasAttachments || len(m.Attachments) > 0

	return m
}

// formatRecipient renders a Graph recipient as `Name <user@host>`, or
// the bare address when no display name is set.
func formatRecipient(r graphRecipient) string {
	addr := r.EmailAddress
	if addr.Address == "" {
		return ""
	}
	if addr.Name != "" && addr.Name != addr.Address {
		return fmt.Sprintf("%s <%s>", addr.Name, addr.Address)
	}
	return addr.Address
}

// formatRecipients renders a recipient list, skipping entries with no
// usable address.
func formatRecipients(recipients []graphRecipient) []string {
	formatted := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if s := formatRecipient(r); s != "" {
			formatted = append(formatted, s)
		}
	}
	return formatted
}
