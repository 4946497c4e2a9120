package gmail

import (
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
	gmailapi "google.golang.org/api/gmail/v1"
)

// parseMessage converts a full-format Gmail message into a normalized
// row. Ownership fields (account, user, folder) are left for the
// caller.
func parseMessage(msg *gmailapi.Message) *models.Message {
	m := &models.Message{
		ProviderMessageID: msg.Id,
		Snippet:           msg.Snippet,
		SizeBytes:         msg.SizeEstimate,
		ProviderLabels:    msg.LabelIds,
		// Gmail models unread as a label; no label means read.
		IsRead: true,
	}

	for _, label := range msg.LabelIds {
		switch label {
		case labelUnread:
			m.IsRead = false
		case labelStarred:
			m.IsStarred = true
		case labelDrafts:
			m.IsDraft = true
		}
	}

	if msg.InternalDate > 0 {
		received := time.UnixMilli(msg.InternalDate).UTC()
		m.ReceivedAt = &received
	}

	if msg.Payload != nil {
		applyHeaders(m, msg.Payload.Headers)
		walkParts(m, msg.Payload)
	}

	if m.UnsafeBodyHTML == "" && m.BodyText != "" {
		m.UnsafeBodyHTML = strings.ReplaceAll(m.BodyText, "\n", "<br>")
	}
	if m.Snippet == "" {
		m.Snippet = provider.MakeSnippet(m.BodyText)
	}
	m.HasAttachments = len(m.Attachments) > 0
	return m
}

// applyHeaders copies the RFC 822 headers Gmail surfaces on the
// payload into the normalized row.
func applyHeaders(m *models.Message, headers []*gmailapi.MessagePartHeader) {
	for _, h := range headers {
		switch strings.ToLower(h.Name) {
		case "subject":
			m.Subject = h.Value
		case "message-id":
			m.MessageIDHeader = h.Value
		case "in-reply-to":
			m.InReplyTo = h.Value
		case "references":
			m.ReferenceIDs = h.Value
		case "from":
			if addrs := splitAddressList(h.Value); len(addrs) > 0 {
				m.FromAddress = addrs[0]
			}
		case "to":
			m.ToAddresses = splitAddressList(h.Value)
		case "cc":
			m.CcAddresses = splitAddressList(h.Value)
		case "bcc":
			m.BccAddresses = splitAddressList(h.Value)
		case "reply-to":
			if addrs := splitAddressList(h.Value); len(addrs) > 0 {
				m.ReplyTo = addrs[0]
			}
		case "date":
			if sent, err := mail.ParseDate(h.Value); err == nil {
				m.SentAt = &sent
			}
		}
	}
}

// walkParts descends the MIME tree collecting bodies and attachment
// metadata. The first text/plain and text/html parts win; nested
// multiparts (alternative inside mixed, say) are handled by recursion.
func walkParts(m *models.Message, part *gmailapi.MessagePart) {
	if part == nil {
		return
	}

	if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
		contentID := strings.Trim(partHeader(part, "Content-Id"), "<>")
		m.Attachments = append(m.Attachments, models.Attachment{
			ProviderAttachmentID: part.Body.AttachmentId,
			Filename:             part.Filename,
			MimeType:             part.MimeType,
			SizeBytes:            part.Body.Size,
			ContentID:            contentID,
			IsInline:             contentID != "",
		})
	} else if part.Body != nil && part.Body.Data != "" {
		switch part.MimeType {
		case "text/plain":
			if m.BodyText == "" {
				if text, err := decodeWebSafe(part.Body.Data); err == nil {
					m.BodyText = string(text)
				}
			}
		case "text/html":
			if m.UnsafeBodyHTML == "" {
				if html, err := decodeWebSafe(part.Body.Data); err == nil {
					m.UnsafeBodyHTML = string(html)
				}
			}
		}
	}

	for _, child := range part.Parts {
		walkParts(m, child)
	}
}

func partHeader(part *gmailapi.MessagePart, name string) string {
	for _, h := range part.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// splitAddressList parses an address header into `Name <user@host>`
// strings. Unparseable headers are kept verbatim rather than dropped.
func splitAddressList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	addrs, err := mail.ParseAddressList(raw)
	if err != nil {
		return []string{raw}
	}

	formatted := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if addr.Name != "" {
			formatted = append(formatted, fmt.Sprintf("%s <%s>", addr.Name, addr.Address))
		} else {
			formatted = append(formatted, addr.Address)
		}
	}
	return formatted
}

// decodeWebSafe decodes Gmail's web-safe base64, which arrives both
// padded and unpadded.
func decodeWebSafe(data string) ([]byte, error) {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return decoded, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}
