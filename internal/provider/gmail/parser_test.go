package gmail

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gmailapi "google.golang.org/api/gmail/v1"
)

func webSafe(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestParseMessage(t *testing.T) {
	t.Run("maps labels, headers and parts", func(t *testing.T) {
		sent := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
		received := sent.Add(3 * time.Second)

		full := &gmailapi.Message{
			Id:           "m1",
			LabelIds:     []string{"UNREAD", "STARRED", "INBOX"},
			Snippet:      "Numbers inside.",
			InternalDate: received.UnixMilli(),
			SizeEstimate: 4096,
			Payload: &gmailapi.MessagePart{
				MimeType: "multipart/mixed",
				Headers: []*gmailapi.MessagePartHeader{
					{Name: "Subject", Value: "Q3 report"},
					{Name: "From", Value: "Alice <alice@example.com>"},
					{Name: "To", Value: "user@example.com, Bob <bob@example.com>"},
					{Name: "Cc", Value: "carol@example.com"},
					{Name: "Reply-To", Value: "replies@example.com"},
					{Name: "Message-Id", Value: "<q3@example.com>"},
					{Name: "In-Reply-To", Value: "<q2@example.com>"},
					{Name: "References", Value: "<q1@example.com> <q2@example.com>"},
					{Name: "Date", Value: "Mon, 24 Aug 2026 10:00:00 +0000"},
				},
				Parts: []*gmailapi.MessagePart{
					{
						MimeType: "multipart/alternative",
						Parts: []*gmailapi.MessagePart{
							{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: webSafe("Numbers inside.")}},
							{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: webSafe("<p>Numbers inside.</p>")}},
						},
					},
					{
						MimeType: "application/pdf",
						Filename: "q3.pdf",
						Body:     &gmailapi.MessagePartBody{AttachmentId: "att-1", Size: 8},
					},
				},
			},
		}

		m := parseMessage(full)

		assert.Equal(t, "m1", m.ProviderMessageID)
		assert.False(t, m.IsRead)
		assert.True(t, m.IsStarred)
		assert.False(t, m.IsDraft)
		assert.Equal(t, []string{"UNREAD", "STARRED", "INBOX"}, m.ProviderLabels)
		assert.Equal(t, "Q3 report", m.Subject)
		assert.Equal(t, "Alice <alice@example.com>", m.FromAddress)
		assert.Equal(t, []string{"user@example.com", "Bob <bob@example.com>"}, m.ToAddresses)
		assert.Equal(t, []string{"carol@example.com"}, m.CcAddresses)
		assert.Equal(t, "replies@example.com", m.ReplyTo)
		assert.Equal(t, "<q3@example.com>", m.MessageIDHeader)
		assert.Equal(t, "<q2@example.com>", m.InReplyTo)
		assert.Equal(t, "<q1@example.com> <q2@example.com>", m.ReferenceIDs)
		assert.Equal(t, "Numbers inside.", m.BodyText)
		assert.Equal(t, "<p>Numbers inside.</p>", m.UnsafeBodyHTML)
		assert.Equal(t, "Numbers inside.", m.Snippet)
		assert.Equal(t, int64(4096), m.SizeBytes)
		if assert.NotNil(t, m.SentAt) {
			assert.True(t, m.SentAt.Equal(sent))
		}
		if assert.NotNil(t, m.ReceivedAt) {
			assert.True(t, m.ReceivedAt.Equal(received))
		}
		assert.True(t, m.HasAttachments)
		if assert.Len(t, m.Attachments, 1) {
			att := m.Attachments[0]
			assert.Equal(t, "att-1", att.ProviderAttachmentID)
			assert.Equal(t, "q3.pdf", att.Filename)
			assert.Equal(t, "application/pdf", att.MimeType)
			assert.Equal(t, int64(8), att.SizeBytes)
			assert.False(t, att.IsInline)
		}
	})

	t.Run("message without UNREAD counts as read", func(t *testing.T) {
		m := parseMessage(&gmailapi.Message{Id: "m2", LabelIds: []string{"INBOX"}})
		assert.True(t, m.IsRead)
		assert.False(t, m.IsStarred)
	})

	t.Run("DRAFT label marks a draft", func(t *testing.T) {
		m := parseMessage(&gmailapi.Message{Id: "m3", LabelIds: []string{"DRAFT"}})
		assert.True(t, m.IsDraft)
	})

	t.Run("inline part with content id", func(t *testing.T) {
		full := &gmailapi.Message{
			Id: "m4",
			Payload: &gmailapi.MessagePart{
				MimeType: "multipart/related",
				Parts: []*gmailapi.MessagePart{
					{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: webSafe(`<img src="cid:logo@example.com">`)}},
					{
						MimeType: "image/png",
						Filename: "logo.png",
						Headers:  []*gmailapi.MessagePartHeader{{Name: "Content-ID", Value: "<logo@example.com>"}},
						Body:     &gmailapi.MessagePartBody{AttachmentId: "att-9", Size: 120},
					},
				},
			},
		}

		m := parseMessage(full)

		if assert.Len(t, m.Attachments, 1) {
			assert.True(t, m.Attachments[0].IsInline)
			assert.Equal(t, "logo@example.com", m.Attachments[0].ContentID)
		}
	})

	t.Run("text-only body fills html and snippet", func(t *testing.T) {
		full := &gmailapi.Message{
			Id: "m5",
			Payload: &gmailapi.MessagePart{
				MimeType: "text/plain",
				Body:     &gmailapi.MessagePartBody{Data: webSafe("line one\nline two")},
			},
		}

		m := parseMessage(full)

		assert.Equal(t, "line one\nline two", m.BodyText)
		assert.Equal(t, "line one<br>line two", m.UnsafeBodyHTML)
		assert.Equal(t, "line one line two", m.Snippet)
	})
}

func TestSplitAddressList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "empty",
			raw:  "  ",
			want: nil,
		},
		{
			name: "bare address",
			raw:  "a@example.com",
			want: []string{"a@example.com"},
		},
		{
			name: "display names",
			raw:  `"Alice A" <a@example.com>, Bob <b@example.com>`,
			want: []string{"Alice A <a@example.com>", "Bob <b@example.com>"},
		},
		{
			name: "unparseable header kept verbatim",
			raw:  "not an address",
			want: []string{"not an address"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitAddressList(tt.raw))
		})
	}
}

func TestDecodeWebSafe(t *testing.T) {
	t.Run("padded", func(t *testing.T) {
		got, err := decodeWebSafe(base64.URLEncoding.EncodeToString([]byte("hello")))
		assert.NoError(t, err)
		assert.Equal(t, []byte("hello"), got)
	})

	t.Run("unpadded", func(t *testing.T) {
		got, err := decodeWebSafe(base64.RawURLEncoding.EncodeToString([]byte("hello")))
		assert.NoError(t, err)
		assert.Equal(t, []byte("hello"), got)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := decodeWebSafe(strings.Repeat("!", 5))
		assert.Error(t, err)
	})
}
