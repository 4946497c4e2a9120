package outlook

import (
	"testing"
	"time"

	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestParseMessage(t *testing.T) {
	t.Run("maps recipients, flags and dates", func(t *testing.T) {
		sent := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
		received := sent.Add(5 * time.Second)
		unread := false

		msg := &graphMessage{
			ID:                "AAMk-1",
			Subject:           "Q3 report",
			BodyPreview:       "Numbers inside.",
			InternetMessageID: "<q3@example.com>",
			InternetMessageHeaders: []graphHeader{
				{Name: "In-Reply-To", Value: "<q2@example.com>"},
				{Name: "References", Value: "<q1@example.com> <q2@example.com>"},
			},
			From: &graphRecipient{EmailAddress: graphEmailAddress{Name: "Alice", Address: "alice@example.com"}},
			ToRecipients: []graphRecipient{
				{EmailAddress: graphEmailAddress{Address: "user@example.com"}},
				{EmailAddress: graphEmailAddress{Name: "Bob", Address: "bob@example.com"}},
			},
			CcRecipients:     []graphRecipient{{EmailAddress: graphEmailAddress{Address: "carol@example.com"}}},
			ReplyTo:          []graphRecipient{{EmailAddress: graphEmailAddress{Address: "replies@example.com"}}},
			SentDateTime:     &sent,
			ReceivedDateTime: &received,
			Body:             &graphItemBody{ContentType: "html", Content: "<p>Numbers inside.</p>"},
			Flag:             &graphFlag{FlagStatus: "flagged"},
			IsRead:           &unread,
			HasAttachments:   true,
			Categories:       []string{"Finance"},
			Attachments: []graphAttachment{
				{ID: "att-1", Name: "q3.pdf", ContentType: "application/pdf", Size: 8},
			},
		}

		m := parseMessage(msg)

		assert.Equal(t, "AAMk-1", m.ProviderMessageID)
		assert.Equal(t, "Q3 report", m.Subject)
		assert.Equal(t, "Numbers inside.", m.Snippet)
		assert.Equal(t, "<q3@example.com>", m.MessageIDHeader)
		assert.Equal(t, "<q2@example.com>", m.InReplyTo)
		assert.Equal(t, "<q1@example.com> <q2@example.com>", m.ReferenceIDs)
		assert.Equal(t, "Alice <alice@example.com>", m.FromAddress)
		assert.Equal(t, []string{"user@example.com", "Bob <bob@example.com>"}, m.ToAddresses)
		assert.Equal(t, []string{"carol@example.com"}, m.CcAddresses)
		assert.Equal(t, "replies@example.com", m.ReplyTo)
		assert.False(t, m.IsRead)
		assert.True(t, m.IsStarred)
		assert.False(t, m.IsDraft)
		assert.Equal(t, "<p>Numbers inside.</p>", m.UnsafeBodyHTML)
		assert.Empty(t, m.BodyText)
		assert.Equal(t, []string{"Finance"}, m.ProviderLabels)
		if assert.NotNil(t, m.SentAt) {
			assert.True(t, m.SentAt.Equal(sent))
		}
		if assert.NotNil(t, m.ReceivedAt) {
			assert.True(t, m.ReceivedAt.Equal(received))
		}
		assert.True(t, m.HasAttachments)
		if assert.Len(t, m.Attachments, 1) {
			assert.Equal(t, "att-1", m.Attachments[0].ProviderAttachmentID)
			assert.Equal(t, "q3.pdf", m.Attachments[0].Filename)
		}
	})

	t.Run("text body fills the html fallback", func(t *testing.T) {
		m := parseMessage(&graphMessage{
			ID:   "AAMk-2",
			Body: &graphItemBody{ContentType: "text", Content: "line one\nline two"},
		})

		assert.Equal(t, "line one\nline two", m.BodyText)
		assert.Equal(t, "line one<br>line two", m.UnsafeBodyHTML)
	})

	t.Run("absent state defaults to read and unflagged", func(t *testing.T) {
		m := parseMessage(&graphMessage{ID: "AAMk-3", Flag: &graphFlag{FlagStatus: "notFlagged"}})

		assert.True(t, m.IsRead)
		assert.False(t, m.IsStarred)
	})
}

func TestFormatRecipient(t *testing.T) {
	tests := []struct {
		name      string
		recipient graphRecipient
		want      string
	}{
		{
			name:      "empty address",
			recipient: graphRecipient{EmailAddress: graphEmailAddress{Name: "Ghost"}},
			want:      "",
		},
		{
			name:      "bare address",
			recipient: graphRecipient{EmailAddress: graphEmailAddress{Address: "a@example.com"}},
			want:      "a@example.com",
		},
		{
			name:      "display name equal to address collapses",
			recipient: graphRecipient{EmailAddress: graphEmailAddress{Name: "a@example.com", Address: "a@example.com"}},
			want:      "a@example.com",
		},
		{
			name:      "display name",
			recipient: graphRecipient{EmailAddress: graphEmailAddress{Name: "Alice", Address: "a@example.com"}},
			want:      "Alice <a@example.com>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatRecipient(tt.recipient))
		})
	}
}

func TestClassifyFolder(t *testing.T) {
	tests := []struct {
		displayName string
		want        models.FolderType
	}{
		{"Inbox", models.FolderInbox},
		{"Sent Items", models.FolderSent},
		{"Drafts", models.FolderDrafts},
		{"Deleted Items", models.FolderTrash},
		{"Junk Email", models.FolderSpam},
		{"Archive", models.FolderArchive},
		{"Projects", models.FolderCustom},
	}

	for _, tt := range tests {
		t.Run(tt.displayName, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyFolder(tt.displayName))
		})
	}
}
