package imap

import (
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestParseMessage(t *testing.T) {
	t.Run("maps flags, envelope and dates", func(t *testing.T) {
		sent := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		received := sent.Add(2 * time.Second)

		imapMsg := &imap.Message{
			Uid:          100,
			Size:         2048,
			Flags:        []string{imap.SeenFlag, imap.FlaggedFlag},
			InternalDate: received,
			Envelope: &imap.Envelope{
				MessageId: "<msg-123@example.com>",
				InReplyTo: "<parent@example.com>",
				Subject:   "Test Subject",
				Date:      sent,
				From: []*imap.Address{
					{PersonalName: "Sender", MailboxName: "sender", HostName: "example.com"},
				},
				To: []*imap.Address{
					{MailboxName: "recipient", HostName: "example.com"},
				},
				Cc: []*imap.Address{
					{MailboxName: "watcher", HostName: "example.com"},
				},
				ReplyTo: []*imap.Address{
					{MailboxName: "replies", HostName: "example.com"},
				},
			},
		}

		msg := parseMessage(imapMsg, 1, nil)

		assert.Equal(t, "1:100", msg.ProviderMessageID)
		assert.Equal(t, int64(2048), msg.SizeBytes)
		assert.True(t, msg.IsRead)
		assert.True(t, msg.IsStarred)
		assert.False(t, msg.IsDraft)
		assert.Equal(t, "Test Subject", msg.Subject)
		assert.Equal(t, "<msg-123@example.com>", msg.MessageIDHeader)
		assert.Equal(t, "<parent@example.com>", msg.InReplyTo)
		assert.Equal(t, "Sender <sender@example.com>", msg.FromAddress)
		assert.Equal(t, []string{"recipient@example.com"}, msg.ToAddresses)
		assert.Equal(t, []string{"watcher@example.com"}, msg.CcAddresses)
		assert.Equal(t, "replies@example.com", msg.ReplyTo)
		if assert.NotNil(t, msg.SentAt) {
			assert.True(t, msg.SentAt.Equal(sent))
		}
		if assert.NotNil(t, msg.ReceivedAt) {
			assert.True(t, msg.ReceivedAt.Equal(received))
		}
	})

	t.Run("draft flag marks the message a draft", func(t *testing.T) {
		imapMsg := &imap.Message{
			Uid:   7,
			Flags: []string{imap.DraftFlag},
		}

		msg := parseMessage(imapMsg, 1, nil)

		assert.Equal(t, "1:7", msg.ProviderMessageID)
		assert.True(t, msg.IsDraft)
		assert.False(t, msg.IsRead)
	})

	t.Run("message without envelope still carries id and flags", func(t *testing.T) {
		imapMsg := &imap.Message{
			Uid:   200,
			Flags: []string{},
		}

		msg := parseMessage(imapMsg, 42, nil)

		assert.Equal(t, "42:200", msg.ProviderMessageID)
		assert.False(t, msg.IsRead)
		assert.Empty(t, msg.Subject)
		assert.Nil(t, msg.SentAt)
	})
}

func TestParseBody(t *testing.T) {
	t.Run("extracts text and html alternatives", func(t *testing.T) {
		raw := `From: a@example.com
To: b@example.com
Subject: Hello
References: <one@example.com> <two@example.com>
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="alt"

--alt
Content-Type: text/plain; charset=utf-8

Hello world
--alt
Content-Type: text/html; charset=utf-8

<p>Hello world</p>
--alt--
`

		m := &models.Message{ProviderMessageID: "1:7"}
		parseBody(m, strings.NewReader(raw))

		assert.Contains(t, m.BodyText, "Hello world")
		assert.Contains(t, m.UnsafeBodyHTML, "<p>Hello world</p>")
		assert.Equal(t, "Hello world", m.Snippet)
		assert.Equal(t, "<one@example.com> <two@example.com>", m.ReferenceIDs)
		assert.Empty(t, m.Attachments)
	})

	t.Run("falls back to text converted to html", func(t *testing.T) {
		raw := `From: a@example.com
To: b@example.com
Subject: Plain
Content-Type: text/plain; charset=utf-8

line one
line two`

		m := &models.Message{ProviderMessageID: "1:8"}
		parseBody(m, strings.NewReader(raw))

		assert.Equal(t, "line one\nline two", m.BodyText)
		assert.Equal(t, "line one<br>line two", m.UnsafeBodyHTML)
		assert.Equal(t, "line one line two", m.Snippet)
	})

	t.Run("collects attachment metadata", func(t *testing.T) {
		raw := `From: a@example.com
To: b@example.com
Subject: Report
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="mix"

--mix
Content-Type: text/plain; charset=utf-8

See attached.
--mix
Content-Type: application/pdf
Content-Disposition: attachment; filename="report.pdf"
Content-Transfer-Encoding: base64

JVBERi0xLjQ=
--mix--
`

		m := &models.Message{ProviderMessageID: "1:9"}
		parseBody(m, strings.NewReader(raw))

		assert.Contains(t, m.BodyText, "See attached.")
		if assert.Len(t, m.Attachments, 1) {
			att := m.Attachments[0]
			assert.Equal(t, "report.pdf", att.Filename)
			assert.Equal(t, "report.pdf", att.ProviderAttachmentID)
			assert.Equal(t, "application/pdf", att.MimeType)
			assert.Equal(t, int64(len("%PDF-1.4")), att.SizeBytes)
			assert.False(t, att.IsInline)
		}
	})

	t.Run("unparseable body leaves the message untouched", func(t *testing.T) {
		m := &models.Message{ProviderMessageID: "1:10"}
		parseBody(m, strings.NewReader(""))

		assert.Empty(t, m.BodyText)
		assert.Empty(t, m.Snippet)
	})
}

func TestFormatAddress(t *testing.T) {
	tests := []struct {
		name string
		addr *imap.Address
		want string
	}{
		{
			name: "nil address",
			addr: nil,
			want: "",
		},
		{
			name: "missing mailbox name",
			addr: &imap.Address{HostName: "example.com"},
			want: "",
		},
		{
			name: "missing host name",
			addr: &imap.Address{MailboxName: "user"},
			want: "",
		},
		{
			name: "bare address",
			addr: &imap.Address{MailboxName: "user", HostName: "example.com"},
			want: "user@example.com",
		},
		{
			name: "display name",
			addr: &imap.Address{PersonalName: "User Name", MailboxName: "user", HostName: "example.com"},
			want: "User Name <user@example.com>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatAddress(tt.addr))
		})
	}
}

func TestFormatAddressList(t *testing.T) {
	addrs := []*imap.Address{
		{MailboxName: "a", HostName: "example.com"},
		nil,
		{HostName: "example.com"},
		{PersonalName: "B", MailboxName: "b", HostName: "example.com"},
	}

	assert.Equal(t, []string{"a@example.com", "B <b@example.com>"}, formatAddressList(addrs))
}
