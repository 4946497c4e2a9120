package models

import "time"

// FolderType is the closed classification of a mailbox folder.
type FolderType string

const (
	FolderInbox   FolderType = "inbox"
	FolderSent    FolderType = "sent"
	FolderDrafts  FolderType = "drafts"
	FolderTrash   FolderType = "trash"
	FolderSpam    FolderType = "spam"
	FolderArchive FolderType = "archive"
	FolderCustom  FolderType = "custom"
)

// Folder is a provider folder (or label) mirrored locally.
// Unique per (account_id, provider_folder_id); upserted on every sync.
type Folder struct {
	ID               string     `json:"id"`
	AccountID        string     `json:"account_id"`
	ProviderFolderID string     `json:"provider_folder_id"`
	Name             string     `json:"name"`
	Type             FolderType `json:"folder_type"`
	IsSystem         bool       `json:"is_system"`
	MessageCount     int        `json:"message_count"`
	UnreadCount      int        `json:"unread_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Message is one mail message normalized across providers.
// Unique per (account_id, provider_message_id) — the sole de-duplication
// key; re-observing a known id updates drift fields, never duplicates.
// Messages are never physically deleted; IsHidden models deletion.
type Message struct {
	ID                string       `json:"id"`
	AccountID         string       `json:"account_id"`
	UserID            string       `json:"user_id"`
	FolderID          string       `json:"folder_id,omitempty"`
	ThreadID          string       `json:"thread_id,omitempty"`
	ProviderMessageID string       `json:"provider_message_id"`
	MessageIDHeader   string       `json:"message_id_header"`
	InReplyTo         string       `json:"in_reply_to,omitempty"`
	ReferenceIDs      string       `json:"reference_ids,omitempty"`
	Subject           string       `json:"subject"`
	FromAddress       string       `json:"from_address"`
	ToAddresses       []string     `json:"to_addresses"`
	CcAddresses       []string     `json:"cc_addresses"`
	BccAddresses      []string     `json:"bcc_addresses"`
	ReplyTo           string       `json:"reply_to,omitempty"`
	SentAt            *time.Time   `json:"sent_at"`
	ReceivedAt        *time.Time   `json:"received_at"`
	BodyText          string       `json:"body_text"`
	UnsafeBodyHTML    string       `json:"unsafe_body_html"`
	Snippet           string       `json:"snippet"`
	SizeBytes         int64        `json:"size_bytes"`
	ProviderLabels    []string     `json:"provider_labels"`
	HasAttachments    bool         `json:"has_attachments"`
	IsRead            bool         `json:"is_read"`
	IsStarred         bool         `json:"is_starred"`
	IsDraft           bool         `json:"is_draft"`
	IsHidden          bool         `json:"is_hidden"`
	NeverShow         bool         `json:"never_show"`
	AICategory        *string      `json:"ai_category,omitempty"`
	AIConfidence      *float64     `json:"ai_confidence,omitempty"`
	IsQuarantined     bool         `json:"is_quarantined"`
	Attachments       []Attachment `json:"attachments,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// SenderEmail returns the bare lower-cased address from FromAddress,
// which may be formatted as `Name <user@host>` or a bare address.
func (m *Message) SenderEmail() string {
	return ExtractEmailAddress(m.FromAddress)
}

// Attachment is attachment metadata for a message. Content is fetched
// on demand from the provider via its provider_attachment_id.
type Attachment struct {
	ID                   string `json:"id"`
	MessageID            string `json:"message_id"`
	ProviderAttachmentID string `json:"provider_attachment_id,omitempty"`
	Filename             string `json:"filename"`
	MimeType             string `json:"mime_type"`
	SizeBytes            int64  `json:"size_bytes"`
	IsInline             bool   `json:"is_inline"`
	ContentID            string `json:"content_id,omitempty"`
}

// Thread is a conversation bucket per (user, normalized subject,
// participating accounts). Counts, participants, dates and the account
// set are derived from the current non-hidden message set and must be
// recomputable from scratch at any time.
type Thread struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	NormalizedSubject string     `json:"normalized_subject"`
	ParticipantEmails []string   `json:"participant_emails"`
	AccountIDs        []string   `json:"account_ids"`
	FirstMessageAt    *time.Time `json:"first_message_at"`
	LastMessageAt     *time.Time `json:"last_message_at"`
	MessageCount      int        `json:"message_count"`
	UnreadCount       int        `json:"unread_count"`
	HasAttachments    bool       `json:"has_attachments"`
	Messages          []Message  `json:"messages,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
