// Package provider defines the capability contract every mail provider
// adapter implements, plus the shared connection manager and error
// taxonomy. Adapters return normalized models; callers own persistence.
package provider

import (
	"context"
	"time"

	"github.com/paul2999Git/mailapp-sub000/internal/models"
)

// Kind identifies an adapter variant. Values mirror models.ProviderKind
// so an account row selects its adapter directly.
type Kind string

const (
	KindGmail   Kind = "gmail"
	KindOutlook Kind = "outlook"
	KindIMAP    Kind = "imap"
)

// AllowsBodyExcerpt reports whether body content from accounts of this
// kind may be sent to an external scorer. Outlook tenant policy forbids
// exporting bodies, so those accounts are scored on headers alone.
func (k Kind) AllowsBodyExcerpt() bool {
	return k != KindOutlook
}

// Credentials is the decrypted credential bundle for one account. OAuth
// providers use the token fields; IMAP accounts use the host/port,
// username and password fields.
type Credentials struct {
	EmailAddress string

	AccessToken    string
	RefreshToken   string
	TokenExpiresAt *time.Time

	IMAPHost string
	IMAPPort int
	SMTPHost string
	SMTPPort int
	Username string
	Password string
}

// ConnectionTest reports the outcome of TestConnection. A rejected
// login is Success=false with a human-readable Message, not an error;
// errors are reserved for transport-level failures.
type ConnectionTest struct {
	Success bool
	Message string
}

// SyncOptions bounds a single SyncMessages call.
type SyncOptions struct {
	// Cursor is the resume position returned by the previous batch;
	// empty starts from the beginning of the folder.
	Cursor string
	// FolderID is the provider-native id of the folder to sync.
	FolderID string
	// Since restricts the fetch to messages received after it, when set.
	Since *time.Time
}

// SyncResult is one bounded batch of messages plus the position to
// resume from.
type SyncResult struct {
	// Messages are normalized skeletons; the caller fills in local
	// ownership (account, user, folder) before persisting.
	Messages []*models.Message
	// Cursor is safe to persist once every message in the batch has
	// been absorbed.
	Cursor string
	// HasMore is true only when the batch was cut short by the
	// adapter's cap and another call with Cursor would return more.
	HasMore bool
	// Fetched is the number of messages in this batch.
	Fetched int
}

// TokenBundle is a refreshed OAuth token pair.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// OutgoingAttachment is one attachment on an outgoing message.
type OutgoingAttachment struct {
	Filename string
	MimeType string
	Content  []byte
}

// OutgoingMessage is a message to send or to store as a draft.
type OutgoingMessage struct {
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	BodyText    string
	BodyHTML    string
	InReplyTo   string
	References  string
	Attachments []OutgoingAttachment
}

// Adapter is the capability contract implemented by every provider
// variant. Every network call takes a context; implementations map
// each operation onto the provider's native primitive.
type Adapter interface {
	// Kind reports which provider variant this adapter talks to.
	Kind() Kind

	// TestConnection verifies connectivity and credentials. A rejected
	// login is a Success=false result, not an error.
	TestConnection(ctx context.Context) (*ConnectionTest, error)

	// FetchFolders lists the account's folders.
	FetchFolders(ctx context.Context) ([]*models.Folder, error)

	// SyncMessages fetches one bounded batch of messages from a folder.
	SyncMessages(ctx context.Context, opts SyncOptions) (*SyncResult, error)

	// FetchMessage fetches one full message, body and attachment
	// metadata included.
	FetchMessage(ctx context.Context, providerMessageID string) (*models.Message, error)

	MarkRead(ctx context.Context, providerMessageID string, read bool) error
	MarkStarred(ctx context.Context, providerMessageID string, starred bool) error
	MoveToFolder(ctx context.Context, providerMessageID, providerFolderID string) error
	MoveToTrash(ctx context.Context, providerMessageID string) error
	Archive(ctx context.Context, providerMessageID string) error
	CreateFolder(ctx context.Context, name string) (*models.Folder, error)

	// SaveDraft stores a draft and returns its provider message id when
	// the provider reports one.
	SaveDraft(ctx context.Context, msg *OutgoingMessage) (string, error)

	// SendMail sends a message through the provider's outbound channel.
	SendMail(ctx context.Context, msg *OutgoingMessage) error

	// FetchAttachment downloads one attachment's content.
	FetchAttachment(ctx context.Context, providerMessageID, providerAttachmentID string) ([]byte, error)

	// RefreshTokens obtains a fresh OAuth token pair. Adapters whose
	// credentials do not expire return (nil, nil).
	RefreshTokens(ctx context.Context) (*TokenBundle, error)

	// Disconnect releases any live connection. It is idempotent and
	// safe to call on an adapter that never connected.
	Disconnect()
}
