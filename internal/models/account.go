package models

import "time"

// ProviderKind identifies which provider variant an account talks to.
type ProviderKind string

const (
	ProviderGmail   ProviderKind = "gmail"
	ProviderOutlook ProviderKind = "outlook"
	ProviderIMAP    ProviderKind = "imap"
)

// Account is a linked mailbox. Credential columns are stored encrypted;
// the provider factory decrypts them into a provider.Credentials bundle.
type Account struct {
	ID                    string       `json:"id"`
	UserID                string       `json:"user_id"`
	Provider              ProviderKind `json:"provider"`
	EmailAddress          string       `json:"email_address"`
	DisplayName           string       `json:"display_name"`
	EncryptedAccessToken  []byte       `json:"-"`
	EncryptedRefreshToken []byte       `json:"-"`
	TokenExpiresAt        *time.Time   `json:"token_expires_at,omitempty"`
	IMAPHost              string       `json:"imap_host,omitempty"`
	IMAPPort              int          `json:"imap_port,omitempty"`
	SMTPHost              string       `json:"smtp_host,omitempty"`
	SMTPPort              int          `json:"smtp_port,omitempty"`
	Username              string       `json:"username,omitempty"`
	EncryptedPassword     []byte       `json:"-"`
	SyncCursor            string       `json:"sync_cursor"`
	LastSyncAt            *time.Time   `json:"last_sync_at,omitempty"`
	IsEnabled             bool         `json:"is_enabled"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// SyncJobStatus is the lifecycle state of one recorded sync run.
type SyncJobStatus string

const (
	SyncJobRunning   SyncJobStatus = "running"
	SyncJobSucceeded SyncJobStatus = "succeeded"
	SyncJobFailed    SyncJobStatus = "failed"
)

// SyncJob records the outcome of a single sync run for an account.
// RetryCount continues from the previous run when that run failed, so
// consecutive failures are visible as an incrementing counter.
type SyncJob struct {
	ID             string        `json:"id"`
	AccountID      string        `json:"account_id"`
	Status         SyncJobStatus `json:"status"`
	MessagesSynced int           `json:"messages_synced"`
	Error          string        `json:"error,omitempty"`
	RetryCount     int           `json:"retry_count"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     *time.Time    `json:"finished_at,omitempty"`
}
