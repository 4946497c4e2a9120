package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
)

// ErrAccountNotFound is returned when a requested account cannot be found.
var ErrAccountNotFound = errors.New("account not found")

const accountColumns = `
	id,
	user_id,
	provider,
	email_address,
	display_name,
	encrypted_access_token,
	encrypted_refresh_token,
	token_expires_at,
	imap_host,
	imap_port,
	smtp_host,
	smtp_port,
	username,
	encrypted_password,
	sync_cursor,
	last_sync_at,
	is_enabled,
	created_at,
	updated_at
`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.Provider,
		&account.EmailAddress,
		&account.DisplayName,
		&account.EncryptedAccessToken,
		&account.EncryptedRefreshToken,
		&account.TokenExpiresAt,
		&account.IMAPHost,
		&account.IMAPPort,
		&account.SMTPHost,
		&account.SMTPPort,
		&account.Username,
		&account.EncryptedPassword,
		&account.SyncCursor,
		&account.LastSyncAt,
		&account.IsEnabled,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// SaveAccount saves or updates an account in the database.
// Accounts are unique per (user_id, provider, email_address); re-linking
// an existing mailbox updates its credentials in place.
func SaveAccount(ctx context.Context, pool *pgxpool.Pool, account *models.Account) error {
	var id string

	err := pool.QueryRow(ctx, `
		INSERT INTO accounts (
			user_id,
			provider,
			email_address,
			display_name,
			encrypted_access_token,
			encrypted_refresh_token,
			token_expires_at,
			imap_host,
			imap_port,
			smtp_host,
			smtp_port,
			username,
			encrypted_password,
			is_enabled
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id, provider, email_address) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			encrypted_access_token = EXCLUDED.encrypted_access_token,
			encrypted_refresh_token = EXCLUDED.encrypted_refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			imap_host = EXCLUDED.imap_host,
			imap_port = EXCLUDED.imap_port,
			smtp_host = EXCLUDED.smtp_host,
			smtp_port = EXCLUDED.smtp_port,
			username = EXCLUDED.username,
			encrypted_password = EXCLUDED.encrypted_password,
			is_enabled = EXCLUDED.is_enabled,
			updated_at = NOW()
		RETURNING id
	`,
		account.UserID,
		account.Provider,
		account.EmailAddress,
		account.DisplayName,
		account.EncryptedAccessToken,
		account.EncryptedRefreshToken,
		account.TokenExpiresAt,
		account.IMAPHost,
		account.IMAPPort,
		account.SMTPHost,
		account.SMTPPort,
		account.Username,
		account.EncryptedPassword,
		account.IsEnabled,
	).Scan(&id)

	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	account.ID = id
	return nil
}

// GetAccount returns the account with the given id.
func GetAccount(ctx context.Context, pool *pgxpool.Pool, accountID string) (*models.Account, error) {
	account, err := scanAccount(pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, accountID))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// GetAccountsForUser returns all accounts belonging to the given user.
func GetAccountsForUser(ctx context.Context, pool *pgxpool.Pool, userID string) ([]*models.Account, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)

	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// ListEnabledAccounts returns every enabled account across all users,
// ordered by creation time. Used by the periodic sync sweep.
func ListEnabledAccounts(ctx context.Context, pool *pgxpool.Pool) ([]*models.Account, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE is_enabled
		ORDER BY created_at
	`)

	if err != nil {
		return nil, fmt.Errorf("failed to list enabled accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// UpdateAccountSyncState stores the new cursor and stamps last_sync_at.
// Called only after every message of a sync batch has been absorbed, so
// a crash mid-batch re-syncs from the previous cursor instead of
// skipping messages.
func UpdateAccountSyncState(ctx context.Context, pool *pgxpool.Pool, accountID, cursor string) error {
	tag, err := pool.Exec(ctx, `
		UPDATE accounts
		SET sync_cursor = $2, last_sync_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, accountID, cursor)

	if err != nil {
		return fmt.Errorf("failed to update account sync state: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// UpdateAccountTokens stores a refreshed, re-encrypted OAuth token pair.
func UpdateAccountTokens(ctx context.Context, pool *pgxpool.Pool, accountID string, encryptedAccess, encryptedRefresh []byte, expiresAt *time.Time) error {
	tag, err := pool.Exec(ctx, `
		UPDATE accounts
		SET encrypted_access_token = $2,
			encrypted_refresh_token = COALESCE($3, encrypted_refresh_token),
			token_expires_at = $4,
			updated_at = NOW()
		WHERE id = $1
	`, accountID, encryptedAccess, encryptedRefresh, expiresAt)

	if err != nil {
		return fmt.Errorf("failed to update account tokens: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// SetAccountEnabled enables or disables syncing for an account.
func SetAccountEnabled(ctx context.Context, pool *pgxpool.Pool, accountID string, enabled bool) error {
	tag, err := pool.Exec(ctx, `
		UPDATE accounts
		SET is_enabled = $2, updated_at = NOW()
		WHERE id = $1
	`, accountID, enabled)

	if err != nil {
		return fmt.Errorf("failed to set account enabled: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// DeleteAccount removes an account. Folders, messages and sync jobs
// belonging to it cascade away with it.
func DeleteAccount(ctx context.Context, pool *pgxpool.Pool, accountID string) error {
	tag, err := pool.Exec(ctx, `
		DELETE FROM accounts
		WHERE id = $1
	`, accountID)

	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}
