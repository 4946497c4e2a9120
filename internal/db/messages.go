package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
)

// ErrMessageNotFound is returned when a requested message cannot be found.
var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `
	id,
	account_id,
	user_id,
	COALESCE(folder_id::text, ''),
	COALESCE(thread_id::text, ''),
	provider_message_id,
	message_id_header,
	in_reply_to,
	reference_ids,
	subject,
	from_address,
	to_addresses,
	cc_addresses,
	bcc_addresses,
	reply_to,
	sent_at,
	received_at,
	body_text,
	unsafe_body_html,
	snippet,
	size_bytes,
	provider_labels,
	has_attachments,
	is_read,
	is_starred,
	is_draft,
	is_hidden,
	never_show,
	ai_category,
	ai_confidence,
	is_quarantined,
	created_at,
	updated_at
`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var msg models.Message
	err := row.Scan(
		&msg.ID,
		&msg.AccountID,
		&msg.UserID,
		&msg.FolderID,
		&msg.ThreadID,
		&msg.ProviderMessageID,
		&msg.MessageIDHeader,
		&msg.InReplyTo,
		&msg.ReferenceIDs,
		&msg.Subject,
		&msg.FromAddress,
		&msg.ToAddresses,
		&msg.CcAddresses,
		&msg.BccAddresses,
		&msg.ReplyTo,
		&msg.SentAt,
		&msg.ReceivedAt,
		&msg.BodyText,
		&msg.UnsafeBodyHTML,
		&msg.Snippet,
		&msg.SizeBytes,
		&msg.ProviderLabels,
		&msg.HasAttachments,
		&msg.IsRead,
		&msg.IsStarred,
		&msg.IsDraft,
		&msg.IsHidden,
		&msg.NeverShow,
		&msg.AICategory,
		&msg.AIConfidence,
		&msg.IsQuarantined,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SaveMessage saves or updates a message in the database.
// Messages are unique per (account_id, provider_message_id). When a
// known message is observed again, only the flags that can drift on the
// provider side (is_read, is_starred, provider_labels) are updated;
// body content, local triage state and thread membership stay put.
func SaveMessage(ctx context.Context, pool *pgxpool.Pool, message *models.Message) error {
	var id string

	err := pool.QueryRow(ctx, `
		INSERT INTO messages (
			account_id,
			user_id,
			folder_id,
			thread_id,
			provider_message_id,
			message_id_header,
			in_reply_to,
			reference_ids,
			subject,
			from_address,
			to_addresses,
			cc_addresses,
			bcc_addresses,
			reply_to,
			sent_at,
			received_at,
			body_text,
			unsafe_body_html,
			snippet,
			size_bytes,
			provider_labels,
			has_attachments,
			is_read,
			is_starred,
			is_draft
		) VALUES (
			$1, $2, NULLIF($3, '')::uuid, NULLIF($4, '')::uuid, $5, $6, $7, $8, $9, $10,
			COALESCE($11::text[], '{}'), COALESCE($12::text[], '{}'), COALESCE($13::text[], '{}'),
			$14, $15, $16, $17, $18, $19, $20, COALESCE($21::text[], '{}'), $22, $23, $24, $25
		)
		ON CONFLICT (account_id, provider_message_id) DO UPDATE SET
			is_read = EXCLUDED.is_read,
			is_starred = EXCLUDED.is_starred,
			provider_labels = EXCLUDED.provider_labels,
			updated_at = NOW()
		RETURNING id
	`,
		message.AccountID,
		message.UserID,
		message.FolderID,
		message.ThreadID,
		message.ProviderMessageID,
		message.MessageIDHeader,
		message.InReplyTo,
		message.ReferenceIDs,
		message.Subject,
		message.FromAddress,
		message.ToAddresses,
		message.CcAddresses,
		message.BccAddresses,
		message.ReplyTo,
		message.SentAt,
		message.ReceivedAt,
		message.BodyText,
		message.UnsafeBodyHTML,
		message.Snippet,
		message.SizeBytes,
		message.ProviderLabels,
		message.HasAttachments,
		message.IsRead,
		message.IsStarred,
		message.IsDraft,
	).Scan(&id)

	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	message.ID = id
	return nil
}

// GetMessageByID returns the message with the given id.
func GetMessageByID(ctx context.Context, pool *pgxpool.Pool, messageID string) (*models.Message, error) {
	msg, err := scanMessage(pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE id = $1
	`, messageID))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMessageNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return msg, nil
}

// GetMessageByProviderID returns the message an account knows under the
// given provider-side id. The sync orchestrator uses this to decide
// between inserting a new message and drift-updating a known one.
func GetMessageByProviderID(ctx context.Context, pool *pgxpool.Pool, accountID, providerMessageID string) (*models.Message, error) {
	msg, err := scanMessage(pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE account_id = $1 AND provider_message_id = $2
	`, accountID, providerMessageID))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMessageNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get message by provider id: %w", err)
	}

	return msg, nil
}

// GetMessagesForThread returns all messages for a thread, oldest first.
func GetMessagesForThread(ctx context.Context, pool *pgxpool.Pool, threadID string) ([]*models.Message, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE thread_id = $1
		ORDER BY sent_at NULLS LAST
	`, threadID)

	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// ListUnreadMessagesInCategory returns every unread, non-hidden message
// of a user currently filed under the given category.
func ListUnreadMessagesInCategory(ctx context.Context, pool *pgxpool.Pool, userID, category string) ([]*models.Message, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE user_id = $1 AND ai_category = $2 AND NOT is_read AND NOT is_hidden
		ORDER BY sent_at NULLS LAST
	`, userID, category)

	if err != nil {
		return nil, fmt.Errorf("failed to list unread messages in category: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// SetMessageRead updates the read flag of a message.
func SetMessageRead(ctx context.Context, pool *pgxpool.Pool, messageID string, isRead bool) error {
	tag, err := pool.Exec(ctx, `
		UPDATE messages
		SET is_read = $2, updated_at = NOW()
		WHERE id = $1
	`, messageID, isRead)

	if err != nil {
		return fmt.Errorf("failed to set message read: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}

	return nil
}

// SetMessageStarred updates the starred flag of a message.
func SetMessageStarred(ctx context.Context, pool *pgxpool.Pool, messageID string, isStarred bool) error {
	tag, err := pool.Exec(ctx, `
		UPDATE messages
		SET is_starred = $2, updated_at = NOW()
		WHERE id = $1
	`, messageID, isStarred)

	if err != nil {
		return fmt.Errorf("failed to set message starred: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}

	return nil
}

// HideMessage soft-deletes a message. Hidden messages stay in the
// database (re-syncing the same provider id must not resurrect them as
// new) but drop out of thread and folder statistics.
func HideMessage(ctx context.Context, pool *pgxpool.Pool, messageID string) error {
	tag, err := pool.Exec(ctx, `
		UPDATE messages
		SET is_hidden = TRUE, updated_at = NOW()
		WHERE id = $1
	`, messageID)

	if err != nil {
		return fmt.Errorf("failed to hide message: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}

	return nil
}

// SetMessageCategory stores the denormalized classification result on
// the message row.
func SetMessageCategory(ctx context.Context, pool *pgxpool.Pool, messageID, category string, confidence float64, quarantined bool) error {
	tag, err := pool.Exec(ctx, `
		UPDATE messages
		SET ai_category = $2, ai_confidence = $3, is_quarantined = $4, updated_at = NOW()
		WHERE id = $1
	`, messageID, category, confidence, quarantined)

	if err != nil {
		return fmt.Errorf("failed to set message category: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}

	return nil
}

// SetMessageThread attaches a message to a thread.
func SetMessageThread(ctx context.Context, pool *pgxpool.Pool, messageID, threadID string) error {
	tag, err := pool.Exec(ctx, `
		UPDATE messages
		SET thread_id = $2, updated_at = NOW()
		WHERE id = $1
	`, messageID, threadID)

	if err != nil {
		return fmt.Errorf("failed to set message thread: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}

	return nil
}

// SetMessageFolder moves a message to another local folder (or detaches
// it when folderID is empty).
func SetMessageFolder(ctx context.Context, pool *pgxpool.Pool, messageID, folderID string) error {
	tag, err := pool.Exec(ctx, `
		UPDATE messages
		SET folder_id = NULLIF($2, '')::uuid, updated_at = NOW()
		WHERE id = $1
	`, messageID, folderID)

	if err != nil {
		return fmt.Errorf("failed to set message folder: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}

	return nil
}

// SaveAttachment saves an attachment to the database.
func SaveAttachment(ctx context.Context, pool *pgxpool.Pool, attachment *models.Attachment) error {
	var attachmentID string

	err := pool.QueryRow(ctx, `
		INSERT INTO attachments (message_id, provider_attachment_id, filename, mime_type, size_bytes, is_inline, content_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		attachment.MessageID,
		attachment.ProviderAttachmentID,
		attachment.Filename,
		attachment.MimeType,
		attachment.SizeBytes,
		attachment.IsInline,
		attachment.ContentID,
	).Scan(&attachmentID)

	if err != nil {
		return fmt.Errorf("failed to save attachment: %w", err)
	}

	attachment.ID = attachmentID
	return nil
}

// GetAttachmentsForMessage returns all attachments for a message.
func GetAttachmentsForMessage(ctx context.Context, pool *pgxpool.Pool, messageID string) ([]*models.Attachment, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, message_id, provider_attachment_id, filename, mime_type, size_bytes, is_inline, content_id
		FROM attachments
		WHERE message_id = $1
	`, messageID)

	if err != nil {
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*models.Attachment
	for rows.Next() {
		var att models.Attachment
		if err := rows.Scan(
			&att.ID,
			&att.MessageID,
			&att.ProviderAttachmentID,
			&att.Filename,
			&att.MimeType,
			&att.SizeBytes,
			&att.IsInline,
			&att.ContentID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, &att)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachments: %w", err)
	}

	return attachments, nil
}
