package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
)

// ErrThreadNotFound is returned when a requested thread cannot be found.
var ErrThreadNotFound = errors.New("thread not found")

const threadColumns = `
	id,
	user_id,
	normalized_subject,
	participant_emails,
	account_ids,
	first_message_at,
	last_message_at,
	message_count,
	unread_count,
	has_attachments,
	created_at,
	updated_at
`

func scanThread(row pgx.Row) (*models.Thread, error) {
	var thread models.Thread
	err := row.Scan(
		&thread.ID,
		&thread.UserID,
		&thread.NormalizedSubject,
		&thread.ParticipantEmails,
		&thread.AccountIDs,
		&thread.FirstMessageAt,
		&thread.LastMessageAt,
		&thread.MessageCount,
		&thread.UnreadCount,
		&thread.HasAttachments,
		&thread.CreatedAt,
		&thread.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// FindThread returns the thread a message from the given account with
// the given normalized subject belongs to. A thread only matches when
// the account already participates in it; two users, or two unrelated
// accounts, never share a thread through subject collision alone.
func FindThread(ctx context.Context, pool *pgxpool.Pool, userID, normalizedSubject, accountID string) (*models.Thread, error) {
	thread, err := scanThread(pool.QueryRow(ctx, `
		SELECT `+threadColumns+`
		FROM threads
		WHERE user_id = $1 AND normalized_subject = $2 AND $3::uuid = ANY(account_ids)
		ORDER BY last_message_at DESC NULLS LAST
		LIMIT 1
	`, userID, normalizedSubject, accountID))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrThreadNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find thread: %w", err)
	}

	return thread, nil
}

// CreateThread inserts a new thread seeded from its first message.
func CreateThread(ctx context.Context, pool *pgxpool.Pool, thread *models.Thread) error {
	var threadID string

	err := pool.QueryRow(ctx, `
		INSERT INTO threads (
			user_id,
			normalized_subject,
			participant_emails,
			account_ids,
			first_message_at,
			last_message_at,
			message_count,
			unread_count,
			has_attachments
		) VALUES ($1, $2, COALESCE($3::text[], '{}'), COALESCE($4::uuid[], '{}'), $5, $6, $7, $8, $9)
		RETURNING id
	`,
		thread.UserID,
		thread.NormalizedSubject,
		thread.ParticipantEmails,
		thread.AccountIDs,
		thread.FirstMessageAt,
		thread.LastMessageAt,
		thread.MessageCount,
		thread.UnreadCount,
		thread.HasAttachments,
	).Scan(&threadID)

	if err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}

	thread.ID = threadID
	return nil
}

// GetThreadByID returns a thread by its database ID.
func GetThreadByID(ctx context.Context, pool *pgxpool.Pool, threadID string) (*models.Thread, error) {
	thread, err := scanThread(pool.QueryRow(ctx, `
		SELECT `+threadColumns+`
		FROM threads
		WHERE id = $1
	`, threadID))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrThreadNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get thread by ID: %w", err)
	}

	return thread, nil
}

// ListThreadsForUser returns the user's threads, most recent first.
func ListThreadsForUser(ctx context.Context, pool *pgxpool.Pool, userID string, limit, offset int) ([]*models.Thread, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+threadColumns+`
		FROM threads
		WHERE user_id = $1
		ORDER BY last_message_at DESC NULLS LAST
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)

	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var threads []*models.Thread
	for rows.Next() {
		thread, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, thread)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}

	return threads, nil
}

// RecomputeThreadStats re-derives every aggregate column of a thread
// from its current non-hidden messages in a single statement: counts,
// first/last dates, the attachment flag, the participating accounts and
// the participant address set. A thread whose messages were all hidden
// ends up with zero counts and empty sets rather than stale values.
func RecomputeThreadStats(ctx context.Context, pool *pgxpool.Pool, threadID string) error {
	_, err := pool.Exec(ctx, `
		WITH msgs AS (
			SELECT account_id, from_address, to_addresses, cc_addresses,
				sent_at, received_at, is_read, has_attachments
			FROM messages
			WHERE thread_id = $1 AND NOT is_hidden
		),
		addrs AS (
			SELECT LOWER(TRIM(COALESCE(NULLIF(substring(a FROM '<([^>]+)>'), ''), a))) AS email
			FROM (
				SELECT from_address AS a FROM msgs
				UNION ALL
				SELECT unnest(to_addresses) FROM msgs
				UNION ALL
				SELECT unnest(cc_addresses) FROM msgs
			) raw
			WHERE a <> ''
		)
		UPDATE threads
		SET message_count = stats.message_count,
			unread_count = stats.unread_count,
			first_message_at = stats.first_message_at,
			last_message_at = stats.last_message_at,
			has_attachments = stats.has_attachments,
			account_ids = stats.account_ids,
			participant_emails = (SELECT COALESCE(ARRAY_AGG(DISTINCT email), '{}') FROM addrs),
			updated_at = NOW()
		FROM (
			SELECT COUNT(*) AS message_count,
				COUNT(*) FILTER (WHERE NOT is_read) AS unread_count,
				MIN(COALESCE(sent_at, received_at)) AS first_message_at,
				MAX(COALESCE(sent_at, received_at)) AS last_message_at,
				COALESCE(BOOL_OR(has_attachments), FALSE) AS has_attachments,
				COALESCE(ARRAY_AGG(DISTINCT account_id), '{}') AS account_ids
			FROM msgs
		) stats
		WHERE threads.id = $1
	`, threadID)

	if err != nil {
		return fmt.Errorf("failed to recompute thread stats: %w", err)
	}

	return nil
}
