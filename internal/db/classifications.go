package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
)

// SaveClassificationRecord appends one audit entry for a message
// classification. Records are never updated or deleted; re-classifying
// a message adds a new row.
func SaveClassificationRecord(ctx context.Context, pool *pgxpool.Pool, record *models.ClassificationRecord) error {
	var id string

	err := pool.QueryRow(ctx, `
		INSERT INTO classification_records (
			message_id, category, confidence, explanation, factors,
			model_id, prompt_version, used_body, body_chars_sent
		) VALUES ($1, $2, $3, $4, COALESCE($5::text[], '{}'), $6, $7, $8, $9)
		RETURNING id
	`,
		record.MessageID,
		record.Category,
		record.Confidence,
		record.Explanation,
		record.Factors,
		record.ModelID,
		record.PromptVersion,
		record.UsedBody,
		record.BodyCharsSent,
	).Scan(&id)

	if err != nil {
		return fmt.Errorf("failed to save classification record: %w", err)
	}

	record.ID = id
	return nil
}

// GetClassificationRecords returns the audit trail for a message,
// newest first.
func GetClassificationRecords(ctx context.Context, pool *pgxpool.Pool, messageID string) ([]*models.ClassificationRecord, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, message_id, category, confidence, explanation, factors,
			model_id, prompt_version, used_body, body_chars_sent, created_at
		FROM classification_records
		WHERE message_id = $1
		ORDER BY created_at DESC
	`, messageID)

	if err != nil {
		return nil, fmt.Errorf("failed to get classification records: %w", err)
	}
	defer rows.Close()

	var records []*models.ClassificationRecord
	for rows.Next() {
		var record models.ClassificationRecord
		if err := rows.Scan(
			&record.ID,
			&record.MessageID,
			&record.Category,
			&record.Confidence,
			&record.Explanation,
			&record.Factors,
			&record.ModelID,
			&record.PromptVersion,
			&record.UsedBody,
			&record.BodyCharsSent,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan classification record: %w", err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating classification records: %w", err)
	}

	return records, nil
}
