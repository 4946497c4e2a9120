package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
)

// ErrSyncJobNotFound is returned when a requested sync job cannot be found.
var ErrSyncJobNotFound = errors.New("sync job not found")

// StartSyncJob records the beginning of a sync run for an account.
// The new row's retry_count continues from the most recent run when
// that run failed and resets to zero after a success, so consecutive
// failures show up as an incrementing counter.
func StartSyncJob(ctx context.Context, pool *pgxpool.Pool, accountID string) (*models.SyncJob, error) {
	var job models.SyncJob

	err := pool.QueryRow(ctx, `
		INSERT INTO sync_jobs (account_id, status, retry_count)
		VALUES ($1, 'running', COALESCE((
			SELECT CASE WHEN status = 'failed' THEN retry_count + 1 ELSE 0 END
			FROM sync_jobs
			WHERE account_id = $1
			ORDER BY started_at DESC
			LIMIT 1
		), 0))
		RETURNING id, account_id, status, messages_synced, error, retry_count, started_at, finished_at
	`, accountID).Scan(
		&job.ID,
		&job.AccountID,
		&job.Status,
		&job.MessagesSynced,
		&job.Error,
		&job.RetryCount,
		&job.StartedAt,
		&job.FinishedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to start sync job: %w", err)
	}

	return &job, nil
}

// FinishSyncJob closes a sync job with its outcome.
func FinishSyncJob(ctx context.Context, pool *pgxpool.Pool, jobID string, status models.SyncJobStatus, messagesSynced int, errMsg string) error {
	tag, err := pool.Exec(ctx, `
		UPDATE sync_jobs
		SET status = $2, messages_synced = $3, error = $4, finished_at = NOW()
		WHERE id = $1
	`, jobID, status, messagesSynced, errMsg)

	if err != nil {
		return fmt.Errorf("failed to finish sync job: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrSyncJobNotFound
	}

	return nil
}

// GetLatestSyncJob returns the most recent sync job for an account.
func GetLatestSyncJob(ctx context.Context, pool *pgxpool.Pool, accountID string) (*models.SyncJob, error) {
	var job models.SyncJob

	err := pool.QueryRow(ctx, `
		SELECT id, account_id, status, messages_synced, error, retry_count, started_at, finished_at
		FROM sync_jobs
		WHERE account_id = $1
		ORDER BY started_at DESC
		LIMIT 1
	`, accountID).Scan(
		&job.ID,
		&job.AccountID,
		&job.Status,
		&job.MessagesSynced,
		&job.Error,
		&job.RetryCount,
		&job.StartedAt,
		&job.FinishedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSyncJobNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get latest sync job: %w", err)
	}

	return &job, nil
}
