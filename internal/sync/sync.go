// Package sync orchestrates per-account mailbox synchronization:
// token refresh, connectivity gate, folder reconciliation, bounded
// incremental message pulls, thread attachment and sync-job
// bookkeeping. One sync pass covers one account; the sweep in
// SyncAllEnabled runs a pass per enabled account.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paul2999Git/mailapp-sub000/internal/db"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
	"github.com/paul2999Git/mailapp-sub000/internal/thread"
)

// AdapterFactory builds connected provider adapters from account rows
// and encrypts token material on its way back into the store.
// Implemented by factory.Factory.
type AdapterFactory interface {
	AdapterFor(account *models.Account) (provider.Adapter, error)
	EncryptToken(token string) ([]byte, error)
}

// ClassifyEnqueuer receives the ids of newly-synced messages so each
// one is classified exactly once per observation. Implemented by the
// job queue.
type ClassifyEnqueuer interface {
	EnqueueClassify(messageID string)
}

// Service runs sync passes and message-level actions against the
// provider adapters and the local store.
type Service struct {
	pool     *pgxpool.Pool
	adapters AdapterFactory
	threads  *thread.Service
	enqueuer ClassifyEnqueuer
}

// NewService wires a sync service. enqueuer may be nil, in which case
// newly-synced messages are not handed to classification.
func NewService(pool *pgxpool.Pool, adapters AdapterFactory, threads *thread.Service, enqueuer ClassifyEnqueuer) *Service {
	return &Service{
		pool:     pool,
		adapters: adapters,
		threads:  threads,
		enqueuer: enqueuer,
	}
}

// SyncAccount runs one bounded sync pass for the account. The cursor
// and last-sync timestamp move only after the whole batch is absorbed,
// so an interrupted run repeats the same batch and the
// (account, provider-message-id) upsert key absorbs the repeats.
func (s *Service) SyncAccount(ctx context.Context, accountID string) error {
	account, err := db.GetAccount(ctx, s.pool, accountID)
	if err != nil {
		return err
	}

	job, err := db.StartSyncJob(ctx, s.pool, account.ID)
	if err != nil {
		return err
	}

	adapter, err := s.adapters.AdapterFor(account)
	if err != nil {
		return s.fail(ctx, job, 0, err)
	}
	defer adapter.Disconnect()

	if err := s.persistRefreshedTokens(ctx, adapter, account); err != nil {
		return s.fail(ctx, job, 0, err)
	}

	test, err := adapter.TestConnection(ctx)
	if err != nil {
		return s.fail(ctx, job, 0, err)
	}
	if !test.Success {
		return s.fail(ctx, job, 0, errors.New(test.Message))
	}

	inbox, err := s.reconcileFolders(ctx, account, adapter)
	if err != nil {
		return s.fail(ctx, job, 0, err)
	}

	result, err := adapter.SyncMessages(ctx, provider.SyncOptions{
		Cursor:   account.SyncCursor,
		FolderID: inbox.ProviderFolderID,
	})
	if err != nil {
		return s.fail(ctx, job, 0, fmt.Errorf("failed to sync messages: %w", err))
	}

	absorbed := 0
	var newIDs []string
	touched := make(map[string]bool)
	for _, msg := range result.Messages {
		isNew, threadID, err := s.absorbMessage(ctx, account, inbox.ID, msg)
		if err != nil {
			return s.fail(ctx, job, absorbed, fmt.Errorf("failed to absorb message %s: %w", msg.ProviderMessageID, err))
		}
		absorbed++
		if isNew {
			newIDs = append(newIDs, msg.ID)
		}
		if threadID != "" {
			touched[threadID] = true
		}
	}

	for threadID := range touched {
		if err := s.threads.RecomputeStats(ctx, threadID); err != nil {
			log.Printf("Warning: failed to recompute thread %s: %v", threadID, err)
		}
	}

	// The cursor and timestamp move only now that every message in the
	// batch is persisted.
	if err := db.UpdateAccountSyncState(ctx, s.pool, account.ID, result.Cursor); err != nil {
		return s.fail(ctx, job, absorbed, err)
	}

	if s.enqueuer != nil {
		for _, id := range newIDs {
			s.enqueuer.EnqueueClassify(id)
		}
	}

	if err := db.FinishSyncJob(ctx, s.pool, job.ID, models.SyncJobSucceeded, absorbed, ""); err != nil {
		return err
	}

	if result.HasMore {
		log.Printf("Synced %d messages for %s (%d new, more pending)", absorbed, account.EmailAddress, len(newIDs))
	} else {
		log.Printf("Synced %d messages for %s (%d new)", absorbed, account.EmailAddress, len(newIDs))
	}
	return nil
}

// fail records the job as failed with the causing error's message and
// hands the cause back to the caller.
func (s *Service) fail(ctx context.Context, job *models.SyncJob, synced int, cause error) error {
	if err := db.FinishSyncJob(ctx, s.pool, job.ID, models.SyncJobFailed, synced, cause.Error()); err != nil {
		log.Printf("Warning: failed to record sync failure for job %s: %v", job.ID, err)
	}
	return cause
}

// persistRefreshedTokens stores a rotated OAuth token pair back on the
// account. Most calls are a no-op: adapters return a nil bundle when
// their credentials do not expire or have not expired yet.
func (s *Service) persistRefreshedTokens(ctx context.Context, adapter provider.Adapter, account *models.Account) error {
	bundle, err := adapter.RefreshTokens(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh tokens: %w", err)
	}
	if bundle == nil {
		return nil
	}

	encryptedAccess, err := s.adapters.EncryptToken(bundle.AccessToken)
	if err != nil {
		return err
	}
	var encryptedRefresh []byte
	if bundle.RefreshToken != "" {
		if encryptedRefresh, err = s.adapters.EncryptToken(bundle.RefreshToken); err != nil {
			return err
		}
	}

	expiresAt := bundle.ExpiresAt
	if err := db.UpdateAccountTokens(ctx, s.pool, account.ID, encryptedAccess, encryptedRefresh, &expiresAt); err != nil {
		return err
	}

	log.Printf("Stored refreshed tokens for %s", account.EmailAddress)
	return nil
}

// reconcileFolders upserts the provider's folder list and returns the
// local inbox row the message batch will sync against.
func (s *Service) reconcileFolders(ctx context.Context, account *models.Account, adapter provider.Adapter) (*models.Folder, error) {
	folders, err := adapter.FetchFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch folders: %w", err)
	}

	var inbox *models.Folder
	for _, folder := range folders {
		folder.AccountID = account.ID
		if err := db.SaveFolder(ctx, s.pool, folder); err != nil {
			return nil, err
		}
		if folder.Type == models.FolderInbox && inbox == nil {
			inbox = folder
		}
	}

	if inbox == nil {
		return nil, errors.New("provider listed no inbox folder")
	}
	return inbox, nil
}

// absorbMessage lands one provider message locally. A known message,
// keyed on (account, provider-message-id), only picks up flag drift;
// a new one gets the full insert, its attachments and a thread.
func (s *Service) absorbMessage(ctx context.Context, account *models.Account, inboxFolderID string, msg *models.Message) (bool, string, error) {
	existing, err := db.GetMessageByProviderID(ctx, s.pool, account.ID, msg.ProviderMessageID)
	if err != nil && !errors.Is(err, db.ErrMessageNotFound) {
		return false, "", err
	}

	msg.AccountID = account.ID
	msg.UserID = account.UserID

	if existing != nil {
		// The upsert touches only read/starred flags and provider labels.
		if err := db.SaveMessage(ctx, s.pool, msg); err != nil {
			return false, "", err
		}
		return false, existing.ThreadID, nil
	}

	msg.FolderID = inboxFolderID
	th, err := s.threads.FindOrCreate(ctx, account.UserID, account.ID, msg)
	if err != nil {
		return false, "", err
	}
	msg.ThreadID = th.ID

	if err := db.SaveMessage(ctx, s.pool, msg); err != nil {
		return false, "", err
	}

	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		att.MessageID = msg.ID
		if err := db.SaveAttachment(ctx, s.pool, att); err != nil {
			return false, "", err
		}
	}

	return true, th.ID, nil
}
