package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/paul2999Git/mailapp-sub000/internal/db"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
)

// SyncAllEnabled runs one sweep over every enabled account. Accounts
// synced more recently than their owner's configured interval are
// skipped to bound provider API load, and one account's failure never
// stops the rest of the sweep.
func (s *Service) SyncAllEnabled(ctx context.Context) error {
	accounts, err := db.ListEnabledAccounts(ctx, s.pool)
	if err != nil {
		return fmt.Errorf("failed to list enabled accounts: %w", err)
	}

	for _, account := range accounts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.recentlySynced(ctx, account) {
			continue
		}
		if err := s.SyncAccount(ctx, account.ID); err != nil {
			log.Printf("Warning: sync failed for account %s: %v", account.EmailAddress, err)
		}
	}
	return nil
}

// recentlySynced reports whether the account finished a sync within
// its owner's sync interval. Failed runs never stamp last_sync_at, so
// a failing account is retried on every sweep.
func (s *Service) recentlySynced(ctx context.Context, account *models.Account) bool {
	if account.LastSyncAt == nil {
		return false
	}

	settings, err := db.GetUserSettings(ctx, s.pool, account.UserID)
	if err != nil {
		if !errors.Is(err, db.ErrUserSettingsNotFound) {
			log.Printf("Warning: failed to load settings for user %s: %v", account.UserID, err)
		}
		settings = models.DefaultUserSettings(account.UserID)
	}

	interval := time.Duration(settings.SyncIntervalMinutes) * time.Minute
	return time.Since(*account.LastSyncAt) < interval
}
