package sync

import (
	"context"
	"log"

	"github.com/paul2999Git/mailapp-sub000/internal/db"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
)

// Message-level actions. The local store is authoritative: each action
// lands locally first, is mirrored to the provider best-effort, and
// then refreshes the derived thread and folder counts. A provider that
// is down costs a warning, never the local change.

// SetMessageRead flips the read flag.
func (s *Service) SetMessageRead(ctx context.Context, messageID string, read bool) error {
	msg, err := db.GetMessageByID(ctx, s.pool, messageID)
	if err != nil {
		return err
	}

	if err := db.SetMessageRead(ctx, s.pool, messageID, read); err != nil {
		return err
	}

	s.mirror(ctx, msg, "mark read", func(adapter provider.Adapter) error {
		return adapter.MarkRead(ctx, msg.ProviderMessageID, read)
	})
	s.refreshDerived(ctx, msg)
	return nil
}

// SetMessageStarred flips the starred flag.
func (s *Service) SetMessageStarred(ctx context.Context, messageID string, starred bool) error {
	msg, err := db.GetMessageByID(ctx, s.pool, messageID)
	if err != nil {
		return err
	}

	if err := db.SetMessageStarred(ctx, s.pool, messageID, starred); err != nil {
		return err
	}

	s.mirror(ctx, msg, "mark starred", func(adapter provider.Adapter) error {
		return adapter.MarkStarred(ctx, msg.ProviderMessageID, starred)
	})
	return nil
}

// HideMessage soft-deletes a message: the row stays for the audit
// trail, drops out of every derived count, and moves to the provider's
// trash.
func (s *Service) HideMessage(ctx context.Context, messageID string) error {
	msg, err := db.GetMessageByID(ctx, s.pool, messageID)
	if err != nil {
		return err
	}

	if err := db.HideMessage(ctx, s.pool, messageID); err != nil {
		return err
	}

	s.mirror(ctx, msg, "trash", func(adapter provider.Adapter) error {
		return adapter.MoveToTrash(ctx, msg.ProviderMessageID)
	})
	s.refreshDerived(ctx, msg)
	return nil
}

// MarkCategoryRead marks every unread message in one of the user's
// categories as read and returns how many messages it touched. One
// live adapter per account is reused across the batch.
func (s *Service) MarkCategoryRead(ctx context.Context, userID, category string) (int, error) {
	messages, err := db.ListUnreadMessagesInCategory(ctx, s.pool, userID, category)
	if err != nil {
		return 0, err
	}

	adapters := make(map[string]provider.Adapter)
	defer func() {
		for _, adapter := range adapters {
			if adapter != nil {
				adapter.Disconnect()
			}
		}
	}()

	threads := make(map[string]bool)
	folders := make(map[string]bool)
	count := 0
	for _, msg := range messages {
		if err := db.SetMessageRead(ctx, s.pool, msg.ID, true); err != nil {
			return count, err
		}
		count++

		adapter, cached := adapters[msg.AccountID]
		if !cached {
			adapter = s.dialAccount(ctx, msg.AccountID)
			adapters[msg.AccountID] = adapter
		}
		if adapter != nil {
			if err := adapter.MarkRead(ctx, msg.ProviderMessageID, true); err != nil {
				log.Printf("Warning: failed to mark message %s read on provider: %v", msg.ID, err)
			}
		}

		if msg.ThreadID != "" {
			threads[msg.ThreadID] = true
		}
		if msg.FolderID != "" {
			folders[msg.FolderID] = true
		}
	}

	for threadID := range threads {
		if err := s.threads.RecomputeStats(ctx, threadID); err != nil {
			log.Printf("Warning: failed to recompute thread %s: %v", threadID, err)
		}
	}
	for folderID := range folders {
		if err := db.RefreshFolderCounts(ctx, s.pool, folderID); err != nil {
			log.Printf("Warning: failed to refresh folder counts: %v", err)
		}
	}

	return count, nil
}

// mirror applies one provider-side operation for the message's
// account, logging instead of failing when the provider is unreachable.
func (s *Service) mirror(ctx context.Context, msg *models.Message, what string, op func(provider.Adapter) error) {
	adapter := s.dialAccount(ctx, msg.AccountID)
	if adapter == nil {
		return
	}
	defer adapter.Disconnect()

	if err := op(adapter); err != nil {
		log.Printf("Warning: failed to %s message %s on provider: %v", what, msg.ID, err)
	}
}

// refreshDerived recomputes the thread stats and folder counts a
// message mutation may have changed.
func (s *Service) refreshDerived(ctx context.Context, msg *models.Message) {
	if msg.ThreadID != "" {
		if err := s.threads.RecomputeStats(ctx, msg.ThreadID); err != nil {
			log.Printf("Warning: failed to recompute thread %s: %v", msg.ThreadID, err)
		}
	}
	if msg.FolderID != "" {
		if err := db.RefreshFolderCounts(ctx, s.pool, msg.FolderID); err != nil {
			log.Printf("Warning: failed to refresh folder counts: %v", err)
		}
	}
}

// dialAccount builds an adapter for the account, or nil after logging
// when the account cannot be loaded or the adapter cannot be built.
func (s *Service) dialAccount(ctx context.Context, accountID string) provider.Adapter {
	account, err := db.GetAccount(ctx, s.pool, accountID)
	if err != nil {
		log.Printf("Warning: failed to load account %s: %v", accountID, err)
		return nil
	}

	adapter, err := s.adapters.AdapterFor(account)
	if err != nil {
		log.Printf("Warning: failed to build adapter for %s: %v", account.EmailAddress, err)
		return nil
	}
	return adapter
}
