package classify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paul2999Git/mailapp-sub000/internal/db"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
	"github.com/paul2999Git/mailapp-sub000/internal/testutil"
	"github.com/stretchr/testify/require"
)

// stubScorer returns a fixed verdict and records what it was asked.
type stubScorer struct {
	calls  int
	last   *ScoreRequest
	result *ScoreResult
	err    error
}

func (s *stubScorer) Score(_ context.Context, req *ScoreRequest) (*ScoreResult, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type move struct {
	messageID string
	folderID  string
}

// fakeAdapter is a provider.Adapter whose mutations succeed and are
// recorded. Tests force failures through the error fields.
type fakeAdapter struct {
	moves   []move
	moveErr error
}

func (a *fakeAdapter) Kind() provider.Kind { return provider.KindIMAP }

func (a *fakeAdapter) TestConnection(context.Context) (*provider.ConnectionTest, error) {
	return &provider.ConnectionTest{Success: true}, nil
}

func (a *fakeAdapter) FetchFolders(context.Context) ([]*models.Folder, error) { return nil, nil }

func (a *fakeAdapter) SyncMessages(context.Context, provider.SyncOptions) (*provider.SyncResult, error) {
	return &provider.SyncResult{}, nil
}

func (a *fakeAdapter) FetchMessage(context.Context, string) (*models.Message, error) {
	return nil, provider.ErrNotFound
}

func (a *fakeAdapter) MarkRead(context.Context, string, bool) error    { return nil }
func (a *fakeAdapter) MarkStarred(context.Context, string, bool) error { return nil }

func (a *fakeAdapter) MoveToFolder(_ context.Context, messageID, folderID string) error {
	if a.moveErr != nil {
		return a.moveErr
	}
	a.moves = append(a.moves, move{messageID: messageID, folderID: folderID})
	return nil
}

func (a *fakeAdapter) MoveToTrash(context.Context, string) error { return nil }
func (a *fakeAdapter) Archive(context.Context, string) error     { return nil }

func (a *fakeAdapter) CreateFolder(_ context.Context, name string) (*models.Folder, error) {
	return &models.Folder{ProviderFolderID: name, Name: name, Type: models.FolderCustom}, nil
}

func (a *fakeAdapter) SaveDraft(context.Context, *provider.OutgoingMessage) (string, error) {
	return "", nil
}

func (a *fakeAdapter) SendMail(context.Context, *provider.OutgoingMessage) error { return nil }

func (a *fakeAdapter) FetchAttachment(context.Context, string, string) ([]byte, error) {
	return nil, provider.ErrNotFound
}

func (a *fakeAdapter) RefreshTokens(context.Context) (*provider.TokenBundle, error) {
	return nil, nil
}

func (a *fakeAdapter) Disconnect() {}

// stubFactory hands out one fixed adapter for every account.
type stubFactory struct {
	adapter provider.Adapter
	err     error
}

func (f *stubFactory) AdapterFor(*models.Account) (provider.Adapter, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.adapter, nil
}

func seedUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool, email string) string {
	t.Helper()

	userID, err := db.GetOrCreateUser(ctx, pool, email)
	require.NoError(t, err)
	return userID
}

func seedAccount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userID string, kind models.ProviderKind, email string) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:       userID,
		Provider:     kind,
		EmailAddress: email,
		IMAPHost:     "imap.example.com",
		IMAPPort:     993,
		Username:     email,
		IsEnabled:    true,
	}
	require.NoError(t, db.SaveAccount(ctx, pool, account))
	return account
}

func seedCategory(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userID, name, description string) {
	t.Helper()

	require.NoError(t, db.SaveCategory(ctx, pool, &models.Category{
		UserID:      userID,
		Name:        name,
		Description: description,
	}))
}

func seedMessage(t *testing.T, ctx context.Context, pool *pgxpool.Pool, msg *models.Message) *models.Message {
	t.Helper()

	if msg.SentAt == nil {
		sent := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
		msg.SentAt = &sent
	}
	require.NoError(t, db.SaveMessage(ctx, pool, msg))
	return msg
}

func TestClassifyMessage(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	userID := seedUser(t, ctx, pool, "owner@example.com")
	account := seedAccount(t, ctx, pool, userID, models.ProviderIMAP, "box@example.com")
	seedCategory(t, ctx, pool, userID, "Finance", "bills, invoices and receipts")
	seedCategory(t, ctx, pool, userID, "Travel", "")

	scorer := &stubScorer{result: &ScoreResult{
		Category:      "Finance",
		Confidence:    0.82,
		Explanation:   "Invoice number in the subject",
		Factors:       []string{"subject mentions an invoice"},
		ModelID:       "claude-sonnet-4-20250514",
		PromptVersion: "triage-v1",
	}}
	svc := NewService(pool, &stubFactory{adapter: &fakeAdapter{}}, scorer)

	msg := seedMessage(t, ctx, pool, &models.Message{
		AccountID:         account.ID,
		UserID:            userID,
		ProviderMessageID: "1:10",
		Subject:           "Invoice #42",
		FromAddress:       "billing@acme.com",
		BodyText:          "Your invoice is attached.",
	})

	outcome, err := svc.ClassifyMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, StatusScored, outcome.Status)
	require.Equal(t, "Finance", outcome.Category)
	require.InDelta(t, 0.82, outcome.Confidence, 1e-9)
	require.Equal(t, 1, scorer.calls)

	stored, err := db.GetMessageByID(ctx, pool, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AICategory)
	require.Equal(t, "Finance", *stored.AICategory)
	require.NotNil(t, stored.AIConfidence)
	require.False(t, stored.IsQuarantined)

	records, err := db.GetClassificationRecords(ctx, pool, msg.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "claude-sonnet-4-20250514", records[0].ModelID)
	require.Equal(t, "triage-v1", records[0].PromptVersion)
	require.True(t, records[0].UsedBody)
	require.Equal(t, len("Your invoice is attached."), records[0].BodyCharsSent)

	t.Run("redelivered job is skipped without rescoring", func(t *testing.T) {
		outcome, err := svc.ClassifyMessage(ctx, msg.ID)
		require.NoError(t, err)
		require.Equal(t, StatusSkipped, outcome.Status)
		require.Equal(t, "Finance", outcome.Category)

		// No second scorer call, no second audit entry.
		require.Equal(t, 1, scorer.calls)
		records, err := db.GetClassificationRecords(ctx, pool, msg.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
	})

	t.Run("review verdict quarantines the message", func(t *testing.T) {
		scorer.result = &ScoreResult{
			Category:         "Travel",
			Confidence:       0.31,
			NeedsHumanReview: true,
			ModelID:          "claude-sonnet-4-20250514",
		}

		flagged := seedMessage(t, ctx, pool, &models.Message{
			AccountID:         account.ID,
			UserID:            userID,
			ProviderMessageID: "1:11",
			Subject:           "Itinerary?",
			FromAddress:       "someone@example.net",
		})

		outcome, err := svc.ClassifyMessage(ctx, flagged.ID)
		require.NoError(t, err)
		require.Equal(t, StatusScored, outcome.Status)

		stored, err := db.GetMessageByID(ctx, pool, flagged.ID)
		require.NoError(t, err)
		require.True(t, stored.IsQuarantined)
	})

	t.Run("scorer failure propagates for the queue to retry", func(t *testing.T) {
		scorer.err = errors.New("model overloaded")
		defer func() { scorer.err = nil }()

		failing := seedMessage(t, ctx, pool, &models.Message{
			AccountID:         account.ID,
			UserID:            userID,
			ProviderMessageID: "1:12",
			Subject:           "Hello",
			FromAddress:       "someone@example.net",
		})

		_, err := svc.ClassifyMessage(ctx, failing.ID)
		require.Error(t, err)

		// Nothing persisted: the retried job starts from a clean gate.
		stored, err := db.GetMessageByID(ctx, pool, failing.ID)
		require.NoError(t, err)
		require.Nil(t, stored.AICategory)
	})
}

func TestClassifyRuleGate(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	userID := seedUser(t, ctx, pool, "owner@example.com")
	account := seedAccount(t, ctx, pool, userID, models.ProviderIMAP, "box@example.com")
	other := seedAccount(t, ctx, pool, userID, models.ProviderIMAP, "other@example.com")

	exact := &models.LearnedRule{
		UserID:         userID,
		MatchType:      models.MatchSenderEmail,
		MatchValue:     "billing@acme.com",
		TargetCategory: "Receipts",
	}
	require.NoError(t, db.SaveRule(ctx, pool, exact))

	domain := &models.LearnedRule{
		UserID:         userID,
		MatchType:      models.MatchSenderDomain,
		MatchValue:     "acme.com",
		TargetCategory: "Newsletters",
	}
	require.NoError(t, db.SaveRule(ctx, pool, domain))

	scorer := &stubScorer{result: &ScoreResult{Category: "ShouldNotRun", ModelID: "x"}}
	svc := NewService(pool, &stubFactory{adapter: &fakeAdapter{}}, scorer)

	t.Run("exact sender rule beats domain rule", func(t *testing.T) {
		msg := seedMessage(t, ctx, pool, &models.Message{
			AccountID:         account.ID,
			UserID:            userID,
			ProviderMessageID: "1:20",
			Subject:           "Your receipt",
			FromAddress:       "Acme Billing <BILLING@acme.com>",
		})

		outcome, err := svc.ClassifyMessage(ctx, msg.ID)
		require.NoError(t, err)
		require.Equal(t, StatusRule, outcome.Status)
		require.Equal(t, "Receipts", outcome.Category)
		require.InDelta(t, 1.0, outcome.Confidence, 1e-9)
		require.Equal(t, 0, scorer.calls)

		// Rule hits still land in the audit trail.
		records, err := db.GetClassificationRecords(ctx, pool, msg.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, "learned-rule", records[0].ModelID)
		require.InDelta(t, 1.0, records[0].Confidence, 1e-9)
		require.False(t, records[0].UsedBody)

		// Only the winning rule's counters move.
		rules, err := db.ListRulesForUser(ctx, pool, userID)
		require.NoError(t, err)
		byValue := map[string]*models.LearnedRule{}
		for _, r := range rules {
			byValue[r.MatchValue] = r
		}
		require.Equal(t, 1, byValue["billing@acme.com"].TimesApplied)
		require.NotNil(t, byValue["billing@acme.com"].LastAppliedAt)
		require.Equal(t, 0, byValue["acme.com"].TimesApplied)
	})

	t.Run("domain rule applies when no exact rule matches", func(t *testing.T) {
		msg := seedMessage(t, ctx, pool, &models.Message{
			AccountID:         account.ID,
			UserID:            userID,
			ProviderMessageID: "1:21",
			Subject:           "News",
			FromAddress:       "updates@acme.com",
		})

		outcome, err := svc.ClassifyMessage(ctx, msg.ID)
		require.NoError(t, err)
		require.Equal(t, StatusRule, outcome.Status)
		require.Equal(t, "Newsletters", outcome.Category)
	})

	t.Run("account-scoped rule stays on its account", func(t *testing.T) {
		scopedTo := other.ID
		scoped := &models.LearnedRule{
			UserID:         userID,
			AccountID:      &scopedTo,
			MatchType:      models.MatchSenderEmail,
			MatchValue:     "deals@shop.example",
			TargetCategory: "Shopping",
		}
		require.NoError(t, db.SaveRule(ctx, pool, scoped))

		// Same sender on a different account: the scoped rule must not
		// fire, and with no categories configured the pipeline reports
		// the explicit no-categories outcome instead of failing.
		msg := seedMessage(t, ctx, pool, &models.Message{
			AccountID:         account.ID,
			UserID:            userID,
			ProviderMessageID: "1:22",
			Subject:           "Deals!",
			FromAddress:       "deals@shop.example",
		})

		outcome, err := svc.ClassifyMessage(ctx, msg.ID)
		require.NoError(t, err)
		require.Equal(t, StatusNoCategories, outcome.Status)

		stored, err := db.GetMessageByID(ctx, pool, msg.ID)
		require.NoError(t, err)
		require.Nil(t, stored.AICategory)

		records, err := db.GetClassificationRecords(ctx, pool, msg.ID)
		require.NoError(t, err)
		require.Empty(t, records)
	})
}

func TestClassifyRelocation(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	userID := seedUser(t, ctx, pool, "owner@example.com")
	account := seedAccount(t, ctx, pool, userID, models.ProviderIMAP, "box@example.com")
	seedCategory(t, ctx, pool, userID, "Receipts", "")

	inbox := &models.Folder{AccountID: account.ID, ProviderFolderID: "INBOX", Name: "INBOX", Type: models.FolderInbox, IsSystem: true}
	require.NoError(t, db.SaveFolder(ctx, pool, inbox))
	receipts := &models.Folder{AccountID: account.ID, ProviderFolderID: "Receipts", Name: "Receipts", Type: models.FolderCustom}
	require.NoError(t, db.SaveFolder(ctx, pool, receipts))

	adapter := &fakeAdapter{}
	scorer := &stubScorer{result: &ScoreResult{Category: "receipts", Confidence: 0.9, ModelID: "m"}}
	svc := NewService(pool, &stubFactory{adapter: adapter}, scorer)

	// The verdict's category resolves to the folder case-insensitively.
	msg := seedMessage(t, ctx, pool, &models.Message{
		AccountID:         account.ID,
		UserID:            userID,
		FolderID:          inbox.ID,
		ProviderMessageID: "1:30",
		Subject:           "Order confirmation",
		FromAddress:       "shop@example.net",
	})

	outcome, err := svc.ClassifyMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, StatusScored, outcome.Status)
	require.True(t, outcome.Moved)
	require.Equal(t, []move{{messageID: "1:30", folderID: "Receipts"}}, adapter.moves)

	stored, err := db.GetMessageByID(ctx, pool, msg.ID)
	require.NoError(t, err)
	require.Equal(t, receipts.ID, stored.FolderID)

	t.Run("provider move failure never reverts the classification", func(t *testing.T) {
		adapter.moveErr = errors.New("mailbox is gone")
		defer func() { adapter.moveErr = nil }()

		msg := seedMessage(t, ctx, pool, &models.Message{
			AccountID:         account.ID,
			UserID:            userID,
			FolderID:          inbox.ID,
			ProviderMessageID: "1:31",
			Subject:           "Another order",
			FromAddress:       "shop@example.net",
		})

		outcome, err := svc.ClassifyMessage(ctx, msg.ID)
		require.NoError(t, err)
		require.Equal(t, StatusScored, outcome.Status)
		require.False(t, outcome.Moved)

		stored, err := db.GetMessageByID(ctx, pool, msg.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.AICategory)
		require.Equal(t, inbox.ID, stored.FolderID)
	})

	t.Run("message already in the target folder stays put", func(t *testing.T) {
		before := len(adapter.moves)

		msg := seedMessage(t, ctx, pool, &models.Message{
			AccountID:         account.ID,
			UserID:            userID,
			FolderID:          receipts.ID,
			ProviderMessageID: "1:32",
			Subject:           "Filed already",
			FromAddress:       "shop@example.net",
		})

		outcome, err := svc.ClassifyMessage(ctx, msg.ID)
		require.NoError(t, err)
		require.False(t, outcome.Moved)
		require.Len(t, adapter.moves, before)
	})

	t.Run("category without a matching folder skips the move", func(t *testing.T) {
		scorer.result = &ScoreResult{Category: "Unfiled", Confidence: 0.5, ModelID: "m"}

		msg := seedMessage(t, ctx, pool, &models.Message{
			AccountID:         account.ID,
			UserID:            userID,
			FolderID:          inbox.ID,
			ProviderMessageID: "1:33",
			Subject:           "Misc",
			FromAddress:       "shop@example.net",
		})

		outcome, err := svc.ClassifyMessage(ctx, msg.ID)
		require.NoError(t, err)
		require.Equal(t, StatusScored, outcome.Status)
		require.False(t, outcome.Moved)
	})
}

func TestClassifyBodyExcerptPolicy(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	userID := seedUser(t, ctx, pool, "owner@example.com")
	seedCategory(t, ctx, pool, userID, "Finance", "")

	settings := models.DefaultUserSettings(userID)
	settings.BodyExcerptChars = 10
	require.NoError(t, db.SaveUserSettings(ctx, pool, settings))

	scorer := &stubScorer{result: &ScoreResult{Category: "Finance", Confidence: 0.7, ModelID: "m"}}
	svc := NewService(pool, &stubFactory{adapter: &fakeAdapter{}}, scorer)

	t.Run("excerpt is capped at the configured length", func(t *testing.T) {
		account := seedAccount(t, ctx, pool, userID, models.ProviderIMAP, "box@example.com")
		msg := seedMessage(t, ctx, pool, &models.Message{
			AccountID:         account.ID,
			UserID:            userID,
			ProviderMessageID: "1:40",
			Subject:           "Statement",
			FromAddress:       "bank@example.net",
			BodyText:          "0123456789 and a lot more text after the cap",
		})

		_, err := svc.ClassifyMessage(ctx, msg.ID)
		require.NoError(t, err)
		require.Equal(t, "0123456789", scorer.last.Input.BodyExcerpt)

		records, err := db.GetClassificationRecords(ctx, pool, msg.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.True(t, records[0].UsedBody)
		require.Equal(t, 10, records[0].BodyCharsSent)
	})

	t.Run("restricted provider sends no body and records zero chars", func(t *testing.T) {
		account := seedAccount(t, ctx, pool, userID, models.ProviderOutlook, "work@example.com")
		msg := seedMessage(t, ctx, pool, &models.Message{
			AccountID:         account.ID,
			UserID:            userID,
			ProviderMessageID: "AAMk-1",
			Subject:           "Statement",
			FromAddress:       "bank@example.net",
			BodyText:          "confidential body content",
		})

		_, err := svc.ClassifyMessage(ctx, msg.ID)
		require.NoError(t, err)
		require.Empty(t, scorer.last.Input.BodyExcerpt)

		records, err := db.GetClassificationRecords(ctx, pool, msg.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.False(t, records[0].UsedBody)
		require.Equal(t, 0, records[0].BodyCharsSent)
	})
}
