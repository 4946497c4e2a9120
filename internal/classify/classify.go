// Package classify runs the triage pipeline for newly-synced messages:
// an idempotency gate, learned-rule matching, scorer fallback, audit
// persistence and best-effort provider-side relocation.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paul2999Git/mailapp-sub000/internal/db"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
)

// ruleModelID marks audit records produced by a learned rule instead of
// a scorer.
const ruleModelID = "learned-rule"

// Status is the outcome class of one classification attempt.
type Status string

const (
	// StatusSkipped means the message already carried a category.
	StatusSkipped Status = "skipped"
	// StatusRule means a learned rule routed the message.
	StatusRule Status = "rule"
	// StatusScored means the scorer assigned the category.
	StatusScored Status = "scored"
	// StatusNoCategories means the owner has no categories configured.
	// This is a reported outcome, not an error.
	StatusNoCategories Status = "no_categories"
)

// Outcome describes what one ClassifyMessage call did.
type Outcome struct {
	Status     Status
	Category   string
	Confidence float64
	// Moved is true when the message was relocated on the provider.
	Moved bool
}

// AdapterFactory builds a provider adapter for an account. Satisfied by
// factory.Factory; tests substitute fakes.
type AdapterFactory interface {
	AdapterFor(account *models.Account) (provider.Adapter, error)
}

// Service is the classification pipeline.
type Service struct {
	pool     *pgxpool.Pool
	adapters AdapterFactory
	scorer   Scorer
}

// NewService wires the pipeline around its three external boundaries.
func NewService(pool *pgxpool.Pool, adapters AdapterFactory, scorer Scorer) *Service {
	return &Service{pool: pool, adapters: adapters, scorer: scorer}
}

// ClassifyMessage classifies one message. Each step is a hard gate: a
// message that already has a category is skipped without touching the
// provider, a learned rule short-circuits scoring, and a user without
// categories gets an explicit no-categories outcome. Errors from the
// store or the scorer propagate so the job queue can retry; only the
// final relocation step is best-effort.
func (s *Service) ClassifyMessage(ctx context.Context, messageID string) (*Outcome, error) {
	msg, err := db.GetMessageByID(ctx, s.pool, messageID)
	if err != nil {
		return nil, err
	}

	// A non-null category means a previous run got at least as far as
	// persistence. Redelivered jobs stop here.
	if msg.AICategory != nil {
		out := &Outcome{Status: StatusSkipped, Category: *msg.AICategory}
		if msg.AIConfidence != nil {
			out.Confidence = *msg.AIConfidence
		}
		return out, nil
	}

	account, err := db.GetAccount(ctx, s.pool, msg.AccountID)
	if err != nil {
		return nil, err
	}

	sender := msg.SenderEmail()
	rule, err := db.FindMatchingRule(ctx, s.pool, msg.UserID, msg.AccountID, sender, models.EmailDomain(sender))
	if err == nil {
		return s.applyRule(ctx, account, msg, rule)
	}
	if !errors.Is(err, db.ErrRuleNotFound) {
		return nil, err
	}

	categories, err := db.ListCategories(ctx, s.pool, msg.UserID)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return &Outcome{Status: StatusNoCategories}, nil
	}

	return s.score(ctx, account, msg, categories)
}

// applyRule routes a message by a learned rule: fixed confidence 1.0,
// the rule's targets applied directly, usage counters bumped. Rule hits
// still append an audit record so the trail stays uniform.
func (s *Service) applyRule(ctx context.Context, account *models.Account, msg *models.Message, rule *models.LearnedRule) (*Outcome, error) {
	record := &models.ClassificationRecord{
		MessageID:   msg.ID,
		Category:    rule.TargetCategory,
		Confidence:  1.0,
		Explanation: fmt.Sprintf("Sender matched learned rule (%s %q)", rule.MatchType, rule.MatchValue),
		Factors:     []string{fmt.Sprintf("%s:%s", rule.MatchType, rule.MatchValue)},
		ModelID:     ruleModelID,
	}
	if err := db.SaveClassificationRecord(ctx, s.pool, record); err != nil {
		return nil, err
	}
	if err := db.SetMessageCategory(ctx, s.pool, msg.ID, rule.TargetCategory, 1.0, false); err != nil {
		return nil, err
	}
	if err := db.RecordRuleApplication(ctx, s.pool, rule.ID); err != nil {
		return nil, err
	}

	folderName := rule.TargetFolder
	if folderName == "" {
		folderName = rule.TargetCategory
	}
	moved := s.relocate(ctx, account, msg, folderName)

	return &Outcome{Status: StatusRule, Category: rule.TargetCategory, Confidence: 1.0, Moved: moved}, nil
}

// score invokes the scorer and persists its verdict. Scorer errors
// propagate; they are retried by the queue, not suppressed here.
func (s *Service) score(ctx context.Context, account *models.Account, msg *models.Message, categories []*models.Category) (*Outcome, error) {
	settings, err := db.GetUserSettings(ctx, s.pool, msg.UserID)
	if errors.Is(err, db.ErrUserSettingsNotFound) {
		settings = models.DefaultUserSettings(msg.UserID)
	} else if err != nil {
		return nil, err
	}

	input, charsSent := buildInput(account, msg, settings.BodyExcerptChars)

	result, err := s.scorer.Score(ctx, &ScoreRequest{Input: input, Categories: categories})
	if err != nil {
		return nil, fmt.Errorf("scorer failed for message %s: %w", msg.ID, err)
	}

	record := &models.ClassificationRecord{
		MessageID:     msg.ID,
		Category:      result.Category,
		Confidence:    result.Confidence,
		Explanation:   result.Explanation,
		Factors:       result.Factors,
		ModelID:       result.ModelID,
		PromptVersion: result.PromptVersion,
		UsedBody:      charsSent > 0,
		BodyCharsSent: charsSent,
	}
	if err := db.SaveClassificationRecord(ctx, s.pool, record); err != nil {
		return nil, err
	}
	if err := db.SetMessageCategory(ctx, s.pool, msg.ID, result.Category, result.Confidence, result.NeedsHumanReview); err != nil {
		return nil, err
	}

	moved := s.relocate(ctx, account, msg, result.Category)

	return &Outcome{Status: StatusScored, Category: result.Category, Confidence: result.Confidence, Moved: moved}, nil
}

// buildInput assembles the scorer input and reports how many body
// characters it carries. For providers that disallow exporting body
// content the excerpt is omitted entirely and the reported count is 0,
// never the true length.
func buildInput(account *models.Account, msg *models.Message, excerptChars int) (Input, int) {
	input := Input{
		Subject:        msg.Subject,
		From:           msg.FromAddress,
		To:             msg.ToAddresses,
		Cc:             msg.CcAddresses,
		Date:           msg.SentAt,
		IsReply:        msg.InReplyTo != "",
		HasAttachments: msg.HasAttachments,
		ProviderLabels: msg.ProviderLabels,
	}
	if input.Date == nil {
		input.Date = msg.ReceivedAt
	}

	kind := provider.Kind(account.Provider)
	if !kind.AllowsBodyExcerpt() {
		return input, 0
	}

	excerpt := []rune(msg.BodyText)
	if len(excerpt) > excerptChars {
		excerpt = excerpt[:excerptChars]
	}
	input.BodyExcerpt = string(excerpt)
	return input, len(excerpt)
}

// relocate moves a message into the folder named by its category (or a
// rule's explicit target folder) on the provider and mirrors the move
// locally. Best-effort: any failure is logged and leaves the already
// persisted classification untouched.
func (s *Service) relocate(ctx context.Context, account *models.Account, msg *models.Message, folderName string) bool {
	if folderName == "" {
		return false
	}

	folder, err := db.FindFolderByName(ctx, s.pool, account.ID, folderName)
	if errors.Is(err, db.ErrFolderNotFound) {
		return false
	}
	if err != nil {
		log.Printf("Warning: failed to resolve folder %q for message %s: %v", folderName, msg.ID, err)
		return false
	}
	if folder.ID == msg.FolderID {
		return false
	}

	adapter, err := s.adapters.AdapterFor(account)
	if err != nil {
		log.Printf("Warning: failed to build adapter for account %s: %v", account.ID, err)
		return false
	}
	defer adapter.Disconnect()

	if err := adapter.MoveToFolder(ctx, msg.ProviderMessageID, folder.ProviderFolderID); err != nil {
		log.Printf("Warning: failed to move message %s to folder %q: %v", msg.ID, folderName, err)
		return false
	}

	if err := db.SetMessageFolder(ctx, s.pool, msg.ID, folder.ID); err != nil {
		log.Printf("Warning: moved message %s on the provider but failed to record it: %v", msg.ID, err)
	}
	if msg.ThreadID != "" {
		if err := db.RecomputeThreadStats(ctx, s.pool, msg.ThreadID); err != nil {
			log.Printf("Warning: failed to recompute thread stats after move: %v", err)
		}
	}
	return true
}
