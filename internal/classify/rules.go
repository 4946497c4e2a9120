package classify

import (
	"context"
	"fmt"

	"github.com/paul2999Git/mailapp-sub000/internal/db"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
)

// PermanentRule describes the routing a user wants remembered after
// overriding a classification.
type PermanentRule struct {
	// MatchType selects exact-sender or sender-domain matching.
	// Defaults to exact sender.
	MatchType models.RuleMatchType
	// TargetCategory and TargetFolder route future matches; at least
	// one must be set.
	TargetCategory string
	TargetFolder   string
	// AccountScoped narrows the rule to the message's account.
	// Re-teaching a sender replaces the stored rule's scope along with
	// its target.
	AccountScoped bool
}

// MakeRulePermanent turns a user's category override into a learned
// rule keyed on the message's sender. Rules are unique per (user,
// match type, match value), so repeating the override for the same
// sender updates the routing target instead of stacking rules.
func (s *Service) MakeRulePermanent(ctx context.Context, messageID string, opts PermanentRule) (*models.LearnedRule, error) {
	if opts.TargetCategory == "" && opts.TargetFolder == "" {
		return nil, &provider.ValidationError{Field: "target", Reason: "a rule needs a target category or folder"}
	}

	msg, err := db.GetMessageByID(ctx, s.pool, messageID)
	if err != nil {
		return nil, err
	}

	matchType := opts.MatchType
	if matchType == "" {
		matchType = models.MatchSenderEmail
	}

	matchValue := msg.SenderEmail()
	if matchType == models.MatchSenderDomain {
		matchValue = models.EmailDomain(msg.FromAddress)
	}
	if matchValue == "" {
		return nil, fmt.Errorf("message %s has no usable sender address", messageID)
	}

	rule := &models.LearnedRule{
		UserID:         msg.UserID,
		MatchType:      matchType,
		MatchValue:     matchValue,
		TargetCategory: opts.TargetCategory,
		TargetFolder:   opts.TargetFolder,
	}
	if opts.AccountScoped {
		accountID := msg.AccountID
		rule.AccountID = &accountID
	}

	if err := db.SaveRule(ctx, s.pool, rule); err != nil {
		return nil, err
	}
	return rule, nil
}
