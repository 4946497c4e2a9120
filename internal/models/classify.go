package models

import (
	"strings"
	"time"
)

// RuleMatchType is how a learned rule matches a sender.
type RuleMatchType string

const (
	MatchSenderEmail  RuleMatchType = "sender_email"
	MatchSenderDomain RuleMatchType = "sender_domain"
)

// LearnedRule routes messages from a known sender (or sender domain)
// without invoking the scorer. Unique per (user, match_type,
// match_value); AccountID narrows the rule to one account when set.
type LearnedRule struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	AccountID      *string       `json:"account_id,omitempty"`
	MatchType      RuleMatchType `json:"match_type"`
	MatchValue     string        `json:"match_value"`
	TargetCategory string        `json:"target_category,omitempty"`
	TargetFolder   string        `json:"target_folder,omitempty"`
	Priority       int           `json:"priority"`
	TimesApplied   int           `json:"times_applied"`
	LastAppliedAt  *time.Time    `json:"last_applied_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Category is a user-configured triage category.
type Category struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ClassificationRecord is one append-only audit entry for a message
// classification. A message may accumulate several over time; only the
// most recent drives the message's denormalized category.
type ClassificationRecord struct {
	ID            string    `json:"id"`
	MessageID     string    `json:"message_id"`
	Category      string    `json:"category"`
	Confidence    float64   `json:"confidence"`
	Explanation   string    `json:"explanation"`
	Factors       []string  `json:"factors"`
	ModelID       string    `json:"model_id"`
	PromptVersion string    `json:"prompt_version"`
	UsedBody      bool      `json:"used_body"`
	BodyCharsSent int       `json:"body_chars_sent"`
	CreatedAt     time.Time `json:"created_at"`
}

// ExtractEmailAddress pulls the bare address out of a formatted address
// like `Jane Doe <jane@example.com>`, lower-cased and trimmed.
func ExtractEmailAddress(formatted string) string {
	addr := strings.TrimSpace(formatted)
	if start := strings.LastIndex(addr, "<"); start >= 0 {
		if end := strings.Index(addr[start:], ">"); end > 0 {
			addr = addr[start+1 : start+end]
		}
	}
	return strings.ToLower(strings.TrimSpace(addr))
}

// EmailDomain returns the domain part of an address, lower-cased.
// Returns "" when the address has no @.
func EmailDomain(address string) string {
	addr := ExtractEmailAddress(address)
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return addr[at+1:]
}
