package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
)

// ErrRuleNotFound is returned when no learned rule matches or exists.
var ErrRuleNotFound = errors.New("learned rule not found")

const ruleColumns = `
	id,
	user_id,
	account_id,
	match_type,
	match_value,
	target_category,
	target_folder,
	priority,
	times_applied,
	last_applied_at,
	created_at,
	updated_at
`

func scanRule(row pgx.Row) (*models.LearnedRule, error) {
	var rule models.LearnedRule
	err := row.Scan(
		&rule.ID,
		&rule.UserID,
		&rule.AccountID,
		&rule.MatchType,
		&rule.MatchValue,
		&rule.TargetCategory,
		&rule.TargetFolder,
		&rule.Priority,
		&rule.TimesApplied,
		&rule.LastAppliedAt,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// FindMatchingRule returns the single best rule for a sender, or
// ErrRuleNotFound. A rule scoped to an account only applies to messages
// of that account; an exact sender-address rule always beats a domain
// rule. Rules are unique per (user, match type, match value), so at
// most one rule of each match type can apply to a given sender.
func FindMatchingRule(ctx context.Context, pool *pgxpool.Pool, userID, accountID, senderEmail, senderDomain string) (*models.LearnedRule, error) {
	rule, err := scanRule(pool.QueryRow(ctx, `
		SELECT `+ruleColumns+`
		FROM learned_rules
		WHERE user_id = $1
			AND (account_id IS NULL OR account_id = $2::uuid)
			AND (
				(match_type = 'sender_email' AND match_value = $3)
				OR (match_type = 'sender_domain' AND match_value = $4)
			)
		ORDER BY
			CASE match_type WHEN 'sender_email' THEN 0 ELSE 1 END,
			priority DESC
		LIMIT 1
	`, userID, accountID, senderEmail, senderDomain))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRuleNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find matching rule: %w", err)
	}

	return rule, nil
}

// SaveRule saves or updates a learned rule. Rules are unique per
// (user_id, match_type, match_value): teaching the engine a sender it
// already knows replaces the routing target instead of stacking rules.
func SaveRule(ctx context.Context, pool *pgxpool.Pool, rule *models.LearnedRule) error {
	var id string

	err := pool.QueryRow(ctx, `
		INSERT INTO learned_rules (
			user_id, account_id, match_type, match_value,
			target_category, target_folder, priority
		) VALUES ($1, $2::uuid, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, match_type, match_value) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			target_category = EXCLUDED.target_category,
			target_folder = EXCLUDED.target_folder,
			priority = EXCLUDED.priority,
			updated_at = NOW()
		RETURNING id
	`,
		rule.UserID,
		rule.AccountID,
		rule.MatchType,
		rule.MatchValue,
		rule.TargetCategory,
		rule.TargetFolder,
		rule.Priority,
	).Scan(&id)

	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}

	rule.ID = id
	return nil
}

// RecordRuleApplication bumps the usage counters of a rule.
func RecordRuleApplication(ctx context.Context, pool *pgxpool.Pool, ruleID string) error {
	tag, err := pool.Exec(ctx, `
		UPDATE learned_rules
		SET times_applied = times_applied + 1,
			last_applied_at = NOW(),
			updated_at = NOW()
		WHERE id = $1
	`, ruleID)

	if err != nil {
		return fmt.Errorf("failed to record rule application: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}

	return nil
}

// ListRulesForUser returns all learned rules of a user.
func ListRulesForUser(ctx context.Context, pool *pgxpool.Pool, userID string) ([]*models.LearnedRule, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM learned_rules
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)

	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.LearnedRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

// DeleteRule removes a learned rule.
func DeleteRule(ctx context.Context, pool *pgxpool.Pool, ruleID string) error {
	tag, err := pool.Exec(ctx, `
		DELETE FROM learned_rules
		WHERE id = $1
	`, ruleID)

	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}

	return nil
}
