// Package thread groups messages into cross-provider conversations
// keyed by (user, normalized subject, participating account). Thread
// aggregates are derived state: they are recomputed from the current
// non-hidden message set, never incremented in place.
package thread

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paul2999Git/mailapp-sub000/internal/db"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
)

// replyPrefixes are the subject markers mail clients prepend to replies
// and forwards. Only one leading marker is stripped: "Re: Re: x" and
// "Re: x" are deliberately different conversations, matching how the
// messages actually nest.
var replyPrefixes = []string{"re:", "fwd:", "fw:"}

// NormalizeSubject strips one leading reply/forward marker
// (case-insensitive) and trims surrounding whitespace, so "Re: Lunch"
// and "Lunch" land in the same conversation.
func NormalizeSubject(subject string) string {
	s := strings.TrimSpace(subject)
	lower := strings.ToLower(s)
	for _, prefix := range replyPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(s[len(prefix):])
		}
	}
	return s
}

// Service finds conversation buckets for synced messages and keeps
// their derived statistics consistent.
type Service struct {
	pool *pgxpool.Pool
}

// NewService returns a thread service backed by the given pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// FindOrCreate returns the thread a message belongs to, creating one
// seeded from the message when no existing thread matches. A thread
// matches only when the message's account already participates in it;
// the same subject on an unrelated account starts a fresh conversation.
func (s *Service) FindOrCreate(ctx context.Context, userID, accountID string, msg *models.Message) (*models.Thread, error) {
	normalized := NormalizeSubject(msg.Subject)

	existing, err := db.FindThread(ctx, s.pool, userID, normalized, accountID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, db.ErrThreadNotFound) {
		return nil, fmt.Errorf("failed to look up thread: %w", err)
	}

	unread := 0
	if !msg.IsRead {
		unread = 1
	}
	when := msg.SentAt
	if when == nil {
		when = msg.ReceivedAt
	}

	created := &models.Thread{
		UserID:            userID,
		NormalizedSubject: normalized,
		ParticipantEmails: seedParticipants(msg),
		AccountIDs:        []string{accountID},
		FirstMessageAt:    when,
		LastMessageAt:     when,
		MessageCount:      1,
		UnreadCount:       unread,
		HasAttachments:    msg.HasAttachments,
	}
	if err := db.CreateThread(ctx, s.pool, created); err != nil {
		return nil, err
	}
	return created, nil
}

// RecomputeStats re-derives a thread's counts, dates, participant set
// and account set from its current non-hidden messages. Call it after
// any operation that changes message visibility, read state or thread
// membership.
func (s *Service) RecomputeStats(ctx context.Context, threadID string) error {
	return db.RecomputeThreadStats(ctx, s.pool, threadID)
}

// seedParticipants extracts the distinct bare addresses from a single
// message, matching the normalization RecomputeStats applies in SQL.
func seedParticipants(msg *models.Message) []string {
	seen := make(map[string]bool)
	var participants []string

	add := func(formatted string) {
		addr := models.ExtractEmailAddress(formatted)
		if addr == "" || seen[addr] {
			return
		}
		seen[addr] = true
		participants = append(participants, addr)
	}

	add(msg.FromAddress)
	for _, to := range msg.ToAddresses {
		add(to)
	}
	for _, cc := range msg.CcAddresses {
		add(cc)
	}
	return participants
}
