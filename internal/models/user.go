package models

import (
	"time"
)

// User owns accounts, threads, rules and categories.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserSettings holds per-user tuning for sync and classification.
type UserSettings struct {
	UserID              string    `json:"user_id"`
	SyncIntervalMinutes int       `json:"sync_interval_minutes"`
	BodyExcerptChars    int       `json:"body_excerpt_chars"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// DefaultUserSettings returns the settings applied when a user has no
// stored row yet.
func DefaultUserSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:              userID,
		SyncIntervalMinutes: 5,
		BodyExcerptChars:    1200,
	}
}
