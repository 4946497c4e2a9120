package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
)

// ErrUserNotFound is returned when a requested user cannot be found.
var ErrUserNotFound = errors.New("user not found")

// ErrUserSettingsNotFound is returned when user settings cannot be found.
var ErrUserSettingsNotFound = errors.New("user settings not found")

// GetOrCreateUser returns the user's id for the given email.
// If no user exists with that email, it creates a new one.
func GetOrCreateUser(ctx context.Context, pool *pgxpool.Pool, email string) (string, error) {
	var userID string

	err := pool.QueryRow(ctx, `
		INSERT INTO users (email)
		VALUES ($1)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id
	`, email).Scan(&userID)

	if err != nil {
		return "", fmt.Errorf("failed to get or create user: %w", err)
	}

	return userID, nil
}

// GetUser returns the user with the given id.
func GetUser(ctx context.Context, pool *pgxpool.Pool, userID string) (*models.User, error) {
	var user models.User

	err := pool.QueryRow(ctx, `
		SELECT id, email, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.Email, &user.CreatedAt, &user.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetUserSettings returns the settings row for the given user.
// Callers that tolerate a missing row should fall back to
// models.DefaultUserSettings on ErrUserSettingsNotFound.
func GetUserSettings(ctx context.Context, pool *pgxpool.Pool, userID string) (*models.UserSettings, error) {
	var settings models.UserSettings

	err := pool.QueryRow(ctx, `
		SELECT user_id, sync_interval_minutes, body_excerpt_chars, created_at, updated_at
		FROM user_settings
		WHERE user_id = $1
	`, userID).Scan(
		&settings.UserID,
		&settings.SyncIntervalMinutes,
		&settings.BodyExcerptChars,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserSettingsNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get user settings: %w", err)
	}

	return &settings, nil
}

// SaveUserSettings saves the settings for the given user.
func SaveUserSettings(ctx context.Context, pool *pgxpool.Pool, settings *models.UserSettings) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO user_settings (user_id, sync_interval_minutes, body_excerpt_chars)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			sync_interval_minutes = EXCLUDED.sync_interval_minutes,
			body_excerpt_chars = EXCLUDED.body_excerpt_chars,
			updated_at = NOW()
	`, settings.UserID, settings.SyncIntervalMinutes, settings.BodyExcerptChars)

	if err != nil {
		return fmt.Errorf("failed to save user settings: %w", err)
	}

	return nil
}
