package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
)

// SaveCategory saves or updates a triage category for a user.
func SaveCategory(ctx context.Context, pool *pgxpool.Pool, category *models.Category) error {
	var id string

	err := pool.QueryRow(ctx, `
		INSERT INTO categories (user_id, name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, name) DO UPDATE SET
			description = EXCLUDED.description
		RETURNING id
	`, category.UserID, category.Name, category.Description).Scan(&id)

	if err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}

	category.ID = id
	return nil
}

// ListCategories returns all categories configured by a user, in name order.
// An empty slice means the user has not configured any categories yet,
// which the classifier treats as an explicit "nothing to score against".
func ListCategories(ctx context.Context, pool *pgxpool.Pool, userID string) ([]*models.Category, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, user_id, name, description, created_at
		FROM categories
		WHERE user_id = $1
		ORDER BY name
	`, userID)

	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(
			&category.ID,
			&category.UserID,
			&category.Name,
			&category.Description,
			&category.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// DeleteCategory removes a category by user and name.
func DeleteCategory(ctx context.Context, pool *pgxpool.Pool, userID, name string) error {
	_, err := pool.Exec(ctx, `
		DELETE FROM categories
		WHERE user_id = $1 AND name = $2
	`, userID, name)

	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	return nil
}
