package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
)

// ErrFolderNotFound is returned when a requested folder cannot be found.
var ErrFolderNotFound = errors.New("folder not found")

const folderColumns = `
	id,
	account_id,
	provider_folder_id,
	name,
	folder_type,
	is_system,
	message_count,
	unread_count,
	created_at,
	updated_at
`

func scanFolder(row pgx.Row) (*models.Folder, error) {
	var folder models.Folder
	err := row.Scan(
		&folder.ID,
		&folder.AccountID,
		&folder.ProviderFolderID,
		&folder.Name,
		&folder.Type,
		&folder.IsSystem,
		&folder.MessageCount,
		&folder.UnreadCount,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

// SaveFolder saves or updates a folder in the database.
// Folders are unique per (account_id, provider_folder_id); re-observing
// a known provider folder updates it in place, so renames and count
// drift on the provider side are picked up without duplicating rows.
func SaveFolder(ctx context.Context, pool *pgxpool.Pool, folder *models.Folder) error {
	var id string

	err := pool.QueryRow(ctx, `
		INSERT INTO folders (account_id, provider_folder_id, name, folder_type, is_system, message_count, unread_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id, provider_folder_id) DO UPDATE SET
			name = EXCLUDED.name,
			folder_type = EXCLUDED.folder_type,
			is_system = EXCLUDED.is_system,
			message_count = EXCLUDED.message_count,
			unread_count = EXCLUDED.unread_count,
			updated_at = NOW()
		RETURNING id
	`,
		folder.AccountID,
		folder.ProviderFolderID,
		folder.Name,
		folder.Type,
		folder.IsSystem,
		folder.MessageCount,
		folder.UnreadCount,
	).Scan(&id)

	if err != nil {
		return fmt.Errorf("failed to save folder: %w", err)
	}

	folder.ID = id
	return nil
}

// GetFolderByID returns the folder with the given id.
func GetFolderByID(ctx context.Context, pool *pgxpool.Pool, folderID string) (*models.Folder, error) {
	folder, err := scanFolder(pool.QueryRow(ctx, `
		SELECT `+folderColumns+`
		FROM folders
		WHERE id = $1
	`, folderID))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFolderNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}

	return folder, nil
}

// GetFoldersForAccount returns all folders for an account.
func GetFoldersForAccount(ctx context.Context, pool *pgxpool.Pool, accountID string) ([]*models.Folder, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+folderColumns+`
		FROM folders
		WHERE account_id = $1
		ORDER BY name
	`, accountID)

	if err != nil {
		return nil, fmt.Errorf("failed to get folders: %w", err)
	}
	defer rows.Close()

	var folders []*models.Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating folders: %w", err)
	}

	return folders, nil
}

// GetFolderByType returns the first folder of the given type for an
// account. System folders are preferred over custom ones with the same
// type, which matters for providers that expose several archives.
func GetFolderByType(ctx context.Context, pool *pgxpool.Pool, accountID string, folderType models.FolderType) (*models.Folder, error) {
	folder, err := scanFolder(pool.QueryRow(ctx, `
		SELECT `+folderColumns+`
		FROM folders
		WHERE account_id = $1 AND folder_type = $2
		ORDER BY is_system DESC, created_at
		LIMIT 1
	`, accountID, folderType))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFolderNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get folder by type: %w", err)
	}

	return folder, nil
}

// FindFolderByName returns the folder whose name matches case-insensitively.
// Used to resolve classification target folders against provider folders.
func FindFolderByName(ctx context.Context, pool *pgxpool.Pool, accountID, name string) (*models.Folder, error) {
	folder, err := scanFolder(pool.QueryRow(ctx, `
		SELECT `+folderColumns+`
		FROM folders
		WHERE account_id = $1 AND LOWER(name) = LOWER($2)
		ORDER BY is_system DESC, created_at
		LIMIT 1
	`, accountID, name))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFolderNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find folder by name: %w", err)
	}

	return folder, nil
}

// RefreshFolderCounts recomputes the materialized message and unread
// counts for a folder from its current non-hidden messages.
func RefreshFolderCounts(ctx context.Context, pool *pgxpool.Pool, folderID string) error {
	_, err := pool.Exec(ctx, `
		UPDATE folders
		SET message_count = sub.total,
			unread_count = sub.unread,
			updated_at = NOW()
		FROM (
			SELECT COUNT(*) AS total,
				COUNT(*) FILTER (WHERE NOT is_read) AS unread
			FROM messages
			WHERE folder_id = $1 AND NOT is_hidden
		) sub
		WHERE folders.id = $1
	`, folderID)

	if err != nil {
		return fmt.Errorf("failed to refresh folder counts: %w", err)
	}

	return nil
}
