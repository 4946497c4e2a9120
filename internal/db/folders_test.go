package db

import (
	"context"
	"errors"
	"testing"

	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSaveFolderUpsert(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	userID := seedUser(t, ctx, pool, "owner@example.com")
	account := seedAccount(t, ctx, pool, userID, "box@example.com")

	folder := seedFolder(t, ctx, pool, account.ID, "label-42", "Receipts", models.FolderCustom)

	// The provider renamed the folder; same provider id, new name.
	renamed := &models.Folder{
		AccountID:        account.ID,
		ProviderFolderID: "label-42",
		Name:             "Invoices",
		Type:             models.FolderCustom,
		MessageCount:     12,
		UnreadCount:      3,
	}
	err := SaveFolder(ctx, pool, renamed)
	assert.NoError(t, err)
	assert.Equal(t, folder.ID, renamed.ID)

	folders, err := GetFoldersForAccount(ctx, pool, account.ID)
	assert.NoError(t, err)
	assert.Len(t, folders, 1)
	assert.Equal(t, "Invoices", folders[0].Name)
	assert.Equal(t, 12, folders[0].MessageCount)
	assert.Equal(t, 3, folders[0].UnreadCount)
}

func TestGetFolderByType(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	userID := seedUser(t, ctx, pool, "owner@example.com")
	account := seedAccount(t, ctx, pool, userID, "box@example.com")

	seedFolder(t, ctx, pool, account.ID, "INBOX", "INBOX", models.FolderInbox)
	seedFolder(t, ctx, pool, account.ID, "Sent", "Sent", models.FolderSent)

	inbox, err := GetFolderByType(ctx, pool, account.ID, models.FolderInbox)
	assert.NoError(t, err)
	assert.Equal(t, "INBOX", inbox.Name)

	_, err = GetFolderByType(ctx, pool, account.ID, models.FolderSpam)
	assert.True(t, errors.Is(err, ErrFolderNotFound))
}

func TestFindFolderByNameIsCaseInsensitive(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	userID := seedUser(t, ctx, pool, "owner@example.com")
	account := seedAccount(t, ctx, pool, userID, "box@example.com")

	folder := seedFolder(t, ctx, pool, account.ID, "label-7", "Newsletters", models.FolderCustom)

	found, err := FindFolderByName(ctx, pool, account.ID, "newsletters")
	assert.NoError(t, err)
	assert.Equal(t, folder.ID, found.ID)

	found, err = FindFolderByName(ctx, pool, account.ID, "NEWSLETTERS")
	assert.NoError(t, err)
	assert.Equal(t, folder.ID, found.ID)

	_, err = FindFolderByName(ctx, pool, account.ID, "nonexistent")
	assert.True(t, errors.Is(err, ErrFolderNotFound))
}

func TestRefreshFolderCounts(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	userID := seedUser(t, ctx, pool, "owner@example.com")
	account := seedAccount(t, ctx, pool, userID, "box@example.com")
	folder := seedFolder(t, ctx, pool, account.ID, "INBOX", "INBOX", models.FolderInbox)

	for i, read := range []bool{true, false, false} {
		seedMessage(t, ctx, pool, &models.Message{
			AccountID:         account.ID,
			UserID:            userID,
			FolderID:          folder.ID,
			ProviderMessageID: string(rune('a' + i)),
			Subject:           "msg",
			FromAddress:       "someone@example.com",
			IsRead:            read,
		})
	}
	hidden := seedMessage(t, ctx, pool, &models.Message{
		AccountID:         account.ID,
		UserID:            userID,
		FolderID:          folder.ID,
		ProviderMessageID: "z",
		Subject:           "hidden",
		FromAddress:       "someone@example.com",
	})
	assert.NoError(t, HideMessage(ctx, pool, hidden.ID))

	err := RefreshFolderCounts(ctx, pool, folder.ID)
	assert.NoError(t, err)

	refreshed, err := GetFolderByID(ctx, pool, folder.ID)
	assert.NoError(t, err)
	assert.Equal(t, 3, refreshed.MessageCount)
	assert.Equal(t, 2, refreshed.UnreadCount)
}
