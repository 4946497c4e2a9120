package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
)

func seedUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool, email string) string {
	t.Helper()

	userID, err := GetOrCreateUser(ctx, pool, email)
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}
	return userID
}

func seedAccount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userID, email string) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:       userID,
		Provider:     models.ProviderIMAP,
		EmailAddress: email,
		DisplayName:  "Test Account",
		IMAPHost:     "imap.example.com",
		IMAPPort:     993,
		SMTPHost:     "smtp.example.com",
		SMTPPort:     587,
		Username:     email,
		IsEnabled:    true,
	}
	if err := SaveAccount(ctx, pool, account); err != nil {
		t.Fatalf("SaveAccount failed: %v", err)
	}
	return account
}

func seedFolder(t *testing.T, ctx context.Context, pool *pgxpool.Pool, accountID, providerFolderID, name string, folderType models.FolderType) *models.Folder {
	t.Helper()

	folder := &models.Folder{
		AccountID:        accountID,
		ProviderFolderID: providerFolderID,
		Name:             name,
		Type:             folderType,
		IsSystem:         folderType != models.FolderCustom,
	}
	if err := SaveFolder(ctx, pool, folder); err != nil {
		t.Fatalf("SaveFolder failed: %v", err)
	}
	return folder
}

func seedMessage(t *testing.T, ctx context.Context, pool *pgxpool.Pool, message *models.Message) *models.Message {
	t.Helper()

	if err := SaveMessage(ctx, pool, message); err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}
	return message
}
