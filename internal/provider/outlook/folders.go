package outlook

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/paul2999Git/mailapp-sub000/internal/models"
)

// FetchFolders lists the account's mail folders, following pagination
// links until the listing is exhausted.
func (a *Adapter) FetchFolders(ctx context.Context) ([]*models.Folder, error) {
	var folders []*models.Folder

	query := url.Values{}
	query.Set("$top", "100")
	requestURL := a.baseURL + "/me/mailFolders?" + query.Encode()
	for requestURL != "" {
		var page folderList
		if err := a.do(ctx, "list folders", http.MethodGet, requestURL, nil, &page); err != nil {
			return nil, err
		}

		for _, gf := range page.Value {
			folderType := classifyFolder(gf.DisplayName)
			folders = append(folders, &models.Folder{
				ProviderFolderID: gf.ID,
				Name:             gf.DisplayName,
				Type:             folderType,
				IsSystem:         folderType != models.FolderCustom,
				MessageCount:     gf.TotalCount,
				UnreadCount:      gf.UnreadCount,
			})
		}
		requestURL = page.NextLink
	}
	return folders, nil
}

// classifyFolder maps the display names Graph gives its well-known
// folders onto folder types. Graph v1.0 does not expose wellKnownName,
// so names are all there is to go on.
func classifyFolder(displayName string) models.FolderType {
	switch strings.ToLower(displayName) {
	case "inbox":
		return models.FolderInbox
	case "sent items", "sent":
		return models.FolderSent
	case "drafts":
		return models.FolderDrafts
	case "deleted items", "trash":
		return models.FolderTrash
	case "junk email", "junk e-mail", "spam":
		return models.FolderSpam
	case "archive":
		return models.FolderArchive
	}
	return models.FolderCustom
}

// CreateFolder creates a top-level mail folder.
func (a *Adapter) CreateFolder(ctx context.Context, name string) (*models.Folder, error) {
	var created graphFolder
	err := a.do(ctx, "create folder", http.MethodPost, a.baseURL+"/me/mailFolders",
		map[string]string{"displayName": name}, &created)
	if err != nil {
		return nil, err
	}

	return &models.Folder{
		ProviderFolderID: created.ID,
		Name:             created.DisplayName,
		Type:             models.FolderCustom,
	}, nil
}
