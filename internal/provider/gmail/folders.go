package gmail

import (
	"context"

	"github.com/paul2999Git/mailapp-sub000/internal/models"
	gmailapi "google.golang.org/api/gmail/v1"
)

// FetchFolders lists the account's labels and keeps the ones that act
// as folders. Utility labels such as UNREAD or STARRED describe message
// state, not location, and are skipped.
func (a *Adapter) FetchFolders(ctx context.Context) ([]*models.Folder, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Users.Labels.List(gmailUser).Context(ctx).Do()
	if err != nil {
		return nil, a.wrapErr("list labels", err)
	}

	folders := make([]*models.Folder, 0, len(resp.Labels))
	for _, label := range resp.Labels {
		folderType, keep := classifyLabel(label)
		if !keep {
			continue
		}

		// The listing carries no counts; those only come back from a
		// per-label get.
		detail, err := svc.Users.Labels.Get(gmailUser, label.Id).Context(ctx).Do()
		if err != nil {
			return nil, a.wrapErr("get label "+label.Id, err)
		}

		folders = append(folders, &models.Folder{
			ProviderFolderID: label.Id,
			Name:             label.Name,
			Type:             folderType,
			IsSystem:         label.Type != "user",
			MessageCount:     int(detail.MessagesTotal),
			UnreadCount:      int(detail.MessagesUnread),
		})
	}
	return folders, nil
}

// classifyLabel maps a Gmail label onto a folder type. The second
// return is false for system labels that are not folders.
func classifyLabel(label *gmailapi.Label) (models.FolderType, bool) {
	if label.Type == "user" {
		return models.FolderCustom, true
	}
	switch label.Id {
	case labelInbox:
		return models.FolderInbox, true
	case labelSent:
		return models.FolderSent, true
	case labelDrafts:
		return models.FolderDrafts, true
	case labelTrash:
		return models.FolderTrash, true
	case labelSpam:
		return models.FolderSpam, true
	}
	return models.FolderCustom, false
}

// CreateFolder creates a user label visible in both the label list and
// the message list.
func (a *Adapter) CreateFolder(ctx context.Context, name string) (*models.Folder, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}

	created, err := svc.Users.Labels.Create(gmailUser, &gmailapi.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return nil, a.wrapErr("create label", err)
	}

	return &models.Folder{
		ProviderFolderID: created.Id,
		Name:             created.Name,
		Type:             models.FolderCustom,
	}, nil
}
