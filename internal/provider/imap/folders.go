package imap

import (
	"context"
	"log"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
)

// FetchFolders lists every mailbox on the account, classified into the
// closed folder-type set and annotated with live STATUS counts.
func (a *Adapter) FetchFolders(ctx context.Context) ([]*models.Folder, error) {
	c, err := a.acquire(ctx)
	if err != nil {
		return nil, err
	}

	mailboxes := make(chan *imap.MailboxInfo, 20)
	done := make(chan error, 1)
	go func() {
		done <- c.List("", "*", mailboxes)
	}()

	// Drain the listing fully before issuing STATUS; the client cannot
	// interleave commands while LIST is streaming.
	var infos []*imap.MailboxInfo
	for mbox := range mailboxes {
		infos = append(infos, mbox)
	}

	if err := <-done; err != nil {
		return nil, a.opErr("list mailboxes", err)
	}

	folders := make([]*models.Folder, 0, len(infos))
	for _, mbox := range infos {
		folderType := classifyMailbox(mbox)
		folder := &models.Folder{
			ProviderFolderID: mbox.Name,
			Name:             mbox.Name,
			Type:             folderType,
			IsSystem:         folderType != models.FolderCustom,
		}

		if !hasAttribute(mbox, imap.NoSelectAttr) {
			status, err := c.Status(mbox.Name, []imap.StatusItem{imap.StatusMessages, imap.StatusUnseen})
			if err != nil {
				log.Printf("Warning: STATUS failed for mailbox %s: %v", mbox.Name, err)
			} else {
				folder.MessageCount = int(status.Messages)
				folder.UnreadCount = int(status.Unseen)
			}
		}

		folders = append(folders, folder)
	}

	return folders, nil
}

func hasAttribute(mbox *imap.MailboxInfo, attr string) bool {
	for _, a := range mbox.Attributes {
		if a == attr {
			return true
		}
	}
	return false
}

// classifyMailbox maps a mailbox onto the closed folder-type set,
// preferring SPECIAL-USE attributes and falling back to well-known
// names for servers that do not advertise them.
func classifyMailbox(mbox *imap.MailboxInfo) models.FolderType {
	for _, attr := range mbox.Attributes {
		switch attr {
		case imap.SentAttr:
			return models.FolderSent
		case imap.DraftsAttr:
			return models.FolderDrafts
		case imap.TrashAttr:
			return models.FolderTrash
		case imap.JunkAttr:
			return models.FolderSpam
		case imap.ArchiveAttr:
			return models.FolderArchive
		}
	}

	name := mbox.Name
	if mbox.Delimiter != "" {
		parts := strings.Split(name, mbox.Delimiter)
		name = parts[len(parts)-1]
	}

	switch strings.ToLower(name) {
	case "inbox":
		return models.FolderInbox
	case "sent", "sent items", "sent messages":
		return models.FolderSent
	case "drafts":
		return models.FolderDrafts
	case "trash", "deleted items", "deleted messages":
		return models.FolderTrash
	case "spam", "junk", "junk mail", "junk e-mail":
		return models.FolderSpam
	case "archive", "archives", "all mail":
		return models.FolderArchive
	}
	return models.FolderCustom
}

// CreateFolder creates a new mailbox and returns its skeleton.
func (a *Adapter) CreateFolder(ctx context.Context, name string) (*models.Folder, error) {
	c, err := a.acquire(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.Create(name); err != nil {
		return nil, a.opErr("create mailbox "+name, err)
	}

	return &models.Folder{
		ProviderFolderID: name,
		Name:             name,
		Type:             models.FolderCustom,
	}, nil
}

// resolveSpecialMailbox finds the mailbox filling a folder role.
func (a *Adapter) resolveSpecialMailbox(ctx context.Context, folderType models.FolderType) (string, error) {
	folders, err := a.FetchFolders(ctx)
	if err != nil {
		return "", err
	}
	for _, folder := range folders {
		if folder.Type == folderType {
			return folder.ProviderFolderID, nil
		}
	}
	return "", provider.ErrNotFound
}
