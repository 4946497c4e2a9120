package gmail

import (
	"context"

	gmailapi "google.golang.org/api/gmail/v1"
)

// modify applies a label change to one message.
func (a *Adapter) modify(ctx context.Context, providerMessageID string, add, remove []string) error {
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}

	req := &gmailapi.ModifyMessageRequest{AddLabelIds: add, RemoveLabelIds: remove}
	if _, err := svc.Users.Messages.Modify(gmailUser, providerMessageID, req).Context(ctx).Do(); err != nil {
		return a.wrapErr("modify labels", err)
	}
	return nil
}

// MarkRead toggles the UNREAD label.
func (a *Adapter) MarkRead(ctx context.Context, providerMessageID string, read bool) error {
	if read {
		return a.modify(ctx, providerMessageID, nil, []string{labelUnread})
	}
	return a.modify(ctx, providerMessageID, []string{labelUnread}, nil)
}

// MarkStarred toggles the STARRED label.
func (a *Adapter) MarkStarred(ctx context.Context, providerMessageID string, starred bool) error {
	if starred {
		return a.modify(ctx, providerMessageID, []string{labelStarred}, nil)
	}
	return a.modify(ctx, providerMessageID, nil, []string{labelStarred})
}

// MoveToFolder applies the destination label and removes INBOX, which
// is what "move" means in a label store.
func (a *Adapter) MoveToFolder(ctx context.Context, providerMessageID, providerFolderID string) error {
	return a.modify(ctx, providerMessageID, []string{providerFolderID}, []string{labelInbox})
}

// MoveToTrash uses the dedicated trash endpoint so Gmail schedules the
// usual 30-day purge.
func (a *Adapter) MoveToTrash(ctx context.Context, providerMessageID string) error {
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}

	if _, err := svc.Users.Messages.Trash(gmailUser, providerMessageID).Context(ctx).Do(); err != nil {
		return a.wrapErr("trash message", err)
	}
	return nil
}

// Archive removes INBOX without applying a new label; the message stays
// reachable under All Mail.
func (a *Adapter) Archive(ctx context.Context, providerMessageID string) error {
	return a.modify(ctx, providerMessageID, nil, []string{labelInbox})
}

// FetchAttachment downloads one attachment body.
func (a *Adapter) FetchAttachment(ctx context.Context, providerMessageID, providerAttachmentID string) ([]byte, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}

	body, err := svc.Users.Messages.Attachments.Get(gmailUser, providerMessageID, providerAttachmentID).Context(ctx).Do()
	if err != nil {
		return nil, a.wrapErr("get attachment", err)
	}
	return decodeWebSafe(body.Data)
}
