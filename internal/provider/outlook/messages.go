package outlook

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"

	"github.com/paul2999Git/mailapp-sub000/internal/provider"
)

func (a *Adapter) messageURL(providerMessageID, suffix string) string {
	return fmt.Sprintf("%s/me/messages/%s%s", a.baseURL, url.PathEscape(providerMessageID), suffix)
}

// MarkRead patches the isRead property.
func (a *Adapter) MarkRead(ctx context.Context, providerMessageID string, read bool) error {
	return a.do(ctx, "mark read", http.MethodPatch, a.messageURL(providerMessageID, ""),
		map[string]bool{"isRead": read}, nil)
}

// MarkStarred patches the follow-up flag, the closest thing Outlook
// has to a star.
func (a *Adapter) MarkStarred(ctx context.Context, providerMessageID string, starred bool) error {
	status := "notFlagged"
	if starred {
		status = "flagged"
	}
	return a.do(ctx, "mark starred", http.MethodPatch, a.messageURL(providerMessageID, ""),
		map[string]graphFlag{"flag": {FlagStatus: status}}, nil)
}

// MoveToFolder moves the message. Graph assigns a new message id on
// move; the old id keeps resolving for a while, and the next sync
// re-observes the message under the new one.
func (a *Adapter) MoveToFolder(ctx context.Context, providerMessageID, providerFolderID string) error {
	return a.do(ctx, "move message", http.MethodPost, a.messageURL(providerMessageID, "/move"),
		map[string]string{"destinationId": providerFolderID}, nil)
}

// MoveToTrash moves the message to Deleted Items.
func (a *Adapter) MoveToTrash(ctx context.Context, providerMessageID string) error {
	return a.MoveToFolder(ctx, providerMessageID, wellKnownDeleted)
}

// Archive moves the message to the Archive folder.
func (a *Adapter) Archive(ctx context.Context, providerMessageID string) error {
	return a.MoveToFolder(ctx, providerMessageID, wellKnownArchive)
}

// FetchAttachment downloads one attachment body. Only file attachments
// carry content bytes; item and reference attachments do not.
func (a *Adapter) FetchAttachment(ctx context.Context, providerMessageID, providerAttachmentID string) ([]byte, error) {
	requestURL := a.messageURL(providerMessageID, "/attachments/"+url.PathEscape(providerAttachmentID))

	var att graphAttachment
	if err := a.do(ctx, "get attachment", http.MethodGet, requestURL, nil, &att); err != nil {
		return nil, err
	}
	if att.ContentBytes == "" {
		return nil, &provider.OpError{
			Kind: provider.KindOutlook,
			Op:   "get attachment",
			Err:  fmt.Errorf("attachment %s has no content bytes (type %s)", providerAttachmentID, att.ODataType),
		}
	}

	content, err := base64.StdEncoding.DecodeString(att.ContentBytes)
	if err != nil {
		return nil, &provider.OpError{Kind: provider.KindOutlook, Op: "get attachment", Err: err}
	}
	return content, nil
}
