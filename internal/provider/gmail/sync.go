package gmail

import (
	"context"
	"fmt"

	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
)

// SyncMessages fetches one bounded batch from a label. The cursor is
// Gmail's native page token: opaque, short-lived and tied to the
// listing it came from. An exhausted listing returns an empty cursor,
// so the next sweep restarts from the newest messages and relies on
// de-duplication to skip what it has already seen.
func (a *Adapter) SyncMessages(ctx context.Context, opts provider.SyncOptions) (*provider.SyncResult, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}

	folder := opts.FolderID
	if folder == "" {
		folder = labelInbox
	}

	call := svc.Users.Messages.List(gmailUser).
		LabelIds(folder).
		MaxResults(int64(a.batchLimit)).
		Context(ctx)
	if opts.Cursor != "" {
		call = call.PageToken(opts.Cursor)
	}
	if opts.Since != nil {
		call = call.Q(fmt.Sprintf("after:%d", opts.Since.Unix()))
	}

	page, err := call.Do()
	if err != nil {
		return nil, a.wrapErr("list messages", err)
	}

	// The listing returns bare ids; each message needs its own fetch
	// for headers, body and attachment metadata.
	messages := make([]*models.Message, 0, len(page.Messages))
	for _, stub := range page.Messages {
		full, err := svc.Users.Messages.Get(gmailUser, stub.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, a.wrapErr("get message "+stub.Id, err)
		}
		messages = append(messages, parseMessage(full))
	}

	return &provider.SyncResult{
		Messages: messages,
		Cursor:   page.NextPageToken,
		HasMore:  page.NextPageToken != "",
		Fetched:  len(messages),
	}, nil
}

// FetchMessage fetches one full message by its Gmail id.
func (a *Adapter) FetchMessage(ctx context.Context, providerMessageID string) (*models.Message, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}

	full, err := svc.Users.Messages.Get(gmailUser, providerMessageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, a.wrapErr("get message "+providerMessageID, err)
	}
	return parseMessage(full), nil
}
