package outlook

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
)

// messageSelect trims message payloads to the fields the parser reads.
const messageSelect = "id,subject,bodyPreview,body,from,toRecipients,ccRecipients,bccRecipients,replyTo," +
	"sentDateTime,receivedDateTime,isRead,isDraft,flag,hasAttachments,internetMessageId,internetMessageHeaders,categories"

// attachmentExpand pulls attachment metadata inline without their
// content bytes.
const attachmentExpand = "attachments($select=id,name,contentType,size,isInline,contentId)"

// SyncMessages fetches one bounded batch from a folder. The cursor is
// the @odata.nextLink Graph returns with each page: an absolute URL
// carrying the whole query state, requested verbatim on the next call.
// An exhausted listing returns an empty cursor, so the next sweep
// restarts from the top and relies on de-duplication to skip what it
// has already seen.
func (a *Adapter) SyncMessages(ctx context.Context, opts provider.SyncOptions) (*provider.SyncResult, error) {
	requestURL := opts.Cursor
	if requestURL == "" {
		folder := opts.FolderID
		if folder == "" {
			folder = wellKnownInbox
		}

		query := url.Values{}
		query.Set("$top", strconv.Itoa(a.batchLimit))
		query.Set("$orderby", "receivedDateTime asc")
		query.Set("$select", messageSelect)
		query.Set("$expand", attachmentExpand)
		if opts.Since != nil {
			query.Set("$filter", fmt.Sprintf("receivedDateTime ge %s", opts.Since.UTC().Format(time.RFC3339)))
		}
		requestURL = fmt.Sprintf("%s/me/mailFolders/%s/messages?%s", a.baseURL, url.PathEscape(folder), query.Encode())
	}

	var page messageList
	if err := a.do(ctx, "list messages", http.MethodGet, requestURL, nil, &page); err != nil {
		return nil, err
	}

	messages := make([]*models.Message, 0, len(page.Value))
	for i := range page.Value {
		messages = append(messages, parseMessage(&page.Value[i]))
	}

	return &provider.SyncResult{
		Messages: messages,
		Cursor:   page.NextLink,
		HasMore:  page.NextLink != "",
		Fetched:  len(messages),
	}, nil
}

// FetchMessage fetches one full message by its Graph id.
func (a *Adapter) FetchMessage(ctx context.Context, providerMessageID string) (*models.Message, error) {
	query := url.Values{}
	query.Set("$select", messageSelect)
	query.Set("$expand", attachmentExpand)
	requestURL := fmt.Sprintf("%s/me/messages/%s?%s", a.baseURL, url.PathEscape(providerMessageID), query.Encode())

	var msg graphMessage
	if err := a.do(ctx, "get message "+providerMessageID, http.MethodGet, requestURL, nil, &msg); err != nil {
		return nil, err
	}
	return parseMessage(&msg), nil
}
