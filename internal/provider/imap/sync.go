package imap

import (
	"context"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
)

// SyncMessages pulls one bounded batch of messages in UID order,
// reconciling the saved cursor against the mailbox's current
// UIDVALIDITY and UIDNEXT first. The returned cursor advances to one
// past the highest UID observed and is tagged with the mailbox's
// current identity.
func (a *Adapter) SyncMessages(ctx context.Context, opts provider.SyncOptions) (*provider.SyncResult, error) {
	c, err := a.acquire(ctx)
	if err != nil {
		return nil, err
	}

	mailbox := opts.FolderID
	if mailbox == "" {
		mailbox = inboxMailbox
	}

	status, err := c.Select(mailbox, false)
	if err != nil {
		return nil, a.opErr("select "+mailbox, err)
	}

	start := resolveStartUID(parseSyncCursor(opts.Cursor), status.UidValidity, status.UidNext)

	uids, err := searchFrom(c, start, opts.Since)
	if err != nil {
		return nil, a.opErr("uid search", err)
	}

	batch, hasMore := boundUIDs(uids, start, a.batchLimit)

	var messages []*models.Message
	if len(batch) > 0 {
		messages, err = fetchByUID(c, status.UidValidity, batch)
		if err != nil {
			return nil, a.opErr("uid fetch", err)
		}
	}

	next := start
	if len(batch) > 0 {
		next = batch[len(batch)-1] + 1
	}

	return &provider.SyncResult{
		Messages: messages,
		Cursor:   formatSyncCursor(status.UidValidity, next),
		HasMore:  hasMore,
		Fetched:  len(messages),
	}, nil
}

// searchFrom lists UIDs at or past start, optionally bounded to
// messages received since a date.
func searchFrom(c *client.Client, start uint32, since *time.Time) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	uidRange := new(imap.SeqSet)
	uidRange.AddRange(start, 0)
	criteria.Uid = uidRange
	if since != nil {
		criteria.Since = *since
	}
	return c.UidSearch(criteria)
}

// boundUIDs drops UIDs below start, sorts the rest ascending and caps
// the batch. The floor has to be re-applied client-side: servers
// answer a range like "43:*" with the newest message when 43 exceeds
// every assigned UID.
func boundUIDs(uids []uint32, start uint32, limit int) ([]uint32, bool) {
	kept := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		if uid >= start {
			kept = append(kept, uid)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i] < kept[j] })

	if len(kept) > limit {
		return kept[:limit], true
	}
	return kept, false
}

// fetchByUID pulls full messages for the given UIDs. PEEK keeps the
// fetch from flagging everything read.
func fetchByUID(c *client.Client, uidValidity uint32, uids []uint32) ([]*models.Message, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchInternalDate,
		imap.FetchRFC822Size,
		imap.FetchUid,
		section.FetchItem(),
	}

	fetched := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, fetched)
	}()

	messages := make([]*models.Message, 0, len(uids))
	for msg := range fetched {
		messages = append(messages, parseMessage(msg, uidValidity, section))
	}

	if err := <-done; err != nil {
		return nil, err
	}

	return messages, nil
}
