package imap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/jhillyerd/enmime"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
)

// Message ids are "<uidvalidity>:<uid>", issued by SyncMessages for the
// mailbox it synced. Carrying the mailbox identity makes stale ids
// detectable: after a mailbox reset the id fails the identity check
// instead of touching whatever message now owns that UID.
func formatMessageID(uidValidity, uid uint32) string {
	return fmt.Sprintf("%d:%d", uidValidity, uid)
}

func parseMessageID(providerMessageID string) (uidValidity, uid uint32, err error) {
	validityPart, uidPart, ok := strings.Cut(providerMessageID, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: malformed message id %q", provider.ErrNotFound, providerMessageID)
	}
	validity, errValidity := parseUint32(validityPart)
	parsedUID, errUID := parseUint32(uidPart)
	if errValidity != nil || errUID != nil {
		return 0, 0, fmt.Errorf("%w: malformed message id %q", provider.ErrNotFound, providerMessageID)
	}
	return validity, parsedUID, nil
}

// selectMessage opens the synced mailbox and verifies the id was issued
// under its current identity.
func (a *Adapter) selectMessage(ctx context.Context, providerMessageID string) (c *client.Client, uid, uidValidity uint32, err error) {
	validity, parsedUID, err := parseMessageID(providerMessageID)
	if err != nil {
		return nil, 0, 0, err
	}

	c, err = a.acquire(ctx)
	if err != nil {
		return nil, 0, 0, err
	}

	status, err := c.Select(inboxMailbox, false)
	if err != nil {
		return nil, 0, 0, a.opErr("select "+inboxMailbox, err)
	}
	if status.UidValidity != validity {
		return nil, 0, 0, provider.ErrNotFound
	}

	return c, parsedUID, validity, nil
}

// FetchMessage pulls one full message including body and attachment
// metadata.
func (a *Adapter) FetchMessage(ctx context.Context, providerMessageID string) (*models.Message, error) {
	c, uid, validity, err := a.selectMessage(ctx, providerMessageID)
	if err != nil {
		return nil, err
	}

	fetched, err := fetchByUID(c, validity, []uint32{uid})
	if err != nil {
		return nil, a.opErr("fetch message", err)
	}
	if len(fetched) == 0 {
		return nil, provider.ErrNotFound
	}
	return fetched[0], nil
}

// MarkRead sets or clears \Seen.
func (a *Adapter) MarkRead(ctx context.Context, providerMessageID string, read bool) error {
	return a.storeFlag(ctx, providerMessageID, read, imap.SeenFlag)
}

// MarkStarred sets or clears \Flagged.
func (a *Adapter) MarkStarred(ctx context.Context, providerMessageID string, starred bool) error {
	return a.storeFlag(ctx, providerMessageID, starred, imap.FlaggedFlag)
}

func (a *Adapter) storeFlag(ctx context.Context, providerMessageID string, add bool, flag string) error {
	c, uid, _, err := a.selectMessage(ctx, providerMessageID)
	if err != nil {
		return err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	op := imap.FormatFlagsOp(imap.AddFlags, true)
	if !add {
		op = imap.FormatFlagsOp(imap.RemoveFlags, true)
	}
	if err := c.UidStore(seqset, op, []interface{}{flag}, nil); err != nil {
		return a.opErr("store flags", err)
	}
	return nil
}

// MoveToFolder relocates a message by copy, delete and expunge, the
// portable IMAP move.
func (a *Adapter) MoveToFolder(ctx context.Context, providerMessageID, providerFolderID string) error {
	c, uid, _, err := a.selectMessage(ctx, providerMessageID)
	if err != nil {
		return err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	if err := c.UidCopy(seqset, providerFolderID); err != nil {
		return a.opErr("copy to "+providerFolderID, err)
	}

	op := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.UidStore(seqset, op, []interface{}{imap.DeletedFlag}, nil); err != nil {
		return a.opErr("flag deleted", err)
	}

	if err := c.Expunge(nil); err != nil {
		return a.opErr("expunge", err)
	}

	return nil
}

// MoveToTrash moves the message into the account's trash mailbox.
func (a *Adapter) MoveToTrash(ctx context.Context, providerMessageID string) error {
	trash, err := a.resolveSpecialMailbox(ctx, models.FolderTrash)
	if err != nil {
		return err
	}
	return a.MoveToFolder(ctx, providerMessageID, trash)
}

// Archive moves the message into the archive mailbox, creating one when
// the server has none.
func (a *Adapter) Archive(ctx context.Context, providerMessageID string) error {
	archive, err := a.resolveSpecialMailbox(ctx, models.FolderArchive)
	if errors.Is(err, provider.ErrNotFound) {
		created, createErr := a.CreateFolder(ctx, "Archive")
		if createErr != nil {
			return createErr
		}
		archive = created.ProviderFolderID
	} else if err != nil {
		return err
	}
	return a.MoveToFolder(ctx, providerMessageID, archive)
}

// FetchAttachment downloads one attachment's content. IMAP has no
// standalone attachment handle, so the message is refetched and the
// wanted part picked out by filename or content id.
func (a *Adapter) FetchAttachment(ctx context.Context, providerMessageID, providerAttachmentID string) ([]byte, error) {
	c, uid, _, err := a.selectMessage(ctx, providerMessageID)
	if err != nil {
		return nil, err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	fetched := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, []imap.FetchItem{imap.FetchUid, section.FetchItem()}, fetched)
	}()

	var raw *imap.Message
	for msg := range fetched {
		raw = msg
	}
	if err := <-done; err != nil {
		return nil, a.opErr("fetch attachment", err)
	}
	if raw == nil {
		return nil, provider.ErrNotFound
	}

	body := raw.GetBody(section)
	if body == nil {
		return nil, provider.ErrNotFound
	}

	envelope, err := enmime.ReadEnvelope(body)
	if err != nil {
		return nil, &provider.OpError{Kind: provider.KindIMAP, Op: "parse message", Err: err}
	}

	for _, part := range append(envelope.Attachments, envelope.Inlines...) {
		if part.FileName == providerAttachmentID || (part.ContentID != "" && part.ContentID == providerAttachmentID) {
			return part.Content, nil
		}
	}
	return nil, provider.ErrNotFound
}
