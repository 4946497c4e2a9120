package imap

import (
	"fmt"
	"strconv"
	"strings"
)

// syncCursor is the parsed form of a stored sync cursor. Cursors are
// "<uidvalidity>:<uid>"; a bare integer is accepted from the era before
// identity tagging and carries no identity.
type syncCursor struct {
	// uidValidity is the mailbox identity the cursor was issued under;
	// zero when unknown.
	uidValidity uint32
	// nextUID is the first UID the next sync should consider.
	nextUID uint32
}

// parseSyncCursor decodes a stored cursor. Anything unparseable is
// treated as an empty cursor so a corrupt value degrades to a full
// resync instead of an error.
func parseSyncCursor(raw string) syncCursor {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return syncCursor{nextUID: 1}
	}

	validityPart, uidPart, tagged := strings.Cut(raw, ":")
	if !tagged {
		uid, err := parseUint32(raw)
		if err != nil {
			return syncCursor{nextUID: 1}
		}
		return syncCursor{nextUID: uid}
	}

	validity, errValidity := parseUint32(validityPart)
	uid, errUID := parseUint32(uidPart)
	if errValidity != nil || errUID != nil {
		return syncCursor{nextUID: 1}
	}
	return syncCursor{uidValidity: validity, nextUID: uid}
}

// resolveStartUID reconciles a saved cursor with the mailbox's current
// UIDVALIDITY and UIDNEXT. An identity change means the mailbox was
// recreated and every remembered UID is meaningless; a position past
// UIDNEXT means the cursor is stale or was copied from elsewhere. Both
// cases reset to a full resync from UID 1; otherwise the saved position
// is trusted as-is.
func resolveStartUID(saved syncCursor, uidValidity, uidNext uint32) uint32 {
	if saved.uidValidity != 0 && saved.uidValidity != uidValidity {
		return 1
	}
	if saved.nextUID > uidNext {
		return 1
	}
	if saved.nextUID == 0 {
		return 1
	}
	return saved.nextUID
}

// formatSyncCursor tags a start position with the mailbox identity it
// was issued under.
func formatSyncCursor(uidValidity, nextUID uint32) string {
	return fmt.Sprintf("%d:%d", uidValidity, nextUID)
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
