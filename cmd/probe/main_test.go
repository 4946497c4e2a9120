package main

import (
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/paul2999Git/mailapp-sub000/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRejectsAddressWithoutPort(t *testing.T) {
	_, err := connect("imap.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid IMAP_SERVER")
}

func TestProbeAgainstLiveServer(t *testing.T) {
	srv := testutil.NewTestIMAPServer(t)
	defer srv.Close()

	srv.EnsureFolder(t, "Archive")
	srv.AddMessage(t, "INBOX", "<probe-1@mail.example>", "Quarterly numbers",
		"cfo@example.com", "username@example.com",
		time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC))

	c, err := connect(srv.Address)
	require.NoError(t, err)
	defer func() { _ = c.Logout() }()

	require.NoError(t, c.Login(srv.Username(), srv.Password()))

	supportsThread, err := checkCapabilities(c)
	require.NoError(t, err)
	assert.False(t, supportsThread, "memory backend does not advertise THREAD")

	require.NoError(t, listFolders(c))

	// The backend seeds INBOX with one message; ours makes two.
	mbox, err := c.Select("INBOX", true)
	require.NoError(t, err)
	require.Equal(t, uint32(2), mbox.Messages)

	require.NoError(t, fetchRecentSubjects(c, mbox))

	t.Run("an empty mailbox fetches nothing", func(t *testing.T) {
		srv.EnsureFolder(t, "Empty")

		empty, err := c.Select("Empty", true)
		require.NoError(t, err)
		require.Zero(t, empty.Messages)

		assert.NoError(t, fetchRecentSubjects(c, empty))
	})
}

func TestIsNoSelect(t *testing.T) {
	assert.True(t, isNoSelect(&imap.MailboxInfo{Attributes: []string{imap.NoSelectAttr}}))
	assert.False(t, isNoSelect(&imap.MailboxInfo{Attributes: []string{"\\HasChildren"}}))
	assert.False(t, isNoSelect(&imap.MailboxInfo{}))
}

func TestHasFlag(t *testing.T) {
	assert.True(t, hasFlag([]string{imap.SeenFlag, imap.FlaggedFlag}, imap.SeenFlag))
	assert.False(t, hasFlag([]string{imap.FlaggedFlag}, imap.SeenFlag))
	assert.False(t, hasFlag(nil, imap.SeenFlag))
}
