// Command probe is a manual IMAP diagnostic. Pointed at one account it
// prints server capabilities, every folder with its UIDVALIDITY and
// UIDNEXT (the identity pair the sync cursor is built from), and the
// most recent inbox subjects. Useful for checking what a provider will
// look like to the daemon before wiring it up.
package main

import (
	"fmt"
	"log"
	"net"
	"os"

	"github.com/emersion/go-imap"
	sortthread "github.com/emersion/go-imap-sortthread"
	"github.com/emersion/go-imap/client"
)

// recentLimit caps how many inbox subjects the probe prints.
const recentLimit = 10

func main() {
	log.Println("Starting IMAP probe...")

	server := os.Getenv("IMAP_SERVER")
	user := os.Getenv("IMAP_USER")
	password := os.Getenv("IMAP_PASSWORD")

	if server == "" || user == "" || password == "" {
		log.Fatal("Error: IMAP_SERVER, IMAP_USER, and IMAP_PASSWORD environment variables are required")
	}

	c, err := connect(server)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer func() {
		if err := c.Logout(); err != nil {
			log.Printf("Failed to log out: %v", err)
		}
	}()

	log.Println("Connected to IMAP server")

	if err := c.Login(user, password); err != nil {
		log.Fatalf("Failed to log in: %v", err)
	}

	log.Println("Logged in successfully")

	supportsThread, err := checkCapabilities(c)
	if err != nil {
		log.Fatalf("Failed to check capabilities: %v", err)
	}

	if err := listFolders(c); err != nil {
		log.Fatalf("Failed to list folders: %v", err)
	}

	mbox, err := c.Select("INBOX", true)
	if err != nil {
		log.Fatalf("Failed to select INBOX: %v", err)
	}

	log.Println("INBOX selected:")
	log.Printf("  - Messages: %d", mbox.Messages)
	log.Printf("  - Unseen: %d", mbox.Unseen)
	log.Printf("  - UIDValidity: %d", mbox.UidValidity)
	log.Printf("  - UIDNext: %d", mbox.UidNext)

	if supportsThread {
		if err := runThreadCommand(c); err != nil {
			log.Printf("Warning: THREAD command failed: %v", err)
		}
	}

	if err := fetchRecentSubjects(c, mbox); err != nil {
		log.Fatalf("Failed to fetch recent messages: %v", err)
	}

	log.Println("IMAP probe completed successfully")
}

// connect dials the server. Port 993 gets implicit TLS; anything else
// is treated as a plaintext development server, the same rule the sync
// adapter applies.
func connect(server string) (*client.Client, error) {
	log.Printf("Connecting to %s...", server)

	_, port, err := net.SplitHostPort(server)
	if err != nil {
		return nil, fmt.Errorf("invalid IMAP_SERVER %q: %w", server, err)
	}

	if port == "993" {
		return client.DialTLS(server, nil)
	}
	return client.Dial(server)
}

// checkCapabilities prints the server's capabilities and reports
// whether it supports reference-based threading. IDLE matters to the
// daemon's watcher, THREAD shows whether the server could thread
// natively instead of by subject.
func checkCapabilities(c *client.Client) (bool, error) {
	caps, err := c.Capability()
	if err != nil {
		return false, fmt.Errorf("failed to get capabilities: %w", err)
	}

	log.Println("Server capabilities:")
	for capability := range caps {
		log.Printf("  - %s", capability)
	}
	if caps["IDLE"] {
		log.Println("IDLE supported: new mail will push instead of poll")
	} else {
		log.Println("IDLE not supported: the watcher will fall back to polling")
	}

	return caps["THREAD=REFERENCES"], nil
}

// listFolders prints every folder with its counts and identity pair.
// The listing is drained before any STATUS is issued; the client cannot
// interleave commands while LIST is streaming.
func listFolders(c *client.Client) error {
	mailboxes := make(chan *imap.MailboxInfo, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.List("", "*", mailboxes)
	}()

	var infos []*imap.MailboxInfo
	for mbox := range mailboxes {
		infos = append(infos, mbox)
	}
	if err := <-done; err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}

	log.Printf("Found %d folders:", len(infos))
	for _, info := range infos {
		if isNoSelect(info) {
			log.Printf("  %-24s (not selectable)", info.Name)
			continue
		}
		status, err := c.Status(info.Name, []imap.StatusItem{
			imap.StatusMessages,
			imap.StatusUnseen,
			imap.StatusUidNext,
			imap.StatusUidValidity,
		})
		if err != nil {
			log.Printf("  %-24s STATUS failed: %v", info.Name, err)
			continue
		}
		log.Printf("  %-24s %4d messages, %4d unseen, sync cursor would be %d:%d",
			info.Name, status.Messages, status.Unseen, status.UidValidity, status.UidNext)
	}

	return nil
}

func isNoSelect(info *imap.MailboxInfo) bool {
	for _, attr := range info.Attributes {
		if attr == imap.NoSelectAttr {
			return true
		}
	}
	return false
}

// runThreadCommand asks the server to thread the inbox by references.
// UID THREAD is used because UIDs are stable across sessions while
// sequence numbers are not.
func runThreadCommand(c *client.Client) error {
	threadClient := sortthread.NewThreadClient(c)

	threads, err := threadClient.UidThread(sortthread.References, imap.NewSearchCriteria())
	if err != nil {
		return err
	}

	log.Printf("Server threads the inbox into %d conversation(s)", len(threads))
	return nil
}

// fetchRecentSubjects prints the newest inbox messages, most recent
// last. Unseen messages are marked with an asterisk.
func fetchRecentSubjects(c *client.Client, mbox *imap.MailboxStatus) error {
	if mbox.Messages == 0 {
		log.Println("INBOX is empty, nothing to fetch")
		return nil
	}

	from := uint32(1)
	if mbox.Messages > recentLimit {
		from = mbox.Messages - recentLimit + 1
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, mbox.Messages)

	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid}
	messages := make(chan *imap.Message, recentLimit)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	log.Printf("Most recent messages (up to %d):", recentLimit)
	for msg := range messages {
		marker := " "
		if !hasFlag(msg.Flags, imap.SeenFlag) {
			marker = "*"
		}

		sender := "(unknown sender)"
		subject := "(no subject)"
		if msg.Envelope != nil {
			if len(msg.Envelope.From) > 0 {
				sender = msg.Envelope.From[0].Address()
			}
			if msg.Envelope.Subject != "" {
				subject = msg.Envelope.Subject
			}
		}
		log.Printf("  %s UID %-6d %-30s %s", marker, msg.Uid, sender, subject)
	}

	if err := <-done; err != nil {
		return fmt.Errorf("failed to fetch: %w", err)
	}
	return nil
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
