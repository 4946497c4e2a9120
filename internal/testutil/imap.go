package testutil

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
)

// TestIMAPServer represents a test IMAP server instance.
type TestIMAPServer struct {
	Server   *server.Server
	Address  string
	Backend  *memory.Backend
	cleanup  func()
	username string
	password string
}

// NewTestIMAPServer creates a new test IMAP server with an in-memory backend.
// The memory backend creates a default user with username "username" and
// password "password", and an INBOX pre-seeded with one message.
func NewTestIMAPServer(t *testing.T) *TestIMAPServer {
	t.Helper()

	srv, err := newIMAPServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start IMAP server: %v", err)
	}
	return srv
}

// NewDevIMAPServer starts an in-memory IMAP server outside a test
// context, on a fixed port so external tooling can reach it.
func NewDevIMAPServer() (*TestIMAPServer, error) {
	return newIMAPServer("127.0.0.1:1143")
}

func newIMAPServer(listenAddr string) (*TestIMAPServer, error) {
	be := memory.New()

	s := server.New(be)
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	addr := listener.Addr().String()

	go func() {
		// Serve returns when the server is closed.
		_ = s.Serve(listener)
	}()

	// Give server time to start.
	time.Sleep(100 * time.Millisecond)

	cleanup := func() {
		_ = s.Close()
	}

	// Memory backend creates a default user with these credentials.
	return &TestIMAPServer{
		Server:   s,
		Address:  addr,
		Backend:  be,
		cleanup:  cleanup,
		username: "username",
		password: "password",
	}, nil
}

// Close shuts down the test IMAP server.
func (s *TestIMAPServer) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// Username returns the default test username.
func (s *TestIMAPServer) Username() string {
	return s.username
}

// Password returns the default test password.
func (s *TestIMAPServer) Password() string {
	return s.password
}

// Dial connects and authenticates a new client session. For callers
// outside a test context, such as the dev harness.
func (s *TestIMAPServer) Dial() (*imapclient.Client, error) {
	client, err := imapclient.Dial(s.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test server: %w", err)
	}

	if err := client.Login(s.username, s.password); err != nil {
		_ = client.Logout()
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	return client, nil
}

// Connect creates a new IMAP client connection to the test server.
func (s *TestIMAPServer) Connect(t *testing.T) (*imapclient.Client, func()) {
	t.Helper()

	client, err := s.Dial()
	if err != nil {
		t.Fatalf("Failed to connect to test server: %v", err)
	}

	cleanup := func() {
		_ = client.Logout()
	}

	return client, cleanup
}

// CreateFolder creates the named folder for the default user if it does
// not already exist.
func (s *TestIMAPServer) CreateFolder(folderName string) error {
	client, err := s.Dial()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Logout()
	}()

	if _, err := client.Select(folderName, false); err == nil {
		return nil
	}
	if err := client.Create(folderName); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", folderName, err)
	}
	return nil
}

// EnsureFolder ensures the named folder exists for the default user.
func (s *TestIMAPServer) EnsureFolder(t *testing.T, folderName string) {
	t.Helper()

	if err := s.CreateFolder(folderName); err != nil {
		t.Fatalf("Failed to ensure folder %s: %v", folderName, err)
	}
}

// AppendMessage appends a simple RFC 822 message to the folder and
// returns its UID. For callers outside a test context.
func (s *TestIMAPServer) AppendMessage(folderName, messageID, subject, from, to string, sentAt time.Time, flags ...string) (uint32, error) {
	messageBody := fmt.Sprintf(`Message-ID: %s
Date: %s
From: %s
To: %s
Subject: %s
Content-Type: text/plain; charset=utf-8

Test message body.
`, messageID, sentAt.Format(time.RFC1123Z), from, to, subject)

	return s.appendRaw(folderName, messageBody, sentAt, flags)
}

// AddMessage adds a test message to the specified folder and returns its UID.
// The message is appended unread unless flags are given, with sentAt as its
// internal date.
func (s *TestIMAPServer) AddMessage(t *testing.T, folderName, messageID, subject, from, to string, sentAt time.Time, flags ...string) uint32 {
	t.Helper()

	uid, err := s.AppendMessage(folderName, messageID, subject, from, to, sentAt, flags...)
	if err != nil {
		t.Fatalf("Failed to add message: %v", err)
	}
	return uid
}

// AddRawMessage appends a raw RFC 822 message to the specified folder and
// returns its UID. Useful for multipart fixtures that AddMessage cannot build.
func (s *TestIMAPServer) AddRawMessage(t *testing.T, folderName, raw string, flags ...string) uint32 {
	t.Helper()

	uid, err := s.appendRaw(folderName, raw, time.Now(), flags)
	if err != nil {
		t.Fatalf("Failed to append message: %v", err)
	}
	return uid
}

func (s *TestIMAPServer) appendRaw(folderName, raw string, internalDate time.Time, flags []string) (uint32, error) {
	client, err := s.Dial()
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = client.Logout()
	}()

	status, err := client.Select(folderName, false)
	if err != nil {
		return 0, fmt.Errorf("failed to select folder: %w", err)
	}

	// The memory backend assigns UIDs sequentially, so the next message
	// gets the UIDNEXT reported before the append.
	uid := status.UidNext

	if err := client.Append(folderName, flags, internalDate, strings.NewReader(raw)); err != nil {
		return 0, fmt.Errorf("failed to append message: %w", err)
	}

	return uid, nil
}

// MarkSeen adds the \Seen flag to the given UID in the specified folder.
func (s *TestIMAPServer) MarkSeen(t *testing.T, folderName string, uid uint32) {
	t.Helper()

	client, cleanup := s.Connect(t)
	defer cleanup()

	if _, err := client.Select(folderName, false); err != nil {
		t.Fatalf("Failed to select folder: %v", err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	op := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := client.UidStore(seqset, op, []interface{}{imap.SeenFlag}, nil); err != nil {
		t.Fatalf("Failed to store flags: %v", err)
	}
}
