// Command devstack stands up a throwaway local environment for the
// daemon: a Postgres container with migrations applied, in-memory IMAP
// and SMTP servers seeded with mail, and a dev user whose enabled
// account points at them. Start it in one terminal, export the printed
// variables, then run syncd or probe in another.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/emersion/go-imap"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paul2999Git/mailapp-sub000/internal/config"
	"github.com/paul2999Git/mailapp-sub000/internal/crypto"
	"github.com/paul2999Git/mailapp-sub000/internal/db"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/testutil"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// devEncryptionKey is a fixed 32-byte key so a syncd run against the
// harness can decrypt what it seeded. Never use it outside local dev.
const devEncryptionKey = "ZGV2LWtleS0xMjM0NTY3ODkwMTIzNDU2Nzg5MDEyMzQ="

const devUserEmail = "dev@example.com"

func main() {
	ctx := context.Background()

	if err := setupDevEnvironment(); err != nil {
		log.Fatalf("Failed to set up dev environment: %v", err)
	}

	postgresContainer, connStr, err := startPostgres(ctx)
	if err != nil {
		log.Fatalf("Failed to start Postgres: %v", err)
	}
	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate Postgres container: %v", err)
		}
	}()

	imapServer, smtpServer, err := startMailServers()
	if err != nil {
		log.Fatalf("Failed to start mail servers: %v", err)
	}
	defer imapServer.Close()
	defer smtpServer.Close()

	if err := seedMailbox(imapServer); err != nil {
		log.Fatalf("Failed to seed mailbox: %v", err)
	}

	cfg, pool, err := setupDatabase(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	defer pool.Close()

	if err := seedDevUser(ctx, pool, cfg, imapServer, smtpServer); err != nil {
		log.Fatalf("Failed to seed dev user: %v", err)
	}

	printRunInstructions(connStr, imapServer, smtpServer)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal %v, shutting down...", sig)
}

// setupDevEnvironment sets the variables config.NewConfig requires
// before the harness loads it.
func setupDevEnvironment() error {
	if err := os.Setenv("MAILAPP_ENCRYPTION_KEY_BASE64", devEncryptionKey); err != nil {
		return fmt.Errorf("failed to set MAILAPP_ENCRYPTION_KEY_BASE64: %w", err)
	}
	if err := os.Setenv("MAILAPP_DB_PASSWORD", "mailapp"); err != nil {
		return fmt.Errorf("failed to set MAILAPP_DB_PASSWORD: %w", err)
	}
	return nil
}

// startPostgres starts a disposable Postgres database using
// testcontainers.
func startPostgres(ctx context.Context) (testcontainers.Container, string, error) {
	log.Println("Starting dev Postgres database...")
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("mailapp_dev"),
		postgres.WithUsername("mailapp"),
		postgres.WithPassword("mailapp"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start Postgres container: %w", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("failed to get connection string: %w", err)
	}

	log.Println("Dev Postgres database started")
	return postgresContainer, connStr, nil
}

// startMailServers starts the in-memory IMAP and SMTP servers on their
// fixed dev ports.
func startMailServers() (*testutil.TestIMAPServer, *testutil.TestSMTPServer, error) {
	log.Println("Starting dev IMAP server...")
	imapServer, err := testutil.NewDevIMAPServer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start dev IMAP server: %w", err)
	}
	log.Printf("Dev IMAP server listening on %s", imapServer.Address)

	log.Println("Starting dev SMTP server...")
	smtpServer, err := testutil.NewDevSMTPServer()
	if err != nil {
		imapServer.Close()
		return nil, nil, fmt.Errorf("failed to start dev SMTP server: %w", err)
	}
	log.Printf("Dev SMTP server listening on %s", smtpServer.Address)

	return imapServer, smtpServer, nil
}

// seedMailbox creates the usual folders and a spread of inbox messages
// so a first sync has something to pull and the classifier has senders
// worth telling apart.
func seedMailbox(imapServer *testutil.TestIMAPServer) error {
	for _, name := range []string{"Sent", "Drafts", "Trash", "Archive"} {
		if err := imapServer.CreateFolder(name); err != nil {
			return err
		}
	}

	now := time.Now()
	messages := []struct {
		messageID string
		subject   string
		from      string
		sentAt    time.Time
		flags     []string
	}{
		{"<dev-1@mail.example>", "Your weekly engineering digest", "digest@devweekly.example", now.Add(-26 * time.Hour), nil},
		{"<dev-2@mail.example>", "Invoice #4821 for August", "billing@cloudhost.example", now.Add(-20 * time.Hour), nil},
		{"<dev-3@mail.example>", "Launch checklist", "sam@example.com", now.Add(-5 * time.Hour), []string{imap.SeenFlag}},
		{"<dev-4@mail.example>", "Re: Launch checklist", "sam@example.com", now.Add(-3 * time.Hour), nil},
		{"<dev-5@mail.example>", "Lunch on Thursday?", "kim@example.com", now.Add(-30 * time.Minute), nil},
	}
	for _, msg := range messages {
		if _, err := imapServer.AppendMessage("INBOX", msg.messageID, msg.subject, msg.from, devUserEmail, msg.sentAt, msg.flags...); err != nil {
			return fmt.Errorf("failed to seed message %s: %w", msg.messageID, err)
		}
	}

	log.Printf("Seeded %d messages into INBOX", len(messages))
	return nil
}

// setupDatabase loads config, connects to the container and runs
// migrations.
func setupDatabase(ctx context.Context, connStr string) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := testutil.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Connected to database and ran migrations")
	return cfg, pool, nil
}

// seedDevUser creates the dev user, default settings, a few categories
// for the classifier to aim at, and one enabled IMAP account pointing
// at the dev servers.
func seedDevUser(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config, imapServer *testutil.TestIMAPServer, smtpServer *testutil.TestSMTPServer) error {
	userID, err := db.GetOrCreateUser(ctx, pool, devUserEmail)
	if err != nil {
		return fmt.Errorf("failed to create dev user: %w", err)
	}

	if err := db.SaveUserSettings(ctx, pool, models.DefaultUserSettings(userID)); err != nil {
		return fmt.Errorf("failed to save user settings: %w", err)
	}

	categories := []*models.Category{
		{UserID: userID, Name: "Newsletters", Description: "Recurring digests, mailing lists and product announcements"},
		{UserID: userID, Name: "Finance", Description: "Invoices, receipts and payment notifications"},
		{UserID: userID, Name: "Personal", Description: "Direct personal mail from real people"},
	}
	for _, category := range categories {
		if err := db.SaveCategory(ctx, pool, category); err != nil {
			return fmt.Errorf("failed to save category %s: %w", category.Name, err)
		}
	}

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKeyBase64)
	if err != nil {
		return fmt.Errorf("failed to create encryptor: %w", err)
	}
	encryptedPassword, err := encryptor.Encrypt(imapServer.Password())
	if err != nil {
		return fmt.Errorf("failed to encrypt IMAP password: %w", err)
	}

	imapHost, imapPort, err := splitAddress(imapServer.Address)
	if err != nil {
		return err
	}
	smtpHost, smtpPort, err := splitAddress(smtpServer.Address)
	if err != nil {
		return err
	}

	account := &models.Account{
		UserID:            userID,
		Provider:          models.ProviderIMAP,
		EmailAddress:      devUserEmail,
		DisplayName:       "Dev Mailbox",
		IMAPHost:          imapHost,
		IMAPPort:          imapPort,
		SMTPHost:          smtpHost,
		SMTPPort:          smtpPort,
		Username:          imapServer.Username(),
		EncryptedPassword: encryptedPassword,
		IsEnabled:         true,
	}
	if err := db.SaveAccount(ctx, pool, account); err != nil {
		return fmt.Errorf("failed to save dev account: %w", err)
	}

	log.Printf("Seeded dev user %s with account %s", devUserEmail, account.ID)
	return nil
}

func splitAddress(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", addr, err)
	}
	return host, port, nil
}

// printRunInstructions prints the environment another terminal needs
// to run the daemon against this harness.
func printRunInstructions(connStr string, imapServer *testutil.TestIMAPServer, smtpServer *testutil.TestSMTPServer) {
	u, err := url.Parse(connStr)
	if err != nil {
		log.Printf("Warning: could not parse connection string %q: %v", connStr, err)
		return
	}

	log.Println("Dev stack is up. To run the daemon against it:")
	log.Printf("  export MAILAPP_DB_HOST=%s", u.Hostname())
	log.Printf("  export MAILAPP_DB_PORT=%s", u.Port())
	log.Println("  export MAILAPP_DB_USER=mailapp")
	log.Println("  export MAILAPP_DB_PASSWORD=mailapp")
	log.Println("  export MAILAPP_DB_NAME=mailapp_dev")
	log.Printf("  export MAILAPP_ENCRYPTION_KEY_BASE64=%s", devEncryptionKey)
	log.Println("  go run ./cmd/syncd")
	log.Printf("IMAP server: %s (username: %s, password: %s)", imapServer.Address, imapServer.Username(), imapServer.Password())
	log.Printf("SMTP server: %s (username: %s, password: %s)", smtpServer.Address, smtpServer.Username(), smtpServer.Password())
	log.Println("Press Ctrl+C to stop.")
}
