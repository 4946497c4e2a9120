// Package factory turns stored accounts into live provider adapters,
// decrypting credential columns on the way through.
package factory

import (
	"fmt"

	"github.com/paul2999Git/mailapp-sub000/internal/crypto"
	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
	"github.com/paul2999Git/mailapp-sub000/internal/provider/gmail"
	"github.com/paul2999Git/mailapp-sub000/internal/provider/imap"
	"github.com/paul2999Git/mailapp-sub000/internal/provider/outlook"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
	gmailapi "google.golang.org/api/gmail/v1"
)

// Options carries the OAuth app registrations. An empty client id
// leaves that provider without a token-refresh path; its accounts keep
// working until the stored access token expires.
type Options struct {
	GoogleClientID     string
	GoogleClientSecret string
	AzureClientID      string
	AzureClientSecret  string
}

// Factory builds provider adapters from stored accounts.
type Factory struct {
	encryptor *crypto.Encryptor
	google    *oauth2.Config
	azure     *oauth2.Config
}

// New wires a factory around the credential encryptor and the OAuth
// app registrations from config.
func New(encryptor *crypto.Encryptor, opts Options) *Factory {
	f := &Factory{encryptor: encryptor}

	if opts.GoogleClientID != "" {
		f.google = &oauth2.Config{
			ClientID:     opts.GoogleClientID,
			ClientSecret: opts.GoogleClientSecret,
			Scopes:       []string{gmailapi.GmailModifyScope, gmailapi.GmailSendScope},
			Endpoint:     google.Endpoint,
		}
	}
	if opts.AzureClientID != "" {
		f.azure = &oauth2.Config{
			ClientID:     opts.AzureClientID,
			ClientSecret: opts.AzureClientSecret,
			Scopes:       []string{"offline_access", "User.Read", "Mail.ReadWrite", "Mail.Send"},
			Endpoint:     microsoft.AzureADEndpoint("common"),
		}
	}
	return f
}

// AdapterFor validates the account's configuration and builds the
// adapter variant for its provider kind.
func (f *Factory) AdapterFor(account *models.Account) (provider.Adapter, error) {
	if err := validateAccount(account); err != nil {
		return nil, err
	}

	creds, err := f.DecryptCredentials(account)
	if err != nil {
		return nil, err
	}

	switch account.Provider {
	case models.ProviderGmail:
		return gmail.NewAdapter(creds, f.google), nil
	case models.ProviderOutlook:
		return outlook.NewAdapter(creds, f.azure), nil
	case models.ProviderIMAP:
		return imap.NewAdapter(creds), nil
	}
	return nil, fmt.Errorf("unknown provider kind %q", account.Provider)
}

// DecryptCredentials decrypts the account's credential columns into
// the bundle adapters consume.
func (f *Factory) DecryptCredentials(account *models.Account) (provider.Credentials, error) {
	creds := provider.Credentials{
		EmailAddress:   account.EmailAddress,
		TokenExpiresAt: account.TokenExpiresAt,
		IMAPHost:       account.IMAPHost,
		IMAPPort:       account.IMAPPort,
		SMTPHost:       account.SMTPHost,
		SMTPPort:       account.SMTPPort,
		Username:       account.Username,
	}

	if len(account.EncryptedAccessToken) > 0 {
		token, err := f.encryptor.Decrypt(account.EncryptedAccessToken)
		if err != nil {
			return provider.Credentials{}, fmt.Errorf("failed to decrypt access token: %w", err)
		}
		creds.AccessToken = token
	}
	if len(account.EncryptedRefreshToken) > 0 {
		token, err := f.encryptor.Decrypt(account.EncryptedRefreshToken)
		if err != nil {
			return provider.Credentials{}, fmt.Errorf("failed to decrypt refresh token: %w", err)
		}
		creds.RefreshToken = token
	}
	if len(account.EncryptedPassword) > 0 {
		password, err := f.encryptor.Decrypt(account.EncryptedPassword)
		if err != nil {
			return provider.Credentials{}, fmt.Errorf("failed to decrypt password: %w", err)
		}
		creds.Password = password
	}

	return creds, nil
}

// EncryptToken encrypts a refreshed token for storage. Exposed so the
// sync layer can persist rotated tokens without holding the key.
func (f *Factory) EncryptToken(token string) ([]byte, error) {
	return f.encryptor.Encrypt(token)
}
