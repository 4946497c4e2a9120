package factory

import (
	"fmt"

	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/paul2999Git/mailapp-sub000/internal/provider"
)

// validateAccount checks the account carries the fields its provider
// kind needs, before any credential is decrypted or any connection
// attempted.
func validateAccount(account *models.Account) error {
	if account.EmailAddress == "" {
		return &provider.ValidationError{Field: "email_address", Reason: "is required"}
	}

	switch account.Provider {
	case models.ProviderGmail, models.ProviderOutlook:
		if len(account.EncryptedAccessToken) == 0 && len(account.EncryptedRefreshToken) == 0 {
			return &provider.ValidationError{Field: "oauth tokens", Reason: fmt.Sprintf("are required for %s accounts", account.Provider)}
		}
	case models.ProviderIMAP:
		if account.IMAPHost == "" {
			return &provider.ValidationError{Field: "imap_host", Reason: "is required for imap accounts"}
		}
		if account.IMAPPort < 1 || account.IMAPPort > 65535 {
			return &provider.ValidationError{Field: "imap_port", Reason: fmt.Sprintf("%d is not a valid port", account.IMAPPort)}
		}
		if account.Username == "" {
			return &provider.ValidationError{Field: "username", Reason: "is required for imap accounts"}
		}
		if len(account.EncryptedPassword) == 0 {
			return &provider.ValidationError{Field: "password", Reason: "is required for imap accounts"}
		}
		if account.SMTPHost != "" && (account.SMTPPort < 1 || account.SMTPPort > 65535) {
			return &provider.ValidationError{Field: "smtp_port", Reason: fmt.Sprintf("%d is not a valid port", account.SMTPPort)}
		}
	}
	return nil
}
