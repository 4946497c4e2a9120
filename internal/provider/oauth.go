package provider

import (
	"context"

	"golang.org/x/oauth2"
)

// OAuthToken reconstructs the stored token pair for an OAuth account.
func (c Credentials) OAuthToken() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
	}
	if c.TokenExpiresAt != nil {
		token.Expiry = *c.TokenExpiresAt
	}
	return token
}

// RefreshOAuth exchanges the refresh token for a fresh access token
// when the stored one has expired. Returns nil when nothing changed.
func RefreshOAuth(ctx context.Context, kind Kind, cfg *oauth2.Config, creds Credentials) (*TokenBundle, error) {
	if cfg == nil || creds.RefreshToken == "" {
		return nil, nil
	}

	current := creds.OAuthToken()
	fresh, err := cfg.TokenSource(ctx, current).Token()
	if err != nil {
		return nil, &AuthError{Kind: kind, Err: err}
	}
	if fresh.AccessToken == current.AccessToken {
		return nil, nil
	}

	refreshToken := fresh.RefreshToken
	if refreshToken == "" {
		// Providers omit the refresh token when it has not rotated.
		refreshToken = creds.RefreshToken
	}

	return &TokenBundle{
		AccessToken:  fresh.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    fresh.Expiry,
	}, nil
}
