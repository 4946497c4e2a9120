// Package gmail implements the provider contract over the Gmail REST
// API.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/paul2999Git/mailapp-sub000/internal/provider"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// gmailUser is the special user id meaning "the authenticated account".
const gmailUser = "me"

// syncBatchLimit caps one SyncMessages batch.
const syncBatchLimit = 200

// Well-known Gmail system label ids.
const (
	labelInbox   = "INBOX"
	labelSent    = "SENT"
	labelDrafts  = "DRAFT"
	labelTrash   = "TRASH"
	labelSpam    = "SPAM"
	labelUnread  = "UNREAD"
	labelStarred = "STARRED"
)

// Adapter talks to one Gmail account. Instances are not safe for
// concurrent use; construct one per concurrent operation.
type Adapter struct {
	creds provider.Credentials
	oauth *oauth2.Config
	opts  []option.ClientOption

	svc *gmailapi.Service

	// Lowered in tests to exercise batching without hundreds of
	// messages.
	batchLimit int
}

// NewAdapter wires an adapter for the given decrypted credentials. The
// oauth config mints short-lived access tokens from the stored refresh
// token; explicit client options replace the authenticated transport
// entirely, which is how tests point the adapter at a fake server.
func NewAdapter(creds provider.Credentials, oauthCfg *oauth2.Config, opts ...option.ClientOption) *Adapter {
	return &Adapter{
		creds:      creds,
		oauth:      oauthCfg,
		opts:       opts,
		batchLimit: syncBatchLimit,
	}
}

// Kind reports the provider variant.
func (a *Adapter) Kind() provider.Kind { return provider.KindGmail }

// service lazily builds the REST client.
func (a *Adapter) service(ctx context.Context) (*gmailapi.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}

	opts := a.opts
	if len(opts) == 0 {
		var client *http.Client
		if a.oauth != nil {
			client = a.oauth.Client(ctx, a.creds.OAuthToken())
		} else {
			client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(a.creds.OAuthToken()))
		}
		opts = []option.ClientOption{option.WithHTTPClient(client)}
	}

	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build Gmail client: %w", err)
	}
	a.svc = svc
	return svc, nil
}

// wrapErr maps REST failures onto the provider error taxonomy.
func (a *Adapter) wrapErr(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return &provider.AuthError{Kind: provider.KindGmail, Err: err}
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", provider.ErrNotFound, op)
		}
	}
	return &provider.OpError{Kind: provider.KindGmail, Op: op, Err: err}
}

func isAuthErr(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized
}

// TestConnection fetches the account profile once. A rejected token
// reports failure instead of returning an error so callers can
// distinguish revoked credentials from a dead network.
func (a *Adapter) TestConnection(ctx context.Context) (*provider.ConnectionTest, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := svc.Users.GetProfile(gmailUser).Context(ctx).Do()
	if err != nil {
		if isAuthErr(err) {
			return &provider.ConnectionTest{Success: false, Message: "Gmail rejected the stored credentials; reconnect the account"}, nil
		}
		return nil, err
	}

	return &provider.ConnectionTest{Success: true, Message: "Gmail connection verified as " + profile.EmailAddress}, nil
}

// RefreshTokens exchanges the refresh token for a fresh access token
// when the stored one has expired. Returns nil when nothing changed.
func (a *Adapter) RefreshTokens(ctx context.Context) (*provider.TokenBundle, error) {
	return provider.RefreshOAuth(ctx, provider.KindGmail, a.oauth, a.creds)
}

// Disconnect drops the cached client.
func (a *Adapter) Disconnect() {
	a.svc = nil
}
