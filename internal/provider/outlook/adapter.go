// Package outlook implements the provider contract over the Microsoft
// Graph mail API. Graph has no official Go client, so the adapter
// speaks plain HTTP against /v1.0 and decodes the handful of resource
// shapes it needs.
package outlook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/paul2999Git/mailapp-sub000/internal/provider"
	"golang.org/x/oauth2"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// syncBatchLimit caps one SyncMessages batch.
const syncBatchLimit = 200

// Well-known folder names Graph accepts in place of a folder id.
const (
	wellKnownInbox   = "inbox"
	wellKnownDeleted = "deleteditems"
	wellKnownArchive = "archive"
)

// Adapter talks to one Outlook account. Instances are not safe for
// concurrent use; construct one per concurrent operation.
type Adapter struct {
	creds provider.Credentials
	oauth *oauth2.Config

	// Overridden by tests to point at a fake Graph server.
	baseURL string
	client  *http.Client

	batchLimit int
}

// NewAdapter wires an adapter for the given decrypted credentials. The
// oauth config mints short-lived access tokens from the stored refresh
// token.
func NewAdapter(creds provider.Credentials, oauthCfg *oauth2.Config) *Adapter {
	return &Adapter{
		creds:      creds,
		oauth:      oauthCfg,
		baseURL:    graphBaseURL,
		batchLimit: syncBatchLimit,
	}
}

// Kind reports the provider variant.
func (a *Adapter) Kind() provider.Kind { return provider.KindOutlook }

// httpClient lazily builds an authenticated client.
func (a *Adapter) httpClient(ctx context.Context) *http.Client {
	if a.client != nil {
		return a.client
	}

	token := a.creds.OAuthToken()
	if a.oauth != nil {
		a.client = a.oauth.Client(ctx, token)
	} else {
		a.client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	}
	return a.client
}

// do issues one Graph request and decodes the response into out when
// out is non-nil. requestURL must be absolute; @odata.nextLink values
// pass through unchanged.
func (a *Adapter) do(ctx context.Context, op, method, requestURL string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &provider.OpError{Kind: provider.KindOutlook, Op: op, Err: err}
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, payload)
	if err != nil {
		return &provider.OpError{Kind: provider.KindOutlook, Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient(ctx).Do(req)
	if err != nil {
		return &provider.OpError{Kind: provider.KindOutlook, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return a.statusErr(op, resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &provider.OpError{Kind: provider.KindOutlook, Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}
	return nil
}

// statusErr maps a Graph error response onto the provider error
// taxonomy.
func (a *Adapter) statusErr(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var ge graphError
	_ = json.Unmarshal(data, &ge)
	message := ge.Error.Message
	if message == "" {
		message = strings.TrimSpace(string(data))
	}
	err := fmt.Errorf("graph returned %d %s: %s", resp.StatusCode, ge.Error.Code, message)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &provider.AuthError{Kind: provider.KindOutlook, Err: err}
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", provider.ErrNotFound, op)
	}
	return &provider.OpError{Kind: provider.KindOutlook, Op: op, Err: err}
}

// TestConnection fetches the signed-in user once. A rejected token
// reports failure instead of returning an error so callers can
// distinguish revoked credentials from a dead network.
func (a *Adapter) TestConnection(ctx context.Context) (*provider.ConnectionTest, error) {
	var user graphUser
	err := a.do(ctx, "get profile", http.MethodGet, a.baseURL+"/me", nil, &user)
	if err != nil {
		if provider.IsAuthError(err) {
			return &provider.ConnectionTest{Success: false, Message: "Outlook rejected the stored credentials; reconnect the account"}, nil
		}
		return nil, err
	}

	address := user.Mail
	if address == "" {
		address = user.UserPrincipalName
	}
	return &provider.ConnectionTest{Success: true, Message: "Outlook connection verified as " + address}, nil
}

// RefreshTokens exchanges the refresh token for a fresh access token
// when the stored one has expired. Returns nil when nothing changed.
func (a *Adapter) RefreshTokens(ctx context.Context) (*provider.TokenBundle, error) {
	return provider.RefreshOAuth(ctx, provider.KindOutlook, a.oauth, a.creds)
}

// Disconnect drops the cached client.
func (a *Adapter) Disconnect() {
	a.client = nil
}
