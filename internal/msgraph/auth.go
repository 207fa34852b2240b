package msgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/Tiliavir/time-tracker-server/internal/storage"
)

var requiredScopes = []string{
	"https://graph.microsoft.com/Calendars.Read",
	"offline_access",
}

func msEndpoint(tenantID, path string) string {
	return "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0/" + path
}

// DefaultTokenPath returns ~/.tttd/auth/msgraph_tokens.json.
func DefaultTokenPath() (string, error) {
	base, err := storage.BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "auth", "msgraph_tokens.json"), nil
}

// Authenticator obtains Microsoft Graph tokens with the OAuth2 device code
// flow and caches them in TokenPath.
type Authenticator struct {
	TenantID  string
	ClientID  string
	TokenPath string
	// Prompt receives the device code instructions.
	Prompt io.Writer
	Log    zerolog.Logger
}

func (a *Authenticator) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID: a.ClientID,
		Scopes:   requiredScopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: msEndpoint(a.TenantID, "devicecode"),
			TokenURL:      msEndpoint(a.TenantID, "token"),
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// loadToken returns the cached token, or nil when there is none.
func (a *Authenticator) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.TokenPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file (delete %s to re-authenticate): %w", a.TokenPath, err)
	}
	return &tok, nil
}

// saveToken writes tok atomically.
func (a *Authenticator) saveToken(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(a.TokenPath), 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	tmpPath := a.TokenPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmpPath, a.TokenPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving token file: %w", err)
	}
	return nil
}

// HTTPClient returns an authenticated client for Microsoft Graph. It uses
// the cached token when still valid, refreshes it when possible and falls
// back to a new device code flow otherwise.
func (a *Authenticator) HTTPClient(ctx context.Context) (*http.Client, error) {
	cfg := a.config()

	tok, err := a.loadToken()
	if err != nil {
		a.Log.Warn().Err(err).Msg("ignoring cached token")
		tok = nil
	}

	if tok == nil || (!tok.Valid() && tok.RefreshToken == "") {
		tok, err = a.deviceFlow(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	ts := &savingTokenSource{ts: cfg.TokenSource(ctx, tok), auth: a, last: tok.AccessToken}
	if _, err := ts.Token(); err != nil {
		a.Log.Warn().Err(err).Msg("token refresh failed, re-authenticating")
		if tok, err = a.deviceFlow(ctx, cfg); err != nil {
			return nil, err
		}
		ts = &savingTokenSource{ts: cfg.TokenSource(ctx, tok), auth: a, last: tok.AccessToken}
	}
	return oauth2.NewClient(ctx, ts), nil
}

func (a *Authenticator) deviceFlow(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	resp, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device auth request failed: %w", err)
	}

	prompt := a.Prompt
	if prompt == nil {
		prompt = os.Stdout
	}
	fmt.Fprintln(prompt)
	fmt.Fprintln(prompt, "To sign in, use a web browser to open the page:")
	fmt.Fprintf(prompt, "  %s\n", resp.VerificationURI)
	fmt.Fprintf(prompt, "Enter the code: %s\n", resp.UserCode)
	fmt.Fprintln(prompt)

	tok, err := cfg.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("device authentication failed: %w", err)
	}
	if err := a.saveToken(tok); err != nil {
		a.Log.Warn().Err(err).Msg("could not save token")
	}
	return tok, nil
}

// savingTokenSource persists tokens whenever the wrapped source refreshes.
type savingTokenSource struct {
	ts   oauth2.TokenSource
	auth *Authenticator
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.auth.saveToken(tok); err != nil {
			s.auth.Log.Warn().Err(err).Msg("could not save refreshed token")
		}
	}
	return tok, nil
}
