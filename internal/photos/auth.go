package photos

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/khoward/photos-g-org/internal/filesystem"
)

// OAuth scopes required for searching items and mutating albums.
var oauthScopes = []string{
	"https://www.googleapis.com/auth/photoslibrary",
	"https://www.googleapis.com/auth/photoslibrary.sharing",
}

// Authenticator builds authenticated HTTP clients from the configured OAuth
// client secret and a previously saved token. Acquiring the initial token is
// an external flow; a missing token is an AuthError, never a prompt.
type Authenticator struct {
	credentialsPath func() string
	tokenPath       string
	logger          *slog.Logger

	mu     sync.Mutex
	source oauth2.TokenSource
}

// NewAuthenticator creates an Authenticator. credentialsPath is called on
// each (re)build so settings changes take effect without a restart.
func NewAuthenticator(credentialsPath func() string, tokenPath string, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		credentialsPath: credentialsPath,
		tokenPath:       tokenPath,
		logger:          logger.With(slog.String("component", "photos-auth")),
	}
}

// Authorized reports whether a saved token exists.
func (a *Authenticator) Authorized() bool {
	_, err := os.Stat(a.tokenPath)
	return err == nil
}

// Invalidate drops the cached token source. The next Client call rebuilds it
// from disk. Called when the credentials or token files change.
func (a *Authenticator) Invalidate() {
	a.mu.Lock()
	a.source = nil
	a.mu.Unlock()
}

// Client returns an HTTP client that attaches and refreshes OAuth tokens.
// Returns an AuthError when credentials or the saved token are unavailable.
func (a *Authenticator) Client(ctx context.Context) (*http.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.source == nil {
		src, err := a.buildTokenSource(ctx)
		if err != nil {
			return nil, err
		}
		a.source = src
	}
	return oauth2.NewClient(ctx, a.source), nil
}

func (a *Authenticator) buildTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	credPath := a.credentialsPath()
	if credPath == "" {
		return nil, &AuthError{Reason: "no credentials configured"}
	}

	credData, err := os.ReadFile(credPath) //nolint:gosec // G304: path is validated and user-configured
	if err != nil {
		return nil, &AuthError{Reason: "credentials file unreadable"}
	}

	conf, err := google.ConfigFromJSON(credData, oauthScopes...)
	if err != nil {
		return nil, &AuthError{Reason: "credentials file is not a valid OAuth client secret"}
	}

	tok, err := a.loadToken()
	if err != nil {
		return nil, err
	}

	// Persist refreshed tokens so a restart does not force re-authorization.
	return &savingTokenSource{
		inner:  conf.TokenSource(ctx, tok),
		path:   a.tokenPath,
		last:   tok,
		logger: a.logger,
	}, nil
}

func (a *Authenticator) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.tokenPath)
	if err != nil {
		return nil, &AuthError{Reason: "no saved authorization token"}
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		// A corrupt token forces re-authorization; remove it.
		_ = os.Remove(a.tokenPath)
		return nil, &AuthError{Reason: "saved token is corrupt"}
	}
	return &tok, nil
}

// SaveToken persists a token with owner-only permissions. Exposed for the
// external authorization flow that completes the OAuth consent exchange.
func (a *Authenticator) SaveToken(tok *oauth2.Token) error {
	return writeToken(a.tokenPath, tok)
}

func writeToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := filesystem.WriteFileAtomic(path, data, 0o600, 0o700); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

// savingTokenSource wraps a TokenSource and writes refreshed tokens to disk.
type savingTokenSource struct {
	inner  oauth2.TokenSource
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.inner.Token()
	if err != nil {
		return nil, &AuthError{Reason: "token refresh failed"}
	}

	s.mu.Lock()
	changed := s.last == nil || tok.AccessToken != s.last.AccessToken
	s.last = tok
	s.mu.Unlock()

	if changed {
		if err := writeToken(s.path, tok); err != nil {
			s.logger.Warn("persisting refreshed token", "error", err)
		}
	}
	return tok, nil
}
