package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// LocalFlow obtains credentials for the CLI: a cached token file when one
// exists, otherwise an interactive authorization-code flow through a
// loopback redirect server.
type LocalFlow struct {
	config    *oauth2.Config
	tokenPath string
	logger    *slog.Logger
}

// NewLocalFlow creates a local OAuth flow caching tokens at tokenPath.
func NewLocalFlow(cfg Config, tokenPath string, logger *slog.Logger) *LocalFlow {
	if logger == nil {
		logger = slog.Default()
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	return &LocalFlow{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
		tokenPath: tokenPath,
		logger:    logger,
	}
}

// TokenSource returns a token source, running the interactive flow when no
// cached token is usable.
func (f *LocalFlow) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if token, err := f.loadToken(); err == nil {
		return f.config.TokenSource(ctx, token), nil
	}

	token, err := f.authorize(ctx)
	if err != nil {
		return nil, err
	}
	if err := f.saveToken(token); err != nil {
		f.logger.Warn("failed to cache token", slog.Any("error", err))
	}
	return f.config.TokenSource(ctx, token), nil
}

// authorize runs the authorization-code flow against a loopback server on an
// ephemeral port.
func (f *LocalFlow) authorize(ctx context.Context) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to open loopback listener: %w", err)
	}
	defer listener.Close()

	cfg := *f.config
	cfg.RedirectURL = fmt.Sprintf("http://%s/callback", listener.Addr().String())

	state, err := generateState()
	if err != nil {
		return nil, err
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	server := &http.Server{
		ReadTimeout: 30 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/callback" {
				http.NotFound(w, r)
				return
			}
			if got := r.URL.Query().Get("state"); got != state {
				errCh <- fmt.Errorf("state mismatch in OAuth callback")
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			}
			code := r.URL.Query().Get("code")
			if code == "" {
				errCh <- fmt.Errorf("missing authorization code in callback")
				http.Error(w, "missing code", http.StatusBadRequest)
				return
			}
			fmt.Fprintln(w, "Authentication complete. You can close this window.")
			codeCh <- code
		}),
	}
	go server.Serve(listener)
	defer server.Close()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(os.Stderr, "Visit this URL to authorize the application:\n\n  %s\n\n", authURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}

func (f *LocalFlow) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(f.tokenPath)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}
	if token.RefreshToken == "" && !token.Valid() {
		return nil, fmt.Errorf("cached token at %s is expired and has no refresh token", f.tokenPath)
	}
	return &token, nil
}

func (f *LocalFlow) saveToken(token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return os.WriteFile(f.tokenPath, data, 0o600)
}
