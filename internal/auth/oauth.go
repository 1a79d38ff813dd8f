// Package auth handles OAuth2 authentication against Google for the Slides,
// Drive and Cloud Translation scopes, plus storage of the resulting
// credentials.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultScopes are the OAuth2 scopes the pipeline needs.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/presentations",
	"https://www.googleapis.com/auth/drive",
	"https://www.googleapis.com/auth/cloud-translation",
}

// Config holds OAuth2 client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
}

// Handler drives the OAuth2 authorization-code flow over HTTP.
type Handler struct {
	config      *oauth2.Config
	logger      *slog.Logger
	states      map[string]bool
	mu          sync.Mutex
	onTokenFunc func(ctx context.Context, token *oauth2.Token) error
}

// NewHandler creates an OAuth handler.
func NewHandler(config Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	scopes := config.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	return &Handler{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURI,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
		logger: logger,
		states: make(map[string]bool),
	}
}

// SetOnTokenFunc registers a callback invoked when a token is obtained.
func (h *Handler) SetOnTokenFunc(fn func(ctx context.Context, token *oauth2.Token) error) {
	h.onTokenFunc = fn
}

// HandleAuth handles GET /auth and initiates the OAuth2 flow.
func (h *Handler) HandleAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	state, err := generateState()
	if err != nil {
		h.logger.Error("failed to generate state", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "failed to generate state")
		return
	}

	h.mu.Lock()
	h.states[state] = true
	h.mu.Unlock()

	authURL := h.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	h.logger.Info("OAuth2 flow initiated", slog.String("redirect_uri", h.config.RedirectURL))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"authorization_url": authURL,
		"message":           "Please visit the authorization URL to complete authentication",
	})
}

// HandleCallback handles GET /auth/callback with the authorization code.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		errDesc := r.URL.Query().Get("error_description")
		h.logger.Error("OAuth2 error from provider",
			slog.String("error", errParam),
			slog.String("description", errDesc),
		)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("OAuth2 error: %s - %s", errParam, errDesc))
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" {
		h.writeError(w, http.StatusBadRequest, "missing state parameter")
		return
	}

	h.mu.Lock()
	validState := h.states[state]
	if validState {
		delete(h.states, state)
	}
	h.mu.Unlock()

	if !validState {
		h.writeError(w, http.StatusBadRequest, "invalid state parameter")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("failed to exchange code for token", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "failed to exchange code for token")
		return
	}

	h.logger.Info("OAuth2 token obtained",
		slog.Bool("has_refresh_token", token.RefreshToken != ""),
		slog.Time("expiry", token.Expiry),
	)

	if h.onTokenFunc != nil {
		if err := h.onTokenFunc(r.Context(), token); err != nil {
			h.logger.Error("token callback failed", slog.Any("error", err))
			h.writeError(w, http.StatusInternalServerError, "failed to process token")
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	response := map[string]any{
		"message": "Authentication successful",
		"expiry":  token.Expiry,
	}
	if token.RefreshToken != "" {
		response["has_refresh_token"] = true
	}
	json.NewEncoder(w).Encode(response)
}

// AuthURL returns the OAuth2 authorization URL for the given state.
func (h *Handler) AuthURL(state string) string {
	return h.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange exchanges an authorization code for tokens.
func (h *Handler) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return h.config.Exchange(ctx, code)
}

// TokenSource builds a token source from a refresh token.
func (h *Handler) TokenSource(ctx context.Context, refreshToken string) oauth2.TokenSource {
	return h.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
}

// OAuthConfig returns the underlying oauth2 config (for testing).
func (h *Handler) OAuthConfig() *oauth2.Config {
	return h.config
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// TokenSourceFromRefreshToken builds a token source without a Handler, for
// the CLI and the API-key middleware.
func TokenSourceFromRefreshToken(ctx context.Context, clientID, clientSecret, refreshToken string) oauth2.TokenSource {
	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       DefaultScopes,
	}
	return config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
}

// Verifier checks that a token source can mint a valid token. It implements
// the pipeline's Authenticating stage.
type Verifier struct {
	tokenSource oauth2.TokenSource
}

// NewVerifier wraps a token source.
func NewVerifier(ts oauth2.TokenSource) *Verifier {
	return &Verifier{tokenSource: ts}
}

// Authenticate forces a token fetch so credential problems surface before
// any collaborator is called.
func (v *Verifier) Authenticate(ctx context.Context) error {
	token, err := v.tokenSource.Token()
	if err != nil {
		return err
	}
	if !token.Valid() {
		return fmt.Errorf("obtained token is not valid")
	}
	return nil
}
