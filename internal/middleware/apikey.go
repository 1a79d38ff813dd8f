// Package middleware provides HTTP middleware for the job API.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/eprouveze/gslides-translator/internal/auth"
)

type contextKey string

const (
	// APIKeyContextKey is the context key for the validated API key.
	APIKeyContextKey contextKey = "api_key"
	// TokenSourceContextKey is the context key for the per-key OAuth2 token
	// source.
	TokenSourceContextKey contextKey = "token_source"
)

// Sentinel errors for API key validation.
var (
	ErrMissingAuthHeader  = errors.New("missing Authorization header")
	ErrInvalidAuthHeader  = errors.New("invalid Authorization header format")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrAPIKeyLookupFailed = errors.New("failed to lookup API key")
)

// cachedCredential holds a validated credential with its token source.
type cachedCredential struct {
	record      *auth.CredentialRecord
	tokenSource oauth2.TokenSource
	cachedAt    time.Time
}

// APIKeyConfig holds configuration for the API key middleware.
type APIKeyConfig struct {
	Store             auth.CredentialStore
	OAuthClientID     string
	OAuthClientSecret string
	CacheTTL          time.Duration // default 5 minutes
	Logger            *slog.Logger
}

// APIKey validates bearer API keys against the credential store and attaches
// a per-key OAuth token source to the request context.
type APIKey struct {
	config APIKeyConfig
	cache  map[string]*cachedCredential
	mu     sync.RWMutex
}

// NewAPIKey creates the middleware.
func NewAPIKey(config APIKeyConfig) *APIKey {
	if config.CacheTTL == 0 {
		config.CacheTTL = 5 * time.Minute
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &APIKey{
		config: config,
		cache:  make(map[string]*cachedCredential),
	}
}

// Middleware returns an HTTP middleware validating the API key.
func (m *APIKey) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		apiKey, err := extractAPIKey(r)
		if err != nil {
			m.writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		cred, err := m.validate(ctx, apiKey)
		if err != nil {
			if errors.Is(err, ErrInvalidAPIKey) || errors.Is(err, ErrAPIKeyLookupFailed) {
				m.writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			m.config.Logger.Error("failed to validate API key", slog.Any("error", err))
			m.writeError(w, http.StatusInternalServerError, "authentication failed")
			return
		}

		go m.touch(context.Background(), apiKey)

		ctx = context.WithValue(ctx, APIKeyContextKey, apiKey)
		ctx = context.WithValue(ctx, TokenSourceContextKey, cred.tokenSource)
		next(w, r.WithContext(ctx))
	}
}

func extractAPIKey(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingAuthHeader
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrInvalidAuthHeader
	}

	apiKey := strings.TrimSpace(parts[1])
	if apiKey == "" {
		return "", ErrInvalidAuthHeader
	}
	return apiKey, nil
}

func (m *APIKey) validate(ctx context.Context, apiKey string) (*cachedCredential, error) {
	m.mu.RLock()
	cached, ok := m.cache[apiKey]
	m.mu.RUnlock()
	if ok && time.Since(cached.cachedAt) < m.config.CacheTTL {
		return cached, nil
	}

	record, err := m.config.Store.Get(ctx, apiKey)
	if err != nil {
		if auth.IsNotFound(err) {
			return nil, ErrInvalidAPIKey
		}
		return nil, ErrAPIKeyLookupFailed
	}

	cred := &cachedCredential{
		record: record,
		tokenSource: auth.TokenSourceFromRefreshToken(ctx,
			m.config.OAuthClientID, m.config.OAuthClientSecret, record.RefreshToken),
		cachedAt: time.Now(),
	}

	m.mu.Lock()
	m.cache[apiKey] = cred
	m.mu.Unlock()
	return cred, nil
}

func (m *APIKey) touch(ctx context.Context, apiKey string) {
	if err := m.config.Store.UpdateLastUsed(ctx, apiKey); err != nil {
		m.config.Logger.Error("failed to update last_used timestamp", slog.Any("error", err))
	}
}

// Invalidate removes an API key from the cache.
func (m *APIKey) Invalidate(apiKey string) {
	m.mu.Lock()
	delete(m.cache, apiKey)
	m.mu.Unlock()
}

func (m *APIKey) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetAPIKey retrieves the validated API key from the request context.
func GetAPIKey(ctx context.Context) string {
	if v := ctx.Value(APIKeyContextKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetTokenSource retrieves the OAuth2 token source from the request context.
func GetTokenSource(ctx context.Context) oauth2.TokenSource {
	if v := ctx.Value(TokenSourceContextKey); v != nil {
		return v.(oauth2.TokenSource)
	}
	return nil
}
