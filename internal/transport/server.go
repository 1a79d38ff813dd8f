// Package transport exposes the translation job API over HTTP: job creation,
// progress polling, cancellation, and the OAuth endpoints.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	defaultPort            = 8080
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 30 * time.Second
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	Logger          *slog.Logger
}

// DefaultServerConfig returns configuration with default values.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            defaultPort,
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		IdleTimeout:     defaultIdleTimeout,
		ShutdownTimeout: defaultShutdownTimeout,
		AllowedOrigins:  []string{"*"},
		Logger:          slog.Default(),
	}
}

// AuthHandler is the interface for OAuth authentication handlers.
type AuthHandler interface {
	HandleAuth(w http.ResponseWriter, r *http.Request)
	HandleCallback(w http.ResponseWriter, r *http.Request)
}

// Middleware wraps a handler, e.g. for API key validation or rate limiting.
type Middleware interface {
	Middleware(next http.HandlerFunc) http.HandlerFunc
}

// Server is the HTTP server for the job API.
type Server struct {
	config      ServerConfig
	httpServer  *http.Server
	mux         *http.ServeMux
	jobs        *JobsHandler
	authHandler AuthHandler
	apiKeyAuth  Middleware
	rateLimiter Middleware
	logger      *slog.Logger
	mu          sync.RWMutex
	running     bool
}

// NewServer creates the job API server.
func NewServer(config ServerConfig, jobs *JobsHandler) *Server {
	if config.Port == 0 {
		config.Port = defaultPort
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = defaultReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = defaultWriteTimeout
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = defaultIdleTimeout
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaultShutdownTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		jobs:   jobs,
		logger: config.Logger,
	}
	s.setupRoutes()
	return s
}

// SetAuthHandler sets the OAuth authentication handler.
func (s *Server) SetAuthHandler(handler AuthHandler) {
	s.authHandler = handler
}

// SetAPIKeyMiddleware sets the API key validation middleware.
func (s *Server) SetAPIKeyMiddleware(m Middleware) {
	s.apiKeyAuth = m
}

// SetRateLimitMiddleware sets the rate limiting middleware.
func (s *Server) SetRateLimitMiddleware(m Middleware) {
	s.rateLimiter = m
}

// setupRoutes configures all HTTP routes. Progress polling carries no side
// effects and stays cheap, so pollers can hit it repeatedly.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /jobs", s.withMiddleware(s.withAPIKeyAuth(s.jobs.HandleCreate)))
	s.mux.HandleFunc("GET /jobs/{id}", s.withMiddleware(s.jobs.HandleProgress))
	s.mux.HandleFunc("POST /jobs/{id}/cancel", s.withMiddleware(s.withAPIKeyAuth(s.jobs.HandleCancel)))

	s.mux.HandleFunc("GET /auth", s.withMiddleware(s.handleAuth))
	s.mux.HandleFunc("GET /auth/callback", s.withMiddleware(s.handleAuthCallback))
}

// withAPIKeyAuth wraps a handler with API key authentication when it is
// configured.
func (s *Server) withAPIKeyAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKeyAuth != nil {
			s.apiKeyAuth.Middleware(next)(w, r)
			return
		}
		next(w, r)
	}
}

// withMiddleware wraps a handler with request logging and rate limiting.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		if s.rateLimiter != nil {
			s.rateLimiter.Middleware(next)(rw, r)
		} else {
			next(rw, r)
		}

		s.logger.Info("request completed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.statusCode),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote_addr", r.RemoteAddr),
		)
	}
}

// applyCORS applies CORS headers to the response.
func (s *Server) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	for _, o := range s.config.AllowedOrigins {
		if o == "*" || o == origin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if s.authHandler == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "authentication not configured")
		return
	}
	s.authHandler.HandleAuth(w, r)
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if s.authHandler == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "authentication not configured")
		return
	}
	s.authHandler.HandleCallback(w, r)
}

// Handler returns the server's root handler. CORS and preflight requests are
// handled here, before method-specific routing.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.applyCORS(w, r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.mux.ServeHTTP(w, r)
	})
}

// Start runs the HTTP server until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.logger.Info("starting job API server", slog.Int("port", s.config.Port))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

// IsRunning reports whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
