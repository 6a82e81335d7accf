// Package http implements the REST API: identity sync, profile reads,
// enrollment, module progress, the Clerk webhook, and health checks.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hacklabs/hacklabs-platform/internal/application/command"
	"github.com/hacklabs/hacklabs-platform/internal/application/query"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
	"github.com/hacklabs/hacklabs-platform/internal/infrastructure/external/clerk"
	"github.com/hacklabs/hacklabs-platform/internal/infrastructure/persistence/postgres"
	"github.com/hacklabs/hacklabs-platform/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host is the address to bind.
	Host string

	// Port is the port to listen on.
	Port int

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum duration for idle connections.
	IdleTimeout time.Duration

	// RateLimitPerMinute is the per-user request budget (0 = disabled).
	RateLimitPerMinute int

	// WebhookSecret is the Svix signing secret for the Clerk webhook.
	WebhookSecret string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		RateLimitPerMinute: 120,
	}
}

// Address returns the listen address.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains everything the handlers need.
type Dependencies struct {
	// Commands (CQRS write side)
	SyncIdentity        *command.SyncIdentityHandler
	Enroll              *command.EnrollHandler
	SetModuleCompletion *command.SetModuleCompletionHandler

	// Queries (CQRS read side)
	GetProfile      *query.GetProfileHandler
	GetUnitProgress *query.GetUnitProgressHandler

	// Clerk integration
	ClerkClient   *clerk.Client
	ClerkVerifier *clerk.Verifier

	// Infrastructure, used by the health endpoint and the rate limiter.
	DB    *postgres.Connection
	Cache *redis.Cache

	Logger *slog.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	router     *chi.Mux
	httpServer *http.Server
	logger     *slog.Logger
	startedAt  time.Time
}

// NewServer creates the server and wires all routes.
func NewServer(config Config, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Server{
		config: config,
		deps:   deps,
		router: chi.NewRouter(),
		logger: deps.Logger,
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         config.Address(),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s
}

// setupRoutes configures middleware and route handlers.
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.recoverMiddleware)
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", s.handleHealth)

	// Webhook: authenticated by signature, not by session.
	r.Post("/webhooks/clerk", s.handleClerkWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.sessionAuthMiddleware)
		if s.config.RateLimitPerMinute > 0 && s.deps.Cache != nil {
			r.Use(s.rateLimitMiddleware)
		}

		r.Post("/identity/sync", s.handleIdentitySync)
		r.Get("/me", s.handleGetMe)
		r.Post("/enrollments", s.handleEnroll)
		r.Put("/units/{unitID}/modules/{moduleID}/progress", s.handleSetModuleProgress)
		r.Get("/units/{unitID}/progress", s.handleGetUnitProgress)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start begins serving. Blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.startedAt = time.Now()
	s.logger.Info("starting HTTP server", slog.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Data  interface{} `json:"data,omitempty"`
	Error *apiError   `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: &apiError{Code: code, Message: message}})
}

// writeDomainError maps a domain error to a status code. Internal detail
// stays in the log; clients get the category.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsValidation(err):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, shared.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	case shared.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsAlreadyExists(err):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case shared.IsExternalService(err):
		s.logger.Error("upstream failure",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "upstream_unavailable", "identity provider is unavailable")
	default:
		s.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}

func decodeJSON(r *http.Request, dest interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return shared.WrapError("http", "DecodeBody", shared.ErrInvalidFormat, "malformed request body", err)
	}
	return nil
}
