// Package clerk implements the Clerk Backend API client and session
// verification. Clerk is the identity provider; this service never stores
// credentials, it only consumes identities Clerk has already authenticated.
package clerk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hacklabs/hacklabs-platform/internal/domain/identity"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
	"github.com/hacklabs/hacklabs-platform/pkg/circuitbreaker"
	"github.com/hacklabs/hacklabs-platform/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the Clerk API client.
type ClientConfig struct {
	// BaseURL is the Clerk Backend API base URL.
	BaseURL string

	// SecretKey is the sk_... backend key.
	SecretKey string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(secretKey string) ClientConfig {
	return ClientConfig{
		BaseURL:   "https://api.clerk.com/v1",
		SecretKey: secretKey,
		Timeout:   10 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the Clerk Backend API client. Requests run through a retrier
// and a circuit breaker; Clerk outages must not cascade into sign-in
// hanging forever.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
	mapper     *Mapper
}

// NewClient creates a new Clerk API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	logger := config.Logger
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
		retrier:    retry.ClerkAPIRetrier(),
		breaker: circuitbreaker.ClerkAPIBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		}),
		mapper: NewMapper(),
	}
}

// GetUser fetches a Clerk user by id and maps it to a domain identity.
func (c *Client) GetUser(ctx context.Context, userID string) (identity.ExternalIdentity, error) {
	var dto UserDTO
	path := "/users/" + url.PathEscape(userID)

	if err := c.doRequest(ctx, http.MethodGet, path, &dto); err != nil {
		return identity.ExternalIdentity{}, fmt.Errorf("clerk: get user %s: %w", userID, err)
	}

	return c.mapper.IdentityFromUser(&dto), nil
}

// ListUsersByEmail fetches Clerk users matching an email address.
func (c *Client) ListUsersByEmail(ctx context.Context, email string) ([]identity.ExternalIdentity, error) {
	var dtos []UserDTO
	path := "/users?email_address=" + url.QueryEscape(email)

	if err := c.doRequest(ctx, http.MethodGet, path, &dtos); err != nil {
		return nil, fmt.Errorf("clerk: list users by email: %w", err)
	}

	out := make([]identity.ExternalIdentity, 0, len(dtos))
	for i := range dtos {
		out = append(out, c.mapper.IdentityFromUser(&dtos[i]))
	}
	return out, nil
}

// IsHealthy reports whether the Clerk API responds.
func (c *Client) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/users?limit=1", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

// BreakerState exposes the circuit state for the health endpoint.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST PLUMBING
// ══════════════════════════════════════════════════════════════════════════════

func (c *Client) doRequest(ctx context.Context, method, path string, result interface{}) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.doSingleRequest(ctx, method, path, result)
		})
	})
}

func (c *Client) doSingleRequest(ctx context.Context, method, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return retry.Permanent(shared.ErrClerkTimeout)
		}
		return retry.Retryable(fmt.Errorf("%w: %v", shared.ErrClerkUnavailable, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return retry.Permanent(shared.ErrClerkUserNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return retry.Retryable(shared.ErrClerkRateLimited)
	case resp.StatusCode >= 500:
		return retry.Retryable(fmt.Errorf("%w: status %d", shared.ErrClerkUnavailable, resp.StatusCode))
	case resp.StatusCode >= 400:
		var apiErr APIErrorDTO
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && len(apiErr.Errors) > 0 {
			return retry.Permanent(&apiErr)
		}
		return retry.Permanent(fmt.Errorf("clerk: status %d", resp.StatusCode))
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return retry.Permanent(fmt.Errorf("%w: %v", shared.ErrClerkInvalidResponse, err))
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK PARSING
// ══════════════════════════════════════════════════════════════════════════════

// Webhook event types the sync reacts to.
const (
	WebhookUserCreated = "user.created"
	WebhookUserUpdated = "user.updated"
)

// ParseWebhookEvent decodes a Clerk webhook body into the event type and
// the mapped identity.
func (c *Client) ParseWebhookEvent(body []byte) (string, identity.ExternalIdentity, error) {
	var event WebhookEventDTO
	if err := json.Unmarshal(body, &event); err != nil {
		return "", identity.ExternalIdentity{}, fmt.Errorf("%w: %v", shared.ErrClerkInvalidResponse, err)
	}
	if !strings.HasPrefix(event.Type, "user.") {
		return event.Type, identity.ExternalIdentity{}, nil
	}
	return event.Type, c.mapper.IdentityFromUser(&event.Data), nil
}
