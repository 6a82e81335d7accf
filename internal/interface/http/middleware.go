package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const contextKeyExternalUserID contextKey = "external_user_id"

// externalUserID returns the authenticated Clerk user id from the context.
// Empty means the request did not pass the session middleware.
func externalUserID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyExternalUserID).(string)
	return id
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// sessionAuthMiddleware verifies the Bearer session token offline and puts
// the Clerk user id on the context.
func (s *Server) sessionAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.ClerkVerifier == nil {
			writeError(w, http.StatusServiceUnavailable, "auth_unconfigured", "session verification is not configured")
			return
		}

		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "bearer token required")
			return
		}

		userID, err := s.deps.ClerkVerifier.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "session token is invalid")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyExternalUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimitMiddleware enforces a fixed-window per-user budget in Redis.
// A Redis outage fails open: the API stays up without its limiter.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := externalUserID(r.Context())

		allowed, err := s.deps.Cache.AllowRequest(r.Context(), userID, "api",
			int64(s.config.RateLimitPerMinute), time.Minute)
		if err != nil {
			s.logger.Warn("rate limiter unavailable", slog.String("error", err.Error()))
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs every request with status and latency.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}

// recoverMiddleware converts panics into 500 responses.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					slog.Any("panic", rec),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				writeError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK SIGNATURE
// ══════════════════════════════════════════════════════════════════════════════

// verifyWebhookSignature checks the Svix signature Clerk attaches to
// webhook deliveries: HMAC-SHA256 over "{id}.{timestamp}.{body}" with the
// endpoint's signing secret. The svix-signature header may carry several
// space-separated "v1,<base64>" candidates during secret rotation.
func verifyWebhookSignature(secret string, headers http.Header, body []byte) bool {
	msgID := headers.Get("svix-id")
	timestamp := headers.Get("svix-timestamp")
	signatures := headers.Get("svix-signature")
	if msgID == "" || timestamp == "" || signatures == "" {
		return false
	}

	key := secret
	if cut, ok := strings.CutPrefix(key, "whsec_"); ok {
		key = cut
	}
	keyBytes, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, keyBytes)
	mac.Write([]byte(msgID))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, candidate := range strings.Fields(signatures) {
		sig, ok := strings.CutPrefix(candidate, "v1,")
		if !ok {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) == 1 {
			return true
		}
	}
	return false
}
