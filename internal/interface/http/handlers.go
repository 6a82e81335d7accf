package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hacklabs/hacklabs-platform/internal/application/command"
	"github.com/hacklabs/hacklabs-platform/internal/application/query"
	"github.com/hacklabs/hacklabs-platform/internal/domain/identity"
	"github.com/hacklabs/hacklabs-platform/internal/domain/profile"
	"github.com/hacklabs/hacklabs-platform/internal/infrastructure/external/clerk"
)

// ══════════════════════════════════════════════════════════════════════════════
// IDENTITY SYNC
// ══════════════════════════════════════════════════════════════════════════════

type syncRequest struct {
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url"`
}

type profileResponse struct {
	ID               string    `json:"id"`
	ExternalID       string    `json:"external_id"`
	Email            string    `json:"email"`
	DisplayName      string    `json:"display_name"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
	Rank             string    `json:"rank"`
	XP               int       `json:"xp"`
	SubscriptionTier string    `json:"subscription_tier"`
	CreatedAt        time.Time `json:"created_at"`
}

type syncResponse struct {
	Profile  profileResponse `json:"profile"`
	Created  bool            `json:"created"`
	Relinked bool            `json:"relinked"`
}

func toProfileResponse(p *profile.Profile) profileResponse {
	return profileResponse{
		ID:               p.ID,
		ExternalID:       p.ExternalID,
		Email:            p.Email,
		DisplayName:      p.DisplayName,
		AvatarURL:        p.AvatarURL,
		Rank:             p.Rank,
		XP:               p.XP,
		SubscriptionTier: p.SubscriptionTier,
		CreatedAt:        p.CreatedAt,
	}
}

// handleIdentitySync reconciles the authenticated identity against the
// profile store. The client may send the identity fields it already holds;
// when the body carries no email the handler fetches the user from Clerk.
func (s *Server) handleIdentitySync(w http.ResponseWriter, r *http.Request) {
	userID := externalUserID(r.Context())

	var req syncRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
	}

	ext := identity.ExternalIdentity{
		ID:        userID,
		Email:     req.Email,
		FullName:  req.FullName,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		AvatarURL: req.AvatarURL,
	}
	if ext.Email == "" {
		fetched, err := s.deps.ClerkClient.GetUser(r.Context(), userID)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		ext = fetched
	}

	result, err := s.deps.SyncIdentity.Handle(r.Context(), command.SyncIdentityCommand{
		Identity:      ext,
		CorrelationID: chimiddleware.GetReqID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	for _, failure := range result.BootstrapFailures {
		s.logger.Warn("bootstrap step failed, sweep will repair",
			slog.String("profile_id", result.Profile.ID),
			slog.String("step", failure.Step),
			slog.String("error", failure.Err.Error()),
		)
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, syncResponse{
		Profile:  toProfileResponse(result.Profile),
		Created:  result.Created,
		Relinked: result.Relinked,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE READ
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetProfile.Handle(r.Context(), query.GetProfileQuery{
		ExternalID: externalUserID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT
// ══════════════════════════════════════════════════════════════════════════════

type enrollRequest struct {
	UnitID string `json:"unit_id"`
}

type enrollResponse struct {
	EnrollmentID       string `json:"enrollment_id"`
	UnitID             string `json:"unit_id"`
	ProgressPercentage int    `json:"progress_percentage"`
	Created            bool   `json:"created"`
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	prof, err := s.resolveProfile(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	result, err := s.deps.Enroll.Handle(r.Context(), command.EnrollCommand{
		ProfileID:     prof.Profile.ID,
		UnitID:        req.UnitID,
		CorrelationID: chimiddleware.GetReqID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, enrollResponse{
		EnrollmentID:       result.Enrollment.ID,
		UnitID:             result.Enrollment.UnitID,
		ProgressPercentage: result.Enrollment.ProgressPercentage,
		Created:            result.Created,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// MODULE PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

type setProgressRequest struct {
	Completed bool `json:"completed"`
}

type setProgressResponse struct {
	UnitID             string `json:"unit_id"`
	ModuleID           string `json:"module_id"`
	Completed          bool   `json:"completed"`
	ProgressPercentage int    `json:"progress_percentage"`
	CompletedModules   int    `json:"completed_modules"`
	TotalModules       int    `json:"total_modules"`
	UnitCompleted      bool   `json:"unit_completed"`
}

func (s *Server) handleSetModuleProgress(w http.ResponseWriter, r *http.Request) {
	var req setProgressRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	prof, err := s.resolveProfile(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	unitID := chi.URLParam(r, "unitID")
	moduleID := chi.URLParam(r, "moduleID")

	result, err := s.deps.SetModuleCompletion.Handle(r.Context(), command.SetModuleCompletionCommand{
		ProfileID:     prof.Profile.ID,
		UnitID:        unitID,
		ModuleID:      moduleID,
		Completed:     req.Completed,
		CorrelationID: chimiddleware.GetReqID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, setProgressResponse{
		UnitID:             unitID,
		ModuleID:           moduleID,
		Completed:          req.Completed,
		ProgressPercentage: result.ProgressPercentage,
		CompletedModules:   result.CompletedModules,
		TotalModules:       result.TotalModules,
		UnitCompleted:      result.UnitCompleted,
	})
}

func (s *Server) handleGetUnitProgress(w http.ResponseWriter, r *http.Request) {
	prof, err := s.resolveProfile(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	result, err := s.deps.GetUnitProgress.Handle(r.Context(), query.GetUnitProgressQuery{
		ProfileID: prof.Profile.ID,
		UnitID:    chi.URLParam(r, "unitID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// resolveProfile maps the authenticated external user id to the local
// profile. Users who never synced have no profile yet; the 404 tells the
// client to call the sync endpoint first.
func (s *Server) resolveProfile(r *http.Request) (*query.GetProfileResult, error) {
	return s.deps.GetProfile.Handle(r.Context(), query.GetProfileQuery{
		ExternalID: externalUserID(r.Context()),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// CLERK WEBHOOK
// ══════════════════════════════════════════════════════════════════════════════

// handleClerkWebhook syncs profiles on user.created and user.updated
// deliveries. Other event types are acknowledged and ignored so Clerk does
// not retry them.
func (s *Server) handleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unreadable body")
		return
	}

	if s.config.WebhookSecret != "" && !verifyWebhookSignature(s.config.WebhookSecret, r.Header, body) {
		writeError(w, http.StatusUnauthorized, "invalid_signature", "webhook signature verification failed")
		return
	}

	eventType, ext, err := s.deps.ClerkClient.ParseWebhookEvent(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed webhook payload")
		return
	}

	if eventType != clerk.WebhookUserCreated && eventType != clerk.WebhookUserUpdated {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	result, err := s.deps.SyncIdentity.Handle(r.Context(), command.SyncIdentityCommand{
		Identity:      ext,
		CorrelationID: chimiddleware.GetReqID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "synced",
		"profile_id": result.Profile.ID,
		"created":    result.Created,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Breaker string            `json:"clerk_breaker,omitempty"`
	Uptime  string            `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, 2)
	healthy := true

	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(ctx); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Ping(ctx); err != nil {
			// The cache is an accelerator. Degraded, not down.
			checks["redis"] = "degraded: " + err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	resp := healthResponse{
		Status: "ok",
		Checks: checks,
		Uptime: time.Since(s.startedAt).Round(time.Second).String(),
	}
	if s.deps.ClerkClient != nil {
		resp.Breaker = s.deps.ClerkClient.BreakerState()
	}

	status := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
