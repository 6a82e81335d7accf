// Package eventhandler contains domain event handlers. Handlers are the
// reactive part of the system: they subscribe to the event bus and run side
// effects such as cache invalidation, keeping the command handlers free of
// read-model concerns.
package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/hacklabs/hacklabs-platform/internal/application/query"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON PROFILE CHANGED HANDLER
// Invalidates the cached profile view whenever a profile mutates. Commands
// only publish events; this handler owns the cache coherence.
// ══════════════════════════════════════════════════════════════════════════════

// OnProfileChangedHandler drops cached profile views on profile events.
type OnProfileChangedHandler struct {
	cache  query.ProfileCache
	logger *slog.Logger

	// timeout bounds the invalidation call; the bus delivers synchronously
	// and a slow cache must not stall the publisher.
	timeout time.Duration
}

// NewOnProfileChangedHandler creates a new handler.
func NewOnProfileChangedHandler(cache query.ProfileCache, logger *slog.Logger) *OnProfileChangedHandler {
	return &OnProfileChangedHandler{
		cache:   cache,
		logger:  logger,
		timeout: 2 * time.Second,
	}
}

// Register subscribes the handler to every event that mutates a profile.
func (h *OnProfileChangedHandler) Register(bus shared.EventSubscriber) error {
	for _, eventType := range []shared.EventType{
		shared.EventProfileCreated,
		shared.EventProfileRelinked,
		shared.EventProfileRepaired,
		shared.EventModuleProgressUpdated,
		shared.EventUnitCompleted,
	} {
		if err := bus.Subscribe(eventType, h.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle invalidates the cache entry for the event's profile.
func (h *OnProfileChangedHandler) Handle(event shared.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	profileID := event.AggregateID()
	if profileID == "" {
		return nil
	}

	if err := h.cache.Invalidate(ctx, profileID); err != nil {
		// Stale cache heals at TTL expiry; log and move on.
		h.logger.Warn("profile cache invalidation failed",
			slog.String("profile_id", profileID),
			slog.String("event_type", string(event.EventType())),
			slog.Any("error", err),
		)
		return err
	}

	h.logger.Debug("profile cache invalidated",
		slog.String("profile_id", profileID),
		slog.String("event_type", string(event.EventType())),
	)
	return nil
}
