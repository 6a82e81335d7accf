package redis

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hacklabs/hacklabs-platform/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE CACHE
// ══════════════════════════════════════════════════════════════════════════════

// ProfileCache is the Redis implementation of query.ProfileCache. Reads and
// writes are fail-open: a Redis error is logged and reported as a miss so
// the store remains the fallback.
type ProfileCache struct {
	cache  *Cache
	logger *slog.Logger
}

// NewProfileCache creates a new ProfileCache.
func NewProfileCache(cache *Cache, logger *slog.Logger) *ProfileCache {
	return &ProfileCache{cache: cache, logger: logger}
}

// Get returns the cached profile view or a miss.
func (p *ProfileCache) Get(ctx context.Context, profileID string) (*query.GetProfileResult, bool) {
	var result query.GetProfileResult
	err := p.cache.Get(ctx, ProfileKey(profileID), &result)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			p.logger.Warn("profile cache read failed",
				slog.String("profile_id", profileID),
				slog.Any("error", err),
			)
		}
		return nil, false
	}
	return &result, true
}

// Set stores the profile view with the standard TTL.
func (p *ProfileCache) Set(ctx context.Context, profileID string, result *query.GetProfileResult) error {
	return p.cache.Set(ctx, ProfileKey(profileID), result, TTLProfileCache)
}

// Invalidate drops the cached view.
func (p *ProfileCache) Invalidate(ctx context.Context, profileID string) error {
	return p.cache.Delete(ctx, ProfileKey(profileID))
}
