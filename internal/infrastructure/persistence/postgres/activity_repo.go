package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hacklabs/hacklabs-platform/internal/domain/activity"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ActivityRepository is the pgx implementation of activity.Repository.
// The table is append-only; there is no update or delete path.
type ActivityRepository struct {
	conn *Connection
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(conn *Connection) *ActivityRepository {
	return &ActivityRepository{conn: conn}
}

// Append inserts a new log entry.
func (r *ActivityRepository) Append(ctx context.Context, e *activity.Entry) error {
	var metadata []byte
	if e.Metadata != nil {
		var err error
		metadata, err = json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("postgres: marshal activity metadata: %w", err)
		}
	}

	query := `
		INSERT INTO activity_logs (profile_id, type, metadata, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.conn.QueryRow(ctx, query, e.ProfileID, e.Type, metadata, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("postgres: append activity: %w", err)
	}
	return nil
}

// ListByProfile returns the most recent entries for a profile.
func (r *ActivityRepository) ListByProfile(ctx context.Context, profileID string, limit int) ([]*activity.Entry, error) {
	query := `
		SELECT id, profile_id, type, metadata, created_at
		FROM activity_logs
		WHERE profile_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.conn.Query(ctx, query, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list activity: %w", err)
	}
	defer rows.Close()

	var out []*activity.Entry
	for rows.Next() {
		var e activity.Entry
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.ProfileID, &e.Type, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan activity: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal activity metadata: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// HasType reports whether the profile has an entry of the given type.
func (r *ActivityRepository) HasType(ctx context.Context, profileID, activityType string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM activity_logs WHERE profile_id = $1 AND type = $2)",
		profileID, activityType).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: activity type check: %w", err)
	}
	return exists, nil
}
