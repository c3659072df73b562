package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shopworks/be-repair-core/internal/database"
	"github.com/shopworks/be-repair-core/internal/errors"
)

// ActivityLogRepository appends and reads immutable activity log entries.
// Append and bulk retention cleanup are the only mutation operations exposed.
type ActivityLogRepository struct {
	db *database.DB
}

// NewActivityLogRepository creates a new activity log repository.
func NewActivityLogRepository(db *database.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Append inserts one activity log entry.
func (r *ActivityLogRepository) Append(ctx context.Context, entry *ActivityLogEntry) error {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal activity metadata")
		}
	}

	query := `
		INSERT INTO activity_log
		    (business_id, actor_id, activity_type, description,
		     entity_type, entity_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		entry.BusinessID,
		entry.ActorID,
		entry.ActivityType,
		entry.Description,
		entry.EntityType,
		entry.EntityID,
		metadataJSON,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to append activity log entry")
	}
	return nil
}

// ListByEntity returns the audit trail for one entity, newest-first.
func (r *ActivityLogRepository) ListByEntity(ctx context.Context, businessID int64, entityType string, entityID int64, limit int) ([]*ActivityLogEntry, error) {
	query := `
		SELECT id, business_id, actor_id, activity_type, description,
		       entity_type, entity_id, metadata, created_at
		FROM activity_log
		WHERE business_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY created_at DESC
		LIMIT $4
	`
	rows, err := r.db.Query(ctx, query, businessID, entityType, entityID, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list activity log")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// ListByBusiness returns recent entries across all entities of a tenant.
func (r *ActivityLogRepository) ListByBusiness(ctx context.Context, businessID int64, limit, offset int) ([]*ActivityLogEntry, error) {
	query := `
		SELECT id, business_id, actor_id, activity_type, description,
		       entity_type, entity_id, metadata, created_at
		FROM activity_log
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, businessID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list activity log")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// DeleteOlderThan removes entries created before the cutoff across all
// tenants. Used only by the retention cleanup task.
func (r *ActivityLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM activity_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to prune activity log")
	}
	return tag.RowsAffected(), nil
}

func (r *ActivityLogRepository) scanRows(rows pgx.Rows) ([]*ActivityLogEntry, error) {
	var entries []*ActivityLogEntry
	for rows.Next() {
		entry := &ActivityLogEntry{}
		var metadataJSON []byte
		err := rows.Scan(
			&entry.ID,
			&entry.BusinessID,
			&entry.ActorID,
			&entry.ActivityType,
			&entry.Description,
			&entry.EntityType,
			&entry.EntityID,
			&metadataJSON,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan activity log entry")
		}
		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal activity metadata")
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
