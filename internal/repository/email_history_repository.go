package repository

import (
	"context"

	"github.com/shopworks/be-repair-core/internal/database"
	"github.com/shopworks/be-repair-core/internal/errors"
)

// EmailHistoryRepository appends and reads the outbound email log. Records
// are written whether or not the transport delivered.
type EmailHistoryRepository struct {
	db *database.DB
}

// NewEmailHistoryRepository creates a new email history repository.
func NewEmailHistoryRepository(db *database.DB) *EmailHistoryRepository {
	return &EmailHistoryRepository{db: db}
}

// Append inserts one record.
func (r *EmailHistoryRepository) Append(ctx context.Context, rec *EmailHistoryRecord) error {
	query := `
		INSERT INTO email_history
		    (business_id, recipient, subject, body, kind, sender,
		     entity_type, entity_id, delivered)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		rec.BusinessID,
		rec.Recipient,
		rec.Subject,
		rec.Body,
		rec.Kind,
		rec.Sender,
		rec.EntityType,
		rec.EntityID,
		rec.Delivered,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to append email history record")
	}
	return nil
}

// ListByBusiness returns recent outbound emails for a tenant.
func (r *EmailHistoryRepository) ListByBusiness(ctx context.Context, businessID int64, limit, offset int) ([]*EmailHistoryRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, business_id, recipient, subject, body, kind, sender,
		        entity_type, entity_id, delivered, created_at
		 FROM email_history WHERE business_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		businessID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list email history")
	}
	defer rows.Close()

	var records []*EmailHistoryRecord
	for rows.Next() {
		rec := &EmailHistoryRecord{}
		err := rows.Scan(&rec.ID, &rec.BusinessID, &rec.Recipient, &rec.Subject,
			&rec.Body, &rec.Kind, &rec.Sender, &rec.EntityType, &rec.EntityID,
			&rec.Delivered, &rec.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan email history record")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
