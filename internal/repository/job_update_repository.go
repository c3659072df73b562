package repository

import (
	"context"

	"github.com/shopworks/be-repair-core/internal/database"
	"github.com/shopworks/be-repair-core/internal/errors"
)

// JobUpdateRepository stores notes attached to jobs.
type JobUpdateRepository struct {
	db *database.DB
}

// NewJobUpdateRepository creates a new job update repository.
func NewJobUpdateRepository(db *database.DB) *JobUpdateRepository {
	return &JobUpdateRepository{db: db}
}

// Create inserts one job update.
func (r *JobUpdateRepository) Create(ctx context.Context, upd *JobUpdate) error {
	query := `
		INSERT INTO job_updates (job_id, business_id, author_id, body, public)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		upd.JobID, upd.BusinessID, upd.AuthorID, upd.Body, upd.Public,
	).Scan(&upd.ID, &upd.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create job update")
	}
	return nil
}

// ListByJob returns a job's updates oldest-first. With publicOnly set, only
// the customer-visible subset is returned.
func (r *JobUpdateRepository) ListByJob(ctx context.Context, jobID, businessID int64, publicOnly bool) ([]*JobUpdate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, job_id, business_id, author_id, body, public, created_at
		 FROM job_updates
		 WHERE job_id = $1 AND business_id = $2 AND ($3 = FALSE OR public)
		 ORDER BY created_at ASC`,
		jobID, businessID, publicOnly)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list job updates")
	}
	defer rows.Close()

	var updates []*JobUpdate
	for rows.Next() {
		upd := &JobUpdate{}
		if err := rows.Scan(&upd.ID, &upd.JobID, &upd.BusinessID, &upd.AuthorID, &upd.Body, &upd.Public, &upd.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan job update")
		}
		updates = append(updates, upd)
	}
	return updates, rows.Err()
}
