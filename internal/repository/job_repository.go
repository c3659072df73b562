package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shopworks/be-repair-core/internal/database"
	"github.com/shopworks/be-repair-core/internal/errors"
)

// JobRepository handles job data operations.
type JobRepository struct {
	db *database.DB
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db *database.DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, business_id, job_code, status,
       customer_id, customer_name, customer_email, customer_phone,
       assignee_id, description, equipment_description,
       estimated_hours, actual_hours, customer_notified,
       created_at, updated_at`

// Create inserts a new job.
func (r *JobRepository) Create(ctx context.Context, job *Job) error {
	query := `
		INSERT INTO jobs (business_id, job_code, status,
		                  customer_id, customer_name, customer_email, customer_phone,
		                  assignee_id, description, equipment_description,
		                  estimated_hours, customer_notified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		job.BusinessID,
		job.JobCode,
		job.Status,
		job.CustomerID,
		job.CustomerName,
		job.CustomerEmail,
		job.CustomerPhone,
		job.AssigneeID,
		job.Description,
		job.EquipmentDescription,
		job.EstimatedHours,
		job.CustomerNotified,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create job")
	}
	return nil
}

// GetByID retrieves a job by ID within a tenant.
func (r *JobRepository) GetByID(ctx context.Context, id, businessID int64) (*Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = $1 AND business_id = $2`, jobColumns)
	job, err := r.scanJob(r.db.QueryRow(ctx, query, id, businessID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("job", fmt.Sprintf("%d", id))
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get job")
	}
	return job, nil
}

// GetByCode retrieves a job by its job code within a tenant.
func (r *JobRepository) GetByCode(ctx context.Context, code string, businessID int64) (*Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE job_code = $1 AND business_id = $2`, jobColumns)
	job, err := r.scanJob(r.db.QueryRow(ctx, query, code, businessID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("job", code)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get job by code")
	}
	return job, nil
}

// List returns jobs for a tenant with optional status and assignee filters.
func (r *JobRepository) List(ctx context.Context, businessID int64, status *string, assigneeID *int64, limit, offset int) ([]*Job, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM jobs
		WHERE business_id = $1
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::bigint IS NULL OR assignee_id = $3)
		ORDER BY updated_at DESC
		LIMIT $4 OFFSET $5
	`, jobColumns)

	rows, err := r.db.Query(ctx, query, businessID, status, assigneeID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list jobs")
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := r.scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan job")
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Codes returns every job code in a tenant, used for code generation.
func (r *JobRepository) Codes(ctx context.Context, businessID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT job_code FROM jobs WHERE business_id = $1`, businessID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list job codes")
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan job code")
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// Update persists all mutable fields of a job.
func (r *JobRepository) Update(ctx context.Context, job *Job) error {
	query := `
		UPDATE jobs
		SET status = $3, customer_id = $4, customer_name = $5,
		    customer_email = $6, customer_phone = $7, assignee_id = $8,
		    description = $9, equipment_description = $10,
		    estimated_hours = $11, actual_hours = $12,
		    customer_notified = $13, updated_at = NOW()
		WHERE id = $1 AND business_id = $2
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		job.ID,
		job.BusinessID,
		job.Status,
		job.CustomerID,
		job.CustomerName,
		job.CustomerEmail,
		job.CustomerPhone,
		job.AssigneeID,
		job.Description,
		job.EquipmentDescription,
		job.EstimatedHours,
		job.ActualHours,
		job.CustomerNotified,
	).Scan(&job.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.NotFound("job", fmt.Sprintf("%d", job.ID))
		}
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update job")
	}
	return nil
}

// SetCustomerNotified flips the customer-notified flag without touching
// anything else.
func (r *JobRepository) SetCustomerNotified(ctx context.Context, id, businessID int64, notified bool) error {
	_, err := r.db.Exec(ctx,
		`UPDATE jobs SET customer_notified = $3 WHERE id = $1 AND business_id = $2`,
		id, businessID, notified)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to set customer notified")
	}
	return nil
}

// Touch refreshes only the updated_at timestamp. Used by dependent-entity
// writers to keep the parent's recency indicator accurate.
func (r *JobRepository) Touch(ctx context.Context, id, businessID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE jobs SET updated_at = NOW() WHERE id = $1 AND business_id = $2`,
		id, businessID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to touch job")
	}
	return nil
}

// Delete removes a job. Returns false when no row matched.
func (r *JobRepository) Delete(ctx context.Context, id, businessID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM jobs WHERE id = $1 AND business_id = $2`, id, businessID)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeInternal, "failed to delete job")
	}
	return tag.RowsAffected() > 0, nil
}

// CountOpen counts jobs not yet completed.
func (r *JobRepository) CountOpen(ctx context.Context, businessID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE business_id = $1 AND status <> $2`,
		businessID, JobStatusCompleted).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count open jobs")
	}
	return count, nil
}

// CountCompletedSince counts jobs that reached completion after the cutoff.
func (r *JobRepository) CountCompletedSince(ctx context.Context, businessID int64, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE business_id = $1 AND status = $2 AND updated_at >= $3`,
		businessID, JobStatusCompleted, since).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count completed jobs")
	}
	return count, nil
}

type jobScanner interface {
	Scan(dest ...any) error
}

func (r *JobRepository) scanJob(sc jobScanner) (*Job, error) {
	job := &Job{}
	err := sc.Scan(
		&job.ID,
		&job.BusinessID,
		&job.JobCode,
		&job.Status,
		&job.CustomerID,
		&job.CustomerName,
		&job.CustomerEmail,
		&job.CustomerPhone,
		&job.AssigneeID,
		&job.Description,
		&job.EquipmentDescription,
		&job.EstimatedHours,
		&job.ActualHours,
		&job.CustomerNotified,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}
