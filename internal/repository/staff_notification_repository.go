package repository

import (
	"context"

	"github.com/shopworks/be-repair-core/internal/database"
	"github.com/shopworks/be-repair-core/internal/errors"
)

// StaffNotificationRepository stores in-app notifications for staff users.
type StaffNotificationRepository struct {
	db *database.DB
}

// NewStaffNotificationRepository creates a new staff notification repository.
func NewStaffNotificationRepository(db *database.DB) *StaffNotificationRepository {
	return &StaffNotificationRepository{db: db}
}

// Create inserts one notification.
func (r *StaffNotificationRepository) Create(ctx context.Context, n *StaffNotification) error {
	query := `
		INSERT INTO staff_notifications
		    (business_id, user_id, type, title, description, link, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		n.BusinessID, n.UserID, n.Type, n.Title, n.Description, n.Link, n.Priority,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create staff notification")
	}
	return nil
}

// ListForUser returns a user's notifications newest-first.
func (r *StaffNotificationRepository) ListForUser(ctx context.Context, businessID, userID int64, limit int) ([]*StaffNotification, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, business_id, user_id, type, title, description, link, priority, read, created_at
		 FROM staff_notifications
		 WHERE business_id = $1 AND user_id = $2
		 ORDER BY created_at DESC LIMIT $3`,
		businessID, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list staff notifications")
	}
	defer rows.Close()

	var notifications []*StaffNotification
	for rows.Next() {
		n := &StaffNotification{}
		err := rows.Scan(&n.ID, &n.BusinessID, &n.UserID, &n.Type, &n.Title,
			&n.Description, &n.Link, &n.Priority, &n.Read, &n.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan staff notification")
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead marks one notification as read.
func (r *StaffNotificationRepository) MarkRead(ctx context.Context, id, businessID, userID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE staff_notifications SET read = TRUE
		 WHERE id = $1 AND business_id = $2 AND user_id = $3`,
		id, businessID, userID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to mark notification read")
	}
	return nil
}
