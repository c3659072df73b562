package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shopworks/be-repair-core/internal/database"
	"github.com/shopworks/be-repair-core/internal/errors"
)

// PartOrderRepository handles single-part procurement records and their
// status history feed.
type PartOrderRepository struct {
	db *database.DB
}

// NewPartOrderRepository creates a new part order repository.
func NewPartOrderRepository(db *database.DB) *PartOrderRepository {
	return &PartOrderRepository{db: db}
}

const partOrderColumns = `id, business_id, job_id, part_name, supplier,
       customer_name, customer_email, customer_phone,
       status, notify_customer, created_at, updated_at`

// Create inserts a part order.
func (r *PartOrderRepository) Create(ctx context.Context, po *PartOrder) error {
	query := `
		INSERT INTO part_orders (business_id, job_id, part_name, supplier,
		                         customer_name, customer_email, customer_phone,
		                         status, notify_customer)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		po.BusinessID,
		po.JobID,
		po.PartName,
		po.Supplier,
		po.CustomerName,
		po.CustomerEmail,
		po.CustomerPhone,
		po.Status,
		po.NotifyCustomer,
	).Scan(&po.ID, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create part order")
	}
	return nil
}

// GetByID retrieves a part order by ID within a tenant.
func (r *PartOrderRepository) GetByID(ctx context.Context, id, businessID int64) (*PartOrder, error) {
	query := fmt.Sprintf(`SELECT %s FROM part_orders WHERE id = $1 AND business_id = $2`, partOrderColumns)
	po := &PartOrder{}
	err := r.db.QueryRow(ctx, query, id, businessID).Scan(
		&po.ID, &po.BusinessID, &po.JobID, &po.PartName, &po.Supplier,
		&po.CustomerName, &po.CustomerEmail, &po.CustomerPhone,
		&po.Status, &po.NotifyCustomer, &po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("part order", fmt.Sprintf("%d", id))
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get part order")
	}
	return po, nil
}

// List returns part orders for a tenant with an optional status filter.
func (r *PartOrderRepository) List(ctx context.Context, businessID int64, status *string, limit, offset int) ([]*PartOrder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM part_orders
		WHERE business_id = $1
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, partOrderColumns)

	rows, err := r.db.Query(ctx, query, businessID, status, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list part orders")
	}
	defer rows.Close()

	var pos []*PartOrder
	for rows.Next() {
		po := &PartOrder{}
		err := rows.Scan(
			&po.ID, &po.BusinessID, &po.JobID, &po.PartName, &po.Supplier,
			&po.CustomerName, &po.CustomerEmail, &po.CustomerPhone,
			&po.Status, &po.NotifyCustomer, &po.CreatedAt, &po.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan part order")
		}
		pos = append(pos, po)
	}
	return pos, rows.Err()
}

// UpdateStatus sets the status of a part order.
func (r *PartOrderRepository) UpdateStatus(ctx context.Context, id, businessID int64, status string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE part_orders SET status = $3, updated_at = NOW() WHERE id = $1 AND business_id = $2`,
		id, businessID, status)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update part order status")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("part order", fmt.Sprintf("%d", id))
	}
	return nil
}

// AppendUpdate adds one entry to the part order's status history feed.
func (r *PartOrderRepository) AppendUpdate(ctx context.Context, upd *PartOrderUpdate) error {
	query := `
		INSERT INTO part_order_updates (part_order_id, status, note)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, upd.PartOrderID, upd.Status, upd.Note).
		Scan(&upd.ID, &upd.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to append part order update")
	}
	return nil
}

// History returns the status history feed oldest-first.
func (r *PartOrderRepository) History(ctx context.Context, partOrderID int64) ([]*PartOrderUpdate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, part_order_id, status, note, created_at
		 FROM part_order_updates WHERE part_order_id = $1 ORDER BY created_at ASC`, partOrderID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get part order history")
	}
	defer rows.Close()

	var updates []*PartOrderUpdate
	for rows.Next() {
		upd := &PartOrderUpdate{}
		if err := rows.Scan(&upd.ID, &upd.PartOrderID, &upd.Status, &upd.Note, &upd.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan part order update")
		}
		updates = append(updates, upd)
	}
	return updates, rows.Err()
}

// Delete removes a part order and its history. Returns false when no row
// matched.
func (r *PartOrderRepository) Delete(ctx context.Context, id, businessID int64) (bool, error) {
	var found bool
	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM part_order_updates WHERE part_order_id = $1`, id); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete part order updates")
		}
		tag, err := tx.Exec(ctx,
			`DELETE FROM part_orders WHERE id = $1 AND business_id = $2`, id, businessID)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete part order")
		}
		found = tag.RowsAffected() > 0
		return nil
	})
	return found, err
}
