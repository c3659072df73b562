package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shopworks/be-repair-core/internal/database"
	"github.com/shopworks/be-repair-core/internal/errors"
)

// OrderRepository handles order data operations.
type OrderRepository struct {
	db *database.DB
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, business_id, order_number, status, job_id, supplier,
       customer_name, customer_email, customer_phone,
       notify_on_order_placed, notify_on_arrival, notify_channel,
       created_at, updated_at`

// Create inserts an order with its items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, order *Order) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO orders (business_id, order_number, status, job_id, supplier,
			                    customer_name, customer_email, customer_phone,
			                    notify_on_order_placed, notify_on_arrival, notify_channel)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, created_at, updated_at
		`
		err := tx.QueryRow(ctx, query,
			order.BusinessID,
			order.OrderNumber,
			order.Status,
			order.JobID,
			order.Supplier,
			order.CustomerName,
			order.CustomerEmail,
			order.CustomerPhone,
			order.NotifyOnOrderPlaced,
			order.NotifyOnArrival,
			order.NotifyChannel,
		).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create order")
		}

		for _, item := range order.Items {
			itemQuery := `
				INSERT INTO order_items (order_id, name, sku, quantity, unit_price)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
			`
			err := tx.QueryRow(ctx, itemQuery,
				order.ID,
				item.Name,
				item.SKU,
				item.Quantity,
				item.UnitPrice,
			).Scan(&item.ID)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to create order item")
			}
			item.OrderID = order.ID
		}
		return nil
	})
}

// GetByID retrieves an order and its items.
func (r *OrderRepository) GetByID(ctx context.Context, id, businessID int64) (*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1 AND business_id = $2`, orderColumns)
	order, err := r.scanOrder(r.db.QueryRow(ctx, query, id, businessID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("order", fmt.Sprintf("%d", id))
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get order")
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// List returns orders for a tenant with an optional status filter.
func (r *OrderRepository) List(ctx context.Context, businessID int64, status *string, limit, offset int) ([]*Order, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM orders
		WHERE business_id = $1
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, orderColumns)

	rows, err := r.db.Query(ctx, query, businessID, status, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list orders")
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan order")
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list orders")
	}

	for _, order := range orders {
		if err := r.loadItems(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// NumbersForDay returns the order numbers of a tenant starting with the given
// date prefix. The caller scans them for the highest suffix; there is no
// uniqueness enforcement at the storage layer.
func (r *OrderRepository) NumbersForDay(ctx context.Context, businessID int64, prefix string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT order_number FROM orders WHERE business_id = $1 AND order_number LIKE $2`,
		businessID, prefix+"%")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list order numbers")
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan order number")
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

// Update persists the mutable non-status fields of an order.
func (r *OrderRepository) Update(ctx context.Context, order *Order) error {
	query := `
		UPDATE orders
		SET job_id = $3, supplier = $4,
		    customer_name = $5, customer_email = $6, customer_phone = $7,
		    notify_on_order_placed = $8, notify_on_arrival = $9, notify_channel = $10,
		    updated_at = NOW()
		WHERE id = $1 AND business_id = $2
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		order.ID,
		order.BusinessID,
		order.JobID,
		order.Supplier,
		order.CustomerName,
		order.CustomerEmail,
		order.CustomerPhone,
		order.NotifyOnOrderPlaced,
		order.NotifyOnArrival,
		order.NotifyChannel,
	).Scan(&order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.NotFound("order", fmt.Sprintf("%d", order.ID))
		}
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update order")
	}
	return nil
}

// UpdateStatus sets only the order status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, businessID int64, status string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = NOW() WHERE id = $1 AND business_id = $2`,
		id, businessID, status)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update order status")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("order", fmt.Sprintf("%d", id))
	}
	return nil
}

// Delete removes an order and cascades its items. Returns false when no row
// matched.
func (r *OrderRepository) Delete(ctx context.Context, id, businessID int64) (bool, error) {
	var found bool
	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete order items")
		}
		tag, err := tx.Exec(ctx,
			`DELETE FROM orders WHERE id = $1 AND business_id = $2`, id, businessID)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete order")
		}
		found = tag.RowsAffected() > 0
		return nil
	})
	return found, err
}

// CountArrivedSince counts orders that arrived after the cutoff.
func (r *OrderRepository) CountArrivedSince(ctx context.Context, businessID int64, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE business_id = $1 AND status = $2 AND updated_at >= $3`,
		businessID, OrderStatusArrived, since).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count arrived orders")
	}
	return count, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, order *Order) error {
	rows, err := r.db.Query(ctx,
		`SELECT id, order_id, name, sku, quantity, unit_price
		 FROM order_items WHERE order_id = $1 ORDER BY id`, order.ID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to load order items")
	}
	defer rows.Close()

	order.Items = nil
	for rows.Next() {
		item := &OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.Name, &item.SKU, &item.Quantity, &item.UnitPrice); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to scan order item")
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

type orderScanner interface {
	Scan(dest ...any) error
}

func (r *OrderRepository) scanOrder(sc orderScanner) (*Order, error) {
	order := &Order{}
	err := sc.Scan(
		&order.ID,
		&order.BusinessID,
		&order.OrderNumber,
		&order.Status,
		&order.JobID,
		&order.Supplier,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.CustomerPhone,
		&order.NotifyOnOrderPlaced,
		&order.NotifyOnArrival,
		&order.NotifyChannel,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}
