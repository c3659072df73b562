package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shopworks/be-repair-core/internal/database"
	"github.com/shopworks/be-repair-core/internal/errors"
)

// BusinessRepository reads tenant records.
type BusinessRepository struct {
	db *database.DB
}

// NewBusinessRepository creates a new business repository.
func NewBusinessRepository(db *database.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// GetByID retrieves one business.
func (r *BusinessRepository) GetByID(ctx context.Context, id int64) (*Business, error) {
	b := &Business{}
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email, phone, timezone, active, created_at
		 FROM businesses WHERE id = $1`, id).
		Scan(&b.ID, &b.Name, &b.Email, &b.Phone, &b.Timezone, &b.Active, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("business", fmt.Sprintf("%d", id))
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get business")
	}
	return b, nil
}

// ListActive returns every active tenant. Used by the weekly report task.
func (r *BusinessRepository) ListActive(ctx context.Context) ([]*Business, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, email, phone, timezone, active, created_at
		 FROM businesses WHERE active ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list businesses")
	}
	defer rows.Close()

	var businesses []*Business
	for rows.Next() {
		b := &Business{}
		if err := rows.Scan(&b.ID, &b.Name, &b.Email, &b.Phone, &b.Timezone, &b.Active, &b.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan business")
		}
		businesses = append(businesses, b)
	}
	return businesses, rows.Err()
}

// UserRepository reads staff user records.
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// ListByRoles returns the users of a tenant holding any of the given roles.
func (r *UserRepository) ListByRoles(ctx context.Context, businessID int64, roles []string) ([]*User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, business_id, name, email, role, created_at
		 FROM users WHERE business_id = $1 AND role = ANY($2) ORDER BY id`,
		businessID, roles)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list users by role")
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u := &User{}
		if err := rows.Scan(&u.ID, &u.BusinessID, &u.Name, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan user")
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CustomerRepository reads customer records.
type CustomerRepository struct {
	db *database.DB
}

// NewCustomerRepository creates a new customer repository.
func NewCustomerRepository(db *database.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// GetByID retrieves a customer within a tenant.
func (r *CustomerRepository) GetByID(ctx context.Context, id, businessID int64) (*Customer, error) {
	c := &Customer{}
	err := r.db.QueryRow(ctx,
		`SELECT id, business_id, name, email, phone, created_at
		 FROM customers WHERE id = $1 AND business_id = $2`, id, businessID).
		Scan(&c.ID, &c.BusinessID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("customer", fmt.Sprintf("%d", id))
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get customer")
	}
	return c, nil
}

// GetByEmail retrieves a customer by email within a tenant.
func (r *CustomerRepository) GetByEmail(ctx context.Context, email string, businessID int64) (*Customer, error) {
	c := &Customer{}
	err := r.db.QueryRow(ctx,
		`SELECT id, business_id, name, email, phone, created_at
		 FROM customers WHERE email = $1 AND business_id = $2`, email, businessID).
		Scan(&c.ID, &c.BusinessID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NotFound("customer", email)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get customer by email")
	}
	return c, nil
}
