package service

import (
	"context"
	"time"

	"github.com/shopworks/be-repair-core/internal/notify"
	"github.com/shopworks/be-repair-core/internal/repository"
)

// The services depend on these collaborator interfaces rather than concrete
// repositories so the side-effect logic can be exercised in isolation. The
// pgx repositories satisfy them.

// JobStore persists jobs.
type JobStore interface {
	Create(ctx context.Context, job *repository.Job) error
	GetByID(ctx context.Context, id, businessID int64) (*repository.Job, error)
	GetByCode(ctx context.Context, code string, businessID int64) (*repository.Job, error)
	List(ctx context.Context, businessID int64, status *string, assigneeID *int64, limit, offset int) ([]*repository.Job, error)
	Codes(ctx context.Context, businessID int64) ([]string, error)
	Update(ctx context.Context, job *repository.Job) error
	SetCustomerNotified(ctx context.Context, id, businessID int64, notified bool) error
	Touch(ctx context.Context, id, businessID int64) error
	Delete(ctx context.Context, id, businessID int64) (bool, error)
}

// JobUpdateStore persists job notes.
type JobUpdateStore interface {
	Create(ctx context.Context, upd *repository.JobUpdate) error
	ListByJob(ctx context.Context, jobID, businessID int64, publicOnly bool) ([]*repository.JobUpdate, error)
}

// OrderStore persists orders and their items.
type OrderStore interface {
	Create(ctx context.Context, order *repository.Order) error
	GetByID(ctx context.Context, id, businessID int64) (*repository.Order, error)
	List(ctx context.Context, businessID int64, status *string, limit, offset int) ([]*repository.Order, error)
	NumbersForDay(ctx context.Context, businessID int64, prefix string) ([]string, error)
	Update(ctx context.Context, order *repository.Order) error
	UpdateStatus(ctx context.Context, id, businessID int64, status string) error
	Delete(ctx context.Context, id, businessID int64) (bool, error)
}

// PartOrderStore persists part orders and their history feed.
type PartOrderStore interface {
	Create(ctx context.Context, po *repository.PartOrder) error
	GetByID(ctx context.Context, id, businessID int64) (*repository.PartOrder, error)
	List(ctx context.Context, businessID int64, status *string, limit, offset int) ([]*repository.PartOrder, error)
	UpdateStatus(ctx context.Context, id, businessID int64, status string) error
	AppendUpdate(ctx context.Context, upd *repository.PartOrderUpdate) error
	History(ctx context.Context, partOrderID int64) ([]*repository.PartOrderUpdate, error)
	Delete(ctx context.Context, id, businessID int64) (bool, error)
}

// ActivityStore appends audit records.
type ActivityStore interface {
	Append(ctx context.Context, entry *repository.ActivityLogEntry) error
	ListByEntity(ctx context.Context, businessID int64, entityType string, entityID int64, limit int) ([]*repository.ActivityLogEntry, error)
	ListByBusiness(ctx context.Context, businessID int64, limit, offset int) ([]*repository.ActivityLogEntry, error)
}

// BusinessStore reads tenants.
type BusinessStore interface {
	GetByID(ctx context.Context, id int64) (*repository.Business, error)
}

// CustomerStore reads customers.
type CustomerStore interface {
	GetByID(ctx context.Context, id, businessID int64) (*repository.Customer, error)
	GetByEmail(ctx context.Context, email string, businessID int64) (*repository.Customer, error)
}

// UserStore reads staff users.
type UserStore interface {
	ListByRoles(ctx context.Context, businessID int64, roles []string) ([]*repository.User, error)
}

// StaffNotificationStore persists in-app staff notifications.
type StaffNotificationStore interface {
	Create(ctx context.Context, n *repository.StaffNotification) error
}

// Notifier dispatches customer notifications. Implemented by notify.Dispatcher.
type Notifier interface {
	Send(ctx context.Context, kind notify.Kind, rcpt notify.Recipient, data notify.TemplateData) bool
	SendPreferred(ctx context.Context, kind notify.Kind, pref notify.Channel, rcpt notify.Recipient, data notify.TemplateData) bool
}

// EventPublisher publishes lifecycle events. Implementations are best-effort
// and must never propagate errors. A nil publisher is valid.
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, eventType string, job *repository.Job)
	PublishOrderEvent(ctx context.Context, eventType string, order *repository.Order)
}

// Clock provides "now" for code/number generation and schedule-sensitive
// logic; injectable for tests.
type Clock func() time.Time

// nopEvents is substituted when no event publisher is wired.
type nopEvents struct{}

func (nopEvents) PublishJobEvent(context.Context, string, *repository.Job)     {}
func (nopEvents) PublishOrderEvent(context.Context, string, *repository.Order) {}
