package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopworks/be-repair-core/internal/errors"
	"github.com/shopworks/be-repair-core/internal/notify"
	"github.com/shopworks/be-repair-core/internal/repository"
)

// In-memory collaborators used across the service tests.

type fakeJobStore struct {
	jobs      map[int64]*repository.Job
	nextID    int64
	createErr error
	updateErr error
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: map[int64]*repository.Job{}}
}

func (f *fakeJobStore) Create(ctx context.Context, job *repository.Job) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	job.ID = f.nextID
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobStore) GetByID(ctx context.Context, id, businessID int64) (*repository.Job, error) {
	job, ok := f.jobs[id]
	if !ok || job.BusinessID != businessID {
		return nil, errors.NotFound("job", fmt.Sprint(id))
	}
	cp := *job
	return &cp, nil
}

func (f *fakeJobStore) GetByCode(ctx context.Context, code string, businessID int64) (*repository.Job, error) {
	for _, job := range f.jobs {
		if job.JobCode == code && job.BusinessID == businessID {
			cp := *job
			return &cp, nil
		}
	}
	return nil, errors.NotFound("job", code)
}

func (f *fakeJobStore) List(ctx context.Context, businessID int64, status *string, assigneeID *int64, limit, offset int) ([]*repository.Job, error) {
	var out []*repository.Job
	for _, job := range f.jobs {
		if job.BusinessID != businessID {
			continue
		}
		if status != nil && job.Status != *status {
			continue
		}
		cp := *job
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeJobStore) Codes(ctx context.Context, businessID int64) ([]string, error) {
	var codes []string
	for _, job := range f.jobs {
		if job.BusinessID == businessID {
			codes = append(codes, job.JobCode)
		}
	}
	return codes, nil
}

func (f *fakeJobStore) Update(ctx context.Context, job *repository.Job) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.jobs[job.ID]; !ok {
		return errors.NotFound("job", fmt.Sprint(job.ID))
	}
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobStore) SetCustomerNotified(ctx context.Context, id, businessID int64, notified bool) error {
	job, ok := f.jobs[id]
	if !ok {
		return errors.NotFound("job", fmt.Sprint(id))
	}
	job.CustomerNotified = notified
	return nil
}

func (f *fakeJobStore) Touch(ctx context.Context, id, businessID int64) error {
	if _, ok := f.jobs[id]; !ok {
		return errors.NotFound("job", fmt.Sprint(id))
	}
	return nil
}

func (f *fakeJobStore) Delete(ctx context.Context, id, businessID int64) (bool, error) {
	job, ok := f.jobs[id]
	if !ok || job.BusinessID != businessID {
		return false, nil
	}
	delete(f.jobs, id)
	return true, nil
}

func (f *fakeJobStore) CountOpen(ctx context.Context, businessID int64) (int, error) {
	n := 0
	for _, job := range f.jobs {
		if job.BusinessID == businessID && job.Status != repository.JobStatusCompleted {
			n++
		}
	}
	return n, nil
}

type fakeJobUpdateStore struct {
	updates []*repository.JobUpdate
}

func (f *fakeJobUpdateStore) Create(ctx context.Context, upd *repository.JobUpdate) error {
	upd.ID = int64(len(f.updates) + 1)
	f.updates = append(f.updates, upd)
	return nil
}

func (f *fakeJobUpdateStore) ListByJob(ctx context.Context, jobID, businessID int64, publicOnly bool) ([]*repository.JobUpdate, error) {
	var out []*repository.JobUpdate
	for _, upd := range f.updates {
		if upd.JobID != jobID || upd.BusinessID != businessID {
			continue
		}
		if publicOnly && !upd.Public {
			continue
		}
		out = append(out, upd)
	}
	return out, nil
}

type fakeOrderStore struct {
	orders    map[int64]*repository.Order
	nextID    int64
	updateErr error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: map[int64]*repository.Order{}}
}

func (f *fakeOrderStore) Create(ctx context.Context, order *repository.Order) error {
	f.nextID++
	order.ID = f.nextID
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrderStore) GetByID(ctx context.Context, id, businessID int64) (*repository.Order, error) {
	order, ok := f.orders[id]
	if !ok || order.BusinessID != businessID {
		return nil, errors.NotFound("order", fmt.Sprint(id))
	}
	cp := *order
	return &cp, nil
}

func (f *fakeOrderStore) List(ctx context.Context, businessID int64, status *string, limit, offset int) ([]*repository.Order, error) {
	var out []*repository.Order
	for _, order := range f.orders {
		if order.BusinessID != businessID {
			continue
		}
		if status != nil && order.Status != *status {
			continue
		}
		cp := *order
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeOrderStore) NumbersForDay(ctx context.Context, businessID int64, prefix string) ([]string, error) {
	var numbers []string
	for _, order := range f.orders {
		if order.BusinessID == businessID && strings.HasPrefix(order.OrderNumber, prefix) {
			numbers = append(numbers, order.OrderNumber)
		}
	}
	return numbers, nil
}

func (f *fakeOrderStore) Update(ctx context.Context, order *repository.Order) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.orders[order.ID]; !ok {
		return errors.NotFound("order", fmt.Sprint(order.ID))
	}
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrderStore) UpdateStatus(ctx context.Context, id, businessID int64, status string) error {
	order, ok := f.orders[id]
	if !ok || order.BusinessID != businessID {
		return errors.NotFound("order", fmt.Sprint(id))
	}
	order.Status = status
	return nil
}

func (f *fakeOrderStore) Delete(ctx context.Context, id, businessID int64) (bool, error) {
	order, ok := f.orders[id]
	if !ok || order.BusinessID != businessID {
		return false, nil
	}
	delete(f.orders, id)
	return true, nil
}

type fakePartOrderStore struct {
	parts   map[int64]*repository.PartOrder
	history []*repository.PartOrderUpdate
	nextID  int64
}

func newFakePartOrderStore() *fakePartOrderStore {
	return &fakePartOrderStore{parts: map[int64]*repository.PartOrder{}}
}

func (f *fakePartOrderStore) Create(ctx context.Context, po *repository.PartOrder) error {
	f.nextID++
	po.ID = f.nextID
	cp := *po
	f.parts[po.ID] = &cp
	return nil
}

func (f *fakePartOrderStore) GetByID(ctx context.Context, id, businessID int64) (*repository.PartOrder, error) {
	po, ok := f.parts[id]
	if !ok || po.BusinessID != businessID {
		return nil, errors.NotFound("part order", fmt.Sprint(id))
	}
	cp := *po
	return &cp, nil
}

func (f *fakePartOrderStore) List(ctx context.Context, businessID int64, status *string, limit, offset int) ([]*repository.PartOrder, error) {
	var out []*repository.PartOrder
	for _, po := range f.parts {
		if po.BusinessID != businessID {
			continue
		}
		if status != nil && po.Status != *status {
			continue
		}
		cp := *po
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakePartOrderStore) UpdateStatus(ctx context.Context, id, businessID int64, status string) error {
	po, ok := f.parts[id]
	if !ok || po.BusinessID != businessID {
		return errors.NotFound("part order", fmt.Sprint(id))
	}
	po.Status = status
	return nil
}

func (f *fakePartOrderStore) AppendUpdate(ctx context.Context, upd *repository.PartOrderUpdate) error {
	upd.ID = int64(len(f.history) + 1)
	f.history = append(f.history, upd)
	return nil
}

func (f *fakePartOrderStore) History(ctx context.Context, partOrderID int64) ([]*repository.PartOrderUpdate, error) {
	var out []*repository.PartOrderUpdate
	for _, upd := range f.history {
		if upd.PartOrderID == partOrderID {
			out = append(out, upd)
		}
	}
	return out, nil
}

func (f *fakePartOrderStore) Delete(ctx context.Context, id, businessID int64) (bool, error) {
	po, ok := f.parts[id]
	if !ok || po.BusinessID != businessID {
		return false, nil
	}
	delete(f.parts, id)
	return true, nil
}

type fakeActivityStore struct {
	entries   []*repository.ActivityLogEntry
	appendErr error
}

func (f *fakeActivityStore) Append(ctx context.Context, entry *repository.ActivityLogEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	entry.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeActivityStore) ListByEntity(ctx context.Context, businessID int64, entityType string, entityID int64, limit int) ([]*repository.ActivityLogEntry, error) {
	var out []*repository.ActivityLogEntry
	for _, e := range f.entries {
		if e.BusinessID == businessID && e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeActivityStore) ListByBusiness(ctx context.Context, businessID int64, limit, offset int) ([]*repository.ActivityLogEntry, error) {
	var out []*repository.ActivityLogEntry
	for _, e := range f.entries {
		if e.BusinessID == businessID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ofType filters the recorded entries by activity type.
func (f *fakeActivityStore) ofType(activityType string) []*repository.ActivityLogEntry {
	var out []*repository.ActivityLogEntry
	for _, e := range f.entries {
		if e.ActivityType == activityType {
			out = append(out, e)
		}
	}
	return out
}

type fakeBusinessStore struct {
	businesses map[int64]*repository.Business
}

func newFakeBusinessStore(businesses ...*repository.Business) *fakeBusinessStore {
	f := &fakeBusinessStore{businesses: map[int64]*repository.Business{}}
	for _, b := range businesses {
		f.businesses[b.ID] = b
	}
	return f
}

func (f *fakeBusinessStore) GetByID(ctx context.Context, id int64) (*repository.Business, error) {
	b, ok := f.businesses[id]
	if !ok {
		return nil, errors.NotFound("business", fmt.Sprint(id))
	}
	return b, nil
}

type fakeCustomerStore struct {
	customers map[int64]*repository.Customer
}

func newFakeCustomerStore(customers ...*repository.Customer) *fakeCustomerStore {
	f := &fakeCustomerStore{customers: map[int64]*repository.Customer{}}
	for _, c := range customers {
		f.customers[c.ID] = c
	}
	return f
}

func (f *fakeCustomerStore) GetByID(ctx context.Context, id, businessID int64) (*repository.Customer, error) {
	c, ok := f.customers[id]
	if !ok || c.BusinessID != businessID {
		return nil, errors.NotFound("customer", fmt.Sprint(id))
	}
	return c, nil
}

func (f *fakeCustomerStore) GetByEmail(ctx context.Context, email string, businessID int64) (*repository.Customer, error) {
	for _, c := range f.customers {
		if c.BusinessID == businessID && c.Email != nil && *c.Email == email {
			return c, nil
		}
	}
	return nil, errors.NotFound("customer", email)
}

type fakeUserStore struct {
	users []*repository.User
}

func (f *fakeUserStore) ListByRoles(ctx context.Context, businessID int64, roles []string) ([]*repository.User, error) {
	wanted := map[string]bool{}
	for _, role := range roles {
		wanted[role] = true
	}
	var out []*repository.User
	for _, u := range f.users {
		if u.BusinessID == businessID && wanted[u.Role] {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeStaffNotificationStore struct {
	created []*repository.StaffNotification
}

func (f *fakeStaffNotificationStore) Create(ctx context.Context, n *repository.StaffNotification) error {
	n.ID = int64(len(f.created) + 1)
	f.created = append(f.created, n)
	return nil
}

// sentNotification records one dispatch attempt handed to the fake notifier.
type sentNotification struct {
	Kind    notify.Kind
	Channel notify.Channel
	Rcpt    notify.Recipient
	Data    notify.TemplateData
}

type fakeNotifier struct {
	sent    []sentNotification
	deliver bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{deliver: true}
}

func (f *fakeNotifier) Send(ctx context.Context, kind notify.Kind, rcpt notify.Recipient, data notify.TemplateData) bool {
	f.sent = append(f.sent, sentNotification{Kind: kind, Channel: notify.ChannelEmail, Rcpt: rcpt, Data: data})
	return f.deliver
}

func (f *fakeNotifier) SendPreferred(ctx context.Context, kind notify.Kind, pref notify.Channel, rcpt notify.Recipient, data notify.TemplateData) bool {
	f.sent = append(f.sent, sentNotification{Kind: kind, Channel: pref, Rcpt: rcpt, Data: data})
	return f.deliver
}

func (f *fakeNotifier) ofKind(kind notify.Kind) []sentNotification {
	var out []sentNotification
	for _, s := range f.sent {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

type publishedEvent struct {
	Entity    string
	EventType string
	ID        int64
}

type fakeEvents struct {
	published []publishedEvent
}

func (f *fakeEvents) PublishJobEvent(ctx context.Context, eventType string, job *repository.Job) {
	f.published = append(f.published, publishedEvent{Entity: "job", EventType: eventType, ID: job.ID})
}

func (f *fakeEvents) PublishOrderEvent(ctx context.Context, eventType string, order *repository.Order) {
	f.published = append(f.published, publishedEvent{Entity: "order", EventType: eventType, ID: order.ID})
}

func strPtr(s string) *string     { return &s }
func int64Ptr(n int64) *int64     { return &n }
func boolPtr(b bool) *bool        { return &b }
func floatPtr(v float64) *float64 { return &v }
