package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopworks/be-repair-core/internal/errors"
	"github.com/shopworks/be-repair-core/internal/logger"
	"github.com/shopworks/be-repair-core/internal/notify"
	"github.com/shopworks/be-repair-core/internal/repository"
)

// staffRoles receive the in-app fan-out for new and arrived orders.
var staffRoles = []string{"staff", "admin"}

// OrderService orchestrates order mutations and their side effects.
type OrderService struct {
	orders     OrderStore
	jobs       JobStore
	users      UserStore
	businesses BusinessStore
	staff      StaffNotificationStore
	activity   *ActivityService
	notifier   Notifier
	events     EventPublisher
	log        *logger.Logger
	now        Clock
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orders OrderStore,
	jobs JobStore,
	users UserStore,
	businesses BusinessStore,
	staff StaffNotificationStore,
	activity *ActivityService,
	notifier Notifier,
	events EventPublisher,
	log *logger.Logger,
) *OrderService {
	if events == nil {
		events = nopEvents{}
	}
	return &OrderService{
		orders:     orders,
		jobs:       jobs,
		users:      users,
		businesses: businesses,
		staff:      staff,
		activity:   activity,
		notifier:   notifier,
		events:     events,
		log:        log,
		now:        time.Now,
	}
}

// WithClock overrides the clock used for order-number generation.
func (s *OrderService) WithClock(clock Clock) *OrderService {
	s.now = clock
	return s
}

// OrderItemRequest is one requested line on an order.
type OrderItemRequest struct {
	Name      string
	SKU       *string
	Quantity  int
	UnitPrice int64
}

// CreateOrderRequest represents a create order request.
type CreateOrderRequest struct {
	BusinessID          int64
	JobID               *int64
	Supplier            *string
	CustomerName        *string
	CustomerEmail       *string
	CustomerPhone       *string
	NotifyOnOrderPlaced bool
	NotifyOnArrival     bool
	NotifyChannel       string
	Items               []OrderItemRequest
}

// UpdateOrderRequest represents a partial non-status order update.
type UpdateOrderRequest struct {
	JobID               *int64
	Supplier            *string
	CustomerName        *string
	CustomerEmail       *string
	CustomerPhone       *string
	NotifyOnOrderPlaced *bool
	NotifyOnArrival     *bool
	NotifyChannel       *string
}

// Create persists a new order with a generated per-tenant-day number, then
// best-effort: sends the placed notification when enabled and a customer
// email exists, fans an in-app notification out to staff, writes one
// order_created audit entry and touches the linked job.
func (s *OrderService) Create(ctx context.Context, req *CreateOrderRequest, actorID *int64) (*repository.Order, error) {
	if len(req.Items) < 1 {
		return nil, errors.InvalidInput("items", "order must have at least 1 item")
	}
	for _, item := range req.Items {
		if item.Name == "" {
			return nil, errors.InvalidInput("items", "item name is required")
		}
		if item.Quantity <= 0 {
			return nil, errors.InvalidInput("quantity", "quantity must be positive")
		}
		if item.UnitPrice < 0 {
			return nil, errors.InvalidInput("unit_price", "unit price cannot be negative")
		}
	}
	channel := req.NotifyChannel
	if channel == "" {
		channel = string(notify.ChannelEmail)
	}
	if !notify.ValidChannel(channel) {
		return nil, errors.InvalidInput("notify_channel", "must be email, sms or both")
	}

	number, err := s.GenerateOrderNumber(ctx, req.BusinessID)
	if err != nil {
		return nil, err
	}

	order := &repository.Order{
		BusinessID:          req.BusinessID,
		OrderNumber:         number,
		Status:              repository.OrderStatusOrdered,
		JobID:               req.JobID,
		Supplier:            req.Supplier,
		CustomerName:        req.CustomerName,
		CustomerEmail:       req.CustomerEmail,
		CustomerPhone:       req.CustomerPhone,
		NotifyOnOrderPlaced: req.NotifyOnOrderPlaced,
		NotifyOnArrival:     req.NotifyOnArrival,
		NotifyChannel:       channel,
	}
	for _, item := range req.Items {
		order.Items = append(order.Items, &repository.OrderItem{
			Name:      item.Name,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	if order.NotifyOnOrderPlaced && order.CustomerEmail != nil && *order.CustomerEmail != "" {
		rcpt := orderRecipient(order)
		data := notify.TemplateData{
			Business:     s.lookupBusiness(ctx, order.BusinessID),
			Order:        order,
			CustomerName: rcpt.Name,
		}
		if !s.notifier.SendPreferred(ctx, notify.KindOrderPlaced, notify.Channel(order.NotifyChannel), rcpt, data) {
			s.log.Warn().
				Str("order_number", order.OrderNumber).
				Msg("order placed notification was not delivered")
		}
	}

	s.fanOutToStaff(ctx, order, "order_placed", "New order placed",
		fmt.Sprintf("Order %s was placed", order.OrderNumber))

	s.activity.Log(ctx, &repository.ActivityLogEntry{
		BusinessID:   order.BusinessID,
		ActorID:      actorID,
		ActivityType: ActivityOrderCreated,
		EntityType:   "order",
		EntityID:     order.ID,
		Metadata:     map[string]any{"order_number": order.OrderNumber},
	})
	s.events.PublishOrderEvent(ctx, "created", order)
	s.touchLinkedJob(ctx, order)

	s.log.Info().
		Int64("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Int64("business_id", order.BusinessID).
		Int("item_count", len(order.Items)).
		Msg("Order created")

	return order, nil
}

// Get retrieves an order with its items.
func (s *OrderService) Get(ctx context.Context, id, businessID int64) (*repository.Order, error) {
	return s.orders.GetByID(ctx, id, businessID)
}

// List returns orders with an optional status filter.
func (s *OrderService) List(ctx context.Context, businessID int64, status *string, page, pageSize int) ([]*repository.Order, error) {
	offset := (page - 1) * pageSize
	return s.orders.List(ctx, businessID, status, pageSize, offset)
}

// UpdateStatus sets a new status and fires the classified side effects.
// The arrival notification is a two-layer control: the stored
// notify-on-arrival preference is the default, and a non-nil notifyCustomer
// overrides it outright for this call.
func (s *OrderService) UpdateStatus(ctx context.Context, id, businessID int64, status string, notifyCustomer *bool, actorID *int64) (*repository.Order, error) {
	prior, err := s.orders.GetByID(ctx, id, businessID)
	if err != nil {
		return nil, err
	}

	if err := s.orders.UpdateStatus(ctx, id, businessID, status); err != nil {
		return nil, err
	}
	updated := *prior
	updated.Status = status

	changes := DetectOrderStatusChange(prior, &updated)
	if changes.StatusChanged {
		s.activity.Log(ctx, &repository.ActivityLogEntry{
			BusinessID:   businessID,
			ActorID:      actorID,
			ActivityType: ActivityOrderStatusChanged,
			EntityType:   "order",
			EntityID:     updated.ID,
			Metadata: map[string]any{
				"order_number": updated.OrderNumber,
				"from":         changes.StatusFrom,
				"to":           changes.StatusTo,
			},
		})
	}

	if changes.ReachedStatus == repository.OrderStatusArrived {
		shouldNotify := updated.NotifyOnArrival
		if notifyCustomer != nil {
			shouldNotify = *notifyCustomer
		}
		if shouldNotify && updated.CustomerEmail != nil && *updated.CustomerEmail != "" {
			rcpt := orderRecipient(&updated)
			data := notify.TemplateData{
				Business:     s.lookupBusiness(ctx, businessID),
				Order:        &updated,
				CustomerName: rcpt.Name,
			}
			if !s.notifier.SendPreferred(ctx, notify.KindOrderArrived, notify.Channel(updated.NotifyChannel), rcpt, data) {
				s.log.Warn().
					Str("order_number", updated.OrderNumber).
					Msg("order arrived notification was not delivered")
			}
		}
		s.fanOutToStaff(ctx, &updated, "order_arrived", "Order arrived",
			fmt.Sprintf("Order %s has arrived", updated.OrderNumber))
	}

	s.events.PublishOrderEvent(ctx, "status_changed", &updated)
	s.touchLinkedJob(ctx, &updated)

	return &updated, nil
}

// Update applies a partial non-status update and writes one order_updated
// audit entry when any field actually changed.
func (s *OrderService) Update(ctx context.Context, id, businessID int64, req *UpdateOrderRequest, actorID *int64) (*repository.Order, error) {
	prior, err := s.orders.GetByID(ctx, id, businessID)
	if err != nil {
		return nil, err
	}
	if req.NotifyChannel != nil && !notify.ValidChannel(*req.NotifyChannel) {
		return nil, errors.InvalidInput("notify_channel", "must be email, sms or both")
	}

	updated := applyOrderUpdate(prior, req)
	if err := s.orders.Update(ctx, updated); err != nil {
		return nil, err
	}

	changes := DetectOrderChanges(prior, updated, req)
	if len(changes.ChangedFields) > 0 {
		s.activity.Log(ctx, &repository.ActivityLogEntry{
			BusinessID:   businessID,
			ActorID:      actorID,
			ActivityType: ActivityOrderUpdated,
			EntityType:   "order",
			EntityID:     updated.ID,
			Metadata: map[string]any{
				"order_number": updated.OrderNumber,
				"fields":       changes.ChangedFields,
			},
		})
	}
	s.touchLinkedJob(ctx, updated)

	return updated, nil
}

// Delete removes an order, cascading its items. Returns whether it existed.
func (s *OrderService) Delete(ctx context.Context, id, businessID int64, actorID *int64) (bool, error) {
	prior, err := s.orders.GetByID(ctx, id, businessID)
	if err != nil && !errors.IsNotFound(err) {
		s.log.Warn().Err(err).Int64("order_id", id).Msg("pre-delete order fetch failed")
	}

	found, err := s.orders.Delete(ctx, id, businessID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	md := map[string]any{}
	if prior != nil {
		md["order_number"] = prior.OrderNumber
	}
	s.activity.Log(ctx, &repository.ActivityLogEntry{
		BusinessID:   businessID,
		ActorID:      actorID,
		ActivityType: ActivityOrderDeleted,
		EntityType:   "order",
		EntityID:     id,
		Metadata:     md,
	})
	if prior != nil {
		s.events.PublishOrderEvent(ctx, "deleted", prior)
		s.touchLinkedJob(ctx, prior)
	}

	return true, nil
}

// GenerateOrderNumber computes the next number for the tenant-day as
// ORD-YYYYMMDD-NNNN by scanning existing same-day numbers for the highest
// suffix. This is a read-then-write sequence with no storage-level
// uniqueness: serially correct, not concurrency-safe.
func (s *OrderService) GenerateOrderNumber(ctx context.Context, businessID int64) (string, error) {
	prefix := fmt.Sprintf("ORD-%s-", s.now().Format("20060102"))
	numbers, err := s.orders.NumbersForDay(ctx, businessID, prefix)
	if err != nil {
		return "", err
	}
	max := 0
	for _, number := range numbers {
		suffix, ok := strings.CutPrefix(number, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%04d", prefix, max+1), nil
}

// fanOutToStaff creates one in-app notification per staff/admin user.
// Best-effort: lookup or insert failures are logged and swallowed.
func (s *OrderService) fanOutToStaff(ctx context.Context, order *repository.Order, nType, title, description string) {
	users, err := s.users.ListByRoles(ctx, order.BusinessID, staffRoles)
	if err != nil {
		s.log.Warn().Err(err).Int64("business_id", order.BusinessID).Msg("staff lookup for fan-out failed")
		return
	}
	link := fmt.Sprintf("/orders/%d", order.ID)
	for _, user := range users {
		n := &repository.StaffNotification{
			BusinessID:  order.BusinessID,
			UserID:      user.ID,
			Type:        nType,
			Title:       title,
			Description: description,
			Link:        &link,
			Priority:    "normal",
		}
		if err := s.staff.Create(ctx, n); err != nil {
			s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("failed to create staff notification")
		}
	}
}

func (s *OrderService) touchLinkedJob(ctx context.Context, order *repository.Order) {
	if order.JobID == nil {
		return
	}
	if err := s.jobs.Touch(ctx, *order.JobID, order.BusinessID); err != nil {
		s.log.Warn().Err(err).Int64("job_id", *order.JobID).Msg("failed to touch linked job")
	}
}

func (s *OrderService) lookupBusiness(ctx context.Context, businessID int64) *repository.Business {
	business, err := s.businesses.GetByID(ctx, businessID)
	if err != nil {
		s.log.Warn().Err(err).Int64("business_id", businessID).Msg("business lookup failed")
		return nil
	}
	return business
}

func orderRecipient(order *repository.Order) notify.Recipient {
	rcpt := notify.Recipient{}
	if order.CustomerName != nil {
		rcpt.Name = *order.CustomerName
	}
	if order.CustomerEmail != nil {
		rcpt.Email = *order.CustomerEmail
	}
	if order.CustomerPhone != nil {
		rcpt.Phone = *order.CustomerPhone
	}
	return rcpt
}

func applyOrderUpdate(prior *repository.Order, req *UpdateOrderRequest) *repository.Order {
	updated := *prior
	if req.JobID != nil {
		updated.JobID = req.JobID
	}
	if req.Supplier != nil {
		updated.Supplier = req.Supplier
	}
	if req.CustomerName != nil {
		updated.CustomerName = req.CustomerName
	}
	if req.CustomerEmail != nil {
		updated.CustomerEmail = req.CustomerEmail
	}
	if req.CustomerPhone != nil {
		updated.CustomerPhone = req.CustomerPhone
	}
	if req.NotifyOnOrderPlaced != nil {
		updated.NotifyOnOrderPlaced = *req.NotifyOnOrderPlaced
	}
	if req.NotifyOnArrival != nil {
		updated.NotifyOnArrival = *req.NotifyOnArrival
	}
	if req.NotifyChannel != nil {
		updated.NotifyChannel = *req.NotifyChannel
	}
	return &updated
}
