package service

import (
	"context"

	"github.com/shopworks/be-repair-core/internal/errors"
	"github.com/shopworks/be-repair-core/internal/logger"
	"github.com/shopworks/be-repair-core/internal/notify"
	"github.com/shopworks/be-repair-core/internal/repository"
)

// PartOrderService tracks individual part orders through their lifecycle
// and keeps an append-only status history alongside.
type PartOrderService struct {
	parts      PartOrderStore
	jobs       JobStore
	businesses BusinessStore
	activity   *ActivityService
	notifier   Notifier
	log        *logger.Logger
}

// NewPartOrderService creates a new PartOrderService.
func NewPartOrderService(
	parts PartOrderStore,
	jobs JobStore,
	businesses BusinessStore,
	activity *ActivityService,
	notifier Notifier,
	log *logger.Logger,
) *PartOrderService {
	return &PartOrderService{
		parts:      parts,
		jobs:       jobs,
		businesses: businesses,
		activity:   activity,
		notifier:   notifier,
		log:        log,
	}
}

// CreatePartOrderRequest represents a create part order request.
type CreatePartOrderRequest struct {
	BusinessID     int64
	JobID          *int64
	PartName       string
	Supplier       *string
	CustomerName   *string
	CustomerEmail  *string
	CustomerPhone  *string
	NotifyCustomer bool
	Note           *string
}

// Create persists a new part order in the ordered status, seeds its history
// feed with the initial entry and writes one part_order_created audit entry.
func (s *PartOrderService) Create(ctx context.Context, req *CreatePartOrderRequest, actorID *int64) (*repository.PartOrder, error) {
	if req.PartName == "" {
		return nil, errors.InvalidInput("part_name", "part name is required")
	}

	po := &repository.PartOrder{
		BusinessID:     req.BusinessID,
		JobID:          req.JobID,
		PartName:       req.PartName,
		Supplier:       req.Supplier,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
		Status:         repository.PartOrderStatusOrdered,
		NotifyCustomer: req.NotifyCustomer,
	}
	if err := s.parts.Create(ctx, po); err != nil {
		return nil, err
	}

	if err := s.parts.AppendUpdate(ctx, &repository.PartOrderUpdate{
		PartOrderID: po.ID,
		Status:      po.Status,
		Note:        req.Note,
	}); err != nil {
		s.log.Warn().Err(err).Int64("part_order_id", po.ID).Msg("failed to append part order history entry")
	}

	s.activity.Log(ctx, &repository.ActivityLogEntry{
		BusinessID:   po.BusinessID,
		ActorID:      actorID,
		ActivityType: ActivityPartOrderCreated,
		EntityType:   "part_order",
		EntityID:     po.ID,
		Metadata:     map[string]any{"part_name": po.PartName},
	})
	s.touchLinkedJob(ctx, po)

	s.log.Info().
		Int64("part_order_id", po.ID).
		Int64("business_id", po.BusinessID).
		Str("part_name", po.PartName).
		Msg("Part order created")

	return po, nil
}

// Get retrieves a part order.
func (s *PartOrderService) Get(ctx context.Context, id, businessID int64) (*repository.PartOrder, error) {
	return s.parts.GetByID(ctx, id, businessID)
}

// List returns part orders with an optional status filter.
func (s *PartOrderService) List(ctx context.Context, businessID int64, status *string, page, pageSize int) ([]*repository.PartOrder, error) {
	offset := (page - 1) * pageSize
	return s.parts.List(ctx, businessID, status, pageSize, offset)
}

// History returns the oldest-first status feed for a part order. The part
// order is fetched first so tenant scoping applies to the feed as well.
func (s *PartOrderService) History(ctx context.Context, id, businessID int64) ([]*repository.PartOrderUpdate, error) {
	if _, err := s.parts.GetByID(ctx, id, businessID); err != nil {
		return nil, err
	}
	return s.parts.History(ctx, id)
}

// UpdateStatus moves a part order to a new status, appends the history
// entry, writes the audit record and, on arrival with customer notification
// enabled, emails the customer that the part is ready.
func (s *PartOrderService) UpdateStatus(ctx context.Context, id, businessID int64, status string, note *string, actorID *int64) (*repository.PartOrder, error) {
	prior, err := s.parts.GetByID(ctx, id, businessID)
	if err != nil {
		return nil, err
	}

	if err := s.parts.UpdateStatus(ctx, id, businessID, status); err != nil {
		return nil, err
	}
	updated := *prior
	updated.Status = status

	if err := s.parts.AppendUpdate(ctx, &repository.PartOrderUpdate{
		PartOrderID: id,
		Status:      status,
		Note:        note,
	}); err != nil {
		s.log.Warn().Err(err).Int64("part_order_id", id).Msg("failed to append part order history entry")
	}

	if prior.Status != status {
		s.activity.Log(ctx, &repository.ActivityLogEntry{
			BusinessID:   businessID,
			ActorID:      actorID,
			ActivityType: ActivityPartOrderStatusChange,
			EntityType:   "part_order",
			EntityID:     id,
			Metadata: map[string]any{
				"part_name": updated.PartName,
				"from":      prior.Status,
				"to":        status,
			},
		})
	}

	if status == repository.PartOrderStatusArrived && prior.Status != status {
		s.notifyPartReady(ctx, &updated)
	}
	s.touchLinkedJob(ctx, &updated)

	return &updated, nil
}

// Delete removes a part order and its history. Returns whether it existed.
func (s *PartOrderService) Delete(ctx context.Context, id, businessID int64, actorID *int64) (bool, error) {
	prior, err := s.parts.GetByID(ctx, id, businessID)
	if err != nil && !errors.IsNotFound(err) {
		s.log.Warn().Err(err).Int64("part_order_id", id).Msg("pre-delete part order fetch failed")
	}

	found, err := s.parts.Delete(ctx, id, businessID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	md := map[string]any{}
	if prior != nil {
		md["part_name"] = prior.PartName
	}
	s.activity.Log(ctx, &repository.ActivityLogEntry{
		BusinessID:   businessID,
		ActorID:      actorID,
		ActivityType: ActivityPartOrderDeleted,
		EntityType:   "part_order",
		EntityID:     id,
		Metadata:     md,
	})
	if prior != nil {
		s.touchLinkedJob(ctx, prior)
	}

	return true, nil
}

// notifyPartReady emails the customer that their part arrived. Best-effort:
// a missing email or transport failure never surfaces to the caller.
func (s *PartOrderService) notifyPartReady(ctx context.Context, po *repository.PartOrder) {
	if !po.NotifyCustomer || po.CustomerEmail == nil || *po.CustomerEmail == "" {
		return
	}
	rcpt := notify.Recipient{Email: *po.CustomerEmail}
	if po.CustomerName != nil {
		rcpt.Name = *po.CustomerName
	}
	if po.CustomerPhone != nil {
		rcpt.Phone = *po.CustomerPhone
	}
	data := notify.TemplateData{
		Part:         po,
		CustomerName: rcpt.Name,
	}
	if business, err := s.businesses.GetByID(ctx, po.BusinessID); err == nil {
		data.Business = business
	} else {
		s.log.Warn().Err(err).Int64("business_id", po.BusinessID).Msg("business lookup failed")
	}
	if !s.notifier.Send(ctx, notify.KindPartReady, rcpt, data) {
		s.log.Warn().
			Int64("part_order_id", po.ID).
			Msg("part ready notification was not delivered")
	}
}

func (s *PartOrderService) touchLinkedJob(ctx context.Context, po *repository.PartOrder) {
	if po.JobID == nil {
		return
	}
	if err := s.jobs.Touch(ctx, *po.JobID, po.BusinessID); err != nil {
		s.log.Warn().Err(err).Int64("job_id", *po.JobID).Msg("failed to touch linked job")
	}
}
