package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopworks/be-repair-core/internal/errors"
	"github.com/shopworks/be-repair-core/internal/logger"
	"github.com/shopworks/be-repair-core/internal/notify"
	"github.com/shopworks/be-repair-core/internal/repository"
)

// JobService orchestrates job mutations and their side effects. Side-effect
// failures (notification, audit, dependent lookups) are isolated: the
// persisted mutation is always returned to the caller regardless.
type JobService struct {
	jobs       JobStore
	updates    JobUpdateStore
	customers  CustomerStore
	businesses BusinessStore
	activity   *ActivityService
	notifier   Notifier
	events     EventPublisher
	log        *logger.Logger
}

// NewJobService creates a new JobService.
func NewJobService(
	jobs JobStore,
	updates JobUpdateStore,
	customers CustomerStore,
	businesses BusinessStore,
	activity *ActivityService,
	notifier Notifier,
	events EventPublisher,
	log *logger.Logger,
) *JobService {
	if events == nil {
		events = nopEvents{}
	}
	return &JobService{
		jobs:       jobs,
		updates:    updates,
		customers:  customers,
		businesses: businesses,
		activity:   activity,
		notifier:   notifier,
		events:     events,
		log:        log,
	}
}

// CreateJobRequest represents a create job request. Input is assumed already
// validated by the API layer.
type CreateJobRequest struct {
	BusinessID           int64
	CustomerID           *int64
	CustomerName         *string
	CustomerEmail        *string
	CustomerPhone        *string
	AssigneeID           *int64
	Description          string
	EquipmentDescription *string
	EstimatedHours       *float64
	Status               string
}

// UpdateJobRequest represents a partial job update. Nil fields are absent
// from the request.
type UpdateJobRequest struct {
	Status               *string
	CustomerName         *string
	CustomerEmail        *string
	CustomerPhone        *string
	AssigneeID           *int64
	Description          *string
	EquipmentDescription *string
	EstimatedHours       *float64
	ActualHours          *float64
}

// Create persists a new job, then best-effort: sends the booked notification
// when a customer email is known, writes one job_created audit entry, and
// publishes a lifecycle event. Returns the persisted job even when side
// effects fail.
func (s *JobService) Create(ctx context.Context, req *CreateJobRequest, actorID *int64) (*repository.Job, error) {
	status := req.Status
	if status == "" {
		status = repository.JobStatusWaitingAssessment
	}

	code, err := s.nextJobCode(ctx, req.BusinessID)
	if err != nil {
		return nil, err
	}

	job := &repository.Job{
		BusinessID:           req.BusinessID,
		JobCode:              code,
		Status:               status,
		CustomerID:           req.CustomerID,
		CustomerName:         req.CustomerName,
		CustomerEmail:        req.CustomerEmail,
		CustomerPhone:        req.CustomerPhone,
		AssigneeID:           req.AssigneeID,
		Description:          req.Description,
		EquipmentDescription: req.EquipmentDescription,
		EstimatedHours:       req.EstimatedHours,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	rcpt := s.resolveRecipient(ctx, job)
	if rcpt.Email != "" {
		data := notify.TemplateData{
			Business:     s.lookupBusiness(ctx, job.BusinessID),
			Job:          job,
			CustomerName: rcpt.Name,
		}
		if !s.notifier.Send(ctx, notify.KindJobBooked, rcpt, data) {
			s.log.Warn().
				Str("job_code", job.JobCode).
				Str("to", rcpt.Email).
				Msg("booked notification was not delivered")
		}
	}

	s.activity.Log(ctx, &repository.ActivityLogEntry{
		BusinessID:   job.BusinessID,
		ActorID:      actorID,
		ActivityType: ActivityJobCreated,
		EntityType:   "job",
		EntityID:     job.ID,
		Metadata:     map[string]any{"job_code": job.JobCode},
	})
	s.events.PublishJobEvent(ctx, "created", job)

	s.log.Info().
		Int64("job_id", job.ID).
		Str("job_code", job.JobCode).
		Int64("business_id", job.BusinessID).
		Msg("Job created")

	return job, nil
}

// Get retrieves a job.
func (s *JobService) Get(ctx context.Context, id, businessID int64) (*repository.Job, error) {
	return s.jobs.GetByID(ctx, id, businessID)
}

// List returns jobs with optional filters.
func (s *JobService) List(ctx context.Context, businessID int64, status *string, assigneeID *int64, page, pageSize int) ([]*repository.Job, error) {
	offset := (page - 1) * pageSize
	return s.jobs.List(ctx, businessID, status, assigneeID, pageSize, offset)
}

// Update applies a partial update, classifies what changed and fires the
// corresponding side effects. Fails with NotFound when the job is missing;
// every other failure past the persistence write is logged, not raised.
func (s *JobService) Update(ctx context.Context, id, businessID int64, req *UpdateJobRequest, actorID *int64) (*repository.Job, error) {
	prior, err := s.jobs.GetByID(ctx, id, businessID)
	if err != nil {
		return nil, err
	}

	updated := applyJobUpdate(prior, req)
	if err := s.jobs.Update(ctx, updated); err != nil {
		return nil, err
	}

	changes := DetectJobChanges(prior, updated, req)

	if changes.StatusChanged {
		s.activity.Log(ctx, &repository.ActivityLogEntry{
			BusinessID:   businessID,
			ActorID:      actorID,
			ActivityType: ActivityJobStatusChanged,
			EntityType:   "job",
			EntityID:     updated.ID,
			Metadata: map[string]any{
				"job_code": updated.JobCode,
				"from":     changes.StatusFrom,
				"to":       changes.StatusTo,
			},
		})
		if changes.StatusTo == repository.JobStatusCompleted {
			s.activity.Log(ctx, &repository.ActivityLogEntry{
				BusinessID:   businessID,
				ActorID:      actorID,
				ActivityType: ActivityJobCompleted,
				EntityType:   "job",
				EntityID:     updated.ID,
				Metadata:     map[string]any{"job_code": updated.JobCode},
			})
		}
	}

	if changes.ReachedStatus == repository.JobStatusReadyForPickup {
		s.notifyReadyForPickup(ctx, updated)
	}

	if len(changes.ChangedFields) > 0 {
		s.activity.Log(ctx, &repository.ActivityLogEntry{
			BusinessID:   businessID,
			ActorID:      actorID,
			ActivityType: ActivityJobUpdated,
			EntityType:   "job",
			EntityID:     updated.ID,
			Metadata: map[string]any{
				"job_code": updated.JobCode,
				"fields":   changes.ChangedFields,
			},
		})
	}

	s.events.PublishJobEvent(ctx, "updated", updated)

	return updated, nil
}

// Delete removes a job. The pre-delete fetch only feeds the audit
// description; its failure does not block deletion. Returns whether the job
// existed.
func (s *JobService) Delete(ctx context.Context, id, businessID int64, actorID *int64) (bool, error) {
	prior, err := s.jobs.GetByID(ctx, id, businessID)
	if err != nil && !errors.IsNotFound(err) {
		s.log.Warn().Err(err).Int64("job_id", id).Msg("pre-delete job fetch failed")
	}

	found, err := s.jobs.Delete(ctx, id, businessID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	md := map[string]any{}
	if prior != nil {
		md["job_code"] = prior.JobCode
	}
	s.activity.Log(ctx, &repository.ActivityLogEntry{
		BusinessID:   businessID,
		ActorID:      actorID,
		ActivityType: ActivityJobDeleted,
		EntityType:   "job",
		EntityID:     id,
		Metadata:     md,
	})
	if prior != nil {
		s.events.PublishJobEvent(ctx, "deleted", prior)
	}

	return true, nil
}

// Touch refreshes only the job's update timestamp. Used by dependent-entity
// writers; produces no notification and no audit entry.
func (s *JobService) Touch(ctx context.Context, id, businessID int64) error {
	return s.jobs.Touch(ctx, id, businessID)
}

// AddUpdate attaches a note to a job and touches the parent.
func (s *JobService) AddUpdate(ctx context.Context, jobID, businessID int64, authorID *int64, body string, public bool) (*repository.JobUpdate, error) {
	if _, err := s.jobs.GetByID(ctx, jobID, businessID); err != nil {
		return nil, err
	}
	upd := &repository.JobUpdate{
		JobID:      jobID,
		BusinessID: businessID,
		AuthorID:   authorID,
		Body:       body,
		Public:     public,
	}
	if err := s.updates.Create(ctx, upd); err != nil {
		return nil, err
	}
	if err := s.jobs.Touch(ctx, jobID, businessID); err != nil {
		s.log.Warn().Err(err).Int64("job_id", jobID).Msg("failed to touch job after update note")
	}
	return upd, nil
}

// Track serves the unauthenticated tracking lookup: job code plus matching
// customer email. Mismatches are reported as not found to avoid leaking job
// existence. Returns the job and its public updates.
func (s *JobService) Track(ctx context.Context, businessID int64, code, email string) (*repository.Job, []*repository.JobUpdate, error) {
	job, err := s.jobs.GetByCode(ctx, code, businessID)
	if err != nil {
		return nil, nil, err
	}

	rcpt := s.resolveRecipient(ctx, job)
	if rcpt.Email == "" || !strings.EqualFold(rcpt.Email, email) {
		return nil, nil, errors.NotFound("job", code)
	}

	updates, err := s.updates.ListByJob(ctx, job.ID, businessID, true)
	if err != nil {
		return nil, nil, err
	}
	return job, updates, nil
}

// notifyReadyForPickup attempts the pickup-ready notification and flips the
// customer-notified flag on delivery.
func (s *JobService) notifyReadyForPickup(ctx context.Context, job *repository.Job) {
	rcpt := s.resolveRecipient(ctx, job)
	if rcpt.Email == "" {
		return
	}
	data := notify.TemplateData{
		Business:     s.lookupBusiness(ctx, job.BusinessID),
		Job:          job,
		CustomerName: rcpt.Name,
	}
	if !s.notifier.Send(ctx, notify.KindJobReady, rcpt, data) {
		s.log.Warn().
			Str("job_code", job.JobCode).
			Str("to", rcpt.Email).
			Msg("ready-for-pickup notification was not delivered")
		return
	}
	job.CustomerNotified = true
	if err := s.jobs.SetCustomerNotified(ctx, job.ID, job.BusinessID, true); err != nil {
		s.log.Warn().Err(err).Int64("job_id", job.ID).Msg("failed to persist customer-notified flag")
	}
}

// resolveRecipient picks the linked customer record when present, falling
// back to the job's free-text contact fields. Lookup failures degrade to the
// free-text fields.
func (s *JobService) resolveRecipient(ctx context.Context, job *repository.Job) notify.Recipient {
	rcpt := notify.Recipient{}
	if job.CustomerName != nil {
		rcpt.Name = *job.CustomerName
	}
	if job.CustomerEmail != nil {
		rcpt.Email = *job.CustomerEmail
	}
	if job.CustomerPhone != nil {
		rcpt.Phone = *job.CustomerPhone
	}

	if job.CustomerID != nil {
		customer, err := s.customers.GetByID(ctx, *job.CustomerID, job.BusinessID)
		if err != nil {
			s.log.Warn().Err(err).
				Int64("customer_id", *job.CustomerID).
				Msg("customer lookup failed, using job contact fields")
			return rcpt
		}
		rcpt.Name = customer.Name
		if customer.Email != nil {
			rcpt.Email = *customer.Email
		}
		if customer.Phone != nil {
			rcpt.Phone = *customer.Phone
		}
	}
	return rcpt
}

// lookupBusiness fetches the tenant for template rendering; nil on failure.
func (s *JobService) lookupBusiness(ctx context.Context, businessID int64) *repository.Business {
	business, err := s.businesses.GetByID(ctx, businessID)
	if err != nil {
		s.log.Warn().Err(err).Int64("business_id", businessID).Msg("business lookup failed")
		return nil
	}
	return business
}

// nextJobCode scans existing codes for the highest numeric suffix and
// increments. Codes are formatted J-NNN and unique per tenant.
func (s *JobService) nextJobCode(ctx context.Context, businessID int64) (string, error) {
	codes, err := s.jobs.Codes(ctx, businessID)
	if err != nil {
		return "", err
	}
	max := 0
	for _, code := range codes {
		suffix, ok := strings.CutPrefix(code, "J-")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("J-%03d", max+1), nil
}

// applyJobUpdate copies the prior snapshot and overlays the fields present in
// the request.
func applyJobUpdate(prior *repository.Job, req *UpdateJobRequest) *repository.Job {
	updated := *prior
	if req.Status != nil {
		updated.Status = *req.Status
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
	if req.AssigneeID != nil {
		updated.AssigneeID = req.AssigneeID
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.EquipmentDescription != nil {
		updated.EquipmentDescription = req.EquipmentDescription
	}
	if req.EstimatedHours != nil {
		updated.EstimatedHours = req.EstimatedHours
	}
	if req.ActualHours != nil {
		updated.ActualHours = req.ActualHours
	}
	return &updated
}
