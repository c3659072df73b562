package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopworks/be-repair-core/internal/logger"
	"github.com/shopworks/be-repair-core/internal/metrics"
	"github.com/shopworks/be-repair-core/internal/repository"
)

// Activity types written by the lifecycle coordinators.
const (
	ActivityJobCreated            = "job_created"
	ActivityJobUpdated            = "job_updated"
	ActivityJobStatusChanged      = "job_status_changed"
	ActivityJobCompleted          = "job_completed"
	ActivityJobDeleted            = "job_deleted"
	ActivityOrderCreated          = "order_created"
	ActivityOrderUpdated          = "order_updated"
	ActivityOrderStatusChanged    = "order_status_changed"
	ActivityOrderDeleted          = "order_deleted"
	ActivityPartOrderCreated      = "part_order_created"
	ActivityPartOrderStatusChange = "part_order_status_changed"
	ActivityPartOrderDeleted      = "part_order_deleted"
)

// ActivityService appends immutable audit records. Log never returns an
// error: an audit failure must not undo or block the business mutation that
// already succeeded.
type ActivityService struct {
	store ActivityStore
	log   *logger.Logger
}

// NewActivityService creates a new ActivityService.
func NewActivityService(store ActivityStore, log *logger.Logger) *ActivityService {
	return &ActivityService{store: store, log: log}
}

// Log appends one entry, rendering the description from the activity type
// and metadata when the caller did not set one. Persistence failures are
// logged and swallowed.
func (s *ActivityService) Log(ctx context.Context, entry *repository.ActivityLogEntry) {
	if entry.Description == "" {
		entry.Description = Describe(entry.ActivityType, entry.EntityType, entry.EntityID, entry.Metadata)
	}
	if err := s.store.Append(ctx, entry); err != nil {
		metrics.ActivityLogWrites.WithLabelValues("failure").Inc()
		s.log.Warn().Err(err).
			Str("activity_type", entry.ActivityType).
			Str("entity_type", entry.EntityType).
			Int64("entity_id", entry.EntityID).
			Msg("failed to append activity log entry")
		return
	}
	metrics.ActivityLogWrites.WithLabelValues("success").Inc()
}

// ListForEntity returns the newest-first audit feed for one entity.
func (s *ActivityService) ListForEntity(ctx context.Context, businessID int64, entityType string, entityID int64, limit int) ([]*repository.ActivityLogEntry, error) {
	return s.store.ListByEntity(ctx, businessID, entityType, entityID, limit)
}

// ListForBusiness returns the newest-first audit feed for a tenant.
func (s *ActivityService) ListForBusiness(ctx context.Context, businessID int64, limit, offset int) ([]*repository.ActivityLogEntry, error) {
	return s.store.ListByBusiness(ctx, businessID, limit, offset)
}

// Describe renders a human-readable description for an activity type from
// its metadata. Unknown types fall back to a generic description.
func Describe(activityType, entityType string, entityID int64, md map[string]any) string {
	switch activityType {
	case ActivityJobCreated:
		return fmt.Sprintf("Created job %s", mdString(md, "job_code"))
	case ActivityJobUpdated:
		fields := mdStrings(md, "fields")
		if len(fields) > 0 {
			return fmt.Sprintf("Updated job %s (%s)", mdString(md, "job_code"), strings.Join(fields, ", "))
		}
		return fmt.Sprintf("Updated job %s", mdString(md, "job_code"))
	case ActivityJobStatusChanged:
		return fmt.Sprintf("Changed job %s status from %s to %s",
			mdString(md, "job_code"),
			repository.StatusLabel(mdString(md, "from")),
			repository.StatusLabel(mdString(md, "to")))
	case ActivityJobCompleted:
		return fmt.Sprintf("Completed job %s", mdString(md, "job_code"))
	case ActivityJobDeleted:
		return fmt.Sprintf("Deleted job %s", mdString(md, "job_code"))
	case ActivityOrderCreated:
		return fmt.Sprintf("Created order %s", mdString(md, "order_number"))
	case ActivityOrderUpdated:
		return fmt.Sprintf("Updated order %s", mdString(md, "order_number"))
	case ActivityOrderStatusChanged:
		return fmt.Sprintf("Changed order %s status from %s to %s",
			mdString(md, "order_number"),
			repository.StatusLabel(mdString(md, "from")),
			repository.StatusLabel(mdString(md, "to")))
	case ActivityOrderDeleted:
		return fmt.Sprintf("Deleted order %s", mdString(md, "order_number"))
	case ActivityPartOrderCreated:
		return fmt.Sprintf("Ordered part %s", mdString(md, "part_name"))
	case ActivityPartOrderStatusChange:
		return fmt.Sprintf("Changed part order for %s from %s to %s",
			mdString(md, "part_name"),
			repository.StatusLabel(mdString(md, "from")),
			repository.StatusLabel(mdString(md, "to")))
	case ActivityPartOrderDeleted:
		return fmt.Sprintf("Deleted part order for %s", mdString(md, "part_name"))
	}
	return fmt.Sprintf("%s - %s %d", activityType, entityType, entityID)
}

func mdString(md map[string]any, key string) string {
	if md == nil {
		return ""
	}
	if v, ok := md[key].(string); ok {
		return v
	}
	return ""
}

func mdStrings(md map[string]any, key string) []string {
	if md == nil {
		return nil
	}
	switch v := md[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
