package scheduler

import (
	"context"
	"time"

	"github.com/shopworks/be-repair-core/internal/logger"
	"github.com/shopworks/be-repair-core/internal/notify"
	"github.com/shopworks/be-repair-core/internal/repository"
)

// Task names used for registration, metrics labels and manual triggering.
const (
	TaskWeeklyReport = "weekly_report"
	TaskDailyCleanup = "daily_cleanup"
)

// BusinessLister enumerates the active tenants.
type BusinessLister interface {
	ListActive(ctx context.Context) ([]*repository.Business, error)
}

// JobCounter supplies the job counts for the weekly report.
type JobCounter interface {
	CountOpen(ctx context.Context, businessID int64) (int, error)
	CountCompletedSince(ctx context.Context, businessID int64, since time.Time) (int, error)
}

// OrderCounter supplies the order counts for the weekly report.
type OrderCounter interface {
	CountArrivedSince(ctx context.Context, businessID int64, since time.Time) (int, error)
}

// ActivityPruner deletes old audit records.
type ActivityPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Notifier is the slice of the dispatcher the tasks need.
type Notifier interface {
	Send(ctx context.Context, kind notify.Kind, rcpt notify.Recipient, data notify.TemplateData) bool
}

// Tasks bundles the scheduled task bodies and their dependencies.
type Tasks struct {
	businesses BusinessLister
	jobs       JobCounter
	orders     OrderCounter
	activity   ActivityPruner
	notifier   Notifier
	retention  time.Duration
	log        *logger.Logger
	now        func() time.Time
}

// NewTasks creates the task set. activityLogMaxDays bounds how long audit
// entries are kept.
func NewTasks(
	businesses BusinessLister,
	jobs JobCounter,
	orders OrderCounter,
	activity ActivityPruner,
	notifier Notifier,
	activityLogMaxDays int,
	log *logger.Logger,
) *Tasks {
	return &Tasks{
		businesses: businesses,
		jobs:       jobs,
		orders:     orders,
		activity:   activity,
		notifier:   notifier,
		retention:  time.Duration(activityLogMaxDays) * 24 * time.Hour,
		log:        log,
		now:        time.Now,
	}
}

// WithClock overrides the task clock.
func (t *Tasks) WithClock(now func() time.Time) *Tasks {
	t.now = now
	return t
}

// WeeklyReport emails every active business a summary of the past week:
// open jobs, jobs completed and orders arrived. A failure for one tenant is
// logged and the loop continues to the rest.
func (t *Tasks) WeeklyReport(ctx context.Context) error {
	businesses, err := t.businesses.ListActive(ctx)
	if err != nil {
		return err
	}

	weekStart := t.now().AddDate(0, 0, -7)
	for _, business := range businesses {
		if business.Email == "" {
			continue
		}
		report, err := t.buildReport(ctx, business.ID, weekStart)
		if err != nil {
			t.log.Warn().Err(err).
				Int64("business_id", business.ID).
				Msg("weekly report counts failed, skipping tenant")
			continue
		}
		rcpt := notify.Recipient{Name: business.Name, Email: business.Email}
		data := notify.TemplateData{Business: business, Report: report}
		if !t.notifier.Send(ctx, notify.KindWeeklyReport, rcpt, data) {
			t.log.Warn().
				Int64("business_id", business.ID).
				Msg("weekly report was not delivered")
			continue
		}
		t.log.Info().
			Int64("business_id", business.ID).
			Int("open_jobs", report.OpenJobs).
			Int("completed_jobs", report.CompletedJobs).
			Int("arrived_orders", report.ArrivedOrders).
			Msg("weekly report sent")
	}
	return nil
}

func (t *Tasks) buildReport(ctx context.Context, businessID int64, weekStart time.Time) (*notify.WeeklyReportData, error) {
	open, err := t.jobs.CountOpen(ctx, businessID)
	if err != nil {
		return nil, err
	}
	completed, err := t.jobs.CountCompletedSince(ctx, businessID, weekStart)
	if err != nil {
		return nil, err
	}
	arrived, err := t.orders.CountArrivedSince(ctx, businessID, weekStart)
	if err != nil {
		return nil, err
	}
	return &notify.WeeklyReportData{
		WeekStart:     weekStart,
		OpenJobs:      open,
		CompletedJobs: completed,
		ArrivedOrders: arrived,
	}, nil
}

// DailyCleanup prunes activity log entries past the retention window.
func (t *Tasks) DailyCleanup(ctx context.Context) error {
	cutoff := t.now().Add(-t.retention)
	deleted, err := t.activity.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	t.log.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("activity log cleanup completed")
	return nil
}
