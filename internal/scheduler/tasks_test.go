package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopworks/be-repair-core/internal/errors"
	"github.com/shopworks/be-repair-core/internal/logger"
	"github.com/shopworks/be-repair-core/internal/notify"
	"github.com/shopworks/be-repair-core/internal/repository"
)

type fakeBusinessLister struct {
	businesses []*repository.Business
	err        error
}

func (f *fakeBusinessLister) ListActive(ctx context.Context) ([]*repository.Business, error) {
	return f.businesses, f.err
}

type fakeJobCounter struct {
	open      map[int64]int
	completed map[int64]int
	errFor    int64
}

func (f *fakeJobCounter) CountOpen(ctx context.Context, businessID int64) (int, error) {
	if f.errFor == businessID {
		return 0, errors.New(errors.ErrCodeUnavailable, "query failed")
	}
	return f.open[businessID], nil
}

func (f *fakeJobCounter) CountCompletedSince(ctx context.Context, businessID int64, since time.Time) (int, error) {
	return f.completed[businessID], nil
}

type fakeOrderCounter struct {
	arrived map[int64]int
}

func (f *fakeOrderCounter) CountArrivedSince(ctx context.Context, businessID int64, since time.Time) (int, error) {
	return f.arrived[businessID], nil
}

type fakeActivityPruner struct {
	deleted int64
	cutoff  time.Time
	err     error
}

func (f *fakeActivityPruner) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

type taskNotifier struct {
	sent    []notify.Recipient
	reports []*notify.WeeklyReportData
	deliver bool
}

func (f *taskNotifier) Send(ctx context.Context, kind notify.Kind, rcpt notify.Recipient, data notify.TemplateData) bool {
	f.sent = append(f.sent, rcpt)
	f.reports = append(f.reports, data.Report)
	return f.deliver
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestWeeklyReport_SendsPerTenantCounts(t *testing.T) {
	businesses := &fakeBusinessLister{businesses: []*repository.Business{
		{ID: 1, Name: "Valley Mowers", Email: "valley@example.com"},
		{ID: 2, Name: "Hill Repairs", Email: "hill@example.com"},
	}}
	jobs := &fakeJobCounter{
		open:      map[int64]int{1: 4, 2: 1},
		completed: map[int64]int{1: 7, 2: 0},
	}
	orders := &fakeOrderCounter{arrived: map[int64]int{1: 2}}
	notifier := &taskNotifier{deliver: true}

	now := time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)
	tasks := NewTasks(businesses, jobs, orders, &fakeActivityPruner{}, notifier, 365, logger.Nop()).
		WithClock(fixedClock(now))

	require.NoError(t, tasks.WeeklyReport(context.Background()))

	require.Len(t, notifier.sent, 2)
	assert.Equal(t, "valley@example.com", notifier.sent[0].Email)
	assert.Equal(t, 4, notifier.reports[0].OpenJobs)
	assert.Equal(t, 7, notifier.reports[0].CompletedJobs)
	assert.Equal(t, 2, notifier.reports[0].ArrivedOrders)
	assert.Equal(t, now.AddDate(0, 0, -7), notifier.reports[0].WeekStart)
}

func TestWeeklyReport_ContinuesPastPerTenantFailures(t *testing.T) {
	businesses := &fakeBusinessLister{businesses: []*repository.Business{
		{ID: 1, Name: "Broken Co", Email: "broken@example.com"},
		{ID: 2, Name: "No Email Shop"},
		{ID: 3, Name: "Fine Shop", Email: "fine@example.com"},
	}}
	jobs := &fakeJobCounter{errFor: 1, open: map[int64]int{}, completed: map[int64]int{}}
	notifier := &taskNotifier{deliver: true}

	tasks := NewTasks(businesses, jobs, &fakeOrderCounter{}, &fakeActivityPruner{}, notifier, 365, logger.Nop())
	require.NoError(t, tasks.WeeklyReport(context.Background()))

	// Tenant 1 errored, tenant 2 has no address; only tenant 3 is reached.
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "fine@example.com", notifier.sent[0].Email)
}

func TestWeeklyReport_ListFailureIsFatal(t *testing.T) {
	businesses := &fakeBusinessLister{err: errors.New(errors.ErrCodeUnavailable, "db down")}
	tasks := NewTasks(businesses, &fakeJobCounter{}, &fakeOrderCounter{}, &fakeActivityPruner{}, &taskNotifier{}, 365, logger.Nop())
	assert.Error(t, tasks.WeeklyReport(context.Background()))
}

func TestDailyCleanup_PrunesBeyondRetention(t *testing.T) {
	pruner := &fakeActivityPruner{deleted: 12}
	now := time.Date(2026, 3, 16, 2, 0, 0, 0, time.UTC)
	tasks := NewTasks(&fakeBusinessLister{}, &fakeJobCounter{}, &fakeOrderCounter{}, pruner, &taskNotifier{}, 30, logger.Nop()).
		WithClock(fixedClock(now))

	require.NoError(t, tasks.DailyCleanup(context.Background()))
	assert.Equal(t, now.Add(-30*24*time.Hour), pruner.cutoff)
}

func TestDailyCleanup_PropagatesPruneError(t *testing.T) {
	pruner := &fakeActivityPruner{err: errors.New(errors.ErrCodeUnavailable, "db down")}
	tasks := NewTasks(&fakeBusinessLister{}, &fakeJobCounter{}, &fakeOrderCounter{}, pruner, &taskNotifier{}, 30, logger.Nop())
	assert.Error(t, tasks.DailyCleanup(context.Background()))
}
