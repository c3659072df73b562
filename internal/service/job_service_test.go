package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopworks/be-repair-core/internal/errors"
	"github.com/shopworks/be-repair-core/internal/logger"
	"github.com/shopworks/be-repair-core/internal/notify"
	"github.com/shopworks/be-repair-core/internal/repository"
)

type jobServiceFixture struct {
	jobs       *fakeJobStore
	updates    *fakeJobUpdateStore
	customers  *fakeCustomerStore
	businesses *fakeBusinessStore
	activity   *fakeActivityStore
	notifier   *fakeNotifier
	events     *fakeEvents
	svc        *JobService
}

func newJobServiceFixture() *jobServiceFixture {
	f := &jobServiceFixture{
		jobs:      newFakeJobStore(),
		updates:   &fakeJobUpdateStore{},
		customers: newFakeCustomerStore(),
		businesses: newFakeBusinessStore(&repository.Business{
			ID: 1, Name: "Valley Mowers", Email: "shop@valleymowers.test", Active: true,
		}),
		activity: &fakeActivityStore{},
		notifier: newFakeNotifier(),
		events:   &fakeEvents{},
	}
	log := logger.Nop()
	f.svc = NewJobService(f.jobs, f.updates, f.customers, f.businesses,
		NewActivityService(f.activity, log), f.notifier, f.events, log)
	return f
}

func TestJobCreate_SendsBookedNotificationAndAudits(t *testing.T) {
	f := newJobServiceFixture()

	job, err := f.svc.Create(context.Background(), &CreateJobRequest{
		BusinessID:    1,
		CustomerName:  strPtr("Ana"),
		CustomerEmail: strPtr("ana@example.com"),
		Description:   "mower won't start",
	}, int64Ptr(7))
	require.NoError(t, err)

	assert.Equal(t, "J-001", job.JobCode)
	assert.Equal(t, repository.JobStatusWaitingAssessment, job.Status)

	booked := f.notifier.ofKind(notify.KindJobBooked)
	require.Len(t, booked, 1)
	assert.Equal(t, "ana@example.com", booked[0].Rcpt.Email)

	created := f.activity.ofType(ActivityJobCreated)
	require.Len(t, created, 1)
	assert.Equal(t, int64Ptr(7), created[0].ActorID)
	assert.Equal(t, "J-001", created[0].Metadata["job_code"])

	require.Len(t, f.events.published, 1)
	assert.Equal(t, "created", f.events.published[0].EventType)
}

func TestJobCreate_NoEmailMeansNoNotification(t *testing.T) {
	f := newJobServiceFixture()

	_, err := f.svc.Create(context.Background(), &CreateJobRequest{
		BusinessID:  1,
		Description: "walk-in repair",
	}, nil)
	require.NoError(t, err)

	assert.Empty(t, f.notifier.sent)
	assert.Len(t, f.activity.ofType(ActivityJobCreated), 1)
}

func TestJobCreate_CodesIncrementPerTenant(t *testing.T) {
	f := newJobServiceFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, &CreateJobRequest{BusinessID: 1, Description: "job"}, nil)
		require.NoError(t, err)
	}

	codes, err := f.jobs.Codes(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"J-001", "J-002", "J-003"}, codes)
}

func TestJobUpdate_ReadyForPickupFiresOneStatusEntryAndNotification(t *testing.T) {
	f := newJobServiceFixture()
	ctx := context.Background()

	job, err := f.svc.Create(ctx, &CreateJobRequest{
		BusinessID:    1,
		CustomerEmail: strPtr("ana@example.com"),
		Description:   "sharpen blades",
		Status:        repository.JobStatusInProgress,
	}, nil)
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, job.ID, 1, &UpdateJobRequest{
		Status: strPtr(repository.JobStatusReadyForPickup),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, repository.JobStatusReadyForPickup, updated.Status)

	statusEntries := f.activity.ofType(ActivityJobStatusChanged)
	require.Len(t, statusEntries, 1)
	assert.Equal(t, repository.JobStatusInProgress, statusEntries[0].Metadata["from"])
	assert.Equal(t, repository.JobStatusReadyForPickup, statusEntries[0].Metadata["to"])

	ready := f.notifier.ofKind(notify.KindJobReady)
	require.Len(t, ready, 1)

	// Delivery flips the customer-notified flag.
	stored, err := f.jobs.GetByID(ctx, job.ID, 1)
	require.NoError(t, err)
	assert.True(t, stored.CustomerNotified)

	// No general update entry when only the status moved.
	assert.Empty(t, f.activity.ofType(ActivityJobUpdated))
}

func TestJobUpdate_StatusAndFieldsInOnePayloadWriteOneEntryEach(t *testing.T) {
	f := newJobServiceFixture()
	ctx := context.Background()

	job, err := f.svc.Create(ctx, &CreateJobRequest{
		BusinessID:    1,
		CustomerEmail: strPtr("ana@example.com"),
		Description:   "sharpen blades",
		Status:        repository.JobStatusInProgress,
	}, nil)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, job.ID, 1, &UpdateJobRequest{
		Status:               strPtr(repository.JobStatusReadyForPickup),
		Description:          strPtr("sharpen and balance blades"),
		EquipmentDescription: strPtr("42in riding mower"),
	}, nil)
	require.NoError(t, err)

	// One status entry, one update entry listing the other fields. Field
	// changes never fan out to one entry apiece.
	assert.Len(t, f.activity.ofType(ActivityJobStatusChanged), 1)
	updatedEntries := f.activity.ofType(ActivityJobUpdated)
	require.Len(t, updatedEntries, 1)
	assert.ElementsMatch(t, []string{"description", "equipment_description"}, updatedEntries[0].Metadata["fields"])
	assert.Len(t, f.notifier.ofKind(notify.KindJobReady), 1)
}

func TestJobUpdate_UnchangedStatusProducesNoStatusEntry(t *testing.T) {
	f := newJobServiceFixture()
	ctx := context.Background()

	job, err := f.svc.Create(ctx, &CreateJobRequest{
		BusinessID:  1,
		Description: "tune-up",
		Status:      repository.JobStatusInProgress,
	}, nil)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, job.ID, 1, &UpdateJobRequest{
		Status:      strPtr(repository.JobStatusInProgress),
		Description: strPtr("tune-up and oil change"),
	}, nil)
	require.NoError(t, err)

	assert.Empty(t, f.activity.ofType(ActivityJobStatusChanged))
	updatedEntries := f.activity.ofType(ActivityJobUpdated)
	require.Len(t, updatedEntries, 1)
	assert.Equal(t, []string{"description"}, updatedEntries[0].Metadata["fields"])
}

func TestJobUpdate_CompletionWritesBothEntries(t *testing.T) {
	f := newJobServiceFixture()
	ctx := context.Background()

	job, err := f.svc.Create(ctx, &CreateJobRequest{
		BusinessID:  1,
		Description: "carb rebuild",
		Status:      repository.JobStatusInProgress,
	}, nil)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, job.ID, 1, &UpdateJobRequest{
		Status: strPtr(repository.JobStatusCompleted),
	}, nil)
	require.NoError(t, err)

	assert.Len(t, f.activity.ofType(ActivityJobStatusChanged), 1)
	assert.Len(t, f.activity.ofType(ActivityJobCompleted), 1)
	// Completion does not fire the pickup-ready notification.
	assert.Empty(t, f.notifier.ofKind(notify.KindJobReady))
}

func TestJobUpdate_OnHoldRoundTrip(t *testing.T) {
	f := newJobServiceFixture()
	ctx := context.Background()

	job, err := f.svc.Create(ctx, &CreateJobRequest{
		BusinessID:    1,
		CustomerEmail: strPtr("ana@example.com"),
		Description:   "deck weld",
		Status:        repository.JobStatusInProgress,
	}, nil)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, job.ID, 1, &UpdateJobRequest{
		Status: strPtr(repository.JobStatusOnHold),
	}, nil)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, job.ID, 1, &UpdateJobRequest{
		Status: strPtr(repository.JobStatusInProgress),
	}, nil)
	require.NoError(t, err)

	// Two status entries for the round trip, no readiness notification.
	assert.Len(t, f.activity.ofType(ActivityJobStatusChanged), 2)
	assert.Empty(t, f.notifier.ofKind(notify.KindJobReady))
}

func TestJobUpdate_ReenteringReadyNotifiesAgain(t *testing.T) {
	f := newJobServiceFixture()
	ctx := context.Background()

	job, err := f.svc.Create(ctx, &CreateJobRequest{
		BusinessID:    1,
		CustomerEmail: strPtr("ana@example.com"),
		Description:   "deck weld",
		Status:        repository.JobStatusInProgress,
	}, nil)
	require.NoError(t, err)

	for _, status := range []string{
		repository.JobStatusReadyForPickup,
		repository.JobStatusOnHold,
		repository.JobStatusReadyForPickup,
	} {
		_, err = f.svc.Update(ctx, job.ID, 1, &UpdateJobRequest{Status: strPtr(status)}, nil)
		require.NoError(t, err)
	}

	// Arrival triggers on each entry into the status, not once per job.
	assert.Len(t, f.notifier.ofKind(notify.KindJobReady), 2)
}

func TestJobUpdate_MutationSurvivesNotificationFailure(t *testing.T) {
	f := newJobServiceFixture()
	f.notifier.deliver = false
	ctx := context.Background()

	job, err := f.svc.Create(ctx, &CreateJobRequest{
		BusinessID:    1,
		CustomerEmail: strPtr("ana@example.com"),
		Description:   "belt swap",
		Status:        repository.JobStatusInProgress,
	}, nil)
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, job.ID, 1, &UpdateJobRequest{
		Status: strPtr(repository.JobStatusReadyForPickup),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, repository.JobStatusReadyForPickup, updated.Status)

	// Failed delivery leaves the notified flag down but the audit trail intact.
	stored, err := f.jobs.GetByID(ctx, job.ID, 1)
	require.NoError(t, err)
	assert.False(t, stored.CustomerNotified)
	assert.Len(t, f.activity.ofType(ActivityJobStatusChanged), 1)
}

func TestJobUpdate_MissingJobReturnsNotFound(t *testing.T) {
	f := newJobServiceFixture()

	_, err := f.svc.Update(context.Background(), 99, 1, &UpdateJobRequest{
		Status: strPtr(repository.JobStatusCompleted),
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Empty(t, f.activity.entries)
}

func TestJobDelete_Semantics(t *testing.T) {
	f := newJobServiceFixture()
	ctx := context.Background()

	job, err := f.svc.Create(ctx, &CreateJobRequest{BusinessID: 1, Description: "scrap"}, nil)
	require.NoError(t, err)

	found, err := f.svc.Delete(ctx, job.ID, 1, nil)
	require.NoError(t, err)
	assert.True(t, found)

	deleted := f.activity.ofType(ActivityJobDeleted)
	require.Len(t, deleted, 1)
	assert.Equal(t, job.JobCode, deleted[0].Metadata["job_code"])

	// Deleting again reports not found without a second audit entry.
	found, err = f.svc.Delete(ctx, job.ID, 1, nil)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Len(t, f.activity.ofType(ActivityJobDeleted), 1)
}

func TestJobTrack_RequiresMatchingEmail(t *testing.T) {
	f := newJobServiceFixture()
	ctx := context.Background()

	job, err := f.svc.Create(ctx, &CreateJobRequest{
		BusinessID:    1,
		CustomerEmail: strPtr("Ana@Example.com"),
		Description:   "tracked job",
	}, nil)
	require.NoError(t, err)

	_, err = f.svc.AddUpdate(ctx, job.ID, 1, nil, "parts ordered", true)
	require.NoError(t, err)
	_, err = f.svc.AddUpdate(ctx, job.ID, 1, nil, "internal note", false)
	require.NoError(t, err)

	// Case-insensitive email match, public updates only.
	got, updates, err := f.svc.Track(ctx, 1, job.JobCode, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	require.Len(t, updates, 1)
	assert.Equal(t, "parts ordered", updates[0].Body)

	// Wrong email looks identical to a missing job.
	_, _, err = f.svc.Track(ctx, 1, job.JobCode, "other@example.com")
	assert.True(t, errors.IsNotFound(err))
}

func TestJobResolveRecipient_LinkedCustomerWins(t *testing.T) {
	f := newJobServiceFixture()
	f.customers.customers[5] = &repository.Customer{
		ID: 5, BusinessID: 1, Name: "Ben",
		Email: strPtr("ben@example.com"),
	}
	ctx := context.Background()

	_, err := f.svc.Create(ctx, &CreateJobRequest{
		BusinessID:    1,
		CustomerID:    int64Ptr(5),
		CustomerName:  strPtr("Free Text"),
		CustomerEmail: strPtr("freetext@example.com"),
		Description:   "linked customer job",
	}, nil)
	require.NoError(t, err)

	booked := f.notifier.ofKind(notify.KindJobBooked)
	require.Len(t, booked, 1)
	assert.Equal(t, "ben@example.com", booked[0].Rcpt.Email)
	assert.Equal(t, "Ben", booked[0].Rcpt.Name)
}
