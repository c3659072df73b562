package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shopworks/be-repair-core/internal/repository"
)

func TestDetectJobChanges_StatusTransition(t *testing.T) {
	prior := &repository.Job{Status: repository.JobStatusInProgress}
	updated := &repository.Job{Status: repository.JobStatusReadyForPickup}
	req := &UpdateJobRequest{Status: strPtr(repository.JobStatusReadyForPickup)}

	cs := DetectJobChanges(prior, updated, req)
	assert.True(t, cs.StatusChanged)
	assert.Equal(t, repository.JobStatusInProgress, cs.StatusFrom)
	assert.Equal(t, repository.JobStatusReadyForPickup, cs.StatusTo)
	assert.Equal(t, repository.JobStatusReadyForPickup, cs.ReachedStatus)
	assert.Empty(t, cs.ChangedFields)
}

func TestDetectJobChanges_SameStatusInRequestIsNotAChange(t *testing.T) {
	prior := &repository.Job{Status: repository.JobStatusInProgress}
	updated := &repository.Job{Status: repository.JobStatusInProgress}
	req := &UpdateJobRequest{Status: strPtr(repository.JobStatusInProgress)}

	cs := DetectJobChanges(prior, updated, req)
	assert.False(t, cs.StatusChanged)
	assert.Empty(t, cs.ReachedStatus)
	assert.True(t, cs.NoOp())
}

func TestDetectJobChanges_NonTerminalStatus(t *testing.T) {
	prior := &repository.Job{Status: repository.JobStatusWaitingAssessment}
	updated := &repository.Job{Status: repository.JobStatusInProgress}

	cs := DetectJobChanges(prior, updated, &UpdateJobRequest{})
	assert.True(t, cs.StatusChanged)
	assert.Empty(t, cs.ReachedStatus)
}

func TestDetectJobChanges_FieldDiffOnlyCountsRealChanges(t *testing.T) {
	prior := &repository.Job{
		Status:         repository.JobStatusInProgress,
		Description:    "replace chain",
		EstimatedHours: floatPtr(2),
	}
	updated := &repository.Job{
		Status:         repository.JobStatusInProgress,
		Description:    "replace chain and bar",
		EstimatedHours: floatPtr(2),
	}
	req := &UpdateJobRequest{
		Description:    strPtr("replace chain and bar"),
		EstimatedHours: floatPtr(2), // present but unchanged
	}

	cs := DetectJobChanges(prior, updated, req)
	assert.False(t, cs.StatusChanged)
	assert.Equal(t, []string{"description"}, cs.ChangedFields)
}

func TestDetectJobChanges_AbsentFieldsAreIgnored(t *testing.T) {
	prior := &repository.Job{Status: repository.JobStatusInProgress, Description: "a"}
	updated := &repository.Job{Status: repository.JobStatusInProgress, Description: "b"}

	// Description differs in storage but was not part of this request.
	cs := DetectJobChanges(prior, updated, &UpdateJobRequest{})
	assert.Empty(t, cs.ChangedFields)
}

func TestDetectJobChanges_NilInputsYieldNoEffects(t *testing.T) {
	assert.True(t, DetectJobChanges(nil, &repository.Job{}, &UpdateJobRequest{}).NoOp())
	assert.True(t, DetectJobChanges(&repository.Job{}, nil, &UpdateJobRequest{}).NoOp())
	assert.True(t, DetectJobChanges(&repository.Job{}, &repository.Job{}, nil).NoOp())
}

func TestDetectOrderStatusChange_Arrival(t *testing.T) {
	prior := &repository.Order{Status: repository.OrderStatusOrdered}
	updated := &repository.Order{Status: repository.OrderStatusArrived}

	cs := DetectOrderStatusChange(prior, updated)
	assert.True(t, cs.StatusChanged)
	assert.Equal(t, repository.OrderStatusArrived, cs.ReachedStatus)
}

func TestDetectOrderChanges_NotifyPreferences(t *testing.T) {
	prior := &repository.Order{
		Status:          repository.OrderStatusOrdered,
		NotifyOnArrival: false,
		NotifyChannel:   "email",
	}
	updated := &repository.Order{
		Status:          repository.OrderStatusOrdered,
		NotifyOnArrival: true,
		NotifyChannel:   "both",
	}
	req := &UpdateOrderRequest{
		NotifyOnArrival: boolPtr(true),
		NotifyChannel:   strPtr("both"),
	}

	cs := DetectOrderChanges(prior, updated, req)
	assert.Equal(t, []string{"notify_on_arrival", "notify_channel"}, cs.ChangedFields)
}
