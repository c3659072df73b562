package service

import "github.com/shopworks/be-repair-core/internal/repository"

// ChangeSet classifies what a mutation changed. StatusChanged is decided on
// the persisted old value versus the persisted new value, never the raw
// request, because a request may omit the field or repeat the current value.
type ChangeSet struct {
	StatusChanged bool
	StatusFrom    string
	StatusTo      string

	// ChangedFields lists the non-status fields present in the update whose
	// stored values differ before and after.
	ChangedFields []string

	// ReachedStatus is set when the mutation entered a terminal-style status
	// (ready for pickup, completed, arrived) that drives its own notification
	// template.
	ReachedStatus string
}

// NoOp reports whether the mutation changed nothing observable.
func (c ChangeSet) NoOp() bool {
	return !c.StatusChanged && len(c.ChangedFields) == 0
}

var jobTerminalStatuses = map[string]bool{
	repository.JobStatusReadyForPickup: true,
	repository.JobStatusCompleted:      true,
}

var orderTerminalStatuses = map[string]bool{
	repository.OrderStatusArrived:   true,
	repository.OrderStatusCompleted: true,
}

// DetectJobChanges classifies a job mutation. A nil prior snapshot yields no
// effects; the caller has already decided that is a not-found case upstream.
func DetectJobChanges(prior, updated *repository.Job, req *UpdateJobRequest) ChangeSet {
	if prior == nil || updated == nil || req == nil {
		return ChangeSet{}
	}

	cs := detectStatus(prior.Status, updated.Status, jobTerminalStatuses)

	fields := fieldDiff{}
	fields.str("description", req.Description, &prior.Description, &updated.Description)
	fields.strPtr("equipment_description", req.EquipmentDescription, prior.EquipmentDescription, updated.EquipmentDescription)
	fields.strPtr("customer_name", req.CustomerName, prior.CustomerName, updated.CustomerName)
	fields.strPtr("customer_email", req.CustomerEmail, prior.CustomerEmail, updated.CustomerEmail)
	fields.strPtr("customer_phone", req.CustomerPhone, prior.CustomerPhone, updated.CustomerPhone)
	fields.intPtr("assignee_id", req.AssigneeID, prior.AssigneeID, updated.AssigneeID)
	fields.floatPtr("estimated_hours", req.EstimatedHours, prior.EstimatedHours, updated.EstimatedHours)
	fields.floatPtr("actual_hours", req.ActualHours, prior.ActualHours, updated.ActualHours)
	cs.ChangedFields = fields.names

	return cs
}

// DetectOrderChanges classifies a non-status order mutation.
func DetectOrderChanges(prior, updated *repository.Order, req *UpdateOrderRequest) ChangeSet {
	if prior == nil || updated == nil || req == nil {
		return ChangeSet{}
	}

	cs := detectStatus(prior.Status, updated.Status, orderTerminalStatuses)

	fields := fieldDiff{}
	fields.strPtr("supplier", req.Supplier, prior.Supplier, updated.Supplier)
	fields.strPtr("customer_name", req.CustomerName, prior.CustomerName, updated.CustomerName)
	fields.strPtr("customer_email", req.CustomerEmail, prior.CustomerEmail, updated.CustomerEmail)
	fields.strPtr("customer_phone", req.CustomerPhone, prior.CustomerPhone, updated.CustomerPhone)
	fields.boolPtr("notify_on_order_placed", req.NotifyOnOrderPlaced, prior.NotifyOnOrderPlaced, updated.NotifyOnOrderPlaced)
	fields.boolPtr("notify_on_arrival", req.NotifyOnArrival, prior.NotifyOnArrival, updated.NotifyOnArrival)
	fields.str("notify_channel", req.NotifyChannel, &prior.NotifyChannel, &updated.NotifyChannel)
	cs.ChangedFields = fields.names

	return cs
}

// DetectOrderStatusChange classifies a status-only order mutation.
func DetectOrderStatusChange(prior, updated *repository.Order) ChangeSet {
	if prior == nil || updated == nil {
		return ChangeSet{}
	}
	return detectStatus(prior.Status, updated.Status, orderTerminalStatuses)
}

func detectStatus(from, to string, terminals map[string]bool) ChangeSet {
	cs := ChangeSet{}
	if from != to {
		cs.StatusChanged = true
		cs.StatusFrom = from
		cs.StatusTo = to
		if terminals[to] {
			cs.ReachedStatus = to
		}
	}
	return cs
}

// fieldDiff accumulates names of fields present in the request whose stored
// values differ. Status is excluded by construction to avoid double-reporting.
type fieldDiff struct {
	names []string
}

func (d *fieldDiff) add(name string) { d.names = append(d.names, name) }

func (d *fieldDiff) str(name string, requested, before, after *string) {
	if requested == nil {
		return
	}
	if before == nil || after == nil || *before != *after {
		d.add(name)
	}
}

func (d *fieldDiff) strPtr(name string, requested, before, after *string) {
	if requested == nil {
		return
	}
	if !eqStrPtr(before, after) {
		d.add(name)
	}
}

func (d *fieldDiff) intPtr(name string, requested, before, after *int64) {
	if requested == nil {
		return
	}
	if (before == nil) != (after == nil) || (before != nil && *before != *after) {
		d.add(name)
	}
}

func (d *fieldDiff) floatPtr(name string, requested, before, after *float64) {
	if requested == nil {
		return
	}
	if (before == nil) != (after == nil) || (before != nil && *before != *after) {
		d.add(name)
	}
}

func (d *fieldDiff) boolPtr(name string, requested *bool, before, after bool) {
	if requested == nil {
		return
	}
	if before != after {
		d.add(name)
	}
}

func eqStrPtr(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}
