package repository

import "time"

// Job status values. Any status may be written directly; arrival at
// ready_for_pickup or completed also triggers fixed side effects.
const (
	JobStatusWaitingAssessment = "waiting_assessment"
	JobStatusInProgress        = "in_progress"
	JobStatusOnHold            = "on_hold"
	JobStatusReadyForPickup    = "ready_for_pickup"
	JobStatusCompleted         = "completed"
)

// Order status values.
const (
	OrderStatusNotOrdered = "not_ordered"
	OrderStatusOrdered    = "ordered"
	OrderStatusArrived    = "arrived"
	OrderStatusCompleted  = "completed"
)

// Part order status values.
const (
	PartOrderStatusOrdered   = "ordered"
	PartOrderStatusArrived   = "arrived"
	PartOrderStatusCollected = "collected"
)

var statusLabels = map[string]string{
	JobStatusWaitingAssessment: "Waiting Assessment",
	JobStatusInProgress:        "In Progress",
	JobStatusOnHold:            "On Hold",
	JobStatusReadyForPickup:    "Ready for Pickup",
	JobStatusCompleted:         "Completed",
	OrderStatusNotOrdered:      "Not Ordered",
	OrderStatusOrdered:         "Ordered",
	OrderStatusArrived:         "Arrived",
	PartOrderStatusCollected:   "Collected",
}

// StatusLabel maps a status code to its human-readable label. Unknown codes
// are returned unchanged.
func StatusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

// Business is the tenant scoping unit. Every other entity carries its ID.
type Business struct {
	ID        int64
	Name      string
	Email     string
	Phone     *string
	Timezone  string
	Active    bool
	CreatedAt time.Time
}

// User is a staff member of a business.
type User struct {
	ID         int64
	BusinessID int64
	Name       string
	Email      string
	Role       string
	CreatedAt  time.Time
}

// Customer is a customer record of a business.
type Customer struct {
	ID         int64
	BusinessID int64
	Name       string
	Email      *string
	Phone      *string
	CreatedAt  time.Time
}

// Job is a repair work order. The free-text customer fields are used when no
// customer record is linked.
type Job struct {
	ID                   int64
	BusinessID           int64
	JobCode              string
	Status               string
	CustomerID           *int64
	CustomerName         *string
	CustomerEmail        *string
	CustomerPhone        *string
	AssigneeID           *int64
	Description          string
	EquipmentDescription *string
	EstimatedHours       *float64
	ActualHours          *float64
	CustomerNotified     bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// JobUpdate is a note attached to a job. Public updates are served by the
// unauthenticated tracking lookup.
type JobUpdate struct {
	ID         int64
	JobID      int64
	BusinessID int64
	AuthorID   *int64
	Body       string
	Public     bool
	CreatedAt  time.Time
}

// Order is a parts/equipment procurement record owning an ordered item list.
type Order struct {
	ID                  int64
	BusinessID          int64
	OrderNumber         string
	Status              string
	JobID               *int64
	Supplier            *string
	CustomerName        *string
	CustomerEmail       *string
	CustomerPhone       *string
	NotifyOnOrderPlaced bool
	NotifyOnArrival     bool
	NotifyChannel       string
	Items               []*OrderItem
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// OrderItem is a line on an order. UnitPrice is in minor currency units.
type OrderItem struct {
	ID        int64
	OrderID   int64
	Name      string
	SKU       *string
	Quantity  int
	UnitPrice int64
}

// PartOrder is a single-part procurement record independent of Order.
type PartOrder struct {
	ID             int64
	BusinessID     int64
	JobID          *int64
	PartName       string
	Supplier       *string
	CustomerName   *string
	CustomerEmail  *string
	CustomerPhone  *string
	Status         string
	NotifyCustomer bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PartOrderUpdate is one entry in a part order's status history feed.
type PartOrderUpdate struct {
	ID          int64
	PartOrderID int64
	Status      string
	Note        *string
	CreatedAt   time.Time
}

// ActivityLogEntry is an immutable, tenant-scoped audit record. A nil ActorID
// means the system acted.
type ActivityLogEntry struct {
	ID           int64
	BusinessID   int64
	ActorID      *int64
	ActivityType string
	Description  string
	EntityType   string
	EntityID     int64
	Metadata     map[string]any
	CreatedAt    time.Time
}

// StaffNotification is an in-app record fanned out to staff/admin users.
type StaffNotification struct {
	ID          int64
	BusinessID  int64
	UserID      int64
	Type        string
	Title       string
	Description string
	Link        *string
	Priority    string
	Read        bool
	CreatedAt   time.Time
}

// EmailHistoryRecord logs one outbound email, whether or not it was delivered.
type EmailHistoryRecord struct {
	ID         int64
	BusinessID int64
	Recipient  string
	Subject    string
	Body       string
	Kind       string
	Sender     string
	EntityType *string
	EntityID   *int64
	Delivered  bool
	CreatedAt  time.Time
}
