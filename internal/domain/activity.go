package domain

import "time"

// ActivityType captures what kind of entry an audit activity is.
type ActivityType string

const (
	ActivityTypeStatusChange   ActivityType = "status_change"
	ActivityTypePriorityChange ActivityType = "priority_change"
	ActivityTypeAssignment     ActivityType = "assignment"
	ActivityTypeComment        ActivityType = "comment"
)

// Valid reports whether t is a known activity type.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityTypeStatusChange, ActivityTypePriorityChange, ActivityTypeAssignment, ActivityTypeComment:
		return true
	}
	return false
}

// SystemActor is recorded when an activity is created without an
// authenticated identity.
const SystemActor = "System"

// Activity is an append-only audit trail entry belonging to one ticket.
// Activities are never updated or deleted; display order is CreatedAt
// ascending, which matches receipt order from the gateway.
type Activity struct {
	ID        string
	TicketID  string
	Type      ActivityType
	Message   string
	CreatedBy string
	CreatedAt time.Time
}
