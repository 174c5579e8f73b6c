package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew      TicketStatus = "new"
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusResolved TicketStatus = "resolved"
	TicketStatusClosed   TicketStatus = "closed"
)

// TicketStatusValues returns all statuses in display order.
func TicketStatusValues() []TicketStatus {
	return []TicketStatus{
		TicketStatusNew,
		TicketStatusOpen,
		TicketStatusPending,
		TicketStatusResolved,
		TicketStatusClosed,
	}
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusOpen, TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates triage urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketPriorityValues returns all priorities in display order.
func TicketPriorityValues() []TicketPriority {
	return []TicketPriority{
		TicketPriorityLow,
		TicketPriorityMedium,
		TicketPriorityHigh,
		TicketPriorityUrgent,
	}
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Requester identifies who submitted a ticket. Captured once at creation,
// immutable thereafter.
type Requester struct {
	Name  string
	Email string
}

// Ticket is the aggregate for support requests. The gateway assigns ID and
// both timestamps; UpdatedAt is refreshed by the gateway on every accepted
// update.
type Ticket struct {
	ID          string
	Title       string
	Description string
	CreatedBy   Requester
	AssignedTo  *User
	Status      TicketStatus
	Priority    TicketPriority
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
