package events

import (
	"time"

	"github.com/spec-kit/ticket-console/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventCommentAdded          EventType = "comment_added"
	EventAuditIncomplete       EventType = "audit_incomplete"
)

// Event represents an outcome the console surfaces to the admin. This is
// the notification channel the browser client used toasts for.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Assignee string `json:"assignee"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	Preview string `json:"preview"`
}

// AuditIncompletePayload marks a committed ticket mutation whose audit
// entry failed to record.
type AuditIncompletePayload struct {
	ActivityType domain.ActivityType `json:"activity_type"`
	Reason       string              `json:"reason"`
}
