package domain

import "fmt"

// Change is a tagged description of one ticket modification. The audit
// message shown to admins is derived from the change, not stored alongside
// it, so the formatting convention lives in exactly one place.
type Change interface {
	ActivityType() ActivityType
	Describe() string
}

// StatusChange records a status transition.
type StatusChange struct {
	From TicketStatus
	To   TicketStatus
}

func (c StatusChange) ActivityType() ActivityType { return ActivityTypeStatusChange }

func (c StatusChange) Describe() string {
	return fmt.Sprintf("Status changed from %s to %s", c.From, c.To)
}

// PriorityChange records a priority transition.
type PriorityChange struct {
	From TicketPriority
	To   TicketPriority
}

func (c PriorityChange) ActivityType() ActivityType { return ActivityTypePriorityChange }

func (c PriorityChange) Describe() string {
	return fmt.Sprintf("Priority changed from %s to %s", c.From, c.To)
}

// Assignment records handing a ticket to an admin. An empty assignee means
// the ticket was unassigned.
type Assignment struct {
	Assignee string
}

func (c Assignment) ActivityType() ActivityType { return ActivityTypeAssignment }

func (c Assignment) Describe() string {
	if c.Assignee == "" {
		return "Ticket unassigned"
	}
	return fmt.Sprintf("Ticket assigned to %s", c.Assignee)
}

// Comment records user-authored text; the message is the text itself.
type Comment struct {
	Text string
}

func (c Comment) ActivityType() ActivityType { return ActivityTypeComment }

func (c Comment) Describe() string { return c.Text }
