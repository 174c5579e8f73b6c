// Package query holds the pure derivation functions behind the dashboard
// and list views. Every function operates on a snapshot slice and never
// mutates it.
package query

import (
	"sort"
	"strings"

	"github.com/spec-kit/ticket-console/internal/domain"
)

// All is the filter value meaning "no constraint on this dimension".
const All = "all"

// CountByStatus returns the ticket count per status. Every status is
// present in the result, zero included.
func CountByStatus(tickets []domain.Ticket) map[domain.TicketStatus]int {
	counts := make(map[domain.TicketStatus]int, 5)
	for _, status := range domain.TicketStatusValues() {
		counts[status] = 0
	}
	for _, ticket := range tickets {
		counts[ticket.Status]++
	}
	return counts
}

// CountByPriority returns the ticket count per priority, zeros included.
func CountByPriority(tickets []domain.Ticket) map[domain.TicketPriority]int {
	counts := make(map[domain.TicketPriority]int, 4)
	for _, priority := range domain.TicketPriorityValues() {
		counts[priority] = 0
	}
	for _, ticket := range tickets {
		counts[ticket.Priority]++
	}
	return counts
}

// OpenCount counts tickets still needing first attention (new or open).
func OpenCount(tickets []domain.Ticket) int {
	count := 0
	for _, ticket := range tickets {
		if ticket.Status == domain.TicketStatusNew || ticket.Status == domain.TicketStatusOpen {
			count++
		}
	}
	return count
}

// PendingCount counts tickets waiting on the requester.
func PendingCount(tickets []domain.Ticket) int {
	count := 0
	for _, ticket := range tickets {
		if ticket.Status == domain.TicketStatusPending {
			count++
		}
	}
	return count
}

// ResolvedCount counts finished tickets (resolved or closed).
func ResolvedCount(tickets []domain.Ticket) int {
	count := 0
	for _, ticket := range tickets {
		if ticket.Status == domain.TicketStatusResolved || ticket.Status == domain.TicketStatusClosed {
			count++
		}
	}
	return count
}

// Recent returns the n most recently created tickets, newest first. The
// sort is stable so tickets sharing a timestamp keep their snapshot order.
func Recent(tickets []domain.Ticket, n int) []domain.Ticket {
	if n < 0 {
		n = 0
	}
	sorted := make([]domain.Ticket, len(tickets))
	copy(sorted, tickets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// Filter returns tickets matching the given status and priority. An empty
// value leaves that dimension unconstrained.
func Filter(tickets []domain.Ticket, status domain.TicketStatus, priority domain.TicketPriority) []domain.Ticket {
	matched := make([]domain.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		if status != "" && ticket.Status != status {
			continue
		}
		if priority != "" && ticket.Priority != priority {
			continue
		}
		matched = append(matched, ticket)
	}
	return matched
}

// Search combines a case-insensitive substring match over title,
// description, requester name and requester email with equality filters on
// status and priority. Filter values of "all" or "" are unconstrained; all
// criteria combine with AND.
func Search(tickets []domain.Ticket, text, status, priority string) []domain.Ticket {
	needle := strings.ToLower(strings.TrimSpace(text))
	matched := make([]domain.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		if constrained(status) && string(ticket.Status) != status {
			continue
		}
		if constrained(priority) && string(ticket.Priority) != priority {
			continue
		}
		if needle != "" && !matchesText(ticket, needle) {
			continue
		}
		matched = append(matched, ticket)
	}
	return matched
}

func constrained(filter string) bool {
	return filter != "" && filter != All
}

func matchesText(ticket domain.Ticket, needle string) bool {
	return strings.Contains(strings.ToLower(ticket.Title), needle) ||
		strings.Contains(strings.ToLower(ticket.Description), needle) ||
		strings.Contains(strings.ToLower(ticket.CreatedBy.Name), needle) ||
		strings.Contains(strings.ToLower(ticket.CreatedBy.Email), needle)
}
