package domain

import (
	"net/mail"
	"strings"

	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

// TicketInput describes a public ticket submission. Status is not part of
// the input: the gateway assigns "new" to every created ticket.
type TicketInput struct {
	Title       string
	Description string
	Priority    TicketPriority
	CreatedBy   Requester
}

// Validate checks required fields before any network call. An empty
// priority defaults to medium, matching the backend model.
func (in *TicketInput) Validate() error {
	details := map[string]any{}
	if strings.TrimSpace(in.Title) == "" {
		details["title"] = "required"
	}
	if strings.TrimSpace(in.Description) == "" {
		details["description"] = "required"
	}
	if strings.TrimSpace(in.CreatedBy.Name) == "" {
		details["created_by_name"] = "required"
	}
	if _, err := mail.ParseAddress(in.CreatedBy.Email); err != nil {
		details["created_by_email"] = "must be a valid email address"
	}
	if in.Priority == "" {
		in.Priority = TicketPriorityMedium
	} else if !in.Priority.Valid() {
		details["priority"] = "unknown priority"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket submission", details)
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.CreatedBy.Name = strings.TrimSpace(in.CreatedBy.Name)
	return nil
}
