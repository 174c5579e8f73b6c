package gateway

import (
	"time"

	"github.com/spec-kit/ticket-console/internal/domain"
)

// Wire types mirror the backend's REST representation: snake_case fields,
// nested user object on assigned_to, and "ticket" as the activity foreign
// key.

type wireUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type wireTicket struct {
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	CreatedByName  string                `json:"created_by_name"`
	CreatedByEmail string                `json:"created_by_email"`
	AssignedTo     *wireUser             `json:"assigned_to"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

type wireActivity struct {
	ID        string              `json:"id"`
	Ticket    string              `json:"ticket"`
	Type      domain.ActivityType `json:"type"`
	Message   string              `json:"message"`
	CreatedBy string              `json:"created_by"`
	CreatedAt time.Time           `json:"created_at"`
}

type createTicketRequest struct {
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Priority       domain.TicketPriority `json:"priority"`
	CreatedByName  string                `json:"created_by_name"`
	CreatedByEmail string                `json:"created_by_email"`
}

type updateTicketRequest struct {
	Title       *string                `json:"title,omitempty"`
	Description *string                `json:"description,omitempty"`
	Status      *domain.TicketStatus   `json:"status,omitempty"`
	Priority    *domain.TicketPriority `json:"priority,omitempty"`
	AssignedTo  *string                `json:"assigned_to,omitempty"`
}

type createActivityRequest struct {
	Ticket    string              `json:"ticket"`
	Type      domain.ActivityType `json:"type"`
	Message   string              `json:"message"`
	CreatedBy string              `json:"created_by"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  wireUser `json:"user"`
}

func (w wireUser) toDomain() domain.User {
	return domain.User{
		ID:        w.ID,
		Username:  w.Username,
		Email:     w.Email,
		FirstName: w.FirstName,
		LastName:  w.LastName,
	}
}

func (w wireTicket) toDomain() domain.Ticket {
	ticket := domain.Ticket{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Status:      w.Status,
		Priority:    w.Priority,
		CreatedBy: domain.Requester{
			Name:  w.CreatedByName,
			Email: w.CreatedByEmail,
		},
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
	if w.AssignedTo != nil {
		assignee := w.AssignedTo.toDomain()
		ticket.AssignedTo = &assignee
	}
	return ticket
}

func (w wireActivity) toDomain() domain.Activity {
	return domain.Activity{
		ID:        w.ID,
		TicketID:  w.Ticket,
		Type:      w.Type,
		Message:   w.Message,
		CreatedBy: w.CreatedBy,
		CreatedAt: w.CreatedAt,
	}
}
