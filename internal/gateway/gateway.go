package gateway

import (
	"context"

	"github.com/spec-kit/ticket-console/internal/domain"
)

// TicketPatch carries only the fields an update intends to change. Nil
// fields are omitted from the request so the gateway applies a partial
// update; the response is always the full canonical ticket.
type TicketPatch struct {
	Title       *string
	Description *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	AssignedTo  *string
}

// NewActivity is the payload for appending an audit entry.
type NewActivity struct {
	TicketID  string
	Type      domain.ActivityType
	Message   string
	CreatedBy string
}

// Credentials is the result of a successful login.
type Credentials struct {
	Token string
	User  domain.User
}

// Gateway is the remote backend contract the console consumes. All calls
// are blocking and honor ctx; every failure is a *util.DomainError scoped
// to the operation.
type Gateway interface {
	ListTickets(ctx context.Context) ([]domain.Ticket, error)
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)
	CreateTicket(ctx context.Context, input domain.TicketInput) (*domain.Ticket, error)
	UpdateTicket(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error)
	ListActivities(ctx context.Context, ticketID string) ([]domain.Activity, error)
	CreateActivity(ctx context.Context, input NewActivity) (*domain.Activity, error)

	Login(ctx context.Context, email, password string) (*Credentials, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*domain.User, error)

	// SetToken attaches (or, with an empty string, removes) the opaque
	// session credential sent on subsequent requests.
	SetToken(token string)
}
