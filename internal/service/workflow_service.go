package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-console/internal/domain"
	"github.com/spec-kit/ticket-console/internal/events"
	"github.com/spec-kit/ticket-console/internal/gateway"
	"github.com/spec-kit/ticket-console/internal/repository"
	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

// WorkflowService orchestrates ticket mutations that must be paired with an
// audit activity: update the ticket through the repository first, then
// append the describing activity. The two steps are not transactional; the
// partial-failure window is surfaced explicitly through ChangeResult and a
// distinct audit error code, never swallowed.
type WorkflowService struct {
	tickets    *repository.TicketRepository
	activities *repository.ActivityLog
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// WorkflowDependencies bundles collaborators for the workflow service.
type WorkflowDependencies struct {
	Tickets    *repository.TicketRepository
	Activities *repository.ActivityLog
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	return &WorkflowService{
		tickets:    deps.Tickets,
		activities: deps.Activities,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// ChangeResult reports how far a two-step mutation got. TicketUpdated true
// with ActivityRecorded false is the partial-failure state: the gateway
// committed the ticket change but the audit trail is missing an entry.
type ChangeResult struct {
	Ticket           *domain.Ticket
	Activity         *domain.Activity
	TicketUpdated    bool
	ActivityRecorded bool
}

// ChangeStatus moves a ticket to newStatus and records a status_change
// activity. Changing to the current status is a no-op: no gateway call, no
// activity. Any-to-any transitions are allowed on purpose; the backend
// enforces no stricter workflow.
func (s *WorkflowService) ChangeStatus(ctx context.Context, ticket *domain.Ticket, newStatus domain.TicketStatus, actor string) (*ChangeResult, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	if newStatus == ticket.Status {
		return &ChangeResult{Ticket: ticket}, nil
	}

	change := domain.StatusChange{From: ticket.Status, To: newStatus}
	status := newStatus
	result, err := s.applyChange(ctx, ticket, gateway.TicketPatch{Status: &status}, change, actor)
	if err != nil {
		return result, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actorName(actor),
		Payload:  events.TicketStatusChangedPayload{OldStatus: change.From, NewStatus: change.To},
	})
	return result, nil
}

// ChangePriority moves a ticket to newPriority with the same two-step
// protocol and failure policy as ChangeStatus.
func (s *WorkflowService) ChangePriority(ctx context.Context, ticket *domain.Ticket, newPriority domain.TicketPriority, actor string) (*ChangeResult, error) {
	if !newPriority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": newPriority})
	}
	if newPriority == ticket.Priority {
		return &ChangeResult{Ticket: ticket}, nil
	}

	change := domain.PriorityChange{From: ticket.Priority, To: newPriority}
	priority := newPriority
	result, err := s.applyChange(ctx, ticket, gateway.TicketPatch{Priority: &priority}, change, actor)
	if err != nil {
		return result, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketPriorityChanged,
		TicketID: ticket.ID,
		Actor:    actorName(actor),
		Payload:  events.TicketPriorityChangedPayload{OldPriority: change.From, NewPriority: change.To},
	})
	return result, nil
}

// Assign hands the ticket to an admin and records an assignment activity.
func (s *WorkflowService) Assign(ctx context.Context, ticket *domain.Ticket, assignee *domain.User, actor string) (*ChangeResult, error) {
	if assignee == nil || assignee.ID == "" {
		return nil, apperrors.NewValidationError("assignee required", nil)
	}
	if ticket.AssignedTo != nil && ticket.AssignedTo.ID == assignee.ID {
		return &ChangeResult{Ticket: ticket}, nil
	}

	change := domain.Assignment{Assignee: assignee.DisplayName()}
	assigneeID := assignee.ID
	result, err := s.applyChange(ctx, ticket, gateway.TicketPatch{AssignedTo: &assigneeID}, change, actor)
	if err != nil {
		return result, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    actorName(actor),
		Payload:  events.TicketAssignedPayload{Assignee: change.Assignee},
	})
	return result, nil
}

// AddComment appends a user-authored comment. Comments do not touch ticket
// fields, so there is no paired mutation and no partial-failure window.
func (s *WorkflowService) AddComment(ctx context.Context, ticket *domain.Ticket, text, actor string) (*domain.Activity, error) {
	comment := domain.Comment{Text: strings.TrimSpace(text)}
	if comment.Text == "" {
		return nil, apperrors.NewValidationError("comment text required", nil)
	}

	activity, err := s.activities.Append(ctx, gateway.NewActivity{
		TicketID:  ticket.ID,
		Type:      comment.ActivityType(),
		Message:   comment.Describe(),
		CreatedBy: actorName(actor),
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		Actor:    actorName(actor),
		Payload:  events.CommentAddedPayload{Preview: preview(comment.Text, 120)},
	})
	return activity, nil
}

// SubmitTicket handles the public form: validation happens inside the
// repository before any network call.
func (s *WorkflowService) SubmitTicket(ctx context.Context, input domain.TicketInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    ticket.CreatedBy.Name,
		Payload:  events.TicketCreatedPayload{Title: ticket.Title, Priority: ticket.Priority},
	})
	return ticket, nil
}

// applyChange runs the two-step protocol: repository update, then audit
// append. A failed update aborts with nothing recorded. A failed append
// after a successful update returns the committed ticket together with an
// audit error so the caller can retry just the audit half.
func (s *WorkflowService) applyChange(ctx context.Context, ticket *domain.Ticket, patch gateway.TicketPatch, change domain.Change, actor string) (*ChangeResult, error) {
	updated, err := s.tickets.Update(ctx, ticket.ID, patch)
	if err != nil {
		return &ChangeResult{Ticket: ticket}, err
	}

	activity, err := s.activities.Append(ctx, gateway.NewActivity{
		TicketID:  updated.ID,
		Type:      change.ActivityType(),
		Message:   change.Describe(),
		CreatedBy: actorName(actor),
	})
	if err != nil {
		s.logger.Warn("ticket updated but audit entry failed",
			zap.String("ticket_id", updated.ID),
			zap.String("change", change.Describe()),
			zap.Error(err))
		s.publish(ctx, events.Event{
			Type:     events.EventAuditIncomplete,
			TicketID: updated.ID,
			Actor:    actorName(actor),
			Payload: events.AuditIncompletePayload{
				ActivityType: change.ActivityType(),
				Reason:       err.Error(),
			},
		})
		return &ChangeResult{Ticket: updated, TicketUpdated: true},
			apperrors.NewAuditError("ticket updated but activity not recorded", err)
	}

	return &ChangeResult{
		Ticket:           updated,
		Activity:         activity,
		TicketUpdated:    true,
		ActivityRecorded: true,
	}, nil
}

func (s *WorkflowService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func actorName(actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return domain.SystemActor
	}
	return actor
}

func preview(body string, max int) string {
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
