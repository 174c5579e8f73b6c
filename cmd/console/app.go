package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-console/internal/config"
	"github.com/spec-kit/ticket-console/internal/events"
	"github.com/spec-kit/ticket-console/internal/gateway"
	"github.com/spec-kit/ticket-console/internal/observability"
	"github.com/spec-kit/ticket-console/internal/repository"
	"github.com/spec-kit/ticket-console/internal/service"
	"github.com/spec-kit/ticket-console/internal/session"
	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

// app wires the console's collaborators together, mirroring the data flow
// of the web client: commands issue intents, the workflow service and
// repositories talk to the gateway, and the dispatcher reports outcomes.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	gw         *gateway.Client
	sessions   *session.Store
	cache      *repository.SnapshotCache
	tickets    *repository.TicketRepository
	activities *repository.ActivityLog
	workflow   *service.WorkflowService
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, err
	}
	gw, err := gateway.NewClient(cfg.Gateway, logger)
	if err != nil {
		return nil, err
	}

	cache := repository.NewSnapshotCache(cfg.Redis, logger)
	tickets := repository.NewTicketRepository(gw, cache, logger)
	activities := repository.NewActivityLog(gw, logger)

	dispatcher := events.NewInMemoryDispatcher()
	registerNotifications(dispatcher)

	workflow := service.NewWorkflowService(service.WorkflowDependencies{
		Tickets:    tickets,
		Activities: activities,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	return &app{
		cfg:        cfg,
		logger:     logger,
		gw:         gw,
		sessions:   session.NewStore(gw, cfg.Session, logger),
		cache:      cache,
		tickets:    tickets,
		activities: activities,
		workflow:   workflow,
	}, nil
}

func (a *app) close() {
	a.cache.Close()
	_ = a.logger.Sync()
}

// requireAuth refreshes the session and fails the command when the
// credential is absent or stale.
func (a *app) requireAuth(ctx context.Context) error {
	if !a.sessions.IsAuthenticated(ctx) {
		return apperrors.NewAuthError("not logged in; run `console login` first", nil)
	}
	return nil
}

// actor returns the display name recorded on activities.
func (a *app) actor() string {
	return a.sessions.CurrentUser().DisplayName()
}

// refresh loads the snapshot, tolerating a fetch failure when a previous
// snapshot is available to fall back on.
func (a *app) refresh(ctx context.Context) error {
	if err := a.tickets.LoadAll(ctx); err != nil {
		if len(a.tickets.Snapshot()) == 0 {
			return err
		}
		fmt.Fprintln(os.Stderr, "warning: could not reach the gateway, showing the last known snapshot")
	}
	return nil
}

// registerNotifications prints outcome confirmations, standing in for the
// web client's toasts.
func registerNotifications(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, func(_ context.Context, e events.Event) error {
		if p, ok := e.Payload.(events.TicketCreatedPayload); ok {
			fmt.Printf("Ticket %q submitted with priority %s.\n", p.Title, p.Priority)
		}
		return nil
	})
	dispatcher.Subscribe(events.EventTicketStatusChanged, func(_ context.Context, e events.Event) error {
		if p, ok := e.Payload.(events.TicketStatusChangedPayload); ok {
			fmt.Printf("Status changed to %s.\n", p.NewStatus)
		}
		return nil
	})
	dispatcher.Subscribe(events.EventTicketPriorityChanged, func(_ context.Context, e events.Event) error {
		if p, ok := e.Payload.(events.TicketPriorityChangedPayload); ok {
			fmt.Printf("Priority changed to %s.\n", p.NewPriority)
		}
		return nil
	})
	dispatcher.Subscribe(events.EventTicketAssigned, func(_ context.Context, e events.Event) error {
		if p, ok := e.Payload.(events.TicketAssignedPayload); ok {
			fmt.Printf("Ticket assigned to %s.\n", p.Assignee)
		}
		return nil
	})
	dispatcher.Subscribe(events.EventCommentAdded, func(_ context.Context, _ events.Event) error {
		fmt.Println("Comment added.")
		return nil
	})
	dispatcher.Subscribe(events.EventAuditIncomplete, func(_ context.Context, e events.Event) error {
		if p, ok := e.Payload.(events.AuditIncompletePayload); ok {
			fmt.Fprintf(os.Stderr, "warning: ticket %s was updated but the %s audit entry failed to record: %s\n",
				e.TicketID, p.ActivityType, p.Reason)
		}
		return nil
	})
}
