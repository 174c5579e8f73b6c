package repository

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-console/internal/domain"
	"github.com/spec-kit/ticket-console/internal/gateway"
)

// ActivityLog owns the local collection of per-ticket audit activities.
// Activities are append-only: entries arrive from the gateway in creation
// order and are never reordered, updated or deleted.
type ActivityLog struct {
	gw     gateway.Gateway
	logger *zap.Logger

	mu       sync.RWMutex
	byTicket map[string][]domain.Activity
}

// NewActivityLog builds an empty activity log.
func NewActivityLog(gw gateway.Gateway, logger *zap.Logger) *ActivityLog {
	return &ActivityLog{
		gw:       gw,
		logger:   logger,
		byTicket: make(map[string][]domain.Activity),
	}
}

// LoadForTicket fetches the audit trail for one ticket and replaces only
// that ticket's slice of the cache.
func (l *ActivityLog) LoadForTicket(ctx context.Context, ticketID string) ([]domain.Activity, error) {
	activities, err := l.gw.ListActivities(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.byTicket[ticketID] = activities
	l.mu.Unlock()
	return copyActivities(activities), nil
}

// Append sends a new activity to the gateway and adds the canonical record
// to the cache in receipt order.
func (l *ActivityLog) Append(ctx context.Context, input gateway.NewActivity) (*domain.Activity, error) {
	created, err := l.gw.CreateActivity(ctx, input)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.byTicket[created.TicketID] = append(l.byTicket[created.TicketID], *created)
	l.mu.Unlock()
	l.logger.Debug("activity recorded",
		zap.String("ticket_id", created.TicketID),
		zap.String("type", string(created.Type)))
	return created, nil
}

// ByTicket returns the locally held activities for a ticket, in the order
// they were received.
func (l *ActivityLog) ByTicket(ticketID string) []domain.Activity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyActivities(l.byTicket[ticketID])
}

func copyActivities(activities []domain.Activity) []domain.Activity {
	out := make([]domain.Activity, len(activities))
	copy(out, activities)
	return out
}
