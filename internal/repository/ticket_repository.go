package repository

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-console/internal/domain"
	"github.com/spec-kit/ticket-console/internal/gateway"
	"github.com/spec-kit/ticket-console/internal/query"
	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

// TicketRepository owns the in-memory ticket snapshot shared by every view.
// Writes go through the gateway first; the local snapshot only ever holds
// canonical records the gateway returned. A single mutex guards the
// snapshot so readers see either the pre- or post-update state, never a
// partial one.
type TicketRepository struct {
	gw     gateway.Gateway
	cache  *SnapshotCache
	logger *zap.Logger

	mu      sync.RWMutex
	tickets []domain.Ticket
	lastErr error

	// Fetch sequencing: a LoadAll response is discarded when a
	// later-issued fetch already applied, so a slow early response can
	// never overwrite newer data.
	issuedSeq  uint64
	appliedSeq uint64
}

// NewTicketRepository builds the repository, hydrating from the snapshot
// cache when the process starts cold.
func NewTicketRepository(gw gateway.Gateway, cache *SnapshotCache, logger *zap.Logger) *TicketRepository {
	r := &TicketRepository{gw: gw, cache: cache, logger: logger}
	if cached, ok := cache.Load(context.Background()); ok {
		r.tickets = cached
		logger.Info("hydrated snapshot from cache", zap.Int("tickets", len(cached)))
	}
	return r
}

// LoadAll replaces the snapshot wholesale with the gateway's collection
// (last fetch wins, no merge). On failure the previous snapshot is retained
// and the error is remembered until the next successful load. Both outcomes
// are sequenced: a response superseded by a later-issued fetch is discarded
// whether it succeeded or failed.
func (r *TicketRepository) LoadAll(ctx context.Context) error {
	r.mu.Lock()
	r.issuedSeq++
	seq := r.issuedSeq
	r.mu.Unlock()

	tickets, err := r.gw.ListTickets(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq < r.appliedSeq {
		r.logger.Debug("discarding stale fetch result", zap.Uint64("seq", seq), zap.Error(err))
		return nil
	}
	if err != nil {
		r.lastErr = err
		return err
	}
	r.appliedSeq = seq
	r.tickets = tickets
	r.lastErr = nil
	r.cache.Store(ctx, r.tickets)
	return nil
}

// Create validates the submission, sends it to the gateway, and appends the
// canonical ticket to the snapshot. The gateway assigns the id and starts
// every ticket at status "new".
func (r *TicketRepository) Create(ctx context.Context, input domain.TicketInput) (*domain.Ticket, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	created, err := r.gw.CreateTicket(ctx, input)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.tickets = append(r.tickets, *created)
	snapshot := r.copyTicketsLocked()
	r.mu.Unlock()

	r.cache.Store(ctx, snapshot)
	r.logger.Info("ticket created", zap.String("id", created.ID))
	return created, nil
}

// Update sends only the changed fields and replaces the local entry with
// the full canonical record the gateway returns. Client-side field merging
// is deliberately avoided: the server computes UpdatedAt and may normalize
// fields, so its response is authoritative.
func (r *TicketRepository) Update(ctx context.Context, id string, patch gateway.TicketPatch) (*domain.Ticket, error) {
	if _, ok := r.GetByID(id); !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	updated, err := r.gw.UpdateTicket(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	for i := range r.tickets {
		if r.tickets[i].ID == id {
			r.tickets[i] = *updated
			break
		}
	}
	snapshot := r.copyTicketsLocked()
	r.mu.Unlock()

	r.cache.Store(ctx, snapshot)
	return updated, nil
}

// GetByID is a synchronous local lookup.
func (r *TicketRepository) GetByID(id string) (*domain.Ticket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.tickets {
		if r.tickets[i].ID == id {
			ticket := r.tickets[i]
			return &ticket, true
		}
	}
	return nil, false
}

// Snapshot returns a copy of the current ticket collection.
func (r *TicketRepository) Snapshot() []domain.Ticket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyTicketsLocked()
}

// Filter returns tickets matching status and priority; empty values are
// unconstrained.
func (r *TicketRepository) Filter(status domain.TicketStatus, priority domain.TicketPriority) []domain.Ticket {
	return query.Filter(r.Snapshot(), status, priority)
}

// LastError reports the failure from the most recent LoadAll, if the
// snapshot is known to be stale.
func (r *TicketRepository) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

func (r *TicketRepository) copyTicketsLocked() []domain.Ticket {
	snapshot := make([]domain.Ticket, len(r.tickets))
	copy(snapshot, r.tickets)
	return snapshot
}
