package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-console/internal/domain"
	"github.com/spec-kit/ticket-console/internal/events"
	"github.com/spec-kit/ticket-console/internal/gateway"
	"github.com/spec-kit/ticket-console/internal/repository"
	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *mockGateway) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *mockGateway) CreateTicket(ctx context.Context, input domain.TicketInput) (*domain.Ticket, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *mockGateway) UpdateTicket(ctx context.Context, id string, patch gateway.TicketPatch) (*domain.Ticket, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *mockGateway) ListActivities(ctx context.Context, ticketID string) ([]domain.Activity, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Activity), args.Error(1)
}

func (m *mockGateway) CreateActivity(ctx context.Context, input gateway.NewActivity) (*domain.Activity, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Activity), args.Error(1)
}

func (m *mockGateway) Login(ctx context.Context, email, password string) (*gateway.Credentials, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Credentials), args.Error(1)
}

func (m *mockGateway) Logout(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockGateway) CurrentUser(ctx context.Context) (*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockGateway) SetToken(token string) {
	m.Called(token)
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) published() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event{}, d.events...)
}

type workflowFixture struct {
	gw       *mockGateway
	tickets  *repository.TicketRepository
	recorder *recordingDispatcher
	service  *WorkflowService
}

func newFixture(t *testing.T, seed ...domain.Ticket) *workflowFixture {
	t.Helper()
	gw := new(mockGateway)
	logger := zap.NewNop()
	tickets := repository.NewTicketRepository(gw, nil, logger)
	if len(seed) > 0 {
		gw.On("ListTickets", mock.Anything).Return(seed, nil).Once()
		require.NoError(t, tickets.LoadAll(context.Background()))
	}
	recorder := &recordingDispatcher{}
	svc := NewWorkflowService(WorkflowDependencies{
		Tickets:    tickets,
		Activities: repository.NewActivityLog(gw, logger),
		Dispatcher: recorder,
		Logger:     logger,
	})
	return &workflowFixture{gw: gw, tickets: tickets, recorder: recorder, service: svc}
}

func seedTicket() domain.Ticket {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return domain.Ticket{
		ID:          "t1",
		Title:       "Login broken",
		Description: "Cannot log in since update",
		CreatedBy:   domain.Requester{Name: "Ana", Email: "ana@x.com"},
		Status:      domain.TicketStatusNew,
		Priority:    domain.TicketPriorityLow,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func activityFor(ticketID string, input gateway.NewActivity) domain.Activity {
	return domain.Activity{
		ID:        "act-1",
		TicketID:  ticketID,
		Type:      input.Type,
		Message:   input.Message,
		CreatedBy: input.CreatedBy,
		CreatedAt: time.Now(),
	}
}

func TestChangeStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	ticket := seedTicket()

	_, err := f.service.ChangeStatus(context.Background(), &ticket, "cancelled", "Ada Admin")
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	f.gw.AssertNotCalled(t, "UpdateTicket", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangeStatusNoOpSkipsGateway(t *testing.T) {
	f := newFixture(t)
	ticket := seedTicket()

	result, err := f.service.ChangeStatus(context.Background(), &ticket, ticket.Status, "Ada Admin")
	require.NoError(t, err)
	require.False(t, result.TicketUpdated)
	require.False(t, result.ActivityRecorded)
	require.Empty(t, f.recorder.published())
	f.gw.AssertNotCalled(t, "UpdateTicket", mock.Anything, mock.Anything, mock.Anything)
	f.gw.AssertNotCalled(t, "CreateActivity", mock.Anything, mock.Anything)
}

func TestChangeStatusRecordsUpdateAndActivity(t *testing.T) {
	ticket := seedTicket()
	f := newFixture(t, ticket)

	updated := ticket
	updated.Status = domain.TicketStatusOpen
	updated.UpdatedAt = ticket.UpdatedAt.Add(time.Minute)
	f.gw.On("UpdateTicket", mock.Anything, "t1", mock.Anything).Return(&updated, nil).Once()

	var recorded gateway.NewActivity
	f.gw.On("CreateActivity", mock.Anything, mock.MatchedBy(func(in gateway.NewActivity) bool {
		recorded = in
		return true
	})).Return(&domain.Activity{ID: "act-1", TicketID: "t1", Type: domain.ActivityTypeStatusChange}, nil).Once()

	result, err := f.service.ChangeStatus(context.Background(), &ticket, domain.TicketStatusOpen, "Ada Admin")
	require.NoError(t, err)
	require.True(t, result.TicketUpdated)
	require.True(t, result.ActivityRecorded)
	require.Equal(t, domain.TicketStatusOpen, result.Ticket.Status)

	require.Equal(t, domain.ActivityTypeStatusChange, recorded.Type)
	require.Equal(t, "Status changed from new to open", recorded.Message)
	require.Equal(t, "Ada Admin", recorded.CreatedBy)

	published := f.recorder.published()
	require.Len(t, published, 1)
	require.Equal(t, events.EventTicketStatusChanged, published[0].Type)
	payload := published[0].Payload.(events.TicketStatusChangedPayload)
	require.Equal(t, domain.TicketStatusNew, payload.OldStatus)
	require.Equal(t, domain.TicketStatusOpen, payload.NewStatus)
}

func TestChangeStatusUpdateFailureAbortsProtocol(t *testing.T) {
	ticket := seedTicket()
	f := newFixture(t, ticket)

	f.gw.On("UpdateTicket", mock.Anything, "t1", mock.Anything).
		Return(nil, apperrors.NewUpdateError("failed to update ticket", errors.New("boom"))).Once()

	result, err := f.service.ChangeStatus(context.Background(), &ticket, domain.TicketStatusOpen, "Ada Admin")
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, apperrors.CodeUpdateFailed))
	require.False(t, result.TicketUpdated)
	require.False(t, result.ActivityRecorded)
	require.Empty(t, f.recorder.published())
	f.gw.AssertNotCalled(t, "CreateActivity", mock.Anything, mock.Anything)
}

func TestChangeStatusAuditFailureIsExplicit(t *testing.T) {
	ticket := seedTicket()
	f := newFixture(t, ticket)

	updated := ticket
	updated.Status = domain.TicketStatusResolved
	f.gw.On("UpdateTicket", mock.Anything, "t1", mock.Anything).Return(&updated, nil).Once()
	f.gw.On("CreateActivity", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewActivityError("failed to record activity", errors.New("boom"))).Once()

	result, err := f.service.ChangeStatus(context.Background(), &ticket, domain.TicketStatusResolved, "Ada Admin")
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, apperrors.CodeAuditFailed))
	require.True(t, result.TicketUpdated, "the committed update must be reported")
	require.False(t, result.ActivityRecorded)
	require.Equal(t, domain.TicketStatusResolved, result.Ticket.Status)

	// The snapshot keeps the committed update even though the audit failed.
	got, ok := f.tickets.GetByID("t1")
	require.True(t, ok)
	require.Equal(t, domain.TicketStatusResolved, got.Status)

	published := f.recorder.published()
	require.Len(t, published, 1)
	require.Equal(t, events.EventAuditIncomplete, published[0].Type)
	payload := published[0].Payload.(events.AuditIncompletePayload)
	require.Equal(t, domain.ActivityTypeStatusChange, payload.ActivityType)
}

func TestChangePriorityRecordsMessage(t *testing.T) {
	ticket := seedTicket()
	f := newFixture(t, ticket)

	updated := ticket
	updated.Priority = domain.TicketPriorityUrgent
	f.gw.On("UpdateTicket", mock.Anything, "t1", mock.Anything).Return(&updated, nil).Once()

	var recorded gateway.NewActivity
	f.gw.On("CreateActivity", mock.Anything, mock.MatchedBy(func(in gateway.NewActivity) bool {
		recorded = in
		return true
	})).Return(&domain.Activity{ID: "act-1", TicketID: "t1", Type: domain.ActivityTypePriorityChange}, nil).Once()

	result, err := f.service.ChangePriority(context.Background(), &ticket, domain.TicketPriorityUrgent, "Ada Admin")
	require.NoError(t, err)
	require.True(t, result.ActivityRecorded)
	require.Equal(t, "Priority changed from low to urgent", recorded.Message)

	published := f.recorder.published()
	require.Len(t, published, 1)
	require.Equal(t, events.EventTicketPriorityChanged, published[0].Type)
}

func TestAssignRequiresAssignee(t *testing.T) {
	f := newFixture(t)
	ticket := seedTicket()

	_, err := f.service.Assign(context.Background(), &ticket, nil, "Ada Admin")
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestAssignNoOpWhenAlreadyAssigned(t *testing.T) {
	f := newFixture(t)
	assignee := &domain.User{ID: "u1", Username: "ada"}
	ticket := seedTicket()
	ticket.AssignedTo = assignee

	result, err := f.service.Assign(context.Background(), &ticket, assignee, "Ada Admin")
	require.NoError(t, err)
	require.False(t, result.TicketUpdated)
	f.gw.AssertNotCalled(t, "UpdateTicket", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignSendsAssigneeID(t *testing.T) {
	ticket := seedTicket()
	f := newFixture(t, ticket)
	assignee := &domain.User{ID: "u1", FirstName: "Ada", LastName: "Admin", Username: "ada"}

	updated := ticket
	updated.AssignedTo = assignee
	f.gw.On("UpdateTicket", mock.Anything, "t1", mock.MatchedBy(func(patch gateway.TicketPatch) bool {
		return patch.AssignedTo != nil && *patch.AssignedTo == "u1"
	})).Return(&updated, nil).Once()

	var recorded gateway.NewActivity
	f.gw.On("CreateActivity", mock.Anything, mock.MatchedBy(func(in gateway.NewActivity) bool {
		recorded = in
		return true
	})).Return(&domain.Activity{ID: "act-1", TicketID: "t1", Type: domain.ActivityTypeAssignment}, nil).Once()

	_, err := f.service.Assign(context.Background(), &ticket, assignee, "Ada Admin")
	require.NoError(t, err)
	require.Equal(t, "Ticket assigned to Ada Admin", recorded.Message)

	published := f.recorder.published()
	require.Len(t, published, 1)
	require.Equal(t, events.EventTicketAssigned, published[0].Type)
}

func TestAddCommentRejectsEmptyText(t *testing.T) {
	f := newFixture(t)
	ticket := seedTicket()

	_, err := f.service.AddComment(context.Background(), &ticket, "   ", "Ada Admin")
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	f.gw.AssertNotCalled(t, "CreateActivity", mock.Anything, mock.Anything)
}

func TestAddCommentAppendsActivity(t *testing.T) {
	f := newFixture(t)
	ticket := seedTicket()

	var recorded gateway.NewActivity
	f.gw.On("CreateActivity", mock.Anything, mock.MatchedBy(func(in gateway.NewActivity) bool {
		recorded = in
		return true
	})).Return(&domain.Activity{ID: "act-1", TicketID: "t1", Type: domain.ActivityTypeComment, Message: "looking into it"}, nil).Once()

	activity, err := f.service.AddComment(context.Background(), &ticket, "  looking into it  ", "Ada Admin")
	require.NoError(t, err)
	require.Equal(t, "looking into it", activity.Message)
	require.Equal(t, domain.ActivityTypeComment, recorded.Type)
	require.Equal(t, "looking into it", recorded.Message)

	published := f.recorder.published()
	require.Len(t, published, 1)
	require.Equal(t, events.EventCommentAdded, published[0].Type)
}

func TestAddCommentFallsBackToSystemActor(t *testing.T) {
	f := newFixture(t)
	ticket := seedTicket()

	var recorded gateway.NewActivity
	f.gw.On("CreateActivity", mock.Anything, mock.MatchedBy(func(in gateway.NewActivity) bool {
		recorded = in
		return true
	})).Return(&domain.Activity{ID: "act-1", TicketID: "t1", Type: domain.ActivityTypeComment}, nil).Once()

	_, err := f.service.AddComment(context.Background(), &ticket, "hello", "")
	require.NoError(t, err)
	require.Equal(t, domain.SystemActor, recorded.CreatedBy)
}

func TestSubmitTicketPublishesCreation(t *testing.T) {
	f := newFixture(t)

	created := seedTicket()
	f.gw.On("CreateTicket", mock.Anything, mock.AnythingOfType("domain.TicketInput")).Return(&created, nil).Once()

	ticket, err := f.service.SubmitTicket(context.Background(), domain.TicketInput{
		Title:       "Login broken",
		Description: "Cannot log in since update",
		CreatedBy:   domain.Requester{Name: "Ana", Email: "ana@x.com"},
	})
	require.NoError(t, err)
	require.Equal(t, "t1", ticket.ID)

	published := f.recorder.published()
	require.Len(t, published, 1)
	require.Equal(t, events.EventTicketCreated, published[0].Type)
	require.Equal(t, "Ana", published[0].Actor)
	require.NotEmpty(t, published[0].ID)
	require.False(t, published[0].Timestamp.IsZero())
}

func TestSubmitTicketValidationFailurePublishesNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SubmitTicket(context.Background(), domain.TicketInput{})
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	require.Empty(t, f.recorder.published())
	f.gw.AssertNotCalled(t, "CreateTicket", mock.Anything, mock.Anything)
}
