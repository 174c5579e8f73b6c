package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-console/internal/domain"
	"github.com/spec-kit/ticket-console/internal/gateway"
	apperrors "github.com/spec-kit/ticket-console/pkg/util"
)

func sampleActivity(id, ticketID string, at time.Time) domain.Activity {
	return domain.Activity{
		ID:        id,
		TicketID:  ticketID,
		Type:      domain.ActivityTypeComment,
		Message:   "message " + id,
		CreatedBy: "Ada Admin",
		CreatedAt: at,
	}
}

func TestLoadForTicketReplacesOnlyThatTicket(t *testing.T) {
	gw := new(mockGateway)
	log := NewActivityLog(gw, zap.NewNop())
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	gw.On("ListActivities", mock.Anything, "t1").
		Return([]domain.Activity{sampleActivity("a1", "t1", base)}, nil).Once()
	gw.On("ListActivities", mock.Anything, "t2").
		Return([]domain.Activity{sampleActivity("a2", "t2", base), sampleActivity("a3", "t2", base.Add(time.Minute))}, nil).Once()

	_, err := log.LoadForTicket(context.Background(), "t1")
	require.NoError(t, err)
	_, err = log.LoadForTicket(context.Background(), "t2")
	require.NoError(t, err)

	gw.On("ListActivities", mock.Anything, "t2").
		Return([]domain.Activity{sampleActivity("a4", "t2", base.Add(time.Hour))}, nil).Once()
	refreshed, err := log.LoadForTicket(context.Background(), "t2")
	require.NoError(t, err)
	require.Len(t, refreshed, 1)

	require.Len(t, log.ByTicket("t1"), 1, "other tickets keep their cached trail")
	require.Equal(t, "a4", log.ByTicket("t2")[0].ID)
}

func TestLoadForTicketFailureKeepsCache(t *testing.T) {
	gw := new(mockGateway)
	log := NewActivityLog(gw, zap.NewNop())
	base := time.Now()

	gw.On("ListActivities", mock.Anything, "t1").
		Return([]domain.Activity{sampleActivity("a1", "t1", base)}, nil).Once()
	_, err := log.LoadForTicket(context.Background(), "t1")
	require.NoError(t, err)

	gw.On("ListActivities", mock.Anything, "t1").
		Return(nil, apperrors.NewActivityError("failed to load activities", errors.New("boom"))).Once()
	_, err = log.LoadForTicket(context.Background(), "t1")
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, apperrors.CodeActivityFailed))
	require.Len(t, log.ByTicket("t1"), 1)
}

func TestAppendKeepsReceiptOrder(t *testing.T) {
	gw := new(mockGateway)
	log := NewActivityLog(gw, zap.NewNop())
	base := time.Now()

	for i, id := range []string{"a1", "a2", "a3"} {
		created := sampleActivity(id, "t1", base.Add(time.Duration(i)*time.Minute))
		gw.On("CreateActivity", mock.Anything, mock.AnythingOfType("gateway.NewActivity")).
			Return(&created, nil).Once()
		_, err := log.Append(context.Background(), gateway.NewActivity{
			TicketID:  "t1",
			Type:      domain.ActivityTypeComment,
			Message:   "message " + id,
			CreatedBy: "Ada Admin",
		})
		require.NoError(t, err)
	}

	trail := log.ByTicket("t1")
	require.Equal(t, []string{"a1", "a2", "a3"}, []string{trail[0].ID, trail[1].ID, trail[2].ID})
}

func TestAppendFailureLeavesCacheUntouched(t *testing.T) {
	gw := new(mockGateway)
	log := NewActivityLog(gw, zap.NewNop())

	gw.On("CreateActivity", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewActivityError("failed to record activity", errors.New("boom"))).Once()

	_, err := log.Append(context.Background(), gateway.NewActivity{TicketID: "t1", Type: domain.ActivityTypeComment, Message: "hi"})
	require.Error(t, err)
	require.Empty(t, log.ByTicket("t1"))
}

func TestByTicketReturnsCopy(t *testing.T) {
	gw := new(mockGateway)
	log := NewActivityLog(gw, zap.NewNop())

	created := sampleActivity("a1", "t1", time.Now())
	gw.On("CreateActivity", mock.Anything, mock.Anything).Return(&created, nil).Once()
	_, err := log.Append(context.Background(), gateway.NewActivity{TicketID: "t1"})
	require.NoError(t, err)

	trail := log.ByTicket("t1")
	trail[0].Message = "mutated"
	require.Equal(t, "message a1", log.ByTicket("t1")[0].Message)
}
