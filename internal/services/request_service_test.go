package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/careline/message-dispatch/internal/model"
	"github.com/careline/message-dispatch/internal/repository"
)

func TestRequestService_CreateOrUpdateAutomatedRequest(t *testing.T) {
	rule := &model.MessageRule{ID: 9, OrganisationID: 1}
	receiver := &model.MessageReceiver{ID: 5}
	scheduledAt := time.Date(2026, 9, 4, 10, 0, 0, 0, time.UTC)

	t.Run("creates when no open request exists", func(t *testing.T) {
		requestRepo := new(MockRequestRepo)
		svc := NewRequestService(requestRepo, new(MockReceiverRepo), 0)

		requestRepo.On("FindPendingByRuleAndEntity", mock.Anything, int64(9), int64(100)).
			Return(nil, repository.ErrMessageRequestNotFound)
		requestRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *model.MessageRequest) bool {
			return r.MessageRuleID != nil && *r.MessageRuleID == 9 &&
				r.MessageReceiverID == 5 && r.EntityID == 100 &&
				r.DeliveryStatus == model.DeliveryStatusPending && r.OrganisationID == 1
		})).Return(&model.MessageRequest{ID: 1}, nil)

		_, err := svc.CreateOrUpdateAutomatedRequest(testCtx(), rule, receiver, 100, scheduledAt)
		require.NoError(t, err)
		requestRepo.AssertExpectations(t)
	})

	t.Run("re-save moves the open request instead of duplicating", func(t *testing.T) {
		requestRepo := new(MockRequestRepo)
		svc := NewRequestService(requestRepo, new(MockReceiverRepo), 0)

		existing := &model.MessageRequest{ID: 11, MessageReceiverID: 2, ScheduledAt: scheduledAt.Add(-time.Hour)}
		requestRepo.On("FindPendingByRuleAndEntity", mock.Anything, int64(9), int64(100)).
			Return(existing, nil)
		requestRepo.On("UpdateSchedule", mock.Anything, int64(11), int64(5), scheduledAt).Return(nil)

		updated, err := svc.CreateOrUpdateAutomatedRequest(testCtx(), rule, receiver, 100, scheduledAt)
		require.NoError(t, err)
		assert.Equal(t, int64(5), updated.MessageReceiverID)
		assert.Equal(t, scheduledAt, updated.ScheduledAt)
		requestRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestRequestService_CreateManualRequest(t *testing.T) {
	requestRepo := new(MockRequestRepo)
	svc := NewRequestService(requestRepo, new(MockReceiverRepo), 0)

	broadcast := &model.ManualBroadcastMessage{ID: 33, OrganisationID: 1}
	receiver := &model.MessageReceiver{ID: 5}
	scheduledAt := time.Date(2026, 9, 4, 10, 0, 0, 0, time.UTC)

	requestRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *model.MessageRequest) bool {
		return r.ManualBroadcastMessageID != nil && *r.ManualBroadcastMessageID == 33 &&
			r.MessageRuleID == nil && r.EntityID == 33 && r.MessageReceiverID == 5
	})).Return(&model.MessageRequest{ID: 2}, nil)

	_, err := svc.CreateManualRequest(testCtx(), broadcast, receiver, scheduledAt)
	require.NoError(t, err)
	requestRepo.AssertExpectations(t)
}

func TestRequestService_FindDueRequests(t *testing.T) {
	requestRepo := new(MockRequestRepo)
	svc := NewRequestService(requestRepo, new(MockReceiverRepo), 2*time.Minute)

	now := time.Date(2026, 9, 4, 10, 0, 0, 0, time.UTC)
	requestRepo.On("FindDue", mock.Anything, int64(1), now, now.Add(-2*time.Minute)).
		Return([]*model.MessageRequest{{ID: 1}}, nil)

	due, err := svc.FindDueRequests(testCtx(), now)
	require.NoError(t, err)
	assert.Len(t, due, 1)
	requestRepo.AssertExpectations(t)
}

func TestRequestService_FetchPendingScheduledMessages(t *testing.T) {
	t.Run("lists by resolved receiver", func(t *testing.T) {
		requestRepo := new(MockRequestRepo)
		receiverRepo := new(MockReceiverRepo)
		svc := NewRequestService(requestRepo, receiverRepo, 0)

		receiverRepo.On("FindByTypeAndReceiverID", mock.Anything, int64(1), model.ReceiverTypeSubject, "42").
			Return(&model.MessageReceiver{ID: 5}, nil)
		requestRepo.On("FindByStatusAndReceiver", mock.Anything, model.DeliveryStatusPending, int64(5)).
			Return([]*model.MessageRequest{{ID: 1}, {ID: 2}}, nil)

		requests, err := svc.FetchPendingScheduledMessages(testCtx(), "42", model.ReceiverTypeSubject, model.DeliveryStatusPending)
		require.NoError(t, err)
		assert.Len(t, requests, 2)
	})

	t.Run("unknown receiver surfaces not found", func(t *testing.T) {
		requestRepo := new(MockRequestRepo)
		receiverRepo := new(MockReceiverRepo)
		svc := NewRequestService(requestRepo, receiverRepo, 0)

		receiverRepo.On("FindByTypeAndReceiverID", mock.Anything, int64(1), model.ReceiverTypeSubject, "999").
			Return(nil, repository.ErrMessageReceiverNotFound)

		_, err := svc.FetchPendingScheduledMessages(testCtx(), "999", model.ReceiverTypeSubject, model.DeliveryStatusPending)
		assert.ErrorIs(t, err, repository.ErrMessageReceiverNotFound)
		requestRepo.AssertNotCalled(t, "FindByStatusAndReceiver", mock.Anything, mock.Anything, mock.Anything)
	})
}
