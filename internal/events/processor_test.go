package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/careline/message-dispatch/internal/auth"
	"github.com/careline/message-dispatch/internal/model"
	"github.com/careline/message-dispatch/internal/queue"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) AuthenticateForOrganisation(ctx context.Context, organisationID int64) (context.Context, error) {
	args := m.Called(ctx, organisationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(context.Context), args.Error(1)
}

type MockMessagingHooks struct {
	mock.Mock
}

func (m *MockMessagingHooks) OnEntitySave(ctx context.Context, entityID, entityTypeID int64, entityType model.EntityType, subjectID, userID int64) error {
	args := m.Called(ctx, entityID, entityTypeID, entityType, subjectID, userID)
	return args.Error(0)
}

func (m *MockMessagingHooks) OnEntityDelete(ctx context.Context, entityID int64, entityType model.EntityType, receiverID int64) error {
	args := m.Called(ctx, entityID, entityType, receiverID)
	return args.Error(0)
}

func eventMessage(t *testing.T, event model.EntityEvent) *queue.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return &queue.Message{ID: "1-0", Data: data}
}

func TestProcessor_Process(t *testing.T) {
	tenantCtx := auth.WithUserContext(context.Background(), &auth.Context{OrganisationID: 1})

	t.Run("save event drives the save hook", func(t *testing.T) {
		authn := new(MockAuthenticator)
		hooks := new(MockMessagingHooks)
		p := NewProcessor(nil, authn, hooks)

		authn.On("AuthenticateForOrganisation", mock.Anything, int64(1)).Return(tenantCtx, nil)
		hooks.On("OnEntitySave", tenantCtx, int64(100), int64(20), model.EntityTypeEnrolment, int64(42), int64(0)).Return(nil)

		err := p.process(context.Background(), eventMessage(t, model.EntityEvent{
			Op:             model.EntityEventSave,
			EntityID:       100,
			EntityTypeID:   20,
			EntityType:     model.EntityTypeEnrolment,
			SubjectID:      42,
			OrganisationID: 1,
		}))
		require.NoError(t, err)
		hooks.AssertExpectations(t)
	})

	t.Run("delete event drives the delete hook", func(t *testing.T) {
		authn := new(MockAuthenticator)
		hooks := new(MockMessagingHooks)
		p := NewProcessor(nil, authn, hooks)

		authn.On("AuthenticateForOrganisation", mock.Anything, int64(1)).Return(tenantCtx, nil)
		hooks.On("OnEntityDelete", tenantCtx, int64(100), model.EntityTypeSubject, int64(42)).Return(nil)

		err := p.process(context.Background(), eventMessage(t, model.EntityEvent{
			Op:             model.EntityEventDelete,
			EntityID:       100,
			EntityType:     model.EntityTypeSubject,
			ReceiverID:     42,
			OrganisationID: 1,
		}))
		require.NoError(t, err)
		hooks.AssertExpectations(t)
	})

	t.Run("malformed payload is dropped, not retried", func(t *testing.T) {
		authn := new(MockAuthenticator)
		hooks := new(MockMessagingHooks)
		p := NewProcessor(nil, authn, hooks)

		err := p.process(context.Background(), &queue.Message{ID: "1-0", Data: []byte("{not json")})
		assert.NoError(t, err)
		authn.AssertNotCalled(t, "AuthenticateForOrganisation", mock.Anything, mock.Anything)
	})

	t.Run("invalid event is dropped, not retried", func(t *testing.T) {
		authn := new(MockAuthenticator)
		hooks := new(MockMessagingHooks)
		p := NewProcessor(nil, authn, hooks)

		err := p.process(context.Background(), eventMessage(t, model.EntityEvent{
			Op:       "upsert",
			EntityID: 100,
		}))
		assert.NoError(t, err)
		authn.AssertNotCalled(t, "AuthenticateForOrganisation", mock.Anything, mock.Anything)
	})

	t.Run("authentication failure is retried", func(t *testing.T) {
		authn := new(MockAuthenticator)
		hooks := new(MockMessagingHooks)
		p := NewProcessor(nil, authn, hooks)

		authn.On("AuthenticateForOrganisation", mock.Anything, int64(1)).
			Return(nil, errors.New("database unavailable"))

		err := p.process(context.Background(), eventMessage(t, model.EntityEvent{
			Op:             model.EntityEventSave,
			EntityID:       100,
			EntityType:     model.EntityTypeSubject,
			SubjectID:      42,
			OrganisationID: 1,
		}))
		assert.Error(t, err)
		hooks.AssertNotCalled(t, "OnEntitySave", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("hook failure is retried", func(t *testing.T) {
		authn := new(MockAuthenticator)
		hooks := new(MockMessagingHooks)
		p := NewProcessor(nil, authn, hooks)

		authn.On("AuthenticateForOrganisation", mock.Anything, int64(1)).Return(tenantCtx, nil)
		hooks.On("OnEntitySave", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("rule engine unavailable"))

		err := p.process(context.Background(), eventMessage(t, model.EntityEvent{
			Op:             model.EntityEventSave,
			EntityID:       100,
			EntityType:     model.EntityTypeSubject,
			SubjectID:      42,
			OrganisationID: 1,
		}))
		assert.Error(t, err)
	})
}
