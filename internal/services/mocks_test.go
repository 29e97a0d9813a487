package services

import (
	"context"
	"sync"
	"time"

	gateway "github.com/careline/message-dispatch/internal/gateways"
	"github.com/careline/message-dispatch/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockReceiverRepo struct {
	mock.Mock
}

func (m *MockReceiverRepo) Create(ctx context.Context, receiver *model.MessageReceiver) (*model.MessageReceiver, error) {
	args := m.Called(ctx, receiver)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MessageReceiver), args.Error(1)
}

func (m *MockReceiverRepo) FindByID(ctx context.Context, id int64) (*model.MessageReceiver, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MessageReceiver), args.Error(1)
}

func (m *MockReceiverRepo) FindByTypeAndReceiverID(ctx context.Context, organisationID int64, receiverType model.ReceiverType, receiverID string) (*model.MessageReceiver, error) {
	args := m.Called(ctx, organisationID, receiverType, receiverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MessageReceiver), args.Error(1)
}

func (m *MockReceiverRepo) UpdateExternalID(ctx context.Context, id int64, externalID string) error {
	args := m.Called(ctx, id, externalID)
	return args.Error(0)
}

func (m *MockReceiverRepo) Void(ctx context.Context, organisationID int64, receiverType model.ReceiverType, receiverID string) error {
	args := m.Called(ctx, organisationID, receiverType, receiverID)
	return args.Error(0)
}

type MockRequestRepo struct {
	mock.Mock
}

func (m *MockRequestRepo) Create(ctx context.Context, req *model.MessageRequest) (*model.MessageRequest, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MessageRequest), args.Error(1)
}

func (m *MockRequestRepo) FindByID(ctx context.Context, id int64) (*model.MessageRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MessageRequest), args.Error(1)
}

func (m *MockRequestRepo) FindPendingByRuleAndEntity(ctx context.Context, ruleID, entityID int64) (*model.MessageRequest, error) {
	args := m.Called(ctx, ruleID, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MessageRequest), args.Error(1)
}

func (m *MockRequestRepo) UpdateSchedule(ctx context.Context, id int64, receiverID int64, scheduledAt time.Time) error {
	args := m.Called(ctx, id, receiverID, scheduledAt)
	return args.Error(0)
}

func (m *MockRequestRepo) FindDue(ctx context.Context, organisationID int64, now, staleBefore time.Time) ([]*model.MessageRequest, error) {
	args := m.Called(ctx, organisationID, now, staleBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MessageRequest), args.Error(1)
}

func (m *MockRequestRepo) ClaimPending(ctx context.Context, id int64, staleBefore time.Time) (bool, error) {
	args := m.Called(ctx, id, staleBefore)
	return args.Bool(0), args.Error(1)
}

func (m *MockRequestRepo) MarkSent(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRequestRepo) MarkFailed(ctx context.Context, id int64, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockRequestRepo) ReturnPending(ctx context.Context, id int64, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockRequestRepo) VoidAllByEntityID(ctx context.Context, organisationID, entityID int64) error {
	args := m.Called(ctx, organisationID, entityID)
	return args.Error(0)
}

func (m *MockRequestRepo) FindByStatusAndReceiver(ctx context.Context, status model.DeliveryStatus, receiverID int64) ([]*model.MessageRequest, error) {
	args := m.Called(ctx, status, receiverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MessageRequest), args.Error(1)
}

type MockRuleRepo struct {
	mock.Mock
}

func (m *MockRuleRepo) FindByID(ctx context.Context, id int64) (*model.MessageRule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MessageRule), args.Error(1)
}

func (m *MockRuleRepo) FindAllByEntityTypeAndEntityTypeID(ctx context.Context, organisationID int64, entityType model.EntityType, entityTypeID int64) ([]*model.MessageRule, error) {
	args := m.Called(ctx, organisationID, entityType, entityTypeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MessageRule), args.Error(1)
}

type MockBroadcastRepo struct {
	mock.Mock
}

func (m *MockBroadcastRepo) Create(ctx context.Context, broadcast *model.ManualBroadcastMessage) (*model.ManualBroadcastMessage, error) {
	args := m.Called(ctx, broadcast)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ManualBroadcastMessage), args.Error(1)
}

func (m *MockBroadcastRepo) FindByID(ctx context.Context, id int64) (*model.ManualBroadcastMessage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ManualBroadcastMessage), args.Error(1)
}

type MockSubjectRepo struct {
	mock.Mock
}

func (m *MockSubjectRepo) FindByID(ctx context.Context, id int64) (*model.Subject, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subject), args.Error(1)
}

func (m *MockSubjectRepo) FindByPhoneNumber(ctx context.Context, organisationID int64, phone string) (*model.Subject, error) {
	args := m.Called(ctx, organisationID, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subject), args.Error(1)
}

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) SendToContact(ctx context.Context, templateID, externalContactID string, parameters []string) (*gateway.SendAck, error) {
	args := m.Called(ctx, templateID, externalContactID, parameters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.SendAck), args.Error(1)
}

func (m *MockProvider) SendToGroup(ctx context.Context, externalGroupID, templateID string, parameters []string) (*gateway.SendAck, error) {
	args := m.Called(ctx, externalGroupID, templateID, parameters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.SendAck), args.Error(1)
}

func (m *MockProvider) GetContactGroupContacts(ctx context.Context, externalGroupID string, page, pageSize int) ([]gateway.GroupContact, error) {
	args := m.Called(ctx, externalGroupID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.GroupContact), args.Error(1)
}

func (m *MockProvider) GetContactByPhone(ctx context.Context, phone string) (*gateway.Contact, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Contact), args.Error(1)
}

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) ExecuteScheduleRule(ctx context.Context, entityType string, entityID int64, rule string) (time.Time, error) {
	args := m.Called(ctx, entityType, entityID, rule)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockExecutor) ExecuteMessageRule(ctx context.Context, entityType string, entityID int64, rule string) ([]string, error) {
	args := m.Called(ctx, entityType, entityID, rule)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockClaimGuard struct {
	mock.Mock
}

func (m *MockClaimGuard) TryClaim(ctx context.Context, requestID int64) (bool, error) {
	args := m.Called(ctx, requestID)
	return args.Bool(0), args.Error(1)
}

func (m *MockClaimGuard) Release(ctx context.Context, requestID int64) {
	m.Called(ctx, requestID)
}

// recordingSink captures error notifications for assertions.
type recordingSink struct {
	mu     sync.Mutex
	errors []error
}

func (s *recordingSink) Notify(ctx context.Context, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, err)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errors)
}
