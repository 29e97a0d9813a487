package services

import (
	"context"
	"errors"
	"time"

	"github.com/careline/message-dispatch/internal/auth"
	"github.com/careline/message-dispatch/internal/model"
	"github.com/careline/message-dispatch/internal/repository"
)

type MessageRequestRepository interface {
	Create(ctx context.Context, req *model.MessageRequest) (*model.MessageRequest, error)
	FindByID(ctx context.Context, id int64) (*model.MessageRequest, error)
	FindPendingByRuleAndEntity(ctx context.Context, ruleID, entityID int64) (*model.MessageRequest, error)
	UpdateSchedule(ctx context.Context, id int64, receiverID int64, scheduledAt time.Time) error
	FindDue(ctx context.Context, organisationID int64, now, staleBefore time.Time) ([]*model.MessageRequest, error)
	ClaimPending(ctx context.Context, id int64, staleBefore time.Time) (bool, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	ReturnPending(ctx context.Context, id int64, reason string) error
	VoidAllByEntityID(ctx context.Context, organisationID, entityID int64) error
	FindByStatusAndReceiver(ctx context.Context, status model.DeliveryStatus, receiverID int64) ([]*model.MessageRequest, error)
}

type receiverLookup interface {
	FindByTypeAndReceiverID(ctx context.Context, organisationID int64, receiverType model.ReceiverType, receiverID string) (*model.MessageReceiver, error)
}

// RequestService owns the message request queue: idempotent scheduling on
// entity saves, fan-out rows for manual broadcasts, the due scan and the
// terminal-state transitions.
type RequestService struct {
	requestRepo  MessageRequestRepository
	receiverRepo receiverLookup
	claimTTL     time.Duration
}

func NewRequestService(requestRepo MessageRequestRepository, receiverRepo receiverLookup, claimTTL time.Duration) *RequestService {
	if claimTTL <= 0 {
		claimTTL = 5 * time.Minute
	}
	return &RequestService{
		requestRepo:  requestRepo,
		receiverRepo: receiverRepo,
		claimTTL:     claimTTL,
	}
}

// CreateOrUpdateAutomatedRequest schedules a rule-driven message. Idempotent
// per (rule, entity): a re-save of the entity moves the open request to the
// freshly computed time and receiver instead of inserting a duplicate.
func (s *RequestService) CreateOrUpdateAutomatedRequest(ctx context.Context, rule *model.MessageRule, receiver *model.MessageReceiver, entityID int64, scheduledAt time.Time) (*model.MessageRequest, error) {
	existing, err := s.requestRepo.FindPendingByRuleAndEntity(ctx, rule.ID, entityID)
	if err == nil {
		if err := s.requestRepo.UpdateSchedule(ctx, existing.ID, receiver.ID, scheduledAt); err != nil {
			return nil, err
		}
		existing.MessageReceiverID = receiver.ID
		existing.ScheduledAt = scheduledAt
		return existing, nil
	}
	if !errors.Is(err, repository.ErrMessageRequestNotFound) {
		return nil, err
	}

	ruleID := rule.ID
	return s.requestRepo.Create(ctx, &model.MessageRequest{
		MessageRuleID:     &ruleID,
		MessageReceiverID: receiver.ID,
		EntityID:          entityID,
		ScheduledAt:       scheduledAt,
		DeliveryStatus:    model.DeliveryStatusPending,
		OrganisationID:    rule.OrganisationID,
	})
}

// CreateManualRequest schedules one broadcast delivery. Always inserts.
func (s *RequestService) CreateManualRequest(ctx context.Context, broadcast *model.ManualBroadcastMessage, receiver *model.MessageReceiver, scheduledAt time.Time) (*model.MessageRequest, error) {
	broadcastID := broadcast.ID
	return s.requestRepo.Create(ctx, &model.MessageRequest{
		ManualBroadcastMessageID: &broadcastID,
		MessageReceiverID:        receiver.ID,
		EntityID:                 broadcast.ID,
		ScheduledAt:              scheduledAt,
		DeliveryStatus:           model.DeliveryStatusPending,
		OrganisationID:           broadcast.OrganisationID,
	})
}

// FindDueRequests returns the current tenant's deliverable backlog: Pending
// rows past their scheduled time, plus Sending rows whose claim outlived the
// visibility timeout. Oldest first.
func (s *RequestService) FindDueRequests(ctx context.Context, now time.Time) ([]*model.MessageRequest, error) {
	uc, err := auth.UserContextFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.requestRepo.FindDue(ctx, uc.OrganisationID, now, now.Add(-s.claimTTL))
}

// Claim flips a due request to Sending. Returns false when another drain got
// there first.
func (s *RequestService) Claim(ctx context.Context, request *model.MessageRequest) (bool, error) {
	return s.requestRepo.ClaimPending(ctx, request.ID, time.Now().Add(-s.claimTTL))
}

// MarkComplete commits the Sent transition in its own statement, independent
// of any surrounding batch work.
func (s *RequestService) MarkComplete(ctx context.Context, request *model.MessageRequest) error {
	return s.requestRepo.MarkSent(ctx, request.ID)
}

func (s *RequestService) MarkFailed(ctx context.Context, request *model.MessageRequest, reason string) error {
	return s.requestRepo.MarkFailed(ctx, request.ID, reason)
}

// ReleasePending puts a claimed request back in the queue with the attempt
// counter bumped, so the next drain retries it.
func (s *RequestService) ReleasePending(ctx context.Context, request *model.MessageRequest, reason string) error {
	return s.requestRepo.ReturnPending(ctx, request.ID, reason)
}

func (s *RequestService) VoidRequestsForEntity(ctx context.Context, entityID int64) error {
	uc, err := auth.UserContextFrom(ctx)
	if err != nil {
		return err
	}
	return s.requestRepo.VoidAllByEntityID(ctx, uc.OrganisationID, entityID)
}

// FetchPendingScheduledMessages lists a receiver's requests in the given
// delivery state. Unknown receivers surface ErrMessageReceiverNotFound.
func (s *RequestService) FetchPendingScheduledMessages(ctx context.Context, receiverID string, receiverType model.ReceiverType, status model.DeliveryStatus) ([]*model.MessageRequest, error) {
	uc, err := auth.UserContextFrom(ctx)
	if err != nil {
		return nil, err
	}

	receiver, err := s.receiverRepo.FindByTypeAndReceiverID(ctx, uc.OrganisationID, receiverType, receiverID)
	if err != nil {
		return nil, err
	}
	return s.requestRepo.FindByStatusAndReceiver(ctx, status, receiver.ID)
}
