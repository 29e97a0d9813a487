package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/careline/message-dispatch/internal/auth"
	"github.com/careline/message-dispatch/internal/errortrack"
	gateway "github.com/careline/message-dispatch/internal/gateways"
	"github.com/careline/message-dispatch/internal/model"
	"github.com/careline/message-dispatch/pkg/logger"
	"github.com/careline/message-dispatch/pkg/prom"
)

// ErrPartialDelivery marks a personalized group send where some members
// failed. The request stays pending so the next drain retries it.
var ErrPartialDelivery = errors.New("partial delivery")

type MessageRuleRepository interface {
	FindByID(ctx context.Context, id int64) (*model.MessageRule, error)
	FindAllByEntityTypeAndEntityTypeID(ctx context.Context, organisationID int64, entityType model.EntityType, entityTypeID int64) ([]*model.MessageRule, error)
}

type BroadcastRepository interface {
	Create(ctx context.Context, broadcast *model.ManualBroadcastMessage) (*model.ManualBroadcastMessage, error)
	FindByID(ctx context.Context, id int64) (*model.ManualBroadcastMessage, error)
}

type SubjectByPhoneReader interface {
	FindByPhoneNumber(ctx context.Context, organisationID int64, phone string) (*model.Subject, error)
}

// RuleExecutor evaluates the user-authored schedule and content expressions.
type RuleExecutor interface {
	ExecuteScheduleRule(ctx context.Context, entityType string, entityID int64, rule string) (time.Time, error)
	ExecuteMessageRule(ctx context.Context, entityType string, entityID int64, rule string) ([]string, error)
}

// ProviderGateway is the outbound provider surface the sender needs.
type ProviderGateway interface {
	SendToContact(ctx context.Context, templateID, externalContactID string, parameters []string) (*gateway.SendAck, error)
	SendToGroup(ctx context.Context, externalGroupID, templateID string, parameters []string) (*gateway.SendAck, error)
	GetContactGroupContacts(ctx context.Context, externalGroupID string, page, pageSize int) ([]gateway.GroupContact, error)
}

// ClaimGuard is a cross-process in-flight lock taken before the provider
// call. Implementations must fail open: a broken lock backend degrades to
// the database claim alone, it never blocks dispatch.
type ClaimGuard interface {
	TryClaim(ctx context.Context, requestID int64) (bool, error)
	Release(ctx context.Context, requestID int64)
}

type MessagingConfig struct {
	ContactPageSize int
	MaxSendAttempts int
}

// MessagingService ties the pipeline together: it reacts to entity
// lifecycle events, schedules broadcasts and drains due requests through
// the provider.
type MessagingService struct {
	ruleRepo      MessageRuleRepository
	broadcastRepo BroadcastRepository
	subjectRepo   SubjectByPhoneReader
	receivers     *ReceiverService
	requests      *RequestService
	executor      RuleExecutor
	provider      ProviderGateway
	claimGuard    ClaimGuard
	errorSink     errortrack.Sink
	pageSize      int
	maxAttempts   int
}

func NewMessagingService(
	ruleRepo MessageRuleRepository,
	broadcastRepo BroadcastRepository,
	subjectRepo SubjectByPhoneReader,
	receivers *ReceiverService,
	requests *RequestService,
	executor RuleExecutor,
	provider ProviderGateway,
	claimGuard ClaimGuard,
	errorSink errortrack.Sink,
	cfg MessagingConfig,
) *MessagingService {
	if cfg.ContactPageSize <= 0 {
		cfg.ContactPageSize = 500
	}
	if cfg.MaxSendAttempts <= 0 {
		cfg.MaxSendAttempts = 10
	}
	if errorSink == nil {
		errorSink = errortrack.Noop{}
	}
	return &MessagingService{
		ruleRepo:      ruleRepo,
		broadcastRepo: broadcastRepo,
		subjectRepo:   subjectRepo,
		receivers:     receivers,
		requests:      requests,
		executor:      executor,
		provider:      provider,
		claimGuard:    claimGuard,
		errorSink:     errorSink,
		pageSize:      cfg.ContactPageSize,
		maxAttempts:   cfg.MaxSendAttempts,
	}
}

// OnEntitySave reacts to a saved entity: every matching rule gets its
// receiver resolved, its schedule rule evaluated and an automated request
// upserted. Rule failures are isolated so one bad rule cannot block the
// rest.
func (s *MessagingService) OnEntitySave(ctx context.Context, entityID, entityTypeID int64, entityType model.EntityType, subjectID, userID int64) error {
	uc, err := auth.UserContextFrom(ctx)
	if err != nil {
		return err
	}

	rules, err := s.ruleRepo.FindAllByEntityTypeAndEntityTypeID(ctx, uc.OrganisationID, entityType, entityTypeID)
	if err != nil {
		return fmt.Errorf("load rules for %s/%d: %w", entityType, entityTypeID, err)
	}

	for _, rule := range rules {
		if err := s.scheduleRuleMessage(ctx, rule, entityID, entityType, subjectID, userID); err != nil {
			logger.Error("Failed to schedule rule message", "error", err, "rule_id", rule.ID, "entity_id", entityID)
			s.errorSink.Notify(ctx, err)
		}
	}
	return nil
}

func (s *MessagingService) scheduleRuleMessage(ctx context.Context, rule *model.MessageRule, entityID int64, entityType model.EntityType, subjectID, userID int64) error {
	receiverID, err := ruleReceiverID(rule.ReceiverType, subjectID, userID)
	if err != nil {
		return fmt.Errorf("rule %d: %w", rule.ID, err)
	}

	receiver, err := s.receivers.SaveReceiverIfRequired(ctx, rule.ReceiverType, receiverID)
	if err != nil {
		return fmt.Errorf("rule %d: save receiver: %w", rule.ID, err)
	}

	scheduledAt, err := s.executor.ExecuteScheduleRule(ctx, string(entityType), entityID, rule.ScheduleRule)
	if err != nil {
		return fmt.Errorf("rule %d: schedule rule: %w", rule.ID, err)
	}

	if _, err := s.requests.CreateOrUpdateAutomatedRequest(ctx, rule, receiver, entityID, scheduledAt); err != nil {
		return fmt.Errorf("rule %d: upsert request: %w", rule.ID, err)
	}
	return nil
}

func ruleReceiverID(receiverType model.ReceiverType, subjectID, userID int64) (string, error) {
	switch receiverType {
	case model.ReceiverTypeSubject:
		if subjectID == 0 {
			return "", errors.New("event carries no subject id")
		}
		return strconv.FormatInt(subjectID, 10), nil
	case model.ReceiverTypeUser:
		if userID == 0 {
			return "", errors.New("event carries no user id")
		}
		return strconv.FormatInt(userID, 10), nil
	default:
		return "", fmt.Errorf("automated rules cannot target receiver type %q", receiverType)
	}
}

// OnEntityDelete voids every open request for the entity. Subject deletions
// also void the subject's receiver rows.
func (s *MessagingService) OnEntityDelete(ctx context.Context, entityID int64, entityType model.EntityType, receiverID int64) error {
	if err := s.requests.VoidRequestsForEntity(ctx, entityID); err != nil {
		return fmt.Errorf("void requests for entity %d: %w", entityID, err)
	}

	if entityType == model.EntityTypeSubject && receiverID != 0 {
		if err := s.receivers.VoidMessageReceiver(ctx, model.ReceiverTypeSubject, strconv.FormatInt(receiverID, 10)); err != nil {
			return fmt.Errorf("void receiver %d: %w", receiverID, err)
		}
	}
	return nil
}

// ScheduleBroadcastMessage persists one broadcast row and fans out one
// request per target group.
func (s *MessagingService) ScheduleBroadcastMessage(ctx context.Context, groupIDs []string, templateID string, parameters []string, scheduledAt time.Time) (*model.ManualBroadcastMessage, error) {
	uc, err := auth.UserContextFrom(ctx)
	if err != nil {
		return nil, err
	}
	if len(groupIDs) == 0 {
		return nil, errors.New("at least one contact group is required")
	}

	broadcast, err := s.broadcastRepo.Create(ctx, &model.ManualBroadcastMessage{
		MessageTemplateID: templateID,
		Parameters:        parameters,
		OrganisationID:    uc.OrganisationID,
	})
	if err != nil {
		return nil, err
	}

	for _, groupID := range groupIDs {
		receiver, err := s.receivers.SaveReceiverIfRequired(ctx, model.ReceiverTypeGroup, groupID)
		if err != nil {
			return nil, fmt.Errorf("broadcast %d: save group receiver %s: %w", broadcast.ID, groupID, err)
		}
		if _, err := s.requests.CreateManualRequest(ctx, broadcast, receiver, scheduledAt); err != nil {
			return nil, fmt.Errorf("broadcast %d: create request for group %s: %w", broadcast.ID, groupID, err)
		}
	}

	logger.Info("Broadcast scheduled", "broadcast_id", broadcast.ID, "groups", len(groupIDs), "scheduled_at", scheduledAt)
	return broadcast, nil
}

// SendMessages drains the tenant's due requests sequentially. Each request
// is claimed (redis guard, then database compare-and-swap) before the
// provider call; failures are isolated per request.
func (s *MessagingService) SendMessages(ctx context.Context) error {
	uc, err := auth.UserContextFrom(ctx)
	if err != nil {
		return err
	}

	due, err := s.requests.FindDueRequests(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("find due requests: %w", err)
	}
	prom.SetDueRequests(uc.OrganisationName, float64(len(due)))
	if len(due) == 0 {
		return nil
	}

	logger.Info("Draining due message requests", "organisation_id", uc.OrganisationID, "count", len(due))

	for _, request := range due {
		s.sendOne(ctx, request)
	}
	return nil
}

func (s *MessagingService) sendOne(ctx context.Context, request *model.MessageRequest) {
	if s.claimGuard != nil {
		claimed, err := s.claimGuard.TryClaim(ctx, request.ID)
		if err != nil {
			// Fail open: the database claim below still prevents
			// duplicate sends within one process fleet.
			logger.Warn("Claim guard unavailable, proceeding on database claim", "error", err, "request_id", request.ID)
		} else if !claimed {
			logger.Debug("Request already in flight elsewhere", "request_id", request.ID)
			return
		} else {
			defer s.claimGuard.Release(ctx, request.ID)
		}
	}

	claimed, err := s.requests.Claim(ctx, request)
	if err != nil {
		logger.Error("Failed to claim request", "error", err, "request_id", request.ID)
		return
	}
	if !claimed {
		return
	}

	s.applySendOutcome(ctx, request, s.SendMessage(ctx, request))
}

func (s *MessagingService) applySendOutcome(ctx context.Context, request *model.MessageRequest, sendErr error) {
	switch {
	case sendErr == nil:
		if err := s.requests.MarkComplete(ctx, request); err != nil {
			logger.Error("Failed to mark request sent", "error", err, "request_id", request.ID)
		}

	case errors.Is(sendErr, ErrPhoneNumberNotAvailable):
		prom.IncMessagesFailed("phone_unavailable")
		if request.Attempts+1 >= s.maxAttempts {
			logger.Warn("Giving up on request, phone number never became available",
				"request_id", request.ID, "attempts", request.Attempts+1)
			if err := s.requests.MarkFailed(ctx, request, sendErr.Error()); err != nil {
				logger.Error("Failed to mark request failed", "error", err, "request_id", request.ID)
			}
			return
		}
		logger.Warn("Phone number not available, will retry", "request_id", request.ID, "attempts", request.Attempts+1)
		if err := s.requests.ReleasePending(ctx, request, sendErr.Error()); err != nil {
			logger.Error("Failed to release request", "error", err, "request_id", request.ID)
		}

	case errors.Is(sendErr, ErrPartialDelivery):
		// Already reported by the personalized send path, which knows the
		// member counts.
		prom.IncMessagesFailed("partial_delivery")
		if err := s.requests.ReleasePending(ctx, request, sendErr.Error()); err != nil {
			logger.Error("Failed to release request", "error", err, "request_id", request.ID)
		}

	default:
		prom.IncMessagesFailed("send_error")
		logger.Error("Failed to send message", "error", sendErr, "request_id", request.ID)
		s.errorSink.Notify(ctx, sendErr)
		if err := s.requests.ReleasePending(ctx, request, sendErr.Error()); err != nil {
			logger.Error("Failed to release request", "error", err, "request_id", request.ID)
		}
	}
}

// SendMessage delivers a single claimed request. Routing depends on the
// receiver type and, for groups, on whether the parameters carry the @name
// sentinel.
func (s *MessagingService) SendMessage(ctx context.Context, request *model.MessageRequest) error {
	receiver, err := s.receivers.FindByID(ctx, request.MessageReceiverID)
	if err != nil {
		return fmt.Errorf("load receiver %d: %w", request.MessageReceiverID, err)
	}

	templateID, parameters, err := s.messageContent(ctx, request)
	if err != nil {
		return err
	}

	receiver, err = s.receivers.EnsureExternalIDPresent(ctx, receiver)
	if err != nil {
		return err
	}

	if receiver.ReceiverType != model.ReceiverTypeGroup {
		if _, err := s.provider.SendToContact(ctx, templateID, receiver.ExternalID, parameters); err != nil {
			return fmt.Errorf("send to contact: %w", err)
		}
		prom.IncMessagesSent("contact")
		return nil
	}

	indices := model.NonStaticParameterIndices(parameters)
	if len(indices) == 0 {
		if _, err := s.provider.SendToGroup(ctx, receiver.ExternalID, templateID, parameters); err != nil {
			return fmt.Errorf("send to group: %w", err)
		}
		prom.IncMessagesSent("group")
		return nil
	}

	return s.sendPersonalized(ctx, receiver.ExternalID, templateID, parameters, indices)
}

func (s *MessagingService) messageContent(ctx context.Context, request *model.MessageRequest) (string, []string, error) {
	if request.IsManual() {
		broadcast, err := s.broadcastRepo.FindByID(ctx, *request.ManualBroadcastMessageID)
		if err != nil {
			return "", nil, fmt.Errorf("load broadcast %d: %w", *request.ManualBroadcastMessageID, err)
		}
		return broadcast.MessageTemplateID, broadcast.Parameters, nil
	}

	rule, err := s.ruleRepo.FindByID(ctx, *request.MessageRuleID)
	if err != nil {
		return "", nil, fmt.Errorf("load rule %d: %w", *request.MessageRuleID, err)
	}

	parameters, err := s.executor.ExecuteMessageRule(ctx, string(rule.EntityType), request.EntityID, rule.MessageRule)
	if err != nil {
		return "", nil, fmt.Errorf("message rule %d: %w", rule.ID, err)
	}
	return rule.MessageTemplateID, parameters, nil
}

// sendPersonalized pages through the group membership and sends each member
// an individual message with the @name slots filled in. Member failures are
// isolated; any failure leaves the request pending for the next drain.
func (s *MessagingService) sendPersonalized(ctx context.Context, externalGroupID, templateID string, parameters []string, indices []int) error {
	uc, err := auth.UserContextFrom(ctx)
	if err != nil {
		return err
	}

	var sent, failed int
	for page := 1; ; page++ {
		members, err := s.provider.GetContactGroupContacts(ctx, externalGroupID, page, s.pageSize)
		if err != nil {
			return fmt.Errorf("list group %s page %d: %w", externalGroupID, page, err)
		}

		for _, member := range members {
			if err := s.sendToMember(ctx, uc.OrganisationID, member, templateID, parameters, indices); err != nil {
				failed++
				logger.Warn("Failed to send personalized message to group member",
					"error", err, "group", externalGroupID, "contact_id", member.ID)
				continue
			}
			sent++
		}

		// A short page is the last page.
		if len(members) < s.pageSize {
			break
		}
	}

	if failed > 0 {
		err := fmt.Errorf("%w: group %s, %d sent, %d failed", ErrPartialDelivery, externalGroupID, sent, failed)
		s.errorSink.Notify(ctx, err)
		return err
	}

	prom.IncMessagesSent("group_personalized")
	logger.Info("Personalized group send complete", "group", externalGroupID, "sent", sent)
	return nil
}

// sendToMember resolves the member's local identity by phone and sends one
// individualized message. A phone with no matching subject fails this
// member's send; sendPersonalized isolates it from the rest of the group.
func (s *MessagingService) sendToMember(ctx context.Context, organisationID int64, member gateway.GroupContact, templateID string, parameters []string, indices []int) error {
	subject, err := s.subjectRepo.FindByPhoneNumber(ctx, organisationID, member.Phone)
	if err != nil {
		return fmt.Errorf("resolve subject by phone %s: %w", member.Phone, err)
	}

	// Each member gets its own copy; the broadcast's parameter set is
	// never mutated.
	memberParameters := model.SubstituteParameters(parameters, indices, subject.FirstName)

	if _, err := s.provider.SendToContact(ctx, templateID, member.ID, memberParameters); err != nil {
		return err
	}
	return nil
}
