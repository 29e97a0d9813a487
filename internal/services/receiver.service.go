package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/careline/message-dispatch/internal/auth"
	gateway "github.com/careline/message-dispatch/internal/gateways"
	"github.com/careline/message-dispatch/internal/model"
	"github.com/careline/message-dispatch/internal/repository"
)

// ErrPhoneNumberNotAvailable means the receiver has no usable phone number,
// either locally or at the provider. Retryable until MaxSendAttempts.
var ErrPhoneNumberNotAvailable = errors.New("phone number not available")

type MessageReceiverRepository interface {
	Create(ctx context.Context, receiver *model.MessageReceiver) (*model.MessageReceiver, error)
	FindByID(ctx context.Context, id int64) (*model.MessageReceiver, error)
	FindByTypeAndReceiverID(ctx context.Context, organisationID int64, receiverType model.ReceiverType, receiverID string) (*model.MessageReceiver, error)
	UpdateExternalID(ctx context.Context, id int64, externalID string) error
	Void(ctx context.Context, organisationID int64, receiverType model.ReceiverType, receiverID string) error
}

type SubjectReader interface {
	FindByID(ctx context.Context, id int64) (*model.Subject, error)
}

type UserReader interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// ContactResolver resolves phone numbers to provider contact ids.
type ContactResolver interface {
	GetContactByPhone(ctx context.Context, phone string) (*gateway.Contact, error)
}

// ReceiverService maintains the receiver registry: one row per deliverable
// target, with the provider's identifier resolved lazily and cached.
type ReceiverService struct {
	receiverRepo MessageReceiverRepository
	subjectRepo  SubjectReader
	userRepo     UserReader
	contacts     ContactResolver
}

func NewReceiverService(receiverRepo MessageReceiverRepository, subjectRepo SubjectReader, userRepo UserReader, contacts ContactResolver) *ReceiverService {
	return &ReceiverService{
		receiverRepo: receiverRepo,
		subjectRepo:  subjectRepo,
		userRepo:     userRepo,
		contacts:     contacts,
	}
}

// SaveReceiverIfRequired finds the receiver row for (type, id) or creates it
// with an empty external id. Find-or-create, never duplicates.
func (s *ReceiverService) SaveReceiverIfRequired(ctx context.Context, receiverType model.ReceiverType, receiverID string) (*model.MessageReceiver, error) {
	uc, err := auth.UserContextFrom(ctx)
	if err != nil {
		return nil, err
	}

	receiver, err := s.receiverRepo.FindByTypeAndReceiverID(ctx, uc.OrganisationID, receiverType, receiverID)
	if err == nil {
		return receiver, nil
	}
	if !errors.Is(err, repository.ErrMessageReceiverNotFound) {
		return nil, err
	}

	return s.receiverRepo.Create(ctx, &model.MessageReceiver{
		ReceiverType:   receiverType,
		ReceiverID:     receiverID,
		OrganisationID: uc.OrganisationID,
	})
}

func (s *ReceiverService) FindByID(ctx context.Context, id int64) (*model.MessageReceiver, error) {
	return s.receiverRepo.FindByID(ctx, id)
}

func (s *ReceiverService) FindByReceiverIDAndType(ctx context.Context, receiverID string, receiverType model.ReceiverType) (*model.MessageReceiver, error) {
	uc, err := auth.UserContextFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.receiverRepo.FindByTypeAndReceiverID(ctx, uc.OrganisationID, receiverType, receiverID)
}

// EnsureExternalIDPresent resolves and caches the provider identifier for a
// receiver. No-op when already cached. Group receivers carry the provider
// group id as their local id; individual receivers are looked up by phone.
func (s *ReceiverService) EnsureExternalIDPresent(ctx context.Context, receiver *model.MessageReceiver) (*model.MessageReceiver, error) {
	if receiver.ExternalID != "" {
		return receiver, nil
	}

	externalID, err := s.resolveExternalID(ctx, receiver)
	if err != nil {
		return nil, err
	}

	if err := s.receiverRepo.UpdateExternalID(ctx, receiver.ID, externalID); err != nil {
		return nil, err
	}
	receiver.ExternalID = externalID
	return receiver, nil
}

func (s *ReceiverService) resolveExternalID(ctx context.Context, receiver *model.MessageReceiver) (string, error) {
	if receiver.ReceiverType == model.ReceiverTypeGroup {
		return receiver.ReceiverID, nil
	}

	phone, err := s.phoneNumber(ctx, receiver)
	if err != nil {
		return "", err
	}
	if phone == "" {
		return "", ErrPhoneNumberNotAvailable
	}

	contact, err := s.contacts.GetContactByPhone(ctx, phone)
	if errors.Is(err, gateway.ErrContactNotFound) {
		return "", fmt.Errorf("%w: provider has no contact for %s", ErrPhoneNumberNotAvailable, phone)
	}
	if err != nil {
		return "", err
	}
	return contact.ID, nil
}

func (s *ReceiverService) phoneNumber(ctx context.Context, receiver *model.MessageReceiver) (string, error) {
	id, err := strconv.ParseInt(receiver.ReceiverID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("receiver id %q is not a local id: %w", receiver.ReceiverID, err)
	}

	switch receiver.ReceiverType {
	case model.ReceiverTypeSubject:
		subject, err := s.subjectRepo.FindByID(ctx, id)
		if err != nil {
			return "", err
		}
		return subject.PhoneNumber, nil
	case model.ReceiverTypeUser:
		user, err := s.userRepo.FindByID(ctx, id)
		if err != nil {
			return "", err
		}
		return user.PhoneNumber, nil
	default:
		return "", fmt.Errorf("unsupported receiver type %q", receiver.ReceiverType)
	}
}

// VoidMessageReceiver soft-deletes the receiver rows for a local receiver
// (type, id) pair. Voiding an unknown or already-voided receiver is a no-op.
func (s *ReceiverService) VoidMessageReceiver(ctx context.Context, receiverType model.ReceiverType, receiverID string) error {
	uc, err := auth.UserContextFrom(ctx)
	if err != nil {
		return err
	}
	return s.receiverRepo.Void(ctx, uc.OrganisationID, receiverType, receiverID)
}
