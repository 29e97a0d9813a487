package repository

import (
	"context"
	"errors"

	"github.com/careline/message-dispatch/internal/model"
	"github.com/careline/message-dispatch/pkg/pg"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageReceiverRepository struct {
	*pg.DB
}

func NewMessageReceiverRepository(db *pg.DB) *MessageReceiverRepository {
	return &MessageReceiverRepository{
		db,
	}
}

func (r *MessageReceiverRepository) Create(ctx context.Context, receiver *model.MessageReceiver) (*model.MessageReceiver, error) {
	entity := toMessageReceiverEntity(receiver)
	if entity.UUID == "" {
		entity.UUID = uuid.NewString()
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toMessageReceiverModel(entity), nil
}

func (r *MessageReceiverRepository) FindByID(ctx context.Context, id int64) (*model.MessageReceiver, error) {
	var entity MessageReceiverEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageReceiverNotFound
	}
	if err != nil {
		return nil, err
	}
	return toMessageReceiverModel(&entity), nil
}

func (r *MessageReceiverRepository) FindByTypeAndReceiverID(ctx context.Context, organisationID int64, receiverType model.ReceiverType, receiverID string) (*model.MessageReceiver, error) {
	var entity MessageReceiverEntity
	err := r.Read(ctx).WithContext(ctx).
		First(&entity, "organisation_id = ? AND receiver_type = ? AND receiver_id = ? AND is_voided = ?",
			organisationID, string(receiverType), receiverID, false).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageReceiverNotFound
	}
	if err != nil {
		return nil, err
	}
	return toMessageReceiverModel(&entity), nil
}

// UpdateExternalID caches the provider identifier once resolved.
func (r *MessageReceiverRepository) UpdateExternalID(ctx context.Context, id int64, externalID string) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&MessageReceiverEntity{}).
		Where("id = ?", id).
		Update("external_id", externalID).Error
}

// Void soft-deletes the receiver rows for a local receiver id. Idempotent.
// Scoped to the receiver type: subject and user id spaces are independent,
// so "42" may name both a Subject and an unrelated User.
func (r *MessageReceiverRepository) Void(ctx context.Context, organisationID int64, receiverType model.ReceiverType, receiverID string) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&MessageReceiverEntity{}).
		Where("organisation_id = ? AND receiver_type = ? AND receiver_id = ?",
			organisationID, string(receiverType), receiverID).
		Update("is_voided", true).Error
}
