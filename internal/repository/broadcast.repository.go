package repository

import (
	"context"
	"errors"

	"github.com/careline/message-dispatch/internal/model"
	"github.com/careline/message-dispatch/pkg/pg"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ManualBroadcastMessageRepository struct {
	*pg.DB
}

func NewManualBroadcastMessageRepository(db *pg.DB) *ManualBroadcastMessageRepository {
	return &ManualBroadcastMessageRepository{
		db,
	}
}

func (r *ManualBroadcastMessageRepository) Create(ctx context.Context, broadcast *model.ManualBroadcastMessage) (*model.ManualBroadcastMessage, error) {
	if err := broadcast.Validate(); err != nil {
		return nil, err
	}

	entity, err := toBroadcastEntity(broadcast)
	if err != nil {
		return nil, err
	}
	if entity.UUID == "" {
		entity.UUID = uuid.NewString()
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toBroadcastModel(entity)
}

func (r *ManualBroadcastMessageRepository) FindByID(ctx context.Context, id int64) (*model.ManualBroadcastMessage, error) {
	var entity ManualBroadcastMessageEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBroadcastNotFound
	}
	if err != nil {
		return nil, err
	}
	return toBroadcastModel(&entity)
}

func (r *ManualBroadcastMessageRepository) Void(ctx context.Context, id int64) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&ManualBroadcastMessageEntity{}).
		Where("id = ?", id).
		Update("is_voided", true).Error
}
