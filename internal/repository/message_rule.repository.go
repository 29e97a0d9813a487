package repository

import (
	"context"
	"errors"

	"github.com/careline/message-dispatch/internal/model"
	"github.com/careline/message-dispatch/pkg/pg"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRuleRepository struct {
	*pg.DB
}

func NewMessageRuleRepository(db *pg.DB) *MessageRuleRepository {
	return &MessageRuleRepository{
		db,
	}
}

func (r *MessageRuleRepository) Create(ctx context.Context, rule *model.MessageRule) (*model.MessageRule, error) {
	entity := toMessageRuleEntity(rule)
	if entity.UUID == "" {
		entity.UUID = uuid.NewString()
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toMessageRuleModel(entity), nil
}

func (r *MessageRuleRepository) FindByID(ctx context.Context, id int64) (*model.MessageRule, error) {
	var entity MessageRuleEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageRuleNotFound
	}
	if err != nil {
		return nil, err
	}
	return toMessageRuleModel(&entity), nil
}

// FindAllByEntityTypeAndEntityTypeID returns all non-voided rules bound to
// the given entity type within the organisation.
func (r *MessageRuleRepository) FindAllByEntityTypeAndEntityTypeID(ctx context.Context, organisationID int64, entityType model.EntityType, entityTypeID int64) ([]*model.MessageRule, error) {
	var entities []*MessageRuleEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("organisation_id = ? AND entity_type = ? AND entity_type_id = ? AND is_voided = ?",
			organisationID, string(entityType), entityTypeID, false).
		Order("id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toMessageRuleModels(entities), nil
}

func (r *MessageRuleRepository) List(ctx context.Context, organisationID int64, f model.MessageRuleFilter) ([]*model.MessageRule, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&MessageRuleEntity{}).
		Where("organisation_id = ? AND is_voided = ?", organisationID, false)

	if f.EntityType != nil {
		q = q.Where("entity_type = ?", string(*f.EntityType))
	}
	if f.EntityTypeID != nil {
		q = q.Where("entity_type_id = ?", *f.EntityTypeID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*MessageRuleEntity
	if err := q.Order("id ASC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toMessageRuleModels(entities), total, nil
}

func (r *MessageRuleRepository) Void(ctx context.Context, id int64) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&MessageRuleEntity{}).
		Where("id = ?", id).
		Update("is_voided", true).Error
}
