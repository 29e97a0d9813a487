package repository

import (
	"context"
	"errors"
	"time"

	"github.com/careline/message-dispatch/internal/model"
	"github.com/careline/message-dispatch/pkg/pg"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRequestRepository struct {
	*pg.DB
}

func NewMessageRequestRepository(db *pg.DB) *MessageRequestRepository {
	return &MessageRequestRepository{
		db,
	}
}

func (r *MessageRequestRepository) Create(ctx context.Context, req *model.MessageRequest) (*model.MessageRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	entity := toMessageRequestEntity(req)
	if entity.UUID == "" {
		entity.UUID = uuid.NewString()
	}
	if entity.DeliveryStatus == "" {
		entity.DeliveryStatus = string(model.DeliveryStatusPending)
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toMessageRequestModel(entity), nil
}

func (r *MessageRequestRepository) FindByID(ctx context.Context, id int64) (*model.MessageRequest, error) {
	var entity MessageRequestEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return toMessageRequestModel(&entity), nil
}

// FindPendingByRuleAndEntity locates the single open automated request for a
// (rule, entity) pair. Used for the idempotent upsert on entity save.
func (r *MessageRequestRepository) FindPendingByRuleAndEntity(ctx context.Context, ruleID, entityID int64) (*model.MessageRequest, error) {
	var entity MessageRequestEntity
	err := r.Read(ctx).WithContext(ctx).
		First(&entity, "message_rule_id = ? AND entity_id = ? AND delivery_status = ? AND is_voided = ?",
			ruleID, entityID, string(model.DeliveryStatusPending), false).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return toMessageRequestModel(&entity), nil
}

// UpdateSchedule moves an open request to a new scheduled time and receiver.
func (r *MessageRequestRepository) UpdateSchedule(ctx context.Context, id int64, receiverID int64, scheduledAt time.Time) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&MessageRequestEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"message_receiver_id": receiverID,
			"scheduled_at":        scheduledAt,
		}).Error
}

// FindDue returns all requests whose scheduled time has passed and that are
// still deliverable: Pending rows, plus Sending rows whose claim went stale
// (claimed before staleBefore). Oldest first for deterministic processing.
func (r *MessageRequestRepository) FindDue(ctx context.Context, organisationID int64, now, staleBefore time.Time) ([]*model.MessageRequest, error) {
	var entities []*MessageRequestEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("organisation_id = ? AND is_voided = ? AND scheduled_at <= ?", organisationID, false, now).
		Where("delivery_status = ? OR (delivery_status = ? AND updated_at < ?)",
			string(model.DeliveryStatusPending), string(model.DeliveryStatusSending), staleBefore).
		Order("scheduled_at ASC, id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toMessageRequestModels(entities), nil
}

// ClaimPending flips a due request to Sending. Compare-and-swap on the
// status column so overlapping dispatch cycles cannot both claim one row.
func (r *MessageRequestRepository) ClaimPending(ctx context.Context, id int64, staleBefore time.Time) (bool, error) {
	res := r.Write(ctx).WithContext(ctx).
		Model(&MessageRequestEntity{}).
		Where("id = ? AND is_voided = ?", id, false).
		Where("delivery_status = ? OR (delivery_status = ? AND updated_at < ?)",
			string(model.DeliveryStatusPending), string(model.DeliveryStatusSending), staleBefore).
		Updates(map[string]interface{}{
			"delivery_status": string(model.DeliveryStatusSending),
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkSent records a completed delivery. Runs as a single statement so it
// commits independently of any batch scan.
func (r *MessageRequestRepository) MarkSent(ctx context.Context, id int64) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&MessageRequestEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"delivery_status": string(model.DeliveryStatusSent),
			"last_error":      "",
		}).Error
}

func (r *MessageRequestRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&MessageRequestEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"delivery_status": string(model.DeliveryStatusFailed),
			"last_error":      reason,
		}).Error
}

// ReturnPending releases a claimed request back to the queue, bumping the
// attempt counter and recording the last failure.
func (r *MessageRequestRepository) ReturnPending(ctx context.Context, id int64, reason string) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&MessageRequestEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"delivery_status": string(model.DeliveryStatusPending),
			"attempts":        gorm.Expr("attempts + 1"),
			"last_error":      reason,
		}).Error
}

// VoidAllByEntityID voids every request referencing a deleted source entity.
func (r *MessageRequestRepository) VoidAllByEntityID(ctx context.Context, organisationID, entityID int64) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&MessageRequestEntity{}).
		Where("organisation_id = ? AND entity_id = ?", organisationID, entityID).
		Update("is_voided", true).Error
}

// FindByStatusAndReceiver lists non-voided requests for one receiver in a
// given delivery state, oldest scheduled first.
func (r *MessageRequestRepository) FindByStatusAndReceiver(ctx context.Context, status model.DeliveryStatus, receiverID int64) ([]*model.MessageRequest, error) {
	var entities []*MessageRequestEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("message_receiver_id = ? AND delivery_status = ? AND is_voided = ?", receiverID, string(status), false).
		Order("scheduled_at ASC, id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toMessageRequestModels(entities), nil
}
