package repository

import (
	"time"

	"github.com/careline/message-dispatch/internal/model"
)

type MessageRequestEntity struct {
	ID                       int64     `db:"id"                          gorm:"primaryKey;autoIncrement;column:id"`
	UUID                     string    `db:"uuid"                        gorm:"column:uuid;not null;uniqueIndex"`
	MessageRuleID            *int64    `db:"message_rule_id"             gorm:"column:message_rule_id;index:idx_message_request_rule_entity"`
	ManualBroadcastMessageID *int64    `db:"manual_broadcast_message_id" gorm:"column:manual_broadcast_message_id;index"`
	MessageReceiverID        int64     `db:"message_receiver_id"         gorm:"column:message_receiver_id;not null;index"`
	EntityID                 int64     `db:"entity_id"                   gorm:"column:entity_id;index:idx_message_request_rule_entity"`
	ScheduledAt              time.Time `db:"scheduled_at"                gorm:"column:scheduled_at;not null;index:idx_message_request_due"`
	DeliveryStatus           string    `db:"delivery_status"             gorm:"column:delivery_status;not null;default:Pending;index:idx_message_request_due"`
	Attempts                 int       `db:"attempts"                    gorm:"column:attempts;not null;default:0"`
	LastError                string    `db:"last_error"                  gorm:"column:last_error"`
	OrganisationID           int64     `db:"organisation_id"             gorm:"column:organisation_id;not null;index"`
	IsVoided                 bool      `db:"is_voided"                   gorm:"column:is_voided;not null;default:false"`
	CreatedAt                time.Time `db:"created_at"                  gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time `db:"updated_at"                  gorm:"column:updated_at;autoUpdateTime"`
}

func (MessageRequestEntity) TableName() string {
	return "message_request"
}

func toMessageRequestEntity(m *model.MessageRequest) *MessageRequestEntity {
	if m == nil {
		return nil
	}
	return &MessageRequestEntity{
		ID:                       m.ID,
		UUID:                     m.UUID,
		MessageRuleID:            m.MessageRuleID,
		ManualBroadcastMessageID: m.ManualBroadcastMessageID,
		MessageReceiverID:        m.MessageReceiverID,
		EntityID:                 m.EntityID,
		ScheduledAt:              m.ScheduledAt,
		DeliveryStatus:           string(m.DeliveryStatus),
		Attempts:                 m.Attempts,
		LastError:                m.LastError,
		OrganisationID:           m.OrganisationID,
		IsVoided:                 m.IsVoided,
		CreatedAt:                m.CreatedAt,
		UpdatedAt:                m.UpdatedAt,
	}
}

func toMessageRequestModel(e *MessageRequestEntity) *model.MessageRequest {
	if e == nil {
		return nil
	}
	return &model.MessageRequest{
		ID:                       e.ID,
		UUID:                     e.UUID,
		MessageRuleID:            e.MessageRuleID,
		ManualBroadcastMessageID: e.ManualBroadcastMessageID,
		MessageReceiverID:        e.MessageReceiverID,
		EntityID:                 e.EntityID,
		ScheduledAt:              e.ScheduledAt,
		DeliveryStatus:           model.DeliveryStatus(e.DeliveryStatus),
		Attempts:                 e.Attempts,
		LastError:                e.LastError,
		OrganisationID:           e.OrganisationID,
		IsVoided:                 e.IsVoided,
		CreatedAt:                e.CreatedAt,
		UpdatedAt:                e.UpdatedAt,
	}
}

func toMessageRequestModels(entities []*MessageRequestEntity) []*model.MessageRequest {
	if entities == nil {
		return nil
	}
	models := make([]*model.MessageRequest, len(entities))
	for i, e := range entities {
		models[i] = toMessageRequestModel(e)
	}
	return models
}
