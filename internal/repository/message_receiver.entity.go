package repository

import (
	"time"

	"github.com/careline/message-dispatch/internal/model"
)

type MessageReceiverEntity struct {
	ID             int64     `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	UUID           string    `db:"uuid"            gorm:"column:uuid;not null;uniqueIndex"`
	ReceiverType   string    `db:"receiver_type"   gorm:"column:receiver_type;not null;index:idx_message_receiver_target"`
	ReceiverID     string    `db:"receiver_id"     gorm:"column:receiver_id;not null;index:idx_message_receiver_target"`
	ExternalID     string    `db:"external_id"     gorm:"column:external_id"`
	OrganisationID int64     `db:"organisation_id" gorm:"column:organisation_id;not null;index"`
	IsVoided       bool      `db:"is_voided"       gorm:"column:is_voided;not null;default:false"`
	CreatedAt      time.Time `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `db:"updated_at"      gorm:"column:updated_at;autoUpdateTime"`
}

func (MessageReceiverEntity) TableName() string {
	return "message_receiver"
}

func toMessageReceiverEntity(m *model.MessageReceiver) *MessageReceiverEntity {
	if m == nil {
		return nil
	}
	return &MessageReceiverEntity{
		ID:             m.ID,
		UUID:           m.UUID,
		ReceiverType:   string(m.ReceiverType),
		ReceiverID:     m.ReceiverID,
		ExternalID:     m.ExternalID,
		OrganisationID: m.OrganisationID,
		IsVoided:       m.IsVoided,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toMessageReceiverModel(e *MessageReceiverEntity) *model.MessageReceiver {
	if e == nil {
		return nil
	}
	return &model.MessageReceiver{
		ID:             e.ID,
		UUID:           e.UUID,
		ReceiverType:   model.ReceiverType(e.ReceiverType),
		ReceiverID:     e.ReceiverID,
		ExternalID:     e.ExternalID,
		OrganisationID: e.OrganisationID,
		IsVoided:       e.IsVoided,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}
