package repository

import (
	"encoding/json"
	"time"

	"github.com/careline/message-dispatch/internal/model"
)

type ManualBroadcastMessageEntity struct {
	ID                int64     `db:"id"                  gorm:"primaryKey;autoIncrement;column:id"`
	UUID              string    `db:"uuid"                gorm:"column:uuid;not null;uniqueIndex"`
	MessageTemplateID string    `db:"message_template_id" gorm:"column:message_template_id;not null"`
	Parameters        string    `db:"parameters"          gorm:"column:parameters"` // JSON-encoded string array
	OrganisationID    int64     `db:"organisation_id"     gorm:"column:organisation_id;not null;index"`
	IsVoided          bool      `db:"is_voided"           gorm:"column:is_voided;not null;default:false"`
	CreatedAt         time.Time `db:"created_at"          gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `db:"updated_at"          gorm:"column:updated_at;autoUpdateTime"`
}

func (ManualBroadcastMessageEntity) TableName() string {
	return "manual_broadcast_message"
}

func toBroadcastEntity(m *model.ManualBroadcastMessage) (*ManualBroadcastMessageEntity, error) {
	if m == nil {
		return nil, nil
	}
	params, err := json.Marshal(m.Parameters)
	if err != nil {
		return nil, err
	}
	return &ManualBroadcastMessageEntity{
		ID:                m.ID,
		UUID:              m.UUID,
		MessageTemplateID: m.MessageTemplateID,
		Parameters:        string(params),
		OrganisationID:    m.OrganisationID,
		IsVoided:          m.IsVoided,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}, nil
}

func toBroadcastModel(e *ManualBroadcastMessageEntity) (*model.ManualBroadcastMessage, error) {
	if e == nil {
		return nil, nil
	}
	var params []string
	if e.Parameters != "" {
		if err := json.Unmarshal([]byte(e.Parameters), &params); err != nil {
			return nil, err
		}
	}
	return &model.ManualBroadcastMessage{
		ID:                e.ID,
		UUID:              e.UUID,
		MessageTemplateID: e.MessageTemplateID,
		Parameters:        params,
		OrganisationID:    e.OrganisationID,
		IsVoided:          e.IsVoided,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}, nil
}
