package repository

import (
	"time"

	"github.com/careline/message-dispatch/internal/model"
)

type MessageRuleEntity struct {
	ID                int64     `db:"id"                  gorm:"primaryKey;autoIncrement;column:id"`
	UUID              string    `db:"uuid"                gorm:"column:uuid;not null;uniqueIndex"`
	Name              string    `db:"name"                gorm:"column:name;not null"`
	EntityType        string    `db:"entity_type"         gorm:"column:entity_type;not null;index:idx_message_rule_entity"`
	EntityTypeID      int64     `db:"entity_type_id"      gorm:"column:entity_type_id;not null;index:idx_message_rule_entity"`
	ScheduleRule      string    `db:"schedule_rule"       gorm:"column:schedule_rule"`
	MessageRule       string    `db:"message_rule"        gorm:"column:message_rule"`
	ReceiverType      string    `db:"receiver_type"       gorm:"column:receiver_type;not null"`
	MessageTemplateID string    `db:"message_template_id" gorm:"column:message_template_id;not null"`
	OrganisationID    int64     `db:"organisation_id"     gorm:"column:organisation_id;not null;index"`
	IsVoided          bool      `db:"is_voided"           gorm:"column:is_voided;not null;default:false"`
	CreatedAt         time.Time `db:"created_at"          gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `db:"updated_at"          gorm:"column:updated_at;autoUpdateTime"`
}

func (MessageRuleEntity) TableName() string {
	return "message_rule"
}

func toMessageRuleEntity(m *model.MessageRule) *MessageRuleEntity {
	if m == nil {
		return nil
	}
	return &MessageRuleEntity{
		ID:                m.ID,
		UUID:              m.UUID,
		Name:              m.Name,
		EntityType:        string(m.EntityType),
		EntityTypeID:      m.EntityTypeID,
		ScheduleRule:      m.ScheduleRule,
		MessageRule:       m.MessageRule,
		ReceiverType:      string(m.ReceiverType),
		MessageTemplateID: m.MessageTemplateID,
		OrganisationID:    m.OrganisationID,
		IsVoided:          m.IsVoided,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toMessageRuleModel(e *MessageRuleEntity) *model.MessageRule {
	if e == nil {
		return nil
	}
	return &model.MessageRule{
		ID:                e.ID,
		UUID:              e.UUID,
		Name:              e.Name,
		EntityType:        model.EntityType(e.EntityType),
		EntityTypeID:      e.EntityTypeID,
		ScheduleRule:      e.ScheduleRule,
		MessageRule:       e.MessageRule,
		ReceiverType:      model.ReceiverType(e.ReceiverType),
		MessageTemplateID: e.MessageTemplateID,
		OrganisationID:    e.OrganisationID,
		IsVoided:          e.IsVoided,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

func toMessageRuleModels(entities []*MessageRuleEntity) []*model.MessageRule {
	if entities == nil {
		return nil
	}
	models := make([]*model.MessageRule, len(entities))
	for i, e := range entities {
		models[i] = toMessageRuleModel(e)
	}
	return models
}
