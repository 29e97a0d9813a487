package repository

import (
	"time"

	"github.com/careline/message-dispatch/internal/model"
)

type OrganisationConfigEntity struct {
	ID               int64     `db:"id"                gorm:"primaryKey;autoIncrement;column:id"`
	OrganisationID   int64     `db:"organisation_id"   gorm:"column:organisation_id;not null;uniqueIndex"`
	OrganisationName string    `db:"organisation_name" gorm:"column:organisation_name;not null"`
	MessagingEnabled bool      `db:"messaging_enabled" gorm:"column:messaging_enabled;not null;default:false"`
	SystemUserName   string    `db:"system_user_name"  gorm:"column:system_user_name"`
	ProviderAPIKey   string    `db:"provider_api_key"  gorm:"column:provider_api_key"`
	ProviderPhoneID  string    `db:"provider_phone_id" gorm:"column:provider_phone_id"`
	IsVoided         bool      `db:"is_voided"         gorm:"column:is_voided;not null;default:false"`
	CreatedAt        time.Time `db:"created_at"        gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `db:"updated_at"        gorm:"column:updated_at;autoUpdateTime"`
}

func (OrganisationConfigEntity) TableName() string {
	return "organisation_config"
}

func toOrganisationConfigModel(e *OrganisationConfigEntity) *model.OrganisationConfig {
	if e == nil {
		return nil
	}
	return &model.OrganisationConfig{
		ID:               e.ID,
		OrganisationID:   e.OrganisationID,
		OrganisationName: e.OrganisationName,
		MessagingEnabled: e.MessagingEnabled,
		SystemUserName:   e.SystemUserName,
		ProviderAPIKey:   e.ProviderAPIKey,
		ProviderPhoneID:  e.ProviderPhoneID,
		IsVoided:         e.IsVoided,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func toOrganisationConfigModels(entities []*OrganisationConfigEntity) []*model.OrganisationConfig {
	if entities == nil {
		return nil
	}
	models := make([]*model.OrganisationConfig, len(entities))
	for i, e := range entities {
		models[i] = toOrganisationConfigModel(e)
	}
	return models
}
