package repository

import (
	"context"
	"errors"

	"github.com/careline/message-dispatch/internal/model"
	"github.com/careline/message-dispatch/pkg/pg"
	"gorm.io/gorm"
)

type OrganisationConfigRepository struct {
	*pg.DB
}

func NewOrganisationConfigRepository(db *pg.DB) *OrganisationConfigRepository {
	return &OrganisationConfigRepository{
		db,
	}
}

// FindAllWithMessagingEnabled lists the tenants the dispatch job must visit.
func (r *OrganisationConfigRepository) FindAllWithMessagingEnabled(ctx context.Context) ([]*model.OrganisationConfig, error) {
	var entities []*OrganisationConfigEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("messaging_enabled = ? AND is_voided = ?", true, false).
		Order("organisation_id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toOrganisationConfigModels(entities), nil
}

func (r *OrganisationConfigRepository) FindByOrganisationID(ctx context.Context, organisationID int64) (*model.OrganisationConfig, error) {
	var entity OrganisationConfigEntity
	err := r.Read(ctx).WithContext(ctx).
		First(&entity, "organisation_id = ? AND is_voided = ?", organisationID, false).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganisationConfigNotFound
	}
	if err != nil {
		return nil, err
	}
	return toOrganisationConfigModel(&entity), nil
}
