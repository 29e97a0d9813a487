package repository

import (
	"context"
	"errors"

	"github.com/careline/message-dispatch/internal/model"
	"github.com/careline/message-dispatch/pkg/pg"
	"gorm.io/gorm"
)

type SubjectRepository struct {
	*pg.DB
}

func NewSubjectRepository(db *pg.DB) *SubjectRepository {
	return &SubjectRepository{
		db,
	}
}

func (r *SubjectRepository) FindByID(ctx context.Context, id int64) (*model.Subject, error) {
	var entity SubjectEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, "id = ? AND is_voided = ?", id, false).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return toSubjectModel(&entity), nil
}

// FindByPhoneNumber resolves a group member back to a local subject during
// personalized broadcasts.
func (r *SubjectRepository) FindByPhoneNumber(ctx context.Context, organisationID int64, phone string) (*model.Subject, error) {
	var entity SubjectEntity
	err := r.Read(ctx).WithContext(ctx).
		First(&entity, "organisation_id = ? AND phone_number = ? AND is_voided = ?", organisationID, phone, false).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return toSubjectModel(&entity), nil
}

type UserRepository struct {
	*pg.DB
}

func NewUserRepository(db *pg.DB) *UserRepository {
	return &UserRepository{
		db,
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var entity UserEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, "id = ? AND is_voided = ?", id, false).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return toUserModel(&entity), nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var entity UserEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, "username = ? AND is_voided = ?", username, false).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return toUserModel(&entity), nil
}
