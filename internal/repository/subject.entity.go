package repository

import (
	"time"

	"github.com/careline/message-dispatch/internal/model"
)

type SubjectEntity struct {
	ID             int64     `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	UUID           string    `db:"uuid"            gorm:"column:uuid;not null;uniqueIndex"`
	FirstName      string    `db:"first_name"      gorm:"column:first_name;not null"`
	LastName       string    `db:"last_name"       gorm:"column:last_name"`
	PhoneNumber    string    `db:"phone_number"    gorm:"column:phone_number;index"`
	OrganisationID int64     `db:"organisation_id" gorm:"column:organisation_id;not null;index"`
	IsVoided       bool      `db:"is_voided"       gorm:"column:is_voided;not null;default:false"`
	CreatedAt      time.Time `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `db:"updated_at"      gorm:"column:updated_at;autoUpdateTime"`
}

func (SubjectEntity) TableName() string {
	return "subject"
}

func toSubjectModel(e *SubjectEntity) *model.Subject {
	if e == nil {
		return nil
	}
	return &model.Subject{
		ID:             e.ID,
		UUID:           e.UUID,
		FirstName:      e.FirstName,
		LastName:       e.LastName,
		PhoneNumber:    e.PhoneNumber,
		OrganisationID: e.OrganisationID,
		IsVoided:       e.IsVoided,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

type UserEntity struct {
	ID             int64     `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	UUID           string    `db:"uuid"            gorm:"column:uuid;not null;uniqueIndex"`
	Username       string    `db:"username"        gorm:"column:username;not null;uniqueIndex"`
	FirstName      string    `db:"first_name"      gorm:"column:first_name"`
	PhoneNumber    string    `db:"phone_number"    gorm:"column:phone_number"`
	OrganisationID int64     `db:"organisation_id" gorm:"column:organisation_id;not null;index"`
	IsAdmin        bool      `db:"is_admin"        gorm:"column:is_admin;not null;default:false"`
	IsVoided       bool      `db:"is_voided"       gorm:"column:is_voided;not null;default:false"`
	CreatedAt      time.Time `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `db:"updated_at"      gorm:"column:updated_at;autoUpdateTime"`
}

func (UserEntity) TableName() string {
	return "users"
}

func toUserModel(e *UserEntity) *model.User {
	if e == nil {
		return nil
	}
	return &model.User{
		ID:             e.ID,
		UUID:           e.UUID,
		Username:       e.Username,
		FirstName:      e.FirstName,
		PhoneNumber:    e.PhoneNumber,
		OrganisationID: e.OrganisationID,
		IsAdmin:        e.IsAdmin,
		IsVoided:       e.IsVoided,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}
