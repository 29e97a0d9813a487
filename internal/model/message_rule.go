package model

import (
	"errors"
	"time"
)

// EntityType is the kind of domain entity a message rule listens to.
type EntityType string

const (
	EntityTypeSubject   EntityType = "Subject"
	EntityTypeEnrolment EntityType = "Enrolment"
	EntityTypeEncounter EntityType = "Encounter"
	EntityTypeUser      EntityType = "User"
)

func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeSubject, EntityTypeEnrolment, EntityTypeEncounter, EntityTypeUser:
		return true
	}
	return false
}

// ReceiverType is the kind of target a message is addressed to.
type ReceiverType string

const (
	ReceiverTypeSubject ReceiverType = "Subject"
	ReceiverTypeUser    ReceiverType = "User"
	ReceiverTypeGroup   ReceiverType = "Group"
)

func (t ReceiverType) Valid() bool {
	switch t {
	case ReceiverTypeSubject, ReceiverTypeUser, ReceiverTypeGroup:
		return true
	}
	return false
}

// MessageRule binds an entity type to a scheduled template message. The
// schedule rule and message rule fields hold user-authored expressions that
// are evaluated by the external rule engine.
type MessageRule struct {
	ID                int64        `json:"id"`
	UUID              string       `json:"uuid"`
	Name              string       `json:"name"`
	EntityType        EntityType   `json:"entity_type"`
	EntityTypeID      int64        `json:"entity_type_id"`
	ScheduleRule      string       `json:"schedule_rule"`
	MessageRule       string       `json:"message_rule"`
	ReceiverType      ReceiverType `json:"receiver_type"`
	MessageTemplateID string       `json:"message_template_id"`
	OrganisationID    int64        `json:"organisation_id"`
	IsVoided          bool         `json:"is_voided"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// MessageRuleCreateRequest is the input for creating a rule.
type MessageRuleCreateRequest struct {
	Name              string
	EntityType        EntityType
	EntityTypeID      int64
	ScheduleRule      string
	MessageRule       string
	ReceiverType      ReceiverType
	MessageTemplateID string
}

func (p MessageRuleCreateRequest) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if !p.EntityType.Valid() {
		return errors.New("entity_type is invalid")
	}
	if p.EntityTypeID == 0 {
		return errors.New("entity_type_id is required")
	}
	if !p.ReceiverType.Valid() {
		return errors.New("receiver_type is invalid")
	}
	if p.MessageTemplateID == "" {
		return errors.New("message_template_id is required")
	}
	if p.ScheduleRule == "" {
		return errors.New("schedule_rule is required")
	}
	return nil
}

// MessageRuleFilter controls List queries.
type MessageRuleFilter struct {
	EntityType   *EntityType
	EntityTypeID *int64
	Limit        int
	Offset       int
}
