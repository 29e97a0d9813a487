package model

import "errors"

// EntityEventOp distinguishes save and delete lifecycle events.
type EntityEventOp string

const (
	EntityEventSave   EntityEventOp = "save"
	EntityEventDelete EntityEventOp = "delete"
)

// EntityEvent is the payload published on the entity lifecycle stream by
// the persistence layer whenever an entity is saved or deleted.
type EntityEvent struct {
	Op             EntityEventOp `json:"op"`
	EntityID       int64         `json:"entity_id"`
	EntityTypeID   int64         `json:"entity_type_id,omitempty"`
	EntityType     EntityType    `json:"entity_type"`
	SubjectID      int64         `json:"subject_id,omitempty"`
	UserID         int64         `json:"user_id,omitempty"`
	ReceiverID     int64         `json:"receiver_id,omitempty"`
	OrganisationID int64         `json:"organisation_id"`
}

func (e *EntityEvent) Validate() error {
	if e.Op != EntityEventSave && e.Op != EntityEventDelete {
		return errors.New("op must be save or delete")
	}
	if e.EntityID == 0 {
		return errors.New("entity_id is required")
	}
	if !e.EntityType.Valid() {
		return errors.New("entity_type is invalid")
	}
	if e.OrganisationID == 0 {
		return errors.New("organisation_id is required")
	}
	return nil
}
