package model

import "time"

// MessageReceiver is a deliverable target. ReceiverID is the local identity
// of the target (subject or user primary key, or the provider group id for
// Group receivers). ExternalID is the messaging provider's identifier,
// resolved lazily and cached once known.
type MessageReceiver struct {
	ID             int64        `json:"id"`
	UUID           string       `json:"uuid"`
	ReceiverType   ReceiverType `json:"receiver_type"`
	ReceiverID     string       `json:"receiver_id"`
	ExternalID     string       `json:"external_id"`
	OrganisationID int64        `json:"organisation_id"`
	IsVoided       bool         `json:"is_voided"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
