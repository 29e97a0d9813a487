package model

import (
	"errors"
	"time"
)

// DeliveryStatus is the lifecycle state of a message request.
type DeliveryStatus string

const (
	DeliveryStatusPending DeliveryStatus = "Pending"
	// Sending marks a claimed request. A request stuck in Sending beyond
	// the claim TTL is treated as due again.
	DeliveryStatusSending DeliveryStatus = "Sending"
	DeliveryStatusSent    DeliveryStatus = "Sent"
	DeliveryStatusFailed  DeliveryStatus = "Failed"
)

// MessageRequest is one scheduled message instance. Exactly one of
// MessageRuleID (automated) and ManualBroadcastMessageID (manual) is set.
type MessageRequest struct {
	ID                       int64          `json:"id"`
	UUID                     string         `json:"uuid"`
	MessageRuleID            *int64         `json:"message_rule_id,omitempty"`
	ManualBroadcastMessageID *int64         `json:"manual_broadcast_message_id,omitempty"`
	MessageReceiverID        int64          `json:"message_receiver_id"`
	EntityID                 int64          `json:"entity_id"`
	ScheduledAt              time.Time      `json:"scheduled_at"`
	DeliveryStatus           DeliveryStatus `json:"delivery_status"`
	Attempts                 int            `json:"attempts"`
	LastError                string         `json:"last_error,omitempty"`
	OrganisationID           int64          `json:"organisation_id"`
	IsVoided                 bool           `json:"is_voided"`
	CreatedAt                time.Time      `json:"created_at"`
	UpdatedAt                time.Time      `json:"updated_at"`
}

func (r *MessageRequest) Validate() error {
	if (r.MessageRuleID == nil) == (r.ManualBroadcastMessageID == nil) {
		return errors.New("exactly one of message_rule_id and manual_broadcast_message_id must be set")
	}
	if r.MessageReceiverID == 0 {
		return errors.New("message_receiver_id is required")
	}
	if r.ScheduledAt.IsZero() {
		return errors.New("scheduled_at is required")
	}
	return nil
}

// IsManual reports whether this request originates from a manual broadcast.
func (r *MessageRequest) IsManual() bool {
	return r.ManualBroadcastMessageID != nil
}
