package model

import "time"

// OrganisationConfig is the per-tenant messaging configuration, including
// the system user the dispatch job acts as and the provider credentials for
// outbound calls.
type OrganisationConfig struct {
	ID               int64     `json:"id"`
	OrganisationID   int64     `json:"organisation_id"`
	OrganisationName string    `json:"organisation_name"`
	MessagingEnabled bool      `json:"messaging_enabled"`
	SystemUserName   string    `json:"system_user_name"`
	ProviderAPIKey   string    `json:"-"`
	ProviderPhoneID  string    `json:"provider_phone_id"`
	IsVoided         bool      `json:"is_voided"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
