package model

import "time"

// Subject is a person tracked by the platform and a possible message
// receiver. Only the fields the messaging slice needs are modeled.
type Subject struct {
	ID             int64     `json:"id"`
	UUID           string    `json:"uuid"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	PhoneNumber    string    `json:"phone_number"`
	OrganisationID int64     `json:"organisation_id"`
	IsVoided       bool      `json:"is_voided"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// User is a platform account. The dispatch job authenticates as per-tenant
// system users; users can also be message receivers.
type User struct {
	ID             int64     `json:"id"`
	UUID           string    `json:"uuid"`
	Username       string    `json:"username"`
	FirstName      string    `json:"first_name"`
	PhoneNumber    string    `json:"phone_number"`
	OrganisationID int64     `json:"organisation_id"`
	IsAdmin        bool      `json:"is_admin"`
	IsVoided       bool      `json:"is_voided"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
