package model

import (
	"errors"
	"time"
)

// NonStaticNameParameter is the sentinel an administrator places in a
// broadcast parameter slot to have it substituted with each recipient's
// first name.
const NonStaticNameParameter = "@name"

// ManualBroadcastMessage is an administrator-initiated broadcast. Immutable
// after creation except for void.
type ManualBroadcastMessage struct {
	ID                int64     `json:"id"`
	UUID              string    `json:"uuid"`
	MessageTemplateID string    `json:"message_template_id"`
	Parameters        []string  `json:"parameters"`
	OrganisationID    int64     `json:"organisation_id"`
	IsVoided          bool      `json:"is_voided"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (b *ManualBroadcastMessage) Validate() error {
	if b.MessageTemplateID == "" {
		return errors.New("message_template_id is required")
	}
	return nil
}

// NonStaticParameterIndices returns the positions holding the name sentinel.
func NonStaticParameterIndices(parameters []string) []int {
	var indices []int
	for i, p := range parameters {
		if p == NonStaticNameParameter {
			indices = append(indices, i)
		}
	}
	return indices
}

// SubstituteParameters returns a copy of parameters with the given indices
// replaced by value. The input slice is never mutated, each recipient gets
// its own parameter set.
func SubstituteParameters(parameters []string, indices []int, value string) []string {
	out := make([]string, len(parameters))
	copy(out, parameters)
	for _, i := range indices {
		if i >= 0 && i < len(out) {
			out[i] = value
		}
	}
	return out
}
