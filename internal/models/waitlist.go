package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultWaitlistLanguage is stored when a signup carries no language.
const DefaultWaitlistLanguage = "no"

// WaitlistEntry is a pre-launch signup. Email is unique across entries.
type WaitlistEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Language  string    `json:"language" db:"language"`
	Source    *string   `json:"source" db:"source"`
	Campaign  *string   `json:"campaign" db:"campaign"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
