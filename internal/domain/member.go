package domain

import (
	"time"

	"github.com/google/uuid"
)

// Member is a person enrolled in the membership service.
// Email is unique and serves as the member's payment identity.
//
// Paid is a projection of the payment log: set to true when a charge
// succeeds and left untouched on failure or period rollover.
type Member struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Phone     string // optional
	Paid      bool
	CreatedAt time.Time
}
