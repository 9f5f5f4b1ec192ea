package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the terminal outcome of a single charge attempt.
// There is no retry state: a retried payment is a brand-new attempt
// producing a new record.
type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment is an immutable log entry of one charge attempt's outcome.
// Records are append-only and never mutated after creation.
type Payment struct {
	ID        uuid.UUID
	MemberID  uuid.UUID
	Amount    Money
	Status    PaymentStatus
	GatewayID string // provider's charge identifier, empty when the call never completed
	CreatedAt time.Time
}

// Money represents a monetary amount in the smallest currency unit.
// For example, $49.99 USD is Amount: 4999, Currency: "USD".
type Money struct {
	Amount   int64
	Currency string
}

// Display formats the amount as a decimal string, e.g. "49.99".
func (m Money) Display() string {
	return fmt.Sprintf("%d.%02d", m.Amount/100, m.Amount%100)
}
