package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus is the derived state of a subscription.
// It is always recomputed from the clock, never stored.
type SubscriptionStatus string

const (
	StatusActive  SubscriptionStatus = "active"
	StatusExpired SubscriptionStatus = "expired"
)

// Subscription is a member's enrollment in a plan for a computed date range.
// EndAt is derived from the plan's period length and StartAt at write time
// and is recomputed only when the plan or start date changes.
//
// LastReminderAt is the only mutable scheduling state; it is written
// exclusively by the reminder sweep.
type Subscription struct {
	ID             uuid.UUID
	MemberID       uuid.UUID
	PlanID         uuid.UUID
	StartAt        time.Time
	EndAt          time.Time
	Cancelled      bool
	LastReminderAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsActiveAt reports whether the subscription is active at the given instant:
// not cancelled and not past its end date.
func (s *Subscription) IsActiveAt(now time.Time) bool {
	return !s.Cancelled && now.Before(s.EndAt)
}

// StatusAt returns the derived Active/Expired status at the given instant.
func (s *Subscription) StatusAt(now time.Time) SubscriptionStatus {
	if s.IsActiveAt(now) {
		return StatusActive
	}
	return StatusExpired
}

// DaysLeftAt returns the whole days remaining until the subscription's end,
// rounding partial days up. A subscription ending 2 days and 1 hour from now
// has 3 days left, not 2. Returns 0 or a negative count once the end has
// passed.
func (s *Subscription) DaysLeftAt(now time.Time) int {
	remaining := s.EndAt.Sub(now)
	return int(math.Ceil(remaining.Hours() / 24))
}

// ReminderSentThisPeriod reports whether a reminder has already been
// dispatched for the current expiry period. A marker predating the period's
// start belongs to a previous period and does not count.
func (s *Subscription) ReminderSentThisPeriod() bool {
	return s.LastReminderAt != nil && !s.LastReminderAt.Before(s.StartAt)
}

// ActiveSubscription pairs an active subscription with its member and plan
// name, as consumed by the reminder sweep.
type ActiveSubscription struct {
	Subscription Subscription
	Member       Member
	PlanName     PlanKind
}

// MemberOverview is the operator-facing view of a member: the member row,
// its subscription, the plan name and the status derived at read time.
type MemberOverview struct {
	Member       Member
	Subscription Subscription
	PlanName     PlanKind
	Status       SubscriptionStatus
}

// PaidMember is the operator-facing view of a member whose paid flag is set,
// alongside their most recent payment record (nil if none survives).
type PaidMember struct {
	Member      Member
	PlanName    PlanKind
	LastPayment *Payment
}
