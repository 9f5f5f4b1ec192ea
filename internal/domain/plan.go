package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlanKind identifies a billing plan by its canonical name.
// The names double as the persisted plan identifiers shown to operators.
type PlanKind string

const (
	PlanDaily        PlanKind = "Daily"
	PlanMonthly      PlanKind = "Monthly"
	PlanQuarterly    PlanKind = "Quarterly"
	PlanSemiAnnually PlanKind = "Semi-Annually"
	PlanAnnually     PlanKind = "Annually"
)

// DefaultPlanKinds is the canonical plan set seeded at startup,
// ordered by period length.
var DefaultPlanKinds = []PlanKind{
	PlanDaily,
	PlanMonthly,
	PlanQuarterly,
	PlanSemiAnnually,
	PlanAnnually,
}

// Valid reports whether the kind is one of the canonical plan kinds.
func (k PlanKind) Valid() bool {
	switch k {
	case PlanDaily, PlanMonthly, PlanQuarterly, PlanSemiAnnually, PlanAnnually:
		return true
	}
	return false
}

// Order returns the kind's position in the canonical ordering.
// Unknown kinds sort last.
func (k PlanKind) Order() int {
	for i, known := range DefaultPlanKinds {
		if k == known {
			return i
		}
	}
	return len(DefaultPlanKinds)
}

// Plan is a named billing tier with a fixed period length.
// A plan is immutable once referenced by a subscription except for the
// Active flag; deactivation hides it from new signups without affecting
// existing subscriptions.
type Plan struct {
	ID        uuid.UUID
	Name      PlanKind
	Active    bool
	CreatedAt time.Time
}
