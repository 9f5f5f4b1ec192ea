// Package period derives a subscription's end date from its plan kind and
// start date. The calculation is a pure function of its inputs with no clock
// dependency, so two calls with identical arguments always agree.
package period

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/billingkit/internal/domain"
)

// End returns the end of the billing period that starts at start for the
// given plan kind: one day for Daily, one/three/six/twelve calendar months
// for the monthly-based kinds. Calendar-month addition clamps to the last
// valid day of the target month, so Jan 31 + 1 month lands on Feb 28 (or 29).
//
// An unknown kind returns domain.ErrInvalidPlan; it is never defaulted to a
// period length.
func End(kind domain.PlanKind, start time.Time) (time.Time, error) {
	switch kind {
	case domain.PlanDaily:
		return start.AddDate(0, 0, 1), nil
	case domain.PlanMonthly:
		return addMonths(start, 1), nil
	case domain.PlanQuarterly:
		return addMonths(start, 3), nil
	case domain.PlanSemiAnnually:
		return addMonths(start, 6), nil
	case domain.PlanAnnually:
		return addMonths(start, 12), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidPlan, kind)
}

// addMonths advances t by the given number of calendar months with
// end-of-month clamping. time.AddDate normalizes overflowing days into the
// next month (Jan 31 + 1 month = Mar 2/3), which is not what billing periods
// want, so the day is clamped to the target month's length instead.
func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()

	m := int(month) + months
	year += (m - 1) / 12
	month = time.Month((m-1)%12 + 1)

	day = min(day, daysInMonth(year, month))

	h, mi, s := t.Clock()
	return time.Date(year, month, day, h, mi, s, t.Nanosecond(), t.Location())
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1).Day()
}
