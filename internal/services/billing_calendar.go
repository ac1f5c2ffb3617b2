package services

import (
	"time"

	"github.com/one39/enrollment/internal/domain/billing"
	"github.com/one39/enrollment/internal/domain/plan"
)

const (
	// programMonths is how long subscriptions run before auto-cancelling
	programMonths = 10
	// billingHour is the UTC hour of every computed billing instant
	billingHour = 12
	// midMonthDay is the second semi-monthly billing day
	midMonthDay = 15
)

// BillingCalendar computes cancellation and anchor dates. It is pure apart
// from the configured ceiling.
type BillingCalendar struct {
	clampCeiling bool
	ceiling      time.Time
}

// NewBillingCalendar creates a calendar. When clampCeiling is false the
// ceiling is ignored.
func NewBillingCalendar(clampCeiling bool, ceiling time.Time) *BillingCalendar {
	return &BillingCalendar{
		clampCeiling: clampCeiling,
		ceiling:      ceiling.UTC(),
	}
}

// CancelAt returns the subscription cancellation instant in epoch seconds:
// the 1st of the month ten months after now at noon UTC, no later than the
// ceiling.
func (c *BillingCalendar) CancelAt(now time.Time) int64 {
	now = now.UTC()
	cancelAt := noonUTC(now.Year(), now.Month()+programMonths, 1)

	if c.clampCeiling && cancelAt.After(c.ceiling) {
		cancelAt = c.ceiling
	}

	return cancelAt.Unix()
}

// SemiMonthlyAnchors returns the two next billing anchors, both strictly
// after now. Before the 15th they are the 15th of this month and the 1st
// of next month; from the 15th on they are the 1st and the 15th of next
// month.
func (c *BillingCalendar) SemiMonthlyAnchors(now time.Time) [2]billing.Anchor {
	now = now.UTC()
	y, m := now.Year(), now.Month()

	if now.Day() < midMonthDay {
		return [2]billing.Anchor{
			{At: noonUTC(y, m, midMonthDay), DayTag: billing.DayTagFifteenth},
			{At: noonUTC(y, m+1, 1), DayTag: billing.DayTagFirst},
		}
	}

	return [2]billing.Anchor{
		{At: noonUTC(y, m+1, 1), DayTag: billing.DayTagFirst},
		{At: noonUTC(y, m+1, midMonthDay), DayTag: billing.DayTagFifteenth},
	}
}

// Schedule computes every date a plan of the given shape needs. The
// cancellation date is computed independently of the anchors.
func (c *BillingCalendar) Schedule(shape plan.BillingShape, now time.Time) billing.Schedule {
	s := billing.Schedule{CancelAt: c.CancelAt(now)}
	if shape == plan.ShapeSemiMonthly {
		anchors := c.SemiMonthlyAnchors(now)
		s.Anchors = anchors[:]
	}
	return s
}

// EnrollmentClosed reports whether a plan of the given shape can no longer
// be sold at now. One-time plans never close. Recurring plans close once the
// cancellation is not after now, and semi-monthly plans also close when an
// anchor falls after the cancellation, since that subscription would start
// already cancelled.
func EnrollmentClosed(shape plan.BillingShape, s billing.Schedule, now time.Time) bool {
	if shape == plan.ShapeOneTime {
		return false
	}
	if s.CancelAt <= now.Unix() {
		return true
	}
	for _, a := range s.Anchors {
		if a.Unix() > s.CancelAt {
			return true
		}
	}
	return false
}

// noonUTC normalises month overflow, so month 13 is January of next year.
func noonUTC(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, billingHour, 0, 0, 0, time.UTC)
}
