package billing

import (
	"errors"
	"fmt"
	"time"
)

// Day tags written into semi-monthly subscription metadata
const (
	DayTagFirst     = "1st"
	DayTagFifteenth = "15th"
)

// Metadata keys attached to every charge and subscription
const (
	MetaCoach      = "coach"
	MetaChurch     = "churchName"
	MetaPosition   = "position"
	MetaPlanID     = "planId"
	MetaBillingDay = "billing_day"
)

// ErrEnrollmentClosed is returned when a recurring plan can no longer be
// billed before the program's cancellation date.
var ErrEnrollmentClosed = errors.New("enrollment closed")

// Anchor is one billing cycle anchor of a semi-monthly plan
type Anchor struct {
	At     time.Time
	DayTag string
}

// Unix returns the anchor in epoch seconds
func (a Anchor) Unix() int64 {
	return a.At.Unix()
}

// Schedule holds the dates computed for a single enrollment request
type Schedule struct {
	CancelAt int64

	// Anchors is empty for one-time and monthly plans. The two semi-monthly
	// anchors are not guaranteed to be in ascending order.
	Anchors []Anchor
}

// Options select between the historical confirm-payment behaviours
type Options struct {
	ClampCeiling          bool
	CancelCeiling         time.Time
	ChargeUpfrontForSplit bool
	Currency              string

	// SuccessURL is the return URL used when confirming a charge.
	SuccessURL string
}

// ProviderError is a failed payment provider call. Message is the text the
// provider returned and is safe to show to the caller.
type ProviderError struct {
	Op      string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
