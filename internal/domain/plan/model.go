package plan

import "errors"

// BillingShape is how a plan is paid for
type BillingShape string

// Billing shapes
const (
	ShapeOneTime     BillingShape = "one_time"
	ShapeSemiMonthly BillingShape = "semi_monthly"
	ShapeMonthly     BillingShape = "monthly"
)

// ErrPlanNotFound is returned when a plan id has no definition
var ErrPlanNotFound = errors.New("plan not found")

// Definition is the billing view of one entry in the static price list
type Definition struct {
	ID         string       `json:"id" yaml:"id"`
	Label      string       `json:"label" yaml:"label"`
	UnitAmount int64        `json:"unitAmount" yaml:"unitAmount"` // minor currency units
	Shape      BillingShape `json:"shape" yaml:"shape"`
}

// IsOneTime reports whether the plan is charged once with no recurrence
func (d Definition) IsOneTime() bool {
	return d.Shape == ShapeOneTime
}
