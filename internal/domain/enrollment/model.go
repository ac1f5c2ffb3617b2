package enrollment

import (
	"github.com/one39/enrollment/internal/domain/billing"
	"github.com/one39/enrollment/internal/domain/plan"
)

// Registrant holds the fields collected by the registration form
type Registrant struct {
	Name       string
	Email      string
	Phone      string
	Coach      string
	ChurchName string
	Position   string
}

// StartRequest creates the customer and the payment setup intent
type StartRequest struct {
	Registrant
	PlanID string
}

// StartResult is handed back to the browser to collect card details
type StartResult struct {
	ClientSecret string
	CustomerID   string
}

// ConfirmRequest runs billing once a payment method has been collected
type ConfirmRequest struct {
	Registrant
	CustomerID      string
	PaymentMethodID string
	PlanID          string
}

// Outcome describes what was created for a confirmed enrollment
type Outcome struct {
	Plan             plan.Definition
	Schedule         billing.Schedule
	PaymentIntentIDs []string
	SubscriptionIDs  []string
}

// RepresentativeSubscriptionID is the id recorded in the CRM: the first
// subscription created, or empty for one-time plans.
func (o *Outcome) RepresentativeSubscriptionID() string {
	if len(o.SubscriptionIDs) == 0 {
		return ""
	}
	return o.SubscriptionIDs[0]
}
