package dto

import "github.com/one39/enrollment/internal/domain/plan"

// CreatePaymentRequest is the registration form posted before card entry
type CreatePaymentRequest struct {
	Email      string `json:"email" validate:"omitempty,email"`
	Name       string `json:"name" validate:"max=200"`
	Phone      string `json:"phone" validate:"max=40"`
	Coach      string `json:"coach" validate:"max=200"`
	ChurchName string `json:"churchName" validate:"max=200"`
	Position   string `json:"position" validate:"max=200"`

	// An empty or unknown plan id is reported as an invalid plan.
	PlanID string `json:"planId"`
}

// CreatePaymentResponse carries what the card form needs
type CreatePaymentResponse struct {
	ClientSecret string `json:"clientSecret"`
	CustomerID   string `json:"customerId"`
}

// ConfirmPaymentRequest is posted once the card has been collected
type ConfirmPaymentRequest struct {
	CustomerID      string `json:"customerId" validate:"required"`
	PaymentMethodID string `json:"paymentMethodId" validate:"required"`
	PlanID          string `json:"planId"`
	Coach           string `json:"coach" validate:"max=200"`
	ChurchName      string `json:"churchName" validate:"max=200"`
	Position        string `json:"position" validate:"max=200"`
	Name            string `json:"name" validate:"max=200"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"phone" validate:"max=40"`
}

// PlanDTO is one entry of the price list
type PlanDTO struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
	Shape  string  `json:"shape"`
}

// ToPlanDTO converts a plan definition for display
func ToPlanDTO(d plan.Definition) PlanDTO {
	return PlanDTO{
		ID:     d.ID,
		Label:  d.Label,
		Amount: float64(d.UnitAmount) / 100,
		Shape:  string(d.Shape),
	}
}
