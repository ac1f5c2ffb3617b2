package enrollment

import "context"

// Service defines the enrollment billing flow
type Service interface {
	// Start creates a customer and a setup intent for the card form
	Start(ctx context.Context, req StartRequest) (*StartResult, error)

	// Confirm attaches the payment method, creates charges and
	// subscriptions for the plan and syncs the CRM
	Confirm(ctx context.Context, req ConfirmRequest) (*Outcome, error)
}
