package billing

import "context"

// CustomerParams describes a customer to create at the payment provider
type CustomerParams struct {
	Email    string
	Name     string
	Phone    string
	Metadata map[string]string
}

// PriceParams describes a price to create under an existing product
type PriceParams struct {
	ProductID  string
	UnitAmount int64
	Currency   string

	// Monthly adds a one month recurrence; false means a one-time price.
	Monthly bool
}

// ChargeParams describes an immediately confirmed one-time charge
type ChargeParams struct {
	CustomerID      string
	PaymentMethodID string
	Amount          int64
	Currency        string
	Description     string
	ReturnURL       string
	Metadata        map[string]string
}

// SubscriptionParams describes a monthly subscription. A zero
// BillingCycleAnchor leaves the anchor at the creation time.
type SubscriptionParams struct {
	CustomerID         string
	PaymentMethodID    string
	PriceID            string
	BillingCycleAnchor int64
	CancelAt           int64
	Metadata           map[string]string
}

// Gateway is the payment provider as seen by the billing core. Each method
// is a single provider call; implementations must not retry.
type Gateway interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)
	CreateSetupIntent(ctx context.Context, customerID string, metadata map[string]string) (string, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	FindProductByName(ctx context.Context, name string) (productID string, found bool, err error)
	CreateProduct(ctx context.Context, name string) (string, error)
	CreatePrice(ctx context.Context, params PriceParams) (string, error)
	ChargeNow(ctx context.Context, params ChargeParams) (string, error)
	CreateSubscription(ctx context.Context, params SubscriptionParams) (string, error)
	PortalLinker
}

// PortalLinker creates customer self-service portal sessions
type PortalLinker interface {
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}
