package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/one39/enrollment/internal/domain/billing"
	"github.com/one39/enrollment/internal/pkg/metrics"
)

const (
	stripeProvider = "stripe"

	// productSearchLimit is the size of the single result page scanned for
	// an exact product name
	productSearchLimit = 100
)

// StripeGateway implements billing.Gateway with the Stripe API. It never
// retries; each method maps to exactly one API request.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway creates a gateway authenticated with secretKey
func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

// NewStripeGatewayWithBackends is used to point the gateway at a stub server
func NewStripeGatewayWithBackends(secretKey string, backends *stripe.Backends) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeGateway{api: api}
}

// CreateCustomer creates a customer and returns its id
func (g *StripeGateway) CreateCustomer(ctx context.Context, p billing.CustomerParams) (string, error) {
	params := &stripe.CustomerParams{
		Email:    optional(p.Email),
		Name:     optional(p.Name),
		Phone:    optional(p.Phone),
		Metadata: p.Metadata,
	}
	params.Context = ctx

	var cus *stripe.Customer
	err := observe("create_customer", func() (err error) {
		cus, err = g.api.Customers.New(params)
		return err
	})
	if err != nil {
		return "", err
	}
	return cus.ID, nil
}

// CreateSetupIntent creates a card setup intent and returns its client secret
func (g *StripeGateway) CreateSetupIntent(ctx context.Context, customerID string, metadata map[string]string) (string, error) {
	params := &stripe.SetupIntentParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: []*string{stripe.String("card")},
		Metadata:           metadata,
	}
	params.Context = ctx

	var si *stripe.SetupIntent
	err := observe("create_setup_intent", func() (err error) {
		si, err = g.api.SetupIntents.New(params)
		return err
	})
	if err != nil {
		return "", err
	}
	return si.ClientSecret, nil
}

// AttachPaymentMethod attaches a payment method to the customer
func (g *StripeGateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx

	return observe("attach_payment_method", func() error {
		_, err := g.api.PaymentMethods.Attach(paymentMethodID, params)
		return err
	})
}

// SetDefaultPaymentMethod makes the payment method the invoice default
func (g *StripeGateway) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	params.Context = ctx

	return observe("set_default_payment_method", func() error {
		_, err := g.api.Customers.Update(customerID, params)
		return err
	})
}

// FindProductByName returns the first product whose name matches exactly.
// Only one page of search results is read.
func (g *StripeGateway) FindProductByName(ctx context.Context, name string) (string, bool, error) {
	params := &stripe.ProductSearchParams{
		SearchParams: stripe.SearchParams{
			Context: ctx,
			Query:   fmt.Sprintf("name:%q", name),
			Limit:   stripe.Int64(productSearchLimit),
			Single:  true,
		},
	}

	var (
		id    string
		found bool
	)
	err := observe("search_products", func() error {
		iter := g.api.Products.Search(params)
		for iter.Next() {
			if p := iter.Product(); p.Name == name {
				id, found = p.ID, true
				break
			}
		}
		return iter.Err()
	})
	if err != nil {
		return "", false, err
	}
	return id, found, nil
}

// CreateProduct creates a product named name
func (g *StripeGateway) CreateProduct(ctx context.Context, name string) (string, error) {
	params := &stripe.ProductParams{
		Name: stripe.String(name),
	}
	params.Context = ctx

	var prod *stripe.Product
	err := observe("create_product", func() (err error) {
		prod, err = g.api.Products.New(params)
		return err
	})
	if err != nil {
		return "", err
	}
	return prod.ID, nil
}

// CreatePrice creates a one-time or monthly price
func (g *StripeGateway) CreatePrice(ctx context.Context, p billing.PriceParams) (string, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(p.ProductID),
		UnitAmount: stripe.Int64(p.UnitAmount),
		Currency:   stripe.String(p.Currency),
	}
	if p.Monthly {
		params.Recurring = &stripe.PriceRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		}
	}
	params.Context = ctx

	var price *stripe.Price
	err := observe("create_price", func() (err error) {
		price, err = g.api.Prices.New(params)
		return err
	})
	if err != nil {
		return "", err
	}
	return price.ID, nil
}

// ChargeNow creates and confirms a payment intent in one request
func (g *StripeGateway) ChargeNow(ctx context.Context, p billing.ChargeParams) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(p.Amount),
		Currency:      stripe.String(p.Currency),
		Customer:      stripe.String(p.CustomerID),
		PaymentMethod: stripe.String(p.PaymentMethodID),
		Description:   optional(p.Description),
		Confirm:       stripe.Bool(true),
		ReturnURL:     optional(p.ReturnURL),
		Metadata:      p.Metadata,
	}
	params.Context = ctx

	var pi *stripe.PaymentIntent
	err := observe("create_payment_intent", func() (err error) {
		pi, err = g.api.PaymentIntents.New(params)
		return err
	})
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// CreateSubscription creates a monthly subscription without proration
func (g *StripeGateway) CreateSubscription(ctx context.Context, p billing.SubscriptionParams) (string, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(p.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(p.PriceID)},
		},
		DefaultPaymentMethod: stripe.String(p.PaymentMethodID),
		CancelAt:             stripe.Int64(p.CancelAt),
		Metadata:             p.Metadata,
	}
	if p.BillingCycleAnchor > 0 {
		params.BillingCycleAnchor = stripe.Int64(p.BillingCycleAnchor)
		params.ProrationBehavior = stripe.String("none")
	}
	params.Context = ctx

	var sub *stripe.Subscription
	err := observe("create_subscription", func() (err error) {
		sub, err = g.api.Subscriptions.New(params)
		return err
	})
	if err != nil {
		return "", err
	}
	return sub.ID, nil
}

// CreatePortalSession returns a customer billing portal URL
func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: optional(returnURL),
	}
	params.Context = ctx

	var session *stripe.BillingPortalSession
	err := observe("create_portal_session", func() (err error) {
		session, err = g.api.BillingPortalSessions.New(params)
		return err
	})
	if err != nil {
		return "", err
	}
	return session.URL, nil
}

// observe runs one API call, records it and converts Stripe errors
func observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordProviderCall(stripeProvider, op, err, time.Since(start))
	if err == nil {
		return nil
	}

	msg := err.Error()
	var serr *stripe.Error
	if errors.As(err, &serr) && serr.Msg != "" {
		msg = serr.Msg
	}
	return &billing.ProviderError{Op: op, Message: msg, Err: err}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return stripe.String(s)
}
