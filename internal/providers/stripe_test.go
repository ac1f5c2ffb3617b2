package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/one39/enrollment/internal/domain/billing"
)

type stripeStub struct {
	mu       sync.Mutex
	forms    map[string]url.Values
	requests map[string]int
}

func newStripeStub(t *testing.T, routes map[string]func(w http.ResponseWriter)) (*StripeGateway, *stripeStub) {
	t.Helper()
	stub := &stripeStub{forms: make(map[string]url.Values), requests: make(map[string]int)}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		stub.mu.Lock()
		stub.forms[r.Method+" "+r.URL.Path] = r.Form
		stub.requests[r.Method+" "+r.URL.Path]++
		stub.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		route, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Unrecognized request URL"}}`))
			return
		}
		route(w)
	}))
	t.Cleanup(server.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(server.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	gw := NewStripeGatewayWithBackends("sk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return gw, stub
}

func (s *stripeStub) form(key string) url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forms[key]
}

func (s *stripeStub) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[key]
}

func respond(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func TestStripeGateway_CreateCustomer(t *testing.T) {
	gw, stub := newStripeStub(t, map[string]func(http.ResponseWriter){
		"POST /v1/customers": respond(http.StatusOK, `{"id":"cus_123","object":"customer"}`),
	})

	id, err := gw.CreateCustomer(context.Background(), billing.CustomerParams{
		Email:    "jane@example.test",
		Name:     "Jane Doe",
		Metadata: map[string]string{"coach": "Coach Smith"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_123", id)

	form := stub.form("POST /v1/customers")
	assert.Equal(t, "jane@example.test", form.Get("email"))
	assert.Equal(t, "Coach Smith", form.Get("metadata[coach]"))
	_, hasPhone := form["phone"]
	assert.False(t, hasPhone)
}

func TestStripeGateway_ProviderMessageIsKept(t *testing.T) {
	gw, _ := newStripeStub(t, map[string]func(http.ResponseWriter){
		"POST /v1/payment_methods/pm_123/attach": respond(http.StatusPaymentRequired,
			`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`),
	})

	err := gw.AttachPaymentMethod(context.Background(), "cus_123", "pm_123")
	require.Error(t, err)

	var provErr *billing.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, "attach_payment_method", provErr.Op)
	assert.Equal(t, "Your card was declined.", provErr.Message)
}

func TestStripeGateway_CreateSubscription(t *testing.T) {
	tests := []struct {
		name       string
		anchor     int64
		wantAnchor string
		wantProrat string
	}{
		{name: "anchored", anchor: 1776254400, wantAnchor: "1776254400", wantProrat: "none"},
		{name: "unanchored", anchor: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, stub := newStripeStub(t, map[string]func(http.ResponseWriter){
				"POST /v1/subscriptions": respond(http.StatusOK, `{"id":"sub_1","object":"subscription"}`),
			})

			id, err := gw.CreateSubscription(context.Background(), billing.SubscriptionParams{
				CustomerID:         "cus_123",
				PaymentMethodID:    "pm_123",
				PriceID:            "price_1",
				BillingCycleAnchor: tt.anchor,
				CancelAt:           1801483200,
				Metadata:           map[string]string{billing.MetaBillingDay: billing.DayTagFifteenth},
			})
			require.NoError(t, err)
			assert.Equal(t, "sub_1", id)

			form := stub.form("POST /v1/subscriptions")
			assert.Equal(t, "1801483200", form.Get("cancel_at"))
			assert.Equal(t, "price_1", form.Get("items[0][price]"))
			assert.Equal(t, "pm_123", form.Get("default_payment_method"))
			assert.Equal(t, "15th", form.Get("metadata[billing_day]"))
			assert.Equal(t, tt.wantAnchor, form.Get("billing_cycle_anchor"))
			assert.Equal(t, tt.wantProrat, form.Get("proration_behavior"))
		})
	}
}

func TestStripeGateway_CreatePrice(t *testing.T) {
	tests := []struct {
		name         string
		monthly      bool
		wantInterval string
	}{
		{name: "monthly", monthly: true, wantInterval: "month"},
		{name: "one-time", monthly: false, wantInterval: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, stub := newStripeStub(t, map[string]func(http.ResponseWriter){
				"POST /v1/prices": respond(http.StatusOK, `{"id":"price_9","object":"price"}`),
			})

			id, err := gw.CreatePrice(context.Background(), billing.PriceParams{
				ProductID:  "prod_1",
				UnitAmount: 19900,
				Currency:   "usd",
				Monthly:    tt.monthly,
			})
			require.NoError(t, err)
			assert.Equal(t, "price_9", id)

			form := stub.form("POST /v1/prices")
			assert.Equal(t, "19900", form.Get("unit_amount"))
			assert.Equal(t, tt.wantInterval, form.Get("recurring[interval]"))
		})
	}
}

func TestStripeGateway_ChargeNowConfirms(t *testing.T) {
	gw, stub := newStripeStub(t, map[string]func(http.ResponseWriter){
		"POST /v1/payment_intents": respond(http.StatusOK, `{"id":"pi_1","object":"payment_intent","status":"succeeded"}`),
	})

	id, err := gw.ChargeNow(context.Background(), billing.ChargeParams{
		CustomerID:      "cus_123",
		PaymentMethodID: "pm_123",
		Amount:          180000,
		Currency:        "usd",
		ReturnURL:       "https://example.test/success",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", id)

	form := stub.form("POST /v1/payment_intents")
	assert.Equal(t, "true", form.Get("confirm"))
	assert.Equal(t, "180000", form.Get("amount"))
	assert.Equal(t, "https://example.test/success", form.Get("return_url"))
}

func TestStripeGateway_FindProductByName(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantID    string
		wantFound bool
	}{
		{
			name:      "exact match",
			body:      `{"object":"search_result","data":[{"id":"prod_1","object":"product","name":"Creative Circle Monthly"}],"has_more":false}`,
			wantID:    "prod_1",
			wantFound: true,
		},
		{
			name: "near match is ignored",
			body: `{"object":"search_result","data":[{"id":"prod_2","object":"product","name":"Creative Circle Monthly (old)"}],"has_more":false}`,
		},
		{
			name: "no results",
			body: `{"object":"search_result","data":[],"has_more":false}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, _ := newStripeStub(t, map[string]func(http.ResponseWriter){
				"GET /v1/products/search": respond(http.StatusOK, tt.body),
			})

			id, found, err := gw.FindProductByName(context.Background(), "Creative Circle Monthly")
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestStripeGateway_CreatePortalSession(t *testing.T) {
	gw, _ := newStripeStub(t, map[string]func(http.ResponseWriter){
		"POST /v1/billing_portal/sessions": respond(http.StatusOK,
			`{"id":"bps_1","object":"billing_portal.session","url":"https://billing.stripe.test/p/session_1"}`),
	})

	link, err := gw.CreatePortalSession(context.Background(), "cus_123", "https://example.test")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.test/p/session_1", link)
}

func TestStripeGateway_FindProductByNameReadsOnePage(t *testing.T) {
	gw, stub := newStripeStub(t, map[string]func(http.ResponseWriter){
		"GET /v1/products/search": respond(http.StatusOK,
			`{"object":"search_result","data":[{"id":"prod_2","object":"product","name":"Creative Circle Monthly (old)"}],"has_more":true,"next_page":"page_2"}`),
	})

	_, found, err := gw.FindProductByName(context.Background(), "Creative Circle Monthly")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 1, stub.count("GET /v1/products/search"))
	assert.Equal(t, "100", stub.form("GET /v1/products/search").Get("limit"))
}
