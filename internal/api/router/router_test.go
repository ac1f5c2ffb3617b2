package router

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/one39/enrollment/internal/api/handlers"
	"github.com/one39/enrollment/internal/config"
	"github.com/one39/enrollment/internal/domain/billing"
	"github.com/one39/enrollment/internal/pkg/logger"
	"github.com/one39/enrollment/internal/pkg/validator"
	"github.com/one39/enrollment/internal/services"
	"github.com/one39/enrollment/internal/testutil"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{
		App:    config.AppConfig{BaseURL: "https://example.test"},
		Stripe: config.StripeConfig{SecretKey: "sk_test_1"},
		Monday: config.MondayConfig{APIKey: "key", BoardID: "1"},
	}
	log := logger.Nop()

	catalog, err := services.NewPlanCatalog()
	require.NoError(t, err)

	now := time.Date(2026, time.April, 5, 10, 0, 0, 0, time.UTC)
	svc := services.NewEnrollmentService(catalog, testutil.NewMockGateway(), &testutil.MockCRMService{}, billing.Options{
		ClampCeiling:  true,
		CancelCeiling: config.DefaultCancelCeiling,
		Currency:      "usd",
	}, log, services.WithClock(func() time.Time { return now }))

	return New(cfg, log, nil, &Handlers{
		Health:     handlers.NewHealthHandler(cfg),
		Enrollment: handlers.NewEnrollmentHandler(svc, log, validator.New()),
		Board:      handlers.NewBoardHandler(&testutil.MockCRMService{}, "", log),
	})
}

func TestRouter_Routes(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "liveness", method: http.MethodGet, path: "/healthz", want: http.StatusOK},
		{name: "legacy liveness", method: http.MethodGet, path: "/health", want: http.StatusOK},
		{name: "readiness", method: http.MethodGet, path: "/readyz", want: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", want: http.StatusOK},
		{name: "confirm wrong method", method: http.MethodGet, path: "/api/confirm-payment", want: http.StatusMethodNotAllowed},
		{name: "create wrong method", method: http.MethodPut, path: "/api/create-payment", want: http.StatusMethodNotAllowed},
		{name: "unknown route", method: http.MethodGet, path: "/api/unknown", want: http.StatusNotFound},
		{name: "board without secret configured", method: http.MethodGet, path: "/api/monday?secret=x", want: http.StatusUnauthorized},
		{
			name:   "confirm",
			method: http.MethodPost,
			path:   "/api/confirm-payment",
			body:   `{"customerId":"cus_1","paymentMethodId":"pm_1","planId":"monthly"}`,
			want:   http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()

			r.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code)
			assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		})
	}
}

func TestRouter_MethodNotAllowedBody(t *testing.T) {
	r := newTestRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/confirm-payment", nil))

	assert.JSONEq(t, `{"error":"Method not allowed","code":"METHOD_NOT_ALLOWED"}`, rr.Body.String())
}

func TestRouter_CORSPreflight(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/confirm-payment", nil)
	req.Header.Set("Origin", "https://example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	assert.Equal(t, "https://example.test", rr.Header().Get("Access-Control-Allow-Origin"))
}
