package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/one39/enrollment/internal/domain/billing"
	"github.com/one39/enrollment/internal/domain/enrollment"
	"github.com/one39/enrollment/internal/domain/plan"
	"github.com/one39/enrollment/internal/integrations"
	"github.com/one39/enrollment/internal/pkg/logger"
	"github.com/one39/enrollment/internal/testutil"
)

var enrollNow = time.Date(2026, time.April, 5, 10, 0, 0, 0, time.UTC)

type enrollmentFixture struct {
	gateway *testutil.MockGateway
	crm     *testutil.MockCRMService
	service enrollment.Service
}

func newEnrollmentFixture(t *testing.T, upfront bool, now time.Time) *enrollmentFixture {
	t.Helper()

	catalog, err := NewPlanCatalog()
	require.NoError(t, err)

	gw := testutil.NewMockGateway()
	crmSvc := &testutil.MockCRMService{}
	svc := NewEnrollmentService(catalog, gw, crmSvc, billing.Options{
		ClampCeiling:          true,
		CancelCeiling:         testCeiling,
		ChargeUpfrontForSplit: upfront,
		Currency:              "usd",
		SuccessURL:            "https://example.test/success",
	}, logger.Nop(), WithClock(func() time.Time { return now }))

	return &enrollmentFixture{gateway: gw, crm: crmSvc, service: svc}
}

func confirmRequest(planID string) enrollment.ConfirmRequest {
	return enrollment.ConfirmRequest{
		Registrant: enrollment.Registrant{
			Name:       "Jane Doe",
			Email:      "jane@example.test",
			Phone:      "5551234567",
			Coach:      "Coach Smith",
			ChurchName: "Grace Church",
			Position:   "Worship Leader",
		},
		CustomerID:      "cus_123",
		PaymentMethodID: "pm_123",
		PlanID:          planID,
	}
}

func TestEnrollmentService_ConfirmShapes(t *testing.T) {
	tests := []struct {
		name              string
		planID            string
		upfront           bool
		wantCharges       int
		wantSubscriptions int
		wantMonthlyPrice  bool
	}{
		{name: "one-time", planID: "pay-in-full", wantCharges: 1, wantSubscriptions: 0, wantMonthlyPrice: false},
		{name: "monthly", planID: "monthly", wantCharges: 0, wantSubscriptions: 1, wantMonthlyPrice: true},
		{name: "semi-monthly anchored", planID: "semi-monthly", wantCharges: 0, wantSubscriptions: 2, wantMonthlyPrice: true},
		{name: "semi-monthly upfront", planID: "semi-monthly", upfront: true, wantCharges: 1, wantSubscriptions: 2, wantMonthlyPrice: true},
		{name: "monthly ignores upfront switch", planID: "monthly", upfront: true, wantCharges: 0, wantSubscriptions: 1, wantMonthlyPrice: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEnrollmentFixture(t, tt.upfront, enrollNow)

			outcome, err := f.service.Confirm(context.Background(), confirmRequest(tt.planID))
			require.NoError(t, err)

			assert.Equal(t, 1, f.gateway.Count(testutil.OpAttach))
			assert.Equal(t, 1, f.gateway.Count(testutil.OpSetDefault))
			assert.Equal(t, "cus_123", f.gateway.Attached["pm_123"])
			assert.Equal(t, "pm_123", f.gateway.Defaults["cus_123"])

			assert.Equal(t, tt.wantCharges, f.gateway.Count(testutil.OpChargeNow))
			assert.Equal(t, tt.wantSubscriptions, f.gateway.Count(testutil.OpCreateSubscription))
			assert.Len(t, outcome.SubscriptionIDs, tt.wantSubscriptions)
			assert.Len(t, outcome.PaymentIntentIDs, tt.wantCharges)

			require.Len(t, f.gateway.Prices, 1)
			assert.Equal(t, tt.wantMonthlyPrice, f.gateway.Prices[0].Monthly)

			require.Len(t, f.crm.Records, 1)
			assert.Equal(t, outcome.RepresentativeSubscriptionID(), f.crm.Records[0].SubscriptionID)
		})
	}
}

func TestEnrollmentService_AttachBeforeAnyCharge(t *testing.T) {
	f := newEnrollmentFixture(t, true, enrollNow)

	_, err := f.service.Confirm(context.Background(), confirmRequest("semi-monthly"))
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(f.gateway.Calls), 2)
	assert.Equal(t, testutil.OpAttach, f.gateway.Calls[0])
	assert.Equal(t, testutil.OpSetDefault, f.gateway.Calls[1])
	assert.Equal(t, []string{
		testutil.OpAttach,
		testutil.OpSetDefault,
		testutil.OpFindProduct,
		testutil.OpCreateProduct,
		testutil.OpCreatePrice,
		testutil.OpChargeNow,
		testutil.OpCreateSubscription,
		testutil.OpCreateSubscription,
	}, f.gateway.Calls)
}

func TestEnrollmentService_SemiMonthlySubscriptions(t *testing.T) {
	f := newEnrollmentFixture(t, false, enrollNow)

	_, err := f.service.Confirm(context.Background(), confirmRequest("semi-monthly"))
	require.NoError(t, err)

	subs := f.gateway.Subscriptions
	require.Len(t, subs, 2)

	assert.Equal(t, subs[0].CancelAt, subs[1].CancelAt)
	assert.Equal(t, testCeiling.Unix(), subs[0].CancelAt)
	assert.NotEqual(t, subs[0].Metadata[billing.MetaBillingDay], subs[1].Metadata[billing.MetaBillingDay])
	assert.Equal(t, billing.DayTagFifteenth, subs[0].Metadata[billing.MetaBillingDay])
	assert.Equal(t, billing.DayTagFirst, subs[1].Metadata[billing.MetaBillingDay])

	assert.Equal(t, time.Date(2026, time.April, 15, 12, 0, 0, 0, time.UTC).Unix(), subs[0].BillingCycleAnchor)
	assert.Equal(t, time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC).Unix(), subs[1].BillingCycleAnchor)

	for _, s := range subs {
		assert.Equal(t, "pm_123", s.PaymentMethodID)
		assert.Equal(t, f.gateway.Subscriptions[0].PriceID, s.PriceID)
		assert.Equal(t, "semi-monthly", s.Metadata[billing.MetaPlanID])
		assert.Equal(t, "Coach Smith", s.Metadata[billing.MetaCoach])
	}
}

func TestEnrollmentService_MonthlySubscription(t *testing.T) {
	f := newEnrollmentFixture(t, false, enrollNow)

	_, err := f.service.Confirm(context.Background(), confirmRequest("monthly"))
	require.NoError(t, err)

	require.Len(t, f.gateway.Subscriptions, 1)
	sub := f.gateway.Subscriptions[0]
	assert.Zero(t, sub.BillingCycleAnchor)
	assert.Equal(t, testCeiling.Unix(), sub.CancelAt)
	assert.Empty(t, sub.Metadata[billing.MetaBillingDay])
}

func TestEnrollmentService_OneTimeCharge(t *testing.T) {
	f := newEnrollmentFixture(t, false, enrollNow)

	_, err := f.service.Confirm(context.Background(), confirmRequest("pay-in-full"))
	require.NoError(t, err)

	require.Len(t, f.gateway.Charges, 1)
	charge := f.gateway.Charges[0]
	assert.Equal(t, int64(180000), charge.Amount)
	assert.Equal(t, "usd", charge.Currency)
	assert.Equal(t, "https://example.test/success", charge.ReturnURL)
	assert.Equal(t, "pm_123", charge.PaymentMethodID)

	require.Len(t, f.crm.Records, 1)
	assert.Empty(t, f.crm.Records[0].SubscriptionID)
}

func TestEnrollmentService_InvalidPlanMakesNoProviderCalls(t *testing.T) {
	for _, id := range []string{"nonexistent", ""} {
		t.Run("plan "+id, func(t *testing.T) {
			f := newEnrollmentFixture(t, false, enrollNow)

			_, err := f.service.Confirm(context.Background(), confirmRequest(id))
			require.Error(t, err)
			assert.True(t, errors.Is(err, plan.ErrPlanNotFound))
			assert.Empty(t, f.gateway.Calls)
			assert.Empty(t, f.crm.Records)
		})
	}
}

func TestEnrollmentService_FailuresStopTheFlow(t *testing.T) {
	tests := []struct {
		name          string
		planID        string
		failOp        string
		wantCalls     map[string]int
		wantCRMWrites int
	}{
		{
			name:   "attach failure creates nothing",
			planID: "monthly",
			failOp: testutil.OpAttach,
			wantCalls: map[string]int{
				testutil.OpSetDefault:         0,
				testutil.OpFindProduct:        0,
				testutil.OpCreateProduct:      0,
				testutil.OpCreatePrice:        0,
				testutil.OpCreateSubscription: 0,
			},
		},
		{
			name:   "set default failure creates nothing",
			planID: "pay-in-full",
			failOp: testutil.OpSetDefault,
			wantCalls: map[string]int{
				testutil.OpCreatePrice: 0,
				testutil.OpChargeNow:   0,
			},
		},
		{
			name:   "upfront charge failure skips subscriptions",
			planID: "semi-monthly",
			failOp: testutil.OpChargeNow,
			wantCalls: map[string]int{
				testutil.OpCreatePrice:        1,
				testutil.OpCreateSubscription: 0,
			},
		},
		{
			name:   "subscription failure is not rolled back",
			planID: "semi-monthly",
			failOp: testutil.OpCreateSubscription,
			wantCalls: map[string]int{
				testutil.OpChargeNow:          1,
				testutil.OpCreateSubscription: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEnrollmentFixture(t, true, enrollNow)
			f.gateway.FailOn(tt.failOp, "Your card was declined.")

			_, err := f.service.Confirm(context.Background(), confirmRequest(tt.planID))
			require.Error(t, err)

			var provErr *billing.ProviderError
			require.True(t, errors.As(err, &provErr))
			assert.Equal(t, "Your card was declined.", provErr.Message)

			for op, n := range tt.wantCalls {
				assert.Equal(t, n, f.gateway.Count(op), op)
			}
			assert.Len(t, f.crm.Records, tt.wantCRMWrites)
		})
	}
}

func TestEnrollmentService_EnrollmentClosed(t *testing.T) {
	after := testCeiling.Add(time.Hour)
	f := newEnrollmentFixture(t, false, after)

	_, err := f.service.Confirm(context.Background(), confirmRequest("monthly"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, billing.ErrEnrollmentClosed))
	assert.Empty(t, f.gateway.Calls)
}

func TestEnrollmentService_CRMFailureStillSucceeds(t *testing.T) {
	catalog, err := NewPlanCatalog()
	require.NoError(t, err)

	gw := testutil.NewMockGateway()
	crmClient := testutil.NewMockCRMClient()
	crmClient.ListError = errors.New("monday unavailable")
	crmSvc := NewCRMSyncService(crmClient, gw, CRMSyncOptions{BoardID: "1"}, logger.Nop())

	svc := NewEnrollmentService(catalog, gw, crmSvc, billing.Options{
		ClampCeiling:  true,
		CancelCeiling: testCeiling,
		Currency:      "usd",
	}, logger.Nop(), WithClock(func() time.Time { return enrollNow }))

	outcome, err := svc.Confirm(context.Background(), confirmRequest("monthly"))
	require.NoError(t, err)
	assert.Len(t, outcome.SubscriptionIDs, 1)
	assert.Empty(t, crmClient.Items)
}

func TestEnrollmentService_Start(t *testing.T) {
	f := newEnrollmentFixture(t, false, enrollNow)

	req := enrollment.StartRequest{
		Registrant: confirmRequest("").Registrant,
		PlanID:     "monthly",
	}
	result, err := f.service.Start(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, result.CustomerID)
	assert.Contains(t, result.ClientSecret, result.CustomerID)

	require.Len(t, f.gateway.Customers, 1)
	cus := f.gateway.Customers[0]
	assert.Equal(t, "jane@example.test", cus.Email)
	assert.Equal(t, map[string]string{
		billing.MetaCoach:    "Coach Smith",
		billing.MetaChurch:   "Grace Church",
		billing.MetaPosition: "Worship Leader",
		billing.MetaPlanID:   "monthly",
	}, cus.Metadata)
}

func TestEnrollmentService_StartRejectsUnknownPlan(t *testing.T) {
	f := newEnrollmentFixture(t, false, enrollNow)

	_, err := f.service.Start(context.Background(), enrollment.StartRequest{PlanID: "nonexistent"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, plan.ErrPlanNotFound))
	assert.Empty(t, f.gateway.Calls)
}

func TestEnrollmentService_ClosedWhenAnchorOutlivesCancellation(t *testing.T) {
	for _, upfront := range []bool{false, true} {
		f := newEnrollmentFixture(t, upfront, time.Date(2027, time.January, 20, 9, 0, 0, 0, time.UTC))

		_, err := f.service.Confirm(context.Background(), confirmRequest("semi-monthly"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, billing.ErrEnrollmentClosed))
		assert.Empty(t, f.gateway.Calls)
		assert.Empty(t, f.crm.Records)
	}
}

func TestEnrollmentService_OneTimeSoldAfterCeiling(t *testing.T) {
	f := newEnrollmentFixture(t, false, testCeiling.Add(30*24*time.Hour))

	outcome, err := f.service.Confirm(context.Background(), confirmRequest("pay-in-full"))
	require.NoError(t, err)
	assert.Len(t, outcome.PaymentIntentIDs, 1)
	assert.Zero(t, f.gateway.Count(testutil.OpCreateSubscription))
}

func TestEnrollmentService_DisconnectAfterChargeCompletesFlow(t *testing.T) {
	var (
		mu        sync.Mutex
		mutations []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body integrations.GraphQLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		mu.Lock()
		defer mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(body.Query, "create_item"):
			mutations = append(mutations, "create_item")
			w.Write([]byte(`{"data":{"create_item":{"id":"1"}}}`))
		default:
			w.Write([]byte(`{"data":{"boards":[{"groups":[{"id":"g1","title":"Coach Smith"}]}]}}`))
		}
	}))
	defer server.Close()

	catalog, err := NewPlanCatalog()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := testutil.NewMockGateway()
	gw.AfterCall = func(op string) {
		if op == testutil.OpChargeNow {
			cancel()
		}
	}

	crmSvc := NewCRMSyncService(integrations.NewMondayClient("key", "", server.URL), gw,
		CRMSyncOptions{BoardID: "1", Columns: testColumns}, logger.Nop())
	svc := NewEnrollmentService(catalog, gw, crmSvc, billing.Options{
		ClampCeiling:          true,
		CancelCeiling:         testCeiling,
		ChargeUpfrontForSplit: true,
		Currency:              "usd",
	}, logger.Nop(), WithClock(func() time.Time { return enrollNow }))

	outcome, err := svc.Confirm(ctx, confirmRequest("semi-monthly"))
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	assert.Len(t, outcome.PaymentIntentIDs, 1)
	assert.Len(t, outcome.SubscriptionIDs, 2)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"create_item"}, mutations)
}
