package services

import (
	"context"
	"fmt"
	"time"

	"github.com/one39/enrollment/internal/domain/billing"
	"github.com/one39/enrollment/internal/domain/crm"
	"github.com/one39/enrollment/internal/domain/enrollment"
	"github.com/one39/enrollment/internal/domain/plan"
	"github.com/one39/enrollment/internal/pkg/logger"
	"github.com/one39/enrollment/internal/pkg/metrics"
)

// EnrollmentService implements enrollment.Service. It is the charge
// orchestrator: every provider call is made once, in sequence, and the
// first failure aborts the request without undoing earlier calls.
type EnrollmentService struct {
	catalog     plan.Catalog
	calendar    *BillingCalendar
	provisioner *CatalogProvisioner
	gateway     billing.Gateway
	crm         crm.Service
	opts        billing.Options
	now         func() time.Time
	logger      *logger.Logger
}

// EnrollmentOption customises an EnrollmentService
type EnrollmentOption func(*EnrollmentService)

// WithClock replaces time.Now, which makes billing dates reproducible
func WithClock(now func() time.Time) EnrollmentOption {
	return func(s *EnrollmentService) {
		s.now = now
	}
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(
	catalog plan.Catalog,
	gateway billing.Gateway,
	crmService crm.Service,
	opts billing.Options,
	log *logger.Logger,
	options ...EnrollmentOption,
) enrollment.Service {
	s := &EnrollmentService{
		catalog:     catalog,
		calendar:    NewBillingCalendar(opts.ClampCeiling, opts.CancelCeiling),
		provisioner: NewCatalogProvisioner(gateway, opts.Currency, log),
		gateway:     gateway,
		crm:         crmService,
		opts:        opts,
		now:         time.Now,
		logger:      log,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Start creates the customer and a setup intent for collecting the card
func (s *EnrollmentService) Start(ctx context.Context, req enrollment.StartRequest) (*enrollment.StartResult, error) {
	if _, err := s.catalog.Resolve(req.PlanID); err != nil {
		return nil, err
	}

	meta := chargeMetadata(req.Registrant, req.PlanID)

	customerID, err := s.gateway.CreateCustomer(ctx, billing.CustomerParams{
		Email:    req.Email,
		Name:     req.Name,
		Phone:    req.Phone,
		Metadata: meta,
	})
	if err != nil {
		return nil, err
	}

	clientSecret, err := s.gateway.CreateSetupIntent(ctx, customerID, meta)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"customer_id": customerID,
		"plan_id":     req.PlanID,
	}).Info("Customer and setup intent created")

	return &enrollment.StartResult{
		ClientSecret: clientSecret,
		CustomerID:   customerID,
	}, nil
}

// Confirm runs the billing flow for the plan's shape, then syncs the CRM
func (s *EnrollmentService) Confirm(ctx context.Context, req enrollment.ConfirmRequest) (*enrollment.Outcome, error) {
	def, err := s.catalog.Resolve(req.PlanID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	schedule := s.calendar.Schedule(def.Shape, now)
	if EnrollmentClosed(def.Shape, schedule, now) {
		return nil, billing.ErrEnrollmentClosed
	}

	// A client disconnect must not stop the flow half way through.
	ctx = context.WithoutCancel(ctx)

	log := s.logger.WithFields(map[string]interface{}{
		"customer_id": req.CustomerID,
		"plan_id":     def.ID,
		"shape":       string(def.Shape),
	})
	log.With("cancel_at", time.Unix(schedule.CancelAt, 0).UTC().Format(time.RFC3339)).Info("Confirming enrollment")

	outcome := &enrollment.Outcome{Plan: def, Schedule: schedule}
	if err := s.charge(ctx, req, def, schedule, outcome, log); err != nil {
		metrics.RecordEnrollment(string(def.Shape), "failed")
		log.WithError(err).Error("Enrollment billing failed")
		return nil, err
	}
	metrics.RecordEnrollment(string(def.Shape), "succeeded")

	s.crm.Sync(ctx, crm.Record{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Coach:          req.Coach,
		Church:         req.ChurchName,
		PlanLabel:      def.Label,
		CustomerID:     req.CustomerID,
		SubscriptionID: outcome.RepresentativeSubscriptionID(),
		EnrolledAt:     now,
	})

	return outcome, nil
}

func (s *EnrollmentService) charge(
	ctx context.Context,
	req enrollment.ConfirmRequest,
	def plan.Definition,
	schedule billing.Schedule,
	outcome *enrollment.Outcome,
	log *logger.Logger,
) error {
	// Common to every shape, exactly once, before any charge.
	if err := s.gateway.AttachPaymentMethod(ctx, req.CustomerID, req.PaymentMethodID); err != nil {
		return err
	}
	if err := s.gateway.SetDefaultPaymentMethod(ctx, req.CustomerID, req.PaymentMethodID); err != nil {
		return err
	}
	log.Info("Payment method attached")

	meta := chargeMetadata(req.Registrant, def.ID)

	switch def.Shape {
	case plan.ShapeOneTime:
		// The charge is made by amount; the price only keeps the catalog
		// in step with what was sold.
		if _, err := s.provisioner.EnsurePrice(ctx, def.Label, def.UnitAmount, true); err != nil {
			return err
		}
		return s.chargeNow(ctx, req, def, meta, outcome, log)

	case plan.ShapeSemiMonthly:
		priceID, err := s.provisioner.EnsurePrice(ctx, def.Label, def.UnitAmount, false)
		if err != nil {
			return err
		}
		if s.opts.ChargeUpfrontForSplit {
			if err := s.chargeNow(ctx, req, def, meta, outcome, log); err != nil {
				return err
			}
		}
		for _, anchor := range schedule.Anchors {
			subMeta := copyMetadata(meta)
			subMeta[billing.MetaBillingDay] = anchor.DayTag
			if err := s.subscribe(ctx, req, priceID, anchor.Unix(), schedule.CancelAt, subMeta, outcome, log); err != nil {
				return err
			}
		}
		return nil

	case plan.ShapeMonthly:
		priceID, err := s.provisioner.EnsurePrice(ctx, def.Label, def.UnitAmount, false)
		if err != nil {
			return err
		}
		return s.subscribe(ctx, req, priceID, 0, schedule.CancelAt, meta, outcome, log)

	default:
		return fmt.Errorf("unsupported billing shape %q", def.Shape)
	}
}

func (s *EnrollmentService) chargeNow(
	ctx context.Context,
	req enrollment.ConfirmRequest,
	def plan.Definition,
	meta map[string]string,
	outcome *enrollment.Outcome,
	log *logger.Logger,
) error {
	id, err := s.gateway.ChargeNow(ctx, billing.ChargeParams{
		CustomerID:      req.CustomerID,
		PaymentMethodID: req.PaymentMethodID,
		Amount:          def.UnitAmount,
		Currency:        s.opts.Currency,
		Description:     def.Label,
		ReturnURL:       s.opts.SuccessURL,
		Metadata:        meta,
	})
	if err != nil {
		return err
	}

	outcome.PaymentIntentIDs = append(outcome.PaymentIntentIDs, id)
	log.With("payment_intent_id", id).Info("Payment intent confirmed")
	return nil
}

func (s *EnrollmentService) subscribe(
	ctx context.Context,
	req enrollment.ConfirmRequest,
	priceID string,
	anchor int64,
	cancelAt int64,
	meta map[string]string,
	outcome *enrollment.Outcome,
	log *logger.Logger,
) error {
	id, err := s.gateway.CreateSubscription(ctx, billing.SubscriptionParams{
		CustomerID:         req.CustomerID,
		PaymentMethodID:    req.PaymentMethodID,
		PriceID:            priceID,
		BillingCycleAnchor: anchor,
		CancelAt:           cancelAt,
		Metadata:           meta,
	})
	if err != nil {
		return err
	}

	outcome.SubscriptionIDs = append(outcome.SubscriptionIDs, id)
	log.WithFields(map[string]interface{}{
		"subscription_id": id,
		"billing_day":     meta[billing.MetaBillingDay],
	}).Info("Subscription created")
	return nil
}

func chargeMetadata(r enrollment.Registrant, planID string) map[string]string {
	return map[string]string{
		billing.MetaCoach:    r.Coach,
		billing.MetaChurch:   r.ChurchName,
		billing.MetaPosition: r.Position,
		billing.MetaPlanID:   planID,
	}
}

func copyMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
