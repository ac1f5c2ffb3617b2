package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/one39/enrollment/internal/api/handlers"
	"github.com/one39/enrollment/internal/api/middleware"
	"github.com/one39/enrollment/internal/api/router"
	"github.com/one39/enrollment/internal/config"
	"github.com/one39/enrollment/internal/domain/billing"
	"github.com/one39/enrollment/internal/integrations"
	"github.com/one39/enrollment/internal/pkg/logger"
	"github.com/one39/enrollment/internal/pkg/validator"
	"github.com/one39/enrollment/internal/providers"
	"github.com/one39/enrollment/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	catalog, err := services.NewPlanCatalog()
	if err != nil {
		log.Fatalf("Failed to load price list: %v", err)
	}

	gateway := providers.NewStripeGateway(cfg.Stripe.SecretKey)
	mondayClient := integrations.NewMondayClient(cfg.Monday.APIKey, cfg.Monday.APIVersion, cfg.Monday.APIURL)

	crmService := services.NewCRMSyncService(mondayClient, gateway, services.CRMSyncOptions{
		BoardID:           cfg.Monday.BoardID,
		Columns:           cfg.Monday.Columns,
		IncludePortalLink: cfg.Billing.IncludePortalLink,
		PortalReturnURL:   cfg.App.BaseURL,
	}, log.With("component", "crm"))

	enrollmentService := services.NewEnrollmentService(catalog, gateway, crmService, billing.Options{
		ClampCeiling:          cfg.Billing.ClampCeiling,
		CancelCeiling:         cfg.Billing.CancelCeiling,
		ChargeUpfrontForSplit: cfg.Billing.ChargeUpfrontForSplit(),
		Currency:              cfg.Stripe.Currency,
		SuccessURL:            cfg.App.BaseURL + "/success",
	}, log.With("component", "enrollment"))

	val := validator.New()
	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	janitor := cron.New()
	if err := limiter.ScheduleCleanup(janitor, middleware.DefaultCleanupSpec); err != nil {
		log.Fatalf("Failed to schedule rate limiter cleanup: %v", err)
	}
	janitor.Start()

	handler := router.New(cfg, log, limiter, &router.Handlers{
		Health:     handlers.NewHealthHandler(cfg),
		Enrollment: handlers.NewEnrollmentHandler(enrollmentService, log, val),
		Board:      handlers.NewBoardHandler(crmService, cfg.Diagnostics.Secret, log),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Run server in a separate goroutine so we can listen for shutdown signals
	go func() {
		log.WithFields(map[string]interface{}{
			"addr":       srv.Addr,
			"env":        cfg.Server.Environment,
			"split_mode": cfg.Billing.SplitMode,
			"clamp":      cfg.Billing.ClampCeiling,
		}).Info("Enrollment API listening")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	<-janitor.Stop().Done()

	if err := srv.Shutdown(ctx); err != nil {
		log.ErrorWithErr(err, "Server forced to shutdown")
		os.Exit(1)
	}

	log.Info("Server stopped")
}
