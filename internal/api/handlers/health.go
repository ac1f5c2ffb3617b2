package handlers

import (
	"net/http"

	"github.com/one39/enrollment/internal/config"
	"github.com/one39/enrollment/internal/pkg/errors"
	"github.com/one39/enrollment/internal/pkg/utils"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	cfg *config.Config
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

// Healthz handles liveness probe
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string "Application is alive"
// @Router /health [get]
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Readyz reports whether both providers are configured. Providers are not
// called, so a probe never spends API quota.
// @Summary Readiness probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string "Application is ready"
// @Failure 503 {object} utils.ErrorResponse "Service unavailable"
// @Router /readyz [get]
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Stripe.SecretKey == "" {
		utils.WriteError(w, errors.ServiceUnavailable("Payment provider is not configured"))
		return
	}
	if h.cfg.Monday.APIKey == "" || h.cfg.Monday.BoardID == "" {
		utils.WriteError(w, errors.ServiceUnavailable("CRM provider is not configured"))
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ready",
		"payment": "configured",
		"crm":     "configured",
	})
}
