package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/one39/enrollment/internal/domain/crm"
	"github.com/one39/enrollment/internal/pkg/errors"
	"github.com/one39/enrollment/internal/pkg/logger"
	"github.com/one39/enrollment/internal/pkg/utils"
)

// BoardHandler exposes the CRM board dump to operators holding the secret
type BoardHandler struct {
	crm    crm.Service
	secret string
	logger *logger.Logger
}

// NewBoardHandler creates a new board handler. An empty secret disables
// the endpoint.
func NewBoardHandler(service crm.Service, secret string, log *logger.Logger) *BoardHandler {
	return &BoardHandler{crm: service, secret: secret, logger: log}
}

// Snapshot returns the raw board query response
// @Summary Board snapshot
// @Description Dump board columns, groups and items for diagnostics
// @Tags Diagnostics
// @Produce json
// @Param secret query string true "Diagnostic secret"
// @Success 200 {object} map[string]interface{} "Raw CRM response"
// @Failure 401 {object} utils.ErrorResponse "Unauthorized"
// @Failure 502 {object} utils.ErrorResponse "CRM provider error"
// @Router /api/monday [get]
func (h *BoardHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r.URL.Query().Get("secret")) {
		utils.WriteError(w, errors.Unauthorized("Unauthorized"))
		return
	}

	body, err := h.crm.Snapshot(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Board snapshot failed")
		utils.WriteError(w, errors.CRMProviderError(err))
		return
	}

	utils.WriteRawJSON(w, http.StatusOK, body)
}

func (h *BoardHandler) authorized(given string) bool {
	if h.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(h.secret)) == 1
}
