package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/one39/enrollment/internal/domain/billing"
	"github.com/one39/enrollment/internal/domain/plan"
	"github.com/one39/enrollment/internal/pkg/errors"
	"github.com/one39/enrollment/internal/pkg/utils"
	"github.com/one39/enrollment/internal/pkg/validator"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 64 << 10

// decodeAndValidate reads a JSON body into dst and validates it. It writes
// the error response itself and reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, val *validator.Validator, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return false
	}

	if errs := val.Validate(dst); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError(errs[0].Message, errs))
		return false
	}

	return true
}

// toAppError maps service errors onto HTTP errors
func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	if stderrors.Is(err, plan.ErrPlanNotFound) {
		return errors.InvalidPlan()
	}

	if stderrors.Is(err, billing.ErrEnrollmentClosed) {
		return errors.EnrollmentClosed()
	}

	var provErr *billing.ProviderError
	if stderrors.As(err, &provErr) {
		return errors.PaymentProviderError(provErr.Message, err)
	}

	return errors.Internal(err.Error(), err)
}
