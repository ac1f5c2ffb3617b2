package errors

import (
	"fmt"
	"net/http"
)

// AppError represents an application error with an HTTP status attached
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInvalidPlan        = "INVALID_PLAN"
	ErrCodeEnrollmentClosed   = "ENROLLMENT_CLOSED"
	ErrCodePaymentProvider    = "PAYMENT_PROVIDER_ERROR"
	ErrCodeCRMProvider        = "CRM_PROVIDER_ERROR"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Internal creates an internal server error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

// MethodNotAllowed is returned for any non-POST call on the enrollment routes
func MethodNotAllowed() *AppError {
	return New(ErrCodeMethodNotAllowed, "Method not allowed", http.StatusMethodNotAllowed)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ValidationError creates a validation error
func ValidationError(message string, details interface{}) *AppError {
	return New(ErrCodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

// InvalidPlan is returned when a plan id does not resolve
func InvalidPlan() *AppError {
	return New(ErrCodeInvalidPlan, "Invalid plan", http.StatusBadRequest)
}

// EnrollmentClosed is returned once the program's billing window has ended
func EnrollmentClosed() *AppError {
	return New(ErrCodeEnrollmentClosed, "Enrollment closed", http.StatusBadRequest)
}

// PaymentProviderError surfaces the payment provider's own message as a 500
func PaymentProviderError(message string, err error) *AppError {
	return Wrap(err, ErrCodePaymentProvider, message, http.StatusInternalServerError)
}

// CRMProviderError creates an error for failed CRM calls
func CRMProviderError(err error) *AppError {
	return Wrap(err, ErrCodeCRMProvider, "Failed to communicate with CRM API", http.StatusBadGateway)
}

// RateLimited creates a rate limited error
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message, http.StatusTooManyRequests)
}

// ServiceUnavailable creates a service unavailable error
func ServiceUnavailable(message string) *AppError {
	return New(ErrCodeServiceUnavailable, message, http.StatusServiceUnavailable)
}
