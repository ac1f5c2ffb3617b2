package utils

import (
	"encoding/json"
	"net/http"

	"github.com/one39/enrollment/internal/pkg/errors"
)

// SuccessResponse is the body returned by a completed enrollment
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the body of every failed request. The frontend reads
// only Error; Code and Details are for operators.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteRawJSON writes an already encoded JSON document unchanged
func WriteRawJSON(w http.ResponseWriter, status int, body []byte) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(body)
	return err
}

// WriteSuccess writes {"success": true}
func WriteSuccess(w http.ResponseWriter) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// WriteError writes an error JSON response from AppError
func WriteError(w http.ResponseWriter, err *errors.AppError) error {
	return WriteJSON(w, err.StatusCode, ErrorResponse{
		Error:   err.Message,
		Code:    err.Code,
		Details: err.Details,
	})
}
