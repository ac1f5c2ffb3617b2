package client

import (
	"context"
	"net/http"
)

// Registrant is the registration form shared by both checkout calls
type Registrant struct {
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Coach      string `json:"coach,omitempty"`
	ChurchName string `json:"churchName,omitempty"`
	Position   string `json:"position,omitempty"`
}

// CreatePaymentRequest starts an enrollment
type CreatePaymentRequest struct {
	Registrant
	PlanID string `json:"planId"`
}

// CreatePaymentResponse carries the setup intent secret
type CreatePaymentResponse struct {
	ClientSecret string `json:"clientSecret"`
	CustomerID   string `json:"customerId"`
}

// ConfirmPaymentRequest completes an enrollment
type ConfirmPaymentRequest struct {
	Registrant
	CustomerID      string `json:"customerId"`
	PaymentMethodID string `json:"paymentMethodId"`
	PlanID          string `json:"planId"`
}

// CreatePayment creates the customer and setup intent
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResponse, error) {
	var resp CreatePaymentResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/create-payment", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConfirmPayment runs billing for a collected payment method
func (c *Client) ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) error {
	var resp struct {
		Success bool `json:"success"`
	}
	return c.doJSON(ctx, http.MethodPost, "/api/confirm-payment", req, &resp)
}
