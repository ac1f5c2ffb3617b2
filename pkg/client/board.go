package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// HealthResponse is the liveness probe body
type HealthResponse struct {
	Status string `json:"status"`
}

// Health checks the health of the API
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/healthz", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// BoardSnapshot fetches the raw CRM board dump. The secret is sent as a
// query parameter, as the endpoint expects.
func (c *Client) BoardSnapshot(ctx context.Context, secret string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("secret", secret)

	body, err := c.do(ctx, http.MethodGet, "/api/monday?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}
