package crm

import (
	"context"
	"encoding/json"
)

// Client talks to the CRM provider
type Client interface {
	ListGroups(ctx context.Context, boardID string) ([]Group, error)
	CreateGroup(ctx context.Context, boardID, name string) (string, error)
	CreateItem(ctx context.Context, input ItemInput) (string, error)
	// BoardSnapshot returns the provider's response body unchanged
	BoardSnapshot(ctx context.Context, boardID string) (json.RawMessage, error)
}

// Service is the CRM side of an enrollment
type Service interface {
	// Sync writes the enrollment to the board. It never fails: errors are
	// logged and dropped.
	Sync(ctx context.Context, rec Record)

	// Snapshot returns the raw board dump used by the diagnostic endpoint
	Snapshot(ctx context.Context) (json.RawMessage, error)
}
