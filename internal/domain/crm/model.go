package crm

import "time"

// StatusActive is the status label given to every new enrollment row
const StatusActive = "Active"

// Group is a board group; there is one per coach
type Group struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Record is the data written as one board item per enrollment
type Record struct {
	Name           string
	Email          string
	Phone          string
	Coach          string
	Church         string
	PlanLabel      string
	CustomerID     string
	SubscriptionID string
	PortalLink     string
	EnrolledAt     time.Time
}

// ItemInput is a create-item mutation ready to send
type ItemInput struct {
	BoardID      string
	GroupID      string
	ItemName     string
	ColumnValues map[string]interface{}
}
