package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/one39/enrollment/internal/domain/crm"
	"github.com/one39/enrollment/internal/pkg/metrics"
)

const (
	// DefaultMondayURL is the monday.com GraphQL endpoint
	DefaultMondayURL = "https://api.monday.com/v2"
	mondayProvider   = "monday"
)

const (
	listGroupsQuery = `query ($boardId: [ID!]) { boards(ids: $boardId) { groups { id title } } }`

	createGroupMutation = `mutation ($boardId: ID!, $groupName: String!) {
  create_group(board_id: $boardId, group_name: $groupName) { id }
}`

	createItemMutation = `mutation ($boardId: ID!, $groupId: String!, $itemName: String!, $columnValues: JSON!) {
  create_item(board_id: $boardId, group_id: $groupId, item_name: $itemName, column_values: $columnValues) { id }
}`

	boardSnapshotQuery = `query ($boardId: [ID!]) {
  boards(ids: $boardId) {
    name
    columns { id title }
    groups { id title }
    items_page {
      items {
        id
        name
        column_values { column { title id } text }
      }
    }
  }
}`
)

// MondayClient is a client for the monday.com GraphQL API
type MondayClient struct {
	apiKey     string
	apiVersion string
	baseURL    string
	httpClient *http.Client
}

// GraphQLRequest is the body of every API call
type GraphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// GraphQLError is one entry of a response's errors array
type GraphQLError struct {
	Message string `json:"message"`
}

// GraphQLResponse is the common response envelope
type GraphQLResponse struct {
	Data         json.RawMessage `json:"data"`
	Errors       []GraphQLError  `json:"errors,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// MondayAPIError is returned when the API reports a failure
type MondayAPIError struct {
	StatusCode int
	Messages   []string
}

func (e *MondayAPIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("monday API request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("monday API error: %s", e.Messages[0])
}

// NewMondayClient creates a new monday.com API client
func NewMondayClient(apiKey, apiVersion, baseURL string) *MondayClient {
	if baseURL == "" {
		baseURL = DefaultMondayURL
	}
	return &MondayClient{
		apiKey:     apiKey,
		apiVersion: apiVersion,
		baseURL:    baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListGroups returns every group on the board
func (c *MondayClient) ListGroups(ctx context.Context, boardID string) ([]crm.Group, error) {
	var data struct {
		Boards []struct {
			Groups []crm.Group `json:"groups"`
		} `json:"boards"`
	}

	err := c.do(ctx, "list_groups", listGroupsQuery, map[string]interface{}{
		"boardId": []string{boardID},
	}, &data)
	if err != nil {
		return nil, err
	}

	if len(data.Boards) == 0 {
		return nil, fmt.Errorf("board %s not found", boardID)
	}
	return data.Boards[0].Groups, nil
}

// CreateGroup creates a group and returns its id
func (c *MondayClient) CreateGroup(ctx context.Context, boardID, name string) (string, error) {
	var data struct {
		CreateGroup struct {
			ID string `json:"id"`
		} `json:"create_group"`
	}

	err := c.do(ctx, "create_group", createGroupMutation, map[string]interface{}{
		"boardId":   boardID,
		"groupName": name,
	}, &data)
	if err != nil {
		return "", err
	}

	if data.CreateGroup.ID == "" {
		return "", fmt.Errorf("create_group returned no id")
	}
	return data.CreateGroup.ID, nil
}

// CreateItem creates an item and returns its id
func (c *MondayClient) CreateItem(ctx context.Context, input crm.ItemInput) (string, error) {
	// column_values is a JSON scalar, so it travels as an encoded string.
	columns, err := json.Marshal(input.ColumnValues)
	if err != nil {
		return "", fmt.Errorf("failed to marshal column values: %w", err)
	}

	var data struct {
		CreateItem struct {
			ID string `json:"id"`
		} `json:"create_item"`
	}

	err = c.do(ctx, "create_item", createItemMutation, map[string]interface{}{
		"boardId":      input.BoardID,
		"groupId":      input.GroupID,
		"itemName":     input.ItemName,
		"columnValues": string(columns),
	}, &data)
	if err != nil {
		return "", err
	}

	if data.CreateItem.ID == "" {
		return "", fmt.Errorf("create_item returned no id")
	}
	return data.CreateItem.ID, nil
}

// BoardSnapshot returns the full response body of the board query
func (c *MondayClient) BoardSnapshot(ctx context.Context, boardID string) (json.RawMessage, error) {
	body, err := c.post(ctx, "board_snapshot", boardSnapshotQuery, map[string]interface{}{
		"boardId": []string{boardID},
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (c *MondayClient) do(ctx context.Context, op, query string, variables map[string]interface{}, out interface{}) error {
	body, err := c.post(ctx, op, query, variables)
	if err != nil {
		return err
	}

	var resp GraphQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(resp.Errors) > 0 || resp.ErrorMessage != "" {
		apiErr := &MondayAPIError{StatusCode: http.StatusOK}
		for _, e := range resp.Errors {
			apiErr.Messages = append(apiErr.Messages, e.Message)
		}
		if resp.ErrorMessage != "" {
			apiErr.Messages = append(apiErr.Messages, resp.ErrorMessage)
		}
		return apiErr
	}

	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s data: %w", op, err)
	}
	return nil
}

func (c *MondayClient) post(ctx context.Context, op, query string, variables map[string]interface{}) (body []byte, err error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("monday API key is not configured")
	}

	start := time.Now()
	defer func() {
		metrics.RecordProviderCall(mondayProvider, op, err, time.Since(start))
	}()

	jsonData, err := json.Marshal(GraphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)
	if c.apiVersion != "" {
		req.Header.Set("API-Version", c.apiVersion)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &MondayAPIError{
			StatusCode: resp.StatusCode,
			Messages:   []string{strconv.Itoa(resp.StatusCode) + ": " + string(body)},
		}
	}

	return body, nil
}
