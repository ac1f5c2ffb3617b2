package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/one39/enrollment/internal/domain/billing"
	"github.com/one39/enrollment/internal/domain/crm"
)

// Gateway operation names recorded in MockGateway.Calls
const (
	OpCreateCustomer      = "create_customer"
	OpCreateSetupIntent   = "create_setup_intent"
	OpAttach              = "attach_payment_method"
	OpSetDefault          = "set_default_payment_method"
	OpFindProduct         = "search_products"
	OpCreateProduct       = "create_product"
	OpCreatePrice         = "create_price"
	OpChargeNow           = "create_payment_intent"
	OpCreateSubscription  = "create_subscription"
	OpCreatePortalSession = "create_portal_session"
)

// MockGateway is an in-memory billing.Gateway. Products persist across
// calls so product reuse can be observed.
type MockGateway struct {
	mu sync.Mutex

	// Errors maps an operation name to the error it should return
	Errors map[string]error

	Calls         []string
	Customers     []billing.CustomerParams
	Products      map[string]string // name -> id
	Prices        []billing.PriceParams
	Charges       []billing.ChargeParams
	Subscriptions []billing.SubscriptionParams
	Attached      map[string]string // payment method -> customer
	Defaults      map[string]string // customer -> payment method
	PortalURL     string

	// AfterCall runs after each successful call, e.g. to cancel a context
	AfterCall func(op string)

	seq int
}

// NewMockGateway creates an empty mock gateway
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Errors:    make(map[string]error),
		Products:  make(map[string]string),
		Attached:  make(map[string]string),
		Defaults:  make(map[string]string),
		PortalURL: "https://billing.example.test/session",
	}
}

// FailOn makes op fail with a provider error carrying message
func (m *MockGateway) FailOn(op, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[op] = &billing.ProviderError{Op: op, Message: message}
}

// Count returns how many times op was called
func (m *MockGateway) Count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == op {
			n++
		}
	}
	return n
}

// record fails like a real client would when ctx is already done
func (m *MockGateway) record(ctx context.Context, op string) error {
	m.Calls = append(m.Calls, op)
	if err := ctx.Err(); err != nil {
		return &billing.ProviderError{Op: op, Message: err.Error(), Err: err}
	}
	if err := m.Errors[op]; err != nil {
		return err
	}
	if m.AfterCall != nil {
		m.AfterCall(op)
	}
	return nil
}

func (m *MockGateway) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s_%d", prefix, m.seq)
}

func (m *MockGateway) CreateCustomer(ctx context.Context, p billing.CustomerParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx, OpCreateCustomer); err != nil {
		return "", err
	}
	m.Customers = append(m.Customers, p)
	return m.nextID("cus"), nil
}

func (m *MockGateway) CreateSetupIntent(ctx context.Context, customerID string, metadata map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx, OpCreateSetupIntent); err != nil {
		return "", err
	}
	return m.nextID("seti") + "_secret_" + customerID, nil
}

func (m *MockGateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx, OpAttach); err != nil {
		return err
	}
	m.Attached[paymentMethodID] = customerID
	return nil
}

func (m *MockGateway) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx, OpSetDefault); err != nil {
		return err
	}
	m.Defaults[customerID] = paymentMethodID
	return nil
}

func (m *MockGateway) FindProductByName(ctx context.Context, name string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx, OpFindProduct); err != nil {
		return "", false, err
	}
	id, ok := m.Products[name]
	return id, ok, nil
}

func (m *MockGateway) CreateProduct(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx, OpCreateProduct); err != nil {
		return "", err
	}
	id := m.nextID("prod")
	m.Products[name] = id
	return id, nil
}

func (m *MockGateway) CreatePrice(ctx context.Context, p billing.PriceParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx, OpCreatePrice); err != nil {
		return "", err
	}
	m.Prices = append(m.Prices, p)
	return m.nextID("price"), nil
}

func (m *MockGateway) ChargeNow(ctx context.Context, p billing.ChargeParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx, OpChargeNow); err != nil {
		return "", err
	}
	m.Charges = append(m.Charges, p)
	return m.nextID("pi"), nil
}

func (m *MockGateway) CreateSubscription(ctx context.Context, p billing.SubscriptionParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx, OpCreateSubscription); err != nil {
		return "", err
	}
	m.Subscriptions = append(m.Subscriptions, p)
	return m.nextID("sub"), nil
}

func (m *MockGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx, OpCreatePortalSession); err != nil {
		return "", err
	}
	return m.PortalURL + "/" + customerID, nil
}

// MockCRMClient is an in-memory crm.Client
type MockCRMClient struct {
	mu sync.Mutex

	Groups        []crm.Group
	Items         []crm.ItemInput
	CreatedGroups []string
	Snapshot      json.RawMessage

	ListError      error
	CreateGroupErr error
	CreateItemErr  error
	SnapshotError  error

	seq int
}

// NewMockCRMClient creates a mock holding the given groups
func NewMockCRMClient(groups ...crm.Group) *MockCRMClient {
	return &MockCRMClient{
		Groups:   groups,
		Snapshot: json.RawMessage(`{"data":{"boards":[]}}`),
	}
}

func (m *MockCRMClient) ListGroups(ctx context.Context, boardID string) ([]crm.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}
	out := make([]crm.Group, len(m.Groups))
	copy(out, m.Groups)
	return out, nil
}

func (m *MockCRMClient) CreateGroup(ctx context.Context, boardID, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateGroupErr != nil {
		return "", m.CreateGroupErr
	}
	m.seq++
	id := fmt.Sprintf("group_%d", m.seq)
	m.Groups = append(m.Groups, crm.Group{ID: id, Title: name})
	m.CreatedGroups = append(m.CreatedGroups, name)
	return id, nil
}

func (m *MockCRMClient) CreateItem(ctx context.Context, input crm.ItemInput) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateItemErr != nil {
		return "", m.CreateItemErr
	}
	m.seq++
	m.Items = append(m.Items, input)
	return fmt.Sprintf("item_%d", m.seq), nil
}

func (m *MockCRMClient) BoardSnapshot(ctx context.Context, boardID string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SnapshotError != nil {
		return nil, m.SnapshotError
	}
	return m.Snapshot, nil
}

// MockCRMService records synced records without a client
type MockCRMService struct {
	mu sync.Mutex

	Records       []crm.Record
	Board         json.RawMessage
	SnapshotError error
}

func (m *MockCRMService) Sync(ctx context.Context, rec crm.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, rec)
}

func (m *MockCRMService) Snapshot(ctx context.Context) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SnapshotError != nil {
		return nil, m.SnapshotError
	}
	return m.Board, nil
}
