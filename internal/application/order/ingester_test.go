package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wooms/storesync/internal/domain/catalog"
	"github.com/wooms/storesync/internal/domain/order"
	"github.com/wooms/storesync/internal/domain/partner"
	"github.com/wooms/storesync/internal/domain/shared"
	"github.com/wooms/storesync/internal/domain/shared/valueobject"
	"github.com/wooms/storesync/internal/domain/sync"
)

// MockSource is a mock implementation of order.Source
type MockSource struct {
	mock.Mock
}

func (m *MockSource) ListPending(ctx context.Context) ([]order.PendingOrder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.PendingOrder), args.Error(1)
}

// MockCompleter is a mock implementation of order.Completer
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) MarkCompleted(ctx context.Context, orderID int64) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

// MockErpOrders is a mock implementation of order.ErpOrders
type MockErpOrders struct {
	mock.Mock
}

func (m *MockErpOrders) LastNumber(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockErpOrders) ExistsByExternalCode(ctx context.Context, externalCode string) (bool, error) {
	args := m.Called(ctx, externalCode)
	return args.Bool(0), args.Error(1)
}

func (m *MockErpOrders) Create(ctx context.Context, draft order.Draft) (*order.Created, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Created), args.Error(1)
}

// MockMasterData is a mock implementation of order.MasterData
type MockMasterData struct {
	mock.Mock
}

func (m *MockMasterData) ListOrganizations(ctx context.Context) ([]shared.NamedRef, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shared.NamedRef), args.Error(1)
}

func (m *MockMasterData) ListStores(ctx context.Context) ([]shared.NamedRef, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shared.NamedRef), args.Error(1)
}

func (m *MockMasterData) ListOrderStates(ctx context.Context) ([]shared.NamedRef, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shared.NamedRef), args.Error(1)
}

func (m *MockMasterData) ListProjects(ctx context.Context) ([]shared.NamedRef, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shared.NamedRef), args.Error(1)
}

func (m *MockMasterData) GetService(ctx context.Context, id string) (shared.NamedRef, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(shared.NamedRef), args.Error(1)
}

func (m *MockMasterData) GetEmployee(ctx context.Context, id string) (shared.NamedRef, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(shared.NamedRef), args.Error(1)
}

// MockLocator is a mock implementation of catalog.Locator
type MockLocator struct {
	mock.Mock
}

func (m *MockLocator) FindImportableByStorefrontID(ctx context.Context, storefrontID int64) ([]*catalog.Item, error) {
	args := m.Called(ctx, storefrontID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*catalog.Item), args.Error(1)
}

// MockMatcher is a mock implementation of Matcher
type MockMatcher struct {
	mock.Mock
}

func (m *MockMatcher) FindOrCreate(ctx context.Context, contact partner.Contact) (*partner.Counterparty, error) {
	args := m.Called(ctx, contact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Counterparty), args.Error(1)
}

// MockTasks is a mock implementation of order.Tasks
type MockTasks struct {
	mock.Mock
}

func (m *MockTasks) ExistsByDescription(ctx context.Context, description string) (bool, error) {
	args := m.Called(ctx, description)
	return args.Bool(0), args.Error(1)
}

func (m *MockTasks) Create(ctx context.Context, task order.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// MockEscalator is a mock implementation of Escalator
type MockEscalator struct {
	mock.Mock
}

func (m *MockEscalator) EscalateUnique(ctx context.Context, description string) error {
	args := m.Called(ctx, description)
	return args.Error(0)
}

func money(t *testing.T, s string) valueobject.Money {
	t.Helper()
	m, err := valueobject.NewMoneyFromString(s)
	require.NoError(t, err)
	return m
}

func testConfig() Config {
	return Config{
		StoreName:        "Main warehouse",
		PaymentStates:    map[string]string{"cod": "Awaiting payment"},
		PickupProjects:   map[string]string{"downtown": "Pickup downtown"},
		ShippingServices: map[string]string{"Courier": "svc-1"},
	}
}

type fixture struct {
	source    *MockSource
	completer *MockCompleter
	erpOrders *MockErpOrders
	master    *MockMasterData
	locator   *MockLocator
	matcher   *MockMatcher
	escalator *MockEscalator
	ingester  *Ingester
}

func newFixture(t *testing.T, lastNumber int) *fixture {
	t.Helper()
	f := &fixture{
		source:    new(MockSource),
		completer: new(MockCompleter),
		erpOrders: new(MockErpOrders),
		master:    new(MockMasterData),
		locator:   new(MockLocator),
		matcher:   new(MockMatcher),
		escalator: new(MockEscalator),
	}
	f.master.On("ListOrganizations", mock.Anything).Return([]shared.NamedRef{
		{Ref: "org/1", Name: "Acme"},
	}, nil)
	f.master.On("ListStores", mock.Anything).Return([]shared.NamedRef{
		{Ref: "store/1", Name: "Main warehouse"},
	}, nil)
	f.master.On("ListOrderStates", mock.Anything).Return([]shared.NamedRef{
		{Ref: "state/1", Name: "Awaiting payment"},
	}, nil)
	f.master.On("ListProjects", mock.Anything).Return([]shared.NamedRef{
		{Ref: "project/1", Name: "Pickup downtown"},
	}, nil)
	f.master.On("GetService", mock.Anything, "svc-1").Return(shared.NamedRef{Ref: "svc/ref-1", Name: "Courier delivery"}, nil)
	f.erpOrders.On("LastNumber", mock.Anything).Return(lastNumber, nil)

	f.ingester = NewIngester(
		f.source, f.completer, f.erpOrders, f.master, f.locator,
		f.matcher, f.escalator, testConfig(), zap.NewNop())
	return f
}

func pendingOrder(t *testing.T, id int64) order.PendingOrder {
	t.Helper()
	return order.PendingOrder{
		ID:            id,
		Billing:       partner.Contact{FirstName: "Anna", Phone: "+79161234567"},
		PaymentMethod: "cod",
		Items: []order.LineItem{
			{ProductID: 501, Name: "Red Shoes", Quantity: 2, UnitPrice: money(t, "80.00")},
		},
		Shipping: []order.ShippingLine{
			{MethodTitle: "Courier", Total: money(t, "5.00")},
		},
		CustomerNote: "call before delivery",
		PickupStore:  "downtown",
	}
}

// ---------------------------------------------------------------------------
// IngestPending
// ---------------------------------------------------------------------------

func TestIngestPending_CreatesDraftFromPendingOrder(t *testing.T) {
	f := newFixture(t, 42)
	po := pendingOrder(t, 9001)

	f.source.On("ListPending", mock.Anything).Return([]order.PendingOrder{po}, nil)
	f.erpOrders.On("ExistsByExternalCode", mock.Anything, "9001").Return(false, nil)
	f.matcher.On("FindOrCreate", mock.Anything, po.Billing).
		Return(&partner.Counterparty{ID: "cp-1", Ref: "agent/1", Name: "Anna"}, nil)
	f.locator.On("FindImportableByStorefrontID", mock.Anything, int64(501)).
		Return([]*catalog.Item{{Ref: "item/shoes", Name: "Red Shoes"}}, nil)
	f.erpOrders.On("Create", mock.Anything, order.Draft{
		Name:            "00043",
		ExternalCode:    "9001",
		Description:     "call before delivery",
		AgentRef:        "agent/1",
		StateRef:        "state/1",
		OrganizationRef: "org/1",
		StoreRef:        "store/1",
		ProjectRef:      "project/1",
		StorefrontID:    9001,
		Positions: []order.Position{
			{AssortmentRef: "item/shoes", Quantity: 2, Price: money(t, "80.00")},
			{AssortmentRef: "svc/ref-1", Quantity: 1, Price: money(t, "5.00")},
		},
	}).Return(&order.Created{ID: "erp-1", Name: "00043"}, nil)
	f.completer.On("MarkCompleted", mock.Anything, int64(9001)).Return(nil)

	report := sync.NewReport()
	needsSync, err := f.ingester.IngestPending(context.Background(), report)

	require.NoError(t, err)
	assert.False(t, needsSync)
	assert.Equal(t, []string{"00043 (storefront order 9001)"}, report.Entries(sync.GroupOrders))
	f.erpOrders.AssertExpectations(t)
	f.completer.AssertExpectations(t)
}

func TestIngestPending_NumberAdvancesOnlyOnConfirmedCreate(t *testing.T) {
	f := newFixture(t, 42)
	first := pendingOrder(t, 9001)
	second := pendingOrder(t, 9002)

	f.source.On("ListPending", mock.Anything).Return([]order.PendingOrder{first, second}, nil)
	f.erpOrders.On("ExistsByExternalCode", mock.Anything, mock.Anything).Return(false, nil)
	f.matcher.On("FindOrCreate", mock.Anything, mock.Anything).
		Return(&partner.Counterparty{Ref: "agent/1", Name: "Anna"}, nil)
	f.locator.On("FindImportableByStorefrontID", mock.Anything, int64(501)).
		Return([]*catalog.Item{{Ref: "item/shoes"}}, nil)
	f.erpOrders.On("Create", mock.Anything, mock.MatchedBy(func(d order.Draft) bool {
		return d.ExternalCode == "9001" && d.Name == "00043"
	})).Return(&order.Created{Name: "00043"}, nil)
	f.erpOrders.On("Create", mock.Anything, mock.MatchedBy(func(d order.Draft) bool {
		return d.ExternalCode == "9002" && d.Name == "00044"
	})).Return(&order.Created{Name: "00044"}, nil)
	f.completer.On("MarkCompleted", mock.Anything, mock.Anything).Return(nil)

	_, err := f.ingester.IngestPending(context.Background(), sync.NewReport())

	require.NoError(t, err)
	f.erpOrders.AssertExpectations(t)
}

func TestIngestPending_AlreadyIngestedHealsCompletion(t *testing.T) {
	f := newFixture(t, 42)
	po := pendingOrder(t, 9001)

	f.source.On("ListPending", mock.Anything).Return([]order.PendingOrder{po}, nil)
	f.erpOrders.On("ExistsByExternalCode", mock.Anything, "9001").Return(true, nil)
	f.completer.On("MarkCompleted", mock.Anything, int64(9001)).Return(nil)

	report := sync.NewReport()
	needsSync, err := f.ingester.IngestPending(context.Background(), report)

	require.NoError(t, err)
	assert.False(t, needsSync)
	f.erpOrders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.completer.AssertExpectations(t)
}

func TestIngestPending_MissingCounterpartSignalsAssortmentSync(t *testing.T) {
	f := newFixture(t, 42)
	po := pendingOrder(t, 9001)

	f.source.On("ListPending", mock.Anything).Return([]order.PendingOrder{po}, nil)
	f.erpOrders.On("ExistsByExternalCode", mock.Anything, "9001").Return(false, nil)
	f.matcher.On("FindOrCreate", mock.Anything, mock.Anything).
		Return(&partner.Counterparty{Ref: "agent/1"}, nil)
	f.locator.On("FindImportableByStorefrontID", mock.Anything, int64(501)).
		Return([]*catalog.Item{}, nil)

	report := sync.NewReport()
	needsSync, err := f.ingester.IngestPending(context.Background(), report)

	require.NoError(t, err)
	assert.True(t, needsSync)
	f.erpOrders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.completer.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything)
	require.Len(t, report.Entries(sync.GroupErrors), 1)
}

func TestIngestPending_AmbiguousCounterpartEscalatesTask(t *testing.T) {
	f := newFixture(t, 42)
	po := pendingOrder(t, 9001)

	f.source.On("ListPending", mock.Anything).Return([]order.PendingOrder{po}, nil)
	f.erpOrders.On("ExistsByExternalCode", mock.Anything, "9001").Return(false, nil)
	f.matcher.On("FindOrCreate", mock.Anything, mock.Anything).
		Return(&partner.Counterparty{Ref: "agent/1"}, nil)
	f.locator.On("FindImportableByStorefrontID", mock.Anything, int64(501)).
		Return([]*catalog.Item{{Ref: "item/a"}, {Ref: "item/b"}}, nil)
	f.escalator.On("EscalateUnique", mock.Anything,
		"Storefront product 501 is claimed by 2 ERP items").Return(nil)

	report := sync.NewReport()
	needsSync, err := f.ingester.IngestPending(context.Background(), report)

	require.NoError(t, err)
	assert.False(t, needsSync)
	f.erpOrders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.escalator.AssertExpectations(t)
	require.Len(t, report.Entries(sync.GroupErrors), 1)
	assert.Contains(t, report.Entries(sync.GroupErrors)[0], "2 ERP items")
}

func TestIngestPending_UnmappedPaymentMethodLeavesOrderPending(t *testing.T) {
	f := newFixture(t, 42)
	po := pendingOrder(t, 9001)
	po.PaymentMethod = "crypto"

	f.source.On("ListPending", mock.Anything).Return([]order.PendingOrder{po}, nil)
	f.erpOrders.On("ExistsByExternalCode", mock.Anything, "9001").Return(false, nil)
	f.matcher.On("FindOrCreate", mock.Anything, mock.Anything).
		Return(&partner.Counterparty{Ref: "agent/1"}, nil)

	report := sync.NewReport()
	_, err := f.ingester.IngestPending(context.Background(), report)

	require.NoError(t, err)
	f.erpOrders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.completer.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything)
	require.Len(t, report.Entries(sync.GroupErrors), 1)
	assert.Contains(t, report.Entries(sync.GroupErrors)[0], "crypto")
}

func TestIngestPending_SetupFailsOnUnknownStateName(t *testing.T) {
	f := &fixture{
		source:    new(MockSource),
		completer: new(MockCompleter),
		erpOrders: new(MockErpOrders),
		master:    new(MockMasterData),
		locator:   new(MockLocator),
		matcher:   new(MockMatcher),
		escalator: new(MockEscalator),
	}
	f.master.On("ListOrganizations", mock.Anything).Return([]shared.NamedRef{{Ref: "org/1"}}, nil)
	f.master.On("ListStores", mock.Anything).Return([]shared.NamedRef{
		{Ref: "store/1", Name: "Main warehouse"},
	}, nil)
	f.master.On("ListOrderStates", mock.Anything).Return([]shared.NamedRef{
		{Ref: "state/1", Name: "Something else"},
	}, nil)

	ingester := NewIngester(
		f.source, f.completer, f.erpOrders, f.master, f.locator,
		f.matcher, f.escalator, testConfig(), zap.NewNop())

	_, err := ingester.IngestPending(context.Background(), sync.NewReport())

	require.Error(t, err)
	assert.True(t, shared.IsConfiguration(err))
	f.source.AssertNotCalled(t, "ListPending", mock.Anything)
}

// ---------------------------------------------------------------------------
// UniqueTasks
// ---------------------------------------------------------------------------

func TestUniqueTasks_CreatesOnlyWhenAbsent(t *testing.T) {
	tasks := new(MockTasks)
	tasks.On("ExistsByDescription", mock.Anything, "fresh problem").Return(false, nil)
	tasks.On("Create", mock.Anything, order.Task{
		Description: "fresh problem",
		AssigneeRef: "employee/1",
	}).Return(nil)
	tasks.On("ExistsByDescription", mock.Anything, "known problem").Return(true, nil)

	svc := NewUniqueTasks(tasks, "employee/1", zap.NewNop())

	require.NoError(t, svc.EscalateUnique(context.Background(), "fresh problem"))
	require.NoError(t, svc.EscalateUnique(context.Background(), "known problem"))

	tasks.AssertNumberOfCalls(t, "Create", 1)
}
