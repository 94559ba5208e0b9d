package order

import (
	"context"
	"fmt"

	"github.com/wooms/storesync/internal/domain/shared"
	"github.com/wooms/storesync/internal/domain/shared/valueobject"
)

// NumberPadding is the width of the zero-padded human-readable order number
const NumberPadding = 5

// FormatNumber renders an order sequence number in the zero-padded
// human-readable form the ERP expects, e.g. 42 -> "00042".
func FormatNumber(n int) string {
	return fmt.Sprintf("%0*d", NumberPadding, n)
}

// Position is one line of an ERP order draft
type Position struct {
	// AssortmentRef references the resolved ERP assortment entity
	AssortmentRef string
	// Quantity is the ordered quantity
	Quantity int
	// Price is the unit price
	Price valueobject.Money
}

// Draft carries everything needed to create one ERP customer order
type Draft struct {
	// Name is the zero-padded human-readable order number
	Name string
	// ExternalCode is the storefront order id, the idempotence key
	ExternalCode string
	// Description is the customer note
	Description string
	// AgentRef references the resolved counterparty
	AgentRef string
	// StateRef references the ERP order state mapped from the payment method
	StateRef string
	// OrganizationRef references the owning organization
	OrganizationRef string
	// StoreRef references the fulfilling warehouse
	StoreRef string
	// ProjectRef references the fulfillment project, empty when unmapped
	ProjectRef string
	// StorefrontID is the storefront order id written to the link attribute
	StorefrontID int64
	// Positions are the resolved order lines
	Positions []Position
}

// Validate checks the draft for required fields
func (d *Draft) Validate() error {
	if d.Name == "" {
		return shared.NewConfigurationError("order draft", "order number is required")
	}
	if d.ExternalCode == "" {
		return shared.NewConfigurationError("order draft", "external code is required")
	}
	if d.AgentRef == "" {
		return shared.NewConfigurationError("order draft", "counterparty is required")
	}
	if d.StateRef == "" {
		return shared.NewConfigurationError("order draft", "order state is required")
	}
	if len(d.Positions) == 0 {
		return shared.NewConfigurationError("order draft", "at least one position is required")
	}
	return nil
}

// Created describes an ERP order after successful creation
type Created struct {
	ID   string
	Name string
}

// ErpOrders provides read and write access to ERP customer orders
type ErpOrders interface {
	// LastNumber returns the numeric value of the newest order's name,
	// zero when no orders exist
	LastNumber(ctx context.Context) (int, error)

	// ExistsByExternalCode reports whether an order tagged with the given
	// storefront order id already exists
	ExistsByExternalCode(ctx context.Context, externalCode string) (bool, error)

	// Create creates the order. The success signal is authoritative: the
	// caller advances its order-number counter only after Create returns.
	Create(ctx context.Context, draft Draft) (*Created, error)
}

// Task is a follow-up task in the ERP system
type Task struct {
	// Description is the task text; it doubles as the deduplication key
	Description string
	// AssigneeRef references the employee the task is assigned to
	AssigneeRef string
}

// Tasks provides deduplicated follow-up task management
type Tasks interface {
	// ExistsByDescription reports whether a task with exactly this
	// description already exists
	ExistsByDescription(ctx context.Context, description string) (bool, error)

	// Create creates a new task
	Create(ctx context.Context, task Task) error
}

// MasterData resolves the ERP master-data references the ingester needs at
// setup time. A failure here makes the whole run meaningless and is fatal.
type MasterData interface {
	// ListOrganizations lists the account's organizations
	ListOrganizations(ctx context.Context) ([]shared.NamedRef, error)

	// ListStores lists the warehouses
	ListStores(ctx context.Context) ([]shared.NamedRef, error)

	// ListOrderStates lists the customer-order workflow states
	ListOrderStates(ctx context.Context) ([]shared.NamedRef, error)

	// ListProjects lists the fulfillment projects
	ListProjects(ctx context.Context) ([]shared.NamedRef, error)

	// GetService resolves a service item (e.g. a delivery service) by id
	GetService(ctx context.Context, id string) (shared.NamedRef, error)

	// GetEmployee resolves an employee by id
	GetEmployee(ctx context.Context, id string) (shared.NamedRef, error)
}
