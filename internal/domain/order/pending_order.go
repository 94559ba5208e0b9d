package order

import (
	"context"

	"github.com/wooms/storesync/internal/domain/partner"
	"github.com/wooms/storesync/internal/domain/shared/valueobject"
)

// LineItem is one product line of a pending storefront order
type LineItem struct {
	// ProductID is the storefront product (or variation) identifier
	ProductID int64
	// Name is the product name as ordered
	Name string
	// Quantity is the ordered quantity
	Quantity int
	// UnitPrice is the price the customer paid per unit
	UnitPrice valueobject.Money
}

// ShippingLine is one shipping charge of a pending storefront order
type ShippingLine struct {
	// MethodTitle is the storefront shipping method display name; it keys
	// the zone-to-service mapping
	MethodTitle string
	// Total is the shipping charge
	Total valueobject.Money
}

// PendingOrder is a storefront order awaiting ingestion into the ERP.
// It is consumed exactly once: after successful ERP order creation the
// storefront order is marked completed; on any failure it stays pending and
// is retried on the next run.
type PendingOrder struct {
	// ID is the storefront order identifier
	ID int64
	// Billing is the billing contact block
	Billing partner.Contact
	// PaymentMethod is the storefront payment-method code
	PaymentMethod string
	// Items are the product lines
	Items []LineItem
	// Shipping are the shipping lines
	Shipping []ShippingLine
	// CustomerNote is the free-text note from the customer
	CustomerNote string
	// PickupStore is the fulfillment-project hint, empty for delivery orders
	PickupStore string
}

// Source lists pending storefront orders
type Source interface {
	// ListPending returns all storefront orders awaiting ingestion, in the
	// iteration order delivered by the storefront listing endpoint
	ListPending(ctx context.Context) ([]PendingOrder, error)
}

// Completer flips a storefront order out of the pending state
type Completer interface {
	// MarkCompleted marks the storefront order as completed so it is not
	// re-ingested
	MarkCompleted(ctx context.Context, orderID int64) error
}
