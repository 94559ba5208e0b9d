package sync

import (
	"context"

	"github.com/wooms/storesync/internal/domain/shared/valueobject"
)

// Storefront product type flags
const (
	ProductTypeSimple   = "simple"
	ProductTypeVariable = "variable"
)

// Storefront entity status used for newly created counterparts
const StatusDraft = "draft"

// StorefrontProduct is the engine's view of one storefront catalog entity
// (a product or a variation).
type StorefrontProduct struct {
	// ID is the storefront identifier
	ID int64
	// Name is the display name
	Name string
	// Type is the storefront product type flag ("simple", "variable");
	// empty for variations
	Type string
	// SKU is the stock keeping unit code, empty when unset
	SKU string
	// ErpRef is the linked ERP reference from the entity metadata, empty
	// when the entity is not linked
	ErpRef string
	// RegularPrice is the undiscounted price; nil when unset
	RegularPrice *valueobject.Money
	// SalePrice is the discounted price; nil when no sale is active
	SalePrice *valueobject.Money
}

// NewProduct carries the fields of a storefront entity to be created
type NewProduct struct {
	// Name is the display name, copied from the ERP item
	Name string
	// Status is the publication status; counterparts are created as drafts
	Status string
	// Type is the product type flag, "variable" for multi-variant items
	Type string
	// SKU is set from the ERP article code when present
	SKU string
	// Virtual marks service items
	Virtual bool
	// ErpRef tags the new entity with the ERP reference
	ErpRef string
	// RegularPrice is the resolved default price
	RegularPrice valueobject.Money
	// SalePrice is the resolved discounted price; nil when no discount
	// applies
	SalePrice *valueobject.Money
	// Attributes are the variation attributes (variations only)
	Attributes map[string]string
}

// ProductUpdate carries only the fields that differ between the two
// systems; nil fields are left untouched on the storefront side so remote
// writes and audit noise stay minimal.
type ProductUpdate struct {
	// Name replaces the display name when set
	Name *string
	// RegularPrice replaces the undiscounted price when set
	RegularPrice *valueobject.Money
	// SalePrice replaces the discounted price when set; pointing at a zero
	// Money clears the sale price
	SalePrice *valueobject.Money
	// ClearSalePrice removes the sale price
	ClearSalePrice bool
}

// IsEmpty reports whether the update would not change anything
func (u ProductUpdate) IsEmpty() bool {
	return u.Name == nil && u.RegularPrice == nil && u.SalePrice == nil && !u.ClearSalePrice
}

// Catalog is the storefront catalog port. Implementations paginate
// internally and honor the global read-only mode: with it set, write calls
// are no-ops that still return well-formed empty results, so dry-run
// reconciliation reports can be produced safely.
type Catalog interface {
	// ListProducts lists all storefront products
	ListProducts(ctx context.Context) ([]StorefrontProduct, error)

	// ListVariations lists the variations of a variable product
	ListVariations(ctx context.Context, productID int64) ([]StorefrontProduct, error)

	// CreateProduct creates a product. In read-only mode the returned
	// product carries a zero ID.
	CreateProduct(ctx context.Context, np NewProduct) (*StorefrontProduct, error)

	// CreateVariation creates a variation under the parent product. In
	// read-only mode the returned variation carries a zero ID.
	CreateVariation(ctx context.Context, parentID int64, np NewProduct) (*StorefrontProduct, error)

	// UpdateProduct applies the changed fields to the product
	UpdateProduct(ctx context.Context, productID int64, update ProductUpdate) error

	// ReadOnly reports whether the global read-only mode is set
	ReadOnly() bool
}
