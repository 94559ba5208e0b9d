package catalog

import "context"

// Reader provides read access to the ERP assortment and pricing data.
// Implementations live in the infrastructure layer (ports & adapters).
type Reader interface {
	// ListItems lists all products, services and bundles. Category
	// references are resolved where the ERP knows them.
	ListItems(ctx context.Context) ([]*Item, error)

	// ListVariants lists all variants with their parent product attached
	ListVariants(ctx context.Context) ([]*Item, error)

	// ListActiveDiscounts lists the authored discount rules
	ListActiveDiscounts(ctx context.Context) ([]DiscountRule, error)

	// DefaultPriceType returns the account's default price type
	DefaultPriceType(ctx context.Context) (PriceType, error)
}

// LinkWriter writes the storefront counterpart id onto an ERP item's
// external-reference attribute.
type LinkWriter interface {
	// SetStorefrontID stores the storefront entity id on the item
	SetStorefrontID(ctx context.Context, item *Item, storefrontID int64) error
}

// Locator finds importable assortment entities by their storefront link
// attribute. Used during order ingestion to resolve line items.
type Locator interface {
	// FindImportableByStorefrontID returns every importable product or
	// bundle whose external-reference attribute equals the given
	// storefront product id. Callers enforce the exactly-one contract.
	FindImportableByStorefrontID(ctx context.Context, storefrontID int64) ([]*Item, error)
}
