package catalog

import (
	"errors"

	"github.com/wooms/storesync/internal/domain/shared/valueobject"
)

var (
	ErrUnknownItemKind    = errors.New("catalog: unknown item kind")
	ErrVariantHasNoParent = errors.New("catalog: variant has no parent product")
)

// ItemKind discriminates the closed assortment union
type ItemKind string

const (
	// KindProduct is a plain sellable product, possibly with variants
	KindProduct ItemKind = "product"
	// KindService is a virtual item with no physical stock
	KindService ItemKind = "service"
	// KindBundle is a fixed composition of other items sold as one
	KindBundle ItemKind = "bundle"
	// KindVariant is a modification of a parent product
	KindVariant ItemKind = "variant"
)

// IsValid returns true if the item kind is valid
func (k ItemKind) IsValid() bool {
	switch k {
	case KindProduct, KindService, KindBundle, KindVariant:
		return true
	default:
		return false
	}
}

// String returns the string representation of ItemKind
func (k ItemKind) String() string {
	return string(k)
}

// PriceType is a named pricing tier attached to a sale-price entry
type PriceType struct {
	// Ref is the opaque stable reference of the price type
	Ref string
	// Name is the display name, e.g. "Retail" or "Wholesale"
	Name string
}

// SalePrice is one (price-type, amount) entry of an item.
// Price types are unique within one item.
type SalePrice struct {
	Type  PriceType
	Value valueobject.Money
}

// Item is one entry of the ERP assortment: a product, service, bundle or
// variant. The union is closed - Kind discriminates, and the capability
// accessors below replace ad hoc type inspection.
type Item struct {
	// ID is the ERP identifier of the item
	ID string
	// Ref is the opaque stable reference used for external links
	Ref string
	// Name is the display name
	Name string
	// Kind discriminates the assortment union
	Kind ItemKind
	// Article is the optional SKU code (products only)
	Article string
	// HasVariants is true for products that own variants
	HasVariants bool
	// Importable is true when the item is flagged eligible for storefront
	// creation and sync
	Importable bool
	// CategoryRef is the owning category reference; empty when the item is
	// uncategorized. Never set on variants.
	CategoryRef string
	// StorefrontID is the linked storefront entity id read from the
	// external-reference attribute; zero when the item is unlinked
	StorefrontID int64
	// Parent is the owning product, set on variants only
	Parent *Item
	// SalePrices holds the (price-type, amount) entries of the item
	SalePrices []SalePrice
}

// Category returns the owning category reference of the item. For a variant
// the parent product's category is used. The second return is false when the
// item has no category.
func (i *Item) Category() (string, bool) {
	if i.Kind == KindVariant {
		if i.Parent == nil {
			return "", false
		}
		return i.Parent.Category()
	}
	if i.CategoryRef == "" {
		return "", false
	}
	return i.CategoryRef, true
}

// SalePriceFor returns the sale-price entry matching the given price type
// reference. The second return is false when the item carries no entry for
// that type.
func (i *Item) SalePriceFor(priceTypeRef string) (valueobject.Money, bool) {
	for _, sp := range i.SalePrices {
		if sp.Type.Ref == priceTypeRef {
			return sp.Value, true
		}
	}
	return valueobject.Money{}, false
}
