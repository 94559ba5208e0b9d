package catalog

import (
	"github.com/shopspring/decimal"
)

// RuleScope limits a discount rule to a subset of the assortment.
// The zero value with AllItems set matches everything.
type RuleScope struct {
	// AllItems applies the rule to the whole assortment
	AllItems bool
	// ItemRefs is the explicit item allow-list (by stable reference)
	ItemRefs []string
	// CategoryRefs is the category allow-list
	CategoryRefs []string
}

// RuleAudience limits a discount rule to a subset of customer groups
type RuleAudience struct {
	// AllGroups applies the rule to every customer group
	AllGroups bool
	// GroupTags is the explicit group-tag allow-list
	GroupTags []string
}

// DiscountRule is one authored promotion. Exactly one of the two shapes -
// percent discount or price-type substitution - is populated; the two
// constructors make the shapes mutually exclusive by construction.
type DiscountRule struct {
	// ID is the ERP identifier of the rule
	ID string
	// Name is the display name
	Name string
	// Active is false for suspended rules; inactive rules never apply
	Active bool
	// Scope limits the rule to items/categories
	Scope RuleScope
	// Audience limits the rule to customer groups
	Audience RuleAudience

	usePriceType bool
	priceTypeRef string
	percent      decimal.Decimal
}

// NewPercentDiscount creates a rule that takes the given percentage (0-100)
// off the default price.
func NewPercentDiscount(id, name string, active bool, scope RuleScope, audience RuleAudience, percent decimal.Decimal) DiscountRule {
	return DiscountRule{
		ID:       id,
		Name:     name,
		Active:   active,
		Scope:    scope,
		Audience: audience,
		percent:  percent,
	}
}

// NewPriceTypeDiscount creates a rule that substitutes the sale-price entry
// of the referenced price type for the default price.
func NewPriceTypeDiscount(id, name string, active bool, scope RuleScope, audience RuleAudience, priceTypeRef string) DiscountRule {
	return DiscountRule{
		ID:           id,
		Name:         name,
		Active:       active,
		Scope:        scope,
		Audience:     audience,
		usePriceType: true,
		priceTypeRef: priceTypeRef,
	}
}

// UsesPriceType reports whether the rule is a price-type substitution
func (r DiscountRule) UsesPriceType() bool {
	return r.usePriceType
}

// PriceTypeRef returns the substituted price type reference for a
// price-type rule; empty for percent rules.
func (r DiscountRule) PriceTypeRef() string {
	return r.priceTypeRef
}

// Percent returns the discount percentage for a percent rule; zero for
// price-type rules.
func (r DiscountRule) Percent() decimal.Decimal {
	return r.percent
}

// AppliesToGroup reports whether the rule's audience includes the given
// customer group tag.
func (r DiscountRule) AppliesToGroup(groupTag string) bool {
	if r.Audience.AllGroups {
		return true
	}
	for _, tag := range r.Audience.GroupTags {
		if tag == groupTag {
			return true
		}
	}
	return false
}

// AppliesToItem reports whether the rule's scope includes the given item.
// An item is in scope when the rule covers the whole assortment, when the
// item's reference is on the explicit allow-list, or when the item's
// category (the parent product's category for variants) is on the category
// allow-list. Explicit references on the allow-list count as inclusion.
func (r DiscountRule) AppliesToItem(item *Item) bool {
	if r.Scope.AllItems {
		return true
	}
	for _, ref := range r.Scope.ItemRefs {
		if ref == item.Ref {
			return true
		}
	}
	category, ok := item.Category()
	if !ok {
		return false
	}
	for _, ref := range r.Scope.CategoryRefs {
		if ref == category {
			return true
		}
	}
	return false
}
