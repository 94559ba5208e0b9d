package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/wooms/storesync/internal/domain/shared"
	"github.com/wooms/storesync/internal/domain/shared/valueobject"
)

// Quote is the result of price resolution for one item
type Quote struct {
	// Regular is the sale-price entry matching the account's default price type
	Regular valueobject.Money

	effective valueobject.Money
}

// Effective returns the cheapest applicable price, never above Regular
func (q Quote) Effective() valueobject.Money {
	return q.effective
}

// Sale returns the discounted price. The second return is false when no
// discount applies, i.e. the effective price equals the regular price;
// callers must treat that as "no sale price", not a zero-value sale price.
func (q Quote) Sale() (valueobject.Money, bool) {
	if q.effective.Equals(q.Regular) {
		return valueobject.Money{}, false
	}
	return q.effective, true
}

// Resolver computes authoritative prices for catalog items from the set of
// discount rules. The rule set is loaded once and treated as immutable for
// the resolver's lifetime; there is no hot-reload.
//
// Resolution is a pure function over the loaded rules: of all rules
// applicable to an item and customer group, the single cheapest benefit
// wins - either the best percent discount off the default price or the
// cheapest substituted price-type entry. Discount shapes are not additive.
type Resolver struct {
	defaultType PriceType
	rules       []DiscountRule
}

// NewResolver creates a price resolver over the given rule set. Inactive
// rules are dropped up front.
func NewResolver(defaultType PriceType, rules []DiscountRule) *Resolver {
	active := make([]DiscountRule, 0, len(rules))
	for _, r := range rules {
		if r.Active {
			active = append(active, r)
		}
	}
	return &Resolver{defaultType: defaultType, rules: active}
}

// DefaultPriceType returns the account's configured default price type
func (r *Resolver) DefaultPriceType() PriceType {
	return r.defaultType
}

// DefaultPrice returns the item's sale-price entry for the default price
// type. A missing entry is a configuration error; the caller must skip the
// item, not abort the batch.
func (r *Resolver) DefaultPrice(item *Item) (valueobject.Money, error) {
	price, ok := item.SalePriceFor(r.defaultType.Ref)
	if !ok {
		return valueobject.Money{}, shared.NewConfigurationError(
			"default price type", "no %q price on item %q", r.defaultType.Name, item.Name)
	}
	return price, nil
}

// Resolve computes the default and effective price of the item for the
// given customer group tag. The effective price is rounded half-to-even to
// two decimal places.
func (r *Resolver) Resolve(item *Item, customerGroupTag string) (Quote, error) {
	regular, err := r.DefaultPrice(item)
	if err != nil {
		return Quote{}, err
	}

	maxPercent := decimal.Zero
	var substitutedTypes []string
	for _, rule := range r.rules {
		if !rule.AppliesToGroup(customerGroupTag) || !rule.AppliesToItem(item) {
			continue
		}
		if rule.UsesPriceType() {
			substitutedTypes = appendUnique(substitutedTypes, rule.PriceTypeRef())
			continue
		}
		if rule.Percent().GreaterThan(maxPercent) {
			maxPercent = rule.Percent()
		}
	}

	effective := regular
	for _, typeRef := range substitutedTypes {
		candidate, ok := item.SalePriceFor(typeRef)
		if !ok {
			continue
		}
		if less, _ := candidate.LessThan(effective); less {
			effective = candidate
		}
	}

	fromPercent := regular.ApplyDiscount(maxPercent)
	if less, _ := fromPercent.LessThan(effective); less {
		effective = fromPercent
	}

	return Quote{Regular: regular, effective: effective.RoundBank(2)}, nil
}

func appendUnique(refs []string, ref string) []string {
	for _, existing := range refs {
		if existing == ref {
			return refs
		}
	}
	return append(refs, ref)
}
