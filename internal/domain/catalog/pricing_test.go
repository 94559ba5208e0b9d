package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wooms/storesync/internal/domain/shared"
	"github.com/wooms/storesync/internal/domain/shared/valueobject"
)

var (
	retail    = PriceType{Ref: "pt-retail", Name: "Retail"}
	wholesale = PriceType{Ref: "pt-wholesale", Name: "Wholesale"}
	promo     = PriceType{Ref: "pt-promo", Name: "Promo"}
)

func money(t *testing.T, s string) valueobject.Money {
	t.Helper()
	m, err := valueobject.NewMoneyFromString(s)
	require.NoError(t, err)
	return m
}

func testItem(t *testing.T, prices map[PriceType]string) *Item {
	t.Helper()
	item := &Item{
		ID:   "item-1",
		Ref:  "ref/item-1",
		Name: "Test item",
		Kind: KindProduct,
	}
	for pt, value := range prices {
		item.SalePrices = append(item.SalePrices, SalePrice{Type: pt, Value: money(t, value)})
	}
	return item
}

func everyone() RuleAudience { return RuleAudience{AllGroups: true} }
func everything() RuleScope  { return RuleScope{AllItems: true} }

func TestResolve_NoApplicableRules_EffectiveEqualsDefault(t *testing.T) {
	resolver := NewResolver(retail, nil)
	item := testItem(t, map[PriceType]string{retail: "100.00"})

	quote, err := resolver.Resolve(item, "vip")

	require.NoError(t, err)
	assert.True(t, quote.Effective().Equals(quote.Regular))
	_, hasSale := quote.Sale()
	assert.False(t, hasSale, "no discount must mean no sale price, not a zero one")
}

func TestResolve_MissingDefaultPriceType_ConfigurationError(t *testing.T) {
	resolver := NewResolver(retail, nil)
	item := testItem(t, map[PriceType]string{wholesale: "80.00"})

	_, err := resolver.Resolve(item, "vip")

	require.Error(t, err)
	assert.True(t, shared.IsConfiguration(err))
}

func TestResolve_PercentDiscount(t *testing.T) {
	rules := []DiscountRule{
		NewPercentDiscount("d1", "20 off", true, everything(), everyone(), decimal.NewFromInt(20)),
	}
	resolver := NewResolver(retail, rules)
	item := testItem(t, map[PriceType]string{retail: "100.00"})

	quote, err := resolver.Resolve(item, "vip")

	require.NoError(t, err)
	sale, ok := quote.Sale()
	require.True(t, ok)
	assert.Equal(t, "80.00", sale.StringFixed(2))
}

func TestResolve_PriceTypeDiscount(t *testing.T) {
	rules := []DiscountRule{
		NewPriceTypeDiscount("d1", "wholesale for vip", true, everything(), everyone(), wholesale.Ref),
	}
	resolver := NewResolver(retail, rules)
	item := testItem(t, map[PriceType]string{retail: "100.00", wholesale: "70.00"})

	quote, err := resolver.Resolve(item, "vip")

	require.NoError(t, err)
	sale, ok := quote.Sale()
	require.True(t, ok)
	assert.Equal(t, "70.00", sale.StringFixed(2))
}

func TestResolve_CheapestBenefitWins(t *testing.T) {
	rules := []DiscountRule{
		NewPercentDiscount("d1", "10 off", true, everything(), everyone(), decimal.NewFromInt(10)),
		NewPriceTypeDiscount("d2", "promo price", true, everything(), everyone(), promo.Ref),
	}
	resolver := NewResolver(retail, rules)
	item := testItem(t, map[PriceType]string{retail: "100.00", promo: "95.00"})

	quote, err := resolver.Resolve(item, "vip")

	require.NoError(t, err)
	sale, ok := quote.Sale()
	require.True(t, ok)
	assert.Equal(t, "90.00", sale.StringFixed(2), "min(100, 95, 90) must win")
}

func TestResolve_DiscountsNeverIncreasePrice(t *testing.T) {
	rules := []DiscountRule{
		// Substituted type is more expensive than the default price
		NewPriceTypeDiscount("d1", "bad promo", true, everything(), everyone(), promo.Ref),
	}
	resolver := NewResolver(retail, rules)
	item := testItem(t, map[PriceType]string{retail: "50.00", promo: "60.00"})

	quote, err := resolver.Resolve(item, "vip")

	require.NoError(t, err)
	less, lerr := quote.Regular.LessThan(quote.Effective())
	require.NoError(t, lerr)
	assert.False(t, less, "effective price must never exceed the default")
	_, hasSale := quote.Sale()
	assert.False(t, hasSale)
}

func TestResolve_InactiveRulesDropped(t *testing.T) {
	rules := []DiscountRule{
		NewPercentDiscount("d1", "suspended", false, everything(), everyone(), decimal.NewFromInt(50)),
	}
	resolver := NewResolver(retail, rules)
	item := testItem(t, map[PriceType]string{retail: "100.00"})

	quote, err := resolver.Resolve(item, "vip")

	require.NoError(t, err)
	_, hasSale := quote.Sale()
	assert.False(t, hasSale)
}

func TestResolve_AudienceFiltering(t *testing.T) {
	rules := []DiscountRule{
		NewPercentDiscount("d1", "vip only", true, everything(),
			RuleAudience{GroupTags: []string{"vip"}}, decimal.NewFromInt(20)),
	}
	resolver := NewResolver(retail, rules)
	item := testItem(t, map[PriceType]string{retail: "100.00"})

	vipQuote, err := resolver.Resolve(item, "vip")
	require.NoError(t, err)
	_, hasSale := vipQuote.Sale()
	assert.True(t, hasSale)

	plainQuote, err := resolver.Resolve(item, "regular")
	require.NoError(t, err)
	_, hasSale = plainQuote.Sale()
	assert.False(t, hasSale)
}

func TestResolve_ScopeFiltering(t *testing.T) {
	tests := []struct {
		name     string
		scope    RuleScope
		item     func(t *testing.T) *Item
		expected bool
	}{
		{
			name:  "explicit item reference included",
			scope: RuleScope{ItemRefs: []string{"ref/item-1"}},
			item: func(t *testing.T) *Item {
				return testItem(t, map[PriceType]string{retail: "100.00"})
			},
			expected: true,
		},
		{
			name:  "unlisted item excluded",
			scope: RuleScope{ItemRefs: []string{"ref/other"}},
			item: func(t *testing.T) *Item {
				return testItem(t, map[PriceType]string{retail: "100.00"})
			},
			expected: false,
		},
		{
			name:  "category allow-list",
			scope: RuleScope{CategoryRefs: []string{"cat/shoes"}},
			item: func(t *testing.T) *Item {
				item := testItem(t, map[PriceType]string{retail: "100.00"})
				item.CategoryRef = "cat/shoes"
				return item
			},
			expected: true,
		},
		{
			name:  "variant matches through parent category",
			scope: RuleScope{CategoryRefs: []string{"cat/shoes"}},
			item: func(t *testing.T) *Item {
				parent := testItem(t, map[PriceType]string{retail: "120.00"})
				parent.CategoryRef = "cat/shoes"
				parent.HasVariants = true
				variant := testItem(t, map[PriceType]string{retail: "100.00"})
				variant.Kind = KindVariant
				variant.Parent = parent
				return variant
			},
			expected: true,
		},
		{
			name:  "uncategorized item not matched by category list",
			scope: RuleScope{CategoryRefs: []string{"cat/shoes"}},
			item: func(t *testing.T) *Item {
				return testItem(t, map[PriceType]string{retail: "100.00"})
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := []DiscountRule{
				NewPercentDiscount("d1", "scoped", true, tt.scope, everyone(), decimal.NewFromInt(20)),
			}
			resolver := NewResolver(retail, rules)

			quote, err := resolver.Resolve(tt.item(t), "vip")

			require.NoError(t, err)
			_, hasSale := quote.Sale()
			assert.Equal(t, tt.expected, hasSale)
		})
	}
}

func TestResolve_RoundsHalfToEven(t *testing.T) {
	rules := []DiscountRule{
		NewPercentDiscount("d1", "odd percent", true, everything(), everyone(),
			decimal.RequireFromString("12.345")),
	}
	resolver := NewResolver(retail, rules)
	item := testItem(t, map[PriceType]string{retail: "100.00"})

	quote, err := resolver.Resolve(item, "vip")

	require.NoError(t, err)
	sale, ok := quote.Sale()
	require.True(t, ok)
	// 100 * (1 - 0.12345) = 87.655 -> banker's rounding -> 87.66
	assert.Equal(t, "87.66", sale.StringFixed(2))
}
