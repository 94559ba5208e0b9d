package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/wooms/storesync/internal/domain/catalog"
	"github.com/wooms/storesync/internal/domain/shared"
	"github.com/wooms/storesync/internal/domain/shared/valueobject"
)

// Custom attribute display names the engine relies on
const (
	// AttrStorefrontID carries the linked storefront entity id
	AttrStorefrontID = "wc_id"
	// AttrImportable flags an item as eligible for storefront sync
	AttrImportable = "import"
)

// ---------------------------------------------------------------------------
// Wire shapes
// ---------------------------------------------------------------------------

type salePriceRow struct {
	// Value is the amount in minor units
	Value     float64 `json:"value"`
	PriceType struct {
		metaRef
		Name string `json:"name"`
	} `json:"priceType"`
}

type itemRow struct {
	metaRef
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Article       string         `json:"article"`
	VariantsCount int            `json:"variantsCount"`
	ProductFolder *metaRef       `json:"productFolder"`
	SalePrices    []salePriceRow `json:"salePrices"`
	Attributes    []attributeRow `json:"attributes"`
}

type variantRow struct {
	metaRef
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Product    *itemRow       `json:"product"`
	SalePrices []salePriceRow `json:"salePrices"`
	Attributes []attributeRow `json:"attributes"`
}

type discountRow struct {
	metaRef
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Active         bool      `json:"active"`
	AllProducts    bool      `json:"allProducts"`
	AllAgents      bool      `json:"allAgents"`
	AgentTags      []string  `json:"agentTags"`
	Assortment     []metaRef `json:"assortment"`
	ProductFolders []metaRef `json:"productFolders"`
	Discount       *float64  `json:"discount"`
	SpecialPrice   *struct {
		PriceType struct {
			metaRef
			Name string `json:"name"`
		} `json:"priceType"`
	} `json:"specialPrice"`
}

// ---------------------------------------------------------------------------
// catalog.Reader
// ---------------------------------------------------------------------------

// ListItems lists all products, services and bundles
func (c *Client) ListItems(ctx context.Context) ([]*catalog.Item, error) {
	var items []*catalog.Item
	for _, source := range []struct {
		path string
		kind catalog.ItemKind
	}{
		{"/entity/product", catalog.KindProduct},
		{"/entity/service", catalog.KindService},
		{"/entity/bundle", catalog.KindBundle},
	} {
		kind := source.kind
		err := c.listAll(ctx, source.path, nil, func(row json.RawMessage) error {
			var raw itemRow
			if err := json.Unmarshal(row, &raw); err != nil {
				return fmt.Errorf("parse %s row: %w", kind, err)
			}
			items = append(items, c.itemFromRow(raw, kind))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

// ListVariants lists all variants with their parent product attached
func (c *Client) ListVariants(ctx context.Context) ([]*catalog.Item, error) {
	query := url.Values{"expand": {"product"}}
	var variants []*catalog.Item
	err := c.listAll(ctx, "/entity/variant", query, func(row json.RawMessage) error {
		var raw variantRow
		if err := json.Unmarshal(row, &raw); err != nil {
			return fmt.Errorf("parse variant row: %w", err)
		}

		variant := &catalog.Item{
			ID:         raw.ID,
			Ref:        raw.Meta.Href,
			Name:       raw.Name,
			Kind:       catalog.KindVariant,
			SalePrices: salePrices(raw.SalePrices),
		}
		if raw.Product != nil {
			variant.Parent = c.itemFromRow(*raw.Product, catalog.KindProduct)
			// Variants carry no import flag of their own; the parent decides.
			variant.Importable = variant.Parent.Importable
		}
		applyAttributes(variant, raw.Attributes)
		variants = append(variants, variant)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return variants, nil
}

// ListActiveDiscounts lists the authored discount rules. Inactive rules are
// included; the price resolver drops them.
func (c *Client) ListActiveDiscounts(ctx context.Context) ([]catalog.DiscountRule, error) {
	var rules []catalog.DiscountRule
	err := c.listAll(ctx, "/entity/specialpricediscount", nil, func(row json.RawMessage) error {
		var raw discountRow
		if err := json.Unmarshal(row, &raw); err != nil {
			return fmt.Errorf("parse discount row: %w", err)
		}

		scope := catalog.RuleScope{AllItems: raw.AllProducts}
		for _, entry := range raw.Assortment {
			scope.ItemRefs = append(scope.ItemRefs, entry.Meta.Href)
		}
		for _, folder := range raw.ProductFolders {
			scope.CategoryRefs = append(scope.CategoryRefs, folder.Meta.Href)
		}
		audience := catalog.RuleAudience{AllGroups: raw.AllAgents, GroupTags: raw.AgentTags}

		switch {
		case raw.SpecialPrice != nil:
			rules = append(rules, catalog.NewPriceTypeDiscount(
				raw.ID, raw.Name, raw.Active, scope, audience, raw.SpecialPrice.PriceType.Meta.Href))
		case raw.Discount != nil:
			rules = append(rules, catalog.NewPercentDiscount(
				raw.ID, raw.Name, raw.Active, scope, audience, decimal.NewFromFloat(*raw.Discount)))
		default:
			// A rule with neither shape grants nothing; skip it.
			c.log.Warn("discount rule has no benefit, skipped")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// DefaultPriceType returns the account's default price type
func (c *Client) DefaultPriceType(ctx context.Context) (catalog.PriceType, error) {
	var row struct {
		metaRef
		Name string `json:"name"`
	}
	if err := c.do(ctx, http.MethodGet, "/context/companysettings/pricetype/default", nil, nil, &row); err != nil {
		return catalog.PriceType{}, fmt.Errorf("default price type: %w", err)
	}
	return catalog.PriceType{Ref: row.Meta.Href, Name: row.Name}, nil
}

// ---------------------------------------------------------------------------
// catalog.LinkWriter / catalog.Locator
// ---------------------------------------------------------------------------

// SetStorefrontID stores the storefront entity id on the item's link
// attribute.
func (c *Client) SetStorefrontID(ctx context.Context, item *catalog.Item, storefrontID int64) error {
	attrs, err := c.productAttributes(ctx)
	if err != nil {
		return err
	}
	href, ok := attrs.href(AttrStorefrontID)
	if !ok {
		return shared.NewConfigurationError(AttrStorefrontID,
			"the ERP account defines no %q product attribute", AttrStorefrontID)
	}

	payload := map[string]any{
		"attributes": []map[string]any{
			{"meta": ref(href).Meta, "value": strconv.FormatInt(storefrontID, 10)},
		},
	}
	path := fmt.Sprintf("/entity/%s/%s", entityPath(item.Kind), item.ID)
	if err := c.do(ctx, http.MethodPut, path, nil, payload, nil); err != nil {
		return fmt.Errorf("set storefront id on %s: %w", item.Name, err)
	}
	item.StorefrontID = storefrontID
	return nil
}

// FindImportableByStorefrontID returns every importable product or bundle
// whose link attribute equals the given storefront id. Products are scanned
// before bundles, matching the order resolution contract.
func (c *Client) FindImportableByStorefrontID(ctx context.Context, storefrontID int64) ([]*catalog.Item, error) {
	var matches []*catalog.Item
	for _, probe := range []struct {
		path string
		kind catalog.ItemKind
	}{
		{"/entity/product", catalog.KindProduct},
		{"/entity/bundle", catalog.KindBundle},
	} {
		query := url.Values{"filter": {fmt.Sprintf("%s=%d", AttrStorefrontID, storefrontID)}}
		err := c.listAll(ctx, probe.path, query, func(row json.RawMessage) error {
			var raw itemRow
			if err := json.Unmarshal(row, &raw); err != nil {
				return fmt.Errorf("parse %s row: %w", probe.kind, err)
			}
			item := c.itemFromRow(raw, probe.kind)
			if item.Importable {
				matches = append(matches, item)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return matches, nil
}

// ---------------------------------------------------------------------------
// Row conversion
// ---------------------------------------------------------------------------

func (c *Client) itemFromRow(raw itemRow, kind catalog.ItemKind) *catalog.Item {
	item := &catalog.Item{
		ID:          raw.ID,
		Ref:         raw.Meta.Href,
		Name:        raw.Name,
		Kind:        kind,
		Article:     raw.Article,
		HasVariants: raw.VariantsCount > 0,
		SalePrices:  salePrices(raw.SalePrices),
	}
	if raw.ProductFolder != nil {
		item.CategoryRef = raw.ProductFolder.Meta.Href
	}
	applyAttributes(item, raw.Attributes)
	return item
}

func salePrices(rows []salePriceRow) []catalog.SalePrice {
	prices := make([]catalog.SalePrice, 0, len(rows))
	for _, row := range rows {
		prices = append(prices, catalog.SalePrice{
			Type:  catalog.PriceType{Ref: row.PriceType.Meta.Href, Name: row.PriceType.Name},
			Value: valueobject.NewMoneyFromMinorUnits(int64(row.Value)),
		})
	}
	return prices
}

// applyAttributes reads the import flag and the storefront link attribute
// off an entity's custom attribute values.
func applyAttributes(item *catalog.Item, attrs []attributeRow) {
	for _, attr := range attrs {
		switch attr.Name {
		case AttrImportable:
			if flag, ok := attr.Value.(bool); ok {
				item.Importable = flag
			}
		case AttrStorefrontID:
			item.StorefrontID = parseStorefrontID(attr.Value)
		}
	}
}

// parseStorefrontID tolerates both numeric and string attribute values
func parseStorefrontID(value any) int64 {
	switch v := value.(type) {
	case float64:
		return int64(v)
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return id
	default:
		return 0
	}
}

func entityPath(kind catalog.ItemKind) string {
	switch kind {
	case catalog.KindService:
		return "service"
	case catalog.KindBundle:
		return "bundle"
	case catalog.KindVariant:
		return "variant"
	default:
		return "product"
	}
}

// productAttributes lazily resolves the product attribute metadata
func (c *Client) productAttributes(ctx context.Context) (*attributeSet, error) {
	if c.productAttrs == nil {
		attrs, err := c.loadAttributes(ctx, "product")
		if err != nil {
			return nil, err
		}
		c.productAttrs = attrs
	}
	return c.productAttrs, nil
}
