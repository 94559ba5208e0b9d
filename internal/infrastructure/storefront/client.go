package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/wooms/storesync/internal/domain/shared"
	"github.com/wooms/storesync/internal/domain/shared/valueobject"
	"github.com/wooms/storesync/internal/domain/sync"
)

// maxResponseSize caps remote response bodies at 32MB
const maxResponseSize = 32 << 20

// pendingStatus is the storefront order status awaiting ingestion
const pendingStatus = "processing"

// completedStatus is the status set after successful ingestion
const completedStatus = "completed"

// pickupMetaKey is the order metadata key carrying the pickup-store hint
const pickupMetaKey = "pickup_store"

// Config holds the storefront client settings
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Timeout        time.Duration
	PerPage        int
	ReadOnly       bool
	MaxRetries     uint64
}

// Client is the HTTP client for the storefront REST API. It implements
// sync.Catalog, order.Source and order.Completer. In read-only mode every
// write call is a no-op returning a well-formed empty result, so dry runs
// still produce complete reports.
//
// Client is not safe for concurrent use; the engine is single-threaded.
type Client struct {
	httpClient *http.Client
	baseURL    string
	key        string
	secret     string
	perPage    int
	readOnly   bool
	maxRetries uint64
	log        *zap.Logger

	// variationParents remembers which product owns each listed variation
	// so updates can be routed through the parent endpoint.
	variationParents map[int64]int64
}

// NewClient creates a storefront client
func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PerPage == 0 {
		cfg.PerPage = 50
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 4
	}
	return &Client{
		httpClient:       &http.Client{Timeout: cfg.Timeout},
		baseURL:          cfg.BaseURL,
		key:              cfg.ConsumerKey,
		secret:           cfg.ConsumerSecret,
		perPage:          cfg.PerPage,
		readOnly:         cfg.ReadOnly,
		maxRetries:       cfg.MaxRetries,
		log:              log,
		variationParents: make(map[int64]int64),
	}
}

// ReadOnly reports whether the global read-only mode is set
func (c *Client) ReadOnly() bool {
	return c.readOnly
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// do performs one authenticated API call with bounded retry on 429 and 5xx
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	q := url.Values{}
	for key, values := range query {
		q[key] = values
	}
	q.Set("consumer_key", c.key)
	q.Set("consumer_secret", c.secret)
	endpoint := c.baseURL + path + "?" + q.Encode()

	attempt := func() ([]byte, error) {
		var reader io.Reader
		if encoded != nil {
			reader = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if encoded != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return raw, nil
		}

		remoteErr := remoteError(resp.StatusCode, raw)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, remoteErr
		}
		return nil, backoff.Permanent(remoteErr)
	}

	var raw []byte
	operation := func() error {
		var err error
		raw, err = attempt()
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		c.log.Warn("storefront request retried",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("parse %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// remoteError decodes the storefront error payload into a RemoteError
func remoteError(status int, body []byte) error {
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return shared.NewRemoteError("storefront", status, payload.Message)
	}
	return shared.NewRemoteError("storefront", status)
}

// listPages walks a collection endpoint page by page until a short page
// signals the end.
func (c *Client) listPages(ctx context.Context, path string, query url.Values, each func(json.RawMessage) error) error {
	page := 1
	for {
		q := url.Values{}
		for key, values := range query {
			q[key] = values
		}
		q.Set("per_page", strconv.Itoa(c.perPage))
		q.Set("page", strconv.Itoa(page))

		var rows []json.RawMessage
		if err := c.do(ctx, http.MethodGet, path, q, nil, &rows); err != nil {
			return err
		}
		for _, row := range rows {
			if err := each(row); err != nil {
				return err
			}
		}
		if len(rows) < c.perPage {
			return nil
		}
		page++
	}
}

// ---------------------------------------------------------------------------
// Wire shapes
// ---------------------------------------------------------------------------

type metaDataJSON struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type productJSON struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	Type         string         `json:"type,omitempty"`
	Status       string         `json:"status,omitempty"`
	SKU          string         `json:"sku,omitempty"`
	Virtual      bool           `json:"virtual,omitempty"`
	RegularPrice string         `json:"regular_price"`
	SalePrice    string         `json:"sale_price"`
	MetaData     []metaDataJSON `json:"meta_data,omitempty"`
}

func (p productJSON) toDomain() (sync.StorefrontProduct, error) {
	product := sync.StorefrontProduct{
		ID:   p.ID,
		Name: p.Name,
		Type: p.Type,
		SKU:  p.SKU,
	}
	for _, meta := range p.MetaData {
		if meta.Key != sync.ErpRefMetaKey {
			continue
		}
		if ref, ok := meta.Value.(string); ok {
			product.ErpRef = ref
		}
	}

	regular, err := parsePrice(p.RegularPrice)
	if err != nil {
		return sync.StorefrontProduct{}, shared.NewParseError("regular_price", p.RegularPrice, err)
	}
	product.RegularPrice = regular

	sale, err := parsePrice(p.SalePrice)
	if err != nil {
		return sync.StorefrontProduct{}, shared.NewParseError("sale_price", p.SalePrice, err)
	}
	product.SalePrice = sale

	return product, nil
}

// parsePrice converts a storefront decimal string; empty means unset
func parsePrice(raw string) (*valueobject.Money, error) {
	if raw == "" {
		return nil, nil
	}
	money, err := valueobject.NewMoneyFromString(raw)
	if err != nil {
		return nil, err
	}
	return &money, nil
}

// ---------------------------------------------------------------------------
// sync.Catalog
// ---------------------------------------------------------------------------

// ListProducts lists all storefront products
func (c *Client) ListProducts(ctx context.Context) ([]sync.StorefrontProduct, error) {
	var products []sync.StorefrontProduct
	err := c.listPages(ctx, "/products", nil, func(row json.RawMessage) error {
		var raw productJSON
		if err := json.Unmarshal(row, &raw); err != nil {
			return fmt.Errorf("parse product row: %w", err)
		}
		product, err := raw.toDomain()
		if err != nil {
			return err
		}
		products = append(products, product)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// ListVariations lists the variations of a variable product
func (c *Client) ListVariations(ctx context.Context, productID int64) ([]sync.StorefrontProduct, error) {
	path := fmt.Sprintf("/products/%d/variations", productID)
	var variations []sync.StorefrontProduct
	err := c.listPages(ctx, path, nil, func(row json.RawMessage) error {
		var raw productJSON
		if err := json.Unmarshal(row, &raw); err != nil {
			return fmt.Errorf("parse variation row: %w", err)
		}
		variation, err := raw.toDomain()
		if err != nil {
			return err
		}
		c.variationParents[variation.ID] = productID
		variations = append(variations, variation)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return variations, nil
}

// CreateProduct creates a product. In read-only mode the returned product
// carries a zero ID.
func (c *Client) CreateProduct(ctx context.Context, np sync.NewProduct) (*sync.StorefrontProduct, error) {
	if c.readOnly {
		c.log.Info("read-only mode, product creation skipped", zap.String("name", np.Name))
		return &sync.StorefrontProduct{Name: np.Name, ErpRef: np.ErpRef}, nil
	}

	var created productJSON
	if err := c.do(ctx, http.MethodPost, "/products", nil, newProductPayload(np), &created); err != nil {
		return nil, fmt.Errorf("create product %q: %w", np.Name, err)
	}
	product, err := created.toDomain()
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateVariation creates a variation under the parent product. In
// read-only mode the returned variation carries a zero ID.
func (c *Client) CreateVariation(ctx context.Context, parentID int64, np sync.NewProduct) (*sync.StorefrontProduct, error) {
	if c.readOnly {
		c.log.Info("read-only mode, variation creation skipped", zap.String("name", np.Name))
		return &sync.StorefrontProduct{Name: np.Name, ErpRef: np.ErpRef}, nil
	}

	path := fmt.Sprintf("/products/%d/variations", parentID)
	var created productJSON
	if err := c.do(ctx, http.MethodPost, path, nil, newProductPayload(np), &created); err != nil {
		return nil, fmt.Errorf("create variation %q: %w", np.Name, err)
	}
	variation, err := created.toDomain()
	if err != nil {
		return nil, err
	}
	c.variationParents[variation.ID] = parentID
	return &variation, nil
}

// UpdateProduct applies the changed fields to the product or variation
func (c *Client) UpdateProduct(ctx context.Context, productID int64, update sync.ProductUpdate) error {
	if c.readOnly {
		c.log.Info("read-only mode, product update skipped", zap.Int64("product", productID))
		return nil
	}

	payload := map[string]any{}
	if update.Name != nil {
		payload["name"] = *update.Name
	}
	if update.RegularPrice != nil {
		payload["regular_price"] = update.RegularPrice.StringFixed(2)
	}
	if update.SalePrice != nil {
		payload["sale_price"] = update.SalePrice.StringFixed(2)
	}
	if update.ClearSalePrice {
		payload["sale_price"] = ""
	}

	path := fmt.Sprintf("/products/%d", productID)
	if parentID, ok := c.variationParents[productID]; ok {
		path = fmt.Sprintf("/products/%d/variations/%d", parentID, productID)
	}
	if err := c.do(ctx, http.MethodPut, path, nil, payload, nil); err != nil {
		return fmt.Errorf("update product %d: %w", productID, err)
	}
	return nil
}

func newProductPayload(np sync.NewProduct) map[string]any {
	payload := map[string]any{
		"name":          np.Name,
		"status":        np.Status,
		"regular_price": np.RegularPrice.StringFixed(2),
		"meta_data": []metaDataJSON{
			{Key: sync.ErpRefMetaKey, Value: np.ErpRef},
		},
	}
	if np.Type != "" {
		payload["type"] = np.Type
	}
	if np.SKU != "" {
		payload["sku"] = np.SKU
	}
	if np.Virtual {
		payload["virtual"] = true
	}
	if np.SalePrice != nil {
		payload["sale_price"] = np.SalePrice.StringFixed(2)
	}
	if len(np.Attributes) > 0 {
		attrs := make([]map[string]any, 0, len(np.Attributes))
		for name, option := range np.Attributes {
			attrs = append(attrs, map[string]any{"name": name, "option": option})
		}
		payload["attributes"] = attrs
	}
	return payload
}
