package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/wooms/storesync/internal/domain/order"
	"github.com/wooms/storesync/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// order.ErpOrders
// ---------------------------------------------------------------------------

// Orders implements order.ErpOrders on top of the shared client
type Orders struct {
	client *Client
}

// NewOrders creates the customer-order adapter
func NewOrders(client *Client) *Orders {
	return &Orders{client: client}
}

// LastNumber returns the numeric value of the newest order's name, zero when
// no orders exist. Names that do not parse as numbers are ignored.
func (o *Orders) LastNumber(ctx context.Context) (int, error) {
	query := url.Values{
		"order": {"created,desc"},
		"limit": {"1"},
	}
	var page struct {
		Rows []struct {
			Name string `json:"name"`
		} `json:"rows"`
	}
	if err := o.client.do(ctx, http.MethodGet, "/entity/customerorder", query, nil, &page); err != nil {
		return 0, fmt.Errorf("last order: %w", err)
	}
	if len(page.Rows) == 0 {
		return 0, nil
	}
	number, err := strconv.Atoi(page.Rows[0].Name)
	if err != nil {
		o.client.log.Warn("newest order has a non-numeric name")
		return 0, nil
	}
	return number, nil
}

// ExistsByExternalCode reports whether an order tagged with the given
// storefront order id already exists.
func (o *Orders) ExistsByExternalCode(ctx context.Context, externalCode string) (bool, error) {
	query := url.Values{
		"filter": {"externalCode=" + externalCode},
		"limit":  {"1"},
	}
	var page struct {
		Meta struct {
			Size int `json:"size"`
		} `json:"meta"`
	}
	if err := o.client.do(ctx, http.MethodGet, "/entity/customerorder", query, nil, &page); err != nil {
		return false, fmt.Errorf("order lookup by external code: %w", err)
	}
	return page.Meta.Size > 0, nil
}

// Create creates the customer order
func (o *Orders) Create(ctx context.Context, draft order.Draft) (*order.Created, error) {
	attrs, err := o.client.orderAttributes(ctx)
	if err != nil {
		return nil, err
	}
	attrHref, ok := attrs.href(AttrStorefrontID)
	if !ok {
		return nil, shared.NewConfigurationError(AttrStorefrontID,
			"the ERP account defines no %q order attribute", AttrStorefrontID)
	}

	positions := make([]map[string]any, 0, len(draft.Positions))
	for _, p := range draft.Positions {
		positions = append(positions, map[string]any{
			"assortment": ref(p.AssortmentRef),
			"quantity":   p.Quantity,
			// Wire prices are expressed in minor units.
			"price": p.Price.MinorUnits(),
		})
	}

	payload := map[string]any{
		"name":         draft.Name,
		"externalCode": draft.ExternalCode,
		"description":  draft.Description,
		"agent":        ref(draft.AgentRef),
		"state":        ref(draft.StateRef),
		"organization": ref(draft.OrganizationRef),
		"store":        ref(draft.StoreRef),
		"positions":    positions,
		"attributes": []map[string]any{
			{"meta": ref(attrHref).Meta, "value": strconv.FormatInt(draft.StorefrontID, 10)},
		},
	}
	if draft.ProjectRef != "" {
		payload["project"] = ref(draft.ProjectRef)
	}

	var row struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := o.client.do(ctx, http.MethodPost, "/entity/customerorder", nil, payload, &row); err != nil {
		return nil, fmt.Errorf("create order %s: %w", draft.Name, err)
	}
	return &order.Created{ID: row.ID, Name: row.Name}, nil
}

// ---------------------------------------------------------------------------
// order.Tasks
// ---------------------------------------------------------------------------

// Tasks implements order.Tasks on top of the shared client
type Tasks struct {
	client *Client
}

// NewTasks creates the follow-up task adapter
func NewTasks(client *Client) *Tasks {
	return &Tasks{client: client}
}

// ExistsByDescription reports whether a task with exactly this description
// already exists.
func (t *Tasks) ExistsByDescription(ctx context.Context, description string) (bool, error) {
	query := url.Values{
		"filter": {"description=" + description},
		"limit":  {"1"},
	}
	var page struct {
		Meta struct {
			Size int `json:"size"`
		} `json:"meta"`
	}
	if err := t.client.do(ctx, http.MethodGet, "/entity/task", query, nil, &page); err != nil {
		return false, fmt.Errorf("task lookup: %w", err)
	}
	return page.Meta.Size > 0, nil
}

// Create creates a new follow-up task
func (t *Tasks) Create(ctx context.Context, task order.Task) error {
	payload := map[string]any{
		"description": task.Description,
		"assignee":    ref(task.AssigneeRef),
	}
	if err := t.client.do(ctx, http.MethodPost, "/entity/task", nil, payload, nil); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// order.MasterData
// ---------------------------------------------------------------------------

// ListOrganizations lists the account's organizations
func (c *Client) ListOrganizations(ctx context.Context) ([]shared.NamedRef, error) {
	return c.listNamed(ctx, "/entity/organization")
}

// ListStores lists the warehouses
func (c *Client) ListStores(ctx context.Context) ([]shared.NamedRef, error) {
	return c.listNamed(ctx, "/entity/store")
}

// ListProjects lists the fulfillment projects
func (c *Client) ListProjects(ctx context.Context) ([]shared.NamedRef, error) {
	return c.listNamed(ctx, "/entity/project")
}

// ListOrderStates lists the customer-order workflow states
func (c *Client) ListOrderStates(ctx context.Context) ([]shared.NamedRef, error) {
	var metadata struct {
		States []namedRow `json:"states"`
	}
	if err := c.do(ctx, http.MethodGet, "/entity/customerorder/metadata", nil, nil, &metadata); err != nil {
		return nil, fmt.Errorf("order metadata: %w", err)
	}
	states := make([]shared.NamedRef, 0, len(metadata.States))
	for _, row := range metadata.States {
		states = append(states, row.toNamedRef())
	}
	return states, nil
}

// GetService resolves a service item by id
func (c *Client) GetService(ctx context.Context, id string) (shared.NamedRef, error) {
	return c.getNamed(ctx, "/entity/service/"+id)
}

// GetEmployee resolves an employee by id
func (c *Client) GetEmployee(ctx context.Context, id string) (shared.NamedRef, error) {
	return c.getNamed(ctx, "/entity/employee/"+id)
}

func (c *Client) listNamed(ctx context.Context, path string) ([]shared.NamedRef, error) {
	var refs []shared.NamedRef
	err := c.listAll(ctx, path, nil, func(raw json.RawMessage) error {
		var row namedRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return fmt.Errorf("parse %s row: %w", path, err)
		}
		refs = append(refs, row.toNamedRef())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (c *Client) getNamed(ctx context.Context, path string) (shared.NamedRef, error) {
	var row namedRow
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &row); err != nil {
		return shared.NamedRef{}, fmt.Errorf("get %s: %w", path, err)
	}
	return row.toNamedRef(), nil
}

// orderAttributes lazily resolves the customer-order attribute metadata
func (c *Client) orderAttributes(ctx context.Context) (*attributeSet, error) {
	if c.orderAttrs == nil {
		attrs, err := c.loadAttributes(ctx, "customerorder")
		if err != nil {
			return nil, err
		}
		c.orderAttrs = attrs
	}
	return c.orderAttrs, nil
}
