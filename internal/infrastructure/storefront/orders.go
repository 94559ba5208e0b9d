package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/wooms/storesync/internal/domain/order"
	"github.com/wooms/storesync/internal/domain/partner"
	"github.com/wooms/storesync/internal/domain/shared"
	"github.com/wooms/storesync/internal/domain/shared/valueobject"
)

type billingJSON struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address_1"`
}

type lineItemJSON struct {
	ProductID   int64  `json:"product_id"`
	VariationID int64  `json:"variation_id"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	Subtotal    string `json:"subtotal"`
}

type shippingLineJSON struct {
	MethodTitle string `json:"method_title"`
	Total       string `json:"total"`
}

type orderJSON struct {
	ID            int64              `json:"id"`
	Billing       billingJSON        `json:"billing"`
	PaymentMethod string             `json:"payment_method"`
	LineItems     []lineItemJSON     `json:"line_items"`
	ShippingLines []shippingLineJSON `json:"shipping_lines"`
	CustomerNote  string             `json:"customer_note"`
	MetaData      []metaDataJSON     `json:"meta_data"`
}

func (o orderJSON) toDomain() (order.PendingOrder, error) {
	pending := order.PendingOrder{
		ID: o.ID,
		Billing: partner.Contact{
			FirstName: o.Billing.FirstName,
			LastName:  o.Billing.LastName,
			Phone:     o.Billing.Phone,
			Email:     o.Billing.Email,
			Address:   o.Billing.Address,
		},
		PaymentMethod: o.PaymentMethod,
		CustomerNote:  o.CustomerNote,
	}
	for _, meta := range o.MetaData {
		if meta.Key != pickupMetaKey {
			continue
		}
		if store, ok := meta.Value.(string); ok {
			pending.PickupStore = store
		}
	}

	for _, line := range o.LineItems {
		subtotal, err := valueobject.NewMoneyFromString(line.Subtotal)
		if err != nil {
			return order.PendingOrder{}, shared.NewParseError("subtotal", line.Subtotal, err)
		}
		unitPrice := subtotal
		if line.Quantity > 1 {
			unitPrice = subtotal.DivideBy(int64(line.Quantity))
		}
		// Customers order the variation, not its parent.
		productID := line.ProductID
		if line.VariationID != 0 {
			productID = line.VariationID
		}
		pending.Items = append(pending.Items, order.LineItem{
			ProductID: productID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice,
		})
	}

	for _, line := range o.ShippingLines {
		total, err := valueobject.NewMoneyFromString(line.Total)
		if err != nil {
			return order.PendingOrder{}, shared.NewParseError("shipping total", line.Total, err)
		}
		pending.Shipping = append(pending.Shipping, order.ShippingLine{
			MethodTitle: line.MethodTitle,
			Total:       total,
		})
	}
	return pending, nil
}

// ListPending returns all storefront orders awaiting ingestion
func (c *Client) ListPending(ctx context.Context) ([]order.PendingOrder, error) {
	query := url.Values{"status": {pendingStatus}}
	var pending []order.PendingOrder
	err := c.listPages(ctx, "/orders", query, func(row json.RawMessage) error {
		var raw orderJSON
		if err := json.Unmarshal(row, &raw); err != nil {
			return fmt.Errorf("parse order row: %w", err)
		}
		po, err := raw.toDomain()
		if err != nil {
			return fmt.Errorf("order %d: %w", raw.ID, err)
		}
		pending = append(pending, po)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pending, nil
}

// MarkCompleted flips the storefront order to the completed status
func (c *Client) MarkCompleted(ctx context.Context, orderID int64) error {
	if c.readOnly {
		c.log.Info("read-only mode, order completion skipped", zap.Int64("order", orderID))
		return nil
	}
	payload := map[string]any{"status": completedStatus}
	path := fmt.Sprintf("/orders/%d", orderID)
	if err := c.do(ctx, http.MethodPut, path, nil, payload, nil); err != nil {
		return fmt.Errorf("complete order %d: %w", orderID, err)
	}
	return nil
}
