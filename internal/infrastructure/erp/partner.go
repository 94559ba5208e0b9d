package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wooms/storesync/internal/domain/partner"
)

// Counterparties implements partner.Directory on top of the shared client
type Counterparties struct {
	client *Client
}

// NewCounterparties creates the counterparty adapter
func NewCounterparties(client *Client) *Counterparties {
	return &Counterparties{client: client}
}

type counterpartyRow struct {
	metaRef
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Phone string   `json:"phone"`
	Email string   `json:"email"`
	Tags  []string `json:"tags"`
}

func (r counterpartyRow) toCounterparty() partner.Counterparty {
	return partner.Counterparty{
		ID:    r.ID,
		Ref:   r.Meta.Href,
		Name:  r.Name,
		Phone: r.Phone,
		Email: r.Email,
		Tags:  r.Tags,
	}
}

// FindByPhone returns counterparties whose stored phone equals the given
// canonical number exactly.
func (cp *Counterparties) FindByPhone(ctx context.Context, phone string) ([]partner.Counterparty, error) {
	return cp.find(ctx, "phone="+phone)
}

// FindByEmail returns counterparties whose stored email equals the given
// address exactly.
func (cp *Counterparties) FindByEmail(ctx context.Context, email string) ([]partner.Counterparty, error) {
	return cp.find(ctx, "email="+email)
}

func (cp *Counterparties) find(ctx context.Context, filter string) ([]partner.Counterparty, error) {
	query := url.Values{"filter": {filter}}
	var matches []partner.Counterparty
	err := cp.client.listAll(ctx, "/entity/counterparty", query, func(row json.RawMessage) error {
		var raw counterpartyRow
		if err := json.Unmarshal(row, &raw); err != nil {
			return fmt.Errorf("parse counterparty row: %w", err)
		}
		matches = append(matches, raw.toCounterparty())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// List returns all counterparties
func (cp *Counterparties) List(ctx context.Context) ([]partner.Counterparty, error) {
	var counterparties []partner.Counterparty
	err := cp.client.listAll(ctx, "/entity/counterparty", nil, func(row json.RawMessage) error {
		var raw counterpartyRow
		if err := json.Unmarshal(row, &raw); err != nil {
			return fmt.Errorf("parse counterparty row: %w", err)
		}
		counterparties = append(counterparties, raw.toCounterparty())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counterparties, nil
}

// Create creates a new counterparty
func (cp *Counterparties) Create(ctx context.Context, nc partner.NewCounterparty) (*partner.Counterparty, error) {
	payload := map[string]any{
		"name": nc.Name,
		"tags": nc.Tags,
	}
	if nc.Phone != "" {
		payload["phone"] = nc.Phone
	}
	if nc.Email != "" {
		payload["email"] = nc.Email
	}
	if nc.Address != "" {
		payload["actualAddress"] = nc.Address
	}

	var raw counterpartyRow
	if err := cp.client.do(ctx, http.MethodPost, "/entity/counterparty", nil, payload, &raw); err != nil {
		return nil, fmt.Errorf("create counterparty %q: %w", nc.Name, err)
	}
	created := raw.toCounterparty()
	return &created, nil
}

// UpdatePhone replaces the stored phone of the counterparty
func (cp *Counterparties) UpdatePhone(ctx context.Context, id string, phone string) error {
	payload := map[string]any{"phone": phone}
	if err := cp.client.do(ctx, http.MethodPut, "/entity/counterparty/"+id, nil, payload, nil); err != nil {
		return fmt.Errorf("update counterparty phone: %w", err)
	}
	return nil
}
