package partner

import (
	"context"
	"strings"
)

// Counterparty is an ERP-side customer record
type Counterparty struct {
	// ID is the ERP identifier
	ID string
	// Ref is the opaque stable reference
	Ref string
	// Name is the display name
	Name string
	// Phone is the stored phone number, E.164 when canonical, empty when absent
	Phone string
	// Email is the stored email, empty when absent
	Email string
	// Tags are the customer group tags
	Tags []string
}

// Contact is the billing contact block of a storefront order
type Contact struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Address   string
}

// DisplayName builds the fallback counterparty name from the contact
/// fields: "{first} {last} {phone}". Empty parts are dropped.
func (c Contact) DisplayName(phone string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{c.FirstName, c.LastName, phone} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

// IsEmpty reports whether the contact carries no usable identity data
func (c Contact) IsEmpty() bool {
	return c.Phone == "" && c.Email == "" && c.FirstName == "" && c.LastName == ""
}

// NewCounterparty carries the fields of a counterparty to be created
type NewCounterparty struct {
	Name    string
	Phone   string
	Email   string
	Address string
	Tags    []string
}

// Reader provides exact-match lookups over ERP counterparties. Lookups may
// return zero, one or several records; resolution policy lives with the
// caller.
type Reader interface {
	// FindByPhone returns counterparties whose stored phone equals the
	// given canonical number exactly
	FindByPhone(ctx context.Context, phone string) ([]Counterparty, error)

	// FindByEmail returns counterparties whose stored email equals the
	// given address exactly, case-sensitive as stored
	FindByEmail(ctx context.Context, email string) ([]Counterparty, error)

	// List returns all counterparties
	List(ctx context.Context) ([]Counterparty, error)
}

// Writer provides write access to ERP counterparties
type Writer interface {
	// Create creates a new counterparty
	Create(ctx context.Context, nc NewCounterparty) (*Counterparty, error)

	// UpdatePhone replaces the stored phone of the counterparty
	UpdatePhone(ctx context.Context, id string, phone string) error
}

// Directory combines counterparty read and write access
type Directory interface {
	Reader
	Writer
}

// PhoneNormalizer converts raw phone input to the canonical E.164 format.
// Unparsable input yields a shared.ParseError; callers fail closed by
// treating the phone as absent.
type PhoneNormalizer interface {
	Normalize(raw string) (string, error)
}
