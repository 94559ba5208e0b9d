package partner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wooms/storesync/internal/domain/partner"
	"github.com/wooms/storesync/internal/domain/shared"
)

// Escalator records a warning as a deduplicated operator-facing follow-up
type Escalator interface {
	EscalateUnique(ctx context.Context, description string) error
}

// IdentityMatcher resolves storefront billing contacts to ERP
// counterparties: exact match by canonical phone first, then exact match by
// email, then creation of a new counterparty. Ambiguous matches (more than
// one hit) are never resolved silently - they surface as a data-integrity
// error the caller records against its unit of work.
type IdentityMatcher struct {
	directory  partner.Directory
	normalizer partner.PhoneNormalizer
	groupTag   string
	escalator  Escalator
	log        *zap.Logger
}

// NewIdentityMatcher creates an identity matcher. The group tag is attached
// to every counterparty the matcher creates. The escalator may be nil; it
// is used by the phone-renormalization sweep only.
func NewIdentityMatcher(
	directory partner.Directory,
	normalizer partner.PhoneNormalizer,
	groupTag string,
	escalator Escalator,
	log *zap.Logger,
) *IdentityMatcher {
	return &IdentityMatcher{
		directory:  directory,
		normalizer: normalizer,
		groupTag:   groupTag,
		escalator:  escalator,
		log:        log,
	}
}

// FindOrCreate resolves the contact to exactly one counterparty, creating
// one when no match exists. An ambiguous match at either lookup step, or a
// contact with no identity data at all, yields a DataIntegrityError.
func (m *IdentityMatcher) FindOrCreate(ctx context.Context, contact partner.Contact) (*partner.Counterparty, error) {
	if contact.IsEmpty() {
		return nil, shared.NewDataIntegrityError("contact carries no identity data")
	}

	phone := m.normalizePhone(contact.Phone)

	if phone != "" {
		matches, err := m.directory.FindByPhone(ctx, phone)
		if err != nil {
			return nil, fmt.Errorf("lookup by phone: %w", err)
		}
		switch len(matches) {
		case 0:
			// fall through to email
		case 1:
			m.log.Debug("counterparty found by phone",
				zap.String("phone", phone), zap.String("counterparty", matches[0].Name))
			return &matches[0], nil
		default:
			m.log.Warn("phone number matches multiple counterparties",
				zap.String("phone", phone), zap.Int("matches", len(matches)))
			return nil, shared.NewDataIntegrityError("phone %s matches %d counterparties", phone, len(matches))
		}
	}

	if contact.Email != "" {
		matches, err := m.directory.FindByEmail(ctx, contact.Email)
		if err != nil {
			return nil, fmt.Errorf("lookup by email: %w", err)
		}
		switch len(matches) {
		case 0:
			// fall through to creation
		case 1:
			m.log.Debug("counterparty found by email",
				zap.String("email", contact.Email), zap.String("counterparty", matches[0].Name))
			return &matches[0], nil
		default:
			m.log.Warn("email matches multiple counterparties",
				zap.String("email", contact.Email), zap.Int("matches", len(matches)))
			return nil, shared.NewDataIntegrityError("email %s matches %d counterparties", contact.Email, len(matches))
		}
	}

	return m.create(ctx, contact, phone)
}

func (m *IdentityMatcher) create(ctx context.Context, contact partner.Contact, phone string) (*partner.Counterparty, error) {
	// Keep the raw phone on the record when it did not normalize; losing
	// the number entirely is worse than storing it uncanonical.
	storedPhone := phone
	if storedPhone == "" {
		storedPhone = contact.Phone
	}

	created, err := m.directory.Create(ctx, partner.NewCounterparty{
		Name:    contact.DisplayName(storedPhone),
		Phone:   storedPhone,
		Email:   contact.Email,
		Address: contact.Address,
		Tags:    []string{m.groupTag},
	})
	if err != nil {
		return nil, fmt.Errorf("create counterparty: %w", err)
	}
	m.log.Info("new counterparty created", zap.String("counterparty", created.Name))
	return created, nil
}

// normalizePhone fails closed: an unparsable number is logged and treated
// as absent, the parse error never propagates.
func (m *IdentityMatcher) normalizePhone(raw string) string {
	if raw == "" {
		return ""
	}
	phone, err := m.normalizer.Normalize(raw)
	if err != nil {
		m.log.Warn("invalid phone number", zap.String("phone", raw), zap.Error(err))
		return ""
	}
	return phone
}

// RenormalizePhones sweeps all counterparties and rewrites stored phone
// numbers to the canonical E.164 format. Already-canonical numbers are left
// untouched; unparsable numbers are escalated as a deduplicated task.
// Idempotent: a second sweep over canonical data performs no writes.
func (m *IdentityMatcher) RenormalizePhones(ctx context.Context) error {
	counterparties, err := m.directory.List(ctx)
	if err != nil {
		return fmt.Errorf("list counterparties: %w", err)
	}

	for _, cp := range counterparties {
		if cp.Phone == "" {
			continue
		}

		canonical, err := m.normalizer.Normalize(cp.Phone)
		if err != nil {
			m.log.Warn("counterparty has invalid phone",
				zap.String("counterparty", cp.Name), zap.String("phone", cp.Phone), zap.Error(err))
			m.escalate(ctx, fmt.Sprintf("Counterparty %q: invalid phone %q", cp.Name, cp.Phone))
			continue
		}
		if canonical == cp.Phone {
			continue
		}

		if err := m.directory.UpdatePhone(ctx, cp.ID, canonical); err != nil {
			m.log.Error("phone update failed",
				zap.String("counterparty", cp.Name), zap.Error(err))
			continue
		}
		m.log.Info("counterparty phone reformatted",
			zap.String("counterparty", cp.Name),
			zap.String("from", cp.Phone),
			zap.String("to", canonical))
	}
	return nil
}

func (m *IdentityMatcher) escalate(ctx context.Context, description string) {
	if m.escalator == nil {
		return
	}
	if err := m.escalator.EscalateUnique(ctx, description); err != nil {
		m.log.Error("task escalation failed", zap.Error(err))
	}
}
