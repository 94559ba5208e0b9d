package phone

import (
	"errors"

	"github.com/nyaruka/phonenumbers"

	"github.com/wooms/storesync/internal/domain/shared"
)

// Normalizer converts raw phone input to canonical E.164 using libphonenumber
// parsing rules. It implements partner.PhoneNormalizer.
type Normalizer struct {
	region string
}

// NewNormalizer creates a normalizer. The region hint resolves national
// formats without a country prefix, e.g. "8 916 ..." under "RU".
func NewNormalizer(region string) *Normalizer {
	return &Normalizer{region: region}
}

// Normalize parses the raw input and renders it in E.164. Unparsable or
// invalid numbers yield a ParseError.
func (n *Normalizer) Normalize(raw string) (string, error) {
	parsed, err := phonenumbers.Parse(raw, n.region)
	if err != nil {
		return "", shared.NewParseError("phone", raw, err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", shared.NewParseError("phone", raw, errors.New("number is not valid"))
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
