package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	cfg := NewConfigurationError("default price type", "no entry on item %q", "Shoes")
	remote := NewRemoteError("erp", 502, "upstream unavailable")
	integrity := NewDataIntegrityError("phone %s duplicated", "+79161234567")
	parse := NewParseError("phone", "not-a-number", errors.New("bad input"))

	assert.True(t, IsConfiguration(cfg))
	assert.True(t, IsRemote(remote))
	assert.True(t, IsDataIntegrity(integrity))
	assert.True(t, IsParse(parse))

	assert.False(t, IsConfiguration(remote))
	assert.False(t, IsRemote(cfg))
	assert.False(t, IsDataIntegrity(parse))
	assert.False(t, IsParse(integrity))
}

func TestErrorTaxonomy_SurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("order 42: %w", NewConfigurationError("state", "unmapped payment method"))
	assert.True(t, IsConfiguration(wrapped))

	var target *ConfigurationError
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "state", target.Subject)
}

func TestRemoteErrorMessage(t *testing.T) {
	assert.Equal(t, "erp: request failed with status 502: a; b",
		NewRemoteError("erp", 502, "a", "b").Error())
	assert.Equal(t, "storefront: request failed with status 500",
		NewRemoteError("storefront", 500).Error())
}

func TestParseErrorUnwrap(t *testing.T) {
	cause := errors.New("the phone number supplied was too short")
	parse := NewParseError("phone", "123", cause)
	assert.ErrorIs(t, parse, cause)
}
