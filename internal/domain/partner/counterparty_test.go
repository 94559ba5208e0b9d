package partner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContactDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		contact  Contact
		phone    string
		expected string
	}{
		{
			name:     "full contact",
			contact:  Contact{FirstName: "Anna", LastName: "Petrova"},
			phone:    "+79161234567",
			expected: "Anna Petrova +79161234567",
		},
		{
			name:     "no phone",
			contact:  Contact{FirstName: "Anna", LastName: "Petrova"},
			expected: "Anna Petrova",
		},
		{
			name:     "phone only",
			contact:  Contact{},
			phone:    "+79161234567",
			expected: "+79161234567",
		},
		{
			name:     "first name and phone",
			contact:  Contact{FirstName: "Anna"},
			phone:    "+79161234567",
			expected: "Anna +79161234567",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.contact.DisplayName(tt.phone))
		})
	}
}

func TestContactIsEmpty(t *testing.T) {
	assert.True(t, Contact{}.IsEmpty())
	assert.True(t, Contact{Address: "Somewhere 5"}.IsEmpty())
	assert.False(t, Contact{Phone: "+79161234567"}.IsEmpty())
	assert.False(t, Contact{Email: "a@b.c"}.IsEmpty())
	assert.False(t, Contact{FirstName: "Anna"}.IsEmpty())
}
