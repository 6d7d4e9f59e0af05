package emailutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercase", input: "user@example.com", expected: "user@example.com"},
		{name: "mixed case", input: "User@Example.Com", expected: "user@example.com"},
		{name: "surrounding whitespace", input: "  User@Example.Com  ", expected: "user@example.com"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("user@example.com"))
	assert.NoError(t, Validate(" user@example.com "))

	assert.ErrorContains(t, Validate(""), "email is required")
	assert.ErrorContains(t, Validate("not-an-email"), "invalid email address")
	assert.ErrorContains(t, Validate("Jane <jane@example.com>"), "invalid email address")
}
