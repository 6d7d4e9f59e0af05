package emailutil

import (
	"fmt"
	"net/mail"
	"strings"
)

// Normalize lowercases and trims an address before it is sent to the backend
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks that email is a bare address (no display name)
func Validate(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address %q", email)
	}
	return nil
}
