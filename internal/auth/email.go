package auth

import (
	"net/mail"
	"strings"
)

const maxEmailLength = 254

// NormalizeEmail trims and lower-cases the whole address, then checks it is
// a bare RFC 5322 address. Emails are compared case-insensitively everywhere
// because this is the only form that reaches the store.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrEmailRequired
	}
	if len(email) > maxEmailLength {
		return "", ErrInvalidEmailFormat
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		// display names ("Bob <a@x.com>") and anything mail rewrites are rejected
		return "", ErrInvalidEmailFormat
	}

	return email, nil
}
