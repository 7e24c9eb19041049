package domain

import (
	"net/mail"
	"strings"
)

// NormalizeContact strips common phone separators and checks the result
// looks like a phone number: an optional leading '+' and 7 to 15 digits.
func NormalizeContact(contact string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(contact) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", ErrInvalidContact
		}
	}
	out := b.String()
	digits := len(strings.TrimPrefix(out, "+"))
	if digits < 7 || digits > 15 {
		return "", ErrInvalidContact
	}
	return out, nil
}

// NormalizeEmail lower-cases and validates an email address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidContact
	}
	return email, nil
}
