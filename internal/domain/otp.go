package domain

import "time"

// OneTimeCode is a short-lived verification code bound to a contact.
type OneTimeCode struct {
	Contact   string
	Code      string
	ExpiresAt time.Time
	Attempts  int
}

// Expired reports whether the code is past its expiry at now.
func (c OneTimeCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
