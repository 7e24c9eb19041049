package domain

import (
	"strings"
	"time"
)

// Identity is a user account as seen by the auth core.
type Identity struct {
	ID           string
	Role         Role
	Contact      *string
	Email        *string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether a password credential is set.
func (i *Identity) HasPassword() bool {
	return i != nil && i.PasswordHash != ""
}

// Validate checks the record-level invariants.
func (i *Identity) Validate() error {
	if !i.Role.Valid() {
		return ErrInvalidRole
	}
	hasContact := i.Contact != nil && strings.TrimSpace(*i.Contact) != ""
	hasEmail := i.Email != nil && strings.TrimSpace(*i.Email) != ""
	if !hasContact && !hasEmail {
		return ErrMissingContact
	}
	return nil
}

// Principal is the authenticated caller derived from an access token.
type Principal struct {
	SubjectID string
	Role      Role
}
