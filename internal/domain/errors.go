package domain

import "errors"

// Validation errors
var (
	ErrInvalidRole     = errors.New("invalid role")
	ErrRoleNotAllowed  = errors.New("role not allowed for this login method")
	ErrMissingContact  = errors.New("contact or email required")
	ErrInvalidContact  = errors.New("invalid contact")
	ErrInvalidProfile  = errors.New("invalid profile defaults")
	ErrPasswordTooWeak = errors.New("password too short")
	ErrPasswordTooLong = errors.New("password longer than 72 bytes")
)

// Authentication errors
var (
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrRoleMismatch         = errors.New("identity exists under a different role")
	ErrIdentityNotFound     = errors.New("identity not found")
	ErrIdentityExists       = errors.New("identity already exists")
)

// Token errors
var (
	ErrTokenInvalid    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token has expired")
	ErrSubjectNotFound = errors.New("token subject not found")
)
