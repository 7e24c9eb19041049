package domain

import "time"

// TokenScope separates access tokens from refresh tokens.
type TokenScope string

const (
	TokenScopeAccess  TokenScope = "access"
	TokenScopeRefresh TokenScope = "refresh"
)

// TokenPair is the session issued on login.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
