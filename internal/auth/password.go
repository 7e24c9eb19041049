package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Password length bounds in bytes. bcrypt ignores input past 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// ErrPasswordMismatch is returned when a password does not match its hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	if hashed == "" {
		return ErrPasswordMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

// PasswordVerifier checks static secrets against stored bcrypt hashes.
type PasswordVerifier struct {
	cost int

	dummyOnce sync.Once
	dummy     string
}

// NewPasswordVerifier builds a verifier hashing at cost.
func NewPasswordVerifier(cost int) *PasswordVerifier {
	return &PasswordVerifier{cost: cost}
}

// Hash produces the stored credential for a new or changed password.
func (v *PasswordVerifier) Hash(secret string) (string, error) {
	return HashPassword(secret, v.cost)
}

// Verify reports whether secret matches storedHash. An empty hash never matches
// but still costs one bcrypt comparison.
func (v *PasswordVerifier) Verify(secret, storedHash string) bool {
	if storedHash == "" {
		_ = ComparePassword(v.dummyHash(), secret)
		return false
	}
	return ComparePassword(storedHash, secret) == nil
}

func (v *PasswordVerifier) dummyHash() string {
	v.dummyOnce.Do(func() {
		v.dummy, _ = HashPassword("unused-placeholder-secret", v.cost)
	})
	return v.dummy
}
