// Package otp issues and checks short-lived numeric verification codes.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/nabha-health/telehealth-auth/internal/domain"
)

// CodeStore holds at most one live code per contact.
type CodeStore interface {
	// RequestCode issues a fresh code for contact, replacing any previous one.
	RequestCode(ctx context.Context, contact string) (domain.OneTimeCode, error)
	// VerifyCode reports whether code matches the live code for contact.
	// It fails closed on a missing, expired or locked-out entry.
	VerifyCode(ctx context.Context, contact, code string) (bool, error)
}

// Options tune code generation and validation.
type Options struct {
	Length      int
	TTL         time.Duration
	MaxAttempts int
}

// DefaultOptions returns six digits, five minutes, three attempts.
func DefaultOptions() Options {
	return Options{Length: 6, TTL: 5 * time.Minute, MaxAttempts: 3}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Length <= 0 {
		o.Length = def.Length
	}
	if o.TTL <= 0 {
		o.TTL = def.TTL
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = def.MaxAttempts
	}
	return o
}

// generateCode returns length uniformly random decimal digits.
func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate digit: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
