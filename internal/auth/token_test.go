package auth

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabha-health/telehealth-auth/internal/domain"
)

var issuedAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, now *time.Time) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager(TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "nabha-telehealth",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return tm.WithClock(func() time.Time { return *now })
}

func testIdentity() *domain.Identity {
	phone := "+91-9999900001"
	return &domain.Identity{ID: "3f7c1a8e-0000-4000-8000-000000000001", Role: domain.RolePatient, Contact: &phone}
}

func TestNewTokenManagerRejectsSharedSecret(t *testing.T) {
	_, err := NewTokenManager(TokenConfig{AccessSecret: "same", RefreshSecret: "same"})
	require.Error(t, err)

	_, err = NewTokenManager(TokenConfig{AccessSecret: "only-access"})
	require.Error(t, err)
}

func TestIssueAndVerifyAccess(t *testing.T) {
	now := issuedAt
	tm := newTestManager(t, &now)

	pair, err := tm.Issue(testIdentity())
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(15*time.Minute), pair.AccessExpiresAt)
	assert.Equal(t, issuedAt.Add(7*24*time.Hour), pair.RefreshExpiresAt)
	assert.True(t, !pair.AccessExpiresAt.After(pair.RefreshExpiresAt))

	now = issuedAt.Add(14 * time.Minute)
	principal, err := tm.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, testIdentity().ID, principal.SubjectID)
	assert.Equal(t, domain.RolePatient, principal.Role)
}

func TestAccessTokenExpires(t *testing.T) {
	now := issuedAt
	tm := newTestManager(t, &now)

	pair, err := tm.Issue(testIdentity())
	require.NoError(t, err)

	now = issuedAt.Add(15*time.Minute + time.Second)
	_, err = tm.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)

	subject, err := tm.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err, "refresh token outlives the access token")
	assert.Equal(t, testIdentity().ID, subject)
}

func TestRefreshTokenExpires(t *testing.T) {
	now := issuedAt
	tm := newTestManager(t, &now)

	pair, err := tm.Issue(testIdentity())
	require.NoError(t, err)

	now = issuedAt.Add(7*24*time.Hour + time.Second)
	_, err = tm.VerifyRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestScopesAreNotInterchangeable(t *testing.T) {
	now := issuedAt
	tm := newTestManager(t, &now)

	pair, err := tm.Issue(testIdentity())
	require.NoError(t, err)

	_, err = tm.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = tm.VerifyRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefreshTokenCarriesNoRole(t *testing.T) {
	now := issuedAt
	tm := newTestManager(t, &now)

	pair, err := tm.Issue(testIdentity())
	require.NoError(t, err)

	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(pair.RefreshToken, claims)
	require.NoError(t, err)
	assert.Empty(t, claims.Role)
	assert.Equal(t, domain.TokenScopeRefresh, claims.Scope)
}

func TestVerifyRejectsTampering(t *testing.T) {
	now := issuedAt
	tm := newTestManager(t, &now)

	pair, err := tm.Issue(testIdentity())
	require.NoError(t, err)

	parts := strings.Split(pair.AccessToken, ".")
	require.Len(t, parts, 3)
	forged := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]

	tests := map[string]string{
		"empty":          "",
		"garbage":        "not-a-jwt",
		"bad signature":  forged,
		"foreign issuer": signForeign(t, "access-secret"),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tm.VerifyAccess(token)
			assert.ErrorIs(t, err, domain.ErrTokenInvalid)
		})
	}
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	now := issuedAt
	tm := newTestManager(t, &now)

	claims := &Claims{
		Role:  domain.RoleAdmin,
		Scope: domain.TokenScopeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "attacker",
			Issuer:    "nabha-telehealth",
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tm.VerifyAccess(token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func signForeign(t *testing.T, secret string) string {
	t.Helper()
	claims := &Claims{
		Role:  domain.RoleAdmin,
		Scope: domain.TokenScopeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "someone",
			Issuer:    "elsewhere",
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}
