package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nabha-health/telehealth-auth/internal/domain"
)

// TokenConfig configures a TokenManager.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenManager issues and validates access and refresh JWTs.
// Each scope is signed with its own key.
type TokenManager struct {
	accessKey  []byte
	refreshKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &TokenManager{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock overrides the time source for issuing and validating.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

// AccessTTL returns the access token lifetime.
func (tm *TokenManager) AccessTTL() time.Duration { return tm.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (tm *TokenManager) RefreshTTL() time.Duration { return tm.refreshTTL }

// Claims describes JWT payload. Refresh tokens never carry a role.
type Claims struct {
	Role  domain.Role       `json:"role,omitempty"`
	Scope domain.TokenScope `json:"scope"`
	jwt.RegisteredClaims
}

// Issue mints an access and refresh token for identity.
func (tm *TokenManager) Issue(identity *domain.Identity) (domain.TokenPair, error) {
	if identity == nil || identity.ID == "" {
		return domain.TokenPair{}, errors.New("identity required")
	}
	now := tm.now()

	access, accessExp, err := tm.sign(identity.ID, identity.Role, domain.TokenScopeAccess, now)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, refreshExp, err := tm.sign(identity.ID, "", domain.TokenScopeRefresh, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueAccess mints a standalone access token.
func (tm *TokenManager) IssueAccess(subjectID string, role domain.Role) (string, time.Time, error) {
	return tm.sign(subjectID, role, domain.TokenScopeAccess, tm.now())
}

func (tm *TokenManager) sign(subjectID string, role domain.Role, scope domain.TokenScope, now time.Time) (string, time.Time, error) {
	ttl, key := tm.accessTTL, tm.accessKey
	if scope == domain.TokenScopeRefresh {
		ttl, key = tm.refreshTTL, tm.refreshKey
	}
	expiresAt := now.Add(ttl)

	claims := &Claims{
		Role:  role,
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tm.issuer,
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// VerifyAccess validates an access token and returns the caller.
func (tm *TokenManager) VerifyAccess(tokenStr string) (domain.Principal, error) {
	claims, err := tm.parse(tokenStr, tm.accessKey, domain.TokenScopeAccess)
	if err != nil {
		return domain.Principal{}, err
	}
	if !claims.Role.Valid() {
		return domain.Principal{}, domain.ErrTokenInvalid
	}
	return domain.Principal{SubjectID: claims.Subject, Role: claims.Role}, nil
}

// VerifyRefresh validates a refresh token and returns its subject.
// The caller is responsible for confirming the subject still exists.
func (tm *TokenManager) VerifyRefresh(tokenStr string) (string, error) {
	claims, err := tm.parse(tokenStr, tm.refreshKey, domain.TokenScopeRefresh)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (tm *TokenManager) parse(tokenStr string, key []byte, scope domain.TokenScope) (*Claims, error) {
	if tokenStr == "" {
		return nil, domain.ErrTokenInvalid
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" || claims.Scope != scope {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}
