package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nabha-health/telehealth-auth/internal/domain"
	apperrors "github.com/nabha-health/telehealth-auth/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// AccessCookieName carries the access token for browser clients.
const AccessCookieName = "token"

// AccessVerifier validates access tokens.
type AccessVerifier interface {
	VerifyAccess(token string) (domain.Principal, error)
}

// AuthMiddleware validates access tokens and stores the principal.
// It performs no store lookup.
type AuthMiddleware struct {
	tokens AccessVerifier
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens AccessVerifier) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := accessTokenFromRequest(c)
	if err != nil {
		return err
	}

	principal, err := m.tokens.VerifyAccess(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return apperrors.NewUnauthorized("token expired")
		}
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

func accessTokenFromRequest(c *fiber.Ctx) (string, error) {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", apperrors.NewUnauthorized("invalid authorization header")
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if cookie := c.Cookies(AccessCookieName); cookie != "" {
		return cookie, nil
	}
	return "", apperrors.NewUnauthorized("missing access token")
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (domain.Principal, bool) {
	principal, ok := c.Locals(principalKey).(domain.Principal)
	return principal, ok
}
