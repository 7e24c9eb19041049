package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nabha-health/telehealth-auth/internal/domain"
	apperrors "github.com/nabha-health/telehealth-auth/pkg/util/errorutil"
)

// Authorize reports whether the principal's role is in allowed.
// An empty allow-list admits nobody.
func Authorize(principal domain.Principal, allowed domain.RoleSet) bool {
	if len(allowed) == 0 {
		return false
	}
	return allowed.Contains(principal.Role)
}

// RequireRoles ensures the authenticated principal holds one of the allowed roles.
// It must run after AuthMiddleware.Handle.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	allowedSet := domain.NewRoleSet(allowed...)

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !Authorize(principal, allowedSet) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
