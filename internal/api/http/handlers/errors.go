package handlers

import (
	"errors"

	"github.com/nabha-health/telehealth-auth/internal/domain"
	apperrors "github.com/nabha-health/telehealth-auth/pkg/util/errorutil"
)

// mapError translates service errors into the API error taxonomy.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrRoleNotAllowed),
		errors.Is(err, domain.ErrMissingContact),
		errors.Is(err, domain.ErrInvalidContact),
		errors.Is(err, domain.ErrInvalidProfile),
		errors.Is(err, domain.ErrPasswordTooWeak),
		errors.Is(err, domain.ErrPasswordTooLong):
		return apperrors.NewValidationError(err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidOrExpiredCode):
		return apperrors.NewInvalidOrExpiredCode()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return apperrors.NewInvalidCredentials()
	case errors.Is(err, domain.ErrRoleMismatch):
		return apperrors.NewRoleMismatch()
	case errors.Is(err, domain.ErrIdentityExists):
		return apperrors.NewConflict("identity already exists", nil)
	case errors.Is(err, domain.ErrIdentityNotFound):
		return apperrors.NewNotFound("identity", nil)
	case errors.Is(err, domain.ErrTokenExpired):
		return apperrors.NewUnauthorized("token expired")
	case errors.Is(err, domain.ErrTokenInvalid):
		return apperrors.NewUnauthorized("invalid token")
	case errors.Is(err, domain.ErrSubjectNotFound):
		return apperrors.NewSubjectNotFound()
	default:
		return apperrors.MapError(err)
	}
}
