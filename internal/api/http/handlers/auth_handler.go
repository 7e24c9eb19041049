package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nabha-health/telehealth-auth/internal/api/dto"
	"github.com/nabha-health/telehealth-auth/internal/auth"
	"github.com/nabha-health/telehealth-auth/internal/config"
	"github.com/nabha-health/telehealth-auth/internal/domain"
	"github.com/nabha-health/telehealth-auth/internal/service"
	apperrors "github.com/nabha-health/telehealth-auth/pkg/util/errorutil"
)

// RefreshCookieName carries the refresh token for browser clients.
const RefreshCookieName = "refreshToken"

// RefreshHeader carries the refresh token for clients without cookies.
const RefreshHeader = "X-Refresh-Token"

// SessionOptions controls how tokens travel back to the client.
type SessionOptions struct {
	Transport     string
	SecureCookies bool
}

// AuthHandler exposes the OTP, password and session endpoints.
type AuthHandler struct {
	auth    *service.AuthService
	session SessionOptions
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, session SessionOptions) *AuthHandler {
	if session.Transport == "" {
		session.Transport = config.TransportBoth
	}
	return &AuthHandler{auth: authService, session: session}
}

// RequestCode handles POST /auth/otp/request.
func (h *AuthHandler) RequestCode(c *fiber.Ctx) error {
	var req dto.OTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Contact) == "" || req.Role == "" {
		return fiber.NewError(http.StatusBadRequest, "contact and role required")
	}

	expiresAt, err := h.auth.RequestCode(c.UserContext(), req.Contact, parseRole(req.Role))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{
		"data": dto.OTPRequestResponse{Message: "verification code sent", ExpiresAt: expiresAt},
	})
}

// VerifyCode handles POST /auth/otp/verify.
func (h *AuthHandler) VerifyCode(c *fiber.Ctx) error {
	var req dto.OTPVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Contact) == "" || strings.TrimSpace(req.Code) == "" || req.Role == "" {
		return fiber.NewError(http.StatusBadRequest, "contact, code and role required")
	}

	role := parseRole(req.Role)
	if !role.Valid() {
		return mapError(domain.ErrInvalidRole)
	}
	defaults, err := domain.DecodeProfileDefaults(role, req.ProfileDefaults)
	if err != nil {
		return mapError(err)
	}

	session, err := h.auth.VerifyCode(c.UserContext(), service.VerifyInput{
		Contact:     req.Contact,
		Code:        req.Code,
		Role:        role,
		DisplayName: req.DisplayName,
		Defaults:    defaults,
	})
	if err != nil {
		return mapError(err)
	}
	return h.writeSession(c, session)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" || req.Role == "" {
		return fiber.NewError(http.StatusBadRequest, "email, password and role required")
	}

	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password, parseRole(req.Role))
	if err != nil {
		return mapError(err)
	}
	return h.writeSession(c, session)
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	token := refreshTokenFromRequest(c)
	if token == "" {
		return apperrors.NewUnauthorized("missing refresh token")
	}

	access, expiresAt, err := h.auth.Refresh(c.UserContext(), token)
	if err != nil {
		return mapError(err)
	}

	resp := dto.RefreshResponse{AccessExpiresAt: expiresAt}
	if h.useCookies() {
		h.setCookie(c, auth.AccessCookieName, access, expiresAt)
	}
	if h.useBody() {
		resp.AccessToken = access
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Logout handles POST /auth/logout. Sessions are stateless so this only clears cookies.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		_ = h.auth.Logout(c.UserContext(), principal)
	}
	h.clearCookie(c, auth.AccessCookieName)
	h.clearCookie(c, RefreshCookieName)
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "logged out"}})
}

// Profile handles GET /auth/profile.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	identity, profile, err := h.auth.Profile(c.UserContext(), principal)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{
		"data": dto.ProfileResponse{
			Identity: dto.NewIdentityResponse(identity),
			Profile:  dto.NewProfileBody(profile),
		},
	})
}

// ChangePassword handles POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "new password required")
	}

	if err := h.auth.ChangePassword(c.UserContext(), principal, req.CurrentPassword, req.NewPassword); err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "password updated"}})
}

// ProvisionIdentity handles POST /auth/admin/identities.
func (h *AuthHandler) ProvisionIdentity(c *fiber.Ctx) error {
	var req dto.ProvisionIdentityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" || req.Role == "" {
		return fiber.NewError(http.StatusBadRequest, "email, password and role required")
	}

	role := parseRole(req.Role)
	if !role.Valid() {
		return mapError(domain.ErrInvalidRole)
	}
	defaults, err := domain.DecodeProfileDefaults(role, req.ProfileDefaults)
	if err != nil {
		return mapError(err)
	}

	identity, err := h.auth.Provision(c.UserContext(), service.ProvisionInput{
		Email:       req.Email,
		Password:    req.Password,
		Role:        role,
		DisplayName: req.DisplayName,
		Contact:     req.Contact,
		Defaults:    defaults,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{"identity": dto.NewIdentityResponse(identity)},
	})
}

func (h *AuthHandler) writeSession(c *fiber.Ctx, session *service.Session) error {
	resp := dto.SessionResponse{
		Identity:         dto.NewIdentityResponse(session.Identity),
		AccessExpiresAt:  session.Tokens.AccessExpiresAt,
		RefreshExpiresAt: session.Tokens.RefreshExpiresAt,
		Created:          session.Created,
	}
	if h.useCookies() {
		h.setCookie(c, auth.AccessCookieName, session.Tokens.AccessToken, session.Tokens.AccessExpiresAt)
		h.setCookie(c, RefreshCookieName, session.Tokens.RefreshToken, session.Tokens.RefreshExpiresAt)
	}
	if h.useBody() {
		resp.AccessToken = session.Tokens.AccessToken
		resp.RefreshToken = session.Tokens.RefreshToken
	}
	return c.JSON(fiber.Map{"data": resp})
}

func (h *AuthHandler) useCookies() bool {
	return h.session.Transport == config.TransportCookie || h.session.Transport == config.TransportBoth
}

func (h *AuthHandler) useBody() bool {
	return h.session.Transport == config.TransportBody || h.session.Transport == config.TransportBoth
}

func (h *AuthHandler) setCookie(c *fiber.Ctx, name, value string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   h.session.SecureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.session.SecureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func refreshTokenFromRequest(c *fiber.Ctx) string {
	var req dto.RefreshRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err == nil && strings.TrimSpace(req.RefreshToken) != "" {
			return strings.TrimSpace(req.RefreshToken)
		}
	}
	if header := strings.TrimSpace(c.Get(RefreshHeader)); header != "" {
		return header
	}
	return c.Cookies(RefreshCookieName)
}

func parseRole(raw string) domain.Role {
	return domain.Role(strings.ToUpper(strings.TrimSpace(raw)))
}
