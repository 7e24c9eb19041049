package dto

import (
	"encoding/json"
	"time"

	"github.com/nabha-health/telehealth-auth/internal/domain"
)

// OTPRequest payload for requesting a code.
type OTPRequest struct {
	Contact string `json:"contact"`
	Role    string `json:"role"`
}

// OTPRequestResponse acknowledges an issued code.
type OTPRequestResponse struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// OTPVerifyRequest payload for submitting a code.
type OTPVerifyRequest struct {
	Contact         string          `json:"contact"`
	Code            string          `json:"code"`
	Role            string          `json:"role"`
	DisplayName     string          `json:"displayName"`
	ProfileDefaults json.RawMessage `json:"profileDefaults"`
}

// LoginRequest payload for password login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// RefreshRequest payload for refreshing the access token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse carries the new access token.
type RefreshResponse struct {
	AccessToken     string    `json:"accessToken,omitempty"`
	AccessExpiresAt time.Time `json:"accessExpiresAt"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ProvisionIdentityRequest payload for administrator-created accounts.
type ProvisionIdentityRequest struct {
	Email           string          `json:"email"`
	Password        string          `json:"password"`
	Role            string          `json:"role"`
	DisplayName     string          `json:"displayName"`
	Contact         string          `json:"contact"`
	ProfileDefaults json.RawMessage `json:"profileDefaults"`
}

// IdentityResponse is the public view of an identity.
type IdentityResponse struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	Contact     *string   `json:"contact,omitempty"`
	Email       *string   `json:"email,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	HasPassword bool      `json:"hasPassword"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SessionResponse is returned by OTP verification and password login.
// Token fields are omitted when the session travels only in cookies.
type SessionResponse struct {
	Identity         IdentityResponse `json:"identity"`
	AccessToken      string           `json:"accessToken,omitempty"`
	RefreshToken     string           `json:"refreshToken,omitempty"`
	AccessExpiresAt  time.Time        `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time        `json:"refreshExpiresAt"`
	Created          bool             `json:"created"`
}

// ProfileBody is the role-specific profile.
type ProfileBody struct {
	Role      string                 `json:"role"`
	Defaults  domain.ProfileDefaults `json:"defaults"`
	CreatedAt time.Time              `json:"createdAt"`
}

// ProfileResponse is returned by GET /auth/profile.
type ProfileResponse struct {
	Identity IdentityResponse `json:"identity"`
	Profile  *ProfileBody     `json:"profile,omitempty"`
}

// NewIdentityResponse maps an identity, dropping the credential.
func NewIdentityResponse(identity *domain.Identity) IdentityResponse {
	return IdentityResponse{
		ID:          identity.ID,
		Role:        string(identity.Role),
		Contact:     identity.Contact,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		HasPassword: identity.HasPassword(),
		CreatedAt:   identity.CreatedAt,
	}
}

// NewProfileBody maps a profile.
func NewProfileBody(profile *domain.Profile) *ProfileBody {
	if profile == nil {
		return nil
	}
	return &ProfileBody{
		Role:      string(profile.Role),
		Defaults:  profile.Defaults,
		CreatedAt: profile.CreatedAt,
	}
}
