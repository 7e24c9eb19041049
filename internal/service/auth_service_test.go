package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabha-health/telehealth-auth/internal/domain"
	"github.com/nabha-health/telehealth-auth/internal/observability"
)

const patientPhone = "+91-9999900001"

func TestOTPFlowCreatesPatientAndIssuesTokens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	code := h.requestCode(t, patientPhone, domain.RolePatient)
	assert.Equal(t, "+919999900001", h.queue.last().To)
	assert.Contains(t, h.queue.last().Body, "expires in 5 minutes")

	session, err := h.svc.VerifyCode(ctx, VerifyInput{
		Contact:     patientPhone,
		Code:        code,
		Role:        domain.RolePatient,
		DisplayName: "Gurpreet Kaur",
		Defaults:    domain.PatientDefaults{Village: "Nabha"},
	})
	require.NoError(t, err)
	assert.True(t, session.Created)
	assert.Equal(t, domain.RolePatient, session.Identity.Role)
	assert.Equal(t, "Gurpreet Kaur", session.Identity.DisplayName)

	principal, err := h.tokens.VerifyAccess(session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.Identity.ID, principal.SubjectID)
	assert.Equal(t, domain.RolePatient, principal.Role)

	identity, profile, err := h.svc.Profile(ctx, principal)
	require.NoError(t, err)
	assert.Equal(t, session.Identity.ID, identity.ID)
	require.NotNil(t, profile)
	assert.Equal(t, domain.PatientDefaults{Village: "Nabha"}, profile.Defaults)

	// Second login resolves the same identity.
	code = h.requestCode(t, patientPhone, domain.RolePatient)
	again, err := h.svc.VerifyCode(ctx, VerifyInput{Contact: patientPhone, Code: code, Role: domain.RolePatient})
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, session.Identity.ID, again.Identity.ID)

	assert.Equal(t, int64(2), h.metrics.Count(observability.CounterCodesIssued))
	assert.Equal(t, int64(2), h.metrics.Count(observability.CounterLoginSucceeded))
	assert.Equal(t, int64(1), h.metrics.Count(observability.CounterIdentityCreated))
}

func TestVerifyCodeRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	code := h.requestCode(t, patientPhone, domain.RolePatient)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 3; i++ {
		_, err := h.svc.VerifyCode(ctx, VerifyInput{Contact: patientPhone, Code: wrong, Role: domain.RolePatient})
		assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredCode)
	}
	// Locked out: the right code no longer works.
	_, err := h.svc.VerifyCode(ctx, VerifyInput{Contact: patientPhone, Code: code, Role: domain.RolePatient})
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredCode)

	code = h.requestCode(t, patientPhone, domain.RolePatient)
	h.advance(5*time.Minute + time.Second)
	_, err = h.svc.VerifyCode(ctx, VerifyInput{Contact: patientPhone, Code: code, Role: domain.RolePatient})
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredCode)

	_, err = h.svc.VerifyCode(ctx, VerifyInput{Contact: patientPhone, Code: "", Role: domain.RolePatient})
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredCode)
}

func TestRequestCodeValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.RequestCode(ctx, patientPhone, domain.RoleDoctor)
	assert.ErrorIs(t, err, domain.ErrRoleNotAllowed)

	_, err = h.svc.RequestCode(ctx, patientPhone, domain.Role("NURSE"))
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	_, err = h.svc.RequestCode(ctx, "call me", domain.RolePatient)
	assert.ErrorIs(t, err, domain.ErrInvalidContact)
}

func TestRequestCodeSucceedsWhenDeliveryDropped(t *testing.T) {
	h := newHarness(t)
	h.queue.reject = true

	expiresAt, err := h.svc.RequestCode(context.Background(), patientPhone, domain.RolePatient)
	require.NoError(t, err)
	assert.Equal(t, h.clock.Add(5*time.Minute), expiresAt)
	assert.Equal(t, 1, h.codes.Len())
}

func TestVerifyCodeRoleMismatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	code := h.requestCode(t, patientPhone, domain.RolePatient)
	_, err := h.svc.VerifyCode(ctx, VerifyInput{Contact: patientPhone, Code: code, Role: domain.RolePatient})
	require.NoError(t, err)

	code = h.requestCode(t, patientPhone, domain.RolePharmacy)
	_, err = h.svc.VerifyCode(ctx, VerifyInput{Contact: patientPhone, Code: code, Role: domain.RolePharmacy})
	assert.ErrorIs(t, err, domain.ErrRoleMismatch)
}

func TestVerifyCodeRejectsInvalidDefaults(t *testing.T) {
	h := newHarness(t)
	code := h.requestCode(t, patientPhone, domain.RolePatient)

	_, err := h.svc.VerifyCode(context.Background(), VerifyInput{
		Contact:  patientPhone,
		Code:     code,
		Role:     domain.RolePatient,
		Defaults: domain.PharmacyDefaults{Name: "Nabha Medicos"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidProfile)
}

func provisionDoctor(t *testing.T, h *harness) *domain.Identity {
	t.Helper()
	identity, err := h.svc.Provision(context.Background(), ProvisionInput{
		Email:       "rajesh@nabha.health",
		Password:    "correct-horse",
		Role:        domain.RoleDoctor,
		DisplayName: "Dr. Rajesh Sharma",
		Defaults:    domain.DoctorDefaults{Specialization: "General Medicine"},
	})
	require.NoError(t, err)
	return identity
}

func TestPasswordLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doctor := provisionDoctor(t, h)
	assert.Empty(t, h.queue.messages)

	_, err := h.svc.Login(ctx, "rajesh@nabha.health", "wrong-password", domain.RoleDoctor)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = h.svc.Login(ctx, "nobody@nabha.health", "correct-horse", domain.RoleDoctor)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = h.svc.Login(ctx, "rajesh@nabha.health", "correct-horse", domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = h.svc.Login(ctx, "rajesh@nabha.health", "correct-horse", domain.RolePatient)
	assert.ErrorIs(t, err, domain.ErrRoleNotAllowed)

	session, err := h.svc.Login(ctx, "Rajesh@Nabha.Health", "correct-horse", domain.RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, doctor.ID, session.Identity.ID)

	principal, err := h.tokens.VerifyAccess(session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDoctor, principal.Role)
	assert.Equal(t, int64(3), h.metrics.Count(observability.CounterLoginFailed))
}

func TestProvisionRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	provisionDoctor(t, h)

	_, err := h.svc.Provision(ctx, ProvisionInput{Email: "rajesh@nabha.health", Password: "another-pass", Role: domain.RoleDoctor})
	assert.ErrorIs(t, err, domain.ErrIdentityExists)

	_, err = h.svc.Provision(ctx, ProvisionInput{Email: "admin@nabha.health", Password: "short", Role: domain.RoleAdmin})
	assert.ErrorIs(t, err, domain.ErrPasswordTooWeak)

	_, err = h.svc.Provision(ctx, ProvisionInput{Email: "admin@nabha.health", Password: strings.Repeat("x", 80), Role: domain.RoleAdmin})
	assert.ErrorIs(t, err, domain.ErrPasswordTooLong)

	_, err = h.svc.Provision(ctx, ProvisionInput{Email: "admin@nabha.health", Password: "long-enough", Role: "ROOT"})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestRefreshReissuesWithCurrentRole(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doctor := provisionDoctor(t, h)

	session, err := h.svc.Login(ctx, "rajesh@nabha.health", "correct-horse", domain.RoleDoctor)
	require.NoError(t, err)

	_, err = h.db.ExecContext(ctx, `UPDATE identities SET role = 'ADMIN' WHERE id = ?`, doctor.ID)
	require.NoError(t, err)

	h.advance(20 * time.Minute)
	_, err = h.tokens.VerifyAccess(session.Tokens.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)

	access, expiresAt, err := h.svc.Refresh(ctx, session.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, h.clock.Add(15*time.Minute), expiresAt)

	principal, err := h.tokens.VerifyAccess(access)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, principal.Role)
	assert.Equal(t, doctor.ID, principal.SubjectID)
}

func TestRefreshRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doctor := provisionDoctor(t, h)

	session, err := h.svc.Login(ctx, "rajesh@nabha.health", "correct-horse", domain.RoleDoctor)
	require.NoError(t, err)

	_, _, err = h.svc.Refresh(ctx, session.Tokens.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, _, err = h.svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = h.db.ExecContext(ctx, `DELETE FROM identities WHERE id = ?`, doctor.ID)
	require.NoError(t, err)
	_, _, err = h.svc.Refresh(ctx, session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrSubjectNotFound)

	h.advance(7*24*time.Hour + time.Second)
	_, _, err = h.svc.Refresh(ctx, session.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doctor := provisionDoctor(t, h)
	principal := domain.Principal{SubjectID: doctor.ID, Role: doctor.Role}

	err := h.svc.ChangePassword(ctx, principal, "wrong-password", "new-password-1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	err = h.svc.ChangePassword(ctx, principal, "correct-horse", "short")
	assert.ErrorIs(t, err, domain.ErrPasswordTooWeak)

	err = h.svc.ChangePassword(ctx, principal, "correct-horse", strings.Repeat("y", 73))
	assert.ErrorIs(t, err, domain.ErrPasswordTooLong)

	require.NoError(t, h.svc.ChangePassword(ctx, principal, "correct-horse", "new-password-1"))

	_, err = h.svc.Login(ctx, "rajesh@nabha.health", "correct-horse", domain.RoleDoctor)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = h.svc.Login(ctx, "rajesh@nabha.health", "new-password-1", domain.RoleDoctor)
	assert.NoError(t, err)
}

func TestChangePasswordWithoutCredential(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	code := h.requestCode(t, patientPhone, domain.RolePatient)
	session, err := h.svc.VerifyCode(ctx, VerifyInput{Contact: patientPhone, Code: code, Role: domain.RolePatient})
	require.NoError(t, err)

	principal := domain.Principal{SubjectID: session.Identity.ID, Role: domain.RolePatient}
	err = h.svc.ChangePassword(ctx, principal, "", "new-password-1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestProfileForMissingSubject(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.svc.Profile(context.Background(), domain.Principal{SubjectID: "missing", Role: domain.RolePatient})
	assert.ErrorIs(t, err, domain.ErrSubjectNotFound)
}
