package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nabha-health/telehealth-auth/internal/auth"
	"github.com/nabha-health/telehealth-auth/internal/domain"
	"github.com/nabha-health/telehealth-auth/internal/events"
	"github.com/nabha-health/telehealth-auth/internal/observability"
	"github.com/nabha-health/telehealth-auth/internal/otp"
)

// Session is the outcome of a successful OTP verification or password login.
type Session struct {
	Identity *domain.Identity
	Tokens   domain.TokenPair
	Created  bool
}

// AuthService coordinates the OTP, password and refresh flows.
type AuthService struct {
	codes      otp.CodeStore
	resolver   *IdentityResolver
	tokens     *auth.TokenManager
	passwords  *auth.PasswordVerifier
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Codes      otp.CodeStore
	Resolver   *IdentityResolver
	Tokens     *auth.TokenManager
	Passwords  *auth.PasswordVerifier
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}
	return &AuthService{
		codes:      deps.Codes,
		resolver:   deps.Resolver,
		tokens:     deps.Tokens,
		passwords:  deps.Passwords,
		dispatcher: dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// RequestCode issues a one-time code for contact and hands it to delivery.
// Delivery problems never fail the request.
func (s *AuthService) RequestCode(ctx context.Context, contact string, role domain.Role) (time.Time, error) {
	if !role.Valid() {
		return time.Time{}, domain.ErrInvalidRole
	}
	if !role.UsesOTP() {
		return time.Time{}, domain.ErrRoleNotAllowed
	}
	contact, err := domain.NormalizeContact(contact)
	if err != nil {
		return time.Time{}, err
	}

	code, err := s.codes.RequestCode(ctx, contact)
	if err != nil {
		return time.Time{}, err
	}
	s.metrics.Inc(observability.CounterCodesIssued)

	s.publish(ctx, events.EventCodeIssued, "", events.CodeIssuedPayload{
		Contact:   contact,
		Code:      code.Code,
		Role:      role,
		ExpiresAt: code.ExpiresAt,
	})
	return code.ExpiresAt, nil
}

// VerifyInput is a code submission.
type VerifyInput struct {
	Contact     string
	Code        string
	Role        domain.Role
	DisplayName string
	Defaults    domain.ProfileDefaults
}

// VerifyCode checks the submitted code, resolves or creates the identity and
// issues a token pair. Mismatch, expiry and lockout are indistinguishable.
func (s *AuthService) VerifyCode(ctx context.Context, in VerifyInput) (*Session, error) {
	if !in.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if !in.Role.UsesOTP() {
		return nil, domain.ErrRoleNotAllowed
	}
	contact, err := domain.NormalizeContact(in.Contact)
	if err != nil {
		return nil, err
	}
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, domain.ErrInvalidOrExpiredCode
	}

	ok, err := s.codes.VerifyCode(ctx, contact, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.Inc(observability.CounterCodeRejected)
		return nil, domain.ErrInvalidOrExpiredCode
	}

	identity, created, err := s.resolver.ResolveOrCreate(ctx, ResolveInput{
		Contact:     contact,
		Role:        in.Role,
		DisplayName: in.DisplayName,
		Defaults:    in.Defaults,
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.metrics.Inc(observability.CounterIdentityCreated)
		s.publish(ctx, events.EventIdentityCreated, identity.ID, events.IdentityCreatedPayload{
			Role:   identity.Role,
			Method: events.LoginMethodOTP,
		})
	}
	return s.startSession(ctx, identity, created, events.LoginMethodOTP)
}

// Login authenticates a password-login identity. Unknown email and wrong
// password both cost one bcrypt comparison and return the same error.
func (s *AuthService) Login(ctx context.Context, email, password string, role domain.Role) (*Session, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if !role.UsesPassword() {
		return nil, domain.ErrRoleNotAllowed
	}
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	identity, err := s.resolver.ResolveByEmail(ctx, email, role)
	if err != nil && !errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, err
	}
	storedHash := ""
	if identity != nil {
		storedHash = identity.PasswordHash
	}
	if !s.passwords.Verify(password, storedHash) {
		s.metrics.Inc(observability.CounterLoginFailed)
		return nil, domain.ErrInvalidCredentials
	}
	return s.startSession(ctx, identity, false, events.LoginMethodPassword)
}

// Refresh verifies a refresh token and mints a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	subjectID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}
	token, expiresAt, err := s.ReissueAccess(ctx, subjectID)
	if err != nil {
		return "", time.Time{}, err
	}
	s.metrics.Inc(observability.CounterSessionRefreshed)
	s.publish(ctx, events.EventSessionRefreshed, subjectID, nil)
	return token, expiresAt, nil
}

// ReissueAccess signs an access token carrying the subject's current role.
func (s *AuthService) ReissueAccess(ctx context.Context, subjectID string) (string, time.Time, error) {
	identity, err := s.currentIdentity(ctx, subjectID)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.tokens.IssueAccess(identity.ID, identity.Role)
}

// Profile returns the caller's identity and profile.
func (s *AuthService) Profile(ctx context.Context, principal domain.Principal) (*domain.Identity, *domain.Profile, error) {
	identity, err := s.currentIdentity(ctx, principal.SubjectID)
	if err != nil {
		return nil, nil, err
	}
	profile, err := s.resolver.Profile(ctx, identity.ID)
	if err != nil && !errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, nil, err
	}
	return identity, profile, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, principal domain.Principal, current, next string) error {
	identity, err := s.currentIdentity(ctx, principal.SubjectID)
	if err != nil {
		return err
	}
	if !s.passwords.Verify(current, identity.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	return s.resolver.SetPassword(ctx, identity.ID, next)
}

// Provision creates a password-login identity on behalf of an administrator.
func (s *AuthService) Provision(ctx context.Context, in ProvisionInput) (*domain.Identity, error) {
	identity, err := s.resolver.Provision(ctx, in)
	if err != nil {
		return nil, err
	}
	s.metrics.Inc(observability.CounterIdentityCreated)
	s.publish(ctx, events.EventIdentityCreated, identity.ID, events.IdentityCreatedPayload{
		Role:   identity.Role,
		Method: events.LoginMethodPassword,
	})
	return identity, nil
}

// Logout currently no-ops for stateless JWT approach.
func (s *AuthService) Logout(_ context.Context, _ domain.Principal) error {
	return nil
}

func (s *AuthService) startSession(ctx context.Context, identity *domain.Identity, created bool, method events.LoginMethod) (*Session, error) {
	pair, err := s.tokens.Issue(identity)
	if err != nil {
		return nil, err
	}
	s.metrics.Inc(observability.CounterLoginSucceeded)
	s.publish(ctx, events.EventLoginSucceeded, identity.ID, events.LoginSucceededPayload{
		Role:    identity.Role,
		Method:  method,
		Created: created,
	})
	return &Session{Identity: identity, Tokens: pair, Created: created}, nil
}

func (s *AuthService) currentIdentity(ctx context.Context, subjectID string) (*domain.Identity, error) {
	identity, err := s.resolver.ResolveByID(ctx, subjectID)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, domain.ErrSubjectNotFound
	}
	return identity, err
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, subjectID string, payload interface{}) {
	err := s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Timestamp: s.now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
