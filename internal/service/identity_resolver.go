package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nabha-health/telehealth-auth/internal/auth"
	"github.com/nabha-health/telehealth-auth/internal/domain"
	"github.com/nabha-health/telehealth-auth/internal/repository"
)

// IdentityResolver finds or creates identities in the identity store.
type IdentityResolver struct {
	identities   repository.IdentityRepository
	passwords    *auth.PasswordVerifier
	storeTimeout time.Duration
}

// NewIdentityResolver builds a resolver. Every store round trip is bounded by storeTimeout.
func NewIdentityResolver(identities repository.IdentityRepository, passwords *auth.PasswordVerifier, storeTimeout time.Duration) *IdentityResolver {
	if storeTimeout <= 0 {
		storeTimeout = 3 * time.Second
	}
	return &IdentityResolver{
		identities:   identities,
		passwords:    passwords,
		storeTimeout: storeTimeout,
	}
}

// ResolveInput describes a verified contact asking for a session.
type ResolveInput struct {
	Contact     string
	Role        domain.Role
	DisplayName string
	Defaults    domain.ProfileDefaults
}

// ResolveOrCreate returns the identity owning contact, creating it with a
// profile seeded from Defaults when none exists. The boolean reports creation.
// An identity registered under another role yields domain.ErrRoleMismatch.
func (r *IdentityResolver) ResolveOrCreate(ctx context.Context, in ResolveInput) (*domain.Identity, bool, error) {
	if !in.Role.UsesOTP() {
		return nil, false, domain.ErrRoleNotAllowed
	}

	existing, err := r.lookupContact(ctx, in.Contact)
	switch {
	case err == nil:
		if existing.Role != in.Role {
			return nil, false, domain.ErrRoleMismatch
		}
		return existing, false, nil
	case !errors.Is(err, domain.ErrIdentityNotFound):
		return nil, false, err
	}

	defaults := in.Defaults
	if defaults == nil {
		if defaults, err = domain.EmptyDefaults(in.Role); err != nil {
			return nil, false, err
		}
	}
	if defaults.Role() != in.Role {
		return nil, false, domain.ErrInvalidProfile
	}
	if err := defaults.Validate(); err != nil {
		return nil, false, err
	}

	contact := in.Contact
	identity := &domain.Identity{
		ID:          uuid.NewString(),
		Role:        in.Role,
		Contact:     &contact,
		DisplayName: strings.TrimSpace(in.DisplayName),
	}
	profile := &domain.Profile{IdentityID: identity.ID, Role: in.Role, Defaults: defaults}

	if err := r.create(ctx, identity, profile); err != nil {
		if !errors.Is(err, domain.ErrIdentityExists) {
			return nil, false, err
		}
		// Lost a race with a concurrent first login for the same contact.
		existing, lookupErr := r.lookupContact(ctx, in.Contact)
		if lookupErr != nil {
			return nil, false, lookupErr
		}
		if existing.Role != in.Role {
			return nil, false, domain.ErrRoleMismatch
		}
		return existing, false, nil
	}
	return identity, true, nil
}

// ResolveByEmail looks up a password-login identity by email and role.
func (r *IdentityResolver) ResolveByEmail(ctx context.Context, email string, role domain.Role) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()
	return r.identities.GetByEmail(ctx, email, role)
}

// ResolveByID looks up an identity by id.
func (r *IdentityResolver) ResolveByID(ctx context.Context, id string) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()
	return r.identities.GetByID(ctx, id)
}

// Profile returns the profile for an identity.
func (r *IdentityResolver) Profile(ctx context.Context, id string) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()
	return r.identities.GetProfile(ctx, id)
}

// ProvisionInput describes a password-login identity created by an administrator.
type ProvisionInput struct {
	Email       string
	Password    string
	Role        domain.Role
	DisplayName string
	Contact     string
	Defaults    domain.ProfileDefaults
}

// Provision creates a password-login identity. Duplicates yield domain.ErrIdentityExists.
func (r *IdentityResolver) Provision(ctx context.Context, in ProvisionInput) (*domain.Identity, error) {
	if !in.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if !in.Role.UsesPassword() {
		return nil, domain.ErrRoleNotAllowed
	}
	email, err := domain.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := checkPasswordLength(in.Password); err != nil {
		return nil, err
	}

	var contact *string
	if strings.TrimSpace(in.Contact) != "" {
		normalized, err := domain.NormalizeContact(in.Contact)
		if err != nil {
			return nil, err
		}
		contact = &normalized
	}

	defaults := in.Defaults
	if defaults == nil {
		if defaults, err = domain.EmptyDefaults(in.Role); err != nil {
			return nil, err
		}
	}
	if defaults.Role() != in.Role {
		return nil, domain.ErrInvalidProfile
	}
	if err := defaults.Validate(); err != nil {
		return nil, err
	}

	hash, err := r.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	identity := &domain.Identity{
		ID:           uuid.NewString(),
		Role:         in.Role,
		Contact:      contact,
		Email:        &email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(in.DisplayName),
	}
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	profile := &domain.Profile{IdentityID: identity.ID, Role: in.Role, Defaults: defaults}
	if err := r.create(ctx, identity, profile); err != nil {
		return nil, err
	}
	return identity, nil
}

// SetPassword replaces the stored password hash.
func (r *IdentityResolver) SetPassword(ctx context.Context, id, password string) error {
	if err := checkPasswordLength(password); err != nil {
		return err
	}
	hash, err := r.passwords.Hash(password)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()
	return r.identities.UpdatePassword(ctx, id, hash)
}

// Ping checks the identity store.
func (r *IdentityResolver) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()
	return r.identities.Ping(ctx)
}

func (r *IdentityResolver) lookupContact(ctx context.Context, contact string) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()
	return r.identities.GetByContact(ctx, contact)
}

func (r *IdentityResolver) create(ctx context.Context, identity *domain.Identity, profile *domain.Profile) error {
	ctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()
	return r.identities.Create(ctx, identity, profile)
}

func checkPasswordLength(password string) error {
	switch {
	case len(password) < auth.MinPasswordLength:
		return domain.ErrPasswordTooWeak
	case len(password) > auth.MaxPasswordLength:
		return domain.ErrPasswordTooLong
	}
	return nil
}
