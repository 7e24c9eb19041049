package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nabha-health/telehealth-auth/internal/domain"
)

// IdentityRepository persists identities and their role-specific profiles.
// Lookups return domain.ErrIdentityNotFound on a miss; inserts that collide
// with an existing contact or email return domain.ErrIdentityExists.
type IdentityRepository interface {
	Create(ctx context.Context, identity *domain.Identity, profile *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByContact(ctx context.Context, contact string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string, role domain.Role) (*domain.Identity, error)
	GetProfile(ctx context.Context, identityID string) (*domain.Profile, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Ping(ctx context.Context) error
}

type identityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository returns a Postgres-backed implementation.
func NewIdentityRepository(pool *pgxpool.Pool) IdentityRepository {
	return &identityRepository{pool: pool}
}

const identityColumns = `id, role, contact, email, password_hash, display_name, created_at, updated_at`

func (r *identityRepository) Create(ctx context.Context, identity *domain.Identity, profile *domain.Profile) error {
	data, err := encodeProfile(profile)
	if err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertIdentity = `
        INSERT INTO identities (id, role, contact, email, password_hash, display_name)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at`
		if err := tx.QueryRow(ctx, insertIdentity,
			identity.ID,
			string(identity.Role),
			identity.Contact,
			identity.Email,
			identity.PasswordHash,
			identity.DisplayName,
		).Scan(&identity.CreatedAt, &identity.UpdatedAt); err != nil {
			return err
		}

		if profile == nil {
			return nil
		}
		const insertProfile = `
        INSERT INTO profiles (identity_id, role, data)
        VALUES ($1, $2, $3)
        RETURNING created_at, updated_at`
		profile.IdentityID = identity.ID
		return tx.QueryRow(ctx, insertProfile,
			profile.IdentityID,
			string(profile.Role),
			data,
		).Scan(&profile.CreatedAt, &profile.UpdatedAt)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.ErrIdentityExists
		}
		return err
	}
	return nil
}

func (r *identityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM identities WHERE id=$1`
	return r.scanIdentity(r.pool.QueryRow(ctx, query, id))
}

func (r *identityRepository) GetByContact(ctx context.Context, contact string) (*domain.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM identities WHERE contact=$1`
	return r.scanIdentity(r.pool.QueryRow(ctx, query, contact))
}

func (r *identityRepository) GetByEmail(ctx context.Context, email string, role domain.Role) (*domain.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM identities WHERE lower(email)=lower($1) AND role=$2`
	return r.scanIdentity(r.pool.QueryRow(ctx, query, email, string(role)))
}

func (r *identityRepository) scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var (
		identity domain.Identity
		role     string
	)
	if err := row.Scan(
		&identity.ID,
		&role,
		&identity.Contact,
		&identity.Email,
		&identity.PasswordHash,
		&identity.DisplayName,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, err
	}
	identity.Role = domain.Role(role)
	return &identity, nil
}

func (r *identityRepository) GetProfile(ctx context.Context, identityID string) (*domain.Profile, error) {
	const query = `
        SELECT identity_id, role, data, created_at, updated_at
        FROM profiles WHERE identity_id=$1`

	var (
		profile domain.Profile
		role    string
		data    []byte
	)
	if err := r.pool.QueryRow(ctx, query, identityID).Scan(
		&profile.IdentityID,
		&role,
		&data,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, err
	}
	return decodeProfile(&profile, role, data)
}

func (r *identityRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `
        UPDATE identities SET password_hash=$1, updated_at=NOW()
        WHERE id=$2`

	cmd, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

func (r *identityRepository) Ping(ctx context.Context) error {
	if r.pool == nil {
		return errors.New("postgres pool not configured")
	}
	return r.pool.Ping(ctx)
}

func encodeProfile(profile *domain.Profile) ([]byte, error) {
	if profile == nil || profile.Defaults == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(profile.Defaults)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	return data, nil
}

func decodeProfile(profile *domain.Profile, role string, data []byte) (*domain.Profile, error) {
	profile.Role = domain.Role(role)
	defaults, err := domain.DecodeProfileDefaults(profile.Role, data)
	if err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", profile.IdentityID, err)
	}
	profile.Defaults = defaults
	return profile, nil
}
