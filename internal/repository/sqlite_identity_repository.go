package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nabha-health/telehealth-auth/internal/domain"
)

// sqliteIdentityRepository backs single-clinic deployments with one SQLite file.
// Timestamps are stored as UTC unix milliseconds.
type sqliteIdentityRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteIdentityRepository returns a SQLite-backed implementation.
func NewSQLiteIdentityRepository(db *sql.DB) IdentityRepository {
	return &sqliteIdentityRepository{db: db, now: time.Now}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func (r *sqliteIdentityRepository) Create(ctx context.Context, identity *domain.Identity, profile *domain.Profile) error {
	data, err := encodeProfile(profile)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := r.now()
	const insertIdentity = `
        INSERT INTO identities (id, role, contact, email, password_hash, display_name, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertIdentity,
		identity.ID,
		string(identity.Role),
		identity.Contact,
		identity.Email,
		identity.PasswordHash,
		identity.DisplayName,
		toMillis(now),
		toMillis(now),
	); err != nil {
		return mapSQLiteError(err)
	}

	if profile != nil {
		profile.IdentityID = identity.ID
		const insertProfile = `
        INSERT INTO profiles (identity_id, role, data, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, insertProfile,
			profile.IdentityID,
			string(profile.Role),
			string(data),
			toMillis(now),
			toMillis(now),
		); err != nil {
			return mapSQLiteError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	identity.CreatedAt = fromMillis(toMillis(now))
	identity.UpdatedAt = identity.CreatedAt
	if profile != nil {
		profile.CreatedAt = identity.CreatedAt
		profile.UpdatedAt = identity.CreatedAt
	}
	return nil
}

func (r *sqliteIdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM identities WHERE id=?`
	return r.scanIdentity(r.db.QueryRowContext(ctx, query, id))
}

func (r *sqliteIdentityRepository) GetByContact(ctx context.Context, contact string) (*domain.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM identities WHERE contact=?`
	return r.scanIdentity(r.db.QueryRowContext(ctx, query, contact))
}

func (r *sqliteIdentityRepository) GetByEmail(ctx context.Context, email string, role domain.Role) (*domain.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM identities WHERE email=? COLLATE NOCASE AND role=?`
	return r.scanIdentity(r.db.QueryRowContext(ctx, query, email, string(role)))
}

func (r *sqliteIdentityRepository) scanIdentity(row *sql.Row) (*domain.Identity, error) {
	var (
		identity           domain.Identity
		role               string
		contact, email     sql.NullString
		createdAt, updated int64
	)
	if err := row.Scan(
		&identity.ID,
		&role,
		&contact,
		&email,
		&identity.PasswordHash,
		&identity.DisplayName,
		&createdAt,
		&updated,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, err
	}
	identity.Role = domain.Role(role)
	if contact.Valid {
		identity.Contact = &contact.String
	}
	if email.Valid {
		identity.Email = &email.String
	}
	identity.CreatedAt = fromMillis(createdAt)
	identity.UpdatedAt = fromMillis(updated)
	return &identity, nil
}

func (r *sqliteIdentityRepository) GetProfile(ctx context.Context, identityID string) (*domain.Profile, error) {
	const query = `
        SELECT identity_id, role, data, created_at, updated_at
        FROM profiles WHERE identity_id=?`

	var (
		profile            domain.Profile
		role, data         string
		createdAt, updated int64
	)
	if err := r.db.QueryRowContext(ctx, query, identityID).Scan(
		&profile.IdentityID,
		&role,
		&data,
		&createdAt,
		&updated,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, err
	}
	profile.CreatedAt = fromMillis(createdAt)
	profile.UpdatedAt = fromMillis(updated)
	return decodeProfile(&profile, role, []byte(data))
}

func (r *sqliteIdentityRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE identities SET password_hash=?, updated_at=? WHERE id=?`
	res, err := r.db.ExecContext(ctx, query, passwordHash, toMillis(r.now()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

func (r *sqliteIdentityRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func mapSQLiteError(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return domain.ErrIdentityExists
		case sqlite3.SQLITE_CONSTRAINT:
			if strings.Contains(sqliteErr.Error(), "UNIQUE") {
				return domain.ErrIdentityExists
			}
		}
	}
	return err
}
