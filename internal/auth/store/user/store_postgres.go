package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"zerina/internal/auth/models"
	"zerina/pkg/domain"
	"zerina/pkg/platform/sentinel"
	txcontext "zerina/pkg/platform/tx"
)

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema creates the users table.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id             UUID PRIMARY KEY,
	email          TEXT NOT NULL,
	email_verified BOOLEAN NOT NULL DEFAULT FALSE,
	phone          TEXT,
	phone_verified BOOLEAN NOT NULL DEFAULT FALSE,
	role           TEXT NOT NULL,
	password_hash  TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower
	ON users (lower(email));
`

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const userColumns = `
	id, email, email_verified, phone, phone_verified, role,
	password_hash, created_at, updated_at`

func (s *PostgresStore) Save(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			email_verified = EXCLUDED.email_verified,
			phone = EXCLUDED.phone,
			phone_verified = EXCLUDED.phone_verified,
			role = EXCLUDED.role,
			password_hash = EXCLUDED.password_hash,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		u.ID.String(), u.Email, u.EmailVerified, u.Phone, u.PhoneVerified,
		u.Role.String(), u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID domain.UserID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, userID.String()))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, strings.TrimSpace(email)))
}

// Execute reads the row with FOR UPDATE inside the ambient transaction,
// runs validate and mutate, and writes the result back.
func (s *PostgresStore) Execute(
	ctx context.Context,
	userID domain.UserID,
	validate func(*models.User) error,
	mutate func(*models.User),
) (*models.User, error) {
	exec := s.execer(ctx)
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if _, inTx := txcontext.From(ctx); inTx {
		query += ` FOR UPDATE`
	}

	u, err := s.scanOne(exec.QueryRowContext(ctx, query, userID.String()))
	if err != nil {
		return nil, err
	}
	if err := validate(u); err != nil {
		return nil, err
	}
	mutate(u)
	if err := s.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID domain.UserID) error {
	result, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID.String())
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) scanOne(row *sql.Row) (*models.User, error) {
	var (
		u           models.User
		idStr, role string
	)
	err := row.Scan(
		&idStr, &u.Email, &u.EmailVerified, &u.Phone, &u.PhoneVerified,
		&role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if u.ID, err = domain.ParseUserID(idStr); err != nil {
		return nil, fmt.Errorf("scan user id: %w", err)
	}
	if u.Role, err = domain.ParseRole(role); err != nil {
		return nil, fmt.Errorf("scan user role: %w", err)
	}
	return &u, nil
}
