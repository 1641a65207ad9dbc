package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"zerina/internal/onboarding/models"
	"zerina/pkg/domain"
	"zerina/pkg/platform/sentinel"
	txcontext "zerina/pkg/platform/tx"
)

// PostgresStore persists applications in the vendor_applications
// table. A partial unique index on (user_id) WHERE status = 'PENDING'
// is what makes CreateIfNoneActive race-safe across instances.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the DDL the store expects. Applied by migrations in
// deployment and directly by integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS vendor_applications (
	id                     UUID PRIMARY KEY,
	user_id                UUID NOT NULL,
	status                 TEXT NOT NULL,
	legal_name             TEXT NOT NULL,
	country                TEXT NOT NULL,
	address                TEXT,
	contact_phone          TEXT,
	submitted_at           TIMESTAMPTZ NOT NULL,
	reviewed_at            TIMESTAMPTZ,
	reviewed_by_id         UUID,
	notes                  TEXT NOT NULL DEFAULT '',
	rejection_reason       TEXT,
	verification_status    TEXT NOT NULL,
	verification_provider  TEXT NOT NULL DEFAULT '',
	verification_reference TEXT NOT NULL DEFAULT '',
	verification_checked_at TIMESTAMPTZ,
	verification_notes     TEXT NOT NULL DEFAULT '',
	deposit_required       BOOLEAN NOT NULL DEFAULT FALSE,
	deposit_status         TEXT NOT NULL,
	deposit_amount_cents   BIGINT NOT NULL DEFAULT 0,
	deposit_currency       TEXT NOT NULL DEFAULT '',
	deposit_payment_ref    TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS vendor_applications_one_pending
	ON vendor_applications (user_id) WHERE status = 'PENDING';
CREATE INDEX IF NOT EXISTS vendor_applications_user_submitted
	ON vendor_applications (user_id, submitted_at DESC);
`

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const applicationColumns = `
	id, user_id, status, legal_name, country, address, contact_phone,
	submitted_at, reviewed_at, reviewed_by_id, notes, rejection_reason,
	verification_status, verification_provider, verification_reference,
	verification_checked_at, verification_notes,
	deposit_required, deposit_status, deposit_amount_cents,
	deposit_currency, deposit_payment_ref`

func (s *PostgresStore) Save(ctx context.Context, app *models.VendorApplication) error {
	query := `
		INSERT INTO vendor_applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			legal_name = EXCLUDED.legal_name,
			country = EXCLUDED.country,
			address = EXCLUDED.address,
			contact_phone = EXCLUDED.contact_phone,
			submitted_at = EXCLUDED.submitted_at,
			reviewed_at = EXCLUDED.reviewed_at,
			reviewed_by_id = EXCLUDED.reviewed_by_id,
			notes = EXCLUDED.notes,
			rejection_reason = EXCLUDED.rejection_reason,
			verification_status = EXCLUDED.verification_status,
			verification_provider = EXCLUDED.verification_provider,
			verification_reference = EXCLUDED.verification_reference,
			verification_checked_at = EXCLUDED.verification_checked_at,
			verification_notes = EXCLUDED.verification_notes,
			deposit_required = EXCLUDED.deposit_required,
			deposit_status = EXCLUDED.deposit_status,
			deposit_amount_cents = EXCLUDED.deposit_amount_cents,
			deposit_currency = EXCLUDED.deposit_currency,
			deposit_payment_ref = EXCLUDED.deposit_payment_ref
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, saveArgs(app)...); err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save vendor application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, appID domain.ApplicationID) (*models.VendorApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM vendor_applications WHERE id = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, appID.String()))
}

func (s *PostgresStore) FindLatestByUser(ctx context.Context, userID domain.UserID) (*models.VendorApplication, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM vendor_applications
		WHERE user_id = $1
		ORDER BY submitted_at DESC
		LIMIT 1
	`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, userID.String()))
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID domain.UserID) ([]*models.VendorApplication, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM vendor_applications
		WHERE user_id = $1
		ORDER BY submitted_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("query vendor applications: %w", err)
	}
	defer rows.Close()

	var out []*models.VendorApplication
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

// CreateIfNoneActive inserts a new application, relying on the partial
// unique index to reject a second PENDING row for the same user.
func (s *PostgresStore) CreateIfNoneActive(ctx context.Context, app *models.VendorApplication) error {
	query := `
		INSERT INTO vendor_applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, saveArgs(app)...); err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create vendor application: %w", err)
	}
	return nil
}

// Execute reads the row with FOR UPDATE inside the ambient
// transaction, runs validate and mutate, and writes the result back.
func (s *PostgresStore) Execute(
	ctx context.Context,
	appID domain.ApplicationID,
	validate func(*models.VendorApplication) error,
	mutate func(*models.VendorApplication),
) (*models.VendorApplication, error) {
	exec := s.execer(ctx)
	query := `SELECT ` + applicationColumns + ` FROM vendor_applications WHERE id = $1`
	if _, inTx := txcontext.From(ctx); inTx {
		query += ` FOR UPDATE`
	}

	app, err := s.scanOne(exec.QueryRowContext(ctx, query, appID.String()))
	if err != nil {
		return nil, err
	}
	if err := validate(app); err != nil {
		return nil, err
	}
	mutate(app)
	if err := s.Save(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

func saveArgs(app *models.VendorApplication) []any {
	var reviewedBy *string
	if app.ReviewedByID != nil {
		v := app.ReviewedByID.String()
		reviewedBy = &v
	}
	return []any{
		app.ID.String(), app.UserID.String(), string(app.Status),
		app.LegalName, app.Country, app.Address, app.ContactPhone,
		app.SubmittedAt, app.ReviewedAt, reviewedBy, app.Notes, app.RejectionReason,
		string(app.Verification.Status), app.Verification.Provider,
		app.Verification.Reference, app.Verification.CheckedAt, app.Verification.Notes,
		app.Deposit.Required, string(app.Deposit.Status), app.Deposit.AmountCents,
		app.Deposit.Currency, app.Deposit.PaymentReference,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanOne(row *sql.Row) (*models.VendorApplication, error) {
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return app, err
}

func scanApplication(row rowScanner) (*models.VendorApplication, error) {
	var (
		app                models.VendorApplication
		idStr, userIDStr   string
		status             string
		reviewedBy         sql.NullString
		verificationStatus string
		depositStatus      string
	)
	err := row.Scan(
		&idStr, &userIDStr, &status,
		&app.LegalName, &app.Country, &app.Address, &app.ContactPhone,
		&app.SubmittedAt, &app.ReviewedAt, &reviewedBy, &app.Notes, &app.RejectionReason,
		&verificationStatus, &app.Verification.Provider,
		&app.Verification.Reference, &app.Verification.CheckedAt, &app.Verification.Notes,
		&app.Deposit.Required, &depositStatus, &app.Deposit.AmountCents,
		&app.Deposit.Currency, &app.Deposit.PaymentReference,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan vendor application: %w", err)
	}

	if app.ID, err = domain.ParseApplicationID(idStr); err != nil {
		return nil, fmt.Errorf("scan vendor application id: %w", err)
	}
	if app.UserID, err = domain.ParseUserID(userIDStr); err != nil {
		return nil, fmt.Errorf("scan vendor application user id: %w", err)
	}
	if reviewedBy.Valid {
		reviewerID, err := domain.ParseUserID(reviewedBy.String)
		if err != nil {
			return nil, fmt.Errorf("scan vendor application reviewer id: %w", err)
		}
		app.ReviewedByID = &reviewerID
	}
	app.Status = models.ApplicationStatus(status)
	app.Verification.Status = models.VerificationStatus(verificationStatus)
	app.Deposit.Status = models.DepositStatus(depositStatus)
	return &app, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
