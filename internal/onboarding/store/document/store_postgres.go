package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"zerina/internal/onboarding/models"
	"zerina/pkg/domain"
	"zerina/pkg/platform/sentinel"
	txcontext "zerina/pkg/platform/tx"
)

// PostgresStore persists vendor documents.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the DDL the store expects.
const Schema = `
CREATE TABLE IF NOT EXISTS vendor_documents (
	id             UUID PRIMARY KEY,
	user_id        UUID NOT NULL,
	application_id UUID,
	filename       TEXT NOT NULL,
	mime_type      TEXT NOT NULL,
	size_bytes     BIGINT NOT NULL,
	storage_key    TEXT NOT NULL,
	uploaded_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS vendor_documents_application
	ON vendor_documents (application_id) WHERE application_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS vendor_documents_user
	ON vendor_documents (user_id);
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

const documentColumns = `id, user_id, application_id, filename, mime_type, size_bytes, storage_key, uploaded_at`

func (s *PostgresStore) Save(ctx context.Context, doc *models.VendorDocument) error {
	query := `
		INSERT INTO vendor_documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			application_id = EXCLUDED.application_id,
			filename = EXCLUDED.filename,
			mime_type = EXCLUDED.mime_type,
			size_bytes = EXCLUDED.size_bytes,
			storage_key = EXCLUDED.storage_key
	`
	var appID *string
	if doc.ApplicationID != nil {
		v := doc.ApplicationID.String()
		appID = &v
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		doc.ID.String(), doc.UserID.String(), appID,
		doc.Filename, doc.MIMEType, doc.SizeBytes, doc.StorageKey, doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("save vendor document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, docID domain.DocumentID) (*models.VendorDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM vendor_documents WHERE id = $1`
	doc, err := scanDocument(s.execer(ctx).QueryRowContext(ctx, query, docID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return doc, err
}

func (s *PostgresStore) FindByIDsForUser(ctx context.Context, userID domain.UserID, docIDs []domain.DocumentID) ([]*models.VendorDocument, []domain.DocumentID, error) {
	if len(docIDs) == 0 {
		return nil, nil, nil
	}

	ids := make([]string, len(docIDs))
	for i, docID := range docIDs {
		ids[i] = docID.String()
	}
	query := `
		SELECT ` + documentColumns + `
		FROM vendor_documents
		WHERE user_id = $1 AND id = ANY($2)
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, userID.String(), ids)
	if err != nil {
		return nil, nil, fmt.Errorf("query vendor documents: %w", err)
	}
	defer rows.Close()

	foundByID := make(map[domain.DocumentID]*models.VendorDocument, len(docIDs))
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, nil, err
		}
		foundByID[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var (
		found   []*models.VendorDocument
		missing []domain.DocumentID
	)
	for _, docID := range docIDs {
		if doc, ok := foundByID[docID]; ok {
			found = append(found, doc)
		} else {
			missing = append(missing, docID)
		}
	}
	return found, missing, nil
}

func (s *PostgresStore) ListByApplication(ctx context.Context, appID domain.ApplicationID) ([]*models.VendorDocument, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM vendor_documents
		WHERE application_id = $1
		ORDER BY uploaded_at ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, appID.String())
	if err != nil {
		return nil, fmt.Errorf("query attached documents: %w", err)
	}
	defer rows.Close()

	var out []*models.VendorDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Attach sets the document's application. The WHERE clause refuses to
// steal a document attached elsewhere, so a concurrent reassignment
// cannot break the one-application invariant.
func (s *PostgresStore) Attach(ctx context.Context, docID domain.DocumentID, appID domain.ApplicationID) error {
	query := `
		UPDATE vendor_documents
		SET application_id = $1
		WHERE id = $2 AND (application_id IS NULL OR application_id = $1)
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, appID.String(), docID.String())
	if err != nil {
		return fmt.Errorf("attach vendor document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("attach vendor document: %w", err)
	}
	if affected == 0 {
		if _, err := s.FindByID(ctx, docID); err != nil {
			return err
		}
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Detach(ctx context.Context, docID domain.DocumentID) error {
	query := `UPDATE vendor_documents SET application_id = NULL WHERE id = $1`
	res, err := s.execer(ctx).ExecContext(ctx, query, docID.String())
	if err != nil {
		return fmt.Errorf("detach vendor document: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Delete removes an unattached document.
func (s *PostgresStore) Delete(ctx context.Context, docID domain.DocumentID) error {
	query := `DELETE FROM vendor_documents WHERE id = $1 AND application_id IS NULL`
	res, err := s.execer(ctx).ExecContext(ctx, query, docID.String())
	if err != nil {
		return fmt.Errorf("delete vendor document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete vendor document: %w", err)
	}
	if affected == 0 {
		if _, err := s.FindByID(ctx, docID); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.VendorDocument, error) {
	var (
		doc              models.VendorDocument
		idStr, userIDStr string
		appID            sql.NullString
	)
	err := row.Scan(&idStr, &userIDStr, &appID,
		&doc.Filename, &doc.MIMEType, &doc.SizeBytes, &doc.StorageKey, &doc.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan vendor document: %w", err)
	}

	if doc.ID, err = domain.ParseDocumentID(idStr); err != nil {
		return nil, fmt.Errorf("scan vendor document id: %w", err)
	}
	if doc.UserID, err = domain.ParseUserID(userIDStr); err != nil {
		return nil, fmt.Errorf("scan vendor document user id: %w", err)
	}
	if appID.Valid {
		parsed, err := domain.ParseApplicationID(appID.String)
		if err != nil {
			return nil, fmt.Errorf("scan vendor document application id: %w", err)
		}
		doc.ApplicationID = &parsed
	}
	return &doc, nil
}
