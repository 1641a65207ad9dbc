package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "zerina/pkg/domain"
	audit "zerina/pkg/platform/audit"
	txcontext "zerina/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table in the same transaction as the
// business mutation and drained to Kafka by the outbox worker. Kafka is the
// source of truth for audit events.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema creates the outbox and the materialized audit_events table the
// consumer maintains.
const Schema = `
CREATE TABLE IF NOT EXISTS outbox (
	id             UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	payload        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	published_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS outbox_unpublished
	ON outbox (created_at) WHERE published_at IS NULL;
CREATE TABLE IF NOT EXISTS audit_events (
	id              BIGSERIAL PRIMARY KEY,
	category        TEXT NOT NULL,
	occurred_at     TIMESTAMPTZ NOT NULL,
	user_id         UUID,
	actor_id        TEXT NOT NULL DEFAULT '',
	subject         TEXT NOT NULL DEFAULT '',
	action          TEXT NOT NULL,
	decision        TEXT NOT NULL DEFAULT '',
	reason          TEXT NOT NULL DEFAULT '',
	notes           TEXT NOT NULL DEFAULT '',
	previous_status TEXT NOT NULL DEFAULT '',
	new_status      TEXT NOT NULL DEFAULT '',
	request_id      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_events_user
	ON audit_events (user_id, occurred_at);
`

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka.
// Field names match audit.Event for proper deserialization by the consumer.
type outboxPayload struct {
	ID             string `json:"ID"`
	Category       string `json:"Category"`
	Timestamp      string `json:"Timestamp"`
	UserID         string `json:"UserID,omitempty"`
	ActorID        string `json:"ActorID,omitempty"`
	Subject        string `json:"Subject"`
	Action         string `json:"Action"`
	Decision       string `json:"Decision,omitempty"`
	Reason         string `json:"Reason,omitempty"`
	Notes          string `json:"Notes,omitempty"`
	PreviousStatus string `json:"PreviousStatus,omitempty"`
	NewStatus      string `json:"NewStatus,omitempty"`
	Email          string `json:"Email,omitempty"`
	RequestID      string `json:"RequestID,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// Always derive category from action - eventCategories map is the source of truth
	category := audit.AuditEvent(event.Action).Category()

	payload := outboxPayload{
		ID:             eventID.String(),
		Category:       string(category),
		Timestamp:      event.Timestamp.Format(time.RFC3339Nano),
		ActorID:        event.ActorID,
		Subject:        event.Subject,
		Action:         event.Action,
		Decision:       event.Decision,
		Reason:         event.Reason,
		Notes:          event.Notes,
		PreviousStatus: event.PreviousStatus,
		NewStatus:      event.NewStatus,
		Email:          event.Email,
		RequestID:      event.RequestID,
	}
	if !event.UserID.IsNil() {
		payload.UserID = event.UserID.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType := "audit"
	aggregateID := eventID.String()
	if !event.UserID.IsNil() {
		aggregateType = "user"
		aggregateID = event.UserID.String()
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.New(), // outbox entry ID
		aggregateType,
		aggregateID,
		event.Action,
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListByUser returns materialized audit events for a user, newest last.
// Rows come from the audit_events table the consumer maintains, not the
// outbox, so the answer reflects what was actually published.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	query := `
		SELECT category, occurred_at, actor_id, subject, action, decision,
		       reason, notes, previous_status, new_status, request_id
		FROM audit_events
		WHERE user_id = $1
		ORDER BY occurred_at ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e        audit.Event
			category string
		)
		e.UserID = userID
		if err := rows.Scan(&category, &e.Timestamp, &e.ActorID, &e.Subject,
			&e.Action, &e.Decision, &e.Reason, &e.Notes,
			&e.PreviousStatus, &e.NewStatus, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		events = append(events, e)
	}
	return events, rows.Err()
}

// OutboxEntry is a pending row awaiting publication.
type OutboxEntry struct {
	ID        uuid.UUID
	EventType string
	Payload   []byte
}

// FetchUnpublished returns up to limit outbox rows that have not been
// published yet, oldest first.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT id, event_type, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.EventType, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkPublished stamps an outbox row after the broker acknowledged it.
// Idempotent: re-marking an already published row is a no-op.
func (s *Store) MarkPublished(ctx context.Context, entryID uuid.UUID) error {
	query := `UPDATE outbox SET published_at = $1 WHERE id = $2 AND published_at IS NULL`
	if _, err := s.db.ExecContext(ctx, query, time.Now(), entryID); err != nil {
		return fmt.Errorf("mark outbox entry published: %w", err)
	}
	return nil
}

// MarkPublishedBatch stamps a set of outbox rows in one round trip.
// The outbox worker calls this once per drained batch.
func (s *Store) MarkPublishedBatch(ctx context.Context, entryIDs []uuid.UUID) error {
	if len(entryIDs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(entryIDs))
	for _, entryID := range entryIDs {
		ids = append(ids, entryID.String())
	}
	query := `
		UPDATE outbox SET published_at = $1
		WHERE id = ANY($2::uuid[]) AND published_at IS NULL
	`
	if _, err := s.db.ExecContext(ctx, query, time.Now(), pq.Array(ids)); err != nil {
		return fmt.Errorf("mark outbox batch published: %w", err)
	}
	return nil
}
