// Package service owns the vendor application lifecycle: the
// submission path, document reassignment, and the administrative
// review transition with its side effects.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	authmodels "zerina/internal/auth/models"
	"zerina/internal/identity"
	"zerina/internal/notify"
	"zerina/internal/onboarding/metrics"
	"zerina/internal/onboarding/models"
	"zerina/pkg/attrs"
	"zerina/pkg/domain"
	"zerina/pkg/platform/audit"
	"zerina/pkg/requestcontext"
)

type ApplicationStore interface {
	Save(ctx context.Context, app *models.VendorApplication) error
	FindByID(ctx context.Context, appID domain.ApplicationID) (*models.VendorApplication, error)
	FindLatestByUser(ctx context.Context, userID domain.UserID) (*models.VendorApplication, error)
	CreateIfNoneActive(ctx context.Context, app *models.VendorApplication) error
	Execute(ctx context.Context, appID domain.ApplicationID,
		validate func(*models.VendorApplication) error,
		mutate func(*models.VendorApplication)) (*models.VendorApplication, error)
}

type DocumentStore interface {
	FindByIDsForUser(ctx context.Context, userID domain.UserID, docIDs []domain.DocumentID) (found []*models.VendorDocument, missing []domain.DocumentID, err error)
	ListByApplication(ctx context.Context, appID domain.ApplicationID) ([]*models.VendorDocument, error)
	Attach(ctx context.Context, docID domain.DocumentID, appID domain.ApplicationID) error
	Detach(ctx context.Context, docID domain.DocumentID) error
}

type UserStore interface {
	FindByID(ctx context.Context, userID domain.UserID) (*authmodels.User, error)
	Execute(ctx context.Context, userID domain.UserID,
		validate func(*authmodels.User) error,
		mutate func(*authmodels.User)) (*authmodels.User, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Policy is the configuration the service reads at call time.
type Policy struct {
	Deposit models.DepositPolicy
	// MinScore is the minimum identity confidence score; provider
	// results scoring below it are forced to FAILED.
	MinScore float64
	// VerificationTimeout bounds the identity provider call.
	VerificationTimeout time.Duration
}

// Service orchestrates the vendor onboarding workflow.
type Service struct {
	apps           ApplicationStore
	docs           DocumentStore
	users          UserStore
	tx             StoreTx
	idv            identity.Client
	notify         notify.Dispatcher
	policy         Policy
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithIdentityClient(client identity.Client) Option {
	return func(s *Service) { s.idv = client }
}

func WithNotifier(dispatcher notify.Dispatcher) Option {
	return func(s *Service) { s.notify = dispatcher }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a Service. The identity client and notifier are
// optional; without an identity client verification is NOT_REQUIRED
// and without a notifier outcome emails are skipped.
func New(apps ApplicationStore, docs DocumentStore, users UserStore, tx StoreTx, policy Policy, opts ...Option) *Service {
	s := &Service{
		apps:   apps,
		docs:   docs,
		users:  users,
		tx:     tx,
		policy: policy,
		logger: slog.Default(),
		tracer: otel.Tracer("vendor/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)

	if s.auditPublisher == nil {
		return
	}
	userIDStr := attrs.ExtractString(attributes, "user_id")
	e := audit.Event{
		ActorID:        attrs.ExtractString(attributes, "actor_id"),
		Subject:        attrs.ExtractString(attributes, "application_id"),
		Action:         event,
		Decision:       attrs.ExtractString(attributes, "decision"),
		Reason:         attrs.ExtractString(attributes, "reason"),
		Notes:          attrs.ExtractString(attributes, "notes"),
		PreviousStatus: attrs.ExtractString(attributes, "previous_status"),
		NewStatus:      attrs.ExtractString(attributes, "new_status"),
		Email:          attrs.ExtractString(attributes, "email"),
		RequestID:      requestcontext.RequestID(ctx),
	}
	if userID, err := domain.ParseUserID(userIDStr); err == nil {
		e.UserID = userID
	}
	if err := s.auditPublisher.Emit(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "event", event, "error", err)
	}
}

func (s *Service) countSubmission(outcome models.Outcome) {
	if s.metrics != nil {
		s.metrics.Submissions.WithLabelValues(string(outcome)).Inc()
	}
}

func (s *Service) countReview(decision models.ApplicationStatus) {
	if s.metrics != nil {
		s.metrics.Reviews.WithLabelValues(string(decision)).Inc()
	}
}

func (s *Service) countVerification(status models.VerificationStatus) {
	if s.metrics != nil {
		s.metrics.VerificationOutcomes.WithLabelValues(string(status)).Inc()
	}
}
