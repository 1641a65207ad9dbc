package audit

import (
	"context"
	"time"

	id "zerina/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: administrative review decisions, role changes.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	// Examples: rate limit hits, captcha failures.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// UserID is the user affected by the action (the applicant).
	UserID id.UserID
	// ActorID tracks who performed the action when different from UserID.
	// Used for administrative review where an admin acts on an application.
	ActorID string
	Subject string
	Action  string
	// Decision is the outcome of the action (e.g. "APPROVED", "REJECTED").
	Decision string
	Reason   string
	Notes    string
	// PreviousStatus/NewStatus record the application transition for review
	// decisions so the trail reconstructs the state machine.
	PreviousStatus string
	NewStatus      string
	Email          string
	RequestID      string
}

// AuditEvent names every action the service records.
type AuditEvent string

const (
	// Application lifecycle events
	EventApplicationCreated     AuditEvent = "application_created"
	EventApplicationUpdated     AuditEvent = "application_updated"
	EventApplicationResubmitted AuditEvent = "application_resubmitted"
	EventApplicationApproved    AuditEvent = "application_approved"
	EventApplicationRejected    AuditEvent = "application_rejected"

	// Role events
	EventRoleElevated AuditEvent = "role_elevated"
	EventRoleDemoted  AuditEvent = "role_demoted"

	// Document events
	EventDocumentsReassigned AuditEvent = "documents_reassigned"

	// Verification events
	EventVerificationSubmitted AuditEvent = "verification_submitted"
	EventVerificationFailed    AuditEvent = "verification_failed"

	// Guard events
	EventRateLimitExceeded AuditEvent = "rate_limit_exceeded"
	EventCaptchaFailed     AuditEvent = "captcha_failed"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - require tamper-proof storage
	EventApplicationApproved: CategoryCompliance,
	EventApplicationRejected: CategoryCompliance,
	EventRoleElevated:        CategoryCompliance,
	EventRoleDemoted:         CategoryCompliance,

	// Security events - feed into SIEM and alerting
	EventRateLimitExceeded:  CategorySecurity,
	EventCaptchaFailed:      CategorySecurity,
	EventVerificationFailed: CategorySecurity,

	// Operations events - routine activity, can be sampled
	EventApplicationCreated:     CategoryOperations,
	EventApplicationUpdated:     CategoryOperations,
	EventApplicationResubmitted: CategoryOperations,
	EventDocumentsReassigned:    CategoryOperations,
	EventVerificationSubmitted:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations append-only; events are never
// mutated or deleted.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
