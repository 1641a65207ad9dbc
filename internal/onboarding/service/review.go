package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	authmodels "zerina/internal/auth/models"
	"zerina/internal/notify"
	"zerina/internal/onboarding/models"
	"zerina/pkg/domain"
	dErrors "zerina/pkg/domain-errors"
	"zerina/pkg/platform/audit"
	"zerina/pkg/platform/sentinel"
)

// Review applies an administrative decision to an application. The
// transition, the role change, and the audit entry always go together;
// the outcome notification is fire-and-forget.
func (s *Service) Review(ctx context.Context, req models.ReviewRequest) (*models.VendorApplication, error) {
	ctx, span := s.tracer.Start(ctx, "vendor.Review")
	defer span.End()
	span.SetAttributes(
		attribute.String("application_id", req.ApplicationID.String()),
		attribute.String("decision", string(req.Decision)),
	)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		updated        *models.VendorApplication
		previousStatus models.ApplicationStatus
		applicant      *authmodels.User
	)

	// The transaction is keyed by the applicant, not the admin, so a
	// review and a concurrent submission from the same user serialize.
	app, err := s.apps.FindByID(ctx, req.ApplicationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}

	err = s.tx.RunInTx(ctx, app.UserID, func(ctx context.Context) error {
		var err error
		updated, err = s.apps.Execute(ctx, req.ApplicationID,
			func(cur *models.VendorApplication) error {
				previousStatus = cur.Status
				return cur.CanReview(req.Decision, req.RejectionReason)
			},
			func(cur *models.VendorApplication) {
				cur.ApplyDecision(req.AdminID, req.Decision, req.Notes, req.RejectionReason, s.now(ctx))
			},
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "application not found")
			}
			return err
		}

		// Approval grants VENDOR; rejection reverts to BUYER even for
		// a user approved through an earlier application. Rejecting
		// the current application always revokes seller privileges.
		targetRole := domain.RoleVendor
		roleEvent := audit.EventRoleElevated
		if req.Decision == models.StatusRejected {
			targetRole = domain.RoleBuyer
			roleEvent = audit.EventRoleDemoted
		}
		applicant, err = s.users.Execute(ctx, updated.UserID,
			func(u *authmodels.User) error { return u.CanChangeRole(targetRole) },
			func(u *authmodels.User) { u.ApplyRoleChange(targetRole, s.now(ctx)) },
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "applicant not found")
			}
			return err
		}
		s.logAudit(ctx, string(roleEvent),
			"user_id", applicant.ID.String(),
			"actor_id", req.AdminID.String(),
			"new_status", string(targetRole),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.countReview(req.Decision)
	s.dispatchOutcome(ctx, applicant, updated)

	// The audit entry is appended unconditionally after a successful
	// transition, whatever happened to the notification.
	decisionEvent := audit.EventApplicationApproved
	if req.Decision == models.StatusRejected {
		decisionEvent = audit.EventApplicationRejected
	}
	s.logAudit(ctx, string(decisionEvent),
		"user_id", updated.UserID.String(),
		"actor_id", req.AdminID.String(),
		"application_id", updated.ID.String(),
		"decision", string(req.Decision),
		"reason", req.RejectionReason,
		"notes", req.Notes,
		"previous_status", string(previousStatus),
		"new_status", string(updated.Status),
	)

	return updated, nil
}

// dispatchOutcome sends the applicant their outcome email. Failures
// are logged and swallowed; the decision already happened.
func (s *Service) dispatchOutcome(ctx context.Context, applicant *authmodels.User, app *models.VendorApplication) {
	if s.notify == nil || applicant == nil || applicant.Email == "" {
		return
	}

	var (
		outcome notify.Outcome
		err     error
	)
	if app.Status == models.StatusApproved {
		outcome, err = notify.RenderApproval(applicant.Email, app.LegalName)
	} else {
		reason := ""
		if app.RejectionReason != nil {
			reason = *app.RejectionReason
		}
		outcome, err = notify.RenderRejection(applicant.Email, app.LegalName, reason)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to render outcome notification", "application_id", app.ID, "error", err)
		return
	}
	if err := s.notify.SendApplicationOutcome(ctx, outcome); err != nil {
		s.logger.ErrorContext(ctx, "failed to dispatch outcome notification",
			"application_id", app.ID, "email", applicant.Email, "error", err)
	}
}
