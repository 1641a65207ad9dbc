package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	authmodels "zerina/internal/auth/models"
	"zerina/internal/identity"
	"zerina/internal/onboarding/models"
	"zerina/pkg/domain"
	dErrors "zerina/pkg/domain-errors"
	"zerina/pkg/platform/audit"
	"zerina/pkg/platform/sentinel"
	"zerina/pkg/requestcontext"
)

// SubmitOrUpdate is the user-facing submission path. It creates the
// user's application on first contact, amends it while PENDING,
// reopens it after rejection, and degrades to an idempotent role check
// once approved.
func (s *Service) SubmitOrUpdate(ctx context.Context, req models.SubmitRequest) (*models.SubmissionResult, error) {
	ctx, span := s.tracer.Start(ctx, "vendor.SubmitOrUpdate")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", req.UserID.String()))

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if user.IsAdmin() {
		s.countSubmission(models.OutcomeAlreadyAdmin)
		return &models.SubmissionResult{Outcome: models.OutcomeAlreadyAdmin}, nil
	}

	var (
		outcome   models.Outcome
		appID     domain.ApplicationID
		firstEver bool
	)
	err = s.tx.RunInTx(ctx, req.UserID, func(ctx context.Context) error {
		latest, err := s.apps.FindLatestByUser(ctx, req.UserID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
		}

		if latest != nil && latest.Status == models.StatusApproved {
			// Idempotent ensure-role path. The application is not
			// touched; the role is fixed up after the transaction.
			outcome = models.OutcomeAlreadyVendor
			appID = latest.ID
			return nil
		}

		if latest == nil {
			app, err := models.NewVendorApplication(req.UserID, req.Fields, s.idv != nil, s.policy.Deposit, s.now(ctx))
			if err != nil {
				return err
			}
			// Validate documents before the insert so a rejected
			// document set aborts with nothing committed.
			desired, err := s.checkDocuments(ctx, req.UserID, app.ID, dedupeDocumentIDs(req.DocumentIDs))
			if err != nil {
				return err
			}
			if err := s.apps.CreateIfNoneActive(ctx, app); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					// Lost a race with a concurrent first submission.
					// Fall through to the update path against the row
					// the winner created.
					return s.updateExisting(ctx, req, &outcome, &appID)
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
			}
			outcome = models.OutcomeCreated
			appID = app.ID
			firstEver = true
			return s.applyReassign(ctx, req.UserID, app.ID, desired)
		}
		return s.amendApplication(ctx, req, latest, &outcome, &appID)
	})
	if err != nil {
		return nil, err
	}

	// Verification runs only on the first-ever submission.
	// Resubmission after rejection deliberately skips it; the original
	// identity check stands and reviewers see its recorded outcome.
	if firstEver && s.idv != nil {
		s.runVerification(ctx, user, appID)
	}

	refreshOwed, err := s.ensureVendorRole(ctx, user)
	if err != nil {
		return nil, err
	}

	app, err := s.apps.FindByID(ctx, appID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload application")
	}

	s.countSubmission(outcome)
	s.logAudit(ctx, submissionAuditEvent(outcome),
		"user_id", req.UserID.String(),
		"application_id", appID.String(),
		"new_status", string(app.Status),
	)

	return &models.SubmissionResult{
		Outcome:            outcome,
		Application:        app,
		SessionRefreshOwed: refreshOwed,
	}, nil
}

// updateExisting is the race-loser path: the concurrent winner's
// PENDING row is amended in place.
func (s *Service) updateExisting(ctx context.Context, req models.SubmitRequest, outcome *models.Outcome, appID *domain.ApplicationID) error {
	latest, err := s.apps.FindLatestByUser(ctx, req.UserID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	return s.amendApplication(ctx, req, latest, outcome, appID)
}

// amendApplication updates a PENDING row in place or reopens a
// REJECTED one. Documents are validated before the row is mutated.
func (s *Service) amendApplication(ctx context.Context, req models.SubmitRequest, latest *models.VendorApplication, outcome *models.Outcome, appID *domain.ApplicationID) error {
	desiredIDs, err := s.resolveDocumentIDs(ctx, req, latest.ID)
	if err != nil {
		return err
	}
	desired, err := s.checkDocuments(ctx, req.UserID, latest.ID, desiredIDs)
	if err != nil {
		return err
	}

	resubmission := latest.Status == models.StatusRejected
	updated, err := s.apps.Execute(ctx, latest.ID,
		func(*models.VendorApplication) error { return nil },
		func(app *models.VendorApplication) {
			if resubmission {
				app.ApplyResubmission(req.Fields, s.policy.Deposit, s.now(ctx))
				return
			}
			app.ApplyFieldUpdate(req.Fields, s.now(ctx))
			app.RecomputeDeposit(s.policy.Deposit)
		},
	)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update application")
	}

	if resubmission {
		*outcome = models.OutcomeResubmitted
	} else {
		*outcome = models.OutcomeUpdated
	}
	*appID = updated.ID
	return s.applyReassign(ctx, req.UserID, updated.ID, desired)
}

// runVerification submits the applicant to the identity provider and
// persists the mapped outcome. Provider failure never fails the
// submission; the application proceeds to manual review carrying a
// FAILED verification sub-state.
func (s *Service) runVerification(ctx context.Context, user *authmodels.User, appID domain.ApplicationID) {
	ctx, span := s.tracer.Start(ctx, "vendor.runVerification")
	defer span.End()

	app, err := s.apps.FindByID(ctx, appID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load application for verification", "application_id", appID, "error", err)
		return
	}

	timeout := s.policy.VerificationTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := s.idv.Submit(callCtx, identity.Request{
		ApplicantID: user.ID.String(),
		LegalName:   app.LegalName,
		Email:       user.Email,
		Country:     app.Country,
		Reference:   appID.String(),
	})
	if s.metrics != nil {
		s.metrics.VerificationDuration.Observe(time.Since(start).Seconds())
	}

	now := s.now(ctx)
	persisted, persistErr := s.apps.Execute(ctx, appID,
		func(*models.VendorApplication) error { return nil },
		func(app *models.VendorApplication) {
			if err != nil {
				app.ApplyVerificationFailure(s.idv.Provider(), now)
				return
			}
			app.ApplyVerificationResult(mapVerificationStatus(result.Status),
				result.Provider, result.Reference, result.Reason,
				result.Score, s.policy.MinScore, now)
		},
	)
	if persistErr != nil {
		s.logger.ErrorContext(ctx, "failed to persist verification outcome", "application_id", appID, "error", persistErr)
		return
	}

	s.countVerification(persisted.Verification.Status)
	if err != nil || persisted.Verification.Status == models.VerificationFailed {
		s.logAudit(ctx, string(audit.EventVerificationFailed),
			"user_id", user.ID.String(),
			"application_id", appID.String(),
			"notes", persisted.Verification.Notes,
		)
		if err != nil {
			s.logger.WarnContext(ctx, "identity verification submission failed", "application_id", appID, "error", err)
		}
		return
	}
	s.logAudit(ctx, string(audit.EventVerificationSubmitted),
		"user_id", user.ID.String(),
		"application_id", appID.String(),
		"new_status", string(persisted.Verification.Status),
	)
}

// ensureVendorRole elevates the user to VENDOR when needed and reports
// whether the caller owes the user a refreshed session credential.
func (s *Service) ensureVendorRole(ctx context.Context, user *authmodels.User) (bool, error) {
	if user.Role == domain.RoleVendor {
		return false, nil
	}
	_, err := s.users.Execute(ctx, user.ID,
		func(u *authmodels.User) error { return u.CanChangeRole(domain.RoleVendor) },
		func(u *authmodels.User) { u.ApplyRoleChange(domain.RoleVendor, s.now(ctx)) },
	)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to elevate role")
	}
	s.logAudit(ctx, string(audit.EventRoleElevated),
		"user_id", user.ID.String(),
		"new_status", string(domain.RoleVendor),
	)
	return true, nil
}

func (s *Service) now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC()
}

func mapVerificationStatus(status identity.Status) models.VerificationStatus {
	switch status {
	case identity.StatusVerified:
		return models.VerificationVerified
	case identity.StatusFailed:
		return models.VerificationFailed
	default:
		return models.VerificationPending
	}
}

func submissionAuditEvent(outcome models.Outcome) string {
	switch outcome {
	case models.OutcomeCreated:
		return string(audit.EventApplicationCreated)
	case models.OutcomeResubmitted:
		return string(audit.EventApplicationResubmitted)
	default:
		return string(audit.EventApplicationUpdated)
	}
}
