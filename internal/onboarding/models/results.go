package models

import (
	"zerina/pkg/domain"
	dErrors "zerina/pkg/domain-errors"
)

// Outcome is the closed set of submission results. Callers switch on
// it exhaustively instead of inspecting loose flags.
type Outcome string

const (
	OutcomeAlreadyAdmin  Outcome = "already_admin"
	OutcomeAlreadyVendor Outcome = "already_vendor"
	OutcomeUpdated       Outcome = "updated"
	OutcomeResubmitted   Outcome = "resubmitted"
	OutcomeCreated       Outcome = "created"
)

// SubmitRequest carries one submission attempt.
//
// DocumentIDsProvided distinguishes "documentIds omitted" (keep the
// current attachment set) from "documentIds: []" (detach everything).
type SubmitRequest struct {
	UserID              domain.UserID
	Fields              Fields
	DocumentIDs         []domain.DocumentID
	DocumentIDsProvided bool
}

// SubmissionResult is what the submission path hands back to the
// transport layer.
type SubmissionResult struct {
	Outcome            Outcome
	Application        *VendorApplication
	SessionRefreshOwed bool
}

// ReviewRequest carries one administrative decision.
type ReviewRequest struct {
	AdminID         domain.UserID
	ApplicationID   domain.ApplicationID
	Decision        ApplicationStatus
	Notes           string
	RejectionReason string
}

// Validate checks the decision shape before any state is touched.
func (r ReviewRequest) Validate() error {
	if r.ApplicationID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "applicationId is required")
	}
	if r.AdminID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "adminId is required")
	}
	switch r.Decision {
	case StatusApproved:
	case StatusRejected:
		if r.RejectionReason == "" {
			return dErrors.New(dErrors.CodeValidation, "rejectionReason is required when rejecting")
		}
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "invalid review decision %q", r.Decision)
	}
	return nil
}
