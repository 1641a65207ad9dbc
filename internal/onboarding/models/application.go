// Package models holds the vendor onboarding aggregates. State
// transitions live here as Can*/Apply* pairs so stores can run them
// inside their own transaction discipline.
package models

import (
	"fmt"
	"time"

	"zerina/pkg/domain"
	dErrors "zerina/pkg/domain-errors"
)

// ApplicationStatus is the lifecycle state of a vendor application.
type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "PENDING"
	StatusApproved ApplicationStatus = "APPROVED"
	StatusRejected ApplicationStatus = "REJECTED"
)

func (s ApplicationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether the status was set by an administrative
// decision. Terminal applications are never edited in place.
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// VerificationStatus is the identity-verification sub-state.
type VerificationStatus string

const (
	VerificationNotRequired VerificationStatus = "NOT_REQUIRED"
	VerificationPending     VerificationStatus = "PENDING"
	VerificationVerified    VerificationStatus = "VERIFIED"
	VerificationFailed      VerificationStatus = "FAILED"
)

// DepositStatus is the security-deposit sub-state.
type DepositStatus string

const (
	DepositNotRequired DepositStatus = "NOT_REQUIRED"
	DepositPending     DepositStatus = "PENDING"
	DepositPaid        DepositStatus = "PAID"
)

// IdentityVerification tracks the outcome of the external identity
// check for one application.
type IdentityVerification struct {
	Status    VerificationStatus
	Provider  string
	Reference string
	CheckedAt *time.Time
	Notes     string
}

// SecurityDeposit tracks the monetary hold a vendor may owe before
// transacting.
type SecurityDeposit struct {
	Required         bool
	Status           DepositStatus
	AmountCents      int64
	Currency         string
	PaymentReference string
}

// DepositPolicy is the deposit configuration read at call time.
type DepositPolicy struct {
	Enabled     bool
	AmountCents int64
	Currency    string
}

// VendorApplication is a user's request to sell on the marketplace.
// A user has at most one PENDING application at a time; decided
// applications stay around as history.
type VendorApplication struct {
	ID           domain.ApplicationID
	UserID       domain.UserID
	Status       ApplicationStatus
	LegalName    string
	Country      string
	Address      *string
	ContactPhone *string

	SubmittedAt  time.Time
	ReviewedAt   *time.Time
	ReviewedByID *domain.UserID
	Notes        string
	// RejectionReason is shown to the applicant; cleared on approval.
	RejectionReason *string

	Verification IdentityVerification
	Deposit      SecurityDeposit
}

// Fields are the applicant-supplied business identity fields. Nil
// pointers mean "not provided" and preserve stored values on update.
type Fields struct {
	LegalName    *string
	Country      *string
	Address      *string
	ContactPhone *string
}

// NewVendorApplication creates a fresh PENDING application. The
// identity sub-state starts PENDING when a provider check will run and
// NOT_REQUIRED otherwise.
func NewVendorApplication(userID domain.UserID, fields Fields, verificationRequired bool, policy DepositPolicy, now time.Time) (*VendorApplication, error) {
	if fields.LegalName == nil || *fields.LegalName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "legalName is required")
	}
	if fields.Country == nil || *fields.Country == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "country is required")
	}

	app := &VendorApplication{
		ID:           domain.NewApplicationID(),
		UserID:       userID,
		Status:       StatusPending,
		LegalName:    *fields.LegalName,
		Country:      *fields.Country,
		Address:      fields.Address,
		ContactPhone: fields.ContactPhone,
		SubmittedAt:  now,
		Verification: IdentityVerification{Status: VerificationNotRequired},
	}
	if verificationRequired {
		app.Verification.Status = VerificationPending
	}
	app.RecomputeDeposit(policy)
	return app, nil
}

// ApplyFieldUpdate merges applicant-supplied fields into the
// application. Omitted fields keep their stored values.
func (a *VendorApplication) ApplyFieldUpdate(fields Fields, now time.Time) {
	if fields.LegalName != nil && *fields.LegalName != "" {
		a.LegalName = *fields.LegalName
	}
	if fields.Country != nil && *fields.Country != "" {
		a.Country = *fields.Country
	}
	if fields.Address != nil {
		a.Address = fields.Address
	}
	if fields.ContactPhone != nil {
		a.ContactPhone = fields.ContactPhone
	}
	a.SubmittedAt = now
}

// ApplyResubmission reopens a rejected application for a fresh review
// round. Review fields are cleared so the next decision starts clean;
// the identity sub-state is kept since resubmission does not re-run
// verification.
func (a *VendorApplication) ApplyResubmission(fields Fields, policy DepositPolicy, now time.Time) {
	a.Status = StatusPending
	a.ReviewedAt = nil
	a.ReviewedByID = nil
	a.RejectionReason = nil
	a.Notes = ""
	a.ApplyFieldUpdate(fields, now)
	a.RecomputeDeposit(policy)
}

// RecomputeDeposit re-derives the deposit requirement from current
// configuration. A deposit that was already paid stays paid even if
// the policy later changes.
func (a *VendorApplication) RecomputeDeposit(policy DepositPolicy) {
	if a.Deposit.Status == DepositPaid {
		return
	}
	if !policy.Enabled {
		a.Deposit = SecurityDeposit{Required: false, Status: DepositNotRequired}
		return
	}
	a.Deposit = SecurityDeposit{
		Required:    true,
		Status:      DepositPending,
		AmountCents: policy.AmountCents,
		Currency:    policy.Currency,
	}
}

// CanReview validates an administrative decision against the current
// state. Rejections always carry a reason; the applicant-facing
// message depends on it.
func (a *VendorApplication) CanReview(decision ApplicationStatus, rejectionReason string) error {
	switch decision {
	case StatusApproved:
	case StatusRejected:
		if rejectionReason == "" {
			return dErrors.New(dErrors.CodeValidation, "rejectionReason is required when rejecting")
		}
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "invalid review decision %q", decision)
	}
	return nil
}

// ApplyDecision records the administrative decision. Approval clears
// any stored rejection reason, including one left from an earlier
// rejection round.
func (a *VendorApplication) ApplyDecision(adminID domain.UserID, decision ApplicationStatus, notes, rejectionReason string, now time.Time) {
	a.Status = decision
	a.ReviewedAt = &now
	a.ReviewedByID = &adminID
	if notes != "" {
		a.Notes = notes
	}
	if decision == StatusApproved {
		a.RejectionReason = nil
	} else {
		a.RejectionReason = &rejectionReason
	}
}

// ApplyVerificationResult maps a provider outcome onto the identity
// sub-state. A confidence score below minScore forces FAILED no matter
// what the provider said, with a machine-readable note so reviewers
// can tell the override apart from a provider-asserted rejection.
func (a *VendorApplication) ApplyVerificationResult(status VerificationStatus, provider, reference, reason string, score *float64, minScore float64, now time.Time) {
	v := IdentityVerification{
		Status:    status,
		Provider:  provider,
		Reference: reference,
		Notes:     reason,
	}
	if status == VerificationVerified || status == VerificationFailed {
		v.CheckedAt = &now
	}
	if score != nil && *score < minScore {
		v.Status = VerificationFailed
		v.CheckedAt = &now
		v.Notes = fmt.Sprintf("score_below_threshold:%g", *score)
	}
	a.Verification = v
}

// ApplyVerificationFailure records that the provider could not be
// reached or errored. The application still proceeds to manual review.
func (a *VendorApplication) ApplyVerificationFailure(provider string, now time.Time) {
	a.Verification = IdentityVerification{
		Status:    VerificationFailed,
		Provider:  provider,
		CheckedAt: &now,
		Notes:     "identity_submission_failed",
	}
}
