package httptransport

import (
	"time"

	"zerina/internal/onboarding/models"
)

// ApplicationResponse is the wire shape of a vendor application.
type ApplicationResponse struct {
	ID              string                `json:"id"`
	UserID          string                `json:"userId"`
	Status          string                `json:"status"`
	LegalName       string                `json:"legalName"`
	Country         string                `json:"country"`
	Address         *string               `json:"address,omitempty"`
	ContactPhone    *string               `json:"contactPhone,omitempty"`
	SubmittedAt     time.Time             `json:"submittedAt"`
	ReviewedAt      *time.Time            `json:"reviewedAt,omitempty"`
	Notes           string                `json:"notes,omitempty"`
	RejectionReason *string               `json:"rejectionReason,omitempty"`
	Verification    VerificationResponse `json:"verification"`
	Deposit         DepositResponse      `json:"deposit"`
}

// VerificationResponse is the identity sub-state portion.
type VerificationResponse struct {
	Status    string     `json:"status"`
	Provider  string     `json:"provider,omitempty"`
	Reference string     `json:"reference,omitempty"`
	CheckedAt *time.Time `json:"checkedAt,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// DepositResponse is the security-deposit sub-state portion.
type DepositResponse struct {
	Required    bool   `json:"required"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amountCents,omitempty"`
	Currency    string `json:"currency,omitempty"`
}

// SessionResponse carries a refreshed credential after a role change.
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SubmissionResponse is the HTTP response for POST /vendor/applications.
type SubmissionResponse struct {
	Outcome     string               `json:"outcome"`
	Application *ApplicationResponse `json:"application,omitempty"`
	Session     *SessionResponse     `json:"session,omitempty"`
}

// ReviewResponse is the HTTP response for the review endpoint.
type ReviewResponse struct {
	Application *ApplicationResponse `json:"application"`
}

// FromApplication converts the aggregate to its wire shape.
func FromApplication(app *models.VendorApplication) *ApplicationResponse {
	if app == nil {
		return nil
	}
	return &ApplicationResponse{
		ID:              app.ID.String(),
		UserID:          app.UserID.String(),
		Status:          string(app.Status),
		LegalName:       app.LegalName,
		Country:         app.Country,
		Address:         app.Address,
		ContactPhone:    app.ContactPhone,
		SubmittedAt:     app.SubmittedAt,
		ReviewedAt:      app.ReviewedAt,
		Notes:           app.Notes,
		RejectionReason: app.RejectionReason,
		Verification: VerificationResponse{
			Status:    string(app.Verification.Status),
			Provider:  app.Verification.Provider,
			Reference: app.Verification.Reference,
			CheckedAt: app.Verification.CheckedAt,
			Notes:     app.Verification.Notes,
		},
		Deposit: DepositResponse{
			Required:    app.Deposit.Required,
			Status:      string(app.Deposit.Status),
			AmountCents: app.Deposit.AmountCents,
			Currency:    app.Deposit.Currency,
		},
	}
}

// FromSubmissionResult converts a service result to its wire shape.
func FromSubmissionResult(result *models.SubmissionResult) *SubmissionResponse {
	return &SubmissionResponse{
		Outcome:     string(result.Outcome),
		Application: FromApplication(result.Application),
	}
}
