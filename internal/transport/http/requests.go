package httptransport

import (
	"strings"

	"zerina/internal/onboarding/models"
	"zerina/pkg/domain"
	dErrors "zerina/pkg/domain-errors"
)

// SubmitApplicationRequest is the HTTP request body for
// POST /vendor/applications.
//
// DocumentIDs is a pointer so the handler can tell "documentIds
// omitted" (keep current attachments) apart from "documentIds: []"
// (detach everything).
type SubmitApplicationRequest struct {
	LegalName    *string   `json:"legalName,omitempty"`
	Country      *string   `json:"country,omitempty"`
	Address      *string   `json:"address,omitempty"`
	ContactPhone *string   `json:"contactPhone,omitempty"`
	DocumentIDs  *[]string `json:"documentIds,omitempty"`

	// Parsed values (populated by Validate)
	parsedDocumentIDs []domain.DocumentID
}

// Validate trims the supplied fields and parses document IDs.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *SubmitApplicationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	trimField(&r.LegalName)
	trimField(&r.Country)
	trimField(&r.Address)
	trimField(&r.ContactPhone)

	if r.LegalName != nil && len(*r.LegalName) > 200 {
		return dErrors.New(dErrors.CodeValidation, "legalName must be at most 200 characters")
	}

	if r.DocumentIDs != nil {
		parsed := make([]domain.DocumentID, 0, len(*r.DocumentIDs))
		for _, raw := range *r.DocumentIDs {
			docID, err := domain.ParseDocumentID(strings.TrimSpace(raw))
			if err != nil {
				return dErrors.Newf(dErrors.CodeInvalidInput, "invalid document id %q", raw)
			}
			parsed = append(parsed, docID)
		}
		r.parsedDocumentIDs = parsed
	}

	return nil
}

// ToSubmitRequest builds the service request for the authenticated user.
func (r *SubmitApplicationRequest) ToSubmitRequest(userID domain.UserID) models.SubmitRequest {
	return models.SubmitRequest{
		UserID: userID,
		Fields: models.Fields{
			LegalName:    r.LegalName,
			Country:      r.Country,
			Address:      r.Address,
			ContactPhone: r.ContactPhone,
		},
		DocumentIDs:         r.parsedDocumentIDs,
		DocumentIDsProvided: r.DocumentIDs != nil,
	}
}

// trimField trims a pointer field in place and drops it entirely when
// the result is empty, so "" behaves like omitted.
func trimField(field **string) {
	if *field == nil {
		return
	}
	trimmed := strings.TrimSpace(**field)
	if trimmed == "" {
		*field = nil
		return
	}
	*field = &trimmed
}

// ReviewApplicationRequest is the HTTP request body for
// POST /admin/vendor/applications/{applicationID}/review.
type ReviewApplicationRequest struct {
	Decision        string `json:"decision"`
	Notes           string `json:"notes,omitempty"`
	RejectionReason string `json:"rejectionReason,omitempty"`

	parsedDecision models.ApplicationStatus
}

// Validate checks the decision value; the full request shape is
// validated by the service once IDs are attached.
func (r *ReviewApplicationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	decision := models.ApplicationStatus(strings.ToUpper(strings.TrimSpace(r.Decision)))
	switch decision {
	case models.StatusApproved, models.StatusRejected:
		r.parsedDecision = decision
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "decision must be APPROVED or REJECTED")
	}

	r.Notes = strings.TrimSpace(r.Notes)
	r.RejectionReason = strings.TrimSpace(r.RejectionReason)
	return nil
}

// ToReviewRequest builds the service request for the reviewing admin.
func (r *ReviewApplicationRequest) ToReviewRequest(adminID domain.UserID, applicationID domain.ApplicationID) models.ReviewRequest {
	return models.ReviewRequest{
		AdminID:         adminID,
		ApplicationID:   applicationID,
		Decision:        r.parsedDecision,
		Notes:           r.Notes,
		RejectionReason: r.RejectionReason,
	}
}
