package httptransport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"zerina/internal/onboarding/models"
	"zerina/pkg/domain"
	dErrors "zerina/pkg/domain-errors"
)

// SubmitApplicationRequestSuite tests SubmitApplicationRequest
// validation and normalization.
type SubmitApplicationRequestSuite struct {
	suite.Suite
}

func TestSubmitApplicationRequestSuite(t *testing.T) {
	suite.Run(t, new(SubmitApplicationRequestSuite))
}

func strPtr(s string) *string { return &s }

// TestValidation verifies field limits and document ID parsing.
func (s *SubmitApplicationRequestSuite) TestValidation() {
	s.Run("empty request passes", func() {
		req := &SubmitApplicationRequest{}
		s.NoError(req.Validate())
	})

	s.Run("legal name at max length allowed", func() {
		req := &SubmitApplicationRequest{LegalName: strPtr(strings.Repeat("a", 200))}
		s.NoError(req.Validate())
	})

	s.Run("legal name exceeds max length rejected", func() {
		req := &SubmitApplicationRequest{LegalName: strPtr(strings.Repeat("a", 201))}
		err := req.Validate()
		s.Require().Error(err)
		s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
		s.Contains(err.Error(), "legalName must be at most 200 characters")
	})

	s.Run("valid document ids parsed", func() {
		docID := domain.NewDocumentID()
		ids := []string{docID.String()}
		req := &SubmitApplicationRequest{DocumentIDs: &ids}
		s.Require().NoError(req.Validate())

		svcReq := req.ToSubmitRequest(domain.NewUserID())
		s.True(svcReq.DocumentIDsProvided)
		s.Require().Len(svcReq.DocumentIDs, 1)
		s.Equal(docID, svcReq.DocumentIDs[0])
	})

	s.Run("malformed document id rejected", func() {
		ids := []string{"not-a-uuid"}
		req := &SubmitApplicationRequest{DocumentIDs: &ids}
		err := req.Validate()
		s.Require().Error(err)
		s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
		s.Contains(err.Error(), "invalid document id")
	})

	s.Run("nil request rejected", func() {
		var req *SubmitApplicationRequest
		err := req.Validate()
		s.Require().Error(err)
		s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
	})
}

// TestNormalize verifies whitespace trimming on the optional fields.
func (s *SubmitApplicationRequestSuite) TestNormalize() {
	s.Run("trims whitespace", func() {
		req := &SubmitApplicationRequest{
			LegalName: strPtr("  Acme GmbH  "),
			Country:   strPtr(" DE "),
		}
		s.Require().NoError(req.Validate())
		s.Equal("Acme GmbH", *req.LegalName)
		s.Equal("DE", *req.Country)
	})

	s.Run("blank field behaves like omitted", func() {
		req := &SubmitApplicationRequest{
			Address:      strPtr("   "),
			ContactPhone: strPtr(""),
		}
		s.Require().NoError(req.Validate())
		s.Nil(req.Address)
		s.Nil(req.ContactPhone)
	})

	s.Run("omitted documentIds stays unprovided", func() {
		req := &SubmitApplicationRequest{}
		s.Require().NoError(req.Validate())

		svcReq := req.ToSubmitRequest(domain.NewUserID())
		s.False(svcReq.DocumentIDsProvided)
		s.Nil(svcReq.DocumentIDs)
	})

	s.Run("explicit empty documentIds stays provided", func() {
		ids := []string{}
		req := &SubmitApplicationRequest{DocumentIDs: &ids}
		s.Require().NoError(req.Validate())

		svcReq := req.ToSubmitRequest(domain.NewUserID())
		s.True(svcReq.DocumentIDsProvided)
		s.Empty(svcReq.DocumentIDs)
	})
}

// ReviewApplicationRequestSuite tests ReviewApplicationRequest validation.
type ReviewApplicationRequestSuite struct {
	suite.Suite
}

func TestReviewApplicationRequestSuite(t *testing.T) {
	suite.Run(t, new(ReviewApplicationRequestSuite))
}

// TestValidation verifies decision parsing.
func (s *ReviewApplicationRequestSuite) TestValidation() {
	s.Run("approved decision passes", func() {
		req := &ReviewApplicationRequest{Decision: "APPROVED"}
		s.Require().NoError(req.Validate())

		svcReq := req.ToReviewRequest(domain.NewUserID(), domain.NewApplicationID())
		s.Equal(models.StatusApproved, svcReq.Decision)
	})

	s.Run("decision is case-insensitive", func() {
		req := &ReviewApplicationRequest{Decision: "  rejected "}
		s.Require().NoError(req.Validate())

		svcReq := req.ToReviewRequest(domain.NewUserID(), domain.NewApplicationID())
		s.Equal(models.StatusRejected, svcReq.Decision)
	})

	s.Run("unknown decision rejected", func() {
		req := &ReviewApplicationRequest{Decision: "MAYBE"}
		err := req.Validate()
		s.Require().Error(err)
		s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
		s.Contains(err.Error(), "decision must be APPROVED or REJECTED")
	})

	s.Run("pending is not a valid decision", func() {
		req := &ReviewApplicationRequest{Decision: "PENDING"}
		s.Require().Error(req.Validate())
	})

	s.Run("notes and reason trimmed", func() {
		req := &ReviewApplicationRequest{
			Decision:        "REJECTED",
			Notes:           "  looks incomplete  ",
			RejectionReason: " missing tax ID ",
		}
		s.Require().NoError(req.Validate())
		s.Equal("looks incomplete", req.Notes)
		s.Equal("missing tax ID", req.RejectionReason)
	})

	s.Run("nil request rejected", func() {
		var req *ReviewApplicationRequest
		err := req.Validate()
		s.Require().Error(err)
		s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
	})
}
