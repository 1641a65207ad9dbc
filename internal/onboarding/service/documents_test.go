package service

import (
	"context"

	"zerina/internal/onboarding/models"
	"zerina/pkg/domain"
	dErrors "zerina/pkg/domain-errors"
)

func (s *ServiceSuite) TestReassignIsIdempotent() {
	user := s.newUser(domain.RoleBuyer)
	doc := s.uploadDoc(user.ID)

	req := s.submitReq(user.ID)
	req.DocumentIDs = []domain.DocumentID{doc.ID, doc.ID}
	req.DocumentIDsProvided = true
	created, err := s.svc.SubmitOrUpdate(context.Background(), req)
	s.Require().NoError(err)

	// Same set again, duplicates included.
	_, err = s.svc.SubmitOrUpdate(context.Background(), req)
	s.Require().NoError(err)

	attached, err := s.docs.ListByApplication(context.Background(), created.Application.ID)
	s.Require().NoError(err)
	s.Len(attached, 1)
}

func (s *ServiceSuite) TestDocumentCannotBeSharedAcrossApplications() {
	alice := s.newUser(domain.RoleBuyer)
	doc := s.uploadDoc(alice.ID)

	req := s.submitReq(alice.ID)
	req.DocumentIDs = []domain.DocumentID{doc.ID}
	req.DocumentIDsProvided = true
	created, err := s.svc.SubmitOrUpdate(context.Background(), req)
	s.Require().NoError(err)

	// Approve and reject a second application round would reuse the
	// same row, so force the conflict through a different application
	// owned by the same user: approve the first, then start fresh.
	admin := s.newUser(domain.RoleAdmin)
	_, err = s.svc.Review(context.Background(), models.ReviewRequest{
		AdminID:       admin.ID,
		ApplicationID: created.Application.ID,
		Decision:      models.StatusApproved,
	})
	s.Require().NoError(err)

	otherApp := domain.NewApplicationID()
	err = s.docs.Attach(context.Background(), doc.ID, otherApp)
	s.Require().Error(err, "store refuses to move an attached document")

	// And through the service: a second user can never claim it.
	bob := s.newUser(domain.RoleBuyer)
	bobReq := s.submitReq(bob.ID)
	bobReq.DocumentIDs = []domain.DocumentID{doc.ID}
	bobReq.DocumentIDsProvided = true
	_, err = s.svc.SubmitOrUpdate(context.Background(), bobReq)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), "foreign document reads as invalid, not stealable")
}

func (s *ServiceSuite) TestAttachedDocumentOfSameUserConflicts() {
	user := s.newUser(domain.RoleBuyer)
	doc := s.uploadDoc(user.ID)

	// Attach the document to some other application of the same user
	// directly, simulating a leftover from an older application row.
	oldApp := domain.NewApplicationID()
	s.Require().NoError(s.docs.Attach(context.Background(), doc.ID, oldApp))

	req := s.submitReq(user.ID)
	req.DocumentIDs = []domain.DocumentID{doc.ID}
	req.DocumentIDsProvided = true
	_, err := s.svc.SubmitOrUpdate(context.Background(), req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Contains(dErrors.MessageOf(err), ErrMsgDocumentInUse)
}
