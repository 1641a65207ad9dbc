package document

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"zerina/internal/onboarding/models"
	"zerina/pkg/domain"
	"zerina/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) newDoc(userID domain.UserID) *models.VendorDocument {
	doc := &models.VendorDocument{
		ID:         domain.NewDocumentID(),
		UserID:     userID,
		Filename:   "registration.pdf",
		MIMEType:   "application/pdf",
		SizeBytes:  2048,
		StorageKey: "uploads/" + domain.NewDocumentID().String(),
		UploadedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.store.Save(context.Background(), doc))
	return doc
}

func (s *MemoryStoreSuite) TestFindByIDsForUser() {
	userID := domain.NewUserID()
	mine := s.newDoc(userID)
	theirs := s.newDoc(domain.NewUserID())
	unknown := domain.NewDocumentID()

	found, missing, err := s.store.FindByIDsForUser(context.Background(), userID,
		[]domain.DocumentID{mine.ID, theirs.ID, unknown})
	s.Require().NoError(err)

	s.Len(found, 1)
	s.Equal(mine.ID, found[0].ID)
	s.ElementsMatch([]domain.DocumentID{theirs.ID, unknown}, missing,
		"foreign documents are indistinguishable from missing ones")
}

func (s *MemoryStoreSuite) TestAttachDetach() {
	userID := domain.NewUserID()
	appA := domain.NewApplicationID()
	appB := domain.NewApplicationID()
	doc := s.newDoc(userID)

	s.Run("attach and list", func() {
		s.Require().NoError(s.store.Attach(context.Background(), doc.ID, appA))
		attached, err := s.store.ListByApplication(context.Background(), appA)
		s.Require().NoError(err)
		s.Len(attached, 1)
	})

	s.Run("re-attach to the same application is a no-op", func() {
		s.NoError(s.store.Attach(context.Background(), doc.ID, appA))
	})

	s.Run("attach to a different application conflicts", func() {
		s.ErrorIs(s.store.Attach(context.Background(), doc.ID, appB), sentinel.ErrConflict)
	})

	s.Run("detach frees the document", func() {
		s.Require().NoError(s.store.Detach(context.Background(), doc.ID))
		s.NoError(s.store.Attach(context.Background(), doc.ID, appB))
	})

	s.Run("attach unknown document", func() {
		s.ErrorIs(s.store.Attach(context.Background(), domain.NewDocumentID(), appA), sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestDelete() {
	doc := s.newDoc(domain.NewUserID())
	appID := domain.NewApplicationID()

	s.Run("attached documents cannot be deleted", func() {
		s.Require().NoError(s.store.Attach(context.Background(), doc.ID, appID))
		s.ErrorIs(s.store.Delete(context.Background(), doc.ID), sentinel.ErrInvalidState)
	})

	s.Run("unattached documents can", func() {
		s.Require().NoError(s.store.Detach(context.Background(), doc.ID))
		s.Require().NoError(s.store.Delete(context.Background(), doc.ID))
		_, err := s.store.FindByID(context.Background(), doc.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
