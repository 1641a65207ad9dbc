package document

import (
	"context"
	"sort"
	"sync"

	"zerina/internal/onboarding/models"
	"zerina/pkg/domain"
	"zerina/pkg/platform/sentinel"
)

// MemoryStore keeps vendor documents in memory for tests and local
// development.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[domain.DocumentID]*models.VendorDocument
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[domain.DocumentID]*models.VendorDocument)}
}

func (s *MemoryStore) Save(ctx context.Context, doc *models.VendorDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = cloneDocument(doc)
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, docID domain.DocumentID) (*models.VendorDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneDocument(doc), nil
}

// FindByIDsForUser resolves the requested ids to documents owned by
// userID. Ids that do not exist, or exist but belong to someone else,
// are reported in missing; the caller decides how to surface that.
func (s *MemoryStore) FindByIDsForUser(ctx context.Context, userID domain.UserID, docIDs []domain.DocumentID) (found []*models.VendorDocument, missing []domain.DocumentID, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, docID := range docIDs {
		doc, ok := s.docs[docID]
		if !ok || doc.UserID != userID {
			missing = append(missing, docID)
			continue
		}
		found = append(found, cloneDocument(doc))
	}
	return found, missing, nil
}

// ListByApplication returns documents currently attached to the
// application, oldest upload first.
func (s *MemoryStore) ListByApplication(ctx context.Context, appID domain.ApplicationID) ([]*models.VendorDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.VendorDocument
	for _, doc := range s.docs {
		if doc.AttachedTo(appID) {
			out = append(out, cloneDocument(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func (s *MemoryStore) Attach(ctx context.Context, docID domain.DocumentID, appID domain.ApplicationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[docID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if doc.ApplicationID != nil && *doc.ApplicationID != appID {
		return sentinel.ErrConflict
	}
	doc.ApplicationID = &appID
	return nil
}

func (s *MemoryStore) Detach(ctx context.Context, docID domain.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[docID]
	if !ok {
		return sentinel.ErrNotFound
	}
	doc.ApplicationID = nil
	return nil
}

// Delete removes a document. Attached documents cannot be deleted;
// they must be detached through reassignment first.
func (s *MemoryStore) Delete(ctx context.Context, docID domain.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[docID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if doc.Attached() {
		return sentinel.ErrInvalidState
	}
	delete(s.docs, docID)
	return nil
}

func cloneDocument(doc *models.VendorDocument) *models.VendorDocument {
	cp := *doc
	if doc.ApplicationID != nil {
		appID := *doc.ApplicationID
		cp.ApplicationID = &appID
	}
	return &cp
}
