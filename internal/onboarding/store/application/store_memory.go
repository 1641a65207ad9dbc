package application

import (
	"context"
	"sort"
	"sync"

	"zerina/internal/onboarding/models"
	"zerina/pkg/domain"
	"zerina/pkg/platform/sentinel"
)

// MemoryStore keeps applications in memory for tests and local
// development.
type MemoryStore struct {
	mu   sync.RWMutex
	apps map[domain.ApplicationID]*models.VendorApplication
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{apps: make(map[domain.ApplicationID]*models.VendorApplication)}
}

func (s *MemoryStore) Save(ctx context.Context, app *models.VendorApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[app.ID] = cloneApplication(app)
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, appID domain.ApplicationID) (*models.VendorApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneApplication(app), nil
}

// FindLatestByUser returns the user's most recently submitted
// application, or ErrNotFound when they never applied.
func (s *MemoryStore) FindLatestByUser(ctx context.Context, userID domain.UserID) (*models.VendorApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.VendorApplication
	for _, app := range s.apps {
		if app.UserID != userID {
			continue
		}
		if latest == nil || app.SubmittedAt.After(latest.SubmittedAt) {
			latest = app
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return cloneApplication(latest), nil
}

// ListByUser returns all of a user's applications, newest first.
func (s *MemoryStore) ListByUser(ctx context.Context, userID domain.UserID) ([]*models.VendorApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.VendorApplication
	for _, app := range s.apps {
		if app.UserID == userID {
			out = append(out, cloneApplication(app))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

// CreateIfNoneActive inserts the application only when the user has no
// PENDING application. Two racing first-time submissions cannot both
// insert; the loser gets ErrConflict and retries through the update
// path.
func (s *MemoryStore) CreateIfNoneActive(ctx context.Context, app *models.VendorApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.apps {
		if existing.UserID == app.UserID && existing.Status == models.StatusPending {
			return sentinel.ErrConflict
		}
	}
	s.apps[app.ID] = cloneApplication(app)
	return nil
}

// Execute loads the application, runs validate, then applies mutate
// and persists the result atomically with respect to other store
// operations.
func (s *MemoryStore) Execute(
	ctx context.Context,
	appID domain.ApplicationID,
	validate func(*models.VendorApplication) error,
	mutate func(*models.VendorApplication),
) (*models.VendorApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := cloneApplication(app)
	if err := validate(cp); err != nil {
		return nil, err
	}
	mutate(cp)
	s.apps[appID] = cp
	return cloneApplication(cp), nil
}

func cloneApplication(app *models.VendorApplication) *models.VendorApplication {
	cp := *app
	cp.Address = clonePtr(app.Address)
	cp.ContactPhone = clonePtr(app.ContactPhone)
	cp.ReviewedAt = clonePtr(app.ReviewedAt)
	cp.ReviewedByID = clonePtr(app.ReviewedByID)
	cp.RejectionReason = clonePtr(app.RejectionReason)
	cp.Verification.CheckedAt = clonePtr(app.Verification.CheckedAt)
	return &cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
