package user

import (
	"context"
	"strings"
	"sync"

	"zerina/internal/auth/models"
	"zerina/pkg/domain"
	"zerina/pkg/platform/sentinel"
)

// MemoryStore is an in-memory user store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[domain.UserID]*models.User
	byEmail map[string]domain.UserID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[domain.UserID]*models.User),
		byEmail: make(map[string]domain.UserID),
	}
}

func (s *MemoryStore) Save(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *u
	s.byID[u.ID] = &cp
	s.byEmail[normalizeEmail(u.Email)] = u.ID
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, userID domain.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[userID]
	return &cp, nil
}

// Execute loads the user, runs validate, then applies mutate and persists
// the result under the store lock. The mutation is skipped when validate
// returns an error.
func (s *MemoryStore) Execute(
	ctx context.Context,
	userID domain.UserID,
	validate func(*models.User) error,
	mutate func(*models.User),
) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	if err := validate(&cp); err != nil {
		return nil, err
	}
	mutate(&cp)
	s.byID[userID] = &cp
	out := cp
	return &out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEmail, normalizeEmail(u.Email))
	delete(s.byID, userID)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
