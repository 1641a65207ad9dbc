// Package ratelimit throttles vendor application submissions per user.
package ratelimit

import (
	"context"
	"time"

	"zerina/internal/ratelimit/models"
	"zerina/pkg/domain"
)

// Store checks and records requests against a sliding window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
	Reset(ctx context.Context, key string) error
}

// SubmissionLimiter applies the submission quota to users. A blocked
// check is not an error; callers inspect Result.Allowed.
type SubmissionLimiter struct {
	store  Store
	limit  int
	window time.Duration
}

func NewSubmissionLimiter(store Store, limit int, window time.Duration) *SubmissionLimiter {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = time.Hour
	}
	return &SubmissionLimiter{store: store, limit: limit, window: window}
}

func (l *SubmissionLimiter) AllowSubmission(ctx context.Context, userID domain.UserID) (*models.Result, error) {
	key := "submission:user:" + models.SanitizeKeySegment(userID.String())
	return l.store.Allow(ctx, key, l.limit, l.window)
}

// ResetUser clears the quota for a user. Used by operators after
// resolving support tickets.
func (l *SubmissionLimiter) ResetUser(ctx context.Context, userID domain.UserID) error {
	return l.store.Reset(ctx, "submission:user:"+models.SanitizeKeySegment(userID.String()))
}
