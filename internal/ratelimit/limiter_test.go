package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zerina/internal/ratelimit/store/bucket"
	"zerina/pkg/domain"
)

func TestSubmissionLimiter(t *testing.T) {
	limiter := NewSubmissionLimiter(bucket.NewInMemoryStore(), 2, time.Minute)
	userID := domain.NewUserID()
	other := domain.NewUserID()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := limiter.AllowSubmission(ctx, userID)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	res, err := limiter.AllowSubmission(ctx, userID)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	res, err = limiter.AllowSubmission(ctx, other)
	require.NoError(t, err)
	require.True(t, res.Allowed, "quota is per user")

	require.NoError(t, limiter.ResetUser(ctx, userID))
	res, err = limiter.AllowSubmission(ctx, userID)
	require.NoError(t, err)
	require.True(t, res.Allowed)
}

func TestNewSubmissionLimiterDefaults(t *testing.T) {
	limiter := NewSubmissionLimiter(bucket.NewInMemoryStore(), 0, 0)
	require.Equal(t, 5, limiter.limit)
	require.Equal(t, time.Hour, limiter.window)
}
