package identity

import (
	"context"
	"fmt"
	"time"
)

// Mock is a provider stand-in for tests and local development. It
// accepts every submission and reports it as pending, the same as a
// real provider that verifies asynchronously.
type Mock struct {
	Latency time.Duration
	// Fail forces an error on every submission.
	Fail error
	// Score, when set, is attached to the pending result so threshold
	// handling can be exercised without a live provider.
	Score *float64
}

func (m Mock) Provider() string { return "mock" }

func (m Mock) Submit(ctx context.Context, req Request) (Result, error) {
	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if m.Fail != nil {
		return Result{}, m.Fail
	}
	return Result{
		Status:    StatusPending,
		Provider:  "mock",
		Reference: fmt.Sprintf("mock-%s", req.ApplicantID),
		Score:     m.Score,
	}, nil
}
