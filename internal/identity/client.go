// Package identity talks to external identity-verification providers.
// The marketplace never interprets provider payloads beyond the
// normalized Result; anything provider-specific stays behind Client.
package identity

import (
	"context"
)

// Status is the normalized verification status reported by a provider.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusFailed   Status = "failed"
)

// Request carries the applicant data submitted to a provider.
type Request struct {
	ApplicantID string
	LegalName   string
	Email       string
	Country     string
	// Reference correlates provider callbacks with the application.
	Reference string
}

// Result is the provider response, normalized across providers.
type Result struct {
	Status    Status
	Provider  string
	Reference string
	// Score is the provider confidence in [0,1]. Nil when the provider
	// does not score synchronously.
	Score  *float64
	Reason string
}

// Client submits verification checks to a provider.
type Client interface {
	Submit(ctx context.Context, req Request) (Result, error)
	Provider() string
}
