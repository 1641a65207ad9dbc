package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	dErrors "zerina/pkg/domain-errors"
	"zerina/pkg/platform/circuit"
	"zerina/pkg/platform/sentinel"
)

type HTTPClientSuite struct {
	suite.Suite
}

func TestHTTPClientSuite(t *testing.T) {
	suite.Run(t, new(HTTPClientSuite))
}

func (s *HTTPClientSuite) TestSubmitSuccess() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal("/v1/checks", r.URL.Path)
		s.Equal("Bearer secret", r.Header.Get("Authorization"))

		var payload map[string]string
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&payload))
		s.Equal("Acme Tools BV", payload["legal_name"])

		score := 0.93
		s.Require().NoError(json.NewEncoder(w).Encode(submitResponse{
			Status:    "verified",
			Reference: "ref-42",
			Score:     &score,
		}))
	}))
	defer srv.Close()

	client := NewHTTPClient("acmeverify", srv.URL, "secret", time.Second)
	result, err := client.Submit(context.Background(), Request{
		ApplicantID: "app-1",
		LegalName:   "Acme Tools BV",
		Email:       "owner@acme.example",
		Country:     "NL",
	})
	s.Require().NoError(err)
	s.Equal(StatusVerified, result.Status)
	s.Equal("acmeverify", result.Provider)
	s.Equal("ref-42", result.Reference)
	s.Require().NotNil(result.Score)
	s.InDelta(0.93, *result.Score, 0.001)
}

func (s *HTTPClientSuite) TestSubmitErrorMapping() {
	s.Run("422 maps to invalid input and keeps circuit closed", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		client := NewHTTPClient("acmeverify", srv.URL, "secret", time.Second)
		_, err := client.Submit(context.Background(), Request{ApplicantID: "app-1"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.False(client.breaker.IsOpen())
	})

	s.Run("5xx maps to unavailable", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := NewHTTPClient("acmeverify", srv.URL, "secret", time.Second)
		_, err := client.Submit(context.Background(), Request{ApplicantID: "app-1"})
		s.ErrorIs(err, sentinel.ErrUnavailable)
	})

	s.Run("unknown provider status is rejected", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(submitResponse{Status: "maybe"})
		}))
		defer srv.Close()

		client := NewHTTPClient("acmeverify", srv.URL, "secret", time.Second)
		_, err := client.Submit(context.Background(), Request{ApplicantID: "app-1"})
		s.Require().Error(err)
		s.Contains(err.Error(), "unknown status")
	})
}

func (s *HTTPClientSuite) TestCircuitSheds() {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient("acmeverify", srv.URL, "secret", time.Second,
		WithBreaker(circuit.New("acmeverify", circuit.WithFailureThreshold(2))))

	for i := 0; i < 2; i++ {
		_, err := client.Submit(context.Background(), Request{ApplicantID: "app-1"})
		s.Require().Error(err)
	}
	s.Equal(2, hits)

	_, err := client.Submit(context.Background(), Request{ApplicantID: "app-1"})
	s.ErrorIs(err, sentinel.ErrUnavailable)
	s.Equal(2, hits, "open circuit must not reach the provider")
}

func TestMockSubmit(t *testing.T) {
	result, err := Mock{}.Submit(context.Background(), Request{ApplicantID: "abc"})
	require.NoError(t, err)
	require.Equal(t, StatusPending, result.Status)
	require.Equal(t, "mock", result.Provider)
	require.Equal(t, "mock-abc", result.Reference)
}
