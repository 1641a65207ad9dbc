package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	dErrors "zerina/pkg/domain-errors"
	"zerina/pkg/platform/circuit"
	"zerina/pkg/platform/sentinel"
)

// HTTPClient submits checks to a JSON-over-HTTP verification provider.
// Failures are normalized so callers only ever see domain errors, and
// a circuit breaker sheds load when the provider is down.
type HTTPClient struct {
	provider string
	baseURL  string
	apiKey   string
	http     *http.Client
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

type HTTPOption func(*HTTPClient)

func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(c *HTTPClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithBreaker(b *circuit.Breaker) HTTPOption {
	return func(c *HTTPClient) { c.breaker = b }
}

func NewHTTPClient(provider, baseURL, apiKey string, timeout time.Duration, opts ...HTTPOption) *HTTPClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &HTTPClient{
		provider: provider,
		baseURL:  baseURL,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		breaker:  circuit.New(provider),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) Provider() string { return c.provider }

type submitPayload struct {
	ApplicantID string `json:"applicant_id"`
	LegalName   string `json:"legal_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Reference   string `json:"reference"`
}

type submitResponse struct {
	Status    string   `json:"status"`
	Reference string   `json:"reference"`
	Score     *float64 `json:"score,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

func (c *HTTPClient) Submit(ctx context.Context, req Request) (Result, error) {
	if c.breaker.IsOpen() {
		return Result{}, fmt.Errorf("identity provider %s: %w", c.provider, sentinel.ErrUnavailable)
	}

	body, err := json.Marshal(submitPayload{
		ApplicantID: req.ApplicantID,
		LegalName:   req.LegalName,
		Email:       req.Email,
		Country:     req.Country,
		Reference:   req.Reference,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode verification request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checks", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build verification request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.recordFailure()
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, dErrors.Wrap(err, dErrors.CodeTimeout, "identity provider timed out")
		}
		return Result{}, fmt.Errorf("identity provider %s: %w", c.provider, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.recordFailure()
		return Result{}, dErrors.New(dErrors.CodeInternal, "identity provider rejected credentials")
	case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusBadRequest:
		// Provider rejected the applicant data, not us. The circuit
		// stays closed.
		return Result{}, dErrors.New(dErrors.CodeInvalidInput, "identity provider rejected applicant data")
	default:
		c.recordFailure()
		return Result{}, fmt.Errorf("identity provider %s returned status %d: %w",
			c.provider, resp.StatusCode, sentinel.ErrUnavailable)
	}

	var out submitResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		c.recordFailure()
		return Result{}, fmt.Errorf("decode verification response: %w", err)
	}

	status, err := normalizeStatus(out.Status)
	if err != nil {
		c.recordFailure()
		return Result{}, err
	}

	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.Info("identity provider circuit closed", "provider", c.provider)
	}

	return Result{
		Status:    status,
		Provider:  c.provider,
		Reference: out.Reference,
		Score:     out.Score,
		Reason:    out.Reason,
	}, nil
}

func (c *HTTPClient) recordFailure() {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.Warn("identity provider circuit opened", "provider", c.provider)
	}
}

func normalizeStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusVerified, StatusFailed:
		return Status(s), nil
	default:
		return "", fmt.Errorf("identity provider returned unknown status %q", s)
	}
}
