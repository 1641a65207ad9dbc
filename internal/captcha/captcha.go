// Package captcha verifies human-verification tokens attached to
// vendor application submissions.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	dErrors "zerina/pkg/domain-errors"
	"zerina/pkg/platform/sentinel"
)

// Gate validates a captcha token for a client IP. A nil error means the
// token passed.
type Gate interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Noop passes every token. Used when no captcha secret is configured.
type Noop struct{}

func (Noop) Verify(context.Context, string, string) error { return nil }

// Turnstile verifies tokens against the Cloudflare Turnstile
// siteverify endpoint.
type Turnstile struct {
	secret   string
	endpoint string
	http     *http.Client
}

func NewTurnstile(secret, endpoint string, timeout time.Duration) *Turnstile {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Turnstile{
		secret:   secret,
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) error {
	if token == "" {
		return dErrors.New(dErrors.CodeForbidden, "captcha token is required")
	}

	form := url.Values{}
	form.Set("secret", t.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("captcha verification: %w", sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("captcha verification returned status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var out siteverifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		return fmt.Errorf("decode captcha response: %w", err)
	}
	if !out.Success {
		return dErrors.Newf(dErrors.CodeForbidden, "captcha verification failed: %s", strings.Join(out.ErrorCodes, ","))
	}
	return nil
}
