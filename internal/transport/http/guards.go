package httptransport

import (
	"context"
	"net/http"
	"strconv"
	"time"

	dErrors "zerina/pkg/domain-errors"
	"zerina/pkg/platform/audit"
	"zerina/pkg/platform/httputil"
	"zerina/pkg/requestcontext"
)

// captchaGuard rejects submissions without a verified captcha token.
// The gate defaults to Noop, so unconfigured deployments pass through.
func (h *VendorHandler) captchaGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		err := h.gate.Verify(ctx, r.Header.Get("X-Captcha-Token"), requestcontext.ClientIP(ctx))
		if err == nil {
			next.ServeHTTP(w, r)
			return
		}

		if dErrors.HasCode(err, dErrors.CodeForbidden) {
			if h.metrics != nil {
				h.metrics.CaptchaFailures.Inc()
			}
			h.emitSecurityEvent(ctx, audit.EventCaptchaFailed, "captcha verification failed")
			h.logger.WarnContext(ctx, "captcha rejected",
				"request_id", requestcontext.RequestID(ctx),
				"user_id", requestcontext.UserID(ctx).String(),
				"client_ip", requestcontext.ClientIP(ctx),
			)
		} else {
			h.logger.ErrorContext(ctx, "captcha verifier unavailable",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
	})
}

// rateLimitGuard enforces the per-user submission quota. Limiter
// errors fail open: a broken limiter backend must not stop onboarding.
func (h *VendorHandler) rateLimitGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		userID := requestcontext.UserID(ctx)
		result, err := h.limiter.AllowSubmission(ctx, userID)
		if err != nil {
			h.logger.ErrorContext(ctx, "rate limiter unavailable",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}

		if !result.Allowed {
			if h.metrics != nil {
				h.metrics.SubmissionsRateLimited.Inc()
			}
			h.emitSecurityEvent(ctx, audit.EventRateLimitExceeded, "submission rate limit exceeded")
			h.logger.WarnContext(ctx, "submission rate limited",
				"request_id", requestcontext.RequestID(ctx),
				"user_id", userID.String(),
				"reset_at", result.ResetAt,
			)

			retryAfter := int(time.Until(result.ResetAt).Seconds()) + 1
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", "0")
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "submission limit reached, try again later"))
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		next.ServeHTTP(w, r)
	})
}

func (h *VendorHandler) emitSecurityEvent(ctx context.Context, event audit.AuditEvent, reason string) {
	if h.audit == nil {
		return
	}
	err := h.audit.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		UserID:    requestcontext.UserID(ctx),
		Action:    string(event),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "audit emit failed",
			"request_id", requestcontext.RequestID(ctx),
			"action", string(event),
			"error", err,
		)
	}
}
