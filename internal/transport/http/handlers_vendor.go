package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"zerina/internal/captcha"
	"zerina/internal/ratelimit"
	"zerina/internal/onboarding/metrics"
	"zerina/internal/onboarding/models"
	"zerina/pkg/domain"
	dErrors "zerina/pkg/domain-errors"
	"zerina/pkg/platform/audit"
	"zerina/pkg/platform/httputil"
	"zerina/pkg/requestcontext"
)

// VendorService defines the vendor workflow operations the handler
// delegates to.
type VendorService interface {
	SubmitOrUpdate(ctx context.Context, req models.SubmitRequest) (*models.SubmissionResult, error)
	Review(ctx context.Context, req models.ReviewRequest) (*models.VendorApplication, error)
}

// SessionIssuer mints role-bearing session tokens. Satisfied by
// *session.Issuer.
type SessionIssuer interface {
	Issue(userID domain.UserID, sessionID domain.SessionID, role domain.Role, userAgent string, now time.Time) (string, time.Time, error)
}

// AuditPublisher records security events raised at the transport edge.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// VendorHandler wires the vendor onboarding endpoints to the service
// and composes the guard chain in front of the submission route.
type VendorHandler struct {
	service  VendorService
	tokens   TokenValidator
	sessions SessionIssuer
	logger   *slog.Logger
	gate     captcha.Gate
	limiter  *ratelimit.SubmissionLimiter
	metrics  *metrics.Metrics
	audit    AuditPublisher
}

// VendorHandlerOption configures optional handler collaborators.
type VendorHandlerOption func(*VendorHandler)

// WithCaptchaGate sets the human-presence gate for submissions.
func WithCaptchaGate(gate captcha.Gate) VendorHandlerOption {
	return func(h *VendorHandler) {
		if gate != nil {
			h.gate = gate
		}
	}
}

// WithSubmissionLimiter sets the per-user submission rate limiter.
func WithSubmissionLimiter(limiter *ratelimit.SubmissionLimiter) VendorHandlerOption {
	return func(h *VendorHandler) {
		h.limiter = limiter
	}
}

// WithMetrics sets the vendor workflow metrics.
func WithMetrics(m *metrics.Metrics) VendorHandlerOption {
	return func(h *VendorHandler) {
		h.metrics = m
	}
}

// WithAuditPublisher sets the sink for guard security events.
func WithAuditPublisher(publisher AuditPublisher) VendorHandlerOption {
	return func(h *VendorHandler) {
		h.audit = publisher
	}
}

// NewVendorHandler constructs the vendor transport layer. Guards
// default to pass-through until configured.
func NewVendorHandler(service VendorService, tokens TokenValidator, sessions SessionIssuer, logger *slog.Logger, opts ...VendorHandlerOption) *VendorHandler {
	h := &VendorHandler{
		service:  service,
		tokens:   tokens,
		sessions: sessions,
		logger:   logger,
		gate:     captcha.Noop{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the vendor routes. All routes require a valid
// session token; the admin route additionally requires the ADMIN role
// claim.
func (h *VendorHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.tokens, h.logger))
		r.With(h.captchaGuard, h.rateLimitGuard).Post("/vendor/applications", h.HandleSubmit)
		r.With(RequireRole(domain.RoleAdmin, h.logger)).Post("/admin/vendor/applications/{applicationID}/review", h.HandleReview)
	})
}

// HandleSubmit handles POST /vendor/applications.
func (h *VendorHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitApplicationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.SubmitOrUpdate(ctx, req.ToSubmitRequest(userID))
	if err != nil {
		h.logger.ErrorContext(ctx, "submission failed",
			"request_id", requestID,
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := FromSubmissionResult(result)
	if result.SessionRefreshOwed {
		resp.Session = h.reissueSession(ctx, userID, domain.RoleVendor)
	}

	status := http.StatusOK
	if result.Outcome == models.OutcomeCreated {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, resp)
}

// HandleReview handles POST /admin/vendor/applications/{applicationID}/review.
func (h *VendorHandler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	adminID := requestcontext.UserID(ctx)
	if adminID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	applicationID, err := domain.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid application id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[ReviewApplicationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	app, err := h.service.Review(ctx, req.ToReviewRequest(adminID, applicationID))
	if err != nil {
		h.logger.ErrorContext(ctx, "review failed",
			"request_id", requestID,
			"actor_id", adminID.String(),
			"application_id", applicationID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ReviewResponse{Application: FromApplication(app)})
}

// reissueSession mints a token with the caller's new role. Failure to
// reissue never fails the request; the client can still refresh
// through the normal login path.
func (h *VendorHandler) reissueSession(ctx context.Context, userID domain.UserID, role domain.Role) *SessionResponse {
	if h.sessions == nil {
		return nil
	}
	token, expiresAt, err := h.sessions.Issue(
		userID,
		requestcontext.SessionID(ctx),
		role,
		requestcontext.UserAgent(ctx),
		requestcontext.Now(ctx).UTC(),
	)
	if err != nil {
		h.logger.ErrorContext(ctx, "session reissue failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		return nil
	}
	return &SessionResponse{Token: token, ExpiresAt: expiresAt}
}
