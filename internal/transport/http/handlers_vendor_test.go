package httptransport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	authmodels "zerina/internal/auth/models"
	"zerina/internal/auth/session"
	userstore "zerina/internal/auth/store/user"
	"zerina/internal/notify"
	"zerina/internal/ratelimit"
	bucketstore "zerina/internal/ratelimit/store/bucket"
	"zerina/internal/onboarding/models"
	"zerina/internal/onboarding/service"
	appstore "zerina/internal/onboarding/store/application"
	docstore "zerina/internal/onboarding/store/document"
	"zerina/pkg/domain"
	dErrors "zerina/pkg/domain-errors"
	"zerina/pkg/platform/audit"
	auditmemory "zerina/pkg/platform/audit/store/memory"
	"zerina/pkg/testutil"
)

// fakeGate rejects when scripted, otherwise requires a non-empty token.
type fakeGate struct {
	err error
}

func (g *fakeGate) Verify(_ context.Context, token, _ string) error {
	if g.err != nil {
		return g.err
	}
	if token == "" {
		return dErrors.New(dErrors.CodeForbidden, "captcha token missing")
	}
	return nil
}

type VendorHandlerSuite struct {
	suite.Suite

	apps       *appstore.MemoryStore
	docs       *docstore.MemoryStore
	users      *userstore.MemoryStore
	auditStore *auditmemory.Store
	issuer     *session.Issuer
	gate       *fakeGate
	svc        *service.Service
	router     http.Handler

	now time.Time
}

func (s *VendorHandlerSuite) SetupTest() {
	s.apps = appstore.NewMemoryStore()
	s.docs = docstore.NewMemoryStore()
	s.users = userstore.NewMemoryStore()
	s.auditStore = auditmemory.New()
	s.issuer = session.NewIssuer("handler-test-signing-key", "zerina-test", time.Hour)
	s.gate = &fakeGate{}
	s.now = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

	publisher := audit.NewPublisher(s.auditStore)
	s.svc = service.New(s.apps, s.docs, s.users, service.NewShardedTx(), service.Policy{
		Deposit:  models.DepositPolicy{Enabled: true, AmountCents: 10000, Currency: "EUR"},
		MinScore: 0.5,
	},
		service.WithLogger(discardLogger()),
		service.WithNotifier(&dropDispatcher{}),
		service.WithAuditPublisher(publisher),
	)

	limiter := ratelimit.NewSubmissionLimiter(bucketstore.NewInMemoryStore(), 3, time.Hour)
	handler := NewVendorHandler(s.svc, s.issuer, s.issuer, discardLogger(),
		WithCaptchaGate(s.gate),
		WithSubmissionLimiter(limiter),
		WithAuditPublisher(publisher),
	)
	s.router = NewRouter(discardLogger(), handler)
}

func TestVendorHandlerSuite(t *testing.T) {
	suite.Run(t, new(VendorHandlerSuite))
}

// dropDispatcher swallows outcome notifications.
type dropDispatcher struct{}

func (dropDispatcher) SendApplicationOutcome(context.Context, notify.Outcome) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *VendorHandlerSuite) seedUser(email string, role domain.Role) *authmodels.User {
	user, err := authmodels.NewUser(domain.NewUserID(), email, "x", s.now)
	s.Require().NoError(err)
	user.Role = role
	s.Require().NoError(s.users.Save(context.Background(), user))
	return user
}

func (s *VendorHandlerSuite) tokenFor(user *authmodels.User) string {
	token, _, err := s.issuer.Issue(user.ID, domain.NewSessionID(), user.Role, "", time.Now().UTC())
	s.Require().NoError(err)
	return token
}

func (s *VendorHandlerSuite) submitRequest(token string, body any) *http.Request {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/vendor/applications", body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Captcha-Token", "ok")
	return req
}

func (s *VendorHandlerSuite) reviewRequest(token string, applicationID string, body any) *http.Request {
	path := fmt.Sprintf("/admin/vendor/applications/%s/review", applicationID)
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, path, body)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func (s *VendorHandlerSuite) TestSubmitRequiresAuth() {
	rr := testutil.DoRequest(s.router, s.submitRequest("", map[string]any{
		"legalName": "Acme Oils GmbH",
		"country":   "DE",
	}))
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *VendorHandlerSuite) TestSubmitRejectsMalformedBody() {
	user := s.seedUser("malformed@example.com", domain.RoleBuyer)

	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/vendor/applications", `{"legalName":`)
	req.Header.Set("Authorization", "Bearer "+s.tokenFor(user))
	req.Header.Set("X-Captcha-Token", "ok")

	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *VendorHandlerSuite) TestSubmitRejectsGarbageToken() {
	rr := testutil.DoRequest(s.router, s.submitRequest("not-a-jwt", map[string]any{
		"legalName": "Acme Oils GmbH",
		"country":   "DE",
	}))
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *VendorHandlerSuite) TestSubmitCreatesApplication() {
	user := s.seedUser("applicant@example.com", domain.RoleBuyer)

	rr := testutil.DoRequest(s.router, s.submitRequest(s.tokenFor(user), map[string]any{
		"legalName": "Acme Oils GmbH",
		"country":   "DE",
	}))

	s.Require().Equal(http.StatusCreated, rr.Code)
	resp := testutil.UnmarshalResponse[SubmissionResponse](s.T(), rr)
	s.Equal("created", resp.Outcome)
	s.Require().NotNil(resp.Application)
	s.Equal("PENDING", resp.Application.Status)
	s.Equal("Acme Oils GmbH", resp.Application.LegalName)
	s.Equal("NOT_REQUIRED", resp.Application.Verification.Status)
	s.Equal("PENDING", resp.Application.Deposit.Status)
	s.Equal(int64(10000), resp.Application.Deposit.AmountCents)

	// Role elevation owes the caller a refreshed credential.
	s.Require().NotNil(resp.Session)
	claims, err := s.issuer.Validate(resp.Session.Token)
	s.Require().NoError(err)
	s.Equal(domain.RoleVendor.String(), claims.Role)
}

func (s *VendorHandlerSuite) TestSecondSubmitUpdatesWithoutNewSession() {
	user := s.seedUser("applicant@example.com", domain.RoleBuyer)
	token := s.tokenFor(user)

	rr := testutil.DoRequest(s.router, s.submitRequest(token, map[string]any{
		"legalName": "Acme Oils GmbH",
		"country":   "DE",
	}))
	s.Require().Equal(http.StatusCreated, rr.Code)

	rr = testutil.DoRequest(s.router, s.submitRequest(token, map[string]any{
		"address": "Mainzer Landstr. 1, Frankfurt",
	}))
	s.Require().Equal(http.StatusOK, rr.Code)
	resp := testutil.UnmarshalResponse[SubmissionResponse](s.T(), rr)
	s.Equal("updated", resp.Outcome)
	s.Require().NotNil(resp.Application)
	s.Equal("Acme Oils GmbH", resp.Application.LegalName)
	s.Require().NotNil(resp.Application.Address)
	s.Equal("Mainzer Landstr. 1, Frankfurt", *resp.Application.Address)
	s.Nil(resp.Session)
}

func (s *VendorHandlerSuite) TestDocumentIDsOmittedVersusEmpty() {
	user := s.seedUser("applicant@example.com", domain.RoleBuyer)
	token := s.tokenFor(user)

	doc := &models.VendorDocument{
		ID:         domain.NewDocumentID(),
		UserID:     user.ID,
		Filename:   "trade-register.pdf",
		MIMEType:   "application/pdf",
		SizeBytes:  2048,
		StorageKey: "docs/trade-register.pdf",
		UploadedAt: s.now,
	}
	s.Require().NoError(s.docs.Save(context.Background(), doc))

	rr := testutil.DoRequest(s.router, s.submitRequest(token, map[string]any{
		"legalName":   "Acme Oils GmbH",
		"country":     "DE",
		"documentIds": []string{doc.ID.String()},
	}))
	s.Require().Equal(http.StatusCreated, rr.Code)

	stored, err := s.docs.FindByID(context.Background(), doc.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.ApplicationID)

	// Omitted documentIds keeps the current attachment.
	rr = testutil.DoRequest(s.router, s.submitRequest(token, map[string]any{
		"address": "Somewhere 5",
	}))
	s.Require().Equal(http.StatusOK, rr.Code)
	stored, err = s.docs.FindByID(context.Background(), doc.ID)
	s.Require().NoError(err)
	s.NotNil(stored.ApplicationID)

	// An explicit empty list detaches everything.
	rr = testutil.DoRequest(s.router, s.submitRequest(token, map[string]any{
		"documentIds": []string{},
	}))
	s.Require().Equal(http.StatusOK, rr.Code)
	stored, err = s.docs.FindByID(context.Background(), doc.ID)
	s.Require().NoError(err)
	s.Nil(stored.ApplicationID)
}

func (s *VendorHandlerSuite) TestSubmitRejectsMalformedDocumentID() {
	user := s.seedUser("applicant@example.com", domain.RoleBuyer)

	rr := testutil.DoRequest(s.router, s.submitRequest(s.tokenFor(user), map[string]any{
		"legalName":   "Acme Oils GmbH",
		"country":     "DE",
		"documentIds": []string{"not-a-uuid"},
	}))
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *VendorHandlerSuite) TestSubmitRateLimited() {
	user := s.seedUser("applicant@example.com", domain.RoleBuyer)
	token := s.tokenFor(user)
	body := map[string]any{"legalName": "Acme Oils GmbH", "country": "DE"}

	for i := 0; i < 3; i++ {
		rr := testutil.DoRequest(s.router, s.submitRequest(token, body))
		s.Require().Less(rr.Code, http.StatusTooManyRequests, "request %d should pass the limiter", i+1)
	}

	rr := testutil.DoRequest(s.router, s.submitRequest(token, body))
	s.Require().Equal(http.StatusTooManyRequests, rr.Code)
	s.NotEmpty(rr.Header().Get("Retry-After"))
	s.Equal("0", rr.Header().Get("X-RateLimit-Remaining"))

	events := s.auditStore.All()
	s.Require().NotEmpty(events)
	last := events[len(events)-1]
	s.Equal(string(audit.EventRateLimitExceeded), last.Action)
	s.Equal(user.ID, last.UserID)
}

func (s *VendorHandlerSuite) TestSubmitCaptchaRejected() {
	user := s.seedUser("applicant@example.com", domain.RoleBuyer)
	s.gate.err = dErrors.New(dErrors.CodeForbidden, "captcha verification failed")

	rr := testutil.DoRequest(s.router, s.submitRequest(s.tokenFor(user), map[string]any{
		"legalName": "Acme Oils GmbH",
		"country":   "DE",
	}))
	s.Require().Equal(http.StatusForbidden, rr.Code)

	events := s.auditStore.All()
	s.Require().NotEmpty(events)
	s.Equal(string(audit.EventCaptchaFailed), events[len(events)-1].Action)

	_, err := s.apps.FindLatestByUser(context.Background(), user.ID)
	s.Error(err, "guarded request must not reach the service")
}

func (s *VendorHandlerSuite) TestReviewApprove() {
	applicant := s.seedUser("applicant@example.com", domain.RoleBuyer)
	admin := s.seedUser("admin@example.com", domain.RoleAdmin)

	rr := testutil.DoRequest(s.router, s.submitRequest(s.tokenFor(applicant), map[string]any{
		"legalName": "Acme Oils GmbH",
		"country":   "DE",
	}))
	s.Require().Equal(http.StatusCreated, rr.Code)
	created := testutil.UnmarshalResponse[SubmissionResponse](s.T(), rr)

	rr = testutil.DoRequest(s.router, s.reviewRequest(s.tokenFor(admin), created.Application.ID, map[string]any{
		"decision": "APPROVED",
		"notes":    "documents check out",
	}))
	s.Require().Equal(http.StatusOK, rr.Code)
	resp := testutil.UnmarshalResponse[ReviewResponse](s.T(), rr)
	s.Require().NotNil(resp.Application)
	s.Equal("APPROVED", resp.Application.Status)
	s.Equal("documents check out", resp.Application.Notes)
	s.Nil(resp.Application.RejectionReason)

	stored, err := s.users.FindByID(context.Background(), applicant.ID)
	s.Require().NoError(err)
	s.Equal(domain.RoleVendor, stored.Role)
}

func (s *VendorHandlerSuite) TestReviewRequiresAdminRole() {
	applicant := s.seedUser("applicant@example.com", domain.RoleBuyer)

	rr := testutil.DoRequest(s.router, s.submitRequest(s.tokenFor(applicant), map[string]any{
		"legalName": "Acme Oils GmbH",
		"country":   "DE",
	}))
	s.Require().Equal(http.StatusCreated, rr.Code)
	created := testutil.UnmarshalResponse[SubmissionResponse](s.T(), rr)

	rr = testutil.DoRequest(s.router, s.reviewRequest(s.tokenFor(applicant), created.Application.ID, map[string]any{
		"decision": "APPROVED",
	}))
	s.Equal(http.StatusForbidden, rr.Code)
}

func (s *VendorHandlerSuite) TestReviewRejectWithoutReason() {
	applicant := s.seedUser("applicant@example.com", domain.RoleBuyer)
	admin := s.seedUser("admin@example.com", domain.RoleAdmin)

	rr := testutil.DoRequest(s.router, s.submitRequest(s.tokenFor(applicant), map[string]any{
		"legalName": "Acme Oils GmbH",
		"country":   "DE",
	}))
	s.Require().Equal(http.StatusCreated, rr.Code)
	created := testutil.UnmarshalResponse[SubmissionResponse](s.T(), rr)

	rr = testutil.DoRequest(s.router, s.reviewRequest(s.tokenFor(admin), created.Application.ID, map[string]any{
		"decision": "REJECTED",
	}))
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *VendorHandlerSuite) TestReviewInvalidApplicationID() {
	admin := s.seedUser("admin@example.com", domain.RoleAdmin)

	rr := testutil.DoRequest(s.router, s.reviewRequest(s.tokenFor(admin), "not-a-uuid", map[string]any{
		"decision": "APPROVED",
	}))
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *VendorHandlerSuite) TestReviewUnknownApplication() {
	admin := s.seedUser("admin@example.com", domain.RoleAdmin)

	rr := testutil.DoRequest(s.router, s.reviewRequest(s.tokenFor(admin), domain.NewApplicationID().String(), map[string]any{
		"decision": "APPROVED",
	}))
	s.Equal(http.StatusNotFound, rr.Code)
}

func (s *VendorHandlerSuite) TestHealthz() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
	s.Equal(http.StatusOK, rr.Code)
}
