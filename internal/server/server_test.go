package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tourdesk/internal/authorization"
	bookingdomain "github.com/smallbiznis/tourdesk/internal/booking/domain"
	checkoutdomain "github.com/smallbiznis/tourdesk/internal/checkout/domain"
	"github.com/smallbiznis/tourdesk/internal/lock"
	membershipdomain "github.com/smallbiznis/tourdesk/internal/membership/domain"
	pricingdomain "github.com/smallbiznis/tourdesk/internal/pricing/domain"
	refunddomain "github.com/smallbiznis/tourdesk/internal/refund/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	userID  = "1001"
	otherID = "1002"
	adminID = "1003"
)

type fakeMembershipService struct {
	membershipdomain.Service
	accounts map[string]*membershipdomain.AccountResponse
}

func (f *fakeMembershipService) Get(ctx context.Context, id string) (*membershipdomain.AccountResponse, error) {
	_ = ctx
	account, ok := f.accounts[id]
	if !ok {
		return nil, membershipdomain.ErrNotFound
	}
	return account, nil
}

type fakeAuthzService struct {
	allowed map[string]bool
}

func (f *fakeAuthzService) Authorize(ctx context.Context, memberID, role, object, action string) error {
	_ = ctx
	_ = memberID
	if f.allowed[role+"/"+object+"/"+action] {
		return nil
	}
	return authorization.ErrForbidden
}

type fakePricingService struct {
	pricingdomain.Service
	lastTour pricingdomain.QuoteTourRequest
}

func (f *fakePricingService) QuoteTour(ctx context.Context, req pricingdomain.QuoteTourRequest) (*pricingdomain.TourQuote, error) {
	_ = ctx
	f.lastTour = req
	return &pricingdomain.TourQuote{TourID: req.TourID}, nil
}

type fakeRefundService struct {
	refunddomain.Service
	err error
}

func (f *fakeRefundService) Quote(ctx context.Context, req refunddomain.QuoteRequest) (*refunddomain.Decision, error) {
	_ = ctx
	_ = req
	if f.err != nil {
		return nil, f.err
	}
	return &refunddomain.Decision{}, nil
}

type fakeBookingService struct {
	bookingdomain.Service
	lastCancel bookingdomain.CancelRequest
}

func (f *fakeBookingService) CancelTourBooking(ctx context.Context, req bookingdomain.CancelRequest) (*bookingdomain.CancelResponse, error) {
	_ = ctx
	f.lastCancel = req
	return &bookingdomain.CancelResponse{}, nil
}

type fakeCheckoutService struct {
	checkoutdomain.Service
	callbackErr error
}

func (f *fakeCheckoutService) HandleGatewayCallback(ctx context.Context, payload []byte, headers http.Header) (*checkoutdomain.Response, error) {
	_ = ctx
	_ = payload
	_ = headers
	if f.callbackErr != nil {
		return nil, f.callbackErr
	}
	return &checkoutdomain.Response{}, nil
}

type testServer struct {
	*Server
	pricing  *fakePricingService
	refund   *fakeRefundService
	booking  *fakeBookingService
	checkout *fakeCheckoutService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	ts := &testServer{
		pricing:  &fakePricingService{},
		refund:   &fakeRefundService{},
		booking:  &fakeBookingService{},
		checkout: &fakeCheckoutService{},
	}
	ts.Server = &Server{
		engine: engine,
		log:    zap.NewNop(),
		authzSvc: &fakeAuthzService{allowed: map[string]bool{
			"USER/" + authorization.ObjectBooking + "/" + authorization.ActionBookingCancel:   true,
			"ADMIN/" + authorization.ObjectBooking + "/" + authorization.ActionBookingCancel:  true,
			"ADMIN/" + authorization.ObjectCatalog + "/" + authorization.ActionCatalogManage:  true,
			"ADMIN/" + authorization.ObjectMember + "/" + authorization.ActionMemberViewAny:   true,
			"ADMIN/" + authorization.ObjectScheduler + "/" + authorization.ActionSchedulerRun: true,
		}},
		membershipSvc: &fakeMembershipService{accounts: map[string]*membershipdomain.AccountResponse{
			userID:  {ID: userID, Role: membershipdomain.RoleUser},
			otherID: {ID: otherID, Role: membershipdomain.RoleUser},
			adminID: {ID: adminID, Role: membershipdomain.RoleAdmin},
		}},
		pricingSvc:  ts.pricing,
		refundSvc:   ts.refund,
		bookingSvc:  ts.booking,
		checkoutSvc: ts.checkout,
	}
	ts.registerAPIRoutes()
	ts.registerAdminRoutes()
	ts.registerFallback()
	return ts
}

func (ts *testServer) do(method, path, actor, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		req.Header.Set(HeaderMemberID, actor)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"validation", membershipdomain.ErrInvalidEmail, http.StatusBadRequest, "validation_error"},
		{"refund amount", refunddomain.ErrInvalidAmount, http.StatusBadRequest, "validation_error"},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", bookingdomain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"not found", checkoutdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"declined", checkoutdomain.ErrPaymentDeclined, http.StatusPaymentRequired, "payment_declined"},
		{"conflict", bookingdomain.ErrTourFull, http.StatusConflict, "conflict"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.typ, payload.Type)
		})
	}
}

func TestMapErrorLockContention(t *testing.T) {
	status, payload := mapError(lock.ErrNotAcquired)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "concurrent_update", payload.Code)
}

func TestUnknownMemberHeaderIsUnauthorized(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/quotes/tours", "999", `{"tour_id":"1"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)
}

func TestAdminRouteRequiresRole(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/admin/tours", userID, `{}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/admin/tours", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQuoteTourMember(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/quotes/tours", "", `{"tour_id":"7"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", ts.pricing.lastTour.MemberID)

	rec = ts.do(http.MethodPost, "/api/quotes/tours", userID, `{"tour_id":"7"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, ts.pricing.lastTour.MemberID)

	rec = ts.do(http.MethodPost, "/api/quotes/tours", userID, `{"tour_id":"7","member_id":"`+otherID+`"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/quotes/tours", "", `{"tour_id":"7","member_id":"`+otherID+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/quotes/tours", adminID, `{"tour_id":"7","member_id":"`+otherID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, otherID, ts.pricing.lastTour.MemberID)
}

func TestQuoteRefundHidesInternalErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.refund.err = errors.New("policy table unreadable")

	rec := ts.do(http.MethodPost, "/api/quotes/refunds", "", `{"scheduled_date":"2026-01-10","amount_paid":"100"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, internalErrorMessage, payload.Message)
	assert.NotContains(t, rec.Body.String(), "unreadable")
}

func TestQuoteRefundRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/quotes/refunds", "", `{"amount_paid":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Type)
}

func TestCancelBookingWithoutBody(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/bookings/tours/55/cancel", userID, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "55", ts.booking.lastCancel.BookingID)
	assert.Equal(t, "", ts.booking.lastCancel.Reason)
}

func TestGatewayWebhookAcknowledgesDecline(t *testing.T) {
	ts := newTestServer(t)
	ts.checkout.callbackErr = checkoutdomain.ErrPaymentDeclined

	rec := ts.do(http.MethodPost, "/api/payments/webhooks/gateway", "", `{"status":"rejected"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "declined")
}

func TestRunSchedulerWithoutScheduler(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/admin/scheduler/run", adminID, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/nope", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
