package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sadaka/internal/campaign"
	"sadaka/internal/domain"
	"sadaka/internal/middleware"
	"sadaka/internal/payment"
	"sadaka/internal/search"
	"sadaka/internal/zakat"
	"sadaka/pkg/cache"
	"sadaka/pkg/config"
	"sadaka/pkg/errors"
	"sadaka/pkg/logger"
	"sadaka/pkg/validator"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-secret"

type MockDonations struct {
	mock.Mock
}

func (m *MockDonations) CreateIntent(ctx context.Context, req *payment.CreateIntentRequest) (*payment.IntentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.IntentResponse), args.Error(1)
}

func (m *MockDonations) GetIntent(ctx context.Context, id int64, userID uuid.UUID, isAdmin bool) (*domain.Intent, error) {
	args := m.Called(ctx, id, userID, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Intent), args.Error(1)
}

func (m *MockDonations) ListUserIntents(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Intent, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]*domain.Intent), args.Int(1), args.Error(2)
}

func (m *MockDonations) ConfirmIntent(ctx context.Context, id int64, transactionID string) (*payment.SettleResult, error) {
	args := m.Called(ctx, id, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.SettleResult), args.Error(1)
}

func (m *MockDonations) RefundIntent(ctx context.Context, id int64) (*payment.SettleResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.SettleResult), args.Error(1)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, providerName string, body []byte, signature string) (*payment.ReconcileResult, error) {
	args := m.Called(ctx, providerName, body, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.ReconcileResult), args.Error(1)
}

func (m *MockReconciler) Acknowledge(providerName string, err error) interface{} {
	return m.Called(providerName, err).Get(0)
}

type MockCampaigns struct {
	mock.Mock
}

func (m *MockCampaigns) Create(ctx context.Context, ownerID uuid.UUID, isAdmin bool, req *campaign.CreateRequest) (*domain.Campaign, error) {
	args := m.Called(ctx, ownerID, isAdmin, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Campaign), args.Error(1)
}

func (m *MockCampaigns) Get(ctx context.Context, id int64) (*domain.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Campaign), args.Error(1)
}

func (m *MockCampaigns) List(ctx context.Context, f domain.CampaignFilter) ([]*domain.Campaign, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]*domain.Campaign), args.Int(1), args.Error(2)
}

func (m *MockCampaigns) Update(ctx context.Context, id int64, actor uuid.UUID, isAdmin bool, req *campaign.UpdateRequest) (*domain.Campaign, error) {
	args := m.Called(ctx, id, actor, isAdmin, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Campaign), args.Error(1)
}

func (m *MockCampaigns) Complete(ctx context.Context, id int64, actor uuid.UUID, isAdmin bool) (*domain.Campaign, error) {
	args := m.Called(ctx, id, actor, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Campaign), args.Error(1)
}

func (m *MockCampaigns) Report(ctx context.Context, id int64) (*campaign.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*campaign.Report), args.Error(1)
}

type stubZakat struct{}

func (stubZakat) Calculate(ctx context.Context, userID uuid.UUID, req *zakat.CalculateRequest) (*domain.ZakatCalculation, error) {
	return nil, errors.ErrZakatNotFound
}

func (stubZakat) GetForUser(ctx context.Context, userID uuid.UUID) (*domain.ZakatCalculation, error) {
	return nil, errors.ErrZakatNotFound
}

func (stubZakat) Nisab() zakat.NisabInfo {
	return zakat.NisabInfo{Nisab: decimal.NewFromInt(952389), Rate: decimal.RequireFromString("0.025"), Currency: "RUB"}
}

func (stubZakat) ConfirmPayment(ctx context.Context, id int64, paymentRef string) (*domain.ZakatCalculation, error) {
	return nil, errors.ErrZakatAlreadyPaid
}

type fixture struct {
	router    http.Handler
	donations *MockDonations
	webhooks  *MockReconciler
	campaigns *MockCampaigns
}

func newFixture(t *testing.T, checks ...Check) *fixture {
	log := logger.NewNop()
	val := validator.New()
	store := cache.NewMemory()
	f := &fixture{
		donations: new(MockDonations),
		webhooks:  new(MockReconciler),
		campaigns: new(MockCampaigns),
	}

	f.router = NewRouter(Handlers{
		Users:         NewUserHandler(nil, val, log),
		Funds:         NewFundHandler(nil, val, log),
		Campaigns:     NewCampaignHandler(f.campaigns, val, log),
		Donations:     NewDonationHandler(f.donations, val, log),
		Webhooks:      NewWebhookHandler(f.webhooks, log),
		Subscriptions: NewSubscriptionHandler(nil, val, log),
		Zakat:         NewZakatHandler(stubZakat{}, f.donations, val, log),
		Partners:      NewPartnerHandler(nil, val, log),
		Search:        NewSearchHandler(disabledSearch(t), log),
		System:        NewSystemHandler(log, checks...),
	}, Middleware{
		Auth:        middleware.NewAuthMiddleware(testSecret),
		Idempotency: middleware.NewIdempotencyMiddleware(store, time.Minute, log),
		PublicLimit: middleware.NewRateLimiter(store, "public", 1000, time.Minute, log),
		APILimit:    middleware.NewRateLimiter(store, "api", 1000, time.Minute, log),
		BodyLimit:   1 << 20,
		Logger:      log,
	})
	return f
}

func disabledSearch(t *testing.T) *search.Client {
	c, err := search.New(config.ElasticsearchConfig{}, logger.NewNop())
	require.NoError(t, err)
	return c
}

func bearer(t *testing.T, userID uuid.UUID, userType domain.UserType) string {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   userID.String(),
		"user_type": string(userType),
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

func (f *fixture) do(method, path, body, auth string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateDonation(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.donations.On("CreateIntent", mock.Anything, mock.MatchedBy(func(r *payment.CreateIntentRequest) bool {
		return r.UserID == userID && r.TargetType == domain.TargetFund && r.TargetID == 2 &&
			r.Amount.Equal(decimal.NewFromInt(500))
	})).Return(&payment.IntentResponse{
		Intent:  &domain.Intent{ID: 10, Status: domain.IntentPending},
		Payment: &payment.Checkout{Provider: domain.MethodYooKassa, URL: "https://pay.example/10"},
	}, nil).Once()

	body := `{"target_type":"fund","target_id":2,"amount":"500","payment_method":"yookassa"}`
	w := f.do("POST", "/api/v1/donations", body, bearer(t, userID, domain.UserTypeDonor), "Idempotency-Key", "d-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "https://pay.example/10", decode(t, w)["payment"].(map[string]interface{})["url"])

	// a retry with the same key replays the first response
	w = f.do("POST", "/api/v1/donations", body, bearer(t, userID, domain.UserTypeDonor), "Idempotency-Key", "d-1")
	assert.Equal(t, http.StatusCreated, w.Code)
	f.donations.AssertNumberOfCalls(t, "CreateIntent", 1)
}

func TestCreateDonation_Errors(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	token := bearer(t, userID, domain.UserTypeDonor)

	w := f.do("POST", "/api/v1/donations", `{"target_type":"fund"}`, "", "Idempotency-Key", "e-0")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do("POST", "/api/v1/donations", `{"target_type":"fund","target_id":2,"amount":"1","payment_method":"yookassa"}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing idempotency key")

	w = f.do("POST", "/api/v1/donations", `{"target_type":"planet","target_id":2,"payment_method":"yookassa"}`, token, "Idempotency-Key", "e-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["errors"], "TargetType")

	w = f.do("POST", "/api/v1/donations", `not json`, token, "Idempotency-Key", "e-2")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.donations.On("CreateIntent", mock.Anything, mock.MatchedBy(func(r *payment.CreateIntentRequest) bool {
		return r.TargetID == 3
	})).Return(nil, errors.ErrCampaignNotActive)
	w = f.do("POST", "/api/v1/campaigns/3/donate", `{"amount":"10","payment_method":"cloudpayments"}`, token, "Idempotency-Key", "e-3")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "campaign is not active", decode(t, w)["error"])

	f.donations.On("CreateIntent", mock.Anything, mock.MatchedBy(func(r *payment.CreateIntentRequest) bool {
		return r.TargetID == 4
	})).Return(nil, errors.Persistence(assert.AnError, "failed to create intent"))
	w = f.do("POST", "/api/v1/campaigns/4/donate", `{"amount":"10","payment_method":"cloudpayments"}`, token, "Idempotency-Key", "e-4")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w)["error"])
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture(t)
	f.donations.On("RefundIntent", mock.Anything, int64(8)).Return(&payment.SettleResult{
		Intent: &domain.Intent{ID: 8, Status: domain.IntentRefunded}, Applied: true,
	}, nil)

	w := f.do("POST", "/api/v1/donations/8/refund", "", bearer(t, uuid.New(), domain.UserTypeDonor))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do("POST", "/api/v1/donations/8/refund", "", bearer(t, uuid.New(), domain.UserTypeAdmin))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["applied"])
}

func TestWebhook(t *testing.T) {
	f := newFixture(t)
	ok := map[string]string{"status": "ok"}

	f.webhooks.On("Reconcile", mock.Anything, "yookassa", []byte(`{"a":1}`), "abc").
		Return(&payment.ReconcileResult{IntentID: 1, Outcome: payment.OutcomeApplied}, nil)
	f.webhooks.On("Acknowledge", "yookassa", nil).Return(ok)

	w := f.do("POST", "/api/v1/webhooks/yookassa", `{"a":1}`, "", "X-Signature", "abc")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	f.webhooks.On("Reconcile", mock.Anything, "yookassa", []byte(`{"a":2}`), "").Return(nil, errors.ErrInvalidSignature)
	f.webhooks.On("Acknowledge", "yookassa", errors.ErrInvalidSignature).
		Return(map[string]string{"status": "error", "message": "invalid signature"})
	w = f.do("POST", "/api/v1/webhooks/yookassa", `{"a":2}`, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "error", decode(t, w)["status"])

	dbErr := errors.Persistence(assert.AnError, "failed to settle")
	f.webhooks.On("Reconcile", mock.Anything, "yookassa", []byte(`{"a":3}`), "").Return(nil, dbErr)
	f.webhooks.On("Acknowledge", "yookassa", dbErr).Return(map[string]string{"status": "error"})
	w = f.do("POST", "/api/v1/webhooks/yookassa", `{"a":3}`, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	f.webhooks.On("Reconcile", mock.Anything, "paypal", mock.Anything, "").Return(nil, errors.ErrUnknownProvider)
	w = f.do("POST", "/api/v1/webhooks/paypal", `{}`, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListCampaigns_DefaultsToActive(t *testing.T) {
	f := newFixture(t)
	f.campaigns.On("List", mock.Anything, mock.MatchedBy(func(fl domain.CampaignFilter) bool {
		return fl.Status == domain.CampaignActive && fl.CountryCode == "RU" && fl.Limit == 5
	})).Return([]*domain.Campaign{{ID: 1}}, 1, nil)

	w := f.do("GET", "/api/v1/campaigns?country_code=ru&limit=5", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(5), body["limit"])

	w = f.do("GET", "/api/v1/campaigns?status=bogus", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCampaignComplete_PassesAdminFlag(t *testing.T) {
	f := newFixture(t)
	adminID := uuid.New()
	f.campaigns.On("Complete", mock.Anything, int64(6), adminID, true).
		Return(&domain.Campaign{ID: 6, Status: domain.CampaignCompleted}, nil)
	f.campaigns.On("Complete", mock.Anything, int64(6), mock.Anything, false).Return(nil, errors.ErrForbidden)

	w := f.do("POST", "/api/v1/campaigns/6/complete", "", bearer(t, adminID, domain.UserTypeAdmin))
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do("POST", "/api/v1/campaigns/6/complete", "", bearer(t, uuid.New(), domain.UserTypeDonor))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestZakatRoutes(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "/api/v1/zakat/nisab", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "952389", decode(t, w)["nisab"])

	w = f.do("GET", "/api/v1/zakat/me", "", bearer(t, uuid.New(), domain.UserTypeDonor))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do("POST", "/api/v1/zakat/3/confirm", `{"payment_ref":"cash-1"}`, bearer(t, uuid.New(), domain.UserTypeAdmin))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSearchUnavailable(t *testing.T) {
	f := newFixture(t)
	w := f.do("GET", "/api/v1/search?q=water", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t,
		Check{ID: "database", Name: "PostgreSQL", Required: true, Ping: func(context.Context) error { return nil }},
		Check{ID: "search", Name: "Elasticsearch", Ping: func(context.Context) error { return assert.AnError }},
	)

	w := f.do("GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do("GET", "/ready", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	services := decode(t, w)["services"].([]interface{})
	assert.Equal(t, "outage", services[1].(map[string]interface{})["status"])

	f = newFixture(t, Check{ID: "database", Required: true, Ping: func(context.Context) error { return assert.AnError }})
	w = f.do("GET", "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNotFound(t *testing.T) {
	f := newFixture(t)
	w := f.do("GET", "/api/v1/nothing", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
