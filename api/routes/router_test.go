package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	checkoutsvc "github.com/angelmondragon/checkout-backend/internal/checkout"
	"github.com/angelmondragon/checkout-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/checkout-backend/pkg/auth"
	"github.com/angelmondragon/checkout-backend/pkg/config"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubCheckout struct{}

func (stubCheckout) CreateSession(context.Context, checkoutsvc.SessionInput) (*checkoutsvc.SessionResult, error) {
	return &checkoutsvc.SessionResult{SessionID: "sess_1", PaymentLink: "https://pay/sess_1"}, nil
}

func (stubCheckout) Confirm(_ context.Context, in checkoutsvc.ConfirmInput) (*models.Order, error) {
	return &models.Order{ID: uuid.New(), ReferenceID: in.ReferenceID}, nil
}

type stubOrders struct {
	orders.Service
}

func (stubOrders) ListByEmail(context.Context, string) ([]models.Order, error) {
	return []models.Order{{ID: uuid.New()}}, nil
}

func (stubOrders) ListCompleted(context.Context) ([]models.Order, error) {
	return []models.Order{{ID: uuid.New()}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "checkout-test", TokenTTL: time.Hour},
		RateLimit: config.RateLimitConfig{
			CheckoutWindow:  time.Minute,
			CheckoutIPLimit: 10,
		},
		Idempotency: config.IdempotencyConfig{CheckoutTTL: time.Hour},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	reg := prometheus.NewRegistry()
	metrics.NewCheckoutMetrics(reg).SessionCreated()
	return NewRouter(Params{
		Config:   cfg,
		DB:       stubPinger{},
		Gatherer: reg,
		Checkout: stubCheckout{},
		Orders:   stubOrders{},
	}), cfg
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready", "/ping"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, resp.Code, path)
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "checkout_sessions_total")
}

func TestRouterCheckoutRoutesArePublic(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/checkout/create-checkout-session", strings.NewReader(`{"products":[{"price":1,"quantity":1}]}`)))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"id":"sess_1","paymentLink":"https://pay/sess_1"}`, resp.Body.String())
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/checkout/confirm-payment", strings.NewReader(`{"client_reference_id":"1"}`)))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRouterOrderAdminRoutesRequireToken(t *testing.T) {
	router, cfg := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/orders/", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), "ops", pkgAuth.RoleAdmin)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/orders/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"subject":"ops"`)
}

func TestRouterOrdersByEmailIsPublic(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/orders/buyer@example.com", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRouterWebhookWithoutServiceFails(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/webhooks/thawani", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}
