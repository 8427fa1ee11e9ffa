package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/checkout-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/checkout-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/checkout-backend/api/controllers/webhooks"
	"github.com/angelmondragon/checkout-backend/api/middleware"
	checkoutsvc "github.com/angelmondragon/checkout-backend/internal/checkout"
	"github.com/angelmondragon/checkout-backend/internal/orders"
	thawaniwebhook "github.com/angelmondragon/checkout-backend/internal/webhooks/thawani"
	pkgAuth "github.com/angelmondragon/checkout-backend/pkg/auth"
	"github.com/angelmondragon/checkout-backend/pkg/config"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/redis"
)

const createSessionPath = "/checkout/create-checkout-session"

type webhookVerifier interface {
	VerifyWebhook(body []byte, timestamp, signature string) bool
}

// Params lists the collaborators the HTTP surface is built from. Redis-backed
// pieces are optional and skipped when nil.
type Params struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              controllers.Pinger
	Redis           controllers.Pinger
	Idempotency     redis.IdempotencyStore
	RateLimiter     redis.RateLimiter
	Gatherer        prometheus.Gatherer
	Checkout        checkoutsvc.Service
	Orders          orders.Service
	WebhookService  *thawaniwebhook.Service
	WebhookGuard    *thawaniwebhook.IdempotencyGuard
	WebhookVerifier webhookVerifier
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"database": p.DB,
			"redis":    p.Redis,
		}, logg))
	})

	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/ping", controllers.PublicPing())

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		cfg.RateLimit.CheckoutIPLimit,
	)
	idempotencyRules := []middleware.IdempotencyRule{
		{Method: http.MethodPost, Pattern: createSessionPath, TTL: cfg.Idempotency.CheckoutTTL},
	}

	r.Route("/checkout", func(r chi.Router) {
		r.With(
			middleware.RateLimit(checkoutPolicy, p.RateLimiter, logg),
			middleware.Idempotency(p.Idempotency, idempotencyRules, logg),
		).Post("/create-checkout-session", controllers.CreateCheckoutSession(p.Checkout, logg))
		r.Post("/confirm-payment", controllers.ConfirmPayment(p.Checkout, logg))
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/thawani", webhookcontrollers.ThawaniWebhook(webhookServiceOrNil(p.WebhookService), p.WebhookVerifier, guardOrNil(p.WebhookGuard), logg))
	})

	requireAdmin := []func(http.Handler) http.Handler{
		middleware.Auth(cfg.JWT, logg),
		middleware.RequireRole(logg, pkgAuth.RoleAdmin),
	}

	r.With(requireAdmin...).Get("/admin/ping", controllers.AdminPing())

	r.Route("/orders", func(r chi.Router) {
		// storefront "my orders" lookup
		r.Get("/{email}", ordercontrollers.ListByEmail(p.Orders, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin...)
			r.Get("/", ordercontrollers.ListCompleted(p.Orders, logg))
			r.Get("/order/{id}", ordercontrollers.Detail(p.Orders, logg))
			r.Patch("/update-order-status/{id}", ordercontrollers.UpdateStatus(p.Orders, logg))
			r.Delete("/delete-order/{id}", ordercontrollers.Delete(p.Orders, logg))
		})
	})

	return r
}

// The controllers compare against untyped nil, so typed nil pointers are
// converted before crossing the interface boundary.
func webhookServiceOrNil(svc *thawaniwebhook.Service) webhookcontrollers.ThawaniWebhookService {
	if svc == nil {
		return nil
	}
	return svc
}

func guardOrNil(guard *thawaniwebhook.IdempotencyGuard) interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
} {
	if guard == nil {
		return nil
	}
	return guard
}
