package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/checkout-backend/api/routes"
	"github.com/angelmondragon/checkout-backend/internal/checkout"
	"github.com/angelmondragon/checkout-backend/internal/cron"
	"github.com/angelmondragon/checkout-backend/internal/orders"
	"github.com/angelmondragon/checkout-backend/internal/pending"
	"github.com/angelmondragon/checkout-backend/internal/pricing"
	thawaniwebhook "github.com/angelmondragon/checkout-backend/internal/webhooks/thawani"
	"github.com/angelmondragon/checkout-backend/pkg/config"
	"github.com/angelmondragon/checkout-backend/pkg/db"
	"github.com/angelmondragon/checkout-backend/pkg/instance"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/metrics"
	"github.com/angelmondragon/checkout-backend/pkg/migrate"
	"github.com/angelmondragon/checkout-backend/pkg/redis"
	"github.com/angelmondragon/checkout-backend/pkg/thawani"
)

const webhookScope = "thawani_webhook"

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: cfg.App.Name,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeAutoRun(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)
	cronMetrics := metrics.NewCronJobMetrics(registry)

	var (
		store       pending.Store
		memoryStore *pending.MemoryStore
	)
	if cfg.Pending.UsesRedis() {
		store, err = pending.NewRedisStore(redisClient, cfg.Pending.TTL)
		if err != nil {
			logg.Error(ctx, "failed to create redis pending store", err)
			os.Exit(1)
		}
	} else {
		memoryStore = pending.NewMemoryStore(pending.MemoryOptions{
			TTL:        cfg.Pending.TTL,
			MaxEntries: cfg.Pending.MaxEntries,
		})
		store = memoryStore
	}

	gateway, err := thawani.NewClient(cfg.Gateway, thawani.WithLogger(logg))
	if err != nil {
		logg.Error(ctx, "failed to create gateway client", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.Options{
		Rules:               pricing.RulesFromConfig(cfg.Pricing),
		DepositLineName:     cfg.Pricing.DepositLineName,
		ShippingLineName:    cfg.Pricing.ShippingLineName,
		FallbackProductName: cfg.Pricing.FallbackProductName,
		Metrics:             checkoutMetrics,
	}, store, gateway, ordersRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookService, err := thawaniwebhook.NewService(thawaniwebhook.ServiceParams{
		Confirmer:          checkoutService,
		MinorUnitsPerMajor: cfg.Pricing.MinorUnitsPerMajor,
		Logger:             logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create webhook service", err)
		os.Exit(1)
	}

	params := routes.Params{
		Config:          cfg,
		Logger:          logg,
		DB:              dbClient,
		Gatherer:        registry,
		Checkout:        checkoutService,
		Orders:          ordersService,
		WebhookService:  webhookService,
		WebhookVerifier: gateway,
	}
	if redisClient != nil {
		params.Redis = redisClient
		params.Idempotency = redisClient
		params.RateLimiter = redisClient
		params.WebhookGuard, err = thawaniwebhook.NewIdempotencyGuard(redisClient, cfg.Idempotency.WebhookTTL, webhookScope)
		if err != nil {
			logg.Error(ctx, "failed to create webhook idempotency guard", err)
			os.Exit(1)
		}
	}

	cronErr := make(chan error, 1)
	if memoryStore != nil && cfg.FeatureFlags.PendingSweep {
		cronService, err := newSweeper(logg, memoryStore, checkoutMetrics, cronMetrics, cfg.Pending.SweepInterval)
		if err != nil {
			logg.Error(ctx, "failed to create pending sweeper", err)
			os.Exit(1)
		}
		go func() { cronErr <- cronService.Run(ctx) }()
	} else {
		close(cronErr)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"instance":        instance.GetID(),
		"pending_backend": cfg.Pending.Backend,
		"redis":           redisClient != nil,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
		}
		stop()
	case <-ctx.Done():
		logg.Info(serverCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	shutdownErr = multierr.Append(shutdownErr, server.Shutdown(shutdownCtx))
	shutdownErr = multierr.Append(shutdownErr, <-cronErr)
	if redisClient != nil {
		shutdownErr = multierr.Append(shutdownErr, redisClient.Close())
	}
	shutdownErr = multierr.Append(shutdownErr, dbClient.Close())
	if shutdownErr != nil {
		logg.Error(serverCtx, "shutdown completed with errors", shutdownErr)
		os.Exit(1)
	}
	logg.Info(serverCtx, "api server stopped")
}

func newSweeper(logg *logger.Logger, store *pending.MemoryStore, gauge *metrics.CheckoutMetrics, cronMetrics *metrics.CronJobMetrics, interval time.Duration) (*cron.Service, error) {
	job, err := cron.NewPendingSweepJob(store, gauge, logg, time.Now)
	if err != nil {
		return nil, err
	}
	registry, err := cron.NewRegistry(job)
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Metrics:  cronMetrics,
		Interval: interval,
	})
}
