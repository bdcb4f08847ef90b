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

	"github.com/matheuslopes/garimpei-backend/api/routes"
	"github.com/matheuslopes/garimpei-backend/internal/attribution"
	"github.com/matheuslopes/garimpei-backend/internal/coupons"
	"github.com/matheuslopes/garimpei-backend/internal/ledger"
	"github.com/matheuslopes/garimpei-backend/internal/orders"
	"github.com/matheuslopes/garimpei-backend/internal/partners"
	"github.com/matheuslopes/garimpei-backend/internal/payouts"
	"github.com/matheuslopes/garimpei-backend/internal/users"
	"github.com/matheuslopes/garimpei-backend/internal/wallet"
	pixwebhook "github.com/matheuslopes/garimpei-backend/internal/webhooks/pix"
	"github.com/matheuslopes/garimpei-backend/pkg/cache"
	"github.com/matheuslopes/garimpei-backend/pkg/config"
	"github.com/matheuslopes/garimpei-backend/pkg/db"
	"github.com/matheuslopes/garimpei-backend/pkg/logger"
	"github.com/matheuslopes/garimpei-backend/pkg/metrics"
	"github.com/matheuslopes/garimpei-backend/pkg/migrate"
	"github.com/matheuslopes/garimpei-backend/pkg/outbox"
	"github.com/matheuslopes/garimpei-backend/pkg/redis"
)

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
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	coreMetrics := metrics.NewCoreMetrics(promRegistry)

	svcs, err := buildServices(cfg, logg, dbClient, redisClient, coreMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, promRegistry, svcs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server stopped")
	}
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	coreMetrics *metrics.CoreMetrics,
) (routes.Services, error) {
	gormDB := dbClient.DB()

	events := outbox.NewService(outbox.NewRepository(gormDB), logg)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gormDB), coreMetrics)
	if err != nil {
		return routes.Services{}, err
	}

	partnersRepo := partners.NewRepository(gormDB)

	attributionSvc, err := attribution.NewService(attribution.NewRepository(gormDB), partnersRepo)
	if err != nil {
		return routes.Services{}, err
	}

	couponCache, err := cache.NewRedis(redisClient, "coupons")
	if err != nil {
		return routes.Services{}, err
	}
	couponsSvc, err := coupons.NewService(coupons.NewRepository(gormDB), partnersRepo, couponCache, cfg.Cache.CouponTTL, logg)
	if err != nil {
		return routes.Services{}, err
	}

	partnersSvc, err := partners.NewService(partnersRepo, dbClient, events)
	if err != nil {
		return routes.Services{}, err
	}

	usersRepo := users.NewRepository(gormDB)
	usersSvc, err := users.NewService(usersRepo, dbClient, events)
	if err != nil {
		return routes.Services{}, err
	}

	ordersRepo := orders.NewRepository(gormDB)
	ordersSvc, err := orders.NewService(ordersRepo, ledgerSvc, attributionSvc, dbClient, events)
	if err != nil {
		return routes.Services{}, err
	}

	walletSvc, err := wallet.NewService(ledgerSvc, dbClient, events)
	if err != nil {
		return routes.Services{}, err
	}

	payoutsSvc, err := payouts.NewService(
		payouts.NewRepository(gormDB),
		ledgerSvc,
		usersRepo,
		partnersRepo,
		dbClient,
		events,
		payouts.NewLoggingRail(logg),
		payouts.NewLoggingCodeDelivery(logg),
		coreMetrics,
		logg,
		cfg.Payout,
		cfg.Security,
	)
	if err != nil {
		return routes.Services{}, err
	}

	pixSvc, err := pixwebhook.NewService(
		ordersRepo,
		couponsSvc,
		attributionSvc,
		ledgerSvc,
		dbClient,
		events,
		redisClient,
		coreMetrics,
		logg,
		pixwebhook.Config{
			PlatformFeeBps: cfg.Platform.FeeBps,
			IdempotencyTTL: cfg.Webhook.IdempotencyTTL,
		},
	)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Wallet:      walletSvc,
		Coupons:     couponsSvc,
		Payouts:     payoutsSvc,
		Partners:    partnersSvc,
		Attribution: attributionSvc,
		Orders:      ordersSvc,
		Users:       usersSvc,
		PixWebhook:  pixSvc,
	}, nil
}
