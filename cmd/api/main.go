package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/harlowmarket/payouts-backend/api/routes"
	"github.com/harlowmarket/payouts-backend/internal/classifier"
	"github.com/harlowmarket/payouts-backend/internal/forfeiture"
	"github.com/harlowmarket/payouts-backend/internal/ledger"
	"github.com/harlowmarket/payouts-backend/internal/payouts"
	"github.com/harlowmarket/payouts-backend/internal/policies"
	"github.com/harlowmarket/payouts-backend/pkg/config"
	"github.com/harlowmarket/payouts-backend/pkg/db"
	"github.com/harlowmarket/payouts-backend/pkg/logger"
	"github.com/harlowmarket/payouts-backend/pkg/metrics"
	"github.com/harlowmarket/payouts-backend/pkg/migrate"
	"github.com/harlowmarket/payouts-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)

	sellerLock, err := ledger.NewRedisSellerLock(redisClient, cfg.Ledger)
	if err != nil {
		logg.Error(context.Background(), "failed to create seller lock", err)
		os.Exit(1)
	}

	policyRepo := policies.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		DB:       dbClient,
		Repo:     ledgerRepo,
		Policies: policyRepo,
		Locker:   sellerLock,
		Logger:   logg,
		Metrics:  ledgerMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	classifierService, err := classifier.NewService(ledgerService, ledgerRepo, policyRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create classifier", err)
		os.Exit(1)
	}

	var eligibility payouts.EligibilityChecker
	if cfg.Payouts.InstantEligibilityURL != "" {
		eligibility, err = payouts.NewHTTPEligibilityChecker(cfg.Payouts.InstantEligibilityURL, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create eligibility checker", err)
			os.Exit(1)
		}
	}

	payoutService, err := payouts.NewService(payouts.ServiceParams{
		DB:          dbClient,
		Balances:    ledgerService,
		Periods:     ledgerRepo,
		Records:     payouts.NewRepository(dbClient.DB()),
		Policies:    policyRepo,
		Locker:      sellerLock,
		Eligibility: eligibility,
		Logger:      logg,
		Metrics:     ledgerMetrics,
		Config:      cfg.Payouts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payout scheduler", err)
		os.Exit(1)
	}

	forfeitureService, err := forfeiture.NewService(forfeiture.ServiceParams{
		DB:       dbClient,
		Periods:  ledgerRepo,
		Records:  forfeiture.NewRepository(dbClient.DB()),
		Policies: policyRepo,
		Locker:   sellerLock,
		Logger:   logg,
		Metrics:  ledgerMetrics,
		Config:   cfg.Forfeiture,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create forfeiture engine", err)
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
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			classifierService,
			ledgerService,
			payoutService,
			forfeitureService,
			policyRepo,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
