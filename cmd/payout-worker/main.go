package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/harlowmarket/payouts-backend/internal/cron"
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

const lockKeyFormat = "po:payout-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "payout-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "payout-worker",
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
	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

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

	sweepJob, err := cron.NewPayoutSweepJob(cron.PayoutSweepJobParams{
		Logger:    logg,
		Sellers:   policyRepo,
		Scheduler: payoutService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payout sweep job", err)
		os.Exit(1)
	}

	auditJob, err := cron.NewReconcileAuditJob(cron.ReconcileAuditJobParams{
		Logger:  logg,
		Sellers: policyRepo,
		Store:   ledgerRepo,
		Locker:  sellerLock,
		Metrics: ledgerMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile audit job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, fmt.Sprintf(lockKeyFormat, cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob, auditJob),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Payouts.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg.Info(ctx, "starting payout worker")
	if err := service.Run(ctx); err != nil && err != context.Canceled {
		logg.Error(ctx, "payout worker stopped unexpectedly", err)
		os.Exit(1)
	}
}
