package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harlowmarket/payouts-backend/api/controllers"
	"github.com/harlowmarket/payouts-backend/api/middleware"
	"github.com/harlowmarket/payouts-backend/internal/classifier"
	"github.com/harlowmarket/payouts-backend/internal/forfeiture"
	"github.com/harlowmarket/payouts-backend/internal/ledger"
	"github.com/harlowmarket/payouts-backend/internal/payouts"
	"github.com/harlowmarket/payouts-backend/internal/policies"
	"github.com/harlowmarket/payouts-backend/pkg/config"
	"github.com/harlowmarket/payouts-backend/pkg/db"
	"github.com/harlowmarket/payouts-backend/pkg/logger"
	"github.com/harlowmarket/payouts-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	classifierService classifier.Service,
	ledgerService ledger.Service,
	payoutService payouts.Service,
	forfeitureService forfeiture.Service,
	policyRepo policies.Repository,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var redisP redis.Pinger
	var idemStore redis.IdempotencyStore
	if redisClient != nil {
		redisP = redisClient
		idemStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Post("/events", controllers.RecordEvent(classifierService, logg))

		r.Route("/sellers/{sellerId}", func(r chi.Router) {
			r.Get("/balance", controllers.SellerBalance(ledgerService, logg))
			r.Get("/sales-data", controllers.SellerSalesData(ledgerService, logg))

			r.Route("/policy", func(r chi.Router) {
				r.Get("/", controllers.GetPolicy(policyRepo, logg))
				r.Post("/", controllers.CreatePolicy(policyRepo, logg))
			})

			r.Route("/payouts", func(r chi.Router) {
				r.Get("/", controllers.ListPayouts(payoutService, logg))
				r.Post("/", controllers.RecordPayout(payoutService, logg))
				r.Get("/next-date", controllers.NextPayoutDate(payoutService, logg))
				r.Get("/amount", controllers.PayoutAmount(payoutService, logg))
			})

			r.Route("/forfeitures", func(r chi.Router) {
				r.Get("/amount", controllers.ForfeitureAmount(forfeitureService, logg))
				r.Post("/", controllers.Forfeit(forfeitureService, logg))
			})
			r.Post("/closure-check", controllers.ClosureCheck(forfeitureService, logg))
		})

		r.Route("/payouts/{payoutId}", func(r chi.Router) {
			r.Post("/complete", controllers.CompletePayout(payoutService, logg))
			r.Post("/unclaim", controllers.UnclaimPayout(payoutService, logg))
			r.Post("/fail", controllers.FailPayout(payoutService, logg))
		})
	})

	return r
}
