package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voltride/voltride-backend/api/controllers"
	webhookcontrollers "github.com/voltride/voltride-backend/api/controllers/webhooks"
	"github.com/voltride/voltride-backend/api/middleware"
	"github.com/voltride/voltride-backend/internal/availability"
	"github.com/voltride/voltride-backend/internal/contracts"
	"github.com/voltride/voltride-backend/internal/fees"
	"github.com/voltride/voltride-backend/internal/payments"
	"github.com/voltride/voltride-backend/internal/rentals"
	"github.com/voltride/voltride-backend/internal/verification"
	gatewaywebhook "github.com/voltride/voltride-backend/internal/webhooks/gateway"
	"github.com/voltride/voltride-backend/pkg/config"
	"github.com/voltride/voltride-backend/pkg/db"
	"github.com/voltride/voltride-backend/pkg/logger"
	"github.com/voltride/voltride-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	verificationService verification.Service,
	availabilityService availability.Service,
	rentalsService rentals.Service,
	paymentsService payments.Service,
	contractsService contracts.Service,
	feesService fees.Service,
	webhookGuard *gatewaywebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payment", webhookcontrollers.PaymentWebhook(paymentsService, webhookGuard, logg))
	})

	// Browser return after a gateway checkout; the shopper may not be
	// logged in anymore when the gateway redirects back.
	r.Get("/api/v1/payments/return", controllers.PaymentReturn(paymentsService, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/vehicles", controllers.ListAvailableVehicles(availabilityService, logg))

		r.Route("/rentals", func(r chi.Router) {
			r.Post("/", controllers.CreateRental(rentalsService, logg))
			r.Get("/", controllers.ListRentals(rentalsService, logg))
			r.Get("/{orderId}", controllers.RentalDetail(rentalsService, logg))
			r.Post("/{orderId}/cancel", controllers.CancelRental(rentalsService, logg))
			r.Post("/{orderId}/deposit", controllers.CreateDeposit(paymentsService, logg))
		})

		r.Route("/renters/me", func(r chi.Router) {
			r.Get("/", controllers.RenterProfile(verificationService, logg))
			r.Post("/documents", controllers.SubmitDocuments(verificationService, logg))
		})

		r.Route("/staff", func(r chi.Router) {
			r.Use(middleware.RequireStaff(logg))

			r.Route("/rentals", func(r chi.Router) {
				r.Get("/", controllers.StaffListRentals(rentalsService, logg))
				r.Get("/{orderId}", controllers.RentalDetail(rentalsService, logg))
				r.Post("/{orderId}/approve", controllers.ApproveRental(rentalsService, logg))
				r.Post("/{orderId}/reject", controllers.RejectRental(rentalsService, logg))
				r.Post("/{orderId}/handover", controllers.HandoverRental(rentalsService, logg))
				r.Post("/{orderId}/complete", controllers.CompleteRental(rentalsService, logg))
				r.Post("/{orderId}/refund", controllers.CreateRefund(paymentsService, logg))
				r.Get("/{orderId}/payments", controllers.ListOrderPayments(paymentsService, logg))
				r.Get("/{orderId}/contract", controllers.OrderContract(contractsService, logg))
				r.Post("/{orderId}/fees", controllers.AddFee(feesService, logg))
				r.Get("/{orderId}/fees", controllers.ListOrderFees(feesService, logg))
			})

			r.Delete("/fees/{feeId}", controllers.DeleteFee(feesService, logg))
			r.Get("/fee-types", controllers.ListFeeTypes(feesService, logg))
			r.Patch("/contracts/{contractId}/document", controllers.AttachContractDocument(contractsService, logg))
			r.Post("/documents/{documentId}/review", controllers.ReviewDocument(verificationService, logg))
			r.Patch("/vehicles/{vehicleId}/condition", controllers.SetVehicleCondition(availabilityService, logg))
		})
	})

	return r
}
