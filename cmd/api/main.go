package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/voltride/voltride-backend/api/routes"
	"github.com/voltride/voltride-backend/internal/availability"
	"github.com/voltride/voltride-backend/internal/contracts"
	"github.com/voltride/voltride-backend/internal/fees"
	"github.com/voltride/voltride-backend/internal/payments"
	"github.com/voltride/voltride-backend/internal/rentals"
	"github.com/voltride/voltride-backend/internal/verification"
	gatewaywebhook "github.com/voltride/voltride-backend/internal/webhooks/gateway"
	"github.com/voltride/voltride-backend/pkg/config"
	"github.com/voltride/voltride-backend/pkg/db"
	"github.com/voltride/voltride-backend/pkg/gateway"
	"github.com/voltride/voltride-backend/pkg/logger"
	"github.com/voltride/voltride-backend/pkg/migrate"
	"github.com/voltride/voltride-backend/pkg/redis"
)

const webhookMarkerTTL = 7 * 24 * time.Hour

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

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(context.Background(), "failed to unwrap sql database", err)
		os.Exit(1)
	}
	if err := migrate.MaybeRunDev(context.Background(), cfg, sqlDB, logg); err != nil {
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

	gatewayClient, err := gateway.NewClient(cfg.Gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	verificationService, err := verification.NewService(verification.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create verification service", err)
		os.Exit(1)
	}
	availabilityService, err := availability.NewService(availability.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create availability service", err)
		os.Exit(1)
	}
	feesService, err := fees.NewService(fees.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create fees service", err)
		os.Exit(1)
	}
	paymentsService, err := payments.NewService(payments.NewRepository(dbClient.DB()), dbClient, gatewayClient, feesService, int64(cfg.Gateway.DepositPercent))
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}
	contractsService, err := contracts.NewService(contracts.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create contracts service", err)
		os.Exit(1)
	}
	rentalsService, err := rentals.NewService(rentals.NewRepository(dbClient.DB()), dbClient, verificationService, availabilityService, contractsService, paymentsService)
	if err != nil {
		logg.Error(context.Background(), "failed to create rentals service", err)
		os.Exit(1)
	}
	webhookGuard, err := gatewaywebhook.NewIdempotencyGuard(redisClient, webhookMarkerTTL, "gateway")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
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
			verificationService,
			availabilityService,
			rentalsService,
			paymentsService,
			contractsService,
			feesService,
			webhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
