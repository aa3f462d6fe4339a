package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voltride/voltride-backend/internal/availability"
	"github.com/voltride/voltride-backend/internal/contracts"
	"github.com/voltride/voltride-backend/internal/cron"
	"github.com/voltride/voltride-backend/internal/fees"
	"github.com/voltride/voltride-backend/internal/payments"
	"github.com/voltride/voltride-backend/internal/rentals"
	"github.com/voltride/voltride-backend/internal/verification"
	"github.com/voltride/voltride-backend/pkg/config"
	"github.com/voltride/voltride-backend/pkg/db"
	"github.com/voltride/voltride-backend/pkg/gateway"
	"github.com/voltride/voltride-backend/pkg/logger"
	"github.com/voltride/voltride-backend/pkg/metrics"
	"github.com/voltride/voltride-backend/pkg/migrate"
	"github.com/voltride/voltride-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	rentalsService, err := buildRentalsService(cfg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire rentals service", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewBookingExpiryJob(cron.BookingExpiryJobParams{
		Logger:     logg,
		Rentals:    rentalsService,
		Metrics:    metricsCollector,
		PendingTTL: cfg.Booking.PendingTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create booking expiry job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(expiryJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting cron worker")

	go serveMetrics(ctx, cfg, logg)

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRentalsService(cfg *config.Config, dbClient *db.Client) (rentals.Service, error) {
	gatewayClient, err := gateway.NewClient(cfg.Gateway)
	if err != nil {
		return nil, err
	}
	verificationService, err := verification.NewService(verification.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		return nil, err
	}
	availabilityService, err := availability.NewService(availability.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		return nil, err
	}
	feesService, err := fees.NewService(fees.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		return nil, err
	}
	paymentsService, err := payments.NewService(payments.NewRepository(dbClient.DB()), dbClient, gatewayClient, feesService, int64(cfg.Gateway.DepositPercent))
	if err != nil {
		return nil, err
	}
	contractsService, err := contracts.NewService(contracts.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}
	return rentals.NewService(rentals.NewRepository(dbClient.DB()), dbClient, verificationService, availabilityService, contractsService, paymentsService)
}

func serveMetrics(ctx context.Context, cfg *config.Config, logg *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: ":" + cfg.App.Port, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}

func lockName(cfg *config.Config) string {
	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("%s:%s", cfg.Cron.LockKey, env)
}
