package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/voltride/voltride-backend/pkg/logger"
	"github.com/voltride/voltride-backend/pkg/metrics"
)

const defaultPendingTTL = 24 * time.Hour

// bookingExpirer cancels stale bookings older than the cutoff.
type bookingExpirer interface {
	ExpireStaleBookings(ctx context.Context, cutoff time.Time) (int, error)
}

// BookingExpiryJobParams configure the stale booking sweeper.
type BookingExpiryJobParams struct {
	Logger     *logger.Logger
	Rentals    bookingExpirer
	Metrics    *metrics.CronJobMetrics
	PendingTTL time.Duration
}

// NewBookingExpiryJob builds the cron job that cancels BOOKED orders staff
// never decided within the pending TTL.
func NewBookingExpiryJob(params BookingExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Rentals == nil {
		return nil, fmt.Errorf("rentals service required")
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	return &bookingExpiryJob{
		logg:    params.Logger,
		rentals: params.Rentals,
		metrics: params.Metrics,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

type bookingExpiryJob struct {
	logg    *logger.Logger
	rentals bookingExpirer
	metrics *metrics.CronJobMetrics
	ttl     time.Duration
	now     func() time.Time
}

func (j *bookingExpiryJob) Name() string { return "booking-expiry" }

func (j *bookingExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	ctx = j.logg.WithField(ctx, "cutoff", cutoff.Format(time.RFC3339))

	expired, err := j.rentals.ExpireStaleBookings(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("expire stale bookings: %w", err)
	}

	if j.metrics != nil && expired > 0 {
		j.metrics.AddExpiredBookings(expired)
	}
	j.logg.Info(j.logg.WithField(ctx, "expired", expired), "stale bookings swept")
	return nil
}
