package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voltride/voltride-backend/pkg/logger"
)

type fakeExpirer struct {
	cutoff  time.Time
	expired int
	err     error
}

func (f *fakeExpirer) ExpireStaleBookings(ctx context.Context, cutoff time.Time) (int, error) {
	f.cutoff = cutoff
	return f.expired, f.err
}

func TestBookingExpiryJobUsesConfiguredTTL(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	expirer := &fakeExpirer{expired: 2}

	job, err := NewBookingExpiryJob(BookingExpiryJobParams{
		Logger:     logg,
		Rentals:    expirer,
		PendingTTL: 6 * time.Hour,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	before := time.Now().UTC().Add(-6 * time.Hour)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run job: %v", err)
	}
	after := time.Now().UTC().Add(-6 * time.Hour)

	if expirer.cutoff.Before(before) || expirer.cutoff.After(after) {
		t.Fatalf("cutoff %v not within expected ttl window", expirer.cutoff)
	}
}

func TestBookingExpiryJobDefaultsTTL(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	expirer := &fakeExpirer{}

	job, err := NewBookingExpiryJob(BookingExpiryJobParams{Logger: logg, Rentals: expirer})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run job: %v", err)
	}

	expected := time.Now().UTC().Add(-defaultPendingTTL)
	if diff := expirer.cutoff.Sub(expected); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("expected default 24h cutoff, got %v", expirer.cutoff)
	}
}

func TestBookingExpiryJobPropagatesErrors(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	expirer := &fakeExpirer{err: errors.New("db down")}

	job, err := NewBookingExpiryJob(BookingExpiryJobParams{Logger: logg, Rentals: expirer})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error propagated from sweep")
	}
}
