package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/pkg/db/models"
	"github.com/voltride/voltride-backend/pkg/enums"
	pkgerrors "github.com/voltride/voltride-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service decides whether a vehicle can be reserved for a window and owns
// the derived availability flag. Check and Recompute accept an optional
// transaction so callers can run them inside their own guarded updates.
type Service interface {
	Check(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID, start, end time.Time) error
	Recompute(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID) error
	SetCondition(ctx context.Context, input SetConditionInput) error
	ListAvailable(ctx context.Context, stationID *uuid.UUID) ([]models.Vehicle, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// SetConditionInput captures a staff update of a vehicle's condition.
type SetConditionInput struct {
	VehicleID   uuid.UUID
	Condition   enums.VehicleCondition
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

// NewService builds an availability service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("availability repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// Check reports whether the vehicle can be reserved for [start, end).
// Conflicts: condition not rentable, or an active order overlapping the window.
func (s *service) Check(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID, start, end time.Time) error {
	if vehicleID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vehicle id required")
	}
	if !start.Before(end) {
		return pkgerrors.New(pkgerrors.CodeValidation, "start time must be before end time")
	}

	repo := s.repo.WithTx(tx)

	vehicle, err := repo.FindVehicle(ctx, vehicleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
	}
	if vehicle.Condition != enums.VehicleConditionGood {
		return pkgerrors.New(pkgerrors.CodeConflict, "vehicle not in rentable condition")
	}

	overlaps, err := repo.CountOverlappingOrders(ctx, vehicleID, start, end)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count overlapping orders")
	}
	if overlaps > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "vehicle unavailable for that window")
	}
	return nil
}

// Recompute derives is_available from condition plus active orders and
// writes it. This is the only writer of the flag.
func (s *service) Recompute(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID) error {
	if vehicleID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vehicle id required")
	}

	repo := s.repo.WithTx(tx)

	vehicle, err := repo.FindVehicle(ctx, vehicleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
	}

	active, err := repo.CountActiveOrders(ctx, vehicleID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active orders")
	}

	available := vehicle.Condition == enums.VehicleConditionGood && active == 0
	if vehicle.IsAvailable == available {
		return nil
	}
	if err := repo.UpdateVehicle(ctx, vehicleID, map[string]any{"is_available": available}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update availability flag")
	}
	return nil
}

// SetCondition records a staff condition change and recomputes availability
// in the same transaction.
func (s *service) SetCondition(ctx context.Context, input SetConditionInput) error {
	if input.VehicleID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vehicle id required")
	}
	if !input.Condition.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid vehicle condition")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.IsStaff() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "condition updates are staff-only")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindVehicle(ctx, input.VehicleID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
		}

		if err := repo.UpdateVehicle(ctx, input.VehicleID, map[string]any{"condition": input.Condition}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vehicle condition")
		}
		return s.Recompute(ctx, tx, input.VehicleID)
	})
}

func (s *service) ListAvailable(ctx context.Context, stationID *uuid.UUID) ([]models.Vehicle, error) {
	vehicles, err := s.repo.ListAvailableVehicles(ctx, stationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list available vehicles")
	}
	return vehicles, nil
}
