package rentals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/pkg/db/models"
	"github.com/voltride/voltride-backend/pkg/enums"
	pkgerrors "github.com/voltride/voltride-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// VerificationGate decides whether a renter may hold a booking.
type VerificationGate interface {
	IsEligible(ctx context.Context, renterID uuid.UUID) (bool, error)
}

// AvailabilityLedger guards vehicle windows and owns the derived flag.
type AvailabilityLedger interface {
	Check(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID, start, end time.Time) error
	Recompute(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID) error
}

// ContractGenerator binds a handed-over order to its contract record.
type ContractGenerator interface {
	CreateForHandover(ctx context.Context, tx *gorm.DB, orderID, staffID uuid.UUID, signedDate time.Time) (*models.Contract, error)
}

// SettlementComputer creates the final payment row when an order completes.
type SettlementComputer interface {
	SettleFinal(ctx context.Context, tx *gorm.DB, order *models.RentalOrder) (*models.Payment, error)
}

// Service owns the rental order lifecycle. Every transition is a single
// guarded update conditioned on the row's current status and version, so a
// concurrent actor that already resolved the order makes the losing call
// fail instead of overwriting.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.RentalOrder, error)
	Approve(ctx context.Context, input DecisionInput) error
	Reject(ctx context.Context, input DecisionInput) error
	Cancel(ctx context.Context, input CancelInput) error
	Handover(ctx context.Context, input HandoverInput) (*models.Contract, error)
	Complete(ctx context.Context, input CompleteInput) (*models.Payment, error)
	Get(ctx context.Context, orderID uuid.UUID, actorRenterID *uuid.UUID, role enums.ActorRole) (*models.RentalOrder, error)
	List(ctx context.Context, filters ListFilters, actorRenterID *uuid.UUID, role enums.ActorRole) ([]models.RentalOrder, error)
	ExpireStaleBookings(ctx context.Context, cutoff time.Time) (int, error)
}

type service struct {
	repo         Repository
	tx           txRunner
	verification VerificationGate
	availability AvailabilityLedger
	contracts    ContractGenerator
	settlement   SettlementComputer
	now          func() time.Time
}

// NewService builds a rentals service with the required dependencies.
func NewService(repo Repository, tx txRunner, gate VerificationGate, ledger AvailabilityLedger, contracts ContractGenerator, settlement SettlementComputer) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rentals repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gate == nil {
		return nil, fmt.Errorf("verification gate required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("availability ledger required")
	}
	if contracts == nil {
		return nil, fmt.Errorf("contract generator required")
	}
	if settlement == nil {
		return nil, fmt.Errorf("settlement computer required")
	}
	return &service{
		repo:         repo,
		tx:           tx,
		verification: gate,
		availability: ledger,
		contracts:    contracts,
		settlement:   settlement,
		now:          time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.RentalOrder, error) {
	switch {
	case input.RenterID == uuid.Nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "renter id required")
	case input.VehicleID == uuid.Nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle id required")
	case input.PickupStationID == uuid.Nil || input.ReturnStationID == uuid.Nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup and return stations required")
	case !input.StartTime.Before(input.EndTime):
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start time must be before end time")
	case input.ActorUserID == uuid.Nil:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	case input.ActorRole != enums.ActorRoleRenter:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only renters create bookings")
	}

	eligible, err := s.verification.IsEligible(ctx, input.RenterID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "renter not verified")
	}

	order := &models.RentalOrder{
		RenterID:        input.RenterID,
		VehicleID:       input.VehicleID,
		PickupStationID: input.PickupStationID,
		ReturnStationID: input.ReturnStationID,
		StartTime:       input.StartTime.UTC(),
		EndTime:         input.EndTime.UTC(),
		Status:          enums.OrderStatusBooked,
		Version:         1,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// The window check runs inside the transaction so two concurrent
		// bookings for the same vehicle cannot both pass.
		if err := s.availability.Check(ctx, tx, input.VehicleID, order.StartTime, order.EndTime); err != nil {
			return err
		}
		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rental order")
		}
		return s.availability.Recompute(ctx, tx, input.VehicleID)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Approve(ctx context.Context, input DecisionInput) error {
	if err := validateDecision(input); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.transition(ctx, tx, input.OrderID, enums.OrderStatusBooked, enums.OrderStatusApproved, nil)
		return err
	})
}

func (s *service) Reject(ctx context.Context, input DecisionInput) error {
	if err := validateDecision(input); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.transition(ctx, tx, input.OrderID, enums.OrderStatusBooked, enums.OrderStatusRejected, nil)
		if err != nil {
			return err
		}
		return s.availability.Recompute(ctx, tx, order.VehicleID)
	})
}

func (s *service) Cancel(ctx context.Context, input CancelInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.ActorRoleRenter {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only renters cancel their bookings")
	}
	if input.RenterID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "renter context missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.Find(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.RenterID != input.RenterID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to renter")
		}
		if order.Status != enums.OrderStatusBooked && order.Status != enums.OrderStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
		}

		ok, err := repo.UpdateGuarded(ctx, order.ID, order.Status, order.Version, map[string]any{
			"status":  enums.OrderStatusCancelled,
			"version": order.Version + 1,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already resolved")
		}
		return s.availability.Recompute(ctx, tx, order.VehicleID)
	})
}

func (s *service) Handover(ctx context.Context, input HandoverInput) (*models.Contract, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.BeforePhotoURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "before photo required at handover")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "handover is staff-only")
	}

	var contract *models.Contract
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.transition(ctx, tx, input.OrderID, enums.OrderStatusApproved, enums.OrderStatusInUse, map[string]any{
			"before_photo_url": input.BeforePhotoURL,
		})
		if err != nil {
			return err
		}

		contract, err = s.contracts.CreateForHandover(ctx, tx, order.ID, input.ActorUserID, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *service) Complete(ctx context.Context, input CompleteInput) (*models.Payment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AfterPhotoURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "after photo required at completion")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "completion is staff-only")
	}

	var final *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.transition(ctx, tx, input.OrderID, enums.OrderStatusInUse, enums.OrderStatusCompleted, map[string]any{
			"after_photo_url": input.AfterPhotoURL,
		})
		if err != nil {
			return err
		}
		order.AfterPhotoURL = &input.AfterPhotoURL
		order.Status = enums.OrderStatusCompleted

		final, err = s.settlement.SettleFinal(ctx, tx, order)
		if err != nil {
			return err
		}
		return s.availability.Recompute(ctx, tx, order.VehicleID)
	})
	if err != nil {
		return nil, err
	}
	return final, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actorRenterID *uuid.UUID, role enums.ActorRole) (*models.RentalOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if !role.IsStaff() {
		if actorRenterID == nil || order.RenterID != *actorRenterID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to renter")
		}
	}
	return order, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, actorRenterID *uuid.UUID, role enums.ActorRole) ([]models.RentalOrder, error) {
	// Renters only ever see their own orders.
	if !role.IsStaff() {
		if actorRenterID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "renter context missing")
		}
		filters.RenterID = actorRenterID
	}

	orders, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

// ExpireStaleBookings cancels BOOKED orders created before the cutoff that
// staff never decided. Each order is expired in its own transaction so one
// contested row does not abort the sweep.
func (s *service) ExpireStaleBookings(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.repo.FindStaleBooked(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find stale bookings")
	}

	expired := 0
	var sweepErr error
	for _, order := range stale {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			ok, err := s.repo.WithTx(tx).UpdateGuarded(ctx, order.ID, enums.OrderStatusBooked, order.Version, map[string]any{
				"status":  enums.OrderStatusCancelled,
				"version": order.Version + 1,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire booking")
			}
			if !ok {
				// Lost to a concurrent decision; nothing to do.
				return nil
			}
			expired++
			return s.availability.Recompute(ctx, tx, order.VehicleID)
		})
		if err != nil {
			sweepErr = multierr.Append(sweepErr, err)
		}
	}
	return expired, sweepErr
}

// transition performs one guarded status move and returns the loaded order.
func (s *service) transition(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (*models.RentalOrder, error) {
	repo := s.repo.WithTx(tx)

	order, err := repo.Find(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != from {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("transition to %s requires status %s", to, from))
	}

	updates := map[string]any{
		"status":  to,
		"version": order.Version + 1,
	}
	for key, value := range extra {
		updates[key] = value
	}

	ok, err := repo.UpdateGuarded(ctx, order.ID, from, order.Version, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already resolved")
	}

	order.Status = to
	order.Version++
	return order, nil
}

func validateDecision(input DecisionInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.IsStaff() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order decisions are staff-only")
	}
	return nil
}
