package fees

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/pkg/db/models"
	"github.com/voltride/voltride-backend/pkg/enums"
	pkgerrors "github.com/voltride/voltride-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the append-only ledger of post-pickup charges. TotalFor is the
// only input the final-balance computation reads.
type Service interface {
	Add(ctx context.Context, input AddInput) (*models.ExtraFee, error)
	Delete(ctx context.Context, input DeleteInput) error
	TotalFor(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int64, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.ExtraFee, error)
	ListFeeTypes(ctx context.Context) ([]models.FeeType, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// AddInput captures a staff charge against an order. Amount overrides the
// fee type's default when provided.
type AddInput struct {
	OrderID     uuid.UUID
	FeeTypeID   uuid.UUID
	Amount      *int64
	Description string
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

// DeleteInput removes a fee recorded in error, before settlement freezes
// the ledger.
type DeleteInput struct {
	FeeID       uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

// NewService builds a fees service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("fees repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Add(ctx context.Context, input AddInput) (*models.ExtraFee, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.FeeTypeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fee type id required")
	}
	if input.Amount != nil && *input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fee amount must be positive")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "fee entry is staff-only")
	}

	var fee *models.ExtraFee
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusInUse && order.Status != enums.OrderStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "fees only apply after pickup")
		}

		feeType, err := repo.FindFeeType(ctx, input.FeeTypeID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "fee type not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fee type")
		}

		amount := feeType.DefaultAmount
		if input.Amount != nil {
			amount = *input.Amount
		}

		fee = &models.ExtraFee{
			OrderID:     input.OrderID,
			FeeTypeID:   input.FeeTypeID,
			Amount:      amount,
			Description: input.Description,
		}
		if _, err := repo.CreateFee(ctx, fee); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create fee")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fee, nil
}

// Delete removes a fee while the ledger is still open. Once the order's
// final payment exists the ledger is frozen.
func (s *service) Delete(ctx context.Context, input DeleteInput) error {
	if input.FeeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "fee id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.IsStaff() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "fee removal is staff-only")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		fee, err := repo.FindFee(ctx, input.FeeID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "fee not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fee")
		}

		settled, err := repo.HasFinalPayment(ctx, fee.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check settlement")
		}
		if settled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "fee ledger frozen after settlement")
		}

		if err := repo.DeleteFee(ctx, fee.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete fee")
		}
		return nil
	})
}

func (s *service) TotalFor(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int64, error) {
	if orderID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	total, err := s.repo.WithTx(tx).SumByOrder(ctx, orderID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum fees")
	}
	return total, nil
}

func (s *service) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.ExtraFee, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	fees, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list fees")
	}
	return fees, nil
}

func (s *service) ListFeeTypes(ctx context.Context) ([]models.FeeType, error) {
	feeTypes, err := s.repo.ListFeeTypes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list fee types")
	}
	return feeTypes, nil
}
