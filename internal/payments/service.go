package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/pkg/db/models"
	"github.com/voltride/voltride-backend/pkg/enums"
	pkgerrors "github.com/voltride/voltride-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// GatewayClient is the outbound surface of the external payment gateway.
type GatewayClient interface {
	NewExternalRef() string
	BuildRedirectURL(externalRef string, amount int64, orderID uuid.UUID) (string, error)
	VerifySignature(externalRef string, amount int64, signature string) bool
	Refund(ctx context.Context, externalRef string, amount int64) error
}

// FeeTotaler supplies the extra-fee ledger total for final settlement.
type FeeTotaler interface {
	TotalFor(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int64, error)
}

// Service orchestrates deposits, settlement reconciliation and refunds.
// The asynchronous gateway notification is the only path that marks a
// payment PAID; the browser return is read-only.
type Service interface {
	CreateDepositRequest(ctx context.Context, input DepositRequestInput) (*DepositRequest, error)
	HandleSettlementNotification(ctx context.Context, input SettlementInput) (*SettlementAck, error)
	HandleUserReturn(ctx context.Context, externalRef string) (*models.Payment, error)
	CreateRefund(ctx context.Context, input RefundInput) (*models.Payment, error)
	SettleFinal(ctx context.Context, tx *gorm.DB, order *models.RentalOrder) (*models.Payment, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
}

type service struct {
	repo           Repository
	tx             txRunner
	gateway        GatewayClient
	fees           FeeTotaler
	depositPercent int64
	now            func() time.Time
}

// DepositRequestInput captures a renter initiating the deposit flow.
type DepositRequestInput struct {
	OrderID     uuid.UUID
	RenterID    *uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

// DepositRequest carries the stored payment row plus the gateway redirect.
type DepositRequest struct {
	Payment     *models.Payment `json:"payment"`
	RedirectURL string          `json:"redirect_url"`
}

// SettlementInput is the authoritative gateway notification payload.
type SettlementInput struct {
	ExternalRef string
	Amount      int64
	Signature   string
}

// SettlementAck reports the payment state after reconciliation. Duplicate
// notifications receive the same acknowledgment without a second write.
type SettlementAck struct {
	ExternalRef    string              `json:"external_ref"`
	Status         enums.PaymentStatus `json:"status"`
	AlreadySettled bool                `json:"already_settled"`
}

// RefundInput captures a staff-issued deposit refund.
type RefundInput struct {
	OrderID     uuid.UUID
	Amount      int64
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

// NewService builds a payments service with the required dependencies.
func NewService(repo Repository, tx txRunner, gateway GatewayClient, fees FeeTotaler, depositPercent int64) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if fees == nil {
		return nil, fmt.Errorf("fee totaler required")
	}
	if depositPercent <= 0 || depositPercent > 100 {
		return nil, fmt.Errorf("deposit percent must be in (0, 100]")
	}
	return &service{
		repo:           repo,
		tx:             tx,
		gateway:        gateway,
		fees:           fees,
		depositPercent: depositPercent,
		now:            time.Now,
	}, nil
}

func (s *service) CreateDepositRequest(ctx context.Context, input DepositRequestInput) (*DepositRequest, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var request *DepositRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !input.ActorRole.IsStaff() {
			if input.RenterID == nil || order.RenterID != *input.RenterID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to renter")
			}
		}
		if order.Status != enums.OrderStatusBooked && order.Status != enums.OrderStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "deposit only applies before pickup")
		}

		// Re-requesting an unsettled deposit reuses the stored row so the
		// gateway reference stays stable across browser retries.
		existing, err := repo.FindDepositByOrder(ctx, input.OrderID)
		if err != nil && err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deposit")
		}
		if existing != nil {
			if existing.Status != enums.PaymentStatusUnpaid {
				return pkgerrors.New(pkgerrors.CodeConflict, "deposit already settled")
			}
			url, err := s.gateway.BuildRedirectURL(existing.ExternalRef, existing.Amount, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "build redirect url")
			}
			request = &DepositRequest{Payment: existing, RedirectURL: url}
			return nil
		}

		rate, err := repo.VehicleRatePerHour(ctx, order.VehicleID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle rate")
		}

		amount := depositAmount(order.DurationHours(), rate, s.depositPercent)
		if amount <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "deposit amount resolves to zero")
		}

		payment := &models.Payment{
			OrderID:     order.ID,
			Kind:        enums.PaymentKindDeposit,
			Status:      enums.PaymentStatusUnpaid,
			Amount:      amount,
			ExternalRef: s.gateway.NewExternalRef(),
		}
		if _, err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create deposit payment")
		}

		url, err := s.gateway.BuildRedirectURL(payment.ExternalRef, payment.Amount, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "build redirect url")
		}
		request = &DepositRequest{Payment: payment, RedirectURL: url}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) HandleSettlementNotification(ctx context.Context, input SettlementInput) (*SettlementAck, error) {
	if input.ExternalRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "external reference required")
	}

	payment, err := s.repo.FindByExternalRef(ctx, input.ExternalRef)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeGateway, "unknown external reference")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	if !s.gateway.VerifySignature(input.ExternalRef, input.Amount, input.Signature) {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "invalid settlement signature")
	}
	if input.Amount != payment.Amount {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "settlement amount mismatch")
	}

	// Duplicate notifications acknowledge without reprocessing.
	if payment.Status != enums.PaymentStatusUnpaid {
		return &SettlementAck{
			ExternalRef:    payment.ExternalRef,
			Status:         payment.Status,
			AlreadySettled: true,
		}, nil
	}

	settledAt := s.now().UTC()
	written, err := s.repo.SettleIfUnpaid(ctx, input.ExternalRef, settledAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle payment")
	}
	if !written {
		// A concurrent notification won the conditional update.
		current, err := s.repo.FindByExternalRef(ctx, input.ExternalRef)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
		}
		return &SettlementAck{
			ExternalRef:    current.ExternalRef,
			Status:         current.Status,
			AlreadySettled: true,
		}, nil
	}

	return &SettlementAck{
		ExternalRef: payment.ExternalRef,
		Status:      enums.PaymentStatusPaid,
	}, nil
}

// HandleUserReturn is the browser redirect path. It never mutates payment
// state; the client only learns what the authoritative record holds.
func (s *service) HandleUserReturn(ctx context.Context, externalRef string) (*models.Payment, error) {
	if externalRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external reference required")
	}

	payment, err := s.repo.FindByExternalRef(ctx, externalRef)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}

func (s *service) CreateRefund(ctx context.Context, input RefundInput) (*models.Payment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "refunds are staff-only")
	}

	var refunded *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusCancelled && order.Status != enums.OrderStatusRejected {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refunds only apply to cancelled or rejected orders")
		}

		deposit, err := repo.FindDepositByOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no deposit recorded for order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deposit")
		}
		if deposit.Status != enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "deposit is not paid")
		}
		if input.Amount > deposit.Amount {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund exceeds paid deposit")
		}

		// The gateway moves the money; the row only flips once it confirms.
		if err := s.gateway.Refund(ctx, deposit.ExternalRef, input.Amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "issue gateway refund")
		}

		written, err := repo.RefundIfPaid(ctx, deposit.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund deposit")
		}
		if !written {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "deposit already refunded")
		}

		deposit.Status = enums.PaymentStatusRefunded
		refunded = deposit
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refunded, nil
}

// SettleFinal computes the completion balance and records the FINAL payment
// row. The balance is duration times rate, plus ledger fees, net of the
// deposit already paid; a negative value represents a refund owed.
func (s *service) SettleFinal(ctx context.Context, tx *gorm.DB, order *models.RentalOrder) (*models.Payment, error) {
	if order == nil || order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}

	repo := s.repo.WithTx(tx)

	rate, err := repo.VehicleRatePerHour(ctx, order.VehicleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle rate")
	}
	feeTotal, err := s.fees.TotalFor(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}
	depositPaid, err := repo.PaidDepositTotal(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum paid deposits")
	}

	balance := rentalTotal(order.DurationHours(), rate) + feeTotal - depositPaid

	payment := &models.Payment{
		OrderID:     order.ID,
		Kind:        enums.PaymentKindFinal,
		Status:      enums.PaymentStatusUnpaid,
		Amount:      balance,
		ExternalRef: s.gateway.NewExternalRef(),
	}
	if _, err := repo.CreatePayment(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create final payment")
	}
	return payment, nil
}

func (s *service) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	payments, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return payments, nil
}

// depositAmount is percent of the full rental price, rounded to the nearest
// minor unit.
func depositAmount(hours float64, ratePerHour, percent int64) int64 {
	return decimal.NewFromFloat(hours).
		Mul(decimal.NewFromInt(ratePerHour)).
		Mul(decimal.NewFromInt(percent)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

func rentalTotal(hours float64, ratePerHour int64) int64 {
	return decimal.NewFromFloat(hours).
		Mul(decimal.NewFromInt(ratePerHour)).
		Round(0).
		IntPart()
}
