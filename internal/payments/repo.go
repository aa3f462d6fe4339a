package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/internal/repo"
	"github.com/voltride/voltride-backend/pkg/db/models"
	"github.com/voltride/voltride-backend/pkg/enums"
)

// Repository defines persistence operations for payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByExternalRef(ctx context.Context, externalRef string) (*models.Payment, error)
	FindDepositByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	PaidDepositTotal(ctx context.Context, orderID uuid.UUID) (int64, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	// SettleIfUnpaid marks the payment PAID only while it is still UNPAID.
	// It reports whether a row was written.
	SettleIfUnpaid(ctx context.Context, externalRef string, settledAt time.Time) (bool, error)
	// RefundIfPaid marks the payment REFUNDED only while it is PAID.
	RefundIfPaid(ctx context.Context, paymentID uuid.UUID) (bool, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.RentalOrder, error)
	VehicleRatePerHour(ctx context.Context, vehicleID uuid.UUID) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.DB(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) FindByExternalRef(ctx context.Context, externalRef string) (*models.Payment, error) {
	var payment models.Payment
	err := r.DB(ctx).
		Where("external_ref = ?", externalRef).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindDepositByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.DB(ctx).
		Where("order_id = ?", orderID).
		Where("kind = ?", enums.PaymentKindDeposit).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) PaidDepositTotal(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var total int64
	err := r.DB(ctx).
		Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Where("kind = ?", enums.PaymentKindDeposit).
		Where("status = ?", enums.PaymentStatusPaid).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.DB(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) SettleIfUnpaid(ctx context.Context, externalRef string, settledAt time.Time) (bool, error) {
	result := r.DB(ctx).
		Model(&models.Payment{}).
		Where("external_ref = ?", externalRef).
		Where("status = ?", enums.PaymentStatusUnpaid).
		Updates(map[string]any{
			"status":     enums.PaymentStatusPaid,
			"settled_at": settledAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) RefundIfPaid(ctx context.Context, paymentID uuid.UUID) (bool, error) {
	result := r.DB(ctx).
		Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Where("status = ?", enums.PaymentStatusPaid).
		Update("status", enums.PaymentStatusRefunded)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.RentalOrder, error) {
	var order models.RentalOrder
	err := r.DB(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) VehicleRatePerHour(ctx context.Context, vehicleID uuid.UUID) (int64, error) {
	var rate int64
	err := r.DB(ctx).
		Model(&models.Vehicle{}).
		Select("vehicle_models.rate_per_hour").
		Joins("JOIN vehicle_models ON vehicle_models.id = vehicles.model_id").
		Where("vehicles.id = ?", vehicleID).
		Scan(&rate).Error
	return rate, err
}
