package fees

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/internal/repo"
	"github.com/voltride/voltride-backend/pkg/db/models"
	"github.com/voltride/voltride-backend/pkg/enums"
)

// Repository defines persistence operations for the extra fee ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateFee(ctx context.Context, fee *models.ExtraFee) (*models.ExtraFee, error)
	FindFee(ctx context.Context, feeID uuid.UUID) (*models.ExtraFee, error)
	DeleteFee(ctx context.Context, feeID uuid.UUID) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ExtraFee, error)
	SumByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	FindFeeType(ctx context.Context, feeTypeID uuid.UUID) (*models.FeeType, error)
	ListFeeTypes(ctx context.Context) ([]models.FeeType, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.RentalOrder, error)
	HasFinalPayment(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a fees repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) CreateFee(ctx context.Context, fee *models.ExtraFee) (*models.ExtraFee, error) {
	if err := r.DB(ctx).Create(fee).Error; err != nil {
		return nil, err
	}
	return fee, nil
}

func (r *repository) FindFee(ctx context.Context, feeID uuid.UUID) (*models.ExtraFee, error) {
	var fee models.ExtraFee
	err := r.DB(ctx).
		Where("id = ?", feeID).
		First(&fee).Error
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

func (r *repository) DeleteFee(ctx context.Context, feeID uuid.UUID) error {
	return r.DB(ctx).
		Where("id = ?", feeID).
		Delete(&models.ExtraFee{}).Error
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ExtraFee, error) {
	var fees []models.ExtraFee
	err := r.DB(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&fees).Error
	if err != nil {
		return nil, err
	}
	return fees, nil
}

func (r *repository) SumByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var total int64
	err := r.DB(ctx).
		Model(&models.ExtraFee{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *repository) FindFeeType(ctx context.Context, feeTypeID uuid.UUID) (*models.FeeType, error) {
	var feeType models.FeeType
	err := r.DB(ctx).
		Where("id = ?", feeTypeID).
		First(&feeType).Error
	if err != nil {
		return nil, err
	}
	return &feeType, nil
}

func (r *repository) ListFeeTypes(ctx context.Context) ([]models.FeeType, error) {
	var feeTypes []models.FeeType
	err := r.DB(ctx).
		Order("name ASC").
		Find(&feeTypes).Error
	if err != nil {
		return nil, err
	}
	return feeTypes, nil
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

func (r *repository) HasFinalPayment(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Where("kind = ?", enums.PaymentKindFinal).
		Count(&count).Error
	return count > 0, err
}
