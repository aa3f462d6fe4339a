package rentals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/internal/repo"
	"github.com/voltride/voltride-backend/pkg/db/models"
	"github.com/voltride/voltride-backend/pkg/enums"
)

type repository struct {
	repo.Base
}

// NewRepository builds a rentals repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, order *models.RentalOrder) (*models.RentalOrder, error) {
	if err := r.DB(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) Find(ctx context.Context, orderID uuid.UUID) (*models.RentalOrder, error) {
	var order models.RentalOrder
	err := r.DB(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindDetail(ctx context.Context, orderID uuid.UUID) (*models.RentalOrder, error) {
	var order models.RentalOrder
	err := r.DB(ctx).
		Preload("Payments").
		Preload("ExtraFees").
		Preload("Contract").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]models.RentalOrder, error) {
	query := r.DB(ctx).Model(&models.RentalOrder{})
	if filters.RenterID != nil {
		query = query.Where("renter_id = ?", *filters.RenterID)
	}
	if filters.VehicleID != nil {
		query = query.Where("vehicle_id = ?", *filters.VehicleID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var orders []models.RentalOrder
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindStaleBooked(ctx context.Context, cutoff time.Time) ([]models.RentalOrder, error) {
	var orders []models.RentalOrder
	err := r.DB(ctx).
		Where("status = ?", enums.OrderStatusBooked).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) UpdateGuarded(ctx context.Context, orderID uuid.UUID, expectedStatus enums.OrderStatus, expectedVersion int, updates map[string]any) (bool, error) {
	result := r.DB(ctx).
		Model(&models.RentalOrder{}).
		Where("id = ?", orderID).
		Where("status = ?", expectedStatus).
		Where("version = ?", expectedVersion).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
