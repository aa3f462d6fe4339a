package availability

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

// NewRepository builds an availability repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) FindVehicle(ctx context.Context, vehicleID uuid.UUID) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := r.DB(ctx).
		Where("id = ?", vehicleID).
		First(&vehicle).Error
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *repository) FindVehicleWithModel(ctx context.Context, vehicleID uuid.UUID) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := r.DB(ctx).
		Preload("Model").
		Where("id = ?", vehicleID).
		First(&vehicle).Error
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *repository) UpdateVehicle(ctx context.Context, vehicleID uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).
		Model(&models.Vehicle{}).
		Where("id = ?", vehicleID).
		Updates(updates).Error
}

// CountOverlappingOrders counts active orders whose half-open window
// intersects [start, end). Touching endpoints do not conflict.
func (r *repository) CountOverlappingOrders(ctx context.Context, vehicleID uuid.UUID, start, end time.Time) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.RentalOrder{}).
		Where("vehicle_id = ?", vehicleID).
		Where("status IN ?", enums.ActiveOrderStatuses).
		Where("start_time < ? AND end_time > ?", end, start).
		Count(&count).Error
	return count, err
}

func (r *repository) CountActiveOrders(ctx context.Context, vehicleID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.RentalOrder{}).
		Where("vehicle_id = ?", vehicleID).
		Where("status IN ?", enums.ActiveOrderStatuses).
		Count(&count).Error
	return count, err
}

func (r *repository) ListAvailableVehicles(ctx context.Context, stationID *uuid.UUID) ([]models.Vehicle, error) {
	query := r.DB(ctx).
		Preload("Model").
		Where("is_available = ?", true)
	if stationID != nil {
		query = query.Where("station_id = ?", *stationID)
	}

	var vehicles []models.Vehicle
	if err := query.Order("license_plate ASC").Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}
