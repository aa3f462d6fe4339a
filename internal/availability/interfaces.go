package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/pkg/db/models"
)

// Repository defines persistence operations for vehicles and the order
// windows that drive their availability.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVehicle(ctx context.Context, vehicleID uuid.UUID) (*models.Vehicle, error)
	FindVehicleWithModel(ctx context.Context, vehicleID uuid.UUID) (*models.Vehicle, error)
	UpdateVehicle(ctx context.Context, vehicleID uuid.UUID, updates map[string]any) error
	CountOverlappingOrders(ctx context.Context, vehicleID uuid.UUID, start, end time.Time) (int64, error)
	CountActiveOrders(ctx context.Context, vehicleID uuid.UUID) (int64, error)
	ListAvailableVehicles(ctx context.Context, stationID *uuid.UUID) ([]models.Vehicle, error)
}
