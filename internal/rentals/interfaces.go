package rentals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/pkg/db/models"
	"github.com/voltride/voltride-backend/pkg/enums"
)

// Repository defines persistence operations for rental orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.RentalOrder) (*models.RentalOrder, error)
	Find(ctx context.Context, orderID uuid.UUID) (*models.RentalOrder, error)
	FindDetail(ctx context.Context, orderID uuid.UUID) (*models.RentalOrder, error)
	List(ctx context.Context, filters ListFilters) ([]models.RentalOrder, error)
	FindStaleBooked(ctx context.Context, cutoff time.Time) ([]models.RentalOrder, error)
	// UpdateGuarded applies updates only if the row still carries the
	// expected status and version. It reports whether a row was written.
	UpdateGuarded(ctx context.Context, orderID uuid.UUID, expectedStatus enums.OrderStatus, expectedVersion int, updates map[string]any) (bool, error)
}
