package rentals

import (
	"time"

	"github.com/google/uuid"

	"github.com/voltride/voltride-backend/pkg/enums"
)

// CreateInput captures a renter's booking request.
type CreateInput struct {
	RenterID        uuid.UUID
	VehicleID       uuid.UUID
	PickupStationID uuid.UUID
	ReturnStationID uuid.UUID
	StartTime       time.Time
	EndTime         time.Time
	ActorUserID     uuid.UUID
	ActorRole       enums.ActorRole
}

// DecisionInput captures a staff approve/reject on a booked order.
type DecisionInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

// CancelInput captures a renter cancelling their own order.
type CancelInput struct {
	OrderID     uuid.UUID
	RenterID    uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

// HandoverInput captures the staff pickup hand-over, including the
// mandatory pre-rental photo.
type HandoverInput struct {
	OrderID        uuid.UUID
	BeforePhotoURL string
	ActorUserID    uuid.UUID
	ActorRole      enums.ActorRole
}

// CompleteInput captures the staff return intake, including the mandatory
// post-rental photo.
type CompleteInput struct {
	OrderID       uuid.UUID
	AfterPhotoURL string
	ActorUserID   uuid.UUID
	ActorRole     enums.ActorRole
}

// ListFilters describe the inputs supported by the order list.
type ListFilters struct {
	RenterID  *uuid.UUID
	VehicleID *uuid.UUID
	Status    *enums.OrderStatus
}
