package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/pkg/enums"
)

// RentalOrder is the aggregate root of the rental lifecycle. Status moves
// only through guarded transitions; Version backs optimistic locking so a
// concurrent staff action and a renter cancel cannot both win.
type RentalOrder struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RenterID        uuid.UUID         `gorm:"column:renter_id;type:uuid;not null;index"`
	VehicleID       uuid.UUID         `gorm:"column:vehicle_id;type:uuid;not null;index"`
	PickupStationID uuid.UUID         `gorm:"column:pickup_station_id;type:uuid;not null"`
	ReturnStationID uuid.UUID         `gorm:"column:return_station_id;type:uuid;not null"`
	StartTime       time.Time         `gorm:"column:start_time;not null"`
	EndTime         time.Time         `gorm:"column:end_time;not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'booked'"`
	Version         int               `gorm:"column:version;not null;default:1"`
	BeforePhotoURL  *string           `gorm:"column:before_photo_url"`
	AfterPhotoURL   *string           `gorm:"column:after_photo_url"`
	Payments        []Payment         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ExtraFees       []ExtraFee        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Contract        *Contract         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the id app-side so inserts behave the same on every
// driver.
func (o *RentalOrder) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// DurationHours returns the rental window length in whole-or-fractional hours.
func (o RentalOrder) DurationHours() float64 {
	return o.EndTime.Sub(o.StartTime).Hours()
}
