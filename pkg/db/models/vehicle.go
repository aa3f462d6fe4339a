package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/voltride/voltride-backend/pkg/enums"
)

// Vehicle is a rentable unit stationed at a pickup point. IsAvailable is
// derived from condition plus active orders and is only ever written by the
// availability recomputation.
type Vehicle struct {
	ID                 uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LicensePlate       string                 `gorm:"column:license_plate;not null;unique"`
	ModelID            uuid.UUID              `gorm:"column:model_id;type:uuid;not null;index"`
	StationID          uuid.UUID              `gorm:"column:station_id;type:uuid;not null;index"`
	Condition          enums.VehicleCondition `gorm:"column:condition;type:text;not null;default:'good'"`
	IsAvailable        bool                   `gorm:"column:is_available;not null;default:true"`
	BatteryCapacityKWh float64                `gorm:"column:battery_capacity_kwh;not null;default:0"`
	MileageKm          int                    `gorm:"column:mileage_km;not null;default:0"`
	Model              *VehicleModel          `gorm:"foreignKey:ModelID"`
	CreatedAt          time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// VehicleModel carries the pricing catalog entry a vehicle points at.
type VehicleModel struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	RatePerHour int64     `gorm:"column:rate_per_hour;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Station is a pickup/return location.
type Station struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Address   string    `gorm:"column:address;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
