package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/pkg/enums"
)

// Renter is the booking-eligible profile behind a platform user. IsVerified
// is derived from identity document review: any re-submission flips it back
// to false until staff approve again.
type Renter struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID          `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	IsVerified     bool               `gorm:"column:is_verified;not null;default:false"`
	CurrentAddress string             `gorm:"column:current_address"`
	Documents      []IdentityDocument `gorm:"foreignKey:RenterID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// IdentityDocument is one submitted identity artifact (license, national id).
// Rows are append-only; the newest row per kind is the one under review.
type IdentityDocument struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RenterID   uuid.UUID            `gorm:"column:renter_id;type:uuid;not null;index"`
	Kind       string               `gorm:"column:kind;not null"`
	URL        string               `gorm:"column:url;not null"`
	Status     enums.DocumentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ReviewedBy *uuid.UUID           `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt *time.Time           `gorm:"column:reviewed_at"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (d *IdentityDocument) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
