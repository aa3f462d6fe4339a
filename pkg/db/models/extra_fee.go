package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExtraFee is one post-pickup charge on an order. Rows are append-only and
// deletable only until the order's final settlement is computed.
type ExtraFee struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	FeeTypeID   uuid.UUID `gorm:"column:fee_type_id;type:uuid;not null"`
	Amount      int64     `gorm:"column:amount;not null"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (f *ExtraFee) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// FeeType is a catalog entry supplying the default amount for a fee.
type FeeType struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string    `gorm:"column:name;not null;unique"`
	DefaultAmount int64     `gorm:"column:default_amount;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
