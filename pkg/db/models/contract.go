package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Contract binds a handed-over order to its paperwork, exactly one per order.
type Contract struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	StaffID     uuid.UUID `gorm:"column:staff_id;type:uuid;not null"`
	SignedDate  time.Time `gorm:"column:signed_date;not null"`
	DocumentURL *string   `gorm:"column:document_url"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Contract) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
