package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltride/voltride-backend/pkg/enums"
)

// Payment is one money movement against an order. ExternalRef correlates the
// row with the gateway's transaction record and is the settlement dedupe key.
// Amount may be negative on a final row when the deposit exceeds the total.
type Payment struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Kind        enums.PaymentKind   `gorm:"column:kind;type:text;not null"`
	Status      enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'unpaid'"`
	Amount      int64               `gorm:"column:amount;not null"`
	ExternalRef string              `gorm:"column:external_ref;not null;uniqueIndex"`
	SettledAt   *time.Time          `gorm:"column:settled_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
