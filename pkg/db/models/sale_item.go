package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleItem snapshots one cart line at commit time. Rows are never updated.
type SaleItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SaleID         uuid.UUID `gorm:"column:sale_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	ProductName    string    `gorm:"column:product_name;not null"`
	LineNumber     int       `gorm:"column:line_number;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	DiscountCents  int64     `gorm:"column:discount_cents;not null;default:0"`
	TotalCents     int64     `gorm:"column:total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *SaleItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
