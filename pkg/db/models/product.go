package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a sellable catalog entry.
type Product struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name       string    `gorm:"column:name;not null"`
	PriceCents int64     `gorm:"column:price_cents;not null"`
	Barcode    *string   `gorm:"column:barcode;uniqueIndex:ux_products_barcode"`
	Category   *string   `gorm:"column:category;index"`
	IsActive   bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
