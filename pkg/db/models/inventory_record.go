package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultLowStockThreshold applies when a record is created by a stock delta.
const DefaultLowStockThreshold = 10

// InventoryRecord tracks stock of one product at one branch. Quantity may go
// negative when backorder is allowed.
type InventoryRecord struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_inventory_product_branch,priority:1"`
	BranchID          uuid.UUID `gorm:"column:branch_id;type:uuid;not null;uniqueIndex:ux_inventory_product_branch,priority:2"`
	Quantity          int       `gorm:"column:quantity;not null"`
	LowStockThreshold int       `gorm:"column:low_stock_threshold;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *InventoryRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// IsLowStock reports whether the record is at or under its threshold.
func (r InventoryRecord) IsLowStock() bool {
	return r.Quantity <= r.LowStockThreshold
}
