package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer carries the loyalty balance and lifetime spend.
type Customer struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	Phone           *string   `gorm:"column:phone"`
	Email           *string   `gorm:"column:email"`
	LoyaltyPoints   int64     `gorm:"column:loyalty_points;not null;default:0"`
	TotalSpentCents int64     `gorm:"column:total_spent_cents;not null;default:0"`
	IsActive        bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
