package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pizzalemon/pos-backend/pkg/enums"
)

// Sale is the durable record of a committed checkout. Amounts are cents.
type Sale struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ReceiptNumber     string              `gorm:"column:receipt_number;not null;uniqueIndex:ux_sales_receipt_number"`
	BranchID          uuid.UUID           `gorm:"column:branch_id;type:uuid;not null;index"`
	EmployeeID        uuid.UUID           `gorm:"column:employee_id;type:uuid;not null"`
	CustomerID        *uuid.UUID          `gorm:"column:customer_id;type:uuid"`
	SubtotalCents     int64               `gorm:"column:subtotal_cents;not null"`
	TaxCents          int64               `gorm:"column:tax_cents;not null"`
	DiscountCents     int64               `gorm:"column:discount_cents;not null;default:0"`
	TotalCents        int64               `gorm:"column:total_cents;not null"`
	PaymentMethod     enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null"`
	Status            enums.SaleStatus    `gorm:"column:status;type:sale_status;not null"`
	ChangeCents       int64               `gorm:"column:change_cents;not null;default:0"`
	CashReceivedCents *int64              `gorm:"column:cash_received_cents"`
	TableNumber       *string             `gorm:"column:table_number"`
	OrderType         enums.OrderType     `gorm:"column:order_type;type:order_type;not null"`
	Notes             *string             `gorm:"column:notes"`
	VoidReason        *string             `gorm:"column:void_reason"`
	VoidedAt          *time.Time          `gorm:"column:voided_at"`
	Items             []SaleItem          `gorm:"foreignKey:SaleID"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Sale) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
