package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/pizzalemon/pos-backend/pkg/enums"
)

// SaleLine is the per-item snapshot carried by sale events. Amounts are
// two-digit decimal strings.
type SaleLine struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	Total       string    `json:"total"`
}

// SaleCompletedEvent is emitted once per committed sale.
type SaleCompletedEvent struct {
	SaleID        uuid.UUID           `json:"sale_id"`
	ReceiptNumber string              `json:"receipt_number"`
	BranchID      uuid.UUID           `json:"branch_id"`
	EmployeeID    uuid.UUID           `json:"employee_id"`
	CustomerID    *uuid.UUID          `json:"customer_id,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	OrderType     enums.OrderType     `json:"order_type"`
	Subtotal      string              `json:"subtotal"`
	Tax           string              `json:"tax"`
	Discount      string              `json:"discount"`
	Total         string              `json:"total"`
	PointsAwarded int64               `json:"points_awarded"`
	Items         []SaleLine          `json:"items"`
	CompletedAt   time.Time           `json:"completed_at"`
}

// SaleVoidedEvent is emitted when a completed sale is voided.
type SaleVoidedEvent struct {
	SaleID         uuid.UUID  `json:"sale_id"`
	ReceiptNumber  string     `json:"receipt_number"`
	BranchID       uuid.UUID  `json:"branch_id"`
	CustomerID     *uuid.UUID `json:"customer_id,omitempty"`
	Total          string     `json:"total"`
	PointsReversed int64      `json:"points_reversed"`
	Reason         string     `json:"reason"`
	VoidedAt       time.Time  `json:"voided_at"`
}

// InventoryLowStockEvent fires when a record drops to or under its threshold.
type InventoryLowStockEvent struct {
	InventoryRecordID uuid.UUID `json:"inventory_record_id"`
	ProductID         uuid.UUID `json:"product_id"`
	BranchID          uuid.UUID `json:"branch_id"`
	Quantity          int       `json:"quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	SaleID            uuid.UUID `json:"sale_id"`
}
