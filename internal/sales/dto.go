package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pizzalemon/pos-backend/pkg/db/models"
	"github.com/pizzalemon/pos-backend/pkg/enums"
	"github.com/pizzalemon/pos-backend/pkg/money"
)

// CommitItem is one finalized cart line.
type CommitItem struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
	Discount    decimal.Decimal
}

// CommitInput is the finalized cart handed to Commit. ReceiptNumber doubles as
// the idempotency key when the client supplies one.
type CommitInput struct {
	ReceiptNumber  *string
	BranchID       uuid.UUID
	EmployeeID     uuid.UUID
	CustomerID     *uuid.UUID
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	PaymentMethod  enums.PaymentMethod
	PaymentStatus  *enums.PaymentStatus
	CashReceived   *decimal.Decimal
	ChangeAmount   *decimal.Decimal
	TableNumber    *string
	OrderType      enums.OrderType
	Notes          *string
	Items          []CommitItem
}

// CommitResult reports the stored sale and whether it already existed.
type CommitResult struct {
	Sale          *models.Sale
	Replayed      bool
	PointsAwarded int64

	lowStockAlerts int
}

// ListFilters narrows the sales list.
type ListFilters struct {
	BranchID *uuid.UUID
	From     *time.Time
	To       *time.Time
}

// SaleItemDTO is the wire shape of a sale line.
type SaleItemDTO struct {
	ID          uuid.UUID    `json:"id"`
	ProductID   uuid.UUID    `json:"product_id"`
	ProductName string       `json:"product_name"`
	LineNumber  int          `json:"line_number"`
	Quantity    int          `json:"quantity"`
	UnitPrice   money.Amount `json:"unit_price"`
	Discount    money.Amount `json:"discount"`
	Total       money.Amount `json:"total"`
}

// SaleDTO is the wire shape of a sale. Items is omitted on commit responses.
type SaleDTO struct {
	ID             uuid.UUID           `json:"id"`
	ReceiptNumber  string              `json:"receipt_number"`
	BranchID       uuid.UUID           `json:"branch_id"`
	EmployeeID     uuid.UUID           `json:"employee_id"`
	CustomerID     *uuid.UUID          `json:"customer_id,omitempty"`
	Subtotal       money.Amount        `json:"subtotal"`
	TaxAmount      money.Amount        `json:"tax_amount"`
	DiscountAmount money.Amount        `json:"discount_amount"`
	TotalAmount    money.Amount        `json:"total_amount"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	PaymentStatus  enums.PaymentStatus `json:"payment_status"`
	Status         enums.SaleStatus    `json:"status"`
	ChangeAmount   money.Amount        `json:"change_amount"`
	CashReceived   *money.Amount       `json:"cash_received,omitempty"`
	TableNumber    *string             `json:"table_number,omitempty"`
	OrderType      enums.OrderType     `json:"order_type"`
	Notes          *string             `json:"notes,omitempty"`
	VoidReason     *string             `json:"void_reason,omitempty"`
	VoidedAt       *time.Time          `json:"voided_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	Items          []SaleItemDTO       `json:"items,omitempty"`
}

// SaleList wraps a page of sales plus the next cursor.
type SaleList struct {
	Sales      []SaleDTO `json:"sales"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// ToDTO renders a stored sale. Items are included when preloaded.
func ToDTO(sale *models.Sale) SaleDTO {
	dto := SaleDTO{
		ID:             sale.ID,
		ReceiptNumber:  sale.ReceiptNumber,
		BranchID:       sale.BranchID,
		EmployeeID:     sale.EmployeeID,
		CustomerID:     sale.CustomerID,
		Subtotal:       money.AmountFromCents(sale.SubtotalCents),
		TaxAmount:      money.AmountFromCents(sale.TaxCents),
		DiscountAmount: money.AmountFromCents(sale.DiscountCents),
		TotalAmount:    money.AmountFromCents(sale.TotalCents),
		PaymentMethod:  sale.PaymentMethod,
		PaymentStatus:  sale.PaymentStatus,
		Status:         sale.Status,
		ChangeAmount:   money.AmountFromCents(sale.ChangeCents),
		TableNumber:    sale.TableNumber,
		OrderType:      sale.OrderType,
		Notes:          sale.Notes,
		VoidReason:     sale.VoidReason,
		VoidedAt:       sale.VoidedAt,
		CreatedAt:      sale.CreatedAt,
	}
	if sale.CashReceivedCents != nil {
		dto.CashReceived = money.AmountFromCents(*sale.CashReceivedCents).Ptr()
	}
	for _, item := range sale.Items {
		dto.Items = append(dto.Items, SaleItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			LineNumber:  item.LineNumber,
			Quantity:    item.Quantity,
			UnitPrice:   money.AmountFromCents(item.UnitPriceCents),
			Discount:    money.AmountFromCents(item.DiscountCents),
			Total:       money.AmountFromCents(item.TotalCents),
		})
	}
	return dto
}
