// Package cart holds the in-memory cart aggregate used by a register session.
// Totals are recomputed from the lines on every read.
package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pizzalemon/pos-backend/internal/sales"
	"github.com/pizzalemon/pos-backend/pkg/enums"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
	"github.com/pizzalemon/pos-backend/pkg/money"
)

// DefaultTaxRate is the percent applied to new carts.
var DefaultTaxRate = decimal.NewFromInt(10)

var hundred = decimal.NewFromInt(100)

// Product is the catalog data needed to put something in the cart.
type Product struct {
	ID    uuid.UUID
	Name  string
	Price decimal.Decimal
}

// Item is one cart line.
type Item struct {
	ProductID uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal is unit price times quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is not safe for concurrent use; one register session owns it.
type Cart struct {
	items       []Item
	discount    decimal.Decimal
	taxRate     decimal.Decimal
	customerID  *uuid.UUID
	tableNumber *string
	orderType   enums.OrderType
}

// New returns an empty dine-in cart at the default tax rate.
func New() *Cart {
	return &Cart{
		taxRate:   DefaultTaxRate,
		orderType: enums.OrderTypeDineIn,
	}
}

// AddItem increments the line for p or appends a new line with quantity 1.
func (c *Cart) AddItem(p Product) {
	for i := range c.items {
		if c.items[i].ProductID == p.ID {
			c.items[i].Quantity++
			return
		}
	}
	c.items = append(c.items, Item{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  1,
	})
}

// UpdateQuantity sets the line quantity. Zero or less removes the line and an
// unknown product is ignored.
func (c *Cart) UpdateQuantity(productID uuid.UUID, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return
	}
	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items[i].Quantity = quantity
			return
		}
	}
}

func (c *Cart) RemoveItem(productID uuid.UUID) {
	kept := c.items[:0]
	for _, item := range c.items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	c.items = kept
}

// Clear drops lines, discount, customer and table. Tax rate and order type
// stay as configured.
func (c *Cart) Clear() {
	c.items = nil
	c.discount = decimal.Zero
	c.customerID = nil
	c.tableNumber = nil
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// Tax is (subtotal - discount) * rate / 100, rounded half up to cents.
func (c *Cart) Tax() decimal.Decimal {
	return money.Round(c.Subtotal().Sub(c.discount).Mul(c.taxRate).Div(hundred))
}

func (c *Cart) Total() decimal.Decimal {
	return c.Subtotal().Sub(c.discount).Add(c.Tax())
}

// ItemCount sums quantities across lines.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}

func (c *Cart) Discount() decimal.Decimal { return c.discount }
func (c *Cart) TaxRate() decimal.Decimal { return c.taxRate }
func (c *Cart) CustomerID() *uuid.UUID { return c.customerID }
func (c *Cart) TableNumber() *string { return c.tableNumber }
func (c *Cart) OrderType() enums.OrderType { return c.orderType }
func (c *Cart) SetCustomer(id *uuid.UUID) { c.customerID = id }
func (c *Cart) SetTable(tableNumber *string) { c.tableNumber = tableNumber }

func (c *Cart) SetDiscount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount must be zero or greater")
	}
	c.discount = amount
	return nil
}

func (c *Cart) SetTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "tax rate must be zero or greater")
	}
	c.taxRate = rate
	return nil
}

func (c *Cart) SetOrderType(orderType enums.OrderType) error {
	if !orderType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order type")
	}
	c.orderType = orderType
	return nil
}

// ToCommitInput snapshots the cart as the payload for sales.Commit. The cart
// itself is left untouched; callers clear it after a successful commit.
func (c *Cart) ToCommitInput(branchID, employeeID uuid.UUID, method enums.PaymentMethod, cashReceived *decimal.Decimal) sales.CommitInput {
	items := make([]sales.CommitItem, 0, len(c.items))
	for _, item := range c.items {
		items = append(items, sales.CommitItem{
			ProductID:   item.ProductID,
			ProductName: item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.LineTotal(),
			Discount:    decimal.Zero,
		})
	}
	return sales.CommitInput{
		BranchID:       branchID,
		EmployeeID:     employeeID,
		CustomerID:     c.customerID,
		Subtotal:       c.Subtotal(),
		TaxAmount:      c.Tax(),
		DiscountAmount: c.discount,
		TotalAmount:    c.Total(),
		PaymentMethod:  method,
		CashReceived:   cashReceived,
		TableNumber:    c.tableNumber,
		OrderType:      c.orderType,
		Items:          items,
	}
}
