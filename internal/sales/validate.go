package sales

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pizzalemon/pos-backend/pkg/enums"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
	"github.com/pizzalemon/pos-backend/pkg/money"
)

var pointsDivisor = decimal.NewFromInt(10)

// LoyaltyPointsFor awards one point per full 10 units of the sale total.
func LoyaltyPointsFor(total decimal.Decimal) int64 {
	if total.IsNegative() {
		return 0
	}
	return total.Div(pointsDivisor).Floor().IntPart()
}

// commitPlan is a validated CommitInput with the derived change amount.
type commitPlan struct {
	CommitInput
	receiptProvided bool
	paymentStatus   enums.PaymentStatus
	change          decimal.Decimal
}

// fieldErrors collects per-field validation problems for the error details.
type fieldErrors map[string]string

func (f fieldErrors) add(field, format string, args ...any) {
	if _, exists := f[field]; !exists {
		f[field] = fmt.Sprintf(format, args...)
	}
}

func (f fieldErrors) err(message string) error {
	if len(f) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]string(f))
}

// planCommit validates the payload and reconciles its totals. Nothing is
// written when it returns an error.
func planCommit(input CommitInput) (*commitPlan, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale must contain at least one item").
			WithDetails(map[string]string{"items": "required"})
	}

	problems := fieldErrors{}
	plan := &commitPlan{CommitInput: input}

	if input.ReceiptNumber != nil {
		receipt := strings.TrimSpace(*input.ReceiptNumber)
		switch {
		case receipt == "":
			plan.ReceiptNumber = nil
		case len(receipt) > maxReceiptNumberLen:
			problems.add("receipt_number", "must be at most %d characters", maxReceiptNumberLen)
		default:
			plan.ReceiptNumber = &receipt
			plan.receiptProvided = true
		}
	}
	if input.BranchID == uuid.Nil {
		problems.add("branch_id", "required")
	}
	if input.EmployeeID == uuid.Nil {
		problems.add("employee_id", "required")
	}
	if input.CustomerID != nil && *input.CustomerID == uuid.Nil {
		plan.CustomerID = nil
	}
	if !input.PaymentMethod.IsValid() {
		problems.add("payment_method", "must be one of cash, card, mobile")
	}
	plan.paymentStatus = enums.PaymentStatusCompleted
	if input.PaymentStatus != nil {
		if !input.PaymentStatus.IsValid() {
			problems.add("payment_status", "invalid value")
		} else {
			plan.paymentStatus = *input.PaymentStatus
		}
	}
	if input.OrderType == "" {
		plan.OrderType = enums.OrderTypeDineIn
	} else if !input.OrderType.IsValid() {
		problems.add("order_type", "must be one of dine_in, takeout, delivery")
	}
	plan.TableNumber = trimOptional(input.TableNumber)
	plan.Notes = trimOptional(input.Notes)

	checkAmount(problems, "subtotal", input.Subtotal)
	checkAmount(problems, "tax_amount", input.TaxAmount)
	checkAmount(problems, "discount_amount", input.DiscountAmount)
	checkAmount(problems, "total_amount", input.TotalAmount)
	if input.CashReceived != nil {
		checkAmount(problems, "cash_received", *input.CashReceived)
	}
	if input.ChangeAmount != nil {
		checkAmount(problems, "change_amount", *input.ChangeAmount)
	}

	itemsSum := decimal.Zero
	for i, item := range input.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		if item.ProductID == uuid.Nil {
			problems.add(prefix+".product_id", "required")
		}
		if strings.TrimSpace(item.ProductName) == "" {
			problems.add(prefix+".product_name", "required")
		}
		if item.Quantity < 1 {
			problems.add(prefix+".quantity", "must be at least 1")
		}
		checkAmount(problems, prefix+".unit_price", item.UnitPrice)
		checkAmount(problems, prefix+".total", item.Total)
		checkAmount(problems, prefix+".discount", item.Discount)

		expected := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Sub(item.Discount)
		if item.Quantity >= 1 && !money.Equal(expected, item.Total) {
			problems.add(prefix+".total", "expected %s, got %s", money.Format(expected), money.Format(item.Total))
		}
		itemsSum = itemsSum.Add(item.Total)
	}
	if err := problems.err("invalid sale payload"); err != nil {
		return nil, err
	}

	if !money.Equal(itemsSum, input.Subtotal) {
		problems.add("subtotal", "expected %s, got %s", money.Format(itemsSum), money.Format(input.Subtotal))
	}
	expectedTotal := input.Subtotal.Sub(input.DiscountAmount).Add(input.TaxAmount)
	if !money.Equal(expectedTotal, input.TotalAmount) {
		problems.add("total_amount", "expected %s, got %s", money.Format(expectedTotal), money.Format(input.TotalAmount))
	}
	if err := problems.err("sale totals do not reconcile"); err != nil {
		return nil, err
	}

	plan.change = decimal.Zero
	switch {
	case input.PaymentMethod != enums.PaymentMethodCash:
		plan.CashReceived = nil
	case input.CashReceived != nil:
		plan.change = input.CashReceived.Sub(input.TotalAmount)
		if plan.change.IsNegative() {
			problems.add("cash_received", "must cover total %s", money.Format(input.TotalAmount))
		} else if input.ChangeAmount != nil && !money.Equal(*input.ChangeAmount, plan.change) {
			problems.add("change_amount", "expected %s, got %s", money.Format(plan.change), money.Format(*input.ChangeAmount))
		}
	case input.ChangeAmount != nil:
		plan.change = *input.ChangeAmount
	}
	if err := problems.err("invalid cash payment"); err != nil {
		return nil, err
	}
	return plan, nil
}

func checkAmount(problems fieldErrors, field string, d decimal.Decimal) {
	if d.IsNegative() {
		problems.add(field, "must be zero or greater")
		return
	}
	if !money.HasValidScale(d) {
		problems.add(field, "supports at most two decimals")
	}
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
