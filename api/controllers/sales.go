package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pizzalemon/pos-backend/api/middleware"
	"github.com/pizzalemon/pos-backend/api/responses"
	"github.com/pizzalemon/pos-backend/api/validators"
	salesvc "github.com/pizzalemon/pos-backend/internal/sales"
	"github.com/pizzalemon/pos-backend/pkg/enums"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
	"github.com/pizzalemon/pos-backend/pkg/logger"
	"github.com/pizzalemon/pos-backend/pkg/money"
	"github.com/pizzalemon/pos-backend/pkg/outbox"
	"github.com/pizzalemon/pos-backend/pkg/pagination"
)

type commitSaleRequest struct {
	ReceiptNumber  *string             `json:"receipt_number,omitempty"`
	BranchID       *uuid.UUID          `json:"branch_id,omitempty"`
	EmployeeID     *uuid.UUID          `json:"employee_id,omitempty"`
	CustomerID     *uuid.UUID          `json:"customer_id,omitempty"`
	Subtotal       money.Amount        `json:"subtotal"`
	TaxAmount      money.Amount        `json:"tax_amount"`
	DiscountAmount money.Amount        `json:"discount_amount"`
	TotalAmount    money.Amount        `json:"total_amount"`
	PaymentMethod  string              `json:"payment_method" validate:"required"`
	PaymentStatus  *string             `json:"payment_status,omitempty"`
	CashReceived   *money.Amount       `json:"cash_received,omitempty"`
	ChangeAmount   *money.Amount       `json:"change_amount,omitempty"`
	TableNumber    *string             `json:"table_number,omitempty" validate:"omitempty,max=32"`
	OrderType      string              `json:"order_type,omitempty"`
	Notes          *string             `json:"notes,omitempty" validate:"omitempty,max=500"`
	Items          []commitItemRequest `json:"items" validate:"required,min=1,dive"`
}

type commitItemRequest struct {
	ProductID   uuid.UUID    `json:"product_id" validate:"required"`
	ProductName string       `json:"product_name" validate:"required,max=255"`
	Quantity    int          `json:"quantity" validate:"gte=1"`
	UnitPrice   money.Amount `json:"unit_price"`
	Total       money.Amount `json:"total"`
	Discount    money.Amount `json:"discount"`
}

type commitSaleResponse struct {
	salesvc.SaleDTO
	Replayed      bool  `json:"replayed"`
	PointsAwarded int64 `json:"points_awarded"`
}

type voidSaleRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// toCommitInput takes the actor from the token. Body ids may only repeat it.
func (req commitSaleRequest) toCommitInput(r *http.Request) (salesvc.CommitInput, error) {
	branchID, err := writeBranch(r, req.BranchID)
	if err != nil {
		return salesvc.CommitInput{}, err
	}
	employeeID, err := writeEmployee(r, req.EmployeeID)
	if err != nil {
		return salesvc.CommitInput{}, err
	}

	input := salesvc.CommitInput{
		BranchID:       branchID,
		EmployeeID:     employeeID,
		ReceiptNumber:  req.ReceiptNumber,
		CustomerID:     req.CustomerID,
		Subtotal:       req.Subtotal.Decimal,
		TaxAmount:      req.TaxAmount.Decimal,
		DiscountAmount: req.DiscountAmount.Decimal,
		TotalAmount:    req.TotalAmount.Decimal,
		PaymentMethod:  enums.PaymentMethod(req.PaymentMethod),
		TableNumber:    req.TableNumber,
		OrderType:      enums.OrderType(strings.TrimSpace(req.OrderType)),
		Notes:          req.Notes,
		Items:          make([]salesvc.CommitItem, 0, len(req.Items)),
	}

	if req.PaymentStatus != nil {
		status := enums.PaymentStatus(*req.PaymentStatus)
		input.PaymentStatus = &status
	}
	if req.CashReceived != nil {
		cash := req.CashReceived.Decimal
		input.CashReceived = &cash
	}
	if req.ChangeAmount != nil {
		change := req.ChangeAmount.Decimal
		input.ChangeAmount = &change
	}

	for _, item := range req.Items {
		input.Items = append(input.Items, salesvc.CommitItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.Decimal,
			Total:       item.Total.Decimal,
			Discount:    item.Discount.Decimal,
		})
	}
	return input, nil
}

// CommitSale records a finalized cart. Replays of a known receipt return 200.
func CommitSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		var payload commitSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCommitInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Commit(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto := salesvc.ToDTO(result.Sale)
		dto.Items = nil
		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, commitSaleResponse{
			SaleDTO:       dto,
			Replayed:      result.Replayed,
			PointsAwarded: result.PointsAwarded,
		})
	}
}

func ListSales(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		branchID, err := validators.ParseQueryUUID(r, "branch_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), salesvc.ListFilters{BranchID: branchID, From: from, To: to}, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, list.Sales, list.NextCursor)
	}
}

func GetSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saleID, err := validators.ParseUUIDParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sale, err := svc.Get(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sale)
	}
}

func GetSaleByReceipt(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		receipt := strings.TrimSpace(chi.URLParam(r, "receiptNumber"))
		if receipt == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "receipt number required"))
			return
		}
		sale, err := svc.GetByReceipt(r.Context(), receipt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sale)
	}
}

// VoidSale reverses a completed sale on behalf of the authenticated manager.
func VoidSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saleID, err := validators.ParseUUIDParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload voidSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.Void(r.Context(), salesvc.VoidInput{
			SaleID: saleID,
			Reason: payload.Reason,
			Actor:  actorFromRequest(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sale)
	}
}

func SaleReceiptQR(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saleID, err := validators.ParseUUIDParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		png, err := svc.ReceiptQR(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteBinary(w, "image/png", png)
	}
}

func actorFromRequest(r *http.Request) *outbox.ActorRef {
	employeeID, ok := middleware.EmployeeUUID(r.Context())
	if !ok {
		return nil
	}
	actor := &outbox.ActorRef{
		EmployeeID: employeeID,
		Role:       middleware.RoleFromContext(r.Context()),
	}
	if branchID, ok := middleware.BranchUUID(r.Context()); ok {
		actor.BranchID = &branchID
	}
	return actor
}
