package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pizzalemon/pos-backend/api/responses"
	"github.com/pizzalemon/pos-backend/api/validators"
	inventorysvc "github.com/pizzalemon/pos-backend/internal/inventory"
	"github.com/pizzalemon/pos-backend/pkg/logger"
)

type upsertInventoryRequest struct {
	ProductID         uuid.UUID  `json:"product_id" validate:"required"`
	BranchID          *uuid.UUID `json:"branch_id,omitempty"`
	Quantity          int        `json:"quantity" validate:"gte=0"`
	LowStockThreshold *int       `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
}

type adjustInventoryRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	BranchID  *uuid.UUID `json:"branch_id,omitempty"`
	Delta     int        `json:"delta" validate:"required"`
	Reason    string     `json:"reason" validate:"required,oneof=receive count_correction damage return"`
}

func ListInventory(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branchID, err := branchScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		records, err := svc.List(r.Context(), branchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}

func ListLowStock(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branchID, err := branchScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		records, err := svc.ListLowStock(r.Context(), branchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}

// UpsertInventory sets an absolute on-hand count, typically after a stock take.
func UpsertInventory(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload upsertInventoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		branchID, err := writeBranch(r, payload.BranchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Upsert(r.Context(), inventorysvc.UpsertInput{
			ProductID:         payload.ProductID,
			BranchID:          branchID,
			Quantity:          payload.Quantity,
			LowStockThreshold: payload.LowStockThreshold,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func AdjustInventory(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload adjustInventoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		branchID, err := writeBranch(r, payload.BranchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Adjust(r.Context(), inventorysvc.AdjustInput{
			ProductID: payload.ProductID,
			BranchID:  branchID,
			Delta:     payload.Delta,
			Reason:    payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}
