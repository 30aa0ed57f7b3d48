package controllers

import (
	"net/http"
	"strings"

	"github.com/pizzalemon/pos-backend/api/responses"
	"github.com/pizzalemon/pos-backend/api/validators"
	customersvc "github.com/pizzalemon/pos-backend/internal/customers"
	"github.com/pizzalemon/pos-backend/pkg/logger"
	"github.com/pizzalemon/pos-backend/pkg/pagination"
)

type createCustomerRequest struct {
	Name  string  `json:"name" validate:"required,max=255"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

type updateCustomerRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

type loyaltyRequest struct {
	Points int64 `json:"points" validate:"required"`
}

func CreateCustomer(svc customersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createCustomerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.Create(r.Context(), customersvc.CreateInput{
			Name:  payload.Name,
			Phone: payload.Phone,
			Email: payload.Email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, customer)
	}
}

func ListCustomers(svc customersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		search := validators.SanitizeString(r.URL.Query().Get("q"), 100)
		list, err := svc.List(r.Context(), search, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, list.Customers, list.NextCursor)
	}
}

func GetCustomer(svc customersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

func UpdateCustomer(svc customersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateCustomerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.Update(r.Context(), id, customersvc.UpdateInput{
			Name:  payload.Name,
			Phone: payload.Phone,
			Email: payload.Email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

func DeactivateCustomer(svc customersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AdjustLoyalty applies a manual points correction. Negative values redeem.
func AdjustLoyalty(svc customersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload loyaltyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.AdjustPoints(r.Context(), id, payload.Points)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}
