package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pizzalemon/pos-backend/api/responses"
	"github.com/pizzalemon/pos-backend/api/validators"
	productsvc "github.com/pizzalemon/pos-backend/internal/products"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
	"github.com/pizzalemon/pos-backend/pkg/logger"
	"github.com/pizzalemon/pos-backend/pkg/money"
)

type createProductRequest struct {
	Name     string       `json:"name" validate:"required,max=255"`
	Price    money.Amount `json:"price"`
	Barcode  *string      `json:"barcode,omitempty" validate:"omitempty,max=64"`
	Category *string      `json:"category,omitempty" validate:"omitempty,max=100"`
}

type updateProductRequest struct {
	Name     *string       `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Price    *money.Amount `json:"price,omitempty"`
	Barcode  *string       `json:"barcode,omitempty" validate:"omitempty,max=64"`
	Category *string       `json:"category,omitempty" validate:"omitempty,max=100"`
	IsActive *bool         `json:"is_active,omitempty"`
}

func (r updateProductRequest) toUpdateInput() productsvc.UpdateProductInput {
	input := productsvc.UpdateProductInput{
		Name:     r.Name,
		Barcode:  r.Barcode,
		Category: r.Category,
		IsActive: r.IsActive,
	}
	if r.Price != nil {
		price := r.Price.Decimal
		input.Price = &price
	}
	return input
}

func CreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), productsvc.CreateProductInput{
			Name:     payload.Name,
			Price:    payload.Price.Decimal,
			Barcode:  payload.Barcode,
			Category: payload.Category,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// ListProducts supports ?q, repeated ?category and ?include_inactive.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeInactive, err := validators.ParseQueryBool(r, "include_inactive", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		categories := []string{}
		for _, c := range r.URL.Query()["category"] {
			if c = strings.TrimSpace(c); c != "" {
				categories = append(categories, c)
			}
		}

		products, err := svc.ListProducts(r.Context(), productsvc.ListProductsInput{
			Search:          validators.SanitizeString(r.URL.Query().Get("q"), 100),
			Categories:      categories,
			IncludeInactive: includeInactive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func GetProductByBarcode(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		barcode := strings.TrimSpace(chi.URLParam(r, "barcode"))
		if barcode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "barcode required"))
			return
		}
		product, err := svc.GetByBarcode(r.Context(), barcode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func UpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.UpdateProduct(r.Context(), id, payload.toUpdateInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func DeactivateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeactivateProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
