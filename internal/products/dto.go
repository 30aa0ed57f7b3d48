package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pizzalemon/pos-backend/pkg/db/models"
	"github.com/pizzalemon/pos-backend/pkg/money"
)

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name     string
	Price    decimal.Decimal
	Barcode  *string
	Category *string
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name     *string
	Price    *decimal.Decimal
	Barcode  *string
	Category *string
	IsActive *bool
}

// ListProductsInput narrows the catalog listing.
type ListProductsInput struct {
	Search          string
	Categories      []string
	IncludeInactive bool
}

// ProductDTO is the wire shape of a catalog entry.
type ProductDTO struct {
	ID        uuid.UUID    `json:"id"`
	Name      string       `json:"name"`
	Price     money.Amount `json:"price"`
	Barcode   *string      `json:"barcode,omitempty"`
	Category  *string      `json:"category,omitempty"`
	IsActive  bool         `json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func toDTO(p *models.Product) *ProductDTO {
	return &ProductDTO{
		ID:        p.ID,
		Name:      p.Name,
		Price:     money.AmountFromCents(p.PriceCents),
		Barcode:   p.Barcode,
		Category:  p.Category,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
