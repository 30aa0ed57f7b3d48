package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pizzalemon/pos-backend/internal/repo"
	"github.com/pizzalemon/pos-backend/pkg/db"
	"github.com/pizzalemon/pos-backend/pkg/db/models"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
	"github.com/pizzalemon/pos-backend/pkg/money"
)

// Service exposes catalog management operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	GetByBarcode(ctx context.Context, barcode string) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) ([]ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeactivateProduct(ctx context.Context, id uuid.UUID) error
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a product service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:       name,
		PriceCents: money.ToCents(input.Price),
		Barcode:    normalizeOptional(input.Barcode),
		Category:   normalizeOptional(input.Category),
		IsActive:   true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, mapWriteError(err)
	}
	return toDTO(p), nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapReadError(err)
	}
	return toDTO(p), nil
}

func (s *service) GetByBarcode(ctx context.Context, barcode string) (*ProductDTO, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode is required")
	}
	p, err := s.repo.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, mapReadError(err)
	}
	return toDTO(p), nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) ([]ProductDTO, error) {
	rows, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapReadError(err)
	}
	if err := applyUpdate(p, input); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, mapWriteError(err)
	}
	return toDTO(p), nil
}

// DeactivateProduct hides the product from sale. Past sale lines keep their
// name snapshot.
func (s *service) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	inactive := false
	_, err := s.UpdateProduct(ctx, id, UpdateProductInput{IsActive: &inactive})
	return err
}

func (s *service) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	return s.repo.FindMany(ctx, ids)
}

func applyUpdate(p *models.Product, input UpdateProductInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		p.Name = name
	}
	if input.Price != nil {
		if err := validatePrice(*input.Price); err != nil {
			return err
		}
		p.PriceCents = money.ToCents(*input.Price)
	}
	if input.Barcode != nil {
		p.Barcode = normalizeOptional(input.Barcode)
	}
	if input.Category != nil {
		p.Category = normalizeOptional(input.Category)
	}
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be zero or greater")
	}
	if !money.HasValidScale(price) {
		return pkgerrors.New(pkgerrors.CodeValidation, "price supports at most two decimals")
	}
	return nil
}

func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func mapReadError(err error) error {
	if repo.IsNotFound(err) {
		return repo.NotFound(err, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}

func mapWriteError(err error) error {
	if db.IsUniqueViolation(err, "ux_products_barcode") || db.IsUniqueViolation(err, "products.barcode") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "barcode already assigned")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save product")
}
