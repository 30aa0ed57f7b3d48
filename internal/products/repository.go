package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pizzalemon/pos-backend/pkg/db/models"
)

// Repository wires together catalog persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// FindByID loads a product regardless of its active flag.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) FindByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).
		Where("barcode = ? AND is_active = ?", barcode, true).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindMany loads the products with the given ids, keyed by id.
func (r *Repository) FindMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// List returns products ordered by name. Search matches name or barcode,
// case-insensitively.
func (r *Repository) List(ctx context.Context, input ListProductsInput) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if !input.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if term := strings.ToLower(strings.TrimSpace(input.Search)); term != "" {
		pattern := "%" + term + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(COALESCE(barcode, '')) LIKE ?)", pattern, pattern)
	}
	if len(input.Categories) > 0 {
		query = query.Where("category IN ?", input.Categories)
	}

	var rows []models.Product
	if err := query.Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) Save(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// CountActive counts products still on sale.
func (r *Repository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}
