package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pizzalemon/pos-backend/pkg/db/models"
	"github.com/pizzalemon/pos-backend/pkg/enums"
	"github.com/pizzalemon/pos-backend/pkg/pagination"
)

// Repository defines persistence operations for sales and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSale(ctx context.Context, sale *models.Sale) error
	CreateSaleItem(ctx context.Context, item *models.SaleItem) error
	FindByID(ctx context.Context, id uuid.UUID, withItems bool) (*models.Sale, error)
	FindByReceipt(ctx context.Context, receiptNumber string, withItems bool) (*models.Sale, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Sale, string, error)
	MarkVoid(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sales repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateSale inserts the header only; lines are written one by one so each
// can be paired with its inventory movement.
func (r *repository) CreateSale(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Omit("Items").Create(sale).Error
}

func (r *repository) CreateSaleItem(ctx context.Context, item *models.SaleItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID, withItems bool) (*models.Sale, error) {
	var sale models.Sale
	if err := r.query(ctx, withItems).Where("id = ?", id).First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) FindByReceipt(ctx context.Context, receiptNumber string, withItems bool) (*models.Sale, error) {
	var sale models.Sale
	if err := r.query(ctx, withItems).Where("receipt_number = ?", receiptNumber).First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// List pages sales newest first using a (created_at, id) cursor.
func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Sale, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).Model(&models.Sale{})
	if filters.BranchID != nil {
		query = query.Where("branch_id = ?", *filters.BranchID)
	}
	if filters.From != nil {
		query = query.Where("created_at >= ?", filters.From.UTC())
	}
	if filters.To != nil {
		query = query.Where("created_at < ?", filters.To.UTC())
	}

	var rows []models.Sale
	if err := pagination.Keyset(query, cursor, params.Limit).Find(&rows).Error; err != nil {
		return nil, "", err
	}

	page, next := pagination.Trim(rows, params.Limit, func(sale models.Sale) pagination.Cursor {
		return pagination.Cursor{CreatedAt: sale.CreatedAt, ID: sale.ID}
	})
	return page, next, nil
}

// MarkVoid flips a completed sale to void. It reports false when the sale is
// missing or not completed.
func (r *repository) MarkVoid(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ? AND status = ?", id, enums.SaleStatusCompleted).
		Updates(map[string]any{
			"status":         enums.SaleStatusVoid,
			"payment_status": enums.PaymentStatusRefunded,
			"void_reason":    reason,
			"voided_at":      at,
			"updated_at":     at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) query(ctx context.Context, withItems bool) *gorm.DB {
	q := r.db.WithContext(ctx)
	if withItems {
		q = q.Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_number ASC")
		})
	}
	return q
}
