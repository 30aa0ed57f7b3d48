package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pizzalemon/pos-backend/pkg/db/models"
)

// ErrInsufficientStock is returned by a conditional decrement that would take
// the record below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

var productBranchConflict = []clause.Column{{Name: "product_id"}, {Name: "branch_id"}}

// Repository persists inventory records. Every write is a single statement so
// row locks are held by the database, never by Go code.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, productID, branchID uuid.UUID) (*models.InventoryRecord, error)
	List(ctx context.Context, branchID *uuid.UUID) ([]models.InventoryRecord, error)
	ListLowStock(ctx context.Context, branchID *uuid.UUID) ([]models.InventoryRecord, error)
	CountLowStock(ctx context.Context, branchID *uuid.UUID) (int64, error)
	SetQuantity(ctx context.Context, productID, branchID uuid.UUID, quantity int, threshold *int) (*models.InventoryRecord, error)
	AddDelta(ctx context.Context, productID, branchID uuid.UUID, delta int) (*models.InventoryRecord, error)
	DecrementIfAvailable(ctx context.Context, productID, branchID uuid.UUID, quantity int) (*models.InventoryRecord, error)
}

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now}
}

func (r *repository) Find(ctx context.Context, productID, branchID uuid.UUID) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND branch_id = ?", productID, branchID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) List(ctx context.Context, branchID *uuid.UUID) ([]models.InventoryRecord, error) {
	var records []models.InventoryRecord
	err := r.scoped(ctx, branchID).
		Order("branch_id ASC").
		Order("product_id ASC").
		Find(&records).Error
	return records, err
}

func (r *repository) ListLowStock(ctx context.Context, branchID *uuid.UUID) ([]models.InventoryRecord, error) {
	var records []models.InventoryRecord
	err := r.scoped(ctx, branchID).
		Where("quantity <= low_stock_threshold").
		Order("quantity ASC").
		Order("product_id ASC").
		Find(&records).Error
	return records, err
}

func (r *repository) CountLowStock(ctx context.Context, branchID *uuid.UUID) (int64, error) {
	var count int64
	err := r.scoped(ctx, branchID).
		Where("quantity <= low_stock_threshold").
		Count(&count).Error
	return count, err
}

// SetQuantity writes an absolute quantity. The threshold is only touched when
// provided; new records start at the default.
func (r *repository) SetQuantity(ctx context.Context, productID, branchID uuid.UUID, quantity int, threshold *int) (*models.InventoryRecord, error) {
	now := r.now()
	record := models.InventoryRecord{
		ProductID:         productID,
		BranchID:          branchID,
		Quantity:          quantity,
		LowStockThreshold: models.DefaultLowStockThreshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	updates := map[string]any{
		"quantity":   quantity,
		"updated_at": now,
	}
	if threshold != nil {
		record.LowStockThreshold = *threshold
		updates["low_stock_threshold"] = *threshold
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   productBranchConflict,
		DoUpdates: clause.Assignments(updates),
	}).Create(&record).Error
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, productID, branchID)
}

// AddDelta applies quantity += delta, creating the record with quantity=delta
// when it does not exist yet.
func (r *repository) AddDelta(ctx context.Context, productID, branchID uuid.UUID, delta int) (*models.InventoryRecord, error) {
	now := r.now()
	record := models.InventoryRecord{
		ProductID:         productID,
		BranchID:          branchID,
		Quantity:          delta,
		LowStockThreshold: models.DefaultLowStockThreshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: productBranchConflict,
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("inventory_records.quantity + ?", delta),
			"updated_at": now,
		}),
	}).Create(&record).Error
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, productID, branchID)
}

// DecrementIfAvailable subtracts quantity only when enough stock is on hand.
// A missing record counts as zero stock.
func (r *repository) DecrementIfAvailable(ctx context.Context, productID, branchID uuid.UUID, quantity int) (*models.InventoryRecord, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("product_id = ? AND branch_id = ? AND quantity >= ?", productID, branchID, quantity).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", quantity),
			"updated_at": r.now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInsufficientStock
	}
	return r.Find(ctx, productID, branchID)
}

func (r *repository) scoped(ctx context.Context, branchID *uuid.UUID) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.InventoryRecord{})
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}
	return query
}
