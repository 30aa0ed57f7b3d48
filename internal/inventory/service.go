package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pizzalemon/pos-backend/internal/repo"
	"github.com/pizzalemon/pos-backend/pkg/db/models"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
	"github.com/pizzalemon/pos-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the inventory ledger.
type Service interface {
	Get(ctx context.Context, productID, branchID uuid.UUID) (*RecordDTO, error)
	List(ctx context.Context, branchID *uuid.UUID) ([]RecordDTO, error)
	ListLowStock(ctx context.Context, branchID *uuid.UUID) ([]RecordDTO, error)
	Upsert(ctx context.Context, input UpsertInput) (*RecordDTO, error)
	Adjust(ctx context.Context, input AdjustInput) (*RecordDTO, error)
	// AdjustTx applies delta inside the caller's transaction. Negative deltas
	// honor the backorder policy.
	AdjustTx(ctx context.Context, tx *gorm.DB, productID, branchID uuid.UUID, delta int) (*models.InventoryRecord, error)
}

// UpsertInput sets an absolute quantity.
type UpsertInput struct {
	ProductID         uuid.UUID
	BranchID          uuid.UUID
	Quantity          int
	LowStockThreshold *int
}

// AdjustInput applies a signed delta.
type AdjustInput struct {
	ProductID uuid.UUID
	BranchID  uuid.UUID
	Delta     int
	Reason    string
}

// RecordDTO is the wire shape of an inventory record.
type RecordDTO struct {
	ID                uuid.UUID `json:"id"`
	ProductID         uuid.UUID `json:"product_id"`
	BranchID          uuid.UUID `json:"branch_id"`
	Quantity          int       `json:"quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	IsLowStock        bool      `json:"is_low_stock"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toDTO(r *models.InventoryRecord) RecordDTO {
	return RecordDTO{
		ID:                r.ID,
		ProductID:         r.ProductID,
		BranchID:          r.BranchID,
		Quantity:          r.Quantity,
		LowStockThreshold: r.LowStockThreshold,
		IsLowStock:        r.IsLowStock(),
		UpdatedAt:         r.UpdatedAt,
	}
}

type service struct {
	repo           Repository
	tx             txRunner
	logg           *logger.Logger
	allowBackorder bool
}

// NewService wires the inventory ledger. allowBackorder lets stock go negative
// on decrement.
func NewService(repo Repository, tx txRunner, logg *logger.Logger, allowBackorder bool) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg, allowBackorder: allowBackorder}, nil
}

func (s *service) Get(ctx context.Context, productID, branchID uuid.UUID) (*RecordDTO, error) {
	record, err := s.repo.Find(ctx, productID, branchID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, repo.NotFound(err, "inventory record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
	}
	dto := toDTO(record)
	return &dto, nil
}

func (s *service) List(ctx context.Context, branchID *uuid.UUID) ([]RecordDTO, error) {
	records, err := s.repo.List(ctx, branchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	return toDTOs(records), nil
}

func (s *service) ListLowStock(ctx context.Context, branchID *uuid.UUID) ([]RecordDTO, error) {
	records, err := s.repo.ListLowStock(ctx, branchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	return toDTOs(records), nil
}

func (s *service) Upsert(ctx context.Context, input UpsertInput) (*RecordDTO, error) {
	if err := validateKeys(input.ProductID, input.BranchID); err != nil {
		return nil, err
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be zero or greater")
	}
	if input.LowStockThreshold != nil && *input.LowStockThreshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "low_stock_threshold must be zero or greater")
	}

	record, err := s.repo.SetQuantity(ctx, input.ProductID, input.BranchID, input.Quantity, input.LowStockThreshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert inventory")
	}
	dto := toDTO(record)
	return &dto, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*RecordDTO, error) {
	if err := validateKeys(input.ProductID, input.BranchID); err != nil {
		return nil, err
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must not be zero")
	}

	var record *models.InventoryRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		record, err = s.AdjustTx(ctx, tx, input.ProductID, input.BranchID, input.Delta)
		return err
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adjust inventory")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"product_id": input.ProductID.String(),
			"branch_id":  input.BranchID.String(),
			"delta":      input.Delta,
			"quantity":   record.Quantity,
			"reason":     input.Reason,
		})
		s.logg.Info(logCtx, "inventory.adjusted")
	}
	dto := toDTO(record)
	return &dto, nil
}

func (s *service) AdjustTx(ctx context.Context, tx *gorm.DB, productID, branchID uuid.UUID, delta int) (*models.InventoryRecord, error) {
	r := s.repo.WithTx(tx)
	if delta >= 0 || s.allowBackorder {
		return r.AddDelta(ctx, productID, branchID, delta)
	}

	record, err := r.DecrementIfAvailable(ctx, productID, branchID, -delta)
	if errors.Is(err, ErrInsufficientStock) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "insufficient stock").
			WithDetails(map[string]any{
				"product_id": productID.String(),
				"branch_id":  branchID.String(),
				"requested":  -delta,
			})
	}
	return record, err
}

func validateKeys(productID, branchID uuid.UUID) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if branchID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "branch_id is required")
	}
	return nil
}

func toDTOs(records []models.InventoryRecord) []RecordDTO {
	out := make([]RecordDTO, 0, len(records))
	for i := range records {
		out = append(out, toDTO(&records[i]))
	}
	return out
}
