package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pizzalemon/pos-backend/pkg/db/models"
	"github.com/pizzalemon/pos-backend/pkg/enums"
)

// SalesTotals is a count and revenue rollup over completed sales.
type SalesTotals struct {
	SaleCount    int64
	RevenueCents int64
}

// Repository reads sales rollups.
type Repository interface {
	SalesTotals(ctx context.Context, branchID *uuid.UUID, since *time.Time) (SalesTotals, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// SalesTotals sums completed sales, optionally for one branch and from since
// onward. Voided sales never count.
func (r *repository) SalesTotals(ctx context.Context, branchID *uuid.UUID, since *time.Time) (SalesTotals, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select("COUNT(*) AS sale_count, COALESCE(SUM(total_cents), 0) AS revenue_cents").
		Where("status = ?", enums.SaleStatusCompleted)
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}
	if since != nil {
		query = query.Where("created_at >= ?", since.UTC())
	}

	var totals SalesTotals
	if err := query.Scan(&totals).Error; err != nil {
		return SalesTotals{}, err
	}
	return totals, nil
}
