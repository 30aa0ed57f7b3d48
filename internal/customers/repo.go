package customers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pizzalemon/pos-backend/pkg/db/models"
	"github.com/pizzalemon/pos-backend/pkg/pagination"
)

// ErrNegativePoints is returned when a points change would leave a negative balance.
var ErrNegativePoints = errors.New("loyalty points would go negative")

// Repository persists customers and their loyalty balances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, search string, params pagination.Params) ([]models.Customer, string, error)
	Save(ctx context.Context, customer *models.Customer) error
	AddPoints(ctx context.Context, id uuid.UUID, points int64) (*models.Customer, error)
	AddSpend(ctx context.Context, id uuid.UUID, cents int64) (*models.Customer, error)
	CountActive(ctx context.Context) (int64, error)
}

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository builds a customers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now}
}

func (r *repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// List returns active customers newest first. search matches name, phone or
// email case-insensitively.
func (r *repository) List(ctx context.Context, search string, params pagination.Params) ([]models.Customer, string, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("is_active = ?", true)

	if term := strings.ToLower(strings.TrimSpace(search)); term != "" {
		pattern := "%" + term + "%"
		query = query.Where(
			"(LOWER(name) LIKE ? OR LOWER(COALESCE(phone, '')) LIKE ? OR LOWER(COALESCE(email, '')) LIKE ?)",
			pattern, pattern, pattern,
		)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	var rows []models.Customer
	if err := pagination.Keyset(query, cursor, params.Limit).Find(&rows).Error; err != nil {
		return nil, "", err
	}

	page, next := pagination.Trim(rows, params.Limit, func(customer models.Customer) pagination.Cursor {
		return pagination.Cursor{CreatedAt: customer.CreatedAt, ID: customer.ID}
	})
	return page, next, nil
}

func (r *repository) Save(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

// AddPoints applies loyalty_points += points in one statement. A negative
// change only lands when the balance covers it.
func (r *repository) AddPoints(ctx context.Context, id uuid.UUID, points int64) (*models.Customer, error) {
	query := r.db.WithContext(ctx).Model(&models.Customer{}).Where("id = ?", id)
	if points < 0 {
		query = query.Where("loyalty_points >= ?", -points)
	}
	res := query.Updates(map[string]any{
		"loyalty_points": gorm.Expr("loyalty_points + ?", points),
		"updated_at":     r.now(),
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrNegativePoints
	}
	return r.FindByID(ctx, id)
}

// AddSpend applies total_spent_cents += cents.
func (r *repository) AddSpend(ctx context.Context, id uuid.UUID, cents int64) (*models.Customer, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_spent_cents": gorm.Expr("total_spent_cents + ?", cents),
			"updated_at":        r.now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *repository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Customer{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}
