package customers

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pizzalemon/pos-backend/internal/repo"
	"github.com/pizzalemon/pos-backend/pkg/db/models"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
	"github.com/pizzalemon/pos-backend/pkg/logger"
	"github.com/pizzalemon/pos-backend/pkg/money"
	"github.com/pizzalemon/pos-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the customer loyalty ledger plus customer records.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CustomerDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CustomerDTO, error)
	List(ctx context.Context, search string, params pagination.Params) (*CustomerList, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*CustomerDTO, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	AdjustPoints(ctx context.Context, id uuid.UUID, points int64) (*CustomerDTO, error)

	// AddPointsTx and RecordSpendTx run inside the caller's transaction.
	AddPointsTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, points int64) (*models.Customer, error)
	ReversePointsTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, points int64) (int64, error)
	RecordSpendTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, amount decimal.Decimal) (*models.Customer, error)
}

// CreateInput holds a new customer.
type CreateInput struct {
	Name  string
	Phone *string
	Email *string
}

// UpdateInput holds optional customer changes.
type UpdateInput struct {
	Name  *string
	Phone *string
	Email *string
}

// CustomerDTO is the wire shape of a customer.
type CustomerDTO struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	Phone         *string      `json:"phone,omitempty"`
	Email         *string      `json:"email,omitempty"`
	LoyaltyPoints int64        `json:"loyalty_points"`
	TotalSpent    money.Amount `json:"total_spent"`
	IsActive      bool         `json:"is_active"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// CustomerList is one page of customers.
type CustomerList struct {
	Customers  []CustomerDTO `json:"customers"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func toDTO(c *models.Customer) *CustomerDTO {
	return &CustomerDTO{
		ID:            c.ID,
		Name:          c.Name,
		Phone:         c.Phone,
		Email:         c.Email,
		LoyaltyPoints: c.LoyaltyPoints,
		TotalSpent:    money.AmountFromCents(c.TotalSpentCents),
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds the customers service.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CustomerDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	customer := &models.Customer{
		Name:     name,
		Phone:    normalizeOptional(input.Phone),
		Email:    email,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create customer")
	}
	return toDTO(customer), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CustomerDTO, error) {
	customer, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return toDTO(customer), nil
}

func (s *service) List(ctx context.Context, search string, params pagination.Params) (*CustomerList, error) {
	rows, next, err := s.repo.List(ctx, search, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	out := &CustomerList{Customers: make([]CustomerDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		out.Customers = append(out.Customers, *toDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*CustomerDTO, error) {
	customer, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		customer.Name = name
	}
	if input.Phone != nil {
		customer.Phone = normalizeOptional(input.Phone)
	}
	if input.Email != nil {
		email, err := normalizeEmail(input.Email)
		if err != nil {
			return nil, err
		}
		customer.Email = email
	}
	if err := s.repo.Save(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update customer")
	}
	return toDTO(customer), nil
}

// Deactivate soft-deletes the customer. Loyalty history stays on the row.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	customer, err := s.load(ctx, s.repo, id)
	if err != nil {
		return err
	}
	customer.IsActive = false
	if err := s.repo.Save(ctx, customer); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate customer")
	}
	return nil
}

// AdjustPoints is the manual loyalty correction used by staff.
func (s *service) AdjustPoints(ctx context.Context, id uuid.UUID, points int64) (*CustomerDTO, error) {
	if points == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must not be zero")
	}
	var customer *models.Customer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		customer, err = s.AddPointsTx(ctx, tx, id, points)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"customer_id":    id.String(),
			"points":         points,
			"loyalty_points": customer.LoyaltyPoints,
		})
		s.logg.Info(logCtx, "customer.points_adjusted")
	}
	return toDTO(customer), nil
}

func (s *service) AddPointsTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, points int64) (*models.Customer, error) {
	customer, err := s.repo.WithTx(tx).AddPoints(ctx, id, points)
	switch {
	case err == nil:
		return customer, nil
	case errors.Is(err, ErrNegativePoints):
		return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "loyalty points cannot go negative").
			WithDetails(map[string]any{"customer_id": id.String(), "points": points})
	case repo.IsNotFound(err):
		return nil, repo.NotFound(err, "customer not found")
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update loyalty points")
	}
}

// ReversePointsTx removes up to points, capped at the current balance, and
// reports how many were removed.
func (s *service) ReversePointsTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, points int64) (int64, error) {
	if points <= 0 {
		return 0, nil
	}
	r := s.repo.WithTx(tx)
	customer, err := s.load(ctx, r, id)
	if err != nil {
		return 0, err
	}
	taken := min(points, customer.LoyaltyPoints)
	if taken <= 0 {
		return 0, nil
	}
	if _, err := s.AddPointsTx(ctx, tx, id, -taken); err != nil {
		return 0, err
	}
	return taken, nil
}

// RecordSpendTx adds amount to the lifetime spend. Negative amounts reverse a
// voided sale.
func (s *service) RecordSpendTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, amount decimal.Decimal) (*models.Customer, error) {
	customer, err := s.repo.WithTx(tx).AddSpend(ctx, id, money.ToCents(amount))
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, repo.NotFound(err, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record customer spend")
	}
	return customer, nil
}

func (s *service) load(ctx context.Context, r Repository, id uuid.UUID) (*models.Customer, error) {
	customer, err := r.FindByID(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, repo.NotFound(err, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return customer, nil
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

func normalizeEmail(v *string) (*string, error) {
	email := normalizeOptional(v)
	if email == nil {
		return nil, nil
	}
	if _, err := mail.ParseAddress(*email); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid email")
	}
	lowered := strings.ToLower(*email)
	return &lowered, nil
}
