package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
	"github.com/pizzalemon/pos-backend/pkg/money"
)

type activeCounter interface {
	CountActive(ctx context.Context) (int64, error)
}

type lowStockCounter interface {
	CountLowStock(ctx context.Context, branchID *uuid.UUID) (int64, error)
}

// DashboardStats is the landing screen rollup.
type DashboardStats struct {
	TotalSales      int64        `json:"total_sales"`
	TotalRevenue    money.Amount `json:"total_revenue"`
	TotalCustomers  int64        `json:"total_customers"`
	TotalProducts   int64        `json:"total_products"`
	LowStockItems   int64        `json:"low_stock_items"`
	TodaySalesCount int64        `json:"today_sales_count"`
	TodayRevenue    money.Amount `json:"today_revenue"`
}

// Service builds dashboard reports.
type Service interface {
	// DashboardStats aggregates sales, customers, products and stock. A nil
	// branch covers every branch.
	DashboardStats(ctx context.Context, branchID *uuid.UUID) (*DashboardStats, error)
}

type ServiceParams struct {
	Repo      Repository
	Customers activeCounter
	Products  activeCounter
	Inventory lowStockCounter
	Now       func() time.Time
}

type service struct {
	repo      Repository
	customers activeCounter
	products  activeCounter
	inventory lowStockCounter
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer counter required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product counter required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory counter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		customers: params.Customers,
		products:  params.Products,
		inventory: params.Inventory,
		now:       now,
	}, nil
}

func (s *service) DashboardStats(ctx context.Context, branchID *uuid.UUID) (*DashboardStats, error) {
	all, err := s.repo.SalesTotals(ctx, branchID, nil)
	if err != nil {
		return nil, dependency(err, "sum sales")
	}
	today := startOfDay(s.now())
	daily, err := s.repo.SalesTotals(ctx, branchID, &today)
	if err != nil {
		return nil, dependency(err, "sum today's sales")
	}
	customers, err := s.customers.CountActive(ctx)
	if err != nil {
		return nil, dependency(err, "count customers")
	}
	products, err := s.products.CountActive(ctx)
	if err != nil {
		return nil, dependency(err, "count products")
	}
	lowStock, err := s.inventory.CountLowStock(ctx, branchID)
	if err != nil {
		return nil, dependency(err, "count low stock")
	}

	return &DashboardStats{
		TotalSales:      all.SaleCount,
		TotalRevenue:    money.AmountFromCents(all.RevenueCents),
		TotalCustomers:  customers,
		TotalProducts:   products,
		LowStockItems:   lowStock,
		TodaySalesCount: daily.SaleCount,
		TodayRevenue:    money.AmountFromCents(daily.RevenueCents),
	}, nil
}

// startOfDay truncates t to UTC midnight.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dependency(err error, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
